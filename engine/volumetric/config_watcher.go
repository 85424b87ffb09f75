package volumetric

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultCheckInterval is the number of Check calls between file stats.
// At 60 render frames per second this polls the config file once per second.
const DefaultCheckInterval = 60

// configWatcherImpl is the implementation of the ConfigWatcher interface.
type configWatcherImpl struct {
	mu *sync.Mutex

	path          string
	store         ConfigStore
	checkInterval int

	frameCounter int
	lastModTime  time.Time
	// lastAttempt is the mod time of the last file version we tried to load,
	// successful or not. A failed load is not retried until this changes.
	lastAttempt time.Time

	recreateNeeded bool
}

// ConfigWatcher polls a JSON config file for changes and publishes validated
// snapshots to a ConfigStore. Polling is frame-count driven: the file is only
// stat'd once every checkInterval calls to Check, keeping the render thread
// free of filesystem work on most frames.
//
// Reloads are wholesale. A file version containing any out-of-range value is
// rejected entirely with a logged warning and the previous snapshot is kept;
// that version is not retried until the file changes again. Fields missing
// from the file inherit their values from the current snapshot, unknown
// fields are ignored, and // comments are tolerated.
type ConfigWatcher interface {
	// Check advances the frame counter and, on the configured cadence, stats
	// the config file and reloads it if its modification time changed. Safe to
	// call from the render thread every frame.
	Check()

	// ForceReload reloads the config file immediately regardless of cadence or
	// modification time. Used at startup to apply an existing file.
	//
	// Returns:
	//   - error: an error if the file could not be read or contained invalid values
	ForceReload() error

	// ConsumeRecreateFlag reports whether a reload since the previous call
	// changed the froxel grid dimensions, and clears the flag.
	//
	// Returns:
	//   - bool: true when GPU resources must be recreated for the new grid
	ConsumeRecreateFlag() bool
}

var _ ConfigWatcher = &configWatcherImpl{}

// NewConfigWatcher creates a ConfigWatcher for the given file path, publishing
// into the given store.
//
// Parameters:
//   - path: the JSON config file to watch
//   - store: the ConfigStore that receives validated snapshots (must not be nil)
//   - opts: variadic list of ConfigWatcherOption functions to configure the watcher
//
// Returns:
//   - ConfigWatcher: the configured watcher
func NewConfigWatcher(path string, store ConfigStore, opts ...ConfigWatcherOption) ConfigWatcher {
	if store == nil {
		panic("volumetric: NewConfigWatcher requires a non-nil ConfigStore")
	}
	w := &configWatcherImpl{
		mu:            &sync.Mutex{},
		path:          path,
		store:         store,
		checkInterval: DefaultCheckInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *configWatcherImpl) Check() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.frameCounter++
	if w.frameCounter < w.checkInterval {
		return
	}
	w.frameCounter = 0

	info, err := os.Stat(w.path)
	if err != nil {
		// Transient stat failure (editor save-in-progress, etc) — try again next tick.
		return
	}
	if info.ModTime().Equal(w.lastModTime) || info.ModTime().Equal(w.lastAttempt) {
		return
	}

	w.lastAttempt = info.ModTime()
	if err := w.reload(); err != nil {
		log.Printf("[Volumetric] config reload rejected, keeping previous values: %v", err)
		return
	}
	w.lastModTime = info.ModTime()
}

func (w *configWatcherImpl) ForceReload() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	w.lastAttempt = info.ModTime()
	if err := w.reload(); err != nil {
		return err
	}
	w.lastModTime = info.ModTime()
	return nil
}

func (w *configWatcherImpl) ConsumeRecreateFlag() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	flag := w.recreateNeeded
	w.recreateNeeded = false
	return flag
}

// reload reads, parses, validates, and publishes the config file. The caller
// must hold the mutex. On any error the store is left untouched.
func (w *configWatcherImpl) reload() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}

	// Start from the current snapshot so fields absent from the file keep
	// their prior values.
	next := *w.store.Current()
	if err := json.Unmarshal(stripLineComments(data), &next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}

	prev := w.store.Current()
	if !next.GridEquals(prev) {
		w.recreateNeeded = true
	}
	w.store.Replace(&next)
	return nil
}

// stripLineComments removes // comments from JSON source while leaving string
// contents untouched. encoding/json has no comment support, and hand-edited
// tuning files accumulate comments.
func stripLineComments(data []byte) []byte {
	var sb strings.Builder
	sb.Grow(len(data))

	inString := false
	escaped := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			sb.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			sb.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(data) && data[i+1] == '/' {
			for i < len(data) && data[i] != '\n' {
				i++
			}
			if i < len(data) {
				sb.WriteByte('\n')
			}
			continue
		}
		sb.WriteByte(c)
	}
	return []byte(sb.String())
}
