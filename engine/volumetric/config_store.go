package volumetric

import "sync/atomic"

// configStoreImpl is the implementation of the ConfigStore interface.
type configStoreImpl struct {
	current atomic.Pointer[Config]
}

// ConfigStore publishes immutable Config snapshots to the rest of the
// subsystem. Replace swaps the whole snapshot in a single atomic store, so a
// reader that fixes the pointer at frame start sees one consistent set of
// values for the entire frame regardless of concurrent reloads.
type ConfigStore interface {
	// Current returns the most recently published snapshot. The returned
	// pointer is immutable; callers must not modify it.
	//
	// Returns:
	//   - *Config: the current configuration snapshot, never nil
	Current() *Config

	// Replace atomically publishes a new snapshot. The caller must not mutate
	// cfg after passing it in.
	//
	// Parameters:
	//   - cfg: the new configuration snapshot to publish
	Replace(cfg *Config)
}

var _ ConfigStore = &configStoreImpl{}

// NewConfigStore creates a ConfigStore seeded with the given initial snapshot.
// Pass nil to seed with package defaults.
//
// Parameters:
//   - initial: the first snapshot to publish, or nil for NewConfig()
//
// Returns:
//   - ConfigStore: a store whose Current never returns nil
func NewConfigStore(initial *Config) ConfigStore {
	s := &configStoreImpl{}
	if initial == nil {
		def := NewConfig()
		initial = &def
	}
	s.current.Store(initial)
	return s
}

func (s *configStoreImpl) Current() *Config {
	return s.current.Load()
}

func (s *configStoreImpl) Replace(cfg *Config) {
	s.current.Store(cfg)
}
