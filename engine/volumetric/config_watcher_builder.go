package volumetric

// ConfigWatcherOption is a functional option applied to a ConfigWatcher during construction.
type ConfigWatcherOption func(*configWatcherImpl)

// WithCheckInterval sets how many Check calls elapse between file stats.
// Values < 1 are treated as 1 (stat every frame).
//
// Parameters:
//   - frames: the number of frames between config file polls
//
// Returns:
//   - ConfigWatcherOption: a function that applies the interval to a watcher
func WithCheckInterval(frames int) ConfigWatcherOption {
	return func(w *configWatcherImpl) {
		if frames < 1 {
			frames = 1
		}
		w.checkInterval = frames
	}
}
