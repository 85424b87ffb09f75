package volumetric

// streamerConfig collects pre-construction streamer settings.
type streamerConfig struct {
	cullWorkers int
}

// StreamerOption is a functional option applied to a Streamer during construction.
type StreamerOption func(*streamerConfig)

// WithCullWorkers sets the number of worker goroutines used for parallel light
// culling during Publish. Values < 1 are treated as 1.
//
// Parameters:
//   - workers: the worker pool size
//
// Returns:
//   - StreamerOption: a function that applies the worker count to a streamer
func WithCullWorkers(workers int) StreamerOption {
	return func(c *streamerConfig) {
		if workers < 1 {
			workers = 1
		}
		c.cullWorkers = workers
	}
}
