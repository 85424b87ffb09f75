package volumetric

// pipelineConfig collects the collaborators a Pipeline is assembled from.
type pipelineConfig struct {
	store     ConfigStore
	watcher   ConfigWatcher
	streamer  Streamer
	resources ResourceSet
}

// PipelineOption is a functional option applied to a Pipeline during construction.
type PipelineOption func(*pipelineConfig)

// WithConfigStore sets the config store the pipeline snapshots each frame.
// When omitted a store holding the package defaults is created.
//
// Parameters:
//   - store: the config store to use
//
// Returns:
//   - PipelineOption: a function that applies the store to the pipeline
func WithConfigStore(store ConfigStore) PipelineOption {
	return func(c *pipelineConfig) {
		c.store = store
	}
}

// WithConfigWatcher sets the file watcher driven on the pipeline's frame
// cadence. When omitted no file is watched.
//
// Parameters:
//   - watcher: the config watcher to drive
//
// Returns:
//   - PipelineOption: a function that applies the watcher to the pipeline
func WithConfigWatcher(watcher ConfigWatcher) PipelineOption {
	return func(c *pipelineConfig) {
		c.watcher = watcher
	}
}

// WithStreamer sets the light and density volume registry feeding the
// pipeline. When omitted an empty registry is created.
//
// Parameters:
//   - streamer: the registry to use
//
// Returns:
//   - PipelineOption: a function that applies the streamer to the pipeline
func WithStreamer(streamer Streamer) PipelineOption {
	return func(c *pipelineConfig) {
		c.streamer = streamer
	}
}

// WithResourceSet sets the GPU resource set the pipeline renders through.
// When omitted a fresh set bound to the pipeline's renderer is created.
//
// Parameters:
//   - resources: the resource set to use
//
// Returns:
//   - PipelineOption: a function that applies the resource set to the pipeline
func WithResourceSet(resources ResourceSet) PipelineOption {
	return func(c *pipelineConfig) {
		c.resources = resources
	}
}
