package volumetric

import "log"

// Multiplicative step applied per control press, and the clamp ranges each
// control stays inside. Stepping up then down returns close to, but not
// exactly, the starting value; the clamps keep repeated presses bounded.
const (
	controlStepDown = 0.8
	controlStepUp   = 1.25

	minIntensityScale = 0.1
	maxIntensityScale = 10.0

	minFogDensityScale = 0.1
	maxFogDensityScale = 10.0

	minRadiusScale = 0.1
	maxRadiusScale = 5.0

	minScatteringScale = 0.5
	maxScatteringScale = 50.0
)

// controlsImpl is the implementation of the Controls interface.
type controlsImpl struct {
	store ConfigStore
	base  Config
}

// Controls adjusts the live tunables of a running volumetric pipeline in
// multiplicative steps, publishing each change through the config store so
// the next frame picks it up atomically.
//
// The fog density control scales the config's base density relative to the
// value it held when the controls were created, so a watcher reload that
// changes the base does not compound with prior presses.
type Controls interface {
	// AdjustIntensity steps the light intensity scale up or down.
	//
	// Parameters:
	//   - up: true to increase, false to decrease
	AdjustIntensity(up bool)

	// AdjustFogDensity steps the base fog density up or down.
	//
	// Parameters:
	//   - up: true to increase, false to decrease
	AdjustFogDensity(up bool)

	// AdjustRadius steps the light radius scale up or down.
	//
	// Parameters:
	//   - up: true to increase, false to decrease
	AdjustRadius(up bool)

	// AdjustScattering steps the scattering brightness multiplier up or down.
	//
	// Parameters:
	//   - up: true to increase, false to decrease
	AdjustScattering(up bool)
}

var _ Controls = &controlsImpl{}

// NewControls creates runtime controls bound to a config store.
//
// Parameters:
//   - store: the store the adjusted configs are published through
//
// Returns:
//   - Controls: the bound controls
func NewControls(store ConfigStore) Controls {
	if store == nil {
		panic("controls require a config store")
	}
	return &controlsImpl{
		store: store,
		base:  *store.Current(),
	}
}

func (c *controlsImpl) AdjustIntensity(up bool) {
	cfg := *c.store.Current()
	cfg.IntensityScale = stepClamped(cfg.IntensityScale, up, minIntensityScale, maxIntensityScale)
	c.publish(cfg, "intensity scale", cfg.IntensityScale)
}

func (c *controlsImpl) AdjustFogDensity(up bool) {
	cfg := *c.store.Current()
	scale := float32(1)
	if c.base.BaseFogDensity > 0 {
		scale = cfg.BaseFogDensity / c.base.BaseFogDensity
	}
	scale = stepClamped(scale, up, minFogDensityScale, maxFogDensityScale)
	cfg.BaseFogDensity = c.base.BaseFogDensity * scale
	c.publish(cfg, "base fog density", cfg.BaseFogDensity)
}

func (c *controlsImpl) AdjustRadius(up bool) {
	cfg := *c.store.Current()
	cfg.RadiusScale = stepClamped(cfg.RadiusScale, up, minRadiusScale, maxRadiusScale)
	c.publish(cfg, "radius scale", cfg.RadiusScale)
}

func (c *controlsImpl) AdjustScattering(up bool) {
	cfg := *c.store.Current()
	cfg.ScatteringMultiplier = stepClamped(cfg.ScatteringMultiplier, up, minScatteringScale, maxScatteringScale)
	c.publish(cfg, "scattering multiplier", cfg.ScatteringMultiplier)
}

func (c *controlsImpl) publish(cfg Config, name string, value float32) {
	if err := cfg.Validate(); err != nil {
		log.Printf("[Volumetric] control change rejected: %v", err)
		return
	}
	c.store.Replace(&cfg)
	log.Printf("[Volumetric] %s -> %g", name, value)
}

func stepClamped(v float32, up bool, min, max float32) float32 {
	if up {
		v *= controlStepUp
	} else {
		v *= controlStepDown
	}
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v
}
