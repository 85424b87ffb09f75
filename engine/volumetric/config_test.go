package volumetric

import "testing"

func TestNewConfigValidates(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero grid width", func(c *Config) { c.GridWidth = 0 }},
		{"negative grid depth", func(c *Config) { c.GridDepth = -1 }},
		{"zero near plane", func(c *Config) { c.NearPlane = 0 }},
		{"far before near", func(c *Config) { c.FarPlane = c.NearPlane }},
		{"negative base density", func(c *Config) { c.BaseFogDensity = -0.1 }},
		{"fog color above 1", func(c *Config) { c.FogColor[1] = 1.5 }},
		{"albedo above 1", func(c *Config) { c.FogAlbedo = 1.1 }},
		{"phase g below -1", func(c *Config) { c.PhaseAnisotropy = -1.2 }},
		{"zero intensity scale", func(c *Config) { c.IntensityScale = 0 }},
		{"zero radius scale", func(c *Config) { c.RadiusScale = 0 }},
		{"zero attenuation falloff", func(c *Config) { c.AttenuationFalloff = 0 }},
		{"negative attempts", func(c *Config) { c.GroundLightAttempts = -1 }},
		{"zero attempts", func(c *Config) { c.GroundLightAttempts = 0 }},
		{"zero clearance", func(c *Config) { c.GroundLightMinClearance = 0 }},
		{"inverted height range", func(c *Config) { c.GroundLightMaxHeight = c.GroundLightMinHeight - 1 }},
		{"inverted size range", func(c *Config) { c.GroundLightMaxSize = c.GroundLightMinSize - 1 }},
		{"inverted intensity range", func(c *Config) { c.GroundLightMaxIntensity = c.GroundLightMinIntensity - 1 }},
		{"zero raymarch steps", func(c *Config) { c.RaymarchSteps = 0 }},
		{"zero step multiplier", func(c *Config) { c.StepSizeMultiplier = 0 }},
		{"jitter above 1", func(c *Config) { c.JitterAmount = 1.2 }},
		{"blend above cap", func(c *Config) { c.TemporalBlend = MaxTemporalBlend + 0.01 }},
		{"negative scattering multiplier", func(c *Config) { c.ScatteringMultiplier = -1 }},
		{"transmittance floor above 1", func(c *Config) { c.TransmittanceFloor = 1.5 }},
		{"transmittance mix below 0", func(c *Config) { c.TransmittanceMix = -0.5 }},
		{"sky color above 1", func(c *Config) { c.SkyLightColor[2] = 2 }},
		{"negative sky intensity", func(c *Config) { c.SkyLightIntensity = -1 }},
	}
	for _, tc := range cases {
		cfg := NewConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected a validation error", tc.name)
		}
	}
}

func TestGridEquals(t *testing.T) {
	a := NewConfig()
	b := a
	if !a.GridEquals(&b) {
		t.Fatal("identical grids must compare equal")
	}
	b.GridDepth++
	if a.GridEquals(&b) {
		t.Fatal("differing depth must compare unequal")
	}
	// Non-grid fields never affect the comparison.
	c := a
	c.BaseFogDensity *= 2
	c.TemporalBlend = 0
	if !a.GridEquals(&c) {
		t.Fatal("non-grid fields must not affect grid equality")
	}
}

func TestConfigStoreSnapshots(t *testing.T) {
	store := NewConfigStore(nil)
	first := store.Current()
	if first == nil {
		t.Fatal("Current must never return nil")
	}
	if first.GridWidth != DefaultGridWidth {
		t.Fatalf("nil seed should publish defaults, got width %d", first.GridWidth)
	}

	next := NewConfig()
	next.BaseFogDensity = 0.5
	store.Replace(&next)
	if got := store.Current(); got.BaseFogDensity != 0.5 {
		t.Fatalf("Replace did not publish, density %g", got.BaseFogDensity)
	}
	if first.BaseFogDensity == 0.5 {
		t.Fatal("a held snapshot must not change under Replace")
	}
}
