package volumetric

import (
	"math"
	"testing"
)

func TestControlsAdjustIntensity(t *testing.T) {
	store := NewConfigStore(nil)
	c := NewControls(store)
	base := store.Current().IntensityScale

	c.AdjustIntensity(true)
	want := base * controlStepUp
	if got := store.Current().IntensityScale; math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("intensity scale = %g, want %g", got, want)
	}
	c.AdjustIntensity(false)
	c.AdjustIntensity(false)
	want = want * controlStepDown * controlStepDown
	if got := store.Current().IntensityScale; math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("intensity scale = %g, want %g", got, want)
	}
}

func TestControlsClampAtBounds(t *testing.T) {
	store := NewConfigStore(nil)
	c := NewControls(store)

	for i := 0; i < 100; i++ {
		c.AdjustIntensity(true)
		c.AdjustRadius(false)
	}
	if got := store.Current().IntensityScale; got != maxIntensityScale {
		t.Fatalf("intensity scale should clamp at %g, got %g", float32(maxIntensityScale), got)
	}
	if got := store.Current().RadiusScale; got != minRadiusScale {
		t.Fatalf("radius scale should clamp at %g, got %g", float32(minRadiusScale), got)
	}
}

func TestControlsAdjustScattering(t *testing.T) {
	store := NewConfigStore(nil)
	c := NewControls(store)
	base := store.Current().ScatteringMultiplier

	c.AdjustScattering(true)
	want := base * controlStepUp
	if got := store.Current().ScatteringMultiplier; math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("scattering multiplier = %g, want %g", got, want)
	}
	c.AdjustScattering(false)
	c.AdjustScattering(false)
	want = want * controlStepDown * controlStepDown
	if got := store.Current().ScatteringMultiplier; math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("scattering multiplier = %g, want %g", got, want)
	}

	for i := 0; i < 100; i++ {
		c.AdjustScattering(false)
	}
	if got := store.Current().ScatteringMultiplier; got != minScatteringScale {
		t.Fatalf("scattering multiplier should clamp at %g, got %g", float32(minScatteringScale), got)
	}
	for i := 0; i < 100; i++ {
		c.AdjustScattering(true)
	}
	if got := store.Current().ScatteringMultiplier; got != maxScatteringScale {
		t.Fatalf("scattering multiplier should clamp at %g, got %g", float32(maxScatteringScale), got)
	}
}

func TestControlsFogDensityScalesFromBase(t *testing.T) {
	store := NewConfigStore(nil)
	c := NewControls(store)
	base := store.Current().BaseFogDensity

	c.AdjustFogDensity(true)
	want := base * controlStepUp
	if got := store.Current().BaseFogDensity; math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("base fog density = %g, want %g", got, want)
	}

	// A watcher reload replacing the snapshot must not compound with the
	// control's accumulated scale: the next press steps the scale, and the
	// result stays anchored to the density the controls were created with.
	reloaded := *store.Current()
	reloaded.BaseFogDensity = base * 10
	store.Replace(&reloaded)

	c.AdjustFogDensity(false)
	got := store.Current().BaseFogDensity
	if got >= base*10 {
		t.Fatalf("control press after reload should step the scale down, got %g", got)
	}
	if got > base*maxFogDensityScale {
		t.Fatalf("density %g exceeds the control's ceiling relative to base %g", got, base)
	}
}

func TestControlsRejectInvalidResult(t *testing.T) {
	// Seed a config that a downward density step would push out of range if
	// controls skipped validation; the clamp keeps it legal, so the publish
	// must always leave a valid snapshot behind.
	store := NewConfigStore(nil)
	c := NewControls(store)
	for i := 0; i < 50; i++ {
		c.AdjustFogDensity(false)
	}
	if err := store.Current().Validate(); err != nil {
		t.Fatalf("controls published an invalid config: %v", err)
	}
}
