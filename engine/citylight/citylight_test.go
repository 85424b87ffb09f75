package citylight

import (
	"testing"

	"github.com/Carmen-Shannon/haze-go/engine/volumetric"
)

func testArea() Bounds {
	return Bounds{MinX: -100, MaxX: 100, MinZ: -100, MaxZ: 100}
}

func testFootprints() []Footprint {
	return []Footprint{
		{MinX: -20, MaxX: 20, MinZ: -20, MaxZ: 20},
		{MinX: 50, MaxX: 80, MinZ: -60, MaxZ: -30},
	}
}

func TestGenerateGroundLightsDeterministic(t *testing.T) {
	cfg := volumetric.NewConfig()
	a := GenerateGroundLights(cfg, testArea(), testFootprints(), 42)
	b := GenerateGroundLights(cfg, testArea(), testFootprints(), 42)

	if len(a) == 0 {
		t.Fatal("expected at least one ground light")
	}
	if len(a) != len(b) {
		t.Fatalf("same seed produced %d and %d lights", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("light %d differs between identical seeds: %+v vs %+v", i, a[i], b[i])
		}
	}

	c := GenerateGroundLights(cfg, testArea(), testFootprints(), 43)
	if len(c) == len(a) {
		same := true
		for i := range a {
			if a[i] != c[i] {
				same = false
				break
			}
		}
		if same {
			t.Fatal("different seeds produced identical light sets")
		}
	}
}

func TestGenerateGroundLightsRespectsBounds(t *testing.T) {
	cfg := volumetric.NewConfig()
	area := testArea()
	footprints := testFootprints()
	lights := GenerateGroundLights(cfg, area, footprints, 7)

	if len(lights) > cfg.GroundLightMaxCount {
		t.Fatalf("placed %d lights, max is %d", len(lights), cfg.GroundLightMaxCount)
	}
	for i, l := range lights {
		x, y, z := l.Position[0], l.Position[1], l.Position[2]
		if x < area.MinX || x > area.MaxX || z < area.MinZ || z > area.MaxZ {
			t.Fatalf("light %d at (%g, %g) outside area", i, x, z)
		}
		if y < cfg.GroundLightMinHeight || y > cfg.GroundLightMaxHeight {
			t.Fatalf("light %d height %g outside [%g, %g]", i, y, cfg.GroundLightMinHeight, cfg.GroundLightMaxHeight)
		}
		if l.Radius < cfg.GroundLightMinSize || l.Radius > cfg.GroundLightMaxSize {
			t.Fatalf("light %d radius %g outside [%g, %g]", i, l.Radius, cfg.GroundLightMinSize, cfg.GroundLightMaxSize)
		}
		if l.Intensity < cfg.GroundLightMinIntensity || l.Intensity > cfg.GroundLightMaxIntensity {
			t.Fatalf("light %d intensity %g outside [%g, %g]", i, l.Intensity, cfg.GroundLightMinIntensity, cfg.GroundLightMaxIntensity)
		}
		if l.Shape != volumetric.LightShapeSphere {
			t.Fatalf("light %d is not a sphere", i)
		}
		for _, fp := range footprints {
			cl := cfg.GroundLightMinClearance
			if x >= fp.MinX-cl && x <= fp.MaxX+cl && z >= fp.MinZ-cl && z <= fp.MaxZ+cl {
				t.Fatalf("light %d at (%g, %g) violates clearance against footprint %+v", i, x, z, fp)
			}
		}
	}
}

func TestGenerateGroundLightsNoOpenGround(t *testing.T) {
	cfg := volumetric.NewConfig()
	area := Bounds{MinX: -5, MaxX: 5, MinZ: -5, MaxZ: 5}
	blocked := []Footprint{{MinX: -10, MaxX: 10, MinZ: -10, MaxZ: 10}}

	if lights := GenerateGroundLights(cfg, area, blocked, 1); len(lights) != 0 {
		t.Fatalf("expected no lights on fully blocked ground, got %d", len(lights))
	}
}

func TestGenerateWindowGlow(t *testing.T) {
	cfg := volumetric.NewConfig()
	footprints := testFootprints()
	lights := GenerateWindowGlow(cfg, footprints, 8, 3)

	if len(lights) != len(footprints) {
		t.Fatalf("expected %d glow volumes, got %d", len(footprints), len(lights))
	}
	for i, l := range lights {
		fp := footprints[i]
		if l.Shape != volumetric.LightShapeBox {
			t.Fatalf("glow %d is not a box", i)
		}
		wantX := fp.MinX + (fp.MaxX-fp.MinX)/2
		wantZ := fp.MinZ + (fp.MaxZ-fp.MinZ)/2
		if l.Position[0] != wantX || l.Position[2] != wantZ {
			t.Fatalf("glow %d centered at (%g, %g), want (%g, %g)", i, l.Position[0], l.Position[2], wantX, wantZ)
		}
		if l.Extent[0] != (fp.MaxX-fp.MinX)/2 || l.Extent[1] != 8 || l.Extent[2] != (fp.MaxZ-fp.MinZ)/2 {
			t.Fatalf("glow %d extent %v does not match footprint", i, l.Extent)
		}
		if l.Radius < l.Extent[0] || l.Radius < l.Extent[1] || l.Radius < l.Extent[2] {
			t.Fatalf("glow %d bounding radius %g smaller than extent %v", i, l.Radius, l.Extent)
		}
	}

	degenerate := []Footprint{{MinX: 0, MaxX: 0, MinZ: 0, MaxZ: 10}}
	if lights := GenerateWindowGlow(cfg, degenerate, 8, 3); len(lights) != 0 {
		t.Fatalf("expected degenerate footprint to be skipped, got %d lights", len(lights))
	}
}
