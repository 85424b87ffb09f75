// Package citylight generates the night-city light set a fog scene is lit by:
// randomized ground lights scattered across open ground between building
// footprints, plus box-shaped window glow volumes on the buildings themselves.
// Generation is deterministic for a given seed so a scene reloads identically.
package citylight

import (
	"math/rand"

	"github.com/Carmen-Shannon/haze-go/engine/volumetric"
)

// Bounds is the axis-aligned ground rectangle lights are scattered over.
type Bounds struct {
	MinX, MaxX float32
	MinZ, MaxZ float32
}

// Footprint is one building's ground rectangle, used as an exclusion zone
// during ground light placement.
type Footprint struct {
	MinX, MaxX float32
	MinZ, MaxZ float32
}

// groundPalette is the warm sodium-to-white range street lights are tinted
// from. Interpolation position is drawn per light.
var groundPalette = [2][3]float32{
	{1.0, 0.6, 0.25},
	{1.0, 0.9, 0.7},
}

// GenerateGroundLights places up to cfg.GroundLightMaxCount sphere lights on
// open ground by rejection sampling: each of cfg.GroundLightAttempts draws a
// candidate position inside the bounds and keeps it only when it clears every
// footprint by at least cfg.GroundLightMinClearance. Height, radius, intensity
// and tint are drawn from the config's ground-light ranges.
//
// The same seed, config and geometry always produce the same light set.
//
// Parameters:
//   - cfg: the config whose ground-light bounds drive the draw ranges
//   - area: the ground rectangle to scatter over
//   - footprints: building exclusion zones
//   - seed: the deterministic placement seed
//
// Returns:
//   - []volumetric.LightRecord: the placed lights, at most GroundLightMaxCount
func GenerateGroundLights(cfg volumetric.Config, area Bounds, footprints []Footprint, seed int64) []volumetric.LightRecord {
	rng := rand.New(rand.NewSource(seed))
	lights := make([]volumetric.LightRecord, 0, cfg.GroundLightMaxCount)

	for attempt := 0; attempt < cfg.GroundLightAttempts && len(lights) < cfg.GroundLightMaxCount; attempt++ {
		x := lerp(area.MinX, area.MaxX, rng.Float32())
		z := lerp(area.MinZ, area.MaxZ, rng.Float32())
		if !clearsFootprints(x, z, footprints, cfg.GroundLightMinClearance) {
			continue
		}

		y := lerp(cfg.GroundLightMinHeight, cfg.GroundLightMaxHeight, rng.Float32())
		radius := lerp(cfg.GroundLightMinSize, cfg.GroundLightMaxSize, rng.Float32())
		intensity := lerp(cfg.GroundLightMinIntensity, cfg.GroundLightMaxIntensity, rng.Float32())
		tint := rng.Float32()

		lights = append(lights, volumetric.LightRecord{
			Position: [3]float32{x, y, z},
			Radius:   radius,
			Color: [3]float32{
				lerp(groundPalette[0][0], groundPalette[1][0], tint),
				lerp(groundPalette[0][1], groundPalette[1][1], tint),
				lerp(groundPalette[0][2], groundPalette[1][2], tint),
			},
			Intensity: intensity,
			Shape:     volumetric.LightShapeSphere,
		})
	}
	return lights
}

// GenerateWindowGlow emits one box light per footprint, filling the building's
// base with a faint interior glow. Intensity is drawn from the bottom third of
// the ground-light intensity range so windows read dimmer than street lights.
//
// Parameters:
//   - cfg: the config whose ground-light bounds drive the draw ranges
//   - footprints: the buildings to glow
//   - height: the glow's vertical half extent in world units
//   - seed: the deterministic placement seed
//
// Returns:
//   - []volumetric.LightRecord: one box light per footprint
func GenerateWindowGlow(cfg volumetric.Config, footprints []Footprint, height float32, seed int64) []volumetric.LightRecord {
	rng := rand.New(rand.NewSource(seed))
	lights := make([]volumetric.LightRecord, 0, len(footprints))

	span := (cfg.GroundLightMaxIntensity - cfg.GroundLightMinIntensity) / 3
	for _, fp := range footprints {
		halfX := (fp.MaxX - fp.MinX) / 2
		halfZ := (fp.MaxZ - fp.MinZ) / 2
		if halfX <= 0 || halfZ <= 0 || height <= 0 {
			continue
		}
		bound := halfX
		if halfZ > bound {
			bound = halfZ
		}
		if height > bound {
			bound = height
		}

		lights = append(lights, volumetric.LightRecord{
			Position:  [3]float32{fp.MinX + halfX, height, fp.MinZ + halfZ},
			Radius:    bound,
			Extent:    [3]float32{halfX, height, halfZ},
			Color:     [3]float32{0.95, 0.85, 0.6},
			Intensity: cfg.GroundLightMinIntensity + span*rng.Float32(),
			Shape:     volumetric.LightShapeBox,
		})
	}
	return lights
}

// clearsFootprints reports whether (x, z) is at least clearance away from
// every footprint rectangle.
func clearsFootprints(x, z float32, footprints []Footprint, clearance float32) bool {
	for _, fp := range footprints {
		if x >= fp.MinX-clearance && x <= fp.MaxX+clearance &&
			z >= fp.MinZ-clearance && z <= fp.MaxZ+clearance {
			return false
		}
	}
	return true
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
