package volumetric

import "fmt"

// Default tunable values applied by NewConfig before any file is loaded.
// These are chosen for a city-scale scene at night: a moderately dense grid,
// light fog, and strong forward scattering.
const (
	// DefaultGridWidth is the default froxel grid width in cells.
	DefaultGridWidth = 160

	// DefaultGridHeight is the default froxel grid height in cells.
	DefaultGridHeight = 96

	// DefaultGridDepth is the default froxel grid depth in cells (slices along the view ray).
	DefaultGridDepth = 160

	// DefaultNearPlane is the default distance of the first froxel slice in world units.
	DefaultNearPlane = 0.5

	// DefaultFarPlane is the default distance of the last froxel slice in world units.
	DefaultFarPlane = 250.0

	// DefaultBaseFogDensity is the default homogeneous extinction added to every froxel.
	DefaultBaseFogDensity = 0.015

	// DefaultPhaseAnisotropy is the default Henyey-Greenstein g parameter.
	// Positive values scatter forward, toward the viewer when lights are behind the fog.
	DefaultPhaseAnisotropy = 0.7

	// DefaultRaymarchSteps is the default number of samples taken along each ray.
	DefaultRaymarchSteps = 80

	// MaxTemporalBlend is the upper bound on the temporal history blend weight.
	// Values above this leave too little of the current frame in the output and the
	// volume never converges after lighting changes.
	MaxTemporalBlend = 0.95
)

// Config holds every tunable of the volumetric subsystem. It is a plain value
// type: snapshots published through a Store are never mutated after publication,
// so readers may hold a *Config across a frame without locking.
//
// Field groups mirror the stages that consume them: grid shape and range feed
// resource creation and the cluster pass, fog and phase terms feed injection and
// ray marching, temporal and post terms feed the reprojection and composite
// passes, and the ground-light bounds feed generation-time light placement.
type Config struct {
	// GridWidth, GridHeight, GridDepth are the froxel grid dimensions in cells.
	// Changing any of these requires recreating the 3D GPU resources.
	GridWidth  int `json:"width"`
	GridHeight int `json:"height"`
	GridDepth  int `json:"depth"`

	// NearPlane and FarPlane bound the world-space depth range covered by the grid.
	NearPlane float32 `json:"near"`
	FarPlane  float32 `json:"far"`

	// BaseFogDensity is the homogeneous extinction added to every cell before
	// density volumes are injected.
	BaseFogDensity float32 `json:"base_density"`

	// FogColor is the RGB tint of the medium, each channel in [0, 1].
	FogColor [3]float32 `json:"color"`

	// FogAlbedo is the single-scattering albedo of the medium in [0, 1].
	FogAlbedo float32 `json:"albedo"`

	// PhaseAnisotropy is the Henyey-Greenstein g parameter in [-1, 1].
	PhaseAnisotropy float32 `json:"phase_g"`

	// IntensityScale multiplies every light's intensity during injection. Must be > 0.
	IntensityScale float32 `json:"intensity_scale"`

	// RadiusScale multiplies every light's radius during injection. Must be > 0.
	RadiusScale float32 `json:"radius_scale"`

	// AttenuationFalloff is the exponent applied to normalized distance in the
	// light falloff curve. Must be > 0.
	AttenuationFalloff float32 `json:"attenuation_falloff"`

	// Ground-light placement bounds consumed by generation-time light seeding.
	GroundLightAttempts     int     `json:"attempts"`
	GroundLightMaxCount     int     `json:"max_count"`
	GroundLightMinClearance float32 `json:"min_clearance"`
	GroundLightMinHeight    float32 `json:"min_height"`
	GroundLightMaxHeight    float32 `json:"max_height"`
	GroundLightMinSize      float32 `json:"min_size"`
	GroundLightMaxSize      float32 `json:"max_size"`
	GroundLightMinIntensity float32 `json:"min_intensity"`
	GroundLightMaxIntensity float32 `json:"max_intensity"`

	// RaymarchSteps is the number of samples taken along each ray. Must be >= 1.
	RaymarchSteps int `json:"steps"`

	// StepSizeMultiplier scales the per-step advance during the march. Must be > 0.
	StepSizeMultiplier float32 `json:"step_size_multiplier"`

	// JitterAmount scales the per-frame ray start offset in [0, 1].
	JitterAmount float32 `json:"jitter_amount"`

	// TemporalBlend is the history weight of the reprojection pass in
	// [0, MaxTemporalBlend]. Zero disables temporal smoothing entirely.
	TemporalBlend float32 `json:"blend_alpha"`

	// ScatteringMultiplier scales the in-scattered radiance at composite time.
	ScatteringMultiplier float32 `json:"scattering_multiplier"`

	// TransmittanceFloor clamps how dark the fog may make the scene, in [0, 1].
	TransmittanceFloor float32 `json:"transmittance_floor"`

	// TransmittanceMix blends between raw and floored transmittance, in [0, 1].
	TransmittanceMix float32 `json:"transmittance_mix"`

	// SkyLightColor and SkyLightIntensity add a constant directional ambient
	// term to every froxel, independent of the streamed light set.
	SkyLightColor     [3]float32 `json:"sky_color"`
	SkyLightIntensity float32    `json:"sky_intensity"`

	// DebugLogging enables periodic per-frame stat output from the pipeline.
	DebugLogging bool `json:"debug"`
}

// NewConfig returns a Config populated with the package defaults. The result
// always passes Validate.
//
// Returns:
//   - Config: a fully defaulted configuration
func NewConfig() Config {
	return Config{
		GridWidth:               DefaultGridWidth,
		GridHeight:              DefaultGridHeight,
		GridDepth:               DefaultGridDepth,
		NearPlane:               DefaultNearPlane,
		FarPlane:                DefaultFarPlane,
		BaseFogDensity:          DefaultBaseFogDensity,
		FogColor:                [3]float32{0.6, 0.7, 0.85},
		FogAlbedo:               0.9,
		PhaseAnisotropy:         DefaultPhaseAnisotropy,
		IntensityScale:          1.0,
		RadiusScale:             1.0,
		AttenuationFalloff:      2.0,
		GroundLightAttempts:     4096,
		GroundLightMaxCount:     512,
		GroundLightMinClearance: 6.0,
		GroundLightMinHeight:    1.0,
		GroundLightMaxHeight:    3.5,
		GroundLightMinSize:      2.0,
		GroundLightMaxSize:      8.0,
		GroundLightMinIntensity: 1.5,
		GroundLightMaxIntensity: 6.0,
		RaymarchSteps:           DefaultRaymarchSteps,
		StepSizeMultiplier:      1.0,
		JitterAmount:            1.0,
		TemporalBlend:           0.9,
		ScatteringMultiplier:    1.0,
		TransmittanceFloor:      0.35,
		TransmittanceMix:        0.6,
		SkyLightColor:           [3]float32{0.1, 0.12, 0.2},
		SkyLightIntensity:       0.15,
		DebugLogging:            false,
	}
}

// Validate checks every field against its documented closed range. The first
// violation found is returned; a nil return means the whole config is usable.
//
// Returns:
//   - error: a description of the first out-of-range field, or nil
func (c *Config) Validate() error {
	if c.GridWidth < 1 || c.GridHeight < 1 || c.GridDepth < 1 {
		return fmt.Errorf("grid dimensions must be >= 1, got %dx%dx%d", c.GridWidth, c.GridHeight, c.GridDepth)
	}
	if c.NearPlane <= 0 {
		return fmt.Errorf("near plane must be > 0, got %g", c.NearPlane)
	}
	if c.FarPlane <= c.NearPlane {
		return fmt.Errorf("far plane must be > near plane, got near=%g far=%g", c.NearPlane, c.FarPlane)
	}
	if c.BaseFogDensity < 0 {
		return fmt.Errorf("base fog density must be >= 0, got %g", c.BaseFogDensity)
	}
	for i, ch := range c.FogColor {
		if ch < 0 || ch > 1 {
			return fmt.Errorf("fog color channel %d must be in [0, 1], got %g", i, ch)
		}
	}
	if c.FogAlbedo < 0 || c.FogAlbedo > 1 {
		return fmt.Errorf("fog albedo must be in [0, 1], got %g", c.FogAlbedo)
	}
	if c.PhaseAnisotropy < -1 || c.PhaseAnisotropy > 1 {
		return fmt.Errorf("phase anisotropy must be in [-1, 1], got %g", c.PhaseAnisotropy)
	}
	if c.IntensityScale <= 0 {
		return fmt.Errorf("intensity scale must be > 0, got %g", c.IntensityScale)
	}
	if c.RadiusScale <= 0 {
		return fmt.Errorf("radius scale must be > 0, got %g", c.RadiusScale)
	}
	if c.AttenuationFalloff <= 0 {
		return fmt.Errorf("attenuation falloff must be > 0, got %g", c.AttenuationFalloff)
	}
	if c.GroundLightAttempts < 1 {
		return fmt.Errorf("ground light attempts must be > 0, got %d", c.GroundLightAttempts)
	}
	if c.GroundLightMaxCount < 0 {
		return fmt.Errorf("ground light max count must be >= 0, got %d", c.GroundLightMaxCount)
	}
	if c.GroundLightMinClearance <= 0 {
		return fmt.Errorf("ground light min clearance must be > 0, got %g", c.GroundLightMinClearance)
	}
	if c.GroundLightMinHeight <= 0 || c.GroundLightMaxHeight < c.GroundLightMinHeight {
		return fmt.Errorf("ground light height range invalid: [%g, %g]", c.GroundLightMinHeight, c.GroundLightMaxHeight)
	}
	if c.GroundLightMinSize <= 0 || c.GroundLightMaxSize < c.GroundLightMinSize {
		return fmt.Errorf("ground light size range invalid: [%g, %g]", c.GroundLightMinSize, c.GroundLightMaxSize)
	}
	if c.GroundLightMinIntensity <= 0 || c.GroundLightMaxIntensity < c.GroundLightMinIntensity {
		return fmt.Errorf("ground light intensity range invalid: [%g, %g]", c.GroundLightMinIntensity, c.GroundLightMaxIntensity)
	}
	if c.RaymarchSteps < 1 {
		return fmt.Errorf("raymarch steps must be >= 1, got %d", c.RaymarchSteps)
	}
	if c.StepSizeMultiplier <= 0 {
		return fmt.Errorf("step size multiplier must be > 0, got %g", c.StepSizeMultiplier)
	}
	if c.JitterAmount < 0 || c.JitterAmount > 1 {
		return fmt.Errorf("jitter amount must be in [0, 1], got %g", c.JitterAmount)
	}
	if c.TemporalBlend < 0 || c.TemporalBlend > MaxTemporalBlend {
		return fmt.Errorf("temporal blend must be in [0, %g], got %g", float32(MaxTemporalBlend), c.TemporalBlend)
	}
	if c.ScatteringMultiplier < 0 {
		return fmt.Errorf("scattering multiplier must be >= 0, got %g", c.ScatteringMultiplier)
	}
	if c.TransmittanceFloor < 0 || c.TransmittanceFloor > 1 {
		return fmt.Errorf("transmittance floor must be in [0, 1], got %g", c.TransmittanceFloor)
	}
	if c.TransmittanceMix < 0 || c.TransmittanceMix > 1 {
		return fmt.Errorf("transmittance mix must be in [0, 1], got %g", c.TransmittanceMix)
	}
	for i, ch := range c.SkyLightColor {
		if ch < 0 || ch > 1 {
			return fmt.Errorf("sky light color channel %d must be in [0, 1], got %g", i, ch)
		}
	}
	if c.SkyLightIntensity < 0 {
		return fmt.Errorf("sky light intensity must be >= 0, got %g", c.SkyLightIntensity)
	}
	return nil
}

// GridEquals reports whether two configs describe the same froxel grid shape.
// Used by the watcher to flag GPU resource recreation.
//
// Parameters:
//   - other: the config to compare against
//
// Returns:
//   - bool: true when width, height, and depth all match
func (c *Config) GridEquals(other *Config) bool {
	return c.GridWidth == other.GridWidth &&
		c.GridHeight == other.GridHeight &&
		c.GridDepth == other.GridDepth
}
