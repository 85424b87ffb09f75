package volumetric

import "math"

// CPU reference implementations of the per-cell math performed by the compute
// passes. The WGSL kernels in assets/ follow these functions step for step;
// keeping them in Go makes the pipeline's numeric behavior testable without a
// GPU device.

// Halton returns element index of the Halton low-discrepancy sequence in the
// given base, in [0, 1). Bases 2 and 3 drive the per-frame ray start jitter.
//
// Parameters:
//   - index: the sequence element (the frame counter)
//   - base: the radical inverse base (2 or 3 in practice)
//
// Returns:
//   - float32: the sequence value in [0, 1)
func Halton(index, base uint32) float32 {
	f := float32(1)
	r := float32(0)
	for index > 0 {
		f /= float32(base)
		r += f * float32(index%base)
		index /= base
	}
	return r
}

// HenyeyGreenstein evaluates the Henyey-Greenstein phase function.
//
// Parameters:
//   - cosTheta: cosine of the angle between the light and view directions
//   - g: the anisotropy parameter in [-1, 1]
//
// Returns:
//   - float32: the phase function value
func HenyeyGreenstein(cosTheta, g float32) float32 {
	g2 := g * g
	denom := 1 + g2 - 2*g*cosTheta
	if denom < 1e-6 {
		denom = 1e-6
	}
	return float32(1.0 / (4.0 * math.Pi) * float64((1-g2)/(denom*float32(math.Sqrt(float64(denom))))))
}

// AccumulateDensity returns the extinction at a world-space point: the base
// fog density plus the additive contribution of every density volume. The sum
// is order-independent, so injection order never changes the field.
//
// Parameters:
//   - base: the homogeneous base fog density
//   - volumes: the enabled density volumes
//   - p: the world-space sample point
//
// Returns:
//   - float32: the total extinction at p, never negative
func AccumulateDensity(base float32, volumes []GPUDensityVolume, p [3]float32) float32 {
	total := base
	for i := range volumes {
		total += densityVolumeContribution(&volumes[i], p)
	}
	if total < 0 {
		total = 0
	}
	return total
}

// densityVolumeContribution returns one volume's additive density at p. Inside
// the box the contribution fades toward the faces by the falloff exponent;
// outside it is zero.
func densityVolumeContribution(v *GPUDensityVolume, p [3]float32) float32 {
	edge := float32(1)
	for axis := 0; axis < 3; axis++ {
		if v.HalfExtent[axis] <= 0 {
			return 0
		}
		d := absF32(p[axis]-v.Center[axis]) / v.HalfExtent[axis]
		if d >= 1 {
			return 0
		}
		edge *= 1 - d
	}
	if v.Falloff > 0 {
		edge = float32(math.Pow(float64(edge), float64(v.Falloff)))
	}
	return v.Density * edge
}

// LightRadiance returns the in-scattered radiance arriving at a world-space
// point from every enabled light plus the constant sky term. Radius and
// intensity scales are applied here, matching the light injection pass.
//
// Parameters:
//   - lights: the enabled lights
//   - p: the world-space sample point
//   - intensityScale: multiplier on every light's intensity
//   - radiusScale: multiplier on every light's influence radius
//   - falloff: the attenuation exponent applied to normalized distance
//   - skyColor: the constant ambient sky color
//   - skyIntensity: the sky color's scalar multiplier
//
// Returns:
//   - [3]float32: accumulated RGB radiance at p
func LightRadiance(lights []GPULight, p [3]float32, intensityScale, radiusScale, falloff float32, skyColor [3]float32, skyIntensity float32) [3]float32 {
	out := [3]float32{
		skyColor[0] * skyIntensity,
		skyColor[1] * skyIntensity,
		skyColor[2] * skyIntensity,
	}
	for i := range lights {
		l := &lights[i]
		att := lightAttenuation(l, p, radiusScale, falloff)
		if att <= 0 {
			continue
		}
		w := att * l.Intensity * intensityScale
		out[0] += l.Color[0] * w
		out[1] += l.Color[1] * w
		out[2] += l.Color[2] * w
	}
	return out
}

// lightAttenuation returns the distance falloff factor of one light at p.
// Sphere lights (positive radius) attenuate by (1 - d/r)^falloff. Box lights
// (negative radius) attenuate per axis inside their extents the same way
// density volumes soften toward their faces.
func lightAttenuation(l *GPULight, p [3]float32, radiusScale, falloff float32) float32 {
	if l.Radius > 0 {
		r := l.Radius * radiusScale
		dx := p[0] - l.Position[0]
		dy := p[1] - l.Position[1]
		dz := p[2] - l.Position[2]
		d := float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
		if d >= r {
			return 0
		}
		return float32(math.Pow(float64(1-d/r), float64(falloff)))
	}

	// Box light: sign of Radius flags the shape, extents carry the bounds.
	edge := float32(1)
	for axis := 0; axis < 3; axis++ {
		half := l.Extent[axis] * radiusScale
		if half <= 0 {
			return 0
		}
		d := absF32(p[axis]-l.Position[axis]) / half
		if d >= 1 {
			return 0
		}
		edge *= 1 - d
	}
	return float32(math.Pow(float64(edge), float64(falloff)))
}

// RaySample is one step of a ray march: the extinction and in-scattered
// radiance sampled at the step's midpoint, and the step's world-space length.
type RaySample struct {
	Density float32
	Light   [3]float32
	Length  float32
}

// MarchRay integrates scattering and transmittance over a sampled ray from
// near to far. Per step, transmittance decays by exp(-density * length) and
// the in-scattered radiance is weighted by the energy-conserving analytic
// integral of the step, the medium albedo, the fog tint, and the phase value.
//
// With zero light at every sample the scattering output is exactly zero and
// the returned transmittance is exp(-Σ density·length).
//
// Parameters:
//   - samples: the ray's steps ordered near to far
//   - albedo: the medium's single-scattering albedo in [0, 1]
//   - phase: the phase function value for this ray (view-independent per ray here)
//   - fogColor: the RGB tint of the medium
//
// Returns:
//   - [3]float32: accumulated in-scattered RGB radiance
//   - float32: the ray's final transmittance in (0, 1]
func MarchRay(samples []RaySample, albedo, phase float32, fogColor [3]float32) ([3]float32, float32) {
	scatter := [3]float32{}
	transmittance := float32(1)

	for i := range samples {
		s := &samples[i]
		sigma := s.Density
		stepTrans := float32(math.Exp(float64(-sigma * s.Length)))

		// Analytic integration of in-scatter across the step: the factor
		// (1 - stepTrans) conserves energy regardless of step length.
		if sigma > 0 {
			w := transmittance * (1 - stepTrans) * albedo * phase
			scatter[0] += s.Light[0] * fogColor[0] * w
			scatter[1] += s.Light[1] * fogColor[1] * w
			scatter[2] += s.Light[2] * fogColor[2] * w
		}
		transmittance *= stepTrans
	}
	return scatter, transmittance
}

// MarchLimit returns the world-space distance at which a ray stops marching:
// the distance to the opaque surface recorded in the scene depth buffer, or
// the far plane when the depth is cleared (open sky). The surface point is
// reconstructed by unprojecting the NDC position at the sampled depth.
//
// Parameters:
//   - ndcX, ndcY: the ray's screen position in NDC
//   - depth: the sampled scene depth in [0, 1]; 1 means nothing was drawn
//   - far: the far plane distance, the march's upper bound
//   - invViewProj: the inverse view-projection matrix, column-major
//   - cameraPos: the world-space camera position
//
// Returns:
//   - float32: the clamped march distance in (0, far]
func MarchLimit(ndcX, ndcY, depth, far float32, invViewProj []float32, cameraPos [3]float32) float32 {
	if depth >= 1 {
		return far
	}

	var clip [4]float32
	in := [4]float32{ndcX, ndcY, depth, 1}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			clip[row] += invViewProj[col*4+row] * in[col]
		}
	}
	if clip[3] == 0 {
		return far
	}

	dx := clip[0]/clip[3] - cameraPos[0]
	dy := clip[1]/clip[3] - cameraPos[1]
	dz := clip[2]/clip[3] - cameraPos[2]
	dist := float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
	if dist < far {
		return dist
	}
	return far
}

// BlendHistory blends the current frame's scattering result with the
// reprojected history. alpha is the history weight: 0 returns current
// unchanged, MaxTemporalBlend retains almost all history. When historyValid is
// false the history is ignored entirely regardless of alpha.
//
// Parameters:
//   - current: this frame's RGBA result
//   - history: the reprojected previous result
//   - alpha: the history weight in [0, MaxTemporalBlend]
//   - historyValid: false on the first frame after a resource recreation
//
// Returns:
//   - [4]float32: the blended RGBA value
func BlendHistory(current, history [4]float32, alpha float32, historyValid bool) [4]float32 {
	if !historyValid || alpha <= 0 {
		return current
	}
	var out [4]float32
	for i := 0; i < 4; i++ {
		out[i] = history[i]*alpha + current[i]*(1-alpha)
	}
	return out
}

// ResolveTransmittance applies the composite stage's floor and mix controls to
// a raw transmittance value: the result blends between the raw value and its
// floored version, keeping dense fog from fully crushing the scene.
//
// Parameters:
//   - raw: the ray march transmittance in [0, 1]
//   - floor: the minimum transmittance allowed by the floored branch
//   - mix: the blend factor between raw (0) and floored (1)
//
// Returns:
//   - float32: the resolved transmittance
func ResolveTransmittance(raw, floor, mix float32) float32 {
	floored := raw
	if floored < floor {
		floored = floor
	}
	return raw*(1-mix) + floored*mix
}

// ClusterCell is the world-space AABB of one cluster cell.
type ClusterCell struct {
	Min [3]float32
	Max [3]float32
}

// BuildClusterTable assigns each light to every cluster cell its bounding
// sphere touches and produces the compact offset/count/index tables the light
// injection pass consumes. The index table is capped at maxEntries; cells past
// the cap receive zero counts and overflow is reported to the caller.
//
// Parameters:
//   - cells: the cluster cell bounds in cell order
//   - lights: the enabled lights
//   - radiusScale: multiplier on light influence radii
//   - maxEntries: capacity of the flat index table
//
// Returns:
//   - []uint32: per-cell offsets into the index table
//   - []uint32: per-cell light counts
//   - []uint32: the flat light index table
//   - bool: true if the index table overflowed and assignments were dropped
func BuildClusterTable(cells []ClusterCell, lights []GPULight, radiusScale float32, maxEntries int) ([]uint32, []uint32, []uint32, bool) {
	offsets := make([]uint32, len(cells))
	counts := make([]uint32, len(cells))
	indices := make([]uint32, 0, len(cells))
	overflow := false

	for ci := range cells {
		offsets[ci] = uint32(len(indices))
		for li := range lights {
			bound := absF32(lights[li].Radius) * radiusScale
			if !sphereTouchesAABB(lights[li].Position, bound, &cells[ci]) {
				continue
			}
			if len(indices) >= maxEntries {
				overflow = true
				break
			}
			indices = append(indices, uint32(li))
			counts[ci]++
		}
	}
	return offsets, counts, indices, overflow
}

// sphereTouchesAABB tests a sphere against a cell AABB by clamping the center
// to the box and comparing the squared distance to the squared radius.
func sphereTouchesAABB(center [3]float32, radius float32, cell *ClusterCell) bool {
	var distSq float32
	for axis := 0; axis < 3; axis++ {
		c := center[axis]
		if c < cell.Min[axis] {
			d := cell.Min[axis] - c
			distSq += d * d
		} else if c > cell.Max[axis] {
			d := c - cell.Max[axis]
			distSq += d * d
		}
	}
	return distSq <= radius*radius
}
