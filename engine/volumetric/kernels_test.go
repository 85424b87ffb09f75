package volumetric

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/haze-go/common"
)

const kernelEpsilon = 1e-5

func closeEnough(a, b float32) bool {
	return math.Abs(float64(a-b)) <= kernelEpsilon
}

func TestHaltonSequence(t *testing.T) {
	cases := []struct {
		index, base uint32
		want        float32
	}{
		{1, 2, 0.5},
		{2, 2, 0.25},
		{3, 2, 0.75},
		{4, 2, 0.125},
		{1, 3, 1.0 / 3.0},
		{2, 3, 2.0 / 3.0},
		{3, 3, 1.0 / 9.0},
	}
	for _, c := range cases {
		if got := Halton(c.index, c.base); !closeEnough(got, c.want) {
			t.Fatalf("Halton(%d, %d) = %g, want %g", c.index, c.base, got, c.want)
		}
	}
	if got := Halton(0, 2); got != 0 {
		t.Fatalf("Halton(0, 2) = %g, want 0", got)
	}
}

func TestHenyeyGreensteinIsotropic(t *testing.T) {
	want := float32(1.0 / (4.0 * math.Pi))
	for _, cosTheta := range []float32{-1, -0.5, 0, 0.5, 1} {
		if got := HenyeyGreenstein(cosTheta, 0); !closeEnough(got, want) {
			t.Fatalf("HenyeyGreenstein(%g, 0) = %g, want %g", cosTheta, got, want)
		}
	}
}

func TestHenyeyGreensteinForwardScattering(t *testing.T) {
	forward := HenyeyGreenstein(1, 0.7)
	backward := HenyeyGreenstein(-1, 0.7)
	if forward <= backward {
		t.Fatalf("g=0.7 should favor forward scattering: forward %g, backward %g", forward, backward)
	}
}

func TestAccumulateDensityOrderIndependent(t *testing.T) {
	volumes := []GPUDensityVolume{
		{Center: [3]float32{0, 0, 0}, HalfExtent: [3]float32{10, 10, 10}, Density: 0.5, Falloff: 1},
		{Center: [3]float32{2, 1, -1}, HalfExtent: [3]float32{5, 5, 5}, Density: 1.2, Falloff: 2},
		{Center: [3]float32{-3, 0, 2}, HalfExtent: [3]float32{8, 4, 8}, Density: 0.3, Falloff: 0.5},
	}
	reversed := []GPUDensityVolume{volumes[2], volumes[1], volumes[0]}
	p := [3]float32{1, 0.5, 0}

	a := AccumulateDensity(0.02, volumes, p)
	b := AccumulateDensity(0.02, reversed, p)
	if !closeEnough(a, b) {
		t.Fatalf("injection order changed the field: %g vs %g", a, b)
	}
	if a <= 0.02 {
		t.Fatalf("expected volumes to add density above the base, got %g", a)
	}
}

func TestAccumulateDensityOutsideVolume(t *testing.T) {
	volumes := []GPUDensityVolume{
		{Center: [3]float32{0, 0, 0}, HalfExtent: [3]float32{1, 1, 1}, Density: 5, Falloff: 1},
	}
	got := AccumulateDensity(0.1, volumes, [3]float32{3, 0, 0})
	if !closeEnough(got, 0.1) {
		t.Fatalf("point outside the volume should see only base density, got %g", got)
	}
}

func TestAccumulateDensityNeverNegative(t *testing.T) {
	volumes := []GPUDensityVolume{
		{Center: [3]float32{0, 0, 0}, HalfExtent: [3]float32{1, 1, 1}, Density: -10, Falloff: 1},
	}
	if got := AccumulateDensity(0.01, volumes, [3]float32{0, 0, 0}); got != 0 {
		t.Fatalf("negative contributions must clamp to zero, got %g", got)
	}
}

func TestLightRadianceSphereFalloff(t *testing.T) {
	lights := []GPULight{
		{Position: [3]float32{0, 0, 0}, Radius: 10, Color: [3]float32{1, 0.5, 0.25}, Intensity: 2},
	}

	center := LightRadiance(lights, [3]float32{0, 0, 0}, 1, 1, 1, [3]float32{}, 0)
	if !closeEnough(center[0], 2) || !closeEnough(center[1], 1) || !closeEnough(center[2], 0.5) {
		t.Fatalf("at the light center attenuation should be 1, got %v", center)
	}

	mid := LightRadiance(lights, [3]float32{5, 0, 0}, 1, 1, 1, [3]float32{}, 0)
	if mid[0] >= center[0] || mid[0] <= 0 {
		t.Fatalf("radiance should fall off with distance: center %g, mid %g", center[0], mid[0])
	}

	outside := LightRadiance(lights, [3]float32{11, 0, 0}, 1, 1, 1, [3]float32{}, 0)
	if outside != ([3]float32{}) {
		t.Fatalf("outside the radius radiance should be zero, got %v", outside)
	}
}

func TestLightRadianceSkyTerm(t *testing.T) {
	got := LightRadiance(nil, [3]float32{100, 0, 0}, 1, 1, 1, [3]float32{0.2, 0.3, 0.5}, 2)
	want := [3]float32{0.4, 0.6, 1.0}
	for i := 0; i < 3; i++ {
		if !closeEnough(got[i], want[i]) {
			t.Fatalf("sky term channel %d = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestLightRadianceBoxLight(t *testing.T) {
	lights := []GPULight{
		{Position: [3]float32{0, 0, 0}, Radius: -5, Extent: [3]float32{4, 2, 4}, Color: [3]float32{1, 1, 1}, Intensity: 1},
	}
	inside := LightRadiance(lights, [3]float32{0, 0, 0}, 1, 1, 1, [3]float32{}, 0)
	if inside[0] <= 0 {
		t.Fatalf("box light should contribute at its center, got %v", inside)
	}
	outside := LightRadiance(lights, [3]float32{5, 0, 0}, 1, 1, 1, [3]float32{}, 0)
	if outside != ([3]float32{}) {
		t.Fatalf("box light should not reach past its extents, got %v", outside)
	}
}

func TestMarchRayNoLight(t *testing.T) {
	samples := []RaySample{
		{Density: 0.1, Length: 2},
		{Density: 0.5, Length: 1},
		{Density: 0.05, Length: 4},
	}
	scatter, trans := MarchRay(samples, 0.9, 0.25, [3]float32{1, 1, 1})

	if scatter != ([3]float32{}) {
		t.Fatalf("unlit fog must not scatter, got %v", scatter)
	}
	var opticalDepth float32
	for _, s := range samples {
		opticalDepth += s.Density * s.Length
	}
	want := float32(math.Exp(float64(-opticalDepth)))
	if !closeEnough(trans, want) {
		t.Fatalf("transmittance = %g, want exp(-%g) = %g", trans, opticalDepth, want)
	}
}

func TestMarchRayVacuum(t *testing.T) {
	samples := []RaySample{
		{Density: 0, Light: [3]float32{10, 10, 10}, Length: 5},
	}
	scatter, trans := MarchRay(samples, 1, 1, [3]float32{1, 1, 1})
	if scatter != ([3]float32{}) {
		t.Fatalf("a vacuum step must not scatter, got %v", scatter)
	}
	if trans != 1 {
		t.Fatalf("a vacuum step must not attenuate, got %g", trans)
	}
}

func TestMarchRayScattersLitFog(t *testing.T) {
	samples := []RaySample{
		{Density: 0.2, Light: [3]float32{1, 1, 1}, Length: 2},
		{Density: 0.2, Light: [3]float32{1, 1, 1}, Length: 2},
	}
	scatter, trans := MarchRay(samples, 0.9, 0.25, [3]float32{1, 0.8, 0.6})

	if scatter[0] <= 0 || scatter[1] <= 0 || scatter[2] <= 0 {
		t.Fatalf("lit fog should scatter on every channel, got %v", scatter)
	}
	if scatter[0] <= scatter[1] || scatter[1] <= scatter[2] {
		t.Fatalf("scatter should follow the fog tint ordering, got %v", scatter)
	}
	if trans >= 1 || trans <= 0 {
		t.Fatalf("transmittance should be in (0, 1), got %g", trans)
	}
}

func TestBlendHistory(t *testing.T) {
	current := [4]float32{1, 2, 3, 0.5}
	history := [4]float32{3, 2, 1, 0.9}

	if got := BlendHistory(current, history, 0.9, false); got != current {
		t.Fatalf("invalid history must pass current through, got %v", got)
	}
	if got := BlendHistory(current, history, 0, true); got != current {
		t.Fatalf("alpha 0 must pass current through, got %v", got)
	}

	got := BlendHistory(current, history, 0.75, true)
	for i := 0; i < 4; i++ {
		want := history[i]*0.75 + current[i]*0.25
		if !closeEnough(got[i], want) {
			t.Fatalf("channel %d = %g, want %g", i, got[i], want)
		}
	}
}

func TestResolveTransmittance(t *testing.T) {
	if got := ResolveTransmittance(0.1, 0.3, 0); !closeEnough(got, 0.1) {
		t.Fatalf("mix 0 must return the raw value, got %g", got)
	}
	if got := ResolveTransmittance(0.1, 0.3, 1); !closeEnough(got, 0.3) {
		t.Fatalf("mix 1 must return the floored value, got %g", got)
	}
	if got := ResolveTransmittance(0.5, 0.3, 1); !closeEnough(got, 0.5) {
		t.Fatalf("values above the floor pass through, got %g", got)
	}
	if got := ResolveTransmittance(0.1, 0.3, 0.5); !closeEnough(got, 0.2) {
		t.Fatalf("mix 0.5 blends raw and floored, got %g", got)
	}
}

func TestBuildClusterTable(t *testing.T) {
	cells := []ClusterCell{
		{Min: [3]float32{0, 0, 0}, Max: [3]float32{10, 10, 10}},
		{Min: [3]float32{10, 0, 0}, Max: [3]float32{20, 10, 10}},
		{Min: [3]float32{100, 0, 0}, Max: [3]float32{110, 10, 10}},
	}
	lights := []GPULight{
		{Position: [3]float32{5, 5, 5}, Radius: 3},
		{Position: [3]float32{10, 5, 5}, Radius: 2},
		{Position: [3]float32{200, 5, 5}, Radius: 1},
	}

	offsets, counts, indices, overflow := BuildClusterTable(cells, lights, 1, 100)
	if overflow {
		t.Fatal("unexpected overflow")
	}
	if counts[0] != 2 {
		t.Fatalf("cell 0 should hold lights 0 and 1, got count %d", counts[0])
	}
	if counts[1] != 1 || indices[offsets[1]] != 1 {
		t.Fatalf("cell 1 should hold only light 1, got count %d", counts[1])
	}
	if counts[2] != 0 {
		t.Fatalf("cell 2 is out of reach of every light, got count %d", counts[2])
	}
}

func TestBuildClusterTableRadiusScale(t *testing.T) {
	cells := []ClusterCell{
		{Min: [3]float32{10, 0, 0}, Max: [3]float32{20, 10, 10}},
	}
	lights := []GPULight{
		{Position: [3]float32{0, 5, 5}, Radius: 5},
	}

	_, counts, _, _ := BuildClusterTable(cells, lights, 1, 100)
	if counts[0] != 0 {
		t.Fatalf("light should not reach the cell unscaled, got count %d", counts[0])
	}
	_, counts, _, _ = BuildClusterTable(cells, lights, 3, 100)
	if counts[0] != 1 {
		t.Fatalf("scaled radius should reach the cell, got count %d", counts[0])
	}
}

func TestBuildClusterTableOverflow(t *testing.T) {
	cells := []ClusterCell{
		{Min: [3]float32{-1, -1, -1}, Max: [3]float32{1, 1, 1}},
		{Min: [3]float32{1, -1, -1}, Max: [3]float32{3, 1, 1}},
	}
	lights := make([]GPULight, 4)
	for i := range lights {
		lights[i] = GPULight{Position: [3]float32{0, 0, 0}, Radius: 50}
	}

	offsets, counts, indices, overflow := BuildClusterTable(cells, lights, 1, 3)
	if !overflow {
		t.Fatal("expected the index table to overflow")
	}
	if len(indices) != 3 {
		t.Fatalf("index table must stay capped at 3 entries, got %d", len(indices))
	}
	if counts[0] != 3 {
		t.Fatalf("cell 0 should keep the entries that fit, got count %d", counts[0])
	}
	if counts[1] != 0 {
		t.Fatalf("cell 1 past the cap must receive zero entries, got count %d", counts[1])
	}
	if offsets[1] != 3 {
		t.Fatalf("cell 1 offset should sit at the cap, got %d", offsets[1])
	}
}

func TestMarchLimitStopsAtSceneDepth(t *testing.T) {
	// Camera at the origin looking down -Z with a wall 50 units out. The
	// march limit recovered from the wall's projected depth must be the
	// distance to the wall, not the far plane.
	near, far := float32(0.5), float32(250.0)
	var view, proj, viewProj, invViewProj [16]float32
	common.LookAt(view[:], 0, 0, 0, 0, 0, -1, 0, 1, 0)
	common.Perspective(proj[:], float32(math.Pi/3), 16.0/9.0, near, far)
	common.Mul4(viewProj[:], proj[:], view[:])
	if !common.Invert4(invViewProj[:], viewProj[:]) {
		t.Fatal("view-projection should be invertible")
	}

	wall := [4]float32{0, 0, -50, 1}
	var clip [4]float32
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			clip[row] += viewProj[col*4+row] * wall[col]
		}
	}
	depth := clip[2] / clip[3]

	got := MarchLimit(clip[0]/clip[3], clip[1]/clip[3], depth, far, invViewProj[:], [3]float32{0, 0, 0})
	if math.Abs(float64(got-50)) > 0.05 {
		t.Fatalf("march limit = %g, want ~50", got)
	}
}

func TestMarchLimitOpenSky(t *testing.T) {
	var ident [16]float32
	common.Identity(ident[:])

	if got := MarchLimit(0, 0, 1, 250, ident[:], [3]float32{}); got != 250 {
		t.Fatalf("cleared depth must march to the far plane, got %g", got)
	}
	if got := MarchLimit(0, 0, 1.5, 250, ident[:], [3]float32{}); got != 250 {
		t.Fatalf("depth past the clear value must march to the far plane, got %g", got)
	}
}
