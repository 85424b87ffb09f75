package volumetric

import (
	"encoding/binary"
	"math"
	"testing"
)

func f32At(t *testing.T, buf []byte, off int) float32 {
	t.Helper()
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
}

func u32At(t *testing.T, buf []byte, off int) uint32 {
	t.Helper()
	return binary.LittleEndian.Uint32(buf[off : off+4])
}

func TestGPULightMarshalLayout(t *testing.T) {
	l := GPULight{
		Position:  [3]float32{1, 2, 3},
		Radius:    -4,
		Color:     [3]float32{0.1, 0.2, 0.3},
		Intensity: 5,
		Extent:    [3]float32{6, 7, 8},
	}
	buf := l.Marshal()

	if len(buf) != l.Size() || len(buf) != 48 {
		t.Fatalf("light entry must be 48 bytes, got %d (Size %d)", len(buf), l.Size())
	}
	if got := f32At(t, buf, 0); got != 1 {
		t.Fatalf("position.x at offset 0 = %g", got)
	}
	if got := f32At(t, buf, 12); got != -4 {
		t.Fatalf("radius at offset 12 = %g", got)
	}
	if got := f32At(t, buf, 28); got != 5 {
		t.Fatalf("intensity at offset 28 = %g", got)
	}
	if got := f32At(t, buf, 40); got != 7 {
		t.Fatalf("extent.y at offset 40 = %g", got)
	}
}

func TestGPUDensityVolumeMarshalLayout(t *testing.T) {
	v := GPUDensityVolume{
		Center:     [3]float32{1, 2, 3},
		Density:    4,
		HalfExtent: [3]float32{5, 6, 7},
		Falloff:    8,
	}
	buf := v.Marshal()

	if len(buf) != v.Size() || len(buf) != 32 {
		t.Fatalf("volume entry must be 32 bytes, got %d (Size %d)", len(buf), v.Size())
	}
	if got := f32At(t, buf, 12); got != 4 {
		t.Fatalf("density at offset 12 = %g", got)
	}
	if got := f32At(t, buf, 28); got != 8 {
		t.Fatalf("falloff at offset 28 = %g", got)
	}
}

func TestGPUConstantsMarshalLayout(t *testing.T) {
	g := GPUConstants{
		CameraPosition: [3]float32{1, 2, 3},
		FrameIndex:     9,
		LightCount:     11,
		GridDims:       [3]uint32{160, 96, 160},
		NearPlane:      0.5,
		FarPlane:       250,
		TemporalBlend:  0.9,
		HistoryValid:   1,
		RaymarchSteps:  80,
	}
	g.ViewProjection[0] = 1.5
	g.PrevViewProjection[15] = 2.5
	buf := g.Marshal()

	if len(buf) != g.Size() || len(buf) != 352 {
		t.Fatalf("constants block must be 352 bytes, got %d (Size %d)", len(buf), g.Size())
	}
	if got := f32At(t, buf, 0); got != 1.5 {
		t.Fatalf("view_proj[0] at offset 0 = %g", got)
	}
	if got := f32At(t, buf, 128+15*4); got != 2.5 {
		t.Fatalf("prev_view_proj[15] at offset 188 = %g", got)
	}
	if got := u32At(t, buf, 204); got != 9 {
		t.Fatalf("frame index at offset 204 = %d", got)
	}
	if got := u32At(t, buf, 220); got != 11 {
		t.Fatalf("light count at offset 220 = %d", got)
	}
	if got := u32At(t, buf, 228); got != 96 {
		t.Fatalf("grid height at offset 228 = %d", got)
	}
	if got := f32At(t, buf, 244); got != 250 {
		t.Fatalf("far plane at offset 244 = %g", got)
	}
	if got := f32At(t, buf, 300); got != float32(0.9) {
		t.Fatalf("temporal blend at offset 300 = %g", got)
	}
	if got := u32At(t, buf, 316); got != 1 {
		t.Fatalf("history valid at offset 316 = %d", got)
	}
	if got := u32At(t, buf, 336); got != 80 {
		t.Fatalf("raymarch steps at offset 336 = %d", got)
	}
}
