package volumetric

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPU-side capacity constants. These bound the storage buffers the streamer
// publishes into; the CPU-side registries enforce the same limits so an
// overflow is rejected before it can reach the GPU.
const (
	// MaxLights is the capacity of the volumetric light table.
	MaxLights = 1024

	// MaxDensityVolumes is the capacity of the density volume table.
	MaxDensityVolumes = 2048

	// MaxClusterEntries is the capacity of the flat cluster light index table
	// shared by every cluster cell.
	MaxClusterEntries = 512 * 1024

	// ClusterCellSize is the world-space edge length of one cluster cell used
	// by the light assignment pass.
	ClusterCellSize = 4.0
)

// GPULight is the GPU-aligned representation of a single volumetric light.
// Size: 48 bytes (std430 / WGSL aligned).
//
// The sign of Radius encodes the light's shape: positive for a sphere of that
// radius, negative for a box whose half extents are in Extent. Box lights keep
// abs(Radius) as their influence bound for clustering.
type GPULight struct {
	Position  [3]float32 // offset  0: world-space center
	Radius    float32    // offset 12: sphere radius, or negative for box shape
	Color     [3]float32 // offset 16: RGB color
	Intensity float32    // offset 28: scalar radiance multiplier
	Extent    [3]float32 // offset 32: box half extents (unused for spheres)
	_pad      uint32     // offset 44: padding to 48-byte alignment
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, 48)
	putF32(buf, 0, g.Position[0])
	putF32(buf, 4, g.Position[1])
	putF32(buf, 8, g.Position[2])
	putF32(buf, 12, g.Radius)
	putF32(buf, 16, g.Color[0])
	putF32(buf, 20, g.Color[1])
	putF32(buf, 24, g.Color[2])
	putF32(buf, 28, g.Intensity)
	putF32(buf, 32, g.Extent[0])
	putF32(buf, 36, g.Extent[1])
	putF32(buf, 40, g.Extent[2])
	binary.LittleEndian.PutUint32(buf[44:48], 0) // padding
	return buf
}

// GPUDensityVolume is the GPU-aligned representation of a box-shaped density
// volume injected additively into the density field.
// Size: 32 bytes (std430 / WGSL aligned).
type GPUDensityVolume struct {
	Center     [3]float32 // offset  0: world-space box center
	Density    float32    // offset 12: extinction added inside the box
	HalfExtent [3]float32 // offset 16: box half extents
	Falloff    float32    // offset 28: edge softening exponent
}

// Size returns the size of the GPUDensityVolume struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUDensityVolume) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUDensityVolume struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPUDensityVolume) Marshal() []byte {
	buf := make([]byte, 32)
	putF32(buf, 0, g.Center[0])
	putF32(buf, 4, g.Center[1])
	putF32(buf, 8, g.Center[2])
	putF32(buf, 12, g.Density)
	putF32(buf, 16, g.HalfExtent[0])
	putF32(buf, 20, g.HalfExtent[1])
	putF32(buf, 24, g.HalfExtent[2])
	putF32(buf, 28, g.Falloff)
	return buf
}

// GPUConstants is the per-frame uniform block shared by every volumetric pass.
// Matches the WGSL VolumetricConstants struct layout exactly.
// Size: 352 bytes (three mat4x4 plus ten vec4-aligned rows).
type GPUConstants struct {
	ViewProjection     [16]float32 // offset   0: current view-projection, column-major
	InverseViewProj    [16]float32 // offset  64: inverse of ViewProjection
	PrevViewProjection [16]float32 // offset 128: previous frame's view-projection

	CameraPosition [3]float32 // offset 192: world-space camera position
	FrameIndex     uint32     // offset 204: monotonically increasing frame counter

	PrevCameraPosition [3]float32 // offset 208: previous frame's camera position
	LightCount         uint32     // offset 220: enabled lights this frame

	GridDims           [3]uint32 // offset 224: froxel grid dimensions
	DensityVolumeCount uint32    // offset 236: enabled density volumes this frame

	NearPlane float32 // offset 240
	FarPlane  float32 // offset 244
	JitterX   float32 // offset 248: Halton(2) offset for this frame
	JitterY   float32 // offset 252: Halton(3) offset for this frame

	FogColor       [3]float32 // offset 256
	BaseFogDensity float32    // offset 268

	FogAlbedo       float32 // offset 272
	PhaseAnisotropy float32 // offset 276
	IntensityScale  float32 // offset 280
	RadiusScale     float32 // offset 284

	AttenuationFalloff float32 // offset 288
	StepSizeMultiplier float32 // offset 292
	JitterAmount       float32 // offset 296
	TemporalBlend      float32 // offset 300: forced to 0 the frame after a resource recreation

	ScatteringMultiplier float32 // offset 304
	TransmittanceFloor   float32 // offset 308
	TransmittanceMix     float32 // offset 312
	HistoryValid         uint32  // offset 316: 0 the first frame after history reset

	SkyLightColor     [3]float32 // offset 320
	SkyLightIntensity float32    // offset 332

	RaymarchSteps       uint32 // offset 336: samples per ray in the march pass
	_pad0, _pad1, _pad2 uint32 // offset 340: padding to 352-byte alignment
}

// Size returns the size of the GPUConstants struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (352)
func (g *GPUConstants) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUConstants struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 352-byte buffer ready for GPU upload
func (g *GPUConstants) Marshal() []byte {
	buf := make([]byte, 352)
	off := 0
	for _, m := range [][16]float32{g.ViewProjection, g.InverseViewProj, g.PrevViewProjection} {
		for _, f := range m {
			putF32(buf, off, f)
			off += 4
		}
	}
	putF32(buf, 192, g.CameraPosition[0])
	putF32(buf, 196, g.CameraPosition[1])
	putF32(buf, 200, g.CameraPosition[2])
	binary.LittleEndian.PutUint32(buf[204:208], g.FrameIndex)
	putF32(buf, 208, g.PrevCameraPosition[0])
	putF32(buf, 212, g.PrevCameraPosition[1])
	putF32(buf, 216, g.PrevCameraPosition[2])
	binary.LittleEndian.PutUint32(buf[220:224], g.LightCount)
	binary.LittleEndian.PutUint32(buf[224:228], g.GridDims[0])
	binary.LittleEndian.PutUint32(buf[228:232], g.GridDims[1])
	binary.LittleEndian.PutUint32(buf[232:236], g.GridDims[2])
	binary.LittleEndian.PutUint32(buf[236:240], g.DensityVolumeCount)
	putF32(buf, 240, g.NearPlane)
	putF32(buf, 244, g.FarPlane)
	putF32(buf, 248, g.JitterX)
	putF32(buf, 252, g.JitterY)
	putF32(buf, 256, g.FogColor[0])
	putF32(buf, 260, g.FogColor[1])
	putF32(buf, 264, g.FogColor[2])
	putF32(buf, 268, g.BaseFogDensity)
	putF32(buf, 272, g.FogAlbedo)
	putF32(buf, 276, g.PhaseAnisotropy)
	putF32(buf, 280, g.IntensityScale)
	putF32(buf, 284, g.RadiusScale)
	putF32(buf, 288, g.AttenuationFalloff)
	putF32(buf, 292, g.StepSizeMultiplier)
	putF32(buf, 296, g.JitterAmount)
	putF32(buf, 300, g.TemporalBlend)
	putF32(buf, 304, g.ScatteringMultiplier)
	putF32(buf, 308, g.TransmittanceFloor)
	putF32(buf, 312, g.TransmittanceMix)
	binary.LittleEndian.PutUint32(buf[316:320], g.HistoryValid)
	putF32(buf, 320, g.SkyLightColor[0])
	putF32(buf, 324, g.SkyLightColor[1])
	putF32(buf, 328, g.SkyLightColor[2])
	putF32(buf, 332, g.SkyLightIntensity)
	binary.LittleEndian.PutUint32(buf[336:340], g.RaymarchSteps)
	return buf
}

// putF32 writes a float32 into buf at the given byte offset, little-endian.
func putF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
}
