package volumetric

import (
	"encoding/binary"
	"testing"

	"github.com/Carmen-Shannon/haze-go/common"
	"github.com/Carmen-Shannon/haze-go/engine/renderer"
	"github.com/Carmen-Shannon/haze-go/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/haze-go/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestGroups3RoundsUp(t *testing.T) {
	cases := []struct {
		dims      [3]uint32
		workgroup uint32
		want      [3]uint32
	}{
		{[3]uint32{160, 96, 160}, 4, [3]uint32{40, 24, 40}},
		{[3]uint32{161, 97, 1}, 4, [3]uint32{41, 25, 1}},
		{[3]uint32{1, 1, 1}, 4, [3]uint32{1, 1, 1}},
	}
	for _, c := range cases {
		if got := groups3(c.dims, c.workgroup); got != c.want {
			t.Fatalf("groups3(%v, %d) = %v, want %v", c.dims, c.workgroup, got, c.want)
		}
	}
}

func TestGroups2RoundsUp(t *testing.T) {
	if got := groups2(960, 540, 8); got != ([3]uint32{120, 68, 1}) {
		t.Fatalf("groups2(960, 540, 8) = %v", got)
	}
	if got := groups2(961, 544, 8); got != ([3]uint32{121, 68, 1}) {
		t.Fatalf("groups2(961, 544, 8) = %v", got)
	}
}

func TestPassLayoutsDeclareConstants(t *testing.T) {
	layouts := []struct {
		name    string
		entries int
		layout  func() int
	}{
		{"cluster build", 6, func() int { return len(ClusterBuildLayout().Entries) }},
		{"density injection", 3, func() int { return len(DensityInjectionLayout().Entries) }},
		{"light injection", 7, func() int { return len(LightInjectionLayout().Entries) }},
		{"ray march", 6, func() int { return len(RayMarchLayout().Entries) }},
		{"temporal", 6, func() int { return len(TemporalLayout().Entries) }},
		{"composite", 3, func() int { return len(CompositeLayout().Entries) }},
	}
	for _, l := range layouts {
		if got := l.layout(); got != l.entries {
			t.Fatalf("%s layout has %d entries, want %d", l.name, got, l.entries)
		}
	}
	if ClusterBuildLayout().Entries[0].Binding != bindingConstants {
		t.Fatal("every pass binds the frame constants at binding 0")
	}

	depthEntry := RayMarchLayout().Entries[5]
	if depthEntry.Binding != marchBindingSceneDepth {
		t.Fatalf("ray march depth binding = %d, want %d", depthEntry.Binding, marchBindingSceneDepth)
	}
	if depthEntry.Texture.SampleType != wgpu.TextureSampleTypeDepth {
		t.Fatal("ray march scene depth must bind as a depth texture")
	}
}

// fakeFrameRenderer satisfies renderer.Renderer without a GPU device so frame
// orchestration can run under test.
type fakeFrameRenderer struct{}

var _ renderer.Renderer = &fakeFrameRenderer{}

func (f *fakeFrameRenderer) Pipeline(key string) pipeline.Pipeline        { return nil }
func (f *fakeFrameRenderer) Pipelines() map[string]pipeline.Pipeline     { return nil }
func (f *fakeFrameRenderer) RegisterPipelines(...pipeline.Pipeline) error { return nil }
func (f *fakeFrameRenderer) SetPipeline(key string, p pipeline.Pipeline) {}
func (f *fakeFrameRenderer) SetPipelines(map[string]pipeline.Pipeline)   {}
func (f *fakeFrameRenderer) Resize(width, height int)                    {}
func (f *fakeFrameRenderer) InitMeshBuffers(bind_group_provider.BindGroupProvider, []byte, []byte, int) error {
	return nil
}
func (f *fakeFrameRenderer) InitBindGroup(bind_group_provider.BindGroupProvider, wgpu.BindGroupLayoutDescriptor, map[int]wgpu.BufferUsage, map[int]uint64) error {
	return nil
}
func (f *fakeFrameRenderer) InitTextureView(bind_group_provider.BindGroupProvider, int, common.TextureStagingData) error {
	return nil
}
func (f *fakeFrameRenderer) InitSampler(bind_group_provider.BindGroupProvider, int, common.SamplerStagingData) error {
	return nil
}
func (f *fakeFrameRenderer) WriteBuffers([]bind_group_provider.BufferWrite) {}
func (f *fakeFrameRenderer) BeginComputeFrame() error                       { return nil }
func (f *fakeFrameRenderer) EndComputeFrame()                               {}
func (f *fakeFrameRenderer) DispatchCompute(string, bind_group_provider.BindGroupProvider, [3]uint32) {
}
func (f *fakeFrameRenderer) BeginFrame() error { return nil }
func (f *fakeFrameRenderer) DrawCall(string, bind_group_provider.BindGroupProvider, uint32, []bind_group_provider.BindGroupProvider) error {
	return nil
}
func (f *fakeFrameRenderer) EndFrame()                              {}
func (f *fakeFrameRenderer) Present()                               {}
func (f *fakeFrameRenderer) SetPresentMode(renderer.PresentMode)    {}
func (f *fakeFrameRenderer) DepthTextureView() (*wgpu.TextureView, error) {
	return nil, nil
}
func (f *fakeFrameRenderer) CreateStorageTexture3D(string, int, int, int, wgpu.TextureFormat) (*wgpu.TextureView, *wgpu.Texture, error) {
	return nil, nil, nil
}
func (f *fakeFrameRenderer) CreateStorageTexture2D(string, int, int, wgpu.TextureFormat) (*wgpu.TextureView, *wgpu.Texture, error) {
	return nil, nil, nil
}
func (f *fakeFrameRenderer) DrawFullscreen(string, []bind_group_provider.BindGroupProvider) error {
	return nil
}

// fakeFrameResources records resource lifecycle transitions without touching
// the GPU. Shape comparison and history validity follow the real set.
type fakeFrameResources struct {
	createCount   int
	created       bool
	historyValid  bool
	gridDims      [3]uint32
	surfaceWidth  int
	surfaceHeight int
	lastConstants []byte
	densityWrites int
	lightWrites   int
}

var _ ResourceSet = &fakeFrameResources{}

func (r *fakeFrameResources) Create(cfg *Config, surfaceWidth, surfaceHeight int) error {
	r.createCount++
	r.created = true
	r.historyValid = false
	r.gridDims = [3]uint32{uint32(cfg.GridWidth), uint32(cfg.GridHeight), uint32(cfg.GridDepth)}
	r.surfaceWidth = surfaceWidth
	r.surfaceHeight = surfaceHeight
	return nil
}

func (r *fakeFrameResources) Destroy() { r.created = false }

func (r *fakeFrameResources) RecreateIfNeeded(cfg *Config, surfaceWidth, surfaceHeight int, force bool) (bool, error) {
	sameShape := r.created &&
		r.gridDims == [3]uint32{uint32(cfg.GridWidth), uint32(cfg.GridHeight), uint32(cfg.GridDepth)} &&
		r.surfaceWidth == surfaceWidth && r.surfaceHeight == surfaceHeight
	if sameShape && !force {
		return false, nil
	}
	return true, r.Create(cfg, surfaceWidth, surfaceHeight)
}

func (r *fakeFrameResources) Valid() bool          { return r.created }
func (r *fakeFrameResources) GridDims() [3]uint32  { return r.gridDims }
func (r *fakeFrameResources) ClusterDims() [3]uint32 {
	var c [3]uint32
	for i, g := range r.gridDims {
		c[i] = (g + clusterFroxelsPerAxis - 1) / clusterFroxelsPerAxis
	}
	return c
}
func (r *fakeFrameResources) HalfResolution() (int, int) {
	return (r.surfaceWidth + 1) / 2, (r.surfaceHeight + 1) / 2
}
func (r *fakeFrameResources) Provider(string, int) bind_group_provider.BindGroupProvider {
	return nil
}
func (r *fakeFrameResources) WriteConstants(slot int, data []byte) {
	r.lastConstants = append(r.lastConstants[:0], data...)
}
func (r *fakeFrameResources) ResetClusterCursor(int)        {}
func (r *fakeFrameResources) WriteLightTable(int, []byte)   { r.lightWrites++ }
func (r *fakeFrameResources) WriteDensityTable(int, []byte) { r.densityWrites++ }
func (r *fakeFrameResources) HistoryValid() bool            { return r.historyValid }
func (r *fakeFrameResources) MarkHistoryWritten()           { r.historyValid = true }

// identityCamera is a camera whose previous frame matches the current one, so
// history reuse is gated purely by the resource set.
func identityCamera() FrameCamera {
	var ident [16]float32
	for i := 0; i < 4; i++ {
		ident[i*4+i] = 1
	}
	return FrameCamera{
		ViewProjection:     ident,
		PrevViewProjection: ident,
		HavePrev:           true,
	}
}

func TestPipelineRecreatesOnGridChange(t *testing.T) {
	store := NewConfigStore(nil)
	res := &fakeFrameResources{}
	p := NewPipeline(&fakeFrameRenderer{},
		WithConfigStore(store),
		WithResourceSet(res),
	)

	if _, err := p.Streamer().AddDensityVolume(DensityVolumeRecord{
		Center:     [3]float32{0, 10, 0},
		HalfExtent: [3]float32{40, 10, 40},
		Density:    0.5,
		Falloff:    1,
	}); err != nil {
		t.Fatalf("AddDensityVolume: %v", err)
	}

	cam := identityCamera()
	frame := func() {
		t.Helper()
		if err := p.EncodeCompute(cam, 800, 600); err != nil {
			t.Fatalf("EncodeCompute: %v", err)
		}
		p.FrameComplete()
	}
	historyFlag := func() uint32 {
		t.Helper()
		if len(res.lastConstants) < 320 {
			t.Fatalf("constants upload is %d bytes", len(res.lastConstants))
		}
		return binary.LittleEndian.Uint32(res.lastConstants[316:320])
	}

	// First frame allocates and must not reproject into empty history.
	frame()
	if res.createCount != 1 {
		t.Fatalf("createCount = %d after first frame, want 1", res.createCount)
	}
	if historyFlag() != 0 {
		t.Fatal("history must be invalid on the first frame after creation")
	}

	// Steady state: no recreation, history reused.
	frame()
	frame()
	if res.createCount != 1 {
		t.Fatalf("createCount = %d in steady state, want 1", res.createCount)
	}
	if historyFlag() != 1 {
		t.Fatal("history must be reused once a frame has completed")
	}

	// Shrink the grid: the set recreates, the history resets, and the
	// streamer rewrites its tables.
	densityBefore := res.densityWrites
	next := *store.Current()
	next.GridWidth, next.GridHeight, next.GridDepth = 128, 64, 128
	store.Replace(&next)
	frame()
	if res.createCount != 2 {
		t.Fatalf("createCount = %d after grid shrink, want 2", res.createCount)
	}
	if res.gridDims != ([3]uint32{128, 64, 128}) {
		t.Fatalf("gridDims = %v after shrink, want [128 64 128]", res.gridDims)
	}
	if historyFlag() != 0 {
		t.Fatal("history must be invalid on the first frame after a grid change")
	}
	if res.densityWrites <= densityBefore {
		t.Fatal("a recreation must force the density table to be republished")
	}
	frame()
	if historyFlag() != 1 {
		t.Fatal("history must recover one frame after the grid change")
	}

	// Restore the original grid: the same transition fires again.
	densityBefore = res.densityWrites
	back := *store.Current()
	back.GridWidth, back.GridHeight, back.GridDepth = DefaultGridWidth, DefaultGridHeight, DefaultGridDepth
	store.Replace(&back)
	frame()
	if res.createCount != 3 {
		t.Fatalf("createCount = %d after restoring the grid, want 3", res.createCount)
	}
	if res.gridDims != ([3]uint32{DefaultGridWidth, DefaultGridHeight, DefaultGridDepth}) {
		t.Fatalf("gridDims = %v after restore", res.gridDims)
	}
	if historyFlag() != 0 {
		t.Fatal("history must be invalid again after the second grid change")
	}
	if res.densityWrites <= densityBefore {
		t.Fatal("the second recreation must also republish the density table")
	}
	frame()
	if historyFlag() != 1 {
		t.Fatal("history must recover after the round trip")
	}
}
