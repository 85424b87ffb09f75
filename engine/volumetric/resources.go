package volumetric

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/haze-go/common"
	"github.com/Carmen-Shannon/haze-go/engine/renderer"
	"github.com/Carmen-Shannon/haze-go/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// clusterFroxelsPerAxis is how many froxels one cluster cell spans per axis.
	clusterFroxelsPerAxis = 4

	// clusterAllocatorSize is the byte size of the cluster index allocator
	// buffer. One atomic u32 cursor, padded to the minimum binding alignment.
	clusterAllocatorSize = 16
)

// resourceSetImpl is the implementation of the ResourceSet interface.
type resourceSetImpl struct {
	mu   *sync.Mutex
	rend renderer.Renderer

	created      bool
	historyValid bool

	gridDims      [3]uint32
	clusterDims   [3]uint32
	surfaceWidth  int
	surfaceHeight int
	halfWidth     int
	halfHeight    int

	providers map[string][FramesInFlight]bind_group_provider.BindGroupProvider

	ownedBuffers  []*wgpu.Buffer
	ownedTextures []*wgpu.Texture
	ownedViews    []*wgpu.TextureView
	sampler       *wgpu.Sampler
}

// ResourceSet owns every GPU resource of the volumetric subsystem: the 3D
// density and light fields, the half-resolution scattering, transmittance and
// temporal history images, and the per-frame-slot table and constant buffers
// behind the six pass bind groups.
//
// The 3D fields and intermediate images are shared across frame slots since
// queue submission order serializes their producers and consumers. The table
// and constant buffers are per slot so the CPU never overwrites data a frame
// still in flight is reading. The history pair is indexed by slot parity: the
// frame in slot s reads history[1-s] and writes history[s].
//
// Recreate discards the whole set, including the temporal history, so the
// first frame after a recreation must not reproject.
type ResourceSet interface {
	// Create allocates every GPU resource for the given grid shape and surface
	// size and builds all pass bind groups. Fails without partial state: a
	// creation error releases everything already allocated.
	//
	// Parameters:
	//   - cfg: the config whose grid dimensions shape the 3D fields
	//   - surfaceWidth: the render surface width in pixels
	//   - surfaceHeight: the render surface height in pixels
	//
	// Returns:
	//   - error: an error when any GPU allocation fails
	Create(cfg *Config, surfaceWidth, surfaceHeight int) error

	// Destroy releases every GPU resource in the set. Safe to call when
	// nothing is allocated.
	Destroy()

	// RecreateIfNeeded recreates the set when the grid shape or surface size
	// no longer matches, or when force is set. Recreation invalidates the
	// temporal history.
	//
	// Parameters:
	//   - cfg: the config to match
	//   - surfaceWidth: the render surface width in pixels
	//   - surfaceHeight: the render surface height in pixels
	//   - force: recreate even when the shape matches
	//
	// Returns:
	//   - bool: true when the set was (re)created
	//   - error: an error when recreation fails; the set is invalid afterward
	RecreateIfNeeded(cfg *Config, surfaceWidth, surfaceHeight int, force bool) (bool, error)

	// Valid reports whether the set is currently usable for a frame.
	//
	// Returns:
	//   - bool: true when every resource is allocated
	Valid() bool

	// GridDims returns the froxel grid dimensions the set was created with.
	//
	// Returns:
	//   - [3]uint32: width, height, depth in cells
	GridDims() [3]uint32

	// ClusterDims returns the cluster grid dimensions derived from the froxel grid.
	//
	// Returns:
	//   - [3]uint32: cluster cell counts per axis
	ClusterDims() [3]uint32

	// HalfResolution returns the half-resolution image size the set was
	// created with.
	//
	// Returns:
	//   - int: half-resolution width in pixels
	//   - int: half-resolution height in pixels
	HalfResolution() (int, int)

	// Provider returns the bind group provider for a pass and frame slot.
	//
	// Parameters:
	//   - pipelineKey: one of the PipelineKey constants
	//   - slot: the frame-in-flight slot
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider, or nil when the set is not created
	Provider(pipelineKey string, slot int) bind_group_provider.BindGroupProvider

	// WriteConstants uploads the frame constants block into the given slot's
	// uniform buffer.
	//
	// Parameters:
	//   - slot: the frame-in-flight slot
	//   - data: the marshaled GPUConstants bytes
	WriteConstants(slot int, data []byte)

	// ResetClusterCursor zeroes the given slot's cluster index allocator so
	// the cluster build pass starts from an empty index table.
	//
	// Parameters:
	//   - slot: the frame-in-flight slot
	ResetClusterCursor(slot int)

	// WriteLightTable uploads the light table bytes for the given slot.
	//
	// Parameters:
	//   - slot: the frame-in-flight slot
	//   - data: the marshaled light table
	WriteLightTable(slot int, data []byte)

	// WriteDensityTable uploads the density volume table bytes for the given slot.
	//
	// Parameters:
	//   - slot: the frame-in-flight slot
	//   - data: the marshaled density volume table
	WriteDensityTable(slot int, data []byte)

	// HistoryValid reports whether the temporal history holds data from a
	// previous frame.
	//
	// Returns:
	//   - bool: false until a frame completes after creation or recreation
	HistoryValid() bool

	// MarkHistoryWritten records that a frame has written the history, making
	// it valid for the next frame's reprojection.
	MarkHistoryWritten()
}

var _ ResourceSet = &resourceSetImpl{}
var _ TableWriter = &resourceSetImpl{}

// NewResourceSet creates an empty ResourceSet bound to a renderer. Nothing is
// allocated until Create.
//
// Parameters:
//   - rend: the renderer that owns the GPU device
//
// Returns:
//   - ResourceSet: the empty resource set
func NewResourceSet(rend renderer.Renderer) ResourceSet {
	if rend == nil {
		panic("resource set requires a renderer")
	}
	return &resourceSetImpl{
		mu:   &sync.Mutex{},
		rend: rend,
	}
}

func (r *resourceSetImpl) Create(cfg *Config, surfaceWidth, surfaceHeight int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(cfg, surfaceWidth, surfaceHeight)
}

func (r *resourceSetImpl) createLocked(cfg *Config, surfaceWidth, surfaceHeight int) error {
	if r.created {
		r.destroyLocked()
	}

	r.gridDims = [3]uint32{uint32(cfg.GridWidth), uint32(cfg.GridHeight), uint32(cfg.GridDepth)}
	for i, g := range r.gridDims {
		r.clusterDims[i] = (g + clusterFroxelsPerAxis - 1) / clusterFroxelsPerAxis
	}
	r.surfaceWidth = surfaceWidth
	r.surfaceHeight = surfaceHeight
	r.halfWidth = (surfaceWidth + 1) / 2
	r.halfHeight = (surfaceHeight + 1) / 2
	r.providers = make(map[string][FramesInFlight]bind_group_provider.BindGroupProvider)

	if err := r.allocateLocked(); err != nil {
		r.destroyLocked()
		return err
	}
	r.created = true
	r.historyValid = false
	return nil
}

// allocateLocked builds the textures, buffers and pass bind groups. Any error
// leaves partially allocated resources for destroyLocked to reclaim.
func (r *resourceSetImpl) allocateLocked() error {
	gw, gh, gd := int(r.gridDims[0]), int(r.gridDims[1]), int(r.gridDims[2])

	densityView, err := r.createTexture3D("Volumetric Density Field", gw, gh, gd, wgpu.TextureFormatR32Float)
	if err != nil {
		return err
	}
	lightView, err := r.createTexture3D("Volumetric Light Field", gw, gh, gd, wgpu.TextureFormatRGBA16Float)
	if err != nil {
		return err
	}
	scatteringView, err := r.createTexture2D("Volumetric Scattering", wgpu.TextureFormatRGBA16Float)
	if err != nil {
		return err
	}
	transmittanceView, err := r.createTexture2D("Volumetric Transmittance", wgpu.TextureFormatR32Float)
	if err != nil {
		return err
	}
	var historyViews [2]*wgpu.TextureView
	for i := range historyViews {
		historyViews[i], err = r.createTexture2D(fmt.Sprintf("Volumetric History %d", i), wgpu.TextureFormatRGBA16Float)
		if err != nil {
			return err
		}
	}

	// Scene depth is owned by the renderer's surface, not this set; a surface
	// resize changes it, which also changes the surface size this set was
	// created against, forcing a recreation that rebinds the fresh view.
	depthView, err := r.rend.DepthTextureView()
	if err != nil {
		return fmt.Errorf("scene depth view: %w", err)
	}

	cells := uint64(r.clusterDims[0]) * uint64(r.clusterDims[1]) * uint64(r.clusterDims[2])
	cellTableSize := cells * 4

	var clusterProviders, densityProviders, lightProviders [FramesInFlight]bind_group_provider.BindGroupProvider
	var marchProviders, temporalProviders, compositeProviders [FramesInFlight]bind_group_provider.BindGroupProvider

	for s := 0; s < FramesInFlight; s++ {
		cluster := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("Volumetric Cluster Build [slot %d]", s))
		if err := r.rend.InitBindGroup(cluster, ClusterBuildLayout(), nil, map[int]uint64{
			clusterBindingOffsets: cellTableSize,
			clusterBindingCounts:  cellTableSize,
		}); err != nil {
			return fmt.Errorf("cluster build bind group (slot %d): %w", s, err)
		}
		r.adoptBuffers(cluster)
		clusterProviders[s] = cluster

		constantsBuf := cluster.Buffer(bindingConstants)
		lightsBuf := cluster.Buffer(clusterBindingLights)

		density := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("Volumetric Density Injection [slot %d]", s))
		density.SetBuffer(bindingConstants, constantsBuf)
		density.SetTextureView(densityBindingField, densityView)
		if err := r.rend.InitBindGroup(density, DensityInjectionLayout(), nil, nil); err != nil {
			return fmt.Errorf("density injection bind group (slot %d): %w", s, err)
		}
		r.adoptBuffer(density.Buffer(densityBindingVolumes))
		densityProviders[s] = density

		light := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("Volumetric Light Injection [slot %d]", s))
		light.SetBuffer(bindingConstants, constantsBuf)
		light.SetBuffer(lightBindingLights, lightsBuf)
		light.SetBuffer(lightBindingOffsets, cluster.Buffer(clusterBindingOffsets))
		light.SetBuffer(lightBindingCounts, cluster.Buffer(clusterBindingCounts))
		light.SetBuffer(lightBindingIndices, cluster.Buffer(clusterBindingIndices))
		light.SetTextureView(lightBindingDensity, densityView)
		light.SetTextureView(lightBindingField, lightView)
		if err := r.rend.InitBindGroup(light, LightInjectionLayout(), nil, nil); err != nil {
			return fmt.Errorf("light injection bind group (slot %d): %w", s, err)
		}
		lightProviders[s] = light

		march := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("Volumetric Ray March [slot %d]", s))
		march.SetBuffer(bindingConstants, constantsBuf)
		march.SetTextureView(marchBindingDensity, densityView)
		march.SetTextureView(marchBindingLight, lightView)
		march.SetTextureView(marchBindingScattering, scatteringView)
		march.SetTextureView(marchBindingTransmittance, transmittanceView)
		march.SetTextureView(marchBindingSceneDepth, depthView)
		if err := r.rend.InitBindGroup(march, RayMarchLayout(), nil, nil); err != nil {
			return fmt.Errorf("ray march bind group (slot %d): %w", s, err)
		}
		marchProviders[s] = march

		temporal := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("Volumetric Temporal [slot %d]", s))
		temporal.SetBuffer(bindingConstants, constantsBuf)
		temporal.SetTextureView(temporalBindingScattering, scatteringView)
		temporal.SetTextureView(temporalBindingTransmittance, transmittanceView)
		temporal.SetTextureView(temporalBindingHistoryRead, historyViews[1-s%2])
		temporal.SetTextureView(temporalBindingHistoryWrite, historyViews[s%2])
		if r.sampler == nil {
			if err := r.rend.InitSampler(temporal, temporalBindingSampler, common.SamplerStagingData{
				AddressModeU: wgpu.AddressModeClampToEdge,
				AddressModeV: wgpu.AddressModeClampToEdge,
				AddressModeW: wgpu.AddressModeClampToEdge,
				MagFilter:    wgpu.FilterModeLinear,
				MinFilter:    wgpu.FilterModeLinear,
			}); err != nil {
				return fmt.Errorf("history sampler: %w", err)
			}
			r.sampler = temporal.Sampler(temporalBindingSampler)
		} else {
			temporal.SetSampler(temporalBindingSampler, r.sampler)
		}
		if err := r.rend.InitBindGroup(temporal, TemporalLayout(), nil, nil); err != nil {
			return fmt.Errorf("temporal bind group (slot %d): %w", s, err)
		}
		temporalProviders[s] = temporal

		composite := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("Volumetric Composite [slot %d]", s))
		composite.SetBuffer(bindingConstants, constantsBuf)
		composite.SetTextureView(compositeBindingResult, historyViews[s%2])
		composite.SetSampler(compositeBindingSampler, r.sampler)
		if err := r.rend.InitBindGroup(composite, CompositeLayout(), nil, nil); err != nil {
			return fmt.Errorf("composite bind group (slot %d): %w", s, err)
		}
		compositeProviders[s] = composite
	}

	r.providers[PipelineKeyClusterBuild] = clusterProviders
	r.providers[PipelineKeyDensityInjection] = densityProviders
	r.providers[PipelineKeyLightInjection] = lightProviders
	r.providers[PipelineKeyRayMarch] = marchProviders
	r.providers[PipelineKeyTemporal] = temporalProviders
	r.providers[PipelineKeyComposite] = compositeProviders
	return nil
}

func (r *resourceSetImpl) createTexture3D(label string, w, h, d int, format wgpu.TextureFormat) (*wgpu.TextureView, error) {
	view, tex, err := r.rend.CreateStorageTexture3D(label, w, h, d, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	r.ownedTextures = append(r.ownedTextures, tex)
	r.ownedViews = append(r.ownedViews, view)
	return view, nil
}

func (r *resourceSetImpl) createTexture2D(label string, format wgpu.TextureFormat) (*wgpu.TextureView, error) {
	view, tex, err := r.rend.CreateStorageTexture2D(label, r.halfWidth, r.halfHeight, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	r.ownedTextures = append(r.ownedTextures, tex)
	r.ownedViews = append(r.ownedViews, view)
	return view, nil
}

// adoptBuffers takes release ownership of every buffer a provider created, so
// shared buffers are released exactly once regardless of how many bind groups
// reference them.
func (r *resourceSetImpl) adoptBuffers(p bind_group_provider.BindGroupProvider) {
	for _, buf := range p.Buffers() {
		r.adoptBuffer(buf)
	}
}

func (r *resourceSetImpl) adoptBuffer(buf *wgpu.Buffer) {
	if buf == nil {
		return
	}
	for _, owned := range r.ownedBuffers {
		if owned == buf {
			return
		}
	}
	r.ownedBuffers = append(r.ownedBuffers, buf)
}

func (r *resourceSetImpl) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyLocked()
}

func (r *resourceSetImpl) destroyLocked() {
	// Strip the providers before releasing them so shared buffers, views and
	// the sampler are not released once per referencing bind group.
	for _, slots := range r.providers {
		for _, p := range slots {
			if p == nil {
				continue
			}
			p.SetBuffers(map[int]*wgpu.Buffer{})
			p.SetTextureViews(map[int]*wgpu.TextureView{})
			p.SetSamplers(map[int]*wgpu.Sampler{})
			p.Release()
		}
	}
	r.providers = nil

	for _, buf := range r.ownedBuffers {
		buf.Release()
	}
	r.ownedBuffers = nil
	for _, view := range r.ownedViews {
		view.Release()
	}
	r.ownedViews = nil
	for _, tex := range r.ownedTextures {
		tex.Release()
	}
	r.ownedTextures = nil
	if r.sampler != nil {
		r.sampler.Release()
		r.sampler = nil
	}

	r.created = false
	r.historyValid = false
}

func (r *resourceSetImpl) RecreateIfNeeded(cfg *Config, surfaceWidth, surfaceHeight int, force bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sameShape := r.created &&
		r.gridDims == [3]uint32{uint32(cfg.GridWidth), uint32(cfg.GridHeight), uint32(cfg.GridDepth)} &&
		r.surfaceWidth == surfaceWidth && r.surfaceHeight == surfaceHeight
	if sameShape && !force {
		return false, nil
	}
	if err := r.createLocked(cfg, surfaceWidth, surfaceHeight); err != nil {
		return true, err
	}
	return true, nil
}

func (r *resourceSetImpl) Valid() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created
}

func (r *resourceSetImpl) GridDims() [3]uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gridDims
}

func (r *resourceSetImpl) ClusterDims() [3]uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clusterDims
}

func (r *resourceSetImpl) HalfResolution() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.halfWidth, r.halfHeight
}

func (r *resourceSetImpl) Provider(pipelineKey string, slot int) bind_group_provider.BindGroupProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	slots, ok := r.providers[pipelineKey]
	if !ok {
		return nil
	}
	return slots[slot%FramesInFlight]
}

func (r *resourceSetImpl) WriteConstants(slot int, data []byte) {
	if p := r.Provider(PipelineKeyClusterBuild, slot); p != nil {
		r.rend.WriteBuffers([]bind_group_provider.BufferWrite{
			{Provider: p, Binding: bindingConstants, Offset: 0, Data: data},
		})
	}
}

func (r *resourceSetImpl) ResetClusterCursor(slot int) {
	if p := r.Provider(PipelineKeyClusterBuild, slot); p != nil {
		r.rend.WriteBuffers([]bind_group_provider.BufferWrite{
			{Provider: p, Binding: clusterBindingAllocator, Offset: 0, Data: make([]byte, clusterAllocatorSize)},
		})
	}
}

func (r *resourceSetImpl) WriteLightTable(slot int, data []byte) {
	if p := r.Provider(PipelineKeyClusterBuild, slot); p != nil {
		r.rend.WriteBuffers([]bind_group_provider.BufferWrite{
			{Provider: p, Binding: clusterBindingLights, Offset: 0, Data: data},
		})
	}
}

func (r *resourceSetImpl) WriteDensityTable(slot int, data []byte) {
	if p := r.Provider(PipelineKeyDensityInjection, slot); p != nil {
		r.rend.WriteBuffers([]bind_group_provider.BufferWrite{
			{Provider: p, Binding: densityBindingVolumes, Offset: 0, Data: data},
		})
	}
}

func (r *resourceSetImpl) HistoryValid() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.historyValid
}

func (r *resourceSetImpl) MarkHistoryWritten() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.historyValid = true
}
