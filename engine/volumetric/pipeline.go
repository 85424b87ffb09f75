package volumetric

import (
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/haze-go/common"
	"github.com/Carmen-Shannon/haze-go/engine/renderer"
	"github.com/Carmen-Shannon/haze-go/engine/renderer/bind_group_provider"
)

// debugLogInterval is how many frames apart the pipeline prints its publish
// stats when debug logging is enabled in the config.
const debugLogInterval = 120

// FrameCamera is the camera state a volumetric frame is rendered from. The
// previous frame's matrices come from the camera itself, which retains them
// across Update calls; HavePrev is false until the camera has seen two frames.
type FrameCamera struct {
	// ViewProjection is the combined view-projection matrix, column-major.
	ViewProjection [16]float32

	// Position is the world-space camera position.
	Position [3]float32

	// PrevViewProjection is the previous frame's view-projection matrix.
	PrevViewProjection [16]float32

	// PrevPosition is the previous frame's camera position.
	PrevPosition [3]float32

	// HavePrev reports whether the previous-frame fields hold real state.
	HavePrev bool
}

// volumetricPipelineImpl is the implementation of the Pipeline interface.
type volumetricPipelineImpl struct {
	mu *sync.Mutex

	rend      renderer.Renderer
	store     ConfigStore
	watcher   ConfigWatcher
	streamer  Streamer
	resources ResourceSet

	frameIndex uint32

	disabled bool

	activeSlot int
	slotHeld   bool
}

// Pipeline orchestrates a volumetric frame: it fixes a config snapshot, runs
// the watcher cadence, recreates GPU resources when the grid shape changed,
// publishes the light and density tables into the frame's slot, encodes the
// five compute passes in order, and composites the result over the scene.
//
// A frame either runs every stage or none: when the resource set is invalid
// the whole frame is skipped rather than running a partial stage sequence
// against stale bindings. A resource creation failure disables the pipeline
// with a single warning; later frames skip silently.
type Pipeline interface {
	// EncodeCompute runs the per-frame CPU work and encodes the cluster build,
	// density injection, light injection, ray march and temporal passes.
	// Blocks until the frame slot it publishes into has been released by the
	// frame that previously used it.
	//
	// Parameters:
	//   - cam: the camera state for this frame
	//   - surfaceWidth: the render surface width in pixels
	//   - surfaceHeight: the render surface height in pixels
	//
	// Returns:
	//   - error: a fatal error such as device loss; resource creation failures
	//     disable the pipeline instead of returning an error
	EncodeCompute(cam FrameCamera, surfaceWidth, surfaceHeight int) error

	// Composite draws the resolved fog over the scene. Must be called inside
	// the renderer's frame, after EncodeCompute. A no-op when the frame was
	// skipped.
	//
	// Returns:
	//   - error: an error when the composite draw cannot be encoded
	Composite() error

	// FrameComplete releases the frame's slot, marks the temporal history
	// valid and advances the frame counter. Must be called once per
	// EncodeCompute after the frame's GPU work has been submitted.
	FrameComplete()

	// Streamer returns the light and density volume registry feeding this pipeline.
	//
	// Returns:
	//   - Streamer: the registry
	Streamer() Streamer

	// Store returns the config store this pipeline snapshots each frame.
	//
	// Returns:
	//   - ConfigStore: the store
	Store() ConfigStore

	// Disabled reports whether a resource failure has disabled the pipeline.
	//
	// Returns:
	//   - bool: true once a resource creation failure has occurred
	Disabled() bool
}

var _ Pipeline = &volumetricPipelineImpl{}

// NewPipeline creates a volumetric Pipeline from its collaborators. The
// watcher is optional; every other dependency is required.
//
// Parameters:
//   - rend: the renderer that owns the GPU device
//   - opts: variadic list of PipelineOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the configured pipeline
func NewPipeline(rend renderer.Renderer, opts ...PipelineOption) Pipeline {
	if rend == nil {
		panic("volumetric pipeline requires a renderer")
	}
	cfg := &pipelineConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.store == nil {
		cfg.store = NewConfigStore(nil)
	}
	if cfg.streamer == nil {
		cfg.streamer = NewStreamer()
	}
	if cfg.resources == nil {
		cfg.resources = NewResourceSet(rend)
	}
	return &volumetricPipelineImpl{
		mu:        &sync.Mutex{},
		rend:      rend,
		store:     cfg.store,
		watcher:   cfg.watcher,
		streamer:  cfg.streamer,
		resources: cfg.resources,
	}
}

func (p *volumetricPipelineImpl) EncodeCompute(cam FrameCamera, surfaceWidth, surfaceHeight int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disabled {
		return nil
	}

	if p.watcher != nil {
		p.watcher.Check()
	}

	// The snapshot is fixed here; a reload landing mid-frame is picked up by
	// the next frame so no stage pair ever sees different tunables.
	cfg := p.store.Current()

	force := false
	if p.watcher != nil {
		force = p.watcher.ConsumeRecreateFlag()
	}
	recreated, err := p.resources.RecreateIfNeeded(cfg, surfaceWidth, surfaceHeight, force)
	if err != nil {
		p.disabled = true
		log.Printf("[Volumetric] resource creation failed, disabling volumetrics: %v", err)
		return nil
	}
	if recreated {
		p.streamer.InvalidateTables()
	}
	if !p.resources.Valid() {
		return nil
	}

	var invViewProj [16]float32
	if !common.Invert4(invViewProj[:], cam.ViewProjection[:]) {
		// Degenerate camera; skip the frame rather than marching garbage rays.
		return nil
	}
	frustum := common.ExtractFrustumFromMatrix(cam.ViewProjection[:])

	slot := int(p.frameIndex) % FramesInFlight
	stats := p.streamer.Publish(slot, FrameView{
		CameraPosition: cam.Position,
		Frustum:        frustum,
	}, p.resources)
	p.activeSlot = slot
	p.slotHeld = true

	prevVP := cam.ViewProjection
	prevPos := cam.Position
	historyValid := uint32(0)
	if cam.HavePrev && p.resources.HistoryValid() {
		prevVP = cam.PrevViewProjection
		prevPos = cam.PrevPosition
		historyValid = 1
	}

	constants := GPUConstants{
		ViewProjection:       cam.ViewProjection,
		InverseViewProj:      invViewProj,
		PrevViewProjection:   prevVP,
		CameraPosition:       cam.Position,
		FrameIndex:           p.frameIndex,
		PrevCameraPosition:   prevPos,
		LightCount:           uint32(stats.LightsPublished),
		GridDims:             p.resources.GridDims(),
		DensityVolumeCount:   uint32(stats.DensityVolumes),
		NearPlane:            cfg.NearPlane,
		FarPlane:             cfg.FarPlane,
		JitterX:              Halton(p.frameIndex%8+1, 2),
		JitterY:              Halton(p.frameIndex%8+1, 3),
		FogColor:             cfg.FogColor,
		BaseFogDensity:       cfg.BaseFogDensity,
		FogAlbedo:            cfg.FogAlbedo,
		PhaseAnisotropy:      cfg.PhaseAnisotropy,
		IntensityScale:       cfg.IntensityScale,
		RadiusScale:          cfg.RadiusScale,
		AttenuationFalloff:   cfg.AttenuationFalloff,
		StepSizeMultiplier:   cfg.StepSizeMultiplier,
		JitterAmount:         cfg.JitterAmount,
		TemporalBlend:        cfg.TemporalBlend,
		ScatteringMultiplier: cfg.ScatteringMultiplier,
		TransmittanceFloor:   cfg.TransmittanceFloor,
		TransmittanceMix:     cfg.TransmittanceMix,
		HistoryValid:         historyValid,
		SkyLightColor:        cfg.SkyLightColor,
		SkyLightIntensity:    cfg.SkyLightIntensity,
		RaymarchSteps:        uint32(cfg.RaymarchSteps),
	}
	p.resources.WriteConstants(slot, constants.Marshal())
	p.resources.ResetClusterCursor(slot)

	if err := p.rend.BeginComputeFrame(); err != nil {
		// Losing the encoder means the device itself is gone.
		return fmt.Errorf("volumetric compute frame: %w", err)
	}

	grid := p.resources.GridDims()
	clusters := p.resources.ClusterDims()
	halfW, halfH := p.resources.HalfResolution()

	p.rend.DispatchCompute(PipelineKeyClusterBuild,
		p.resources.Provider(PipelineKeyClusterBuild, slot), groups3(clusters, 4))
	p.rend.DispatchCompute(PipelineKeyDensityInjection,
		p.resources.Provider(PipelineKeyDensityInjection, slot), groups3(grid, 4))
	p.rend.DispatchCompute(PipelineKeyLightInjection,
		p.resources.Provider(PipelineKeyLightInjection, slot), groups3(grid, 4))
	p.rend.DispatchCompute(PipelineKeyRayMarch,
		p.resources.Provider(PipelineKeyRayMarch, slot), groups2(halfW, halfH, 8))
	p.rend.DispatchCompute(PipelineKeyTemporal,
		p.resources.Provider(PipelineKeyTemporal, slot), groups2(halfW, halfH, 8))
	p.rend.EndComputeFrame()

	if cfg.DebugLogging && p.frameIndex%debugLogInterval == 0 {
		log.Printf("[Volumetric] frame %d: lights=%d culled=%d volumes=%d densityTable=%t",
			p.frameIndex, stats.LightsPublished, stats.LightsCulled, stats.DensityVolumes, stats.DensityTableWrote)
	}
	return nil
}

func (p *volumetricPipelineImpl) Composite() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disabled || !p.slotHeld {
		return nil
	}
	provider := p.resources.Provider(PipelineKeyComposite, p.activeSlot)
	if provider == nil {
		return nil
	}
	return p.rend.DrawFullscreen(PipelineKeyComposite, []bind_group_provider.BindGroupProvider{provider})
}

func (p *volumetricPipelineImpl) FrameComplete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.slotHeld {
		p.streamer.ReleaseSlot(p.activeSlot)
		p.slotHeld = false
		p.resources.MarkHistoryWritten()
	}
	p.frameIndex++
}

func (p *volumetricPipelineImpl) Streamer() Streamer {
	return p.streamer
}

func (p *volumetricPipelineImpl) Store() ConfigStore {
	return p.store
}

func (p *volumetricPipelineImpl) Disabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disabled
}

// groups3 returns the dispatch size covering dims with the given cubic
// workgroup edge.
func groups3(dims [3]uint32, workgroup uint32) [3]uint32 {
	return [3]uint32{
		(dims[0] + workgroup - 1) / workgroup,
		(dims[1] + workgroup - 1) / workgroup,
		(dims[2] + workgroup - 1) / workgroup,
	}
}

// groups2 returns the dispatch size covering a 2D image with the given square
// workgroup edge.
func groups2(width, height int, workgroup uint32) [3]uint32 {
	return [3]uint32{
		(uint32(width) + workgroup - 1) / workgroup,
		(uint32(height) + workgroup - 1) / workgroup,
		1,
	}
}
