package volumetric

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/haze-go/common"
)

// Candidate culling bounds for the per-frame light publish. Lights beyond
// MaxLightDistance never reach the GPU; lights inside NearAlwaysKeepDistance
// are kept even when outside the frustum so that off-screen sources just
// behind the camera still scatter into visible fog.
const (
	// MaxLightDistance is the hard distance cull for light candidates, in world units.
	MaxLightDistance = 320.0

	// FrustumCullMargin expands the view frustum planes during candidate
	// culling so lights just off-screen keep contributing.
	FrustumCullMargin = 50.0

	// NearAlwaysKeepDistance is the radius around the camera inside which
	// lights bypass the frustum test entirely.
	NearAlwaysKeepDistance = 100.0

	// cullChunkSize is the number of light records each worker task culls.
	cullChunkSize = 128
)

// LightShape identifies the spatial shape of a volumetric light.
type LightShape int

const (
	// LightShapeSphere is a point light with a spherical falloff radius.
	LightShapeSphere LightShape = iota

	// LightShapeBox is an area light filling an axis-aligned box.
	LightShapeBox
)

// LightID identifies a light registered with the streamer. IDs are recycled
// through a freelist after removal.
type LightID uint32

// DensityVolumeID identifies a density volume registered with the streamer.
type DensityVolumeID uint32

// LightRecord describes one volumetric light as registered by the caller.
type LightRecord struct {
	Position  [3]float32
	Radius    float32 // sphere radius; for box lights, the clustering bound
	Extent    [3]float32
	Color     [3]float32
	Intensity float32
	Shape     LightShape
}

// DensityVolumeRecord describes one box-shaped fog density volume.
type DensityVolumeRecord struct {
	Center     [3]float32
	HalfExtent [3]float32
	Density    float32
	Falloff    float32
}

// FrameView is the camera state a publish is culled against.
type FrameView struct {
	CameraPosition [3]float32
	Frustum        common.Frustum
}

// PublishStats reports what a Publish call uploaded.
type PublishStats struct {
	LightsPublished   int
	DensityVolumes    int
	LightsCulled      int
	DensityTableWrote bool
}

// TableWriter abstracts the GPU upload path for the published tables. The
// resource set implements it against per-slot storage buffers; tests implement
// it as a byte capture.
type TableWriter interface {
	// WriteLightTable uploads the light table bytes for the given slot.
	WriteLightTable(slot int, data []byte)

	// WriteDensityTable uploads the density volume table bytes for the given slot.
	WriteDensityTable(slot int, data []byte)
}

// streamerImpl is the implementation of the Streamer interface.
type streamerImpl struct {
	mu *sync.Mutex

	lights       [MaxLights]LightRecord
	lightsLive   [MaxLights]bool
	lightFree    []LightID
	lightNext    LightID
	lightCount   int
	volumes      [MaxDensityVolumes]DensityVolumeRecord
	volumesLive  [MaxDensityVolumes]bool
	volumeFree   []DensityVolumeID
	volumeNext   DensityVolumeID
	volumeCount  int
	volumesDirty [FramesInFlight]bool

	// lastLightBytes tracks the previous upload size per slot so the stale
	// tail beyond the new table can be zeroed.
	lastLightBytes [FramesInFlight]int

	slots *frameSlots

	cullPool worker.DynamicWorkerPool
}

// Streamer owns the CPU-side registries of volumetric lights and density
// volumes and publishes them into per-frame GPU buffer slots. Registration is
// freelist-based: removed IDs are recycled, and a removed slot is zeroed so a
// recycled ID can never resurrect the previous occupant's parameters.
//
// Capacity is fixed at MaxLights and MaxDensityVolumes. Adding beyond capacity
// fails at the call site with an error and leaves existing entries untouched.
//
// Publish writes to slot (frame % FramesInFlight) and blocks until the frame
// that previously used the slot has released it, so a buffer is never written
// while the GPU may still be reading it.
type Streamer interface {
	// AddLight registers a new light and returns its ID.
	//
	// Parameters:
	//   - rec: the light parameters to register
	//
	// Returns:
	//   - LightID: the assigned ID, valid until RemoveLight
	//   - error: an error when the light table is full
	AddLight(rec LightRecord) (LightID, error)

	// UpdateLight replaces the parameters of a registered light.
	//
	// Parameters:
	//   - id: the light to update
	//   - rec: the new parameters
	//
	// Returns:
	//   - error: an error when the ID is not registered
	UpdateLight(id LightID, rec LightRecord) error

	// RemoveLight unregisters a light and recycles its ID. The slot's
	// parameters are zeroed immediately.
	//
	// Parameters:
	//   - id: the light to remove
	//
	// Returns:
	//   - error: an error when the ID is not registered
	RemoveLight(id LightID) error

	// AddDensityVolume registers a new density volume and returns its ID.
	//
	// Parameters:
	//   - rec: the density volume parameters to register
	//
	// Returns:
	//   - DensityVolumeID: the assigned ID, valid until RemoveDensityVolume
	//   - error: an error when the density volume table is full
	AddDensityVolume(rec DensityVolumeRecord) (DensityVolumeID, error)

	// UpdateDensityVolume replaces the parameters of a registered density volume.
	//
	// Parameters:
	//   - id: the density volume to update
	//   - rec: the new parameters
	//
	// Returns:
	//   - error: an error when the ID is not registered
	UpdateDensityVolume(id DensityVolumeID, rec DensityVolumeRecord) error

	// RemoveDensityVolume unregisters a density volume and recycles its ID.
	//
	// Parameters:
	//   - id: the density volume to remove
	//
	// Returns:
	//   - error: an error when the ID is not registered
	RemoveDensityVolume(id DensityVolumeID) error

	// LightCount returns the number of currently registered lights.
	//
	// Returns:
	//   - int: the live light count
	LightCount() int

	// DensityVolumeCount returns the number of currently registered density volumes.
	//
	// Returns:
	//   - int: the live density volume count
	DensityVolumeCount() int

	// Publish culls the registered lights against the view, serializes the
	// survivors and the density volume table, and uploads both through the
	// writer into the given frame slot. Blocks until the slot's previous frame
	// has been released via ReleaseSlot.
	//
	// Parameters:
	//   - slot: the frame-in-flight slot to publish into
	//   - view: the camera state to cull against
	//   - w: the upload sink for the serialized tables
	//
	// Returns:
	//   - PublishStats: counts of what was uploaded
	Publish(slot int, view FrameView, w TableWriter) PublishStats

	// ReleaseSlot marks a slot's GPU reads as complete, unblocking the next
	// Publish targeting it. Called by the pipeline once the frame that
	// published into the slot has retired.
	//
	// Parameters:
	//   - slot: the frame-in-flight slot to release
	ReleaseSlot(slot int)

	// InvalidateTables marks every slot's tables as needing a full re-upload.
	// Called after the GPU buffers backing the tables have been recreated.
	InvalidateTables()
}

var _ Streamer = &streamerImpl{}

// NewStreamer creates a Streamer with empty registries.
//
// Parameters:
//   - opts: variadic list of StreamerOption functions to configure the streamer
//
// Returns:
//   - Streamer: the configured streamer
func NewStreamer(opts ...StreamerOption) Streamer {
	s := &streamerImpl{
		mu:    &sync.Mutex{},
		slots: newFrameSlots(FramesInFlight),
	}
	for i := range s.volumesDirty {
		s.volumesDirty[i] = true
	}
	cfg := streamerConfig{cullWorkers: 4}
	for _, opt := range opts {
		opt(&cfg)
	}
	s.cullPool = worker.NewDynamicWorkerPool(cfg.cullWorkers, 256, 1*time.Second)
	return s
}

func (s *streamerImpl) AddLight(rec LightRecord) (LightID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id LightID
	switch {
	case len(s.lightFree) > 0:
		id = s.lightFree[len(s.lightFree)-1]
		s.lightFree = s.lightFree[:len(s.lightFree)-1]
	case int(s.lightNext) < MaxLights:
		id = s.lightNext
		s.lightNext++
	default:
		return 0, fmt.Errorf("light table full (%d entries)", MaxLights)
	}

	s.lights[id] = rec
	s.lightsLive[id] = true
	s.lightCount++
	return id, nil
}

func (s *streamerImpl) UpdateLight(id LightID, rec LightRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(id) >= MaxLights || !s.lightsLive[id] {
		return fmt.Errorf("light %d is not registered", id)
	}
	s.lights[id] = rec
	return nil
}

func (s *streamerImpl) RemoveLight(id LightID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(id) >= MaxLights || !s.lightsLive[id] {
		return fmt.Errorf("light %d is not registered", id)
	}
	s.lights[id] = LightRecord{}
	s.lightsLive[id] = false
	s.lightFree = append(s.lightFree, id)
	s.lightCount--
	return nil
}

func (s *streamerImpl) AddDensityVolume(rec DensityVolumeRecord) (DensityVolumeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id DensityVolumeID
	switch {
	case len(s.volumeFree) > 0:
		id = s.volumeFree[len(s.volumeFree)-1]
		s.volumeFree = s.volumeFree[:len(s.volumeFree)-1]
	case int(s.volumeNext) < MaxDensityVolumes:
		id = s.volumeNext
		s.volumeNext++
	default:
		return 0, fmt.Errorf("density volume table full (%d entries)", MaxDensityVolumes)
	}

	s.volumes[id] = rec
	s.volumesLive[id] = true
	s.volumeCount++
	s.markVolumesDirty()
	return id, nil
}

func (s *streamerImpl) UpdateDensityVolume(id DensityVolumeID, rec DensityVolumeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(id) >= MaxDensityVolumes || !s.volumesLive[id] {
		return fmt.Errorf("density volume %d is not registered", id)
	}
	s.volumes[id] = rec
	s.markVolumesDirty()
	return nil
}

func (s *streamerImpl) RemoveDensityVolume(id DensityVolumeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(id) >= MaxDensityVolumes || !s.volumesLive[id] {
		return fmt.Errorf("density volume %d is not registered", id)
	}
	s.volumes[id] = DensityVolumeRecord{}
	s.volumesLive[id] = false
	s.volumeFree = append(s.volumeFree, id)
	s.volumeCount--
	s.markVolumesDirty()
	return nil
}

func (s *streamerImpl) LightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lightCount
}

func (s *streamerImpl) DensityVolumeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volumeCount
}

// markVolumesDirty flags every slot for a density table rewrite on its next
// publish. Caller must hold the mutex.
func (s *streamerImpl) markVolumesDirty() {
	for i := range s.volumesDirty {
		s.volumesDirty[i] = true
	}
}

// lightCandidate pairs a live record index with its cull result for sorting.
type lightCandidate struct {
	record    LightRecord
	distance  float32
	inFrustum bool
}

func (s *streamerImpl) Publish(slot int, view FrameView, w TableWriter) PublishStats {
	slot = slot % FramesInFlight
	s.slots.Acquire(slot)

	s.mu.Lock()
	// Snapshot live records so culling can run without holding the lock.
	live := make([]LightRecord, 0, s.lightCount)
	for i := LightID(0); i < s.lightNext; i++ {
		if s.lightsLive[i] {
			live = append(live, s.lights[i])
		}
	}
	volumesDirty := s.volumesDirty[slot]
	var volumeTable []byte
	var volumeCount int
	if volumesDirty {
		volumeTable, volumeCount = s.marshalVolumesLocked()
		s.volumesDirty[slot] = false
	}
	s.mu.Unlock()

	candidates := s.cullLights(live, view)

	// In-frustum lights sort ahead of near out-of-frustum keeps, nearest first
	// within each class, so truncation at capacity drops the least visible.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].inFrustum != candidates[j].inFrustum {
			return candidates[i].inFrustum
		}
		return candidates[i].distance < candidates[j].distance
	})
	if len(candidates) > MaxLights {
		candidates = candidates[:MaxLights]
	}

	lightTable := make([]byte, 0, len(candidates)*48)
	for _, c := range candidates {
		g := lightToGPU(c.record)
		lightTable = append(lightTable, g.Marshal()...)
	}

	// Zero the stale tail left by a larger previous upload so disabled entries
	// never linger in the slot's buffer.
	if prev := s.lastLightBytes[slot]; prev > len(lightTable) {
		lightTable = append(lightTable, make([]byte, prev-len(lightTable))...)
	}
	s.lastLightBytes[slot] = len(candidates) * 48

	if len(lightTable) > 0 {
		w.WriteLightTable(slot, lightTable)
	}
	if volumesDirty && len(volumeTable) > 0 {
		w.WriteDensityTable(slot, volumeTable)
	}

	return PublishStats{
		LightsPublished:   len(candidates),
		DensityVolumes:    volumeCount,
		LightsCulled:      len(live) - len(candidates),
		DensityTableWrote: volumesDirty,
	}
}

func (s *streamerImpl) ReleaseSlot(slot int) {
	s.slots.Release(slot % FramesInFlight)
}

func (s *streamerImpl) InvalidateTables() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markVolumesDirty()
	for i := range s.lastLightBytes {
		s.lastLightBytes[i] = 0
	}
}

// cullLights runs the distance and frustum tests over the live records on the
// cull pool, chunked so large registries parallelize. A WaitGroup provides the
// per-frame barrier since pool.Wait blocks until workers idle-exit, which is
// unsuitable for frame-rate workloads.
func (s *streamerImpl) cullLights(live []LightRecord, view FrameView) []lightCandidate {
	if len(live) == 0 {
		return nil
	}

	chunks := (len(live) + cullChunkSize - 1) / cullChunkSize
	results := make([][]lightCandidate, chunks)

	var wg sync.WaitGroup
	for ci := 0; ci < chunks; ci++ {
		lo := ci * cullChunkSize
		hi := lo + cullChunkSize
		if hi > len(live) {
			hi = len(live)
		}

		wg.Add(1)
		idx := ci
		chunk := live[lo:hi]
		s.cullPool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				kept := make([]lightCandidate, 0, len(chunk))
				for _, rec := range chunk {
					dx := rec.Position[0] - view.CameraPosition[0]
					dy := rec.Position[1] - view.CameraPosition[1]
					dz := rec.Position[2] - view.CameraPosition[2]
					dist := float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
					if dist > MaxLightDistance {
						continue
					}

					bound := rec.Radius
					if rec.Shape == LightShapeBox {
						bound = boxBound(rec.Extent)
					}
					inFrustum := view.Frustum.IntersectsSphere(
						rec.Position[0], rec.Position[1], rec.Position[2],
						bound, FrustumCullMargin,
					)
					if !inFrustum && dist > NearAlwaysKeepDistance {
						continue
					}
					kept = append(kept, lightCandidate{record: rec, distance: dist, inFrustum: inFrustum})
				}
				results[idx] = kept
				return nil, nil
			},
		})
	}
	wg.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]lightCandidate, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// marshalVolumesLocked serializes every live density volume in ID order. The
// volume count in the frame constants bounds GPU reads, so no tail fill is
// needed. Caller must hold the mutex.
func (s *streamerImpl) marshalVolumesLocked() ([]byte, int) {
	out := make([]byte, 0, s.volumeCount*32)
	count := 0
	for i := DensityVolumeID(0); i < s.volumeNext; i++ {
		if !s.volumesLive[i] {
			continue
		}
		v := s.volumes[i]
		g := GPUDensityVolume{
			Center:     v.Center,
			Density:    v.Density,
			HalfExtent: v.HalfExtent,
			Falloff:    v.Falloff,
		}
		out = append(out, g.Marshal()...)
		count++
	}
	return out, count
}

// lightToGPU converts a CPU record to its GPU layout. Box shape is encoded as
// a negated radius so the shader branches on sign.
func lightToGPU(rec LightRecord) GPULight {
	g := GPULight{
		Position:  rec.Position,
		Radius:    rec.Radius,
		Color:     rec.Color,
		Intensity: rec.Intensity,
		Extent:    rec.Extent,
	}
	if rec.Shape == LightShapeBox {
		g.Radius = -absF32(rec.Radius)
		if g.Radius == 0 {
			g.Radius = -boxBound(rec.Extent)
		}
	}
	return g
}

// boxBound returns the bounding sphere radius of a box with the given half extents.
func boxBound(extent [3]float32) float32 {
	return float32(math.Sqrt(float64(
		extent[0]*extent[0] + extent[1]*extent[1] + extent[2]*extent[2],
	)))
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
