package volumetric

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

// captureWriter records table uploads per slot for inspection.
type captureWriter struct {
	lights  map[int][]byte
	volumes map[int][]byte
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{lights: map[int][]byte{}, volumes: map[int][]byte{}}
}

func (c *captureWriter) WriteLightTable(slot int, data []byte) {
	c.lights[slot] = append([]byte(nil), data...)
}

func (c *captureWriter) WriteDensityTable(slot int, data []byte) {
	c.volumes[slot] = append([]byte(nil), data...)
}

// allAcceptingView culls nothing: the zero frustum accepts every sphere and
// the camera sits at the origin next to the test lights.
func allAcceptingView() FrameView {
	return FrameView{}
}

func tableFloat(data []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[offset : offset+4]))
}

func TestLightFreelistReusesIDs(t *testing.T) {
	s := NewStreamer()

	a, err := s.AddLight(LightRecord{Position: [3]float32{1, 2, 3}, Radius: 5, Intensity: 1})
	if err != nil {
		t.Fatalf("AddLight failed: %v", err)
	}
	b, err := s.AddLight(LightRecord{Position: [3]float32{4, 5, 6}, Radius: 5, Intensity: 1})
	if err != nil {
		t.Fatalf("AddLight failed: %v", err)
	}
	if a == b {
		t.Fatalf("distinct lights share ID %d", a)
	}

	if err := s.RemoveLight(a); err != nil {
		t.Fatalf("RemoveLight failed: %v", err)
	}
	if err := s.UpdateLight(a, LightRecord{}); err == nil {
		t.Fatal("UpdateLight on a removed ID should fail")
	}

	c, err := s.AddLight(LightRecord{Position: [3]float32{7, 8, 9}, Radius: 5, Intensity: 1})
	if err != nil {
		t.Fatalf("AddLight failed: %v", err)
	}
	if c != a {
		t.Fatalf("expected the removed ID %d to be recycled, got %d", a, c)
	}
	if got := s.LightCount(); got != 2 {
		t.Fatalf("expected 2 live lights, got %d", got)
	}
}

func TestRemovedLightNotResurrected(t *testing.T) {
	s := NewStreamer()

	id, err := s.AddLight(LightRecord{Position: [3]float32{50, 0, 0}, Radius: 9, Color: [3]float32{1, 0, 0}, Intensity: 7})
	if err != nil {
		t.Fatalf("AddLight failed: %v", err)
	}
	if err := s.RemoveLight(id); err != nil {
		t.Fatalf("RemoveLight failed: %v", err)
	}
	reused, err := s.AddLight(LightRecord{Position: [3]float32{1, 0, 0}, Radius: 2, Color: [3]float32{0, 1, 0}, Intensity: 3})
	if err != nil {
		t.Fatalf("AddLight failed: %v", err)
	}
	if reused != id {
		t.Fatalf("expected ID %d to be recycled, got %d", id, reused)
	}

	w := newCaptureWriter()
	stats := s.Publish(0, allAcceptingView(), w)
	if stats.LightsPublished != 1 {
		t.Fatalf("expected 1 published light, got %d", stats.LightsPublished)
	}
	table := w.lights[0]
	if len(table) != 48 {
		t.Fatalf("expected one 48-byte light entry, got %d bytes", len(table))
	}
	if got := tableFloat(table, 12); got != 2 {
		t.Fatalf("recycled slot carries stale radius %g, want 2", got)
	}
	if got := tableFloat(table, 28); got != 3 {
		t.Fatalf("recycled slot carries stale intensity %g, want 3", got)
	}
}

func TestLightTableFull(t *testing.T) {
	s := NewStreamer()
	for i := 0; i < MaxLights; i++ {
		if _, err := s.AddLight(LightRecord{Radius: 1, Intensity: 1}); err != nil {
			t.Fatalf("AddLight %d failed below capacity: %v", i, err)
		}
	}
	if _, err := s.AddLight(LightRecord{Radius: 1, Intensity: 1}); err == nil {
		t.Fatal("AddLight past capacity should fail")
	}
	if got := s.LightCount(); got != MaxLights {
		t.Fatalf("failed add must leave the registry untouched, count %d", got)
	}
}

func TestDensityVolumeFreelist(t *testing.T) {
	s := NewStreamer()

	a, err := s.AddDensityVolume(DensityVolumeRecord{HalfExtent: [3]float32{1, 1, 1}, Density: 1})
	if err != nil {
		t.Fatalf("AddDensityVolume failed: %v", err)
	}
	if err := s.RemoveDensityVolume(a); err != nil {
		t.Fatalf("RemoveDensityVolume failed: %v", err)
	}
	if err := s.RemoveDensityVolume(a); err == nil {
		t.Fatal("double remove should fail")
	}
	b, err := s.AddDensityVolume(DensityVolumeRecord{HalfExtent: [3]float32{2, 2, 2}, Density: 2})
	if err != nil {
		t.Fatalf("AddDensityVolume failed: %v", err)
	}
	if b != a {
		t.Fatalf("expected the removed ID %d to be recycled, got %d", a, b)
	}
	if got := s.DensityVolumeCount(); got != 1 {
		t.Fatalf("expected 1 live volume, got %d", got)
	}
}

func TestPublishWritesDensityTableOncePerChange(t *testing.T) {
	s := NewStreamer()
	if _, err := s.AddDensityVolume(DensityVolumeRecord{HalfExtent: [3]float32{5, 5, 5}, Density: 0.5}); err != nil {
		t.Fatalf("AddDensityVolume failed: %v", err)
	}

	w := newCaptureWriter()
	stats := s.Publish(0, allAcceptingView(), w)
	if !stats.DensityTableWrote {
		t.Fatal("first publish into a slot should write the density table")
	}
	if len(w.volumes[0]) != 32 {
		t.Fatalf("expected one 32-byte volume entry, got %d bytes", len(w.volumes[0]))
	}
	s.ReleaseSlot(0)

	// The other slot is still dirty, this one is clean until the next change.
	stats = s.Publish(0, allAcceptingView(), w)
	if stats.DensityTableWrote {
		t.Fatal("unchanged registry should not rewrite the density table")
	}
	s.ReleaseSlot(0)

	stats = s.Publish(1, allAcceptingView(), w)
	if !stats.DensityTableWrote {
		t.Fatal("the other slot has not seen the table yet")
	}
	s.ReleaseSlot(1)

	if _, err := s.AddDensityVolume(DensityVolumeRecord{HalfExtent: [3]float32{1, 1, 1}, Density: 1}); err != nil {
		t.Fatalf("AddDensityVolume failed: %v", err)
	}
	stats = s.Publish(0, allAcceptingView(), w)
	if !stats.DensityTableWrote {
		t.Fatal("a registry change should mark every slot dirty again")
	}
	s.ReleaseSlot(0)
}

func TestPublishZeroesStaleTail(t *testing.T) {
	s := NewStreamer()
	keep, err := s.AddLight(LightRecord{Position: [3]float32{1, 0, 0}, Radius: 2, Intensity: 1})
	if err != nil {
		t.Fatalf("AddLight failed: %v", err)
	}
	drop, err := s.AddLight(LightRecord{Position: [3]float32{2, 0, 0}, Radius: 2, Intensity: 1})
	if err != nil {
		t.Fatalf("AddLight failed: %v", err)
	}
	_ = keep

	w := newCaptureWriter()
	s.Publish(0, allAcceptingView(), w)
	if len(w.lights[0]) != 96 {
		t.Fatalf("expected two 48-byte entries, got %d bytes", len(w.lights[0]))
	}
	s.ReleaseSlot(0)

	if err := s.RemoveLight(drop); err != nil {
		t.Fatalf("RemoveLight failed: %v", err)
	}
	stats := s.Publish(0, allAcceptingView(), w)
	if stats.LightsPublished != 1 {
		t.Fatalf("expected 1 published light, got %d", stats.LightsPublished)
	}
	table := w.lights[0]
	if len(table) != 96 {
		t.Fatalf("upload must cover the previous 96 bytes to clear the tail, got %d", len(table))
	}
	for i := 48; i < 96; i++ {
		if table[i] != 0 {
			t.Fatalf("stale tail byte %d is %d, want 0", i, table[i])
		}
	}
	s.ReleaseSlot(0)
}

func TestPublishBlocksOnUnreleasedSlot(t *testing.T) {
	s := NewStreamer()
	w := newCaptureWriter()

	s.Publish(0, allAcceptingView(), w)
	s.Publish(1, allAcceptingView(), w)

	done := make(chan struct{})
	go func() {
		s.Publish(2, allAcceptingView(), w) // slot 0 again
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("publish into an unreleased slot must block")
	case <-time.After(50 * time.Millisecond):
	}

	s.ReleaseSlot(0)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish did not resume after the slot was released")
	}
}

func TestPublishCullsDistantLights(t *testing.T) {
	s := NewStreamer()
	if _, err := s.AddLight(LightRecord{Position: [3]float32{MaxLightDistance + 100, 0, 0}, Radius: 5, Intensity: 1}); err != nil {
		t.Fatalf("AddLight failed: %v", err)
	}
	if _, err := s.AddLight(LightRecord{Position: [3]float32{10, 0, 0}, Radius: 5, Intensity: 1}); err != nil {
		t.Fatalf("AddLight failed: %v", err)
	}

	w := newCaptureWriter()
	stats := s.Publish(0, allAcceptingView(), w)
	if stats.LightsPublished != 1 {
		t.Fatalf("expected the distant light to be culled, published %d", stats.LightsPublished)
	}
	if stats.LightsCulled != 1 {
		t.Fatalf("expected 1 culled light, got %d", stats.LightsCulled)
	}
	s.ReleaseSlot(0)
}

func TestPublishEncodesBoxShapeAsNegativeRadius(t *testing.T) {
	s := NewStreamer()
	if _, err := s.AddLight(LightRecord{
		Position:  [3]float32{0, 5, 0},
		Extent:    [3]float32{4, 2, 4},
		Color:     [3]float32{1, 1, 1},
		Intensity: 1,
		Shape:     LightShapeBox,
	}); err != nil {
		t.Fatalf("AddLight failed: %v", err)
	}

	w := newCaptureWriter()
	s.Publish(0, allAcceptingView(), w)
	table := w.lights[0]
	if len(table) != 48 {
		t.Fatalf("expected one light entry, got %d bytes", len(table))
	}
	if got := tableFloat(table, 12); got >= 0 {
		t.Fatalf("box lights must encode a negative radius, got %g", got)
	}
	s.ReleaseSlot(0)
}

func TestInvalidateTablesForcesReupload(t *testing.T) {
	s := NewStreamer()
	if _, err := s.AddDensityVolume(DensityVolumeRecord{HalfExtent: [3]float32{1, 1, 1}, Density: 1}); err != nil {
		t.Fatalf("AddDensityVolume failed: %v", err)
	}

	w := newCaptureWriter()
	s.Publish(0, allAcceptingView(), w)
	s.ReleaseSlot(0)

	s.InvalidateTables()
	stats := s.Publish(0, allAcceptingView(), w)
	if !stats.DensityTableWrote {
		t.Fatal("invalidation should force the density table to re-upload")
	}
	s.ReleaseSlot(0)
}
