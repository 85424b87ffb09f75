package camera

import "testing"

func TestCameraRetainsPreviousFrame(t *testing.T) {
	ctrl := NewCameraController(WithPosition(0, 5, -20))
	cam := NewCamera(
		WithAspect(16.0/9.0),
		WithNear(0.5),
		WithFar(250),
		WithController(ctrl),
	)

	if cam.HasPreviousFrame() {
		t.Fatal("no previous frame should exist before the first Update")
	}

	cam.Update()
	firstVP := cam.ViewProjectionMatrix()

	ctrl.SetPosition(10, 5, -20)
	cam.Update()

	if !cam.HasPreviousFrame() {
		t.Fatal("previous frame should be available after two updates")
	}
	if cam.PreviousViewProjectionMatrix() != firstVP {
		t.Fatal("previous view-projection should be the matrix the prior frame rendered with")
	}
	px, py, pz := cam.PreviousPosition()
	if px != 0 || py != 5 || pz != -20 {
		t.Fatalf("previous position = (%g, %g, %g), want (0, 5, -20)", px, py, pz)
	}
	if cam.ViewProjectionMatrix() == firstVP {
		t.Fatal("current view-projection should reflect the moved camera")
	}
}

func TestCameraWithoutControllerNeverRetains(t *testing.T) {
	cam := NewCamera()
	cam.Update()
	cam.Update()
	if cam.HasPreviousFrame() {
		t.Fatal("a camera with no controller computes no frames to retain")
	}
}
