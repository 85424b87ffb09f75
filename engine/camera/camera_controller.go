package camera

// CameraController defines the interface for camera control systems.
// Controllers own positional state (position and look direction); Camera reads
// from the controller and computes view/projection matrices.
//
// This controller is a free-fly camera: yaw and pitch angles define the look
// direction and movement translates along the camera's local axes.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - x, y, z: world-space camera position
	Position() (x, y, z float32)

	// Target returns the point the camera is looking at, one unit along the
	// current look direction.
	//
	// Returns:
	//   - x, y, z: world-space target position
	Target() (x, y, z float32)

	// SetPosition sets the camera's world-space position directly.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetPosition(x, y, z float32)

	// MoveForward translates along the horizontal look direction. Positive
	// delta moves forward, negative backward.
	//
	// Parameters:
	//   - delta: distance scaled by MoveSpeed
	MoveForward(delta float32)

	// MoveRight translates along the camera's local right axis.
	//
	// Parameters:
	//   - delta: distance scaled by MoveSpeed
	MoveRight(delta float32)

	// MoveUp translates along the world up axis.
	//
	// Parameters:
	//   - delta: distance scaled by MoveSpeed
	MoveUp(delta float32)

	// Turn rotates the look direction. Pitch is clamped short of straight up
	// and straight down so the view matrix never degenerates.
	//
	// Parameters:
	//   - yawDelta: horizontal rotation in radians, positive turns right
	//   - pitchDelta: vertical rotation in radians, positive looks up
	Turn(yawDelta, pitchDelta float32)

	// Yaw returns the current horizontal look angle.
	//
	// Returns:
	//   - float32: yaw in radians
	Yaw() float32

	// Pitch returns the current vertical look angle.
	//
	// Returns:
	//   - float32: pitch in radians
	Pitch() float32

	// MoveSpeed returns the movement speed in world units per second.
	//
	// Returns:
	//   - float32: the movement speed
	MoveSpeed() float32

	// TurnSpeed returns the rotation speed in radians per second.
	//
	// Returns:
	//   - float32: the rotation speed
	TurnSpeed() float32
}
