package camera

// CameraControllerBuilderOption is a functional option applied to a
// CameraController during construction.
type CameraControllerBuilderOption func(*flyCameraController)

// WithPosition sets the controller's initial world-space position.
//
// Parameters:
//   - x, y, z: world-space coordinates
//
// Returns:
//   - CameraControllerBuilderOption: functional option to set the position
func WithPosition(x, y, z float32) CameraControllerBuilderOption {
	return func(c *flyCameraController) {
		c.x, c.y, c.z = x, y, z
	}
}

// WithAngles sets the controller's initial yaw and pitch.
//
// Parameters:
//   - yaw: horizontal look angle in radians
//   - pitch: vertical look angle in radians
//
// Returns:
//   - CameraControllerBuilderOption: functional option to set the angles
func WithAngles(yaw, pitch float32) CameraControllerBuilderOption {
	return func(c *flyCameraController) {
		c.yaw = yaw
		c.pitch = pitch
		if c.pitch > pitchLimit {
			c.pitch = pitchLimit
		}
		if c.pitch < -pitchLimit {
			c.pitch = -pitchLimit
		}
	}
}

// WithMoveSpeed sets the movement speed in world units per second.
//
// Parameters:
//   - speed: the movement speed, ignored when <= 0
//
// Returns:
//   - CameraControllerBuilderOption: functional option to set the move speed
func WithMoveSpeed(speed float32) CameraControllerBuilderOption {
	return func(c *flyCameraController) {
		if speed > 0 {
			c.moveSpeed = speed
		}
	}
}

// WithTurnSpeed sets the rotation speed in radians per second.
//
// Parameters:
//   - speed: the rotation speed, ignored when <= 0
//
// Returns:
//   - CameraControllerBuilderOption: functional option to set the turn speed
func WithTurnSpeed(speed float32) CameraControllerBuilderOption {
	return func(c *flyCameraController) {
		if speed > 0 {
			c.turnSpeed = speed
		}
	}
}
