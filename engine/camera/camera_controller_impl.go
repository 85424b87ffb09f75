package camera

import (
	"math"
	"sync"
)

// pitchLimit keeps the look direction off the world up axis so LookAt always
// has a usable right vector.
const pitchLimit = float32(math.Pi/2) - 0.01

// flyCameraController implements CameraController as a free-fly camera.
type flyCameraController struct {
	mu *sync.Mutex

	x, y, z float32
	yaw     float32
	pitch   float32

	moveSpeed float32
	turnSpeed float32
}

var _ CameraController = &flyCameraController{}

// NewCameraController creates a free-fly CameraController with the provided options.
//
// Parameters:
//   - options: functional options for initial position, angles, and speeds
//
// Returns:
//   - CameraController: the configured controller
func NewCameraController(options ...CameraControllerBuilderOption) CameraController {
	c := &flyCameraController{
		mu:        &sync.Mutex{},
		moveSpeed: 30.0,
		turnSpeed: 1.5,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *flyCameraController) Position() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.x, c.y, c.z
}

func (c *flyCameraController) Target() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dx, dy, dz := c.lookDirLocked()
	return c.x + dx, c.y + dy, c.z + dz
}

func (c *flyCameraController) SetPosition(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.x, c.y, c.z = x, y, z
}

func (c *flyCameraController) MoveForward(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Horizontal forward only; vertical travel goes through MoveUp.
	sinYaw, cosYaw := sincos(c.yaw)
	c.x += sinYaw * delta
	c.z -= cosYaw * delta
}

func (c *flyCameraController) MoveRight(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sinYaw, cosYaw := sincos(c.yaw)
	c.x += cosYaw * delta
	c.z += sinYaw * delta
}

func (c *flyCameraController) MoveUp(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.y += delta
}

func (c *flyCameraController) Turn(yawDelta, pitchDelta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.yaw += yawDelta
	c.pitch += pitchDelta
	if c.pitch > pitchLimit {
		c.pitch = pitchLimit
	}
	if c.pitch < -pitchLimit {
		c.pitch = -pitchLimit
	}
}

func (c *flyCameraController) Yaw() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.yaw
}

func (c *flyCameraController) Pitch() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pitch
}

func (c *flyCameraController) MoveSpeed() float32 {
	return c.moveSpeed
}

func (c *flyCameraController) TurnSpeed() float32 {
	return c.turnSpeed
}

// lookDirLocked returns the unit look direction from yaw and pitch. Caller
// must hold the mutex.
func (c *flyCameraController) lookDirLocked() (x, y, z float32) {
	sinYaw, cosYaw := sincos(c.yaw)
	sinPitch, cosPitch := sincos(c.pitch)
	return sinYaw * cosPitch, sinPitch, -cosYaw * cosPitch
}

func sincos(a float32) (sin, cos float32) {
	s, c := math.Sincos(float64(a))
	return float32(s), float32(c)
}
