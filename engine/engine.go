package engine

import (
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/haze-go/engine/camera"
	"github.com/Carmen-Shannon/haze-go/engine/profiler"
	"github.com/Carmen-Shannon/haze-go/engine/renderer"
	"github.com/Carmen-Shannon/haze-go/engine/volumetric"
	"github.com/Carmen-Shannon/haze-go/engine/window"
)

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate    time.Duration
	tickCallback      func(deltaTime float32)
	renderCallback    func(deltaTime float32)
	sceneDrawCallback func()

	renderer renderer.Renderer
	camera   camera.Camera
	fog      volumetric.Pipeline

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It orchestrates the engine loop, render loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer driving the frame.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance or nil
	Renderer() renderer.Renderer

	// Camera returns the camera the frame is rendered from.
	//
	// Returns:
	//   - camera.Camera: the camera instance or nil
	Camera() camera.Camera

	// Volumetrics returns the volumetric fog pipeline.
	//
	// Returns:
	//   - volumetric.Pipeline: the pipeline instance or nil
	Volumetrics() volumetric.Pipeline

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, input processing, and light animation updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetSceneDrawCallback registers the function called inside the render
	// pass, before the fog composite. Encode scene geometry draw calls here so
	// the fog layers over them.
	//
	// Parameters:
	//   - callback: function that encodes draw calls on the renderer
	SetSceneDrawCallback(callback func())

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the main engine loop (blocks until window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (window, renderer, camera, volumetrics, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if e.renderer != nil {
				e.renderer.Resize(width, height)
			}
			if e.camera != nil && height > 0 {
				e.camera.SetAspect(float32(width) / float32(height))
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Volumetrics() volumetric.Pipeline {
	return e.fog
}

func (e *engine) Run() {
	e.handle()
	e.window.ProcessMessages()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Each frame encodes the volumetric compute passes, then composites the fog over
// the cleared scene in a single render pass and presents.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			e.renderFrame()

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame runs one full frame: camera refresh, volumetric compute encode,
// render pass with the fog composite, and present. A device-level failure in
// the compute encode is fatal and shuts the engine down.
func (e *engine) renderFrame() {
	if e.renderer == nil {
		return
	}

	var cam volumetric.FrameCamera
	if e.camera != nil {
		e.camera.Update()
		cam.ViewProjection = e.camera.ViewProjectionMatrix()
		cam.PrevViewProjection = e.camera.PreviousViewProjectionMatrix()
		cam.PrevPosition[0], cam.PrevPosition[1], cam.PrevPosition[2] = e.camera.PreviousPosition()
		cam.HavePrev = e.camera.HasPreviousFrame()
		if ctrl := e.camera.Controller(); ctrl != nil {
			cam.Position[0], cam.Position[1], cam.Position[2] = ctrl.Position()
		}
	}

	if e.fog != nil {
		width, height := 1, 1
		if e.window != nil {
			width, height = e.window.Width(), e.window.Height()
		}
		if err := e.fog.EncodeCompute(cam, width, height); err != nil {
			log.Printf("[Engine] fatal render error: %v", err)
			e.signalQuit()
			return
		}
	}

	if err := e.renderer.BeginFrame(); err == nil {
		// Scene geometry draws first so the fog composites over it.
		if e.sceneDrawCallback != nil {
			e.sceneDrawCallback()
		}
		if e.fog != nil {
			if err := e.fog.Composite(); err != nil {
				log.Printf("[Engine] composite failed: %v", err)
			}
		}
		e.renderer.EndFrame()
		e.renderer.Present()
	}

	if e.fog != nil {
		e.fog.FrameComplete()
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Send to channel for immediate update in running engine loop
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			// Channel has a pending update, drain and send new value
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		// Engine not running, just update the field
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetSceneDrawCallback registers the in-pass scene geometry hook.
func (e *engine) SetSceneDrawCallback(callback func()) {
	e.sceneDrawCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}
