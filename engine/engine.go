package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-sg/engine/log"
	"github.com/Carmen-Shannon/oxy-sg/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-sg/engine/scene"
	"github.com/Carmen-Shannon/oxy-sg/engine/window"
)

// ErrNoRenderer is returned by RenderFrame and Run when the engine was built
// without a renderer.
var ErrNoRenderer = errors.New("engine: no renderer")

// engine implements the Engine interface.
// The tick loop runs on its own goroutine; frames are rendered on the goroutine that
// calls Run, which owns the window and the GL context.
type engine struct {
	mu     sync.Mutex
	logger log.Logger

	tickRateChannel chan time.Duration

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window   window.Window
	renderer renderer.Renderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32, stats sorter.Stats)

	scenes  map[int]scene.Scene
	target  texture.RenderTexture
	targets map[int]*renderer.RenderTarget

	renderFrameLimit time.Duration
	frames           int
}

// Engine drives the frame loop: scenes are rendered through the renderer in
// ascending key order, while a separate tick loop runs the
// application's fixed-rate updates.
type Engine interface {
	// Window returns the window, nil for offscreen engines.
	Window() window.Window

	// Renderer returns the renderer.
	Renderer() renderer.Renderer

	// Profiler returns the profiler.
	Profiler() *profiler.Profiler

	// EnableProfiler enables interval profiling reports in the log.
	EnableProfiler()

	// DisableProfiler disables profiling reports.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds and the frame's statistics
	SetRenderCallback(callback func(deltaTime float32, stats sorter.Stats))

	// SetRenderFrameLimit caps the render loop at fps frames per second. 0 uncaps it.
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given key. Scenes render in ascending key
	// order.
	//
	// Parameters:
	//   - key: the render order
	//   - s: the scene
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given key and drops its render target.
	RemoveScene(key int)

	// Scene returns the scene at key, nil if none.
	Scene(key int) scene.Scene

	// Scenes returns a copy of the registered scenes keyed by render order.
	Scenes() map[int]scene.Scene

	// RenderFrame renders every scene once.
	//
	// Parameters:
	//   - ctx: bounds fence waits and collider locking
	//
	// Returns:
	//   - sorter.Stats: the summed statistics of every scene
	//   - error: the first frame-level error; later scenes still render
	RenderFrame(ctx context.Context) (sorter.Stats, error)

	// Run starts the tick loop and renders frames on the calling goroutine until
	// ctx ends, Quit is called, the window closes, or maxFrames frames have been
	// rendered. maxFrames <= 0 renders without limit.
	//
	// Parameters:
	//   - ctx: stops the loop when done
	//   - maxFrames: the frame limit
	//
	// Returns:
	//   - error: the first frame error, or ctx's error when it ended the loop
	Run(ctx context.Context, maxFrames int) error

	// Frames returns the number of frames rendered so far.
	Frames() int

	// Quit stops Run. Safe to call multiple times.
	Quit()
}

// NewEngine creates an engine.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		logger:          log.New("engine"),
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		targets:         make(map[int]*renderer.RenderTarget),
		profiler:        profiler.NewProfiler(time.Second),
		engineTickRate:  time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if e.renderer != nil {
				e.renderer.Resize(width, height)
			}
			if height == 0 {
				return
			}
			for _, s := range e.Scenes() {
				if c := s.Camera(); c != nil {
					c.SetAspect(float32(width) / float32(height))
				}
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

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Frames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// orderedScenes returns the scenes and their keys in ascending key order.
func (e *engine) orderedScenes() ([]int, []scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]scene.Scene, len(keys))
	for i, k := range keys {
		out[i] = e.scenes[k]
	}
	return keys, out
}

// renderTarget returns the target of the scene at key, creating it on first use.
func (e *engine) renderTarget(key int) *renderer.RenderTarget {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.targets[key]
	if !ok {
		t = e.renderer.NewRenderTarget(e.target)
		e.targets[key] = t
	}
	return t
}

func (e *engine) RenderFrame(ctx context.Context) (sorter.Stats, error) {
	var total sorter.Stats
	if e.renderer == nil {
		return total, ErrNoRenderer
	}

	var firstErr error
	keys, scenes := e.orderedScenes()
	for i, s := range scenes {
		stats, err := e.renderer.RenderTarget(ctx, s, e.renderTarget(keys[i]))
		total.Add(stats)
		if err != nil {
			e.logger.Errorf("scene %q: %v", s.Name(), err)
			if firstErr == nil {
				firstErr = fmt.Errorf("rendering scene %q: %w", s.Name(), err)
			}
		}
	}

	e.mu.Lock()
	e.frames++
	e.mu.Unlock()
	return total, firstErr
}

func (e *engine) Run(ctx context.Context, maxFrames int) error {
	if e.renderer == nil {
		return ErrNoRenderer
	}

	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	e.wg.Add(1)
	go e.handleEngine()
	defer func() {
		e.Quit()
		e.wg.Wait()
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	var firstErr error
	lastRender := time.Now()
	for rendered := 0; maxFrames <= 0 || rendered < maxFrames; rendered++ {
		select {
		case <-ctx.Done():
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			return firstErr
		case <-e.quitChannel:
			return firstErr
		default:
		}
		if e.window != nil && !e.window.PollEvents() {
			return firstErr
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		stats, err := e.RenderFrame(ctx)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if e.window != nil {
			e.window.SwapBuffers()
		}

		if e.renderCallback != nil {
			e.renderCallback(dt, stats)
		}
		if e.profilingEnabled {
			e.profiler.Tick(stats)
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(lastRender); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
	return firstErr
}

// handleEngine runs the fixed-rate tick loop until the quit channel closes.
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
		}
	}
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	e.engineTickRate = newRate
	e.mu.Unlock()
	if !running {
		return
	}
	// replace any pending update
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32, stats sorter.Stats)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
	delete(e.targets, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
