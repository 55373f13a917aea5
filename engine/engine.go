package engine

import (
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumen-engine/lumen-go/engine/lightprobe"
	"github.com/lumen-engine/lumen-go/engine/monitor"
	"github.com/lumen-engine/lumen-go/engine/probe"
	"github.com/lumen-engine/lumen-go/engine/profiler"
	"github.com/lumen-engine/lumen-go/engine/window"
)

// idleFrameDelay is how long the render loop sleeps when the bake scheduler
// reports no remaining work and no redraw has been requested. Keeps the loop
// from spinning at full speed on a fully baked scene.
const idleFrameDelay = 4 * time.Millisecond

// engine implements the Engine interface.
// Coordinates engine, bake, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	pipeline lightprobe.Pipeline
	monitor  monitor.Monitor
	probes   map[int]probe.Probe

	redrawPending atomic.Bool

	// Bake throughput window for the monitor snapshot.
	bakeWindowStart time.Time
	bakeWindowCount int
	bakesPerSec     float64

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It orchestrates the bake loop, logic tick loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Pipeline returns the light probe bake pipeline driven by the engine,
	// or nil if none was configured.
	//
	// Returns:
	//   - lightprobe.Pipeline: the bake pipeline instance
	Pipeline() lightprobe.Pipeline

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
	// Use this for game logic, input processing, and probe transform updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame,
	// after the probe registry feed and bake step for that frame.
	// Use this for drawing the scene with the current probe data.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddProbe registers a probe at the given key. Probes are fed to the
	// bake pipeline in ascending key order each frame, so the world probe
	// should use the lowest key.
	//
	// Parameters:
	//   - key: ordering key (lower feeds first)
	//   - p: the probe to register
	AddProbe(key int, p probe.Probe)

	// RemoveProbe removes the probe at the given key.
	//
	// Parameters:
	//   - key: the key of the probe to remove
	RemoveProbe(key int)

	// Probe retrieves the probe registered at the given key.
	// Returns nil if no probe exists at that key.
	//
	// Parameters:
	//   - key: the key of the probe to retrieve
	//
	// Returns:
	//   - probe.Probe: the probe at the key, or nil if not found
	Probe(key int) probe.Probe

	// Probes returns a copy of all registered probes keyed by ordering key.
	//
	// Returns:
	//   - map[int]probe.Probe: a copy of the probes map
	Probes() map[int]probe.Probe

	// RequestRedraw asks the render loop to run another frame immediately
	// instead of idling. The bake pipeline calls this after every completed
	// bake unit so a queued bake resumes on the very next frame.
	RequestRedraw()

	// Run starts the main engine loop (blocks until window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Initializes channels and profiler with sensible defaults.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (window, pipeline, monitor, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		probes:           make(map[int]probe.Probe),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
		bakeWindowStart:  time.Now(),
	}

	for _, opt := range options {
		opt(e)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Pipeline() lightprobe.Pipeline {
	return e.pipeline
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

func (e *engine) RequestRedraw() {
	e.redrawPending.Store(true)
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

// handleRender runs the render loop in its own goroutine.
// Each frame: open the probe registry, feed all registered probes in key
// order, close the registry (which syncs GPU data), then run one bake
// scheduler step. At most one bake unit executes per frame so the viewport
// stays responsive while grids and reflection probes refresh.
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

			baked := false
			if e.pipeline != nil {
				baked = e.runBakeFrame()
			}

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
			} else if !baked && !e.redrawPending.Swap(false) {
				// Nothing baked and nobody asked for another frame.
				time.Sleep(idleFrameDelay)
			}
		}
	}
}

// runBakeFrame drives one full pipeline frame: registration of every probe
// in ascending key order, GPU sync, and a single bake step. Returns whether a
// bake unit was performed.
func (e *engine) runBakeFrame() bool {
	e.pipeline.BeginFrame()

	keys := make([]int, 0, len(e.probes))
	for k := range e.probes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		e.pipeline.Register(e.probes[k])
	}

	if err := e.pipeline.EndFrame(); err != nil {
		log.Printf("[Engine] probe sync failed: %v", err)
	}

	baked := e.pipeline.Step()
	if baked {
		e.countBake()
	}
	e.publishSnapshot()
	return baked
}

// countBake attributes the bake unit that just ran to the profiler and the
// throughput window, based on where the scheduler ended up.
func (e *engine) countBake() {
	e.bakeWindowCount++

	if e.profiler == nil {
		return
	}
	switch e.pipeline.State().Kind {
	case lightprobe.StateWorldDirty:
		e.profiler.CountWorldBake()
	case lightprobe.StateBounceSweeping:
		e.profiler.CountGridBake()
	case lightprobe.StateCubeSweeping:
		e.profiler.CountCubeBake()
	}
}

// publishSnapshot pushes the current bake progress to the monitor, if one
// is attached. The bakes/sec figure is averaged over a one second window.
func (e *engine) publishSnapshot() {
	if elapsed := time.Since(e.bakeWindowStart); elapsed >= time.Second {
		e.bakesPerSec = float64(e.bakeWindowCount) / elapsed.Seconds()
		e.bakeWindowCount = 0
		e.bakeWindowStart = time.Now()
	}

	if e.monitor == nil {
		return
	}

	info := e.pipeline.Info()
	e.monitor.Publish(monitor.Snapshot{
		State:         e.pipeline.State().Kind.String(),
		NumCube:       info.NumCube,
		NumGrid:       info.NumGrid,
		NumRenderCube: info.NumRenderCube,
		NumRenderGrid: info.NumRenderGrid,
		UpdatedBounce: info.UpdatedBounce,
		WorldReady:    e.pipeline.WorldReadyToShade(),
		BakesPerSec:   e.bakesPerSec,
	})
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

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) AddProbe(key int, p probe.Probe) {
	e.probes[key] = p
}

func (e *engine) RemoveProbe(key int) {
	delete(e.probes, key)
}

func (e *engine) Probe(key int) probe.Probe {
	return e.probes[key]
}

func (e *engine) Probes() map[int]probe.Probe {
	cp := make(map[int]probe.Probe, len(e.probes))
	for k, v := range e.probes {
		cp[k] = v
	}
	return cp
}
