package engine

import (
	"time"

	"github.com/lumen-engine/lumen-go/engine/lightprobe"
	"github.com/lumen-engine/lumen-go/engine/monitor"
	"github.com/lumen-engine/lumen-go/engine/probe"
	"github.com/lumen-engine/lumen-go/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithPipeline sets the light probe bake pipeline the engine drives each
// render frame. Without a pipeline the render loop only fires the render
// callback.
//
// Parameters:
//   - p: a constructed (but not necessarily initialized) bake pipeline
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPipeline(p lightprobe.Pipeline) EngineBuilderOption {
	return func(e *engine) {
		e.pipeline = p
	}
}

// WithMonitor attaches a bake progress monitor. The engine publishes a
// snapshot to it every frame; starting and stopping the monitor remains the
// caller's responsibility.
//
// Parameters:
//   - m: the monitor to publish snapshots to
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMonitor(m monitor.Monitor) EngineBuilderOption {
	return func(e *engine) {
		e.monitor = m
	}
}

// WithProbe registers a probe at the given ordering key during engine
// construction. Probes are fed to the bake pipeline in ascending key order,
// so the world probe should use the lowest key.
//
// Parameters:
//   - key: the ordering key (lower feeds first)
//   - p: the probe to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProbe(key int, p probe.Probe) EngineBuilderOption {
	return func(e *engine) {
		e.probes[key] = p
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
