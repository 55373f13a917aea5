// Package window provides platform windowing, input event handling, and the
// viewport interaction state the bake scheduler consults before spending
// frame time on probe work.
package window

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
)

// navigationDecay is how long after the last orbit/zoom input the viewport
// still counts as navigating. Keeps the bake paused through the gaps between
// scroll ticks.
const navigationDecay = 250 * time.Millisecond

// Window provides platform windowing and input event handling.
// Wraps platform-specific window implementations with a common interface.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the window is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMouseMoveCallback(callback func(x, y int32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Navigating reports whether the user is currently orbiting or zooming
	// the viewport: the middle mouse button is held, or an orbit/zoom input
	// arrived within the decay interval.
	//
	// Returns:
	//   - bool: true while viewport navigation is in progress
	Navigating() bool

	// AnimationPlaying reports whether scene animation playback is active.
	//
	// Returns:
	//   - bool: true while playback is active
	AnimationPlaying() bool

	// SetAnimationPlaying marks scene animation playback active or stopped.
	// Probe baking is suspended while playback runs.
	//
	// Parameters:
	//   - playing: true if playback is active
	SetAnimationPlaying(playing bool)

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current window client area width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current window client area height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, event callbacks, and the derived
// viewport interaction state.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// width is the current window client area width in pixels.
	width int

	// height is the current window client area height in pixels.
	height int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// navMu guards the interaction state, which is read from the render loop
	// and written from GLFW callbacks.
	navMu sync.Mutex

	// orbiting is true while the middle mouse button is held.
	orbiting bool

	// lastNavInput is when the last orbit/zoom input arrived.
	lastNavInput time.Time

	// animationPlaying is set by the host while playback runs.
	animationPlaying bool

	// onUpdate is called each iteration of the message loop (if set).
	onUpdate func()

	// onResize is called when the window is resized.
	onResize func(width, height int)

	// onScroll is called for mouse wheel events.
	onScroll func(delta float32)

	// onKeyDown is called when a key is pressed.
	onKeyDown func(keyCode uint32)

	// onKeyUp is called when a key is released.
	onKeyUp func(keyCode uint32)

	// onMouseMove is called when the mouse moves within the window.
	onMouseMove func(x, y int32)
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window (not yet spawned)
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:  "Lumen Viewport",
		width:  1280,
		height: 720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) Navigating() bool {
	w.navMu.Lock()
	defer w.navMu.Unlock()
	return w.orbiting || time.Since(w.lastNavInput) < navigationDecay
}

func (w *engineWindow) AnimationPlaying() bool {
	w.navMu.Lock()
	defer w.navMu.Unlock()
	return w.animationPlaying
}

func (w *engineWindow) SetAnimationPlaying(playing bool) {
	w.navMu.Lock()
	defer w.navMu.Unlock()
	w.animationPlaying = playing
}

// noteNavInput records a transient orbit/zoom input such as a scroll tick.
func (w *engineWindow) noteNavInput() {
	w.navMu.Lock()
	defer w.navMu.Unlock()
	w.lastNavInput = time.Now()
}

// setOrbiting records the middle-mouse drag state.
func (w *engineWindow) setOrbiting(orbiting bool) {
	w.navMu.Lock()
	defer w.navMu.Unlock()
	w.orbiting = orbiting
	if !orbiting {
		w.lastNavInput = time.Now()
	}
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
