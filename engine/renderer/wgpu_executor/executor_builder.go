package wgpu_executor

import (
	"time"

	"github.com/cogentcore/webgpu/wgpu"
)

// ExecutorBuilderOption configures the executor during construction.
type ExecutorBuilderOption func(*executorImpl)

// WithSurfaceDescriptor renders the external framebuffer into a window surface. Without
// it the executor runs headless and the external target is an offscreen texture.
//
// Parameters:
//   - desc: the platform surface descriptor, typically from the window
//
// Returns:
//   - ExecutorBuilderOption: option function to apply
func WithSurfaceDescriptor(desc *wgpu.SurfaceDescriptor) ExecutorBuilderOption {
	return func(e *executorImpl) {
		e.surfaceDescriptor = desc
	}
}

// WithForceFallbackAdapter requests the software adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - ExecutorBuilderOption: option function to apply
func WithForceFallbackAdapter(force bool) ExecutorBuilderOption {
	return func(e *executorImpl) {
		e.forceFallback = force
	}
}

// WithVSync presents surface frames with FIFO instead of immediately.
//
// Parameters:
//   - vsync: true to synchronise presentation with the display
//
// Returns:
//   - ExecutorBuilderOption: option function to apply
func WithVSync(vsync bool) ExecutorBuilderOption {
	return func(e *executorImpl) {
		if vsync {
			e.presentMode = wgpu.PresentModeFifo
		} else {
			e.presentMode = wgpu.PresentModeImmediate
		}
	}
}

// WithReadbackTimeout bounds how long ReadPixels waits for the device while a
// submission is being encoded.
//
// Parameters:
//   - d: the timeout
//
// Returns:
//   - ExecutorBuilderOption: option function to apply
func WithReadbackTimeout(d time.Duration) ExecutorBuilderOption {
	return func(e *executorImpl) {
		e.readbackTimeout = d
	}
}
