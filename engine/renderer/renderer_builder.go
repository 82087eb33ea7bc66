package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithSortKeys sets the sort-key tuple of every main sorter the renderer creates.
// Shadow sorters keep their own keys.
//
// Parameters:
//   - keys: the sort keys, at most sorter.MaxSortKeys
//
// Returns:
//   - RendererBuilderOption: a function that applies the sort keys option to a renderer
func WithSortKeys(keys ...sorter.SortKey) RendererBuilderOption {
	return func(r *renderer) {
		r.sortKeys = append([]sorter.SortKey(nil), keys...)
	}
}

// WithMaxMatricesPerBlock sets the capacity of transform blocks. The default is
// sorter.DefaultMaxMatricesPerBlock.
//
// Parameters:
//   - n: the matrices per block, ignored when not positive
//
// Returns:
//   - RendererBuilderOption: a function that applies the block capacity option to a renderer
func WithMaxMatricesPerBlock(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n > 0 {
			r.maxMatrices = n
		}
	}
}

// WithMultiview renders stereo cameras in one pass, writing both eye matrices per draw.
// Only the gl backend supports it.
//
// Parameters:
//   - enable: true for multiview
//
// Returns:
//   - RendererBuilderOption: a function that applies the multiview option to a renderer
func WithMultiview(enable bool) RendererBuilderOption {
	return func(r *renderer) {
		r.multiview = enable
	}
}

// WithStencilBuffer clears the stencil buffer with every target and allocates stencil
// attachments for post-effect targets.
//
// Parameters:
//   - enable: true to use the stencil buffer
//
// Returns:
//   - RendererBuilderOption: a function that applies the stencil option to a renderer
func WithStencilBuffer(enable bool) RendererBuilderOption {
	return func(r *renderer) {
		r.stencil = enable
	}
}

// WithInvalidateShadowAttachments discards the unsampled attachments of shadow maps
// after their pass. Enabled by default.
//
// Parameters:
//   - enable: false to keep the attachments
//
// Returns:
//   - RendererBuilderOption: a function that applies the invalidation option to a renderer
func WithInvalidateShadowAttachments(enable bool) RendererBuilderOption {
	return func(r *renderer) {
		r.invalidateShadow = enable
	}
}

// WithFenceTimeout bounds fence waits of the wgpu backend. The default is DefaultFenceTimeout.
//
// Parameters:
//   - d: the timeout
//
// Returns:
//   - RendererBuilderOption: a function that applies the fence timeout option to a renderer
func WithFenceTimeout(d time.Duration) RendererBuilderOption {
	return func(r *renderer) {
		if d > 0 {
			r.fenceTimeout = d
		}
	}
}

// WithOcclusionCulling admits objects into main sorters through hardware occlusion
// queries. Only the gl backend supports it.
//
// Parameters:
//   - enable: true to cull occluded objects
//
// Returns:
//   - RendererBuilderOption: a function that applies the occlusion option to a renderer
func WithOcclusionCulling(enable bool) RendererBuilderOption {
	return func(r *renderer) {
		r.occlusion = enable
	}
}

// WithShaderGenerator replaces the backend's built-in shader generator.
//
// Parameters:
//   - g: the generator
//
// Returns:
//   - RendererBuilderOption: a function that applies the generator option to a renderer
func WithShaderGenerator(g shader.Generator) RendererBuilderOption {
	return func(r *renderer) {
		r.generator = g
	}
}

// WithGLContext supplies the context the gl backend drives.
//
// Parameters:
//   - ctx: the GL context, current on the render thread
//
// Returns:
//   - RendererBuilderOption: a function that applies the GL context option to a renderer
func WithGLContext(ctx GLContext) RendererBuilderOption {
	return func(r *renderer) {
		r.glContext = ctx
	}
}

// WithWGPUDevice supplies the command executor the wgpu backend submits to.
//
// Parameters:
//   - exec: the executor wrapping a WebGPU device
//
// Returns:
//   - RendererBuilderOption: a function that applies the device option to a renderer
func WithWGPUDevice(exec CommandExecutor) RendererBuilderOption {
	return func(r *renderer) {
		r.executor = exec
	}
}

// WithSize sets the initial size of the external framebuffer.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the size option to a renderer
func WithSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.width, r.height = width, height
	}
}
