package texture

import "github.com/Carmen-Shannon/oxy-sg/common"

// RenderTexture is an offscreen render destination: a color attachment with optional
// depth and stencil, usable as a sampled texture by later passes.
//
// Backends own the framebuffer objects behind a render texture and key them by ID.
type RenderTexture interface {
	Texture

	// Samples returns the multisample count of the color attachment.
	//
	// Returns:
	//   - int: sample count, 1 for no multisampling
	Samples() int

	// HasDepth reports whether a depth attachment is allocated.
	//
	// Returns:
	//   - bool: true if the target has a depth buffer
	HasDepth() bool

	// HasStencil reports whether a stencil attachment is allocated.
	//
	// Returns:
	//   - bool: true if the target has a stencil buffer
	HasStencil() bool

	// DepthOnly reports whether the target only carries depth, as shadow maps do.
	//
	// Returns:
	//   - bool: true for depth-only targets
	DepthOnly() bool

	// Layers returns the number of array layers, 2 for multiview targets.
	//
	// Returns:
	//   - int: the layer count
	Layers() int
}

type renderTexture struct {
	*texture
	samples    int
	hasDepth   bool
	hasStencil bool
	depthOnly  bool
	layers     int
}

var _ RenderTexture = &renderTexture{}

// RenderTextureBuilderOption configures a RenderTexture during construction.
type RenderTextureBuilderOption func(*renderTexture)

// NewRenderTexture creates a render texture of the given size.
// Render textures are always Ready since their contents are produced on the GPU.
//
// Parameters:
//   - width: width in pixels
//   - height: height in pixels
//   - opts: variadic list of RenderTextureBuilderOption functions
//
// Returns:
//   - RenderTexture: the new render texture
func NewRenderTexture(width, height uint32, opts ...RenderTextureBuilderOption) RenderTexture {
	rt := &renderTexture{
		texture:  NewTexture(WithSize(width, height)).(*texture),
		samples:  1,
		hasDepth: true,
		layers:   1,
	}
	rt.uploaded = true
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// WithSamples sets the multisample count.
func WithSamples(samples int) RenderTextureBuilderOption {
	return func(rt *renderTexture) {
		rt.samples = common.Coalesce(samples, 1)
	}
}

// WithDepth enables or disables the depth attachment.
func WithDepth(enabled bool) RenderTextureBuilderOption {
	return func(rt *renderTexture) {
		rt.hasDepth = enabled
	}
}

// WithStencil enables or disables the stencil attachment.
func WithStencil(enabled bool) RenderTextureBuilderOption {
	return func(rt *renderTexture) {
		rt.hasStencil = enabled
	}
}

// WithDepthOnly makes the render texture a depth-only target such as a shadow map.
func WithDepthOnly() RenderTextureBuilderOption {
	return func(rt *renderTexture) {
		rt.depthOnly = true
		rt.hasDepth = true
	}
}

// WithLayers sets the array layer count, 2 for multiview rendering.
func WithLayers(layers int) RenderTextureBuilderOption {
	return func(rt *renderTexture) {
		rt.layers = common.Coalesce(layers, 1)
	}
}

// WithRenderTextureName sets the debug name of the render texture.
func WithRenderTextureName(name string) RenderTextureBuilderOption {
	return func(rt *renderTexture) {
		rt.name = name
	}
}

func (rt *renderTexture) Samples() int {
	return rt.samples
}

func (rt *renderTexture) HasDepth() bool {
	return rt.hasDepth
}

func (rt *renderTexture) HasStencil() bool {
	return rt.hasStencil
}

func (rt *renderTexture) DepthOnly() bool {
	return rt.depthOnly
}

func (rt *renderTexture) Layers() int {
	return rt.layers
}
