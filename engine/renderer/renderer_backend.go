package renderer

import (
	"context"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-sg/engine/camera"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeGL selects the raster backend, which mutates OpenGL state immediately.
	BackendTypeGL RendererBackendType = iota

	// BackendTypeWGPU selects the command-recording backend. Passes are recorded into
	// command buffers and submitted behind a fence.
	BackendTypeWGPU
)

var backendNames = map[RendererBackendType]string{
	BackendTypeGL:   "gl",
	BackendTypeWGPU: "wgpu",
}

func (t RendererBackendType) String() string {
	if n, ok := backendNames[t]; ok {
		return n
	}
	return fmt.Sprintf("backend(%d)", int(t))
}

// ParseBackendType maps a backend name ("gl" or "wgpu") to its type.
//
// Parameters:
//   - s: the backend name, case-insensitive
//
// Returns:
//   - RendererBackendType: the backend type
//   - error: ErrUnsupportedBackend for unknown names
func ParseBackendType(s string) (RendererBackendType, error) {
	for t, n := range backendNames {
		if strings.EqualFold(s, n) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedBackend, s)
}

// RendererBackend is the capability set of a GPU API. The issue loop of the sorters
// drives it through the embedded sorter.Device; the camera render loop adds target
// management around it.
type RendererBackend interface {
	sorter.Device

	// Init registers the backend's built-in shaders (error, depth and blit variants) in
	// the shader registry.
	//
	// Parameters:
	//   - shaders: the registry
	//
	// Returns:
	//   - error: any registration error
	Init(shaders shader.Manager) error

	// Resize records the size of the external framebuffer.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// BeginTarget binds a render target for drawing, creating its GPU objects on first
	// use. The recording backend first waits on the target's previous fence.
	//
	// Parameters:
	//   - ctx: bounds fence waits
	//   - t: the target
	//
	// Returns:
	//   - error: wraps ErrFenceTimeout when the target is still in flight
	BeginTarget(ctx context.Context, t *RenderTarget) error

	// WaitTarget blocks until everything previously submitted into t completed, so a
	// later pass can sample it. The raster backend returns immediately.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//   - t: the target
	//
	// Returns:
	//   - error: wraps ErrFenceTimeout when the target is still in flight
	WaitTarget(ctx context.Context, t *RenderTarget) error

	// ClearBuffers clears depth always, color iff the camera's background color is
	// valid, and stencil iff stencil is enabled.
	//
	// Parameters:
	//   - cam: the camera, nil to clear depth only
	ClearBuffers(cam camera.Camera)

	// SetViewport establishes the drawing rectangle inside the bound target.
	SetViewport(x, y, width, height int)

	// SetFaceCulling sets the culled face outside of per-draw render states.
	SetFaceCulling(mode render_data.CullFace)

	// EndTarget finishes drawing into the bound target and restores the between-draws
	// defaults. The recording backend submits the target's commands here.
	//
	// Parameters:
	//   - t: the target
	//
	// Returns:
	//   - error: any submission error
	EndTarget(t *RenderTarget) error

	// OcclusionCuller returns the hardware occlusion culler, or nil when the backend
	// has none or occlusion culling is disabled.
	//
	// Returns:
	//   - sorter.OcclusionCuller: the culler or nil
	OcclusionCuller() sorter.OcclusionCuller

	// ReadPixels reads back the RGBA8 color of a render texture.
	//
	// Parameters:
	//   - rt: the render texture
	//
	// Returns:
	//   - []byte: width*height*4 bytes, bottom row first
	//   - error: any readback error
	ReadPixels(rt texture.RenderTexture) ([]byte, error)

	// Release frees every GPU object the backend created.
	Release()
}
