package camera

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/common"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
)

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*cameraImpl)

// WithUp sets the camera's up vector.
//
// Parameters:
//   - x, y, z: up vector components
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = mgl32.Vec3{x, y, z}
	}
}

// WithFov sets the vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithNear sets the near clipping plane distance.
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithOrthographic switches the camera to an orthographic projection.
//
// Parameters:
//   - halfHeight: half the vertical extent in world units; the horizontal extent follows the aspect
//
// Returns:
//   - CameraBuilderOption: a function that sets the projection
func WithOrthographic(halfHeight float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.projectionType = ProjectionOrthographic
		c.orthoHalfH = halfHeight
	}
}

// WithStereo makes the camera render both eyes.
//
// Parameters:
//   - eyeSeparation: the distance between the eyes in world units
//
// Returns:
//   - CameraBuilderOption: a function that enables stereo
func WithStereo(eyeSeparation float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.eyeSeparation = eyeSeparation
		c.renderMask = render_data.RenderMaskBoth
	}
}

// WithRenderMask overrides the eyes the camera renders.
func WithRenderMask(mask render_data.RenderMask) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.renderMask = mask
	}
}

// WithBackgroundColor sets the clear color. A negative red component disables
// color clearing.
//
// Parameters:
//   - col: the clear color
//
// Returns:
//   - CameraBuilderOption: a function that sets the background color
func WithBackgroundColor(col common.Color) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.background = col
	}
}

// WithPostEffect appends a post-effect pass.
func WithPostEffect(p render_data.RenderPass) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.postEffects = append(c.postEffects, p)
	}
}

// WithController attaches a controller.
//
// Parameters:
//   - ctrl: the camera controller
//
// Returns:
//   - CameraBuilderOption: functional option to set the controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
