package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/common"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
)

// ProjectionType selects how the camera projects.
type ProjectionType int

const (
	ProjectionPerspective ProjectionType = iota
	ProjectionOrthographic
)

type cameraImpl struct {
	mu *sync.Mutex

	up mgl32.Vec3

	projectionType ProjectionType
	fov            float32
	aspect         float32
	near           float32
	far            float32
	orthoHalfH     float32
	eyeSeparation  float32

	renderMask  render_data.RenderMask
	background  common.Color
	postEffects []render_data.RenderPass

	position             mgl32.Vec3
	leftView             mgl32.Mat4
	rightView            mgl32.Mat4
	projectionMatrix     mgl32.Mat4
	viewProjectionMatrix mgl32.Mat4

	controller CameraController
}

// Camera holds the projection settings, the stereo eye pair and the per-camera
// render configuration (render mask, background color, post effects). Matrices are
// recomputed from the attached CameraController by Update.
//
// Mono cameras render the left eye only; its view equals the camera view. Stereo
// cameras offset each eye by half the eye separation along the camera's right axis.
type Camera interface {
	// Position returns the world-space camera position.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// ViewMatrix returns the view matrix of one eye.
	//
	// Parameters:
	//   - right: true for the right eye
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix(right bool) mgl32.Mat4

	// ProjectionMatrix returns the projection matrix shared by both eyes.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns projection * view of one eye.
	//
	// Parameters:
	//   - right: true for the right eye
	//
	// Returns:
	//   - mgl32.Mat4: the view-projection matrix
	ViewProjectionMatrix(right bool) mgl32.Mat4

	// Frustum returns the world-space view frustum of one eye.
	//
	// Parameters:
	//   - right: true for the right eye
	//
	// Returns:
	//   - common.Frustum: the frustum
	Frustum(right bool) common.Frustum

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// SetAspect sets the aspect ratio.
	SetAspect(aspect float32)

	// RenderMask returns the eyes this camera renders.
	//
	// Returns:
	//   - render_data.RenderMask: Left for mono, Both for stereo, or a custom mask
	RenderMask() render_data.RenderMask

	// SetRenderMask sets the eyes this camera renders.
	SetRenderMask(mask render_data.RenderMask)

	// BackgroundColor returns the clear color. A negative red component disables
	// color clearing.
	//
	// Returns:
	//   - common.Color: the clear color
	BackgroundColor() common.Color

	// SetBackgroundColor sets the clear color.
	SetBackgroundColor(c common.Color)

	// PostEffects returns the ordered post-effect passes.
	//
	// Returns:
	//   - []render_data.RenderPass: the post effects
	PostEffects() []render_data.RenderPass

	// AddPostEffect appends a full-screen post-effect pass.
	AddPostEffect(p render_data.RenderPass)

	// ClearPostEffects removes every post effect.
	ClearPostEffects()

	// Controller returns the attached controller.
	Controller() CameraController

	// SetController attaches a controller and refreshes the matrices.
	SetController(ctrl CameraController)

	// Update recomputes every matrix from the controller. It is a no-op without one.
	Update()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a mono perspective camera with sensible defaults and any
// provided options applied.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:                   &sync.Mutex{},
		up:                   mgl32.Vec3{0, 1, 0},
		fov:                  45.0 * (math.Pi / 180.0), // radians
		aspect:               1.0,
		near:                 0.1,
		far:                  100.0,
		orthoHalfH:           5.0,
		renderMask:           render_data.RenderMaskLeft,
		background:           common.Color{0, 0, 0, 1},
		leftView:             mgl32.Ident4(),
		rightView:            mgl32.Ident4(),
		projectionMatrix:     mgl32.Ident4(),
		viewProjectionMatrix: mgl32.Ident4(),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) ViewMatrix(right bool) mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if right {
		return c.rightView
	}
	return c.leftView
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix(right bool) mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if right {
		return c.projectionMatrix.Mul4(c.rightView)
	}
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Frustum(right bool) common.Frustum {
	return common.ExtractFrustum(c.ViewProjectionMatrix(right))
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) RenderMask() render_data.RenderMask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderMask
}

func (c *cameraImpl) SetRenderMask(mask render_data.RenderMask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderMask = mask
}

func (c *cameraImpl) BackgroundColor() common.Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.background
}

func (c *cameraImpl) SetBackgroundColor(col common.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.background = col
}

func (c *cameraImpl) PostEffects() []render_data.RenderPass {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.postEffects
}

func (c *cameraImpl) AddPostEffect(p render_data.RenderPass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postEffects = append(c.postEffects, p)
}

func (c *cameraImpl) ClearPostEffects() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postEffects = nil
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.updateMatrices()
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

// updateMatrices recalculates the eye views and the projection. Without a controller
// the views stay as they are. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	switch c.projectionType {
	case ProjectionOrthographic:
		h := c.orthoHalfH
		c.projectionMatrix = mgl32.Ortho(-h*c.aspect, h*c.aspect, -h, h, c.near, c.far)
	default:
		c.projectionMatrix = mgl32.Perspective(c.fov, c.aspect, c.near, c.far)
	}

	if c.controller != nil {
		c.position = c.controller.Position()
		view := mgl32.LookAtV(c.position, c.controller.Target(), c.up)
		half := c.eyeSeparation * 0.5
		// eye views shift the world opposite to the eye offset along view-space X
		c.leftView = mgl32.Translate3D(half, 0, 0).Mul4(view)
		c.rightView = mgl32.Translate3D(-half, 0, 0).Mul4(view)
	}
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.leftView)
}
