package sorter

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/common"
	"github.com/Carmen-Shannon/oxy-sg/engine/camera"
	"github.com/Carmen-Shannon/oxy-sg/engine/light"
	"github.com/Carmen-Shannon/oxy-sg/engine/matrix_calc"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/scene"
)

// RenderState is the per-view input of one sorter frame: the scene, the viewpoint
// and the eye being rendered.
type RenderState struct {
	Scene  scene.Scene
	Camera camera.Camera
	Lights light.Manager

	// RenderMask is the eye mask of this view: Left or Right for a mono pass of a
	// stereo camera, Both for a multiview pass.
	RenderMask render_data.RenderMask
	RightEye   bool

	Position   mgl32.Vec3
	View       [2]mgl32.Mat4
	Projection mgl32.Mat4

	frustums []common.Frustum
}

// NewRenderState builds the view of a scene camera for one eye mask.
//
// Parameters:
//   - sc: the scene, may be nil when renderables are added by hand
//   - cam: the camera
//   - mask: RenderMaskLeft, RenderMaskRight, or RenderMaskBoth for multiview
//
// Returns:
//   - *RenderState: the view
func NewRenderState(sc scene.Scene, cam camera.Camera, mask render_data.RenderMask) *RenderState {
	rs := &RenderState{
		Scene:      sc,
		Camera:     cam,
		RenderMask: mask,
		RightEye:   mask == render_data.RenderMaskRight,
		Position:   cam.Position(),
		View:       [2]mgl32.Mat4{cam.ViewMatrix(false), cam.ViewMatrix(true)},
		Projection: cam.ProjectionMatrix(),
	}
	if sc != nil {
		rs.Lights = sc.Lights()
	}
	if mask&render_data.RenderMaskLeft != 0 {
		rs.frustums = append(rs.frustums, cam.Frustum(false))
	}
	if mask&render_data.RenderMaskRight != 0 {
		rs.frustums = append(rs.frustums, cam.Frustum(true))
	}
	return rs
}

// NewShadowRenderState builds the view of a shadow-casting light.
//
// Parameters:
//   - sc: the scene
//   - sm: the light's shadow map with its view and projection
//
// Returns:
//   - *RenderState: the view
func NewShadowRenderState(sc scene.Scene, sm *light.ShadowMap) *RenderState {
	rs := &RenderState{
		Scene:      sc,
		RenderMask: render_data.RenderMaskBoth,
		Position:   sm.View.Inv().Col(3).Vec3(),
		View:       [2]mgl32.Mat4{sm.View, sm.View},
		Projection: sm.Projection,
	}
	rs.frustums = []common.Frustum{common.ExtractFrustum(sm.ViewProj())}
	return rs
}

// ViewProj returns the view-projection of one eye.
func (rs *RenderState) ViewProj(right bool) mgl32.Mat4 {
	if right {
		return rs.Projection.Mul4(rs.View[1])
	}
	return rs.Projection.Mul4(rs.View[0])
}

// Stereo reports whether the viewpoint is a stereo camera.
func (rs *RenderState) Stereo() bool {
	return rs.Camera != nil && rs.Camera.RenderMask() == render_data.RenderMaskBoth
}

// Frustums returns the frustum of every eye in the mask.
func (rs *RenderState) Frustums() []common.Frustum {
	return rs.frustums
}

// baseInputs fills the per-view entries of the matrix calculator input table.
func (rs *RenderState) baseInputs(in *matrix_calc.Inputs) {
	in[matrix_calc.LeftViewProj] = rs.ViewProj(false)
	in[matrix_calc.RightViewProj] = rs.ViewProj(true)
	in[matrix_calc.Projection] = rs.Projection
	in[matrix_calc.LeftView] = rs.View[0]
	in[matrix_calc.RightView] = rs.View[1]
	in[matrix_calc.InverseLeftView] = rs.View[0].Inv()
	in[matrix_calc.InverseRightView] = rs.View[1].Inv()
}

// itemInputs fills the per-draw entries of the input table.
func itemInputs(in *matrix_calc.Inputs, model mgl32.Mat4) {
	in[matrix_calc.Model] = model
	in[matrix_calc.LeftMVP] = in[matrix_calc.LeftViewProj].Mul4(model)
	in[matrix_calc.RightMVP] = in[matrix_calc.RightViewProj].Mul4(model)
}
