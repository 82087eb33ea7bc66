package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/common"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
)

func TestStereoEyes(t *testing.T) {
	ctrl := NewCameraController(WithRadius(5), WithElevation(0))
	mono := NewCamera(WithController(ctrl))
	stereo := NewCamera(WithController(ctrl), WithStereo(0.064))

	if mono.RenderMask() != render_data.RenderMaskLeft || stereo.RenderMask() != render_data.RenderMaskBoth {
		t.Fatalf("unexpected render masks %d and %d", mono.RenderMask(), stereo.RenderMask())
	}
	if mono.ViewMatrix(false) != mono.ViewMatrix(true) {
		t.Fatal("expected identical eye views for a mono camera")
	}
	if stereo.ViewMatrix(false) == stereo.ViewMatrix(true) {
		t.Fatal("expected distinct eye views for a stereo camera")
	}

	// the orbit target projects to the screen center for a mono camera
	clip := mono.ViewProjectionMatrix(false).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if x := clip.X() / clip.W(); x > 1e-4 || x < -1e-4 {
		t.Fatalf("expected the target at the screen center; got ndc x %f", x)
	}
}

func TestFrustumCullsBehindCamera(t *testing.T) {
	c := NewCamera(WithController(NewCameraController(WithRadius(5), WithElevation(0))))
	f := c.Frustum(false)

	specs := []struct {
		box common.AABB
		exp common.CullResult
	}{
		{common.AABB{Min: mgl32.Vec3{-0.5, -0.5, -0.5}, Max: mgl32.Vec3{0.5, 0.5, 0.5}}, common.CullInside},
		{common.AABB{Min: mgl32.Vec3{-1, -1, 20}, Max: mgl32.Vec3{1, 1, 22}}, common.CullOutside},
		{common.AABB{Min: mgl32.Vec3{-1, -1, 4}, Max: mgl32.Vec3{1, 1, 6}}, common.CullIntersect},
	}
	for index, spec := range specs {
		got, _ := f.CullAABB(spec.box, common.AllPlanes)
		if got != spec.exp {
			t.Errorf("[spec %d] expected %d; got %d", index, spec.exp, got)
		}
	}
}

func TestControllerClampsElevation(t *testing.T) {
	ctrl := NewCameraController()
	ctrl.Orbit(0, 10)
	if p := ctrl.Position(); p.Y() >= ctrl.Radius() {
		t.Fatalf("expected elevation to stay below the pole; got %v", p)
	}
	ctrl.SetRadius(-3)
	if ctrl.Radius() <= 0 {
		t.Fatalf("expected radius to be clamped positive; got %f", ctrl.Radius())
	}
}
