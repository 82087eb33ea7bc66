package light

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
)

type recordingBinder struct {
	uniforms map[string]any
	textures map[string]int
}

func newRecordingBinder() *recordingBinder {
	return &recordingBinder{uniforms: map[string]any{}, textures: map[string]int{}}
}

func (b *recordingBinder) SetUniform(_ shader.Shader, name string, value any) {
	b.uniforms[name] = value
}

func (b *recordingBinder) BindTexture(_ shader.Shader, name string, unit int, _ texture.Texture) {
	b.textures[name] = unit
}

type bufferBinder struct {
	*recordingBinder
	buffer []byte
}

func (b *bufferBinder) BindLightBuffer(_ shader.Shader, data []byte) {
	b.buffer = data
}

func TestDescriptor(t *testing.T) {
	specs := []struct {
		lights []Light
		exp    string
	}{
		{nil, ""},
		{[]Light{NewLight(LightTypeDirectional)}, "$DirectLight1"},
		{[]Light{NewLight(LightTypeDirectional), NewLight(LightTypeSpot), NewLight(LightTypeSpot)}, "$DirectLight1$SpotLight2"},
		{[]Light{NewLight(LightTypePoint), NewLight(LightTypeSpot), NewLight(LightTypePoint)}, "$PointLight1$SpotLight1$PointLight1"},
		{[]Light{NewLight(LightTypePoint), NewLight(LightTypePoint, WithEnabled(false)), NewLight(LightTypePoint)}, "$PointLight2"},
	}

	for index, spec := range specs {
		m := NewManager()
		for _, l := range spec.lights {
			m.AddLight(l)
		}
		m.UpdateLights()
		if got := m.Descriptor(); got != spec.exp {
			t.Errorf("[spec %d] expected descriptor %q; got %q", index, spec.exp, got)
		}
	}
}

func TestUpdateLightsReportsShadowCasters(t *testing.T) {
	m := NewManager()
	m.AddLight(NewLight(LightTypePoint, WithCastsShadows(true)))
	if m.UpdateLights() {
		t.Fatal("expected point lights to never cast shadows")
	}

	sun := NewLight(LightTypeDirectional, WithCastsShadows(true))
	m.AddLight(sun)
	if !m.UpdateLights() {
		t.Fatal("expected a shadow-casting directional light to be reported")
	}
	if casters := m.ShadowCasters(); len(casters) != 1 || casters[0] != sun {
		t.Fatalf("expected the sun to be the only caster; got %d casters", len(casters))
	}

	sun.SetEnabled(false)
	if m.UpdateLights() {
		t.Fatal("expected a disabled light not to cast shadows")
	}
	lit, _ := shader.NewManager(nil).AddShader("Phong$DirectLight1", shader.Source{UsesLights: true})
	b := newRecordingBinder()
	if next := m.BindShadowMap(b, lit, 3); next != 3 || len(b.textures) != 0 {
		t.Fatalf("expected a disabled light to bind no shadow map; got unit %d and %d textures", next, len(b.textures))
	}
	if !m.RemoveLight(sun) || m.RemoveLight(sun) {
		t.Fatal("expected the sun to be removed exactly once")
	}
}

func TestBindLightsUniforms(t *testing.T) {
	mgr := shader.NewManager(nil)
	lit, _ := mgr.AddShader("Phong$DirectLight1$SpotLight1", shader.Source{UsesLights: true})
	unlit, _ := mgr.AddShader("Unlit", shader.Source{})

	m := NewManager()
	m.AddLight(NewLight(LightTypeDirectional, WithColor(1, 0, 0)))
	m.AddLight(NewLight(LightTypeSpot, WithCastsShadows(true), WithPosition(0, 5, 0), WithDirection(0, -1, 0)))
	m.UpdateLights()

	b := newRecordingBinder()
	if next := m.BindLights(b, unlit, 2); next != 2 || len(b.uniforms) != 0 {
		t.Fatalf("expected unlit shaders to bind nothing; got unit %d and %d uniforms", next, len(b.uniforms))
	}

	next := m.BindLights(b, lit, 2)
	if next != 3 {
		t.Fatalf("expected one shadow map to consume unit 2; got next unit %d", next)
	}
	if b.uniforms["u_DirectLight[0].color"] != (mgl32.Vec3{1, 0, 0}) {
		t.Fatalf("unexpected direct light color %v", b.uniforms["u_DirectLight[0].color"])
	}
	for _, name := range []string{"u_SpotLight[0].position", "u_SpotLight[0].outer_cone", "u_shadow_matrix[0]", "u_shadow_bias"} {
		if _, ok := b.uniforms[name]; !ok {
			t.Errorf("expected uniform %s to be set", name)
		}
	}
	if b.textures["u_shadow_map[0]"] != 2 {
		t.Fatalf("expected the shadow map on unit 2; got %d", b.textures["u_shadow_map[0]"])
	}
}

func TestBindLightsBuffer(t *testing.T) {
	mgr := shader.NewManager(nil)
	lit, _ := mgr.AddShader("Phong$PointLight2", shader.Source{UsesLights: true})

	m := NewManager()
	m.AddLight(NewLight(LightTypePoint))
	m.AddLight(NewLight(LightTypePoint))
	m.UpdateLights()

	b := &bufferBinder{recordingBinder: newRecordingBinder()}
	m.BindLights(b, lit, 0)
	if len(b.buffer) != 16+2*64 {
		t.Fatalf("expected a header and two lights; got %d bytes", len(b.buffer))
	}
	for name := range b.uniforms {
		if strings.HasPrefix(name, "u_PointLight") {
			t.Fatalf("expected no loose light uniforms with a buffer binder; got %s", name)
		}
	}
}

func TestShadowCamera(t *testing.T) {
	if UpdateShadowCamera(NewLight(LightTypePoint, WithCastsShadows(true)), mgl32.Vec3{}) != nil {
		t.Fatal("expected no shadow camera for point lights")
	}

	sun := NewLight(LightTypeDirectional, WithCastsShadows(true), WithDirection(0, -1, 0))
	sm := UpdateShadowCamera(sun, mgl32.Vec3{})
	if sm == nil || sm.Texture == nil || !sm.Texture.DepthOnly() {
		t.Fatal("expected a depth-only shadow map")
	}
	// the scene center sits in the middle of the ortho depth range
	clip := sm.ViewProj().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if clip.X() > 1e-4 || clip.X() < -1e-4 || clip.Z() <= -1 || clip.Z() >= 1 {
		t.Fatalf("expected the center inside the light frustum; got %v", clip)
	}
}

func TestShadowOptions(t *testing.T) {
	sun := NewLight(LightTypeDirectional,
		WithCastsShadows(true),
		WithDirection(0, -1, 0),
		WithShadowResolution(512),
		WithShadowExtent(10),
	)
	sm := UpdateShadowCamera(sun, mgl32.Vec3{})
	if w, h := sm.Texture.Size(); w != 512 || h != 512 {
		t.Fatalf("expected a 512x512 shadow map; got %dx%d", w, h)
	}

	specs := []struct {
		x      float32
		inside bool
	}{
		{0, true},
		{9, true},
		{-9, true},
		{11, false},
	}
	for i, spec := range specs {
		clip := sm.ViewProj().Mul4x1(mgl32.Vec4{spec.x, 0, 0, 1})
		inside := max(absF32(clip.X()), absF32(clip.Y())) < 1
		if inside != spec.inside {
			t.Errorf("[spec %d] x=%v inside = %t, want %t (clip %v)", i, spec.x, inside, spec.inside, clip)
		}
	}

	if sm := UpdateShadowCamera(NewLight(LightTypeDirectional, WithCastsShadows(true), WithShadowExtent(-1)), mgl32.Vec3{}); sm.HalfExtent != DefaultShadowHalfExtent {
		t.Errorf("expected a non-positive extent to keep the default; got %v", sm.HalfExtent)
	}
}
