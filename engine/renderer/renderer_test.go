package renderer

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-sg/common"
	"github.com/Carmen-Shannon/oxy-sg/engine/camera"
	"github.com/Carmen-Shannon/oxy-sg/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sg/engine/light"
	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/scene"
)

func testCamera(opts ...camera.CameraBuilderOption) camera.Camera {
	ctrl := camera.NewCameraController(camera.WithRadius(5), camera.WithElevation(0))
	return camera.NewCamera(append([]camera.CameraBuilderOption{camera.WithController(ctrl)}, opts...)...)
}

func testScene(t *testing.T, cam camera.Camera, opts ...scene.SceneBuilderOption) (scene.Scene, game_object.GameObject) {
	t.Helper()
	pass := render_data.NewRenderPass(
		material.NewMaterial(material.WithBaseColor([4]float32{1, 0.5, 0, 1})),
		render_data.WithShaderTemplate(TemplateColor),
		render_data.WithUseLights(false),
	)
	obj := game_object.NewGameObject(
		game_object.WithName("cube"),
		game_object.WithRenderData(render_data.NewRenderData(model.NewCube(1), render_data.WithPass(pass))),
	)
	sc := scene.NewScene("test", append([]scene.SceneBuilderOption{scene.WithCamera(cam), scene.WithObjects(obj)}, opts...)...)
	t.Cleanup(sc.Close)
	return sc, obj
}

func blitEffect() render_data.RenderPass {
	return render_data.NewRenderPass(material.NewMaterial(), render_data.WithShaderTemplate(TemplateBlit), render_data.WithUseLights(false))
}

func shadowLight() light.Light {
	return light.NewLight(light.LightTypeDirectional, light.WithDirection(0.3, -1, 0.2), light.WithCastsShadows(true))
}

func newGLBackend(t *testing.T, gl *fakeGL, stencil bool) *glRendererBackendImpl {
	t.Helper()
	b := newGLRendererBackend(gl, 60, stencil, true, false)
	if err := b.Init(shader.NewManager(nil)); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestGLSetRestoreSymmetry(t *testing.T) {
	specs := []struct {
		name    string
		modify  func(m *render_data.RenderModes)
		applied func(s GLState) bool
	}{
		{"cull none", func(m *render_data.RenderModes) { m.SetCullFace(render_data.CullNone) }, func(s GLState) bool { return !s.Caps[glCullFace] }},
		{"cull front", func(m *render_data.RenderModes) { m.SetCullFace(render_data.CullFront) }, func(s GLState) bool { return s.CullFace == glFront }},
		{"no depth test", func(m *render_data.RenderModes) { m.SetDepthTest(false) }, func(s GLState) bool { return !s.Caps[glDepthTest] }},
		{"no depth writes", func(m *render_data.RenderModes) { m.SetDepthMask(false) }, func(s GLState) bool { return !s.DepthMask }},
		{"no blending", func(m *render_data.RenderModes) { m.SetAlphaBlend(false) }, func(s GLState) bool { return !s.Caps[glBlend] }},
		{"straight alpha", func(m *render_data.RenderModes) {
			m.SetBlendFunc(render_data.BlendSrcAlpha, render_data.BlendOneMinusSrcAlpha)
		}, func(s GLState) bool { return s.BlendSrc == glBlendFuncs[render_data.BlendSrcAlpha] }},
		{"polygon offset", func(m *render_data.RenderModes) { m.SetOffset(true, 1, 2) }, func(s GLState) bool {
			return s.Caps[glPolygonOffsetFill] && s.PolygonOffset == [2]float32{1, 2}
		}},
		{"stencil", func(m *render_data.RenderModes) {
			m.SetStencilTest(true)
			m.SetStencilFunc(render_data.CompareEqual, 1, 0x0F)
			m.SetStencilOp(render_data.StencilKeep, render_data.StencilKeep, render_data.StencilReplace)
		}, func(s GLState) bool {
			return s.Caps[glStencilTest] && s.StencilFunc == glCompareFuncs[render_data.CompareEqual] &&
				s.StencilRef == 1 && s.StencilOps[2] == glStencilOps[render_data.StencilReplace]
		}},
		{"alpha to coverage", func(m *render_data.RenderModes) {
			m.SetAlphaToCoverage(true)
			m.SetSampleCoverage(0.5)
			m.SetInvertCoverageMask(true)
		}, func(s GLState) bool {
			return s.Caps[glSampleAlphaToCoverage] && s.Caps[glSampleCoverage] && s.SampleCoverage == 0.5 && s.CoverageInvert
		}},
	}

	gl := newFakeGL()
	b := newGLBackend(t, gl, false)
	if !reflect.DeepEqual(b.StateSnapshot(), DefaultGLState()) {
		t.Fatalf("backend does not start at the defaults")
	}
	for i, spec := range specs {
		before := b.StateSnapshot()
		m := render_data.DefaultRenderModes()
		spec.modify(&m)

		b.SetRenderStates(&m)
		if !spec.applied(gl.state) {
			t.Errorf("[spec %d] %s: state not applied to the context", i, spec.name)
		}
		b.RestoreRenderStates(&m)

		after := b.StateSnapshot()
		if !reflect.DeepEqual(before, after) {
			t.Errorf("[spec %d] %s: restore left %+v, expected %+v", i, spec.name, after, before)
		}
		if !reflect.DeepEqual(gl.state, after) {
			t.Errorf("[spec %d] %s: context diverged from the tracked state", i, spec.name)
		}
	}
}

func TestGLStateSnapshotIsDeep(t *testing.T) {
	b := newGLBackend(t, newFakeGL(), false)
	snap := b.StateSnapshot()
	snap.Caps[glDepthTest] = false
	if !b.state.Caps[glDepthTest] {
		t.Errorf("mutating a snapshot changed the tracked state")
	}
}

func TestGLClearBuffers(t *testing.T) {
	specs := []struct {
		cam     camera.Camera
		stencil bool
		exp     uint32
	}{
		{nil, false, glDepthBufferBit},
		{camera.NewCamera(), false, glDepthBufferBit | glColorBufferBit},
		{camera.NewCamera(camera.WithBackgroundColor(common.Color{-1, 0, 0, 1})), false, glDepthBufferBit},
		{camera.NewCamera(), true, glDepthBufferBit | glColorBufferBit | glStencilBufferBit},
		{nil, true, glDepthBufferBit | glStencilBufferBit},
	}
	for i, spec := range specs {
		gl := newFakeGL()
		b := newGLBackend(t, gl, spec.stencil)
		b.ClearBuffers(spec.cam)
		if len(gl.clears) != 1 || gl.clears[0] != spec.exp {
			t.Errorf("[spec %d] expected clear mask %#x, got %#x", i, spec.exp, gl.clears)
		}
	}
}

func TestGLShaderCompileFailure(t *testing.T) {
	gl := newFakeGL()
	gl.failCompile = true
	shaders := shader.NewManager(nil)
	b := newGLRendererBackend(gl, 60, false, true, false)
	if err := b.Init(shaders); err != nil {
		t.Fatal(err)
	}
	if err := b.UseShader(shaders.ErrorShader()); !errors.Is(err, shader.ErrShaderNotReady) {
		t.Errorf("expected ErrShaderNotReady, got %v", err)
	}
}

func TestGLRendererDrawsScene(t *testing.T) {
	gl := newFakeGL()
	r, err := NewRenderer(BackendTypeGL, WithGLContext(gl), WithSize(64, 32))
	if err != nil {
		t.Fatal(err)
	}
	sc, _ := testScene(t, testCamera())
	stats, err := r.RenderTarget(context.Background(), sc, r.NewRenderTarget(nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(gl.draws) != 1 || len(gl.clears) != 1 {
		t.Fatalf("expected one draw and one clear, got %d and %d", len(gl.draws), len(gl.clears))
	}

	specs := []struct {
		name     string
		exp, got any
	}{
		{"draw calls", 1, stats.DrawCalls},
		{"cube indices", int32(36), gl.draws[0]},
		{"matrix offset", int32(0), gl.uniforms[DrawOffsetUniform]},
		{"clear mask", glDepthBufferBit | glColorBufferBit, gl.clears[0]},
		{"viewport", [4]int32{0, 0, 64, 32}, gl.viewports[0]},
	}
	for i, spec := range specs {
		if !reflect.DeepEqual(spec.exp, spec.got) {
			t.Errorf("[spec %d] %s: expected %v, got %v", i, spec.name, spec.exp, spec.got)
		}
	}
	if !reflect.DeepEqual(gl.state, DefaultGLState()) {
		t.Errorf("frame did not end at the between-draws defaults")
	}
}

func TestGLStereoRendersEyesSideBySide(t *testing.T) {
	gl := newFakeGL()
	r, err := NewRenderer(BackendTypeGL, WithGLContext(gl), WithSize(64, 32))
	if err != nil {
		t.Fatal(err)
	}
	sc, _ := testScene(t, testCamera(camera.WithStereo(0.06)))
	stats, err := r.RenderTarget(context.Background(), sc, r.NewRenderTarget(nil))
	if err != nil {
		t.Fatal(err)
	}
	if stats.DrawCalls != 2 {
		t.Errorf("expected one draw per eye, got %d", stats.DrawCalls)
	}
	exp := [][4]int32{{0, 0, 64, 32}, {0, 0, 32, 32}, {32, 0, 32, 32}}
	if !reflect.DeepEqual(gl.viewports, exp) {
		t.Errorf("expected viewports %v, got %v", exp, gl.viewports)
	}
}

func TestShadowAttachmentInvalidation(t *testing.T) {
	for i, invalidate := range []bool{true, false} {
		gl := newFakeGL()
		r, err := NewRenderer(BackendTypeGL, WithGLContext(gl), WithSize(64, 32), WithInvalidateShadowAttachments(invalidate))
		if err != nil {
			t.Fatal(err)
		}
		sc, _ := testScene(t, testCamera(), scene.WithLights(shadowLight()))
		stats, err := r.RenderTarget(context.Background(), sc, r.NewRenderTarget(nil))
		if err != nil {
			t.Fatal(err)
		}
		if stats.DrawCalls != 2 {
			t.Errorf("[spec %d] expected a shadow and a main draw, got %d", i, stats.DrawCalls)
		}
		exp := 0
		if invalidate {
			exp = 1
		}
		if len(gl.invalidated) != exp {
			t.Errorf("[spec %d] expected %d invalidations, got %d", i, exp, len(gl.invalidated))
		}
	}
}

func TestOcclusionKeepsLastVisibility(t *testing.T) {
	gl := newFakeGL()
	r, err := NewRenderer(BackendTypeGL, WithGLContext(gl), WithSize(64, 32), WithOcclusionCulling(true))
	if err != nil {
		t.Fatal(err)
	}
	sc, obj := testScene(t, testCamera())
	target := r.NewRenderTarget(nil)
	frame := func() (int, int) {
		stats, err := r.RenderTarget(context.Background(), sc, target)
		if err != nil {
			t.Fatal(err)
		}
		return stats.DrawCalls, stats.OcclusionSkipped
	}

	// no result yet: visible, query issued
	if draws, skipped := frame(); draws != 1 || skipped != 0 {
		t.Errorf("[spec 0] expected 1 draw and 0 skipped, got %d and %d", draws, skipped)
	}
	q, inFlight := obj.OcclusionQuery()
	if !inFlight || gl.queriesBegun != 1 {
		t.Fatalf("expected one query in flight, got %v after %d queries", inFlight, gl.queriesBegun)
	}

	// result says occluded: skipped, next query issued
	gl.queryAvailable[q] = true
	gl.queryResult[q] = 0
	if draws, skipped := frame(); draws != 0 || skipped != 1 {
		t.Errorf("[spec 1] expected 0 draws and 1 skipped, got %d and %d", draws, skipped)
	}

	// result pending: previous visibility kept, no new query
	if draws, skipped := frame(); draws != 0 || skipped != 1 {
		t.Errorf("[spec 2] expected 0 draws and 1 skipped, got %d and %d", draws, skipped)
	}
	if gl.queriesBegun != 2 {
		t.Errorf("expected 2 queries, got %d", gl.queriesBegun)
	}
}

func TestPostEffectPingPong(t *testing.T) {
	exec := &fakeExecutor{}
	r, err := NewRenderer(BackendTypeWGPU, WithWGPUDevice(exec), WithSize(64, 32))
	if err != nil {
		t.Fatal(err)
	}
	cam := testCamera(camera.WithPostEffect(blitEffect()), camera.WithPostEffect(blitEffect()), camera.WithPostEffect(blitEffect()))
	sc, _ := testScene(t, cam)
	ext := r.NewRenderTarget(nil)

	stats, err := r.RenderTarget(context.Background(), sc, ext)
	if err != nil {
		t.Fatal(err)
	}
	if stats.DrawCalls != 4 {
		t.Errorf("expected a scene draw and 3 effect draws, got %d", stats.DrawCalls)
	}

	pp := r.(*renderer).pingPongs[ext.ID()]
	exp := []*RenderTarget{pp.a, pp.b, pp.a, ext}
	if len(exec.buffers) != len(exp) {
		t.Fatalf("expected %d submissions, got %d", len(exp), len(exec.buffers))
	}
	for i, target := range exp {
		if exec.buffers[i].Target != target {
			t.Errorf("[spec %d] submission went to the wrong target", i)
		}
		if i == 0 {
			continue
		}
		var sampled bool
		for _, c := range exec.buffers[i].Commands {
			if c.Kind == CmdBindTexture && c.Name == SourceTextureName {
				sampled = c.Texture == exp[i-1].Texture
			}
		}
		if !sampled {
			t.Errorf("[spec %d] effect does not sample the previous target", i)
		}
	}
}

func TestPostEffectWithoutMaterial(t *testing.T) {
	bare := func() render_data.RenderPass {
		return render_data.NewRenderPass(nil, render_data.WithShaderTemplate(TemplateBlit), render_data.WithUseLights(false))
	}

	gl := newFakeGL()
	r, err := NewRenderer(BackendTypeGL, WithGLContext(gl), WithSize(64, 32))
	if err != nil {
		t.Fatal(err)
	}
	sc, _ := testScene(t, testCamera(camera.WithPostEffect(bare())))
	stats, err := r.RenderTarget(context.Background(), sc, r.NewRenderTarget(nil))
	if err != nil {
		t.Fatal(err)
	}
	if stats.DrawCalls != 2 {
		t.Errorf("expected a scene draw and an effect draw, got %d", stats.DrawCalls)
	}
	if gl.uniforms[SourceTextureName] != int32(0) {
		t.Errorf("expected the source on texture unit 0, got %v", gl.uniforms[SourceTextureName])
	}

	exec := &fakeExecutor{}
	r, err = NewRenderer(BackendTypeWGPU, WithWGPUDevice(exec), WithSize(64, 32))
	if err != nil {
		t.Fatal(err)
	}
	sc, _ = testScene(t, testCamera(camera.WithPostEffect(bare())))
	if _, err := r.RenderTarget(context.Background(), sc, r.NewRenderTarget(nil)); err != nil {
		t.Fatal(err)
	}
	last := exec.buffers[len(exec.buffers)-1]
	for _, c := range last.Commands {
		if c.Kind == CmdBindMaterial {
			t.Errorf("expected no material bind for an effect without a material")
		}
	}
}

func TestShadowPassRecordsDepthCommands(t *testing.T) {
	exec := &fakeExecutor{}
	r, err := NewRenderer(BackendTypeWGPU, WithWGPUDevice(exec), WithSize(64, 32))
	if err != nil {
		t.Fatal(err)
	}
	sc, _ := testScene(t, testCamera(), scene.WithLights(shadowLight()))
	if _, err := r.RenderTarget(context.Background(), sc, r.NewRenderTarget(nil)); err != nil {
		t.Fatal(err)
	}
	if len(exec.buffers) != 2 {
		t.Fatalf("expected shadow and main submissions, got %d", len(exec.buffers))
	}
	shadow := exec.buffers[0]
	depth := r.Shaders().DepthShader(false)

	specs := []struct {
		name     string
		exp, got any
	}{
		{"shadow target", true, shadow.Target.Shadow},
		{"invalidate", true, shadow.InvalidateAttachments},
		{"face culling", 1, shadow.Count(CmdFaceCulling)},
		{"draws", 1, shadow.Count(CmdDraw)},
		{"main draws", 1, exec.buffers[1].Count(CmdDraw)},
	}
	for i, spec := range specs {
		if spec.exp != spec.got {
			t.Errorf("[spec %d] %s: expected %v, got %v", i, spec.name, spec.exp, spec.got)
		}
	}
	for _, c := range shadow.Commands {
		if c.Kind == CmdUseShader && c.Shader != depth {
			t.Errorf("shadow pass used %q", c.Shader.Signature())
		}
	}
}

func TestFenceTimeoutDropsFrame(t *testing.T) {
	exec := &fakeExecutor{hang: true}
	r, err := NewRenderer(BackendTypeWGPU, WithWGPUDevice(exec), WithSize(64, 32), WithFenceTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	sc, _ := testScene(t, testCamera())
	target := r.NewRenderTarget(nil)
	ctx := context.Background()

	if _, err := r.RenderTarget(ctx, sc, target); err != nil {
		t.Fatal(err)
	}
	if _, err := r.RenderTarget(ctx, sc, target); !errors.Is(err, ErrFenceTimeout) {
		t.Errorf("expected ErrFenceTimeout, got %v", err)
	}
	if len(exec.buffers) != 1 {
		t.Errorf("dropped frame submitted %d buffers", len(exec.buffers)-1)
	}

	exec.fences[0].signaled = true
	if _, err := r.RenderTarget(ctx, sc, target); err != nil {
		t.Errorf("frame after the fence signaled failed: %v", err)
	}
}

func TestWGPUShaderAcceptance(t *testing.T) {
	exec := &fakeExecutor{failShade: map[string]bool{"broken": true}}
	b := newWGPURendererBackend(exec, 60, false, true, time.Second)
	shaders := shader.NewManager(nil)
	if err := b.Init(shaders); err != nil {
		t.Fatal(err)
	}

	specs := []struct {
		signature string
		src       shader.Source
		ok        bool
	}{
		{"plain", shader.Source{Language: shader.LanguageWGSL}, true},
		{"loose", shader.Source{Language: shader.LanguageWGSL, UsesMatrixUniforms: true}, false},
		{"glsl", shader.Source{Language: shader.LanguageGLSL}, false},
		{"broken", shader.Source{Language: shader.LanguageWGSL}, false},
	}
	for i, spec := range specs {
		s, err := shaders.AddShader(spec.signature, spec.src)
		if err != nil {
			t.Fatal(err)
		}
		err = b.UseShader(s)
		if spec.ok && err != nil {
			t.Errorf("[spec %d] %s: unexpected error %v", i, spec.signature, err)
		}
		if !spec.ok && !errors.Is(err, shader.ErrShaderNotReady) {
			t.Errorf("[spec %d] %s: expected ErrShaderNotReady, got %v", i, spec.signature, err)
		}
	}
}

func TestNewRendererValidatesBackend(t *testing.T) {
	specs := []struct {
		backend RendererBackendType
		opts    []RendererBuilderOption
		ok      bool
	}{
		{BackendTypeGL, nil, false},
		{BackendTypeGL, []RendererBuilderOption{WithGLContext(newFakeGL())}, true},
		{BackendTypeWGPU, nil, false},
		{BackendTypeWGPU, []RendererBuilderOption{WithWGPUDevice(&fakeExecutor{})}, true},
		{BackendTypeWGPU, []RendererBuilderOption{WithWGPUDevice(&fakeExecutor{}), WithMultiview(true)}, false},
		{RendererBackendType(7), nil, false},
	}
	for i, spec := range specs {
		_, err := NewRenderer(spec.backend, spec.opts...)
		if spec.ok && err != nil {
			t.Errorf("[spec %d] unexpected error %v", i, err)
		}
		if !spec.ok && !errors.Is(err, ErrUnsupportedBackend) {
			t.Errorf("[spec %d] expected ErrUnsupportedBackend, got %v", i, err)
		}
	}
}

func TestParseBackendType(t *testing.T) {
	specs := []struct {
		in  string
		exp RendererBackendType
		ok  bool
	}{
		{"gl", BackendTypeGL, true},
		{"WGPU", BackendTypeWGPU, true},
		{"vulkan", 0, false},
	}
	for i, spec := range specs {
		got, err := ParseBackendType(spec.in)
		if (err == nil) != spec.ok || (spec.ok && got != spec.exp) {
			t.Errorf("[spec %d] %q: got %v, %v", i, spec.in, got, err)
		}
	}
}

func TestLightCounts(t *testing.T) {
	got := lightCounts("Color$DirectLight1$SpotLight2$DirectLight1")
	exp := map[string]int{"DirectLight": 2, "SpotLight": 2}
	if !reflect.DeepEqual(got, exp) {
		t.Errorf("expected %v, got %v", exp, got)
	}
	if n := len(lightCounts("Color")); n != 0 {
		t.Errorf("unlit signature produced %d classes", n)
	}
}
