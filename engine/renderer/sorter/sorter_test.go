package sorter

import (
	"cmp"
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/engine/camera"
	"github.com/Carmen-Shannon/oxy-sg/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sg/engine/light"
	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/uniform_block"
	"github.com/Carmen-Shannon/oxy-sg/engine/scene"
)

func newShaders(t *testing.T, signatures ...string) shader.Manager {
	t.Helper()
	m := shader.NewManager(nil)
	for _, sig := range signatures {
		if _, err := m.AddShader(sig, shader.Source{}); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

func unlitPass(mat material.Material, template string, opts ...render_data.RenderPassBuilderOption) render_data.RenderPass {
	opts = append([]render_data.RenderPassBuilderOption{
		render_data.WithShaderTemplate(template),
		render_data.WithUseLights(false),
	}, opts...)
	return render_data.NewRenderPass(mat, opts...)
}

func monoState() *RenderState {
	return &RenderState{
		RenderMask: render_data.RenderMaskLeft,
		View:       [2]mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()},
		Projection: mgl32.Ident4(),
	}
}

func runFrame(t *testing.T, s Sorter, rs *RenderState) {
	t.Helper()
	s.Validate(rs)
	s.Sort(rs)
	if err := s.Render(rs); err != nil {
		t.Fatal(err)
	}
}

func leaves(s Sorter) []*Renderable {
	var out []*Renderable
	s.Traverse(func(r *Renderable) bool {
		out = append(out, r)
		return true
	})
	return out
}

func TestOpaqueGrouping(t *testing.T) {
	shaders := newShaders(t, "S1", "S2")
	meshA, meshB := model.NewCube(1), model.NewCube(2)
	mat := material.NewMaterial()
	dev := NewNullDevice()
	s := NewMainSorter(dev, shaders)

	s.AddRenderData(render_data.NewRenderData(meshA, render_data.WithPass(unlitPass(mat, "S2"))), mgl32.Ident4(), 1)
	s.AddRenderData(render_data.NewRenderData(meshB, render_data.WithPass(unlitPass(mat, "S1"))), mgl32.Ident4(), 1)
	s.AddRenderData(render_data.NewRenderData(meshA, render_data.WithPass(unlitPass(mat, "S1"))), mgl32.Ident4(), 1)
	runFrame(t, s, monoState())

	specs := []struct {
		mesh   model.Mesh
		shader string
	}{
		{meshA, "S1"},
		{meshB, "S1"},
		{meshA, "S2"},
	}
	got := leaves(s)
	if len(got) != len(specs) {
		t.Fatalf("expected %d renderables; got %d", len(specs), len(got))
	}
	for index, spec := range specs {
		if got[index].Mesh != spec.mesh || got[index].Shader.Signature() != spec.shader {
			t.Errorf("[spec %d] expected mesh %d with %s; got %v", index, spec.mesh.ID(), spec.shader, got[index])
		}
	}
	if st := s.Stats(); st.ShaderBinds != 2 || st.DrawCalls != 3 || st.MaterialBinds != 2 {
		t.Fatalf("expected 2 shader binds, 2 material binds and 3 draws; got %+v", st)
	}
}

func TestTransparentDepthOrder(t *testing.T) {
	shaders := newShaders(t, "S1")
	mesh := model.NewCube(1)
	mat := material.NewMaterial()
	s := NewMainSorter(NewNullDevice(), shaders)

	// an opaque item goes before every transparent one
	s.AddRenderData(render_data.NewRenderData(mesh, render_data.WithPass(unlitPass(mat, "S1"))), mgl32.Ident4(), 1)
	for _, d := range []float32{10, 3, 7} {
		p := unlitPass(mat, "S1", render_data.WithRenderOrder(render_data.RenderOrderTransparent))
		s.AddRenderData(render_data.NewRenderData(mesh, render_data.WithPass(p)), mgl32.Ident4(), d)
	}
	runFrame(t, s, monoState())

	got := leaves(s)
	if len(got) != 4 || got[0].Modes.IsTransparent() {
		t.Fatalf("expected the opaque item first of 4; got %d items", len(got))
	}
	for index, exp := range []float32{10, 7, 3} {
		r := got[index+1]
		if r.Distance != exp {
			t.Errorf("[spec %d] expected distance %f; got %f", index, exp, r.Distance)
		}
		if !r.Modes.AlphaBlend() || r.Modes.DepthTest() {
			t.Errorf("[spec %d] expected blending on and depth test off", index)
		}
	}
	if !got[0].Modes.DepthTest() {
		t.Fatal("expected the opaque item to keep its depth test")
	}
}

func TestTransparentMaterialPromotesOrder(t *testing.T) {
	shaders := newShaders(t, "S1")
	mat := material.NewMaterial(material.WithTransparent(true))
	s := NewMainSorter(NewNullDevice(), shaders)

	s.AddRenderData(render_data.NewRenderData(model.NewCube(1), render_data.WithPass(unlitPass(mat, "S1"))), mgl32.Ident4(), 2)
	runFrame(t, s, monoState())

	got := leaves(s)
	if len(got) != 1 || got[0].Modes.RenderOrder() != render_data.RenderOrderTransparent {
		t.Fatalf("expected one transparent item; got %v", got)
	}
}

func TestRenderMaskSelectsEye(t *testing.T) {
	shaders := newShaders(t, "S1")
	mat := material.NewMaterial()
	mesh := model.NewCube(1)
	dev := NewNullDevice()
	s := NewMainSorter(dev, shaders)

	specs := []struct {
		mask render_data.RenderMask
		eye  render_data.RenderMask
		exp  int
	}{
		{render_data.RenderMaskLeft, render_data.RenderMaskRight, 0},
		{render_data.RenderMaskLeft, render_data.RenderMaskLeft, 1},
		{render_data.RenderMaskBoth, render_data.RenderMaskRight, 1},
		{render_data.RenderMaskRight, render_data.RenderMaskBoth, 1},
	}
	for index, spec := range specs {
		rd := render_data.NewRenderData(mesh,
			render_data.WithPass(unlitPass(mat, "S1")),
			render_data.WithRenderMask(spec.mask))
		rs := monoState()
		rs.RenderMask = spec.eye
		rs.RightEye = spec.eye == render_data.RenderMaskRight

		s.AddRenderData(rd, mgl32.Ident4(), 1)
		runFrame(t, s, rs)
		if got := s.Stats().DrawCalls; got != spec.exp {
			t.Errorf("[spec %d] expected %d draws; got %d", index, spec.exp, got)
		}
		s.Clear()
	}
}

func TestLightChangeReselectsShader(t *testing.T) {
	shaders := shader.NewManager(func(template, signature string, useLights, multiview bool) (shader.Source, error) {
		return shader.Source{UsesLights: useLights}, nil
	})
	lights := light.NewManager()
	lights.AddLight(light.NewLight(light.LightTypeDirectional))

	pass := render_data.NewRenderPass(material.NewMaterial(), render_data.WithShaderTemplate("lit"))
	rd := render_data.NewRenderData(model.NewCube(1), render_data.WithPass(pass))
	dev := NewNullDevice()
	s := NewMainSorter(dev, shaders)
	rs := monoState()
	rs.Lights = lights

	s.AddRenderData(rd, mgl32.Ident4(), 1)
	runFrame(t, s, rs)
	first := leaves(s)[0].Shader
	if first.Signature() != "lit$DirectLight1" || pass.IsDirty() {
		t.Fatalf("expected a clean pass on lit$DirectLight1; got %q", first.Signature())
	}
	if _, ok := dev.Uniforms["u_ambient"]; !ok {
		t.Fatal("expected the light uniforms to be bound")
	}
	s.Clear()

	lights.AddLight(light.NewLight(light.LightTypePoint))
	s.AddRenderData(rd, mgl32.Ident4(), 1)
	s.Validate(rs)
	if !pass.IsDirty() {
		t.Fatal("expected the pass to be dirty after the descriptor changed")
	}
	s.Sort(rs)
	if err := s.Render(rs); err != nil {
		t.Fatal(err)
	}
	second := leaves(s)[0].Shader
	if !strings.HasSuffix(second.Signature(), lights.Descriptor()) || second == first || pass.IsDirty() {
		t.Fatalf("expected a new variant ending in %q; got %q", lights.Descriptor(), second.Signature())
	}
}

func TestValidateMarksStaleSignatures(t *testing.T) {
	shaders := newShaders(t, "lit$DirectLight1", "plain")
	lights := light.NewManager()
	lights.AddLight(light.NewLight(light.LightTypeSpot))

	specs := []struct {
		shaderID int
		exp      bool
	}{
		{1, true},  // tail is a directional light
		{2, true},  // unlit signature lacks the descriptor
		{0, true},  // nothing selected yet
		{99, true}, // unknown shader
	}
	s := NewMainSorter(NewNullDevice(), shaders)
	rs := monoState()
	rs.Lights = lights
	for index, spec := range specs {
		pass := render_data.NewRenderPass(material.NewMaterial())
		pass.SetShaderID(spec.shaderID, false)
		s.AddRenderData(render_data.NewRenderData(model.NewCube(1), render_data.WithPass(pass)), mgl32.Ident4(), 1)
		s.Validate(rs)
		if pass.IsDirty() != spec.exp {
			t.Errorf("[spec %d] expected dirty %t", index, spec.exp)
		}
		s.Clear()
	}

	// a matching tail keeps the pass clean
	match, _ := shaders.AddShader("lit"+lights.Descriptor(), shader.Source{UsesLights: true})
	pass := render_data.NewRenderPass(material.NewMaterial())
	pass.SetShaderID(match.ID(), false)
	pass.Material().ClearDirty()
	s.AddRenderData(render_data.NewRenderData(model.NewCube(1), render_data.WithPass(pass)), mgl32.Ident4(), 1)
	s.Validate(rs)
	if pass.IsDirty() {
		t.Fatal("expected a matching signature tail to keep the pass clean")
	}
	s.Clear()

	// unlit passes ignore the descriptor
	unlit := unlitPass(material.NewMaterial(), "plain")
	unlit.SetShaderID(shaders.FindShader("plain").ID(), false)
	unlit.Material().ClearDirty()
	s.AddRenderData(render_data.NewRenderData(model.NewCube(1), render_data.WithPass(unlit)), mgl32.Ident4(), 1)
	s.Validate(rs)
	if unlit.IsDirty() {
		t.Fatal("expected an unlit pass to stay clean while lights are enabled")
	}
}

// keyCompare orders two leaves the way a traversal must: by every key in turn, then
// by insertion.
func keyCompare(keys []SortKey, a, b *Renderable) int {
	for i, k := range keys {
		if k == KeyDistance && !a.Modes.IsTransparent() {
			skip := false
			for _, prev := range keys[:i] {
				skip = skip || prev == KeyRenderOrder
			}
			if skip {
				continue
			}
		}
		if c := compareFuncs[k](a, b); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.seq, b.seq)
}

func randomScene(t *testing.T, s Sorter, seed int64, n int, transparent bool) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	meshes := []model.Mesh{model.NewCube(1), model.NewCube(2), model.NewCube(3)}
	mats := []material.Material{material.NewMaterial(), material.NewMaterial()}
	templates := []string{"S1", "S2", "S3"}
	for i := 0; i < n; i++ {
		var opts []render_data.RenderPassBuilderOption
		if transparent && rng.Intn(3) == 0 {
			opts = append(opts, render_data.WithRenderOrder(render_data.RenderOrderTransparent))
		}
		p := unlitPass(mats[rng.Intn(len(mats))], templates[rng.Intn(len(templates))], opts...)
		rd := render_data.NewRenderData(meshes[rng.Intn(len(meshes))], render_data.WithPass(p))
		s.AddRenderData(rd, mgl32.Ident4(), float32(rng.Intn(4)))
	}
}

func TestTraversalIsSortedAndStable(t *testing.T) {
	specs := []struct {
		keys []SortKey
	}{
		{DefaultSortKeys},
		{[]SortKey{KeyShader, KeyMesh}},
		{[]SortKey{KeyMaterial, KeyRenderOrder, KeyDistance}},
		{[]SortKey{KeyDistance, KeyRenderOrder, KeyMode, KeyShader}},
		{nil},
	}
	for index, spec := range specs {
		s := NewMainSorter(NewNullDevice(), newShaders(t, "S1", "S2", "S3"),
			WithKeys(spec.keys...), WithArenaBlockSize(16))
		randomScene(t, s, int64(index), 200, true)
		runFrame(t, s, monoState())

		got := leaves(s)
		if len(got) != 200 || s.Count() != 200 {
			t.Errorf("[spec %d] expected 200 leaves; got %d", index, len(got))
			continue
		}
		seen := make(map[int]bool)
		for i, r := range got {
			if seen[r.seq] {
				t.Errorf("[spec %d] item %d reached twice", index, r.seq)
			}
			seen[r.seq] = true
			if i > 0 && keyCompare(spec.keys, got[i-1], r) >= 0 {
				t.Errorf("[spec %d] items %d and %d out of order", index, got[i-1].seq, r.seq)
			}
		}
	}
}

func TestEqualItemsKeepInsertionOrder(t *testing.T) {
	s := NewMainSorter(NewNullDevice(), newShaders(t, "S1"))
	mesh := model.NewCube(1)
	mat := material.NewMaterial()
	for i := 0; i < 6; i++ {
		s.AddRenderData(render_data.NewRenderData(mesh, render_data.WithPass(unlitPass(mat, "S1"))), mgl32.Ident4(), 1)
	}
	runFrame(t, s, monoState())

	for index, r := range leaves(s) {
		if r.Seq() != index {
			t.Errorf("[spec %d] expected insertion index %d; got %d", index, index, r.Seq())
		}
	}
}

func TestShaderBindsBoundedByDistinctShaders(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		s := NewMainSorter(NewNullDevice(), newShaders(t, "S1", "S2", "S3"))
		randomScene(t, s, seed, 100, false)
		runFrame(t, s, monoState())

		distinct := make(map[int]bool)
		for _, r := range leaves(s) {
			distinct[r.ShaderID()] = true
		}
		if st := s.Stats(); st.ShaderBinds > len(distinct) || st.DrawCalls != 100 {
			t.Errorf("[spec %d] expected at most %d shader binds for 100 draws; got %+v", seed, len(distinct), st)
		}
	}
}

func TestClearAndResortIsIdempotent(t *testing.T) {
	s := NewMainSorter(NewNullDevice(), newShaders(t, "S1", "S2", "S3"), WithArenaBlockSize(8))
	order := func() []int {
		randomScene(t, s, 42, 50, true)
		runFrame(t, s, monoState())
		var seqs []int
		for _, r := range leaves(s) {
			seqs = append(seqs, r.seq)
		}
		return seqs
	}

	first := order()
	blocks := s.Arena().Blocks()
	s.Clear()
	if s.Arena().Len() != 0 || s.Count() != 0 || len(leaves(s)) != 0 {
		t.Fatal("expected an empty sorter after Clear")
	}
	second := order()

	if len(first) != len(second) {
		t.Fatalf("expected %d items; got %d", len(first), len(second))
	}
	for index := range first {
		if first[index] != second[index] {
			t.Errorf("[spec %d] expected item %d; got %d", index, first[index], second[index])
		}
	}
	if s.Arena().Blocks() != blocks {
		t.Fatalf("expected the arena to reuse %d blocks; got %d", blocks, s.Arena().Blocks())
	}
}

func TestStateChangesAreMinimized(t *testing.T) {
	dev := NewNullDevice()
	s := NewMainSorter(dev, newShaders(t, "S1"))
	mesh := model.NewCube(1)
	mat := material.NewMaterial()
	for i := 0; i < 3; i++ {
		s.AddRenderData(render_data.NewRenderData(mesh, render_data.WithPass(unlitPass(mat, "S1"))), mgl32.Ident4(), 1)
	}
	culled := unlitPass(mat, "S1")
	culled.UpdateModes(func(m *render_data.RenderModes) bool {
		m.SetCullFace(render_data.CullNone)
		return false
	})
	s.AddRenderData(render_data.NewRenderData(mesh, render_data.WithPass(culled)), mgl32.Ident4(), 1)
	runFrame(t, s, monoState())

	st := s.Stats()
	specs := []struct {
		name     string
		exp, got int
	}{
		{"shader binds", 1, st.ShaderBinds},
		{"material binds", 1, st.MaterialBinds},
		{"mesh binds", 1, st.MeshBinds},
		{"state changes", 2, st.StateChanges},
		{"draws", 4, st.DrawCalls},
		{"triangles", 4 * mesh.TriangleCount(), st.Triangles},
		{"transform blocks", 1, st.TransformBlocks},
	}
	for index, spec := range specs {
		if spec.exp != spec.got {
			t.Errorf("[spec %d] expected %d %s; got %d", index, spec.exp, spec.name, spec.got)
		}
	}
	if last := dev.Calls[len(dev.Calls)-1]; !strings.HasPrefix(last, "restore states") {
		t.Fatalf("expected the issue loop to end restoring state; got %q", last)
	}
}

func TestTransformBlocksRotate(t *testing.T) {
	dev := NewNullDevice()
	s := NewMainSorter(dev, newShaders(t, "S1"), WithMaxMatricesPerBlock(2))
	mesh := model.NewCube(1)
	mat := material.NewMaterial()
	for i := 0; i < 5; i++ {
		m := mgl32.Translate3D(float32(i), 0, 0)
		s.AddRenderData(render_data.NewRenderData(mesh, render_data.WithPass(unlitPass(mat, "S1"))), m, 1)
	}
	runFrame(t, s, monoState())

	if dev.Uploads != 3 || s.Pool().InUse() != 3 {
		t.Fatalf("expected 3 uploaded blocks; got %d uploads and %d in use", dev.Uploads, s.Pool().InUse())
	}
	for index, r := range leaves(s) {
		if r.Block.Index() != index/2 || r.MatrixOffset != index%2 {
			t.Errorf("[spec %d] expected block %d offset %d; got block %d offset %d",
				index, index/2, index%2, r.Block.Index(), r.MatrixOffset)
		}
		m, err := r.Block.Mat4At(uniform_block.MatrixArrayName, r.MatrixOffset)
		if err != nil || m != r.Model {
			t.Errorf("[spec %d] expected the model matrix in the block; got %v (%v)", index, m, err)
		}
	}
}

func TestMultiviewWritesBothEyes(t *testing.T) {
	s := NewMainSorter(NewNullDevice(), newShaders(t, "S1#multiview"), WithMultiview(true))
	s.AddRenderData(render_data.NewRenderData(model.NewCube(1),
		render_data.WithPass(unlitPass(material.NewMaterial(), "S1"))), mgl32.Ident4(), 1)

	rs := monoState()
	rs.RenderMask = render_data.RenderMaskBoth
	rs.View[0] = mgl32.Translate3D(1, 0, 0)
	rs.View[1] = mgl32.Translate3D(-1, 0, 0)
	runFrame(t, s, rs)

	got := leaves(s)
	if len(got) != 1 {
		t.Fatalf("expected 1 item; got %d", len(got))
	}
	r := got[0]
	for index, exp := range rs.View {
		m, err := r.Block.Mat4At(uniform_block.MatrixArrayName, r.MatrixOffset+index)
		if err != nil || m != exp {
			t.Errorf("[spec %d] expected eye matrix %v; got %v (%v)", index, exp, m, err)
		}
	}
}

func TestMatrixUniformsBypassBlocks(t *testing.T) {
	shaders := shader.NewManager(nil)
	if _, err := shaders.AddShader("loose", shader.Source{UsesMatrixUniforms: true}); err != nil {
		t.Fatal(err)
	}
	dev := NewNullDevice()
	s := NewMainSorter(dev, shaders)
	s.AddRenderData(render_data.NewRenderData(model.NewCube(1),
		render_data.WithPass(unlitPass(material.NewMaterial(), "loose"))), mgl32.Translate3D(0, 2, 0), 1)
	runFrame(t, s, monoState())

	r := leaves(s)[0]
	if len(r.Matrices) != 1 || r.Matrices[0] != mgl32.Translate3D(0, 2, 0) {
		t.Fatalf("expected the mvp as a loose uniform; got %v", r.Matrices)
	}
	if s.Pool().InUse() != 0 || dev.Uploads != 0 {
		t.Fatal("expected no transform block for loose uniforms")
	}
}

func TestPerDrawErrorsDegradeOneDraw(t *testing.T) {
	shaders := newShaders(t, "ok", "broken")
	if _, err := shaders.AddShader("bad_matrices", shader.Source{MatrixCalc: "output0 = output1 * model; output1 = model"}); err != nil {
		t.Fatal(err)
	}
	dev := NewNullDevice()
	dev.FailShaders[shaders.FindShader("broken").ID()] = true

	pending := material.NewMaterial(material.WithTexture("albedo", texture.NewTexture()))
	specs := []struct {
		template string
		mat      material.Material
	}{
		{"ok", material.NewMaterial()},
		{"broken", material.NewMaterial()},
		{"bad_matrices", material.NewMaterial()},
		{"ok", pending},
		{"missing", material.NewMaterial()},
	}
	s := NewMainSorter(dev, shaders)
	for _, spec := range specs {
		s.AddRenderData(render_data.NewRenderData(model.NewCube(1),
			render_data.WithPass(unlitPass(spec.mat, spec.template))), mgl32.Ident4(), 1)
	}
	runFrame(t, s, monoState())

	if st := s.Stats(); st.Items != 4 || st.DrawCalls != 1 {
		t.Fatalf("expected 4 merged items and 1 draw; got %+v", st)
	}
	if shaders.FindShader("broken").IsValid() || shaders.FindShader("bad_matrices").IsValid() {
		t.Fatal("expected failing shaders to be invalidated")
	}
}

func TestOversizedMatrixProgramSkipsDraw(t *testing.T) {
	shaders := newShaders(t, "good")
	if _, err := shaders.AddShader("big", shader.Source{MatrixCalc: "output5 = model"}); err != nil {
		t.Fatal(err)
	}
	s := NewMainSorter(NewNullDevice(), shaders, WithMaxMatricesPerBlock(4))
	for _, template := range []string{"good", "big"} {
		s.AddRenderData(render_data.NewRenderData(model.NewCube(1),
			render_data.WithPass(unlitPass(material.NewMaterial(), template))), mgl32.Ident4(), 1)
	}
	runFrame(t, s, monoState())

	if st := s.Stats(); st.DrawCalls != 1 {
		t.Fatalf("expected the fitting draw to render; got %+v", st)
	}
	if shaders.FindShader("big").IsValid() {
		t.Fatal("expected the oversized program's shader to be invalidated")
	}
}

func TestErrorShaderSubstitution(t *testing.T) {
	shaders := newShaders(t, shader.ErrorShaderSignature)
	pass := unlitPass(material.NewMaterial(), "missing")
	s := NewMainSorter(NewNullDevice(), shaders)
	s.AddRenderData(render_data.NewRenderData(model.NewCube(1), render_data.WithPass(pass)), mgl32.Ident4(), 1)
	runFrame(t, s, monoState())

	got := leaves(s)
	if len(got) != 1 || got[0].Shader.Signature() != shader.ErrorShaderSignature {
		t.Fatalf("expected the error shader; got %v", got)
	}
	if !pass.IsDirty() || s.Stats().DrawCalls != 1 {
		t.Fatal("expected a dirty pass drawn with the error shader")
	}
}

func TestShadowSorter(t *testing.T) {
	shaders := newShaders(t, shader.DepthShaderSignature, "S1")
	mesh := model.NewCube(1)
	mat := material.NewMaterial()

	caster := unlitPass(mat, "S1")
	transparent := unlitPass(mat, "S1", render_data.WithRenderOrder(render_data.RenderOrderTransparent))
	receiver := unlitPass(mat, "S1")
	s := NewShadowSorter(NewNullDevice(), shaders)
	s.AddRenderData(render_data.NewRenderData(mesh, render_data.WithPass(caster)), mgl32.Ident4(), 1)
	s.AddRenderData(render_data.NewRenderData(mesh, render_data.WithPass(transparent)), mgl32.Ident4(), 2)
	s.AddRenderData(render_data.NewRenderData(mesh, render_data.WithPass(receiver),
		render_data.WithCastShadows(false)), mgl32.Ident4(), 3)
	s.AddRenderData(render_data.NewRenderData(model.NewMesh(), render_data.WithPass(unlitPass(mat, "S1"))), mgl32.Ident4(), 4)
	runFrame(t, s, monoState())

	got := leaves(s)
	if len(got) != 2 {
		t.Fatalf("expected 2 shadow casters; got %d", len(got))
	}
	for index, r := range got {
		if r.Shader.Signature() != shader.DepthShaderSignature {
			t.Errorf("[spec %d] expected the depth shader; got %q", index, r.Shader.Signature())
		}
		if r.Modes.AlphaBlend() || r.Modes.UseLights() || !r.Modes.DepthTest() {
			t.Errorf("[spec %d] expected opaque unlit depth-tested modes", index)
		}
	}
	if !caster.IsDirty() {
		t.Fatal("expected the shadow pass to leave the pass shader untouched")
	}
}

type rejectByName string

func (n rejectByName) Admit(_ *RenderState, obj game_object.GameObject) bool {
	return obj.Name() != string(n)
}

func TestCullWalksHierarchy(t *testing.T) {
	cam := camera.NewCamera(camera.WithController(camera.NewCameraController(camera.WithRadius(5), camera.WithElevation(0))))
	cube := model.NewCube(1)
	mat := material.NewMaterial()
	object := func(name string, x, y, z float32, opts ...game_object.GameObjectBuilderOption) game_object.GameObject {
		rd := render_data.NewRenderData(cube, render_data.WithPass(unlitPass(mat, "S1")))
		opts = append([]game_object.GameObjectBuilderOption{
			game_object.WithName(name),
			game_object.WithPosition(x, y, z),
			game_object.WithRenderData(rd),
		}, opts...)
		return game_object.NewGameObject(opts...)
	}

	visible := object("visible", 0, 0, 0, game_object.WithCollider(true))
	behind := object("behind", 0, 0, 20)
	behind.AddChild(object("child", 0, 0, -20))
	far := object("far", 100, 0, 0)
	far.AddChild(object("far_child", 0, 0, 0))
	disabled := object("disabled", 0, 0, 0, game_object.WithEnabled(false))
	occluded := object("occluded", 1, 0, 0)

	sc := scene.NewScene("cull", scene.WithCamera(cam), scene.WithObjects(visible, behind, far, disabled, occluded))
	defer sc.Close()
	sc.Prepare()

	s := NewMainSorter(NewNullDevice(), newShaders(t, "S1"), WithOcclusionCuller(rejectByName("occluded")))
	rs := NewRenderState(sc, cam, render_data.RenderMaskLeft)
	stats, err := s.Frame(context.Background(), rs)
	if err != nil {
		t.Fatal(err)
	}

	specs := []struct {
		name     string
		exp, got int
	}{
		{"items", 2, stats.Items},
		{"culled", 2, stats.Culled},
		{"occlusion skipped", 1, stats.OcclusionSkipped},
		{"draws", 2, stats.DrawCalls},
	}
	for index, spec := range specs {
		if spec.exp != spec.got {
			t.Errorf("[spec %d] expected %d %s; got %d", index, spec.exp, spec.name, spec.got)
		}
	}
	if got := sc.VisibleColliders(); len(got) != 1 || got[0] != visible {
		t.Fatalf("expected the visible collider to be picked; got %d", len(got))
	}
}

func TestVisibleCollidersResetEachFrame(t *testing.T) {
	ctrl := func() camera.CameraController {
		return camera.NewCameraController(camera.WithRadius(5), camera.WithElevation(0))
	}
	specs := []struct {
		cam       camera.Camera
		masks     []render_data.RenderMask
		multiview bool
	}{
		{camera.NewCamera(camera.WithController(ctrl())), []render_data.RenderMask{render_data.RenderMaskLeft}, false},
		{camera.NewCamera(camera.WithStereo(0.064), camera.WithController(ctrl())), []render_data.RenderMask{render_data.RenderMaskLeft, render_data.RenderMaskRight}, false},
		{camera.NewCamera(camera.WithStereo(0.064), camera.WithController(ctrl())), []render_data.RenderMask{render_data.RenderMaskBoth}, true},
	}
	for index, spec := range specs {
		rd := render_data.NewRenderData(model.NewCube(1), render_data.WithPass(unlitPass(material.NewMaterial(), "S1")))
		obj := game_object.NewGameObject(game_object.WithRenderData(rd), game_object.WithCollider(true))
		sc := scene.NewScene("colliders", scene.WithCamera(spec.cam), scene.WithObjects(obj))
		sc.Prepare()

		s := NewMainSorter(NewNullDevice(), newShaders(t, "S1", "S1#multiview"), WithMultiview(spec.multiview))
		for frame := 0; frame < 3; frame++ {
			for _, mask := range spec.masks {
				if _, err := s.Frame(context.Background(), NewRenderState(sc, spec.cam, mask)); err != nil {
					t.Fatalf("[spec %d] frame %d: %v", index, frame, err)
				}
			}
		}
		if got := sc.VisibleColliders(); len(got) != 1 || got[0] != obj {
			t.Errorf("[spec %d] expected 1 visible collider after 3 frames; got %d", index, len(got))
		}
		sc.Close()
	}
}

func TestStereoCullLocksColliders(t *testing.T) {
	cam := camera.NewCamera(camera.WithStereo(0.064))
	sc := scene.NewScene("stereo", scene.WithCamera(cam))
	defer sc.Close()

	if err := sc.LockColliders(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := NewMainSorter(NewNullDevice(), newShaders(t))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Cull(ctx, NewRenderState(sc, cam, render_data.RenderMaskBoth)); !errors.Is(err, scene.ErrCollidersBusy) {
		t.Fatalf("expected ErrCollidersBusy; got %v", err)
	}
	sc.UnlockColliders()
	if err := s.Cull(context.Background(), NewRenderState(sc, cam, render_data.RenderMaskLeft)); err != nil {
		t.Fatal(err)
	}
}

func TestDumpOutline(t *testing.T) {
	s := NewMainSorter(NewNullDevice(), newShaders(t, "S1", "S2"))
	randomScene(t, s, 7, 20, true)
	runFrame(t, s, monoState())

	var sb strings.Builder
	if err := s.Dump(&sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for index, exp := range []string{"RENDER_ORDER=2000", "SHADER=", "- #"} {
		if !strings.Contains(out, exp) {
			t.Errorf("[spec %d] expected %q in the dump", index, exp)
		}
	}
}

func TestParseSortKeys(t *testing.T) {
	specs := []struct {
		in  string
		exp []SortKey
		err bool
	}{
		{"RENDER_ORDER,DISTANCE,SHADER,MESH,MATERIAL", DefaultSortKeys, false},
		{"shader, mode", []SortKey{KeyShader, KeyMode}, false},
		{"SHADER,COLOR", nil, true},
		{"MESH,MESH,MESH,MESH,MESH,MESH,MESH,MESH,MESH", nil, true},
	}
	for index, spec := range specs {
		got, err := ParseSortKeys(spec.in)
		if (err != nil) != spec.err {
			t.Errorf("[spec %d] expected error %t; got %v", index, spec.err, err)
			continue
		}
		if len(got) != len(spec.exp) {
			t.Errorf("[spec %d] expected %v; got %v", index, spec.exp, got)
			continue
		}
		for i := range got {
			if got[i] != spec.exp[i] {
				t.Errorf("[spec %d] expected %v; got %v", index, spec.exp, got)
				break
			}
		}
	}
}
