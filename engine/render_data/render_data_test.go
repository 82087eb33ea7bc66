package render_data

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
)

func TestDefaultRenderFlags(t *testing.T) {
	m := DefaultRenderModes()
	flags := m.RenderFlags()

	for _, spec := range []struct {
		name string
		bit  uint64
		on   bool
	}{
		{"useLights", flagUseLights, true},
		{"castShadows", flagCastShadows, true},
		{"alphaBlend", flagAlphaBlend, true},
		{"depthTest", flagDepthTest, true},
		{"depthMask", flagDepthMask, true},
		{"offset", flagOffset, false},
		{"stencilTest", flagStencilTest, false},
	} {
		if got := flags&spec.bit != 0; got != spec.on {
			t.Errorf("expected %s bit to be %t; got %t", spec.name, spec.on, got)
		}
	}
}

func TestRenderFlagsDistinguishFields(t *testing.T) {
	mutations := []func(m *RenderModes){
		func(m *RenderModes) { m.SetUseLights(false) },
		func(m *RenderModes) { m.SetUseLightmap(true) },
		func(m *RenderModes) { m.SetCastShadows(false) },
		func(m *RenderModes) { m.SetAlphaBlend(false) },
		func(m *RenderModes) { m.SetAlphaToCoverage(true) },
		func(m *RenderModes) { m.SetInvertCoverageMask(true) },
		func(m *RenderModes) { m.SetDepthTest(false) },
		func(m *RenderModes) { m.SetDepthMask(false) },
		func(m *RenderModes) { m.SetOffset(true, 1, 1) },
		func(m *RenderModes) { m.SetStencilTest(true) },
		func(m *RenderModes) { m.SetCullFace(CullNone) },
		func(m *RenderModes) { m.SetDrawMode(DrawLines) },
		func(m *RenderModes) { m.SetBlendFunc(BlendSrcAlpha, BlendOneMinusSrcAlpha) },
		func(m *RenderModes) { m.SetBlendFunc(BlendOne, BlendOne) },
		func(m *RenderModes) { m.SetRenderMask(RenderMaskLeft) },
		func(m *RenderModes) { m.SetStencilFunc(CompareEqual, 1, 0xFF) },
		func(m *RenderModes) { m.SetStencilOp(StencilKeep, StencilKeep, StencilReplace) },
		func(m *RenderModes) { m.SetRenderOrder(RenderOrderTransparent) },
		func(m *RenderModes) { m.SetRenderOrder(RenderOrderStencil) },
	}

	base := DefaultRenderModes()
	seen := map[uint64]int{base.RenderFlags(): -1}
	for index, mutate := range mutations {
		m := DefaultRenderModes()
		mutate(&m)
		flags := m.RenderFlags()
		if prev, dup := seen[flags]; dup {
			t.Errorf("[mutation %d] flags %#x collide with mutation %d", index, flags, prev)
			continue
		}
		seen[flags] = index
	}
}

func TestShaderAffectingSettersReportChange(t *testing.T) {
	m := DefaultRenderModes()
	if m.SetUseLights(true) {
		t.Error("expected SetUseLights(true) on a lit pass to report no change")
	}
	if !m.SetUseLights(false) {
		t.Error("expected SetUseLights(false) to report a change")
	}
	if !m.SetCastShadows(false) {
		t.Error("expected SetCastShadows(false) to report a change")
	}
	if m.SetCastShadows(false) {
		t.Error("expected a repeated SetCastShadows(false) to report no change")
	}
}

func TestRenderPassDirtyTracking(t *testing.T) {
	mat := material.NewMaterial()
	p := NewRenderPass(mat, WithShaderTemplate("Phong"))
	if !p.IsDirty() {
		t.Fatal("expected a new pass to be dirty")
	}

	p.SetShaderID(3, false)
	if p.IsDirty() || p.ShaderID(false) != 3 || p.ShaderID(true) != 0 {
		t.Fatalf("expected clean pass with mono shader 3; got dirty=%t mono=%d multiview=%d", p.IsDirty(), p.ShaderID(false), p.ShaderID(true))
	}

	p.SetUseLights(true)
	if p.IsDirty() {
		t.Fatal("expected an unchanged lighting flag to leave the pass clean")
	}
	p.SetUseLights(false)
	if !p.IsDirty() {
		t.Fatal("expected toggling lighting to dirty the pass")
	}

	p.SetShaderID(4, false)
	p.SetMaterial(mat)
	if p.IsDirty() {
		t.Fatal("expected setting the same material to leave the pass clean")
	}
	p.SetMaterial(material.NewMaterial())
	if !p.IsDirty() {
		t.Fatal("expected a new material to dirty the pass")
	}
}
