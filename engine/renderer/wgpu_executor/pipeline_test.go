package wgpu_executor

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
)

func TestPipelineKeyCulling(t *testing.T) {
	target := targetFormat{color: colorFormat, depth: depthFormat, samples: 1}
	specs := []struct {
		modes    render_data.CullFace
		base     render_data.CullFace
		wantCull wgpu.CullMode
	}{
		{render_data.CullBack, render_data.CullBack, wgpu.CullModeBack},
		{render_data.CullBack, render_data.CullFront, wgpu.CullModeFront},
		{render_data.CullNone, render_data.CullFront, wgpu.CullModeNone},
		{render_data.CullFront, render_data.CullBack, wgpu.CullModeFront},
	}
	for i, spec := range specs {
		m := render_data.DefaultRenderModes()
		m.SetCullFace(spec.modes)
		key := newPipelineKey(1, &m, spec.base, target)
		if key.cull != spec.wantCull {
			t.Errorf("[spec %d] cull = %v, want %v", i, key.cull, spec.wantCull)
		}
	}
}

func TestPipelineKeySeparatesState(t *testing.T) {
	target := targetFormat{color: colorFormat, depth: depthStencilFormat, samples: 1}
	base := render_data.DefaultRenderModes()
	baseKey := newPipelineKey(1, &base, render_data.CullBack, target)

	specs := []func(m *render_data.RenderModes){
		func(m *render_data.RenderModes) { m.SetAlphaBlend(false) },
		func(m *render_data.RenderModes) { m.SetDrawMode(render_data.DrawLines) },
		func(m *render_data.RenderModes) { m.SetStencilFunc(render_data.CompareEqual, 3, 0xFF) },
		func(m *render_data.RenderModes) { m.SetOffset(true, 1, 2) },
		func(m *render_data.RenderModes) { m.SetStencilMask(0x0F) },
	}
	for i, mutate := range specs {
		m := render_data.DefaultRenderModes()
		mutate(&m)
		if newPipelineKey(1, &m, render_data.CullBack, target) == baseKey {
			t.Errorf("[spec %d] mutated modes share the default pipeline", i)
		}
	}

	same := render_data.DefaultRenderModes()
	if newPipelineKey(1, &same, render_data.CullBack, target) != baseKey {
		t.Errorf("equal modes produced different keys")
	}
	if newPipelineKey(2, &same, render_data.CullBack, target) == baseKey {
		t.Errorf("different shaders share a key")
	}
	msaa := targetFormat{color: colorFormat, depth: depthStencilFormat, samples: 4}
	if newPipelineKey(1, &same, render_data.CullBack, msaa) == baseKey {
		t.Errorf("different sample counts share a key")
	}
}

func TestDepthStencilState(t *testing.T) {
	m := render_data.DefaultRenderModes()
	if ds := depthStencilState(&m, wgpu.TextureFormatUndefined); ds != nil {
		t.Errorf("target without depth got %+v", ds)
	}

	ds := depthStencilState(&m, depthFormat)
	if !ds.DepthWriteEnabled || ds.DepthCompare != wgpu.CompareFunctionLessEqual {
		t.Errorf("default modes: write %t compare %v", ds.DepthWriteEnabled, ds.DepthCompare)
	}

	m.SetDepthTest(false)
	ds = depthStencilState(&m, depthFormat)
	if ds.DepthWriteEnabled || ds.DepthCompare != wgpu.CompareFunctionAlways {
		t.Errorf("depth test off: write %t compare %v", ds.DepthWriteEnabled, ds.DepthCompare)
	}

	m = render_data.DefaultRenderModes()
	m.SetOffset(true, 1.5, 4)
	m.SetStencilTest(true)
	m.SetStencilFunc(render_data.CompareNotEqual, 1, 0x0F)
	m.SetStencilOp(render_data.StencilKeep, render_data.StencilIncrWrap, render_data.StencilReplace)
	m.SetStencilMask(0xF0)

	ds = depthStencilState(&m, depthFormat)
	if ds.DepthBias != 4 || ds.DepthBiasSlopeScale != 1.5 {
		t.Errorf("offset: bias %d slope %v, want 4/1.5", ds.DepthBias, ds.DepthBiasSlopeScale)
	}
	if ds.StencilFront.Compare != wgpu.CompareFunctionAlways {
		t.Errorf("stencil applied to a target without stencil: %+v", ds.StencilFront)
	}

	ds = depthStencilState(&m, depthStencilFormat)
	want := wgpu.StencilFaceState{
		Compare:     wgpu.CompareFunctionNotEqual,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationIncrementWrap,
		PassOp:      wgpu.StencilOperationReplace,
	}
	if ds.StencilFront != want || ds.StencilBack != want {
		t.Errorf("stencil faces = %+v/%+v, want %+v", ds.StencilFront, ds.StencilBack, want)
	}
	if ds.StencilReadMask != 0x0F || ds.StencilWriteMask != 0xF0 {
		t.Errorf("stencil masks = %#x/%#x, want 0xf/0xf0", ds.StencilReadMask, ds.StencilWriteMask)
	}
}

func TestBlendAndMultisampleState(t *testing.T) {
	m := render_data.DefaultRenderModes()
	b := blendState(&m)
	if b == nil || b.Color.SrcFactor != wgpu.BlendFactorOne || b.Color.DstFactor != wgpu.BlendFactorOneMinusSrcAlpha {
		t.Errorf("premultiplied blend = %+v", b)
	}
	m.SetAlphaBlend(false)
	if b := blendState(&m); b != nil {
		t.Errorf("blend off produced %+v", b)
	}

	m.SetAlphaToCoverage(true)
	specs := []struct {
		samples  uint32
		count    uint32
		coverage bool
	}{
		{0, 1, false},
		{1, 1, false},
		{4, 4, true},
	}
	for i, spec := range specs {
		ms := multisampleState(&m, spec.samples)
		if ms.Count != spec.count || ms.AlphaToCoverageEnabled != spec.coverage {
			t.Errorf("[spec %d] count %d coverage %t, want %d/%t", i, ms.Count, ms.AlphaToCoverageEnabled, spec.count, spec.coverage)
		}
	}
}

func TestTopologies(t *testing.T) {
	specs := []struct {
		mode render_data.DrawMode
		want wgpu.PrimitiveTopology
	}{
		{render_data.DrawTriangles, wgpu.PrimitiveTopologyTriangleList},
		{render_data.DrawTriangleFan, wgpu.PrimitiveTopologyTriangleList},
		{render_data.DrawLineLoop, wgpu.PrimitiveTopologyLineStrip},
		{render_data.DrawPoints, wgpu.PrimitiveTopologyPointList},
	}
	for i, spec := range specs {
		if got := topologies[spec.mode]; got != spec.want {
			t.Errorf("[spec %d] %v maps to %v, want %v", i, spec.mode, got, spec.want)
		}
	}
}

func TestPaddedBytes(t *testing.T) {
	specs := []struct {
		data    []byte
		minSize uint64
		want    int
	}{
		{nil, 0, 4},
		{make([]byte, 5), 0, 8},
		{make([]byte, 8), 0, 8},
		{make([]byte, 8), 32, 32},
	}
	for i, spec := range specs {
		if got := len(paddedBytes(spec.data, spec.minSize)); got != spec.want {
			t.Errorf("[spec %d] len = %d, want %d", i, got, spec.want)
		}
	}
}
