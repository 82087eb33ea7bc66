package wgpu_executor

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
)

// pipelineKey identifies a render pipeline: the shader module, the fixed-function
// state folded from RenderModes and the attachment formats of the pass.
type pipelineKey struct {
	shader       int
	flags        uint64
	stencilRef   int32
	stencilMasks [2]uint32
	offset       [2]float32
	cull         wgpu.CullMode
	target       targetFormat
}

// targetFormat describes the attachments a pipeline renders into.
type targetFormat struct {
	color   wgpu.TextureFormat
	depth   wgpu.TextureFormat
	samples uint32
}

// newPipelineKey folds the draw's modes into a key. baseCull is the face culling the
// pass selected, used when the modes keep the default back-face culling.
func newPipelineKey(shaderID int, m *render_data.RenderModes, baseCull render_data.CullFace, target targetFormat) pipelineKey {
	cull := m.CullFace()
	if cull == render_data.CullBack {
		cull = baseCull
	}
	return pipelineKey{
		shader:       shaderID,
		flags:        m.RenderFlags(),
		stencilRef:   m.StencilRef(),
		stencilMasks: [2]uint32{m.StencilFuncMask(), m.StencilMask()},
		offset:       [2]float32{m.OffsetFactor(), m.OffsetUnits()},
		cull:         cullModes[cull],
		target:       target,
	}
}

var cullModes = map[render_data.CullFace]wgpu.CullMode{
	render_data.CullBack:  wgpu.CullModeBack,
	render_data.CullFront: wgpu.CullModeFront,
	render_data.CullNone:  wgpu.CullModeNone,
}

// Line loops and fans have no WebGPU topology; they draw as strips and lists.
var topologies = map[render_data.DrawMode]wgpu.PrimitiveTopology{
	render_data.DrawPoints:        wgpu.PrimitiveTopologyPointList,
	render_data.DrawLines:         wgpu.PrimitiveTopologyLineList,
	render_data.DrawLineStrip:     wgpu.PrimitiveTopologyLineStrip,
	render_data.DrawLineLoop:      wgpu.PrimitiveTopologyLineStrip,
	render_data.DrawTriangles:     wgpu.PrimitiveTopologyTriangleList,
	render_data.DrawTriangleStrip: wgpu.PrimitiveTopologyTriangleStrip,
	render_data.DrawTriangleFan:   wgpu.PrimitiveTopologyTriangleList,
}

var blendFactors = map[render_data.BlendFunc]wgpu.BlendFactor{
	render_data.BlendZero:             wgpu.BlendFactorZero,
	render_data.BlendOne:              wgpu.BlendFactorOne,
	render_data.BlendSrcColor:         wgpu.BlendFactorSrc,
	render_data.BlendOneMinusSrcColor: wgpu.BlendFactorOneMinusSrc,
	render_data.BlendSrcAlpha:         wgpu.BlendFactorSrcAlpha,
	render_data.BlendOneMinusSrcAlpha: wgpu.BlendFactorOneMinusSrcAlpha,
	render_data.BlendDstAlpha:         wgpu.BlendFactorDstAlpha,
	render_data.BlendOneMinusDstAlpha: wgpu.BlendFactorOneMinusDstAlpha,
	render_data.BlendDstColor:         wgpu.BlendFactorDst,
	render_data.BlendOneMinusDstColor: wgpu.BlendFactorOneMinusDst,
}

var compareFunctions = map[render_data.CompareFunc]wgpu.CompareFunction{
	render_data.CompareNever:    wgpu.CompareFunctionNever,
	render_data.CompareLess:     wgpu.CompareFunctionLess,
	render_data.CompareEqual:    wgpu.CompareFunctionEqual,
	render_data.CompareLEqual:   wgpu.CompareFunctionLessEqual,
	render_data.CompareGreater:  wgpu.CompareFunctionGreater,
	render_data.CompareNotEqual: wgpu.CompareFunctionNotEqual,
	render_data.CompareGEqual:   wgpu.CompareFunctionGreaterEqual,
	render_data.CompareAlways:   wgpu.CompareFunctionAlways,
}

var stencilOperations = map[render_data.StencilOp]wgpu.StencilOperation{
	render_data.StencilKeep:     wgpu.StencilOperationKeep,
	render_data.StencilZero:     wgpu.StencilOperationZero,
	render_data.StencilReplace:  wgpu.StencilOperationReplace,
	render_data.StencilIncr:     wgpu.StencilOperationIncrementClamp,
	render_data.StencilIncrWrap: wgpu.StencilOperationIncrementWrap,
	render_data.StencilDecr:     wgpu.StencilOperationDecrementClamp,
	render_data.StencilDecrWrap: wgpu.StencilOperationDecrementWrap,
	render_data.StencilInvert:   wgpu.StencilOperationInvert,
}

// blendState returns nil when blending is off.
func blendState(m *render_data.RenderModes) *wgpu.BlendState {
	if !m.AlphaBlend() {
		return nil
	}
	c := wgpu.BlendComponent{
		SrcFactor: blendFactors[m.SourceBlendFunc()],
		DstFactor: blendFactors[m.DestBlendFunc()],
		Operation: wgpu.BlendOperationAdd,
	}
	return &wgpu.BlendState{Color: c, Alpha: c}
}

// depthStencilState returns nil for targets without a depth attachment.
func depthStencilState(m *render_data.RenderModes, format wgpu.TextureFormat) *wgpu.DepthStencilState {
	if format == wgpu.TextureFormatUndefined {
		return nil
	}
	ds := &wgpu.DepthStencilState{
		Format:            format,
		DepthWriteEnabled: m.DepthTest() && m.DepthMask(),
		DepthCompare:      wgpu.CompareFunctionAlways,
		StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
	if m.DepthTest() {
		ds.DepthCompare = wgpu.CompareFunctionLessEqual
	}
	if m.Offset() {
		ds.DepthBias = int32(m.OffsetUnits())
		ds.DepthBiasSlopeScale = m.OffsetFactor()
	}
	if m.StencilTest() && format == wgpu.TextureFormatDepth24PlusStencil8 {
		fail, depthFail, pass := m.StencilOps()
		face := wgpu.StencilFaceState{
			Compare:     compareFunctions[m.StencilFunc()],
			FailOp:      stencilOperations[fail],
			DepthFailOp: stencilOperations[depthFail],
			PassOp:      stencilOperations[pass],
		}
		ds.StencilFront, ds.StencilBack = face, face
		ds.StencilReadMask = m.StencilFuncMask()
		ds.StencilWriteMask = m.StencilMask()
	}
	return ds
}

// multisampleState turns alpha-to-coverage on only for multisampled targets, the only
// ones where coverage exists.
func multisampleState(m *render_data.RenderModes, samples uint32) wgpu.MultisampleState {
	ms := wgpu.MultisampleState{Count: max(samples, 1), Mask: 0xFFFFFFFF}
	if samples > 1 {
		ms.AlphaToCoverageEnabled = m.AlphaToCoverage()
	}
	return ms
}

// compiledShader is a WGSL module with its reflected interface and the layouts the
// executor created for it.
type compiledShader struct {
	label   string
	module  *wgpu.ShaderModule
	reflect *reflection
	layouts []*wgpu.BindGroupLayout
	layout  *wgpu.PipelineLayout
}

func (c *compiledShader) release() {
	if c.layout != nil {
		c.layout.Release()
	}
	for _, l := range c.layouts {
		if l != nil {
			l.Release()
		}
	}
	c.module.Release()
}

// createLayouts builds one bind group layout per declared group, filling gaps with
// empty layouts so group indices stay positional.
func (e *executorImpl) createLayouts(c *compiledShader) error {
	maxGroup := c.reflect.maxGroup()
	c.layouts = make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := 0; g <= maxGroup; g++ {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(c.reflect.groups[uint32(g)]))
		for _, b := range c.reflect.groups[uint32(g)] {
			entries = append(entries, b.entry)
		}
		layout, err := e.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", c.label, g),
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("bind group layout %d: %w", g, err)
		}
		c.layouts[g] = layout
	}
	layout, err := e.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            c.label,
		BindGroupLayouts: c.layouts,
	})
	if err != nil {
		return err
	}
	c.layout = layout
	return nil
}

// pipeline returns the cached render pipeline for a key, creating it on first use.
func (e *executorImpl) pipeline(c *compiledShader, m *render_data.RenderModes, key pipelineKey) (*wgpu.RenderPipeline, error) {
	if p, ok := e.pipelines[key]; ok {
		return p, nil
	}

	var buffers []wgpu.VertexBufferLayout
	if c.reflect.vertexLayout != nil {
		buffers = []wgpu.VertexBufferLayout{*c.reflect.vertexLayout}
	}
	desc := &wgpu.RenderPipelineDescriptor{
		Label:  c.label,
		Layout: c.layout,
		Vertex: wgpu.VertexState{
			Module:     c.module,
			EntryPoint: c.reflect.vertexEntry,
			Buffers:    buffers,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topologies[m.DrawMode()],
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  key.cull,
		},
		Multisample:  multisampleState(m, key.target.samples),
		DepthStencil: depthStencilState(m, key.target.depth),
	}
	if c.reflect.fragmentEntry != "" && key.target.color != wgpu.TextureFormatUndefined {
		desc.Fragment = &wgpu.FragmentState{
			Module:     c.module,
			EntryPoint: c.reflect.fragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    key.target.color,
				Blend:     blendState(m),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		}
	}

	p, err := e.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", c.label, err)
	}
	e.pipelines[key] = p
	e.logger.Debugf("created pipeline %s (%d cached)", c.label, len(e.pipelines))
	return p, nil
}
