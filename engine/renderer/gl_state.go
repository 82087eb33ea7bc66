package renderer

import (
	"maps"

	"github.com/barkimedes/go-deepcopy"

	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
)

// GLState is the fixed-function state the raster backend tracks. Calls are only sent
// to the context for fields that differ from the tracked value.
type GLState struct {
	Caps           map[uint32]bool
	DepthFunc      uint32
	DepthMask      bool
	BlendSrc       uint32
	BlendDst       uint32
	CullFace       uint32
	FrontFace      uint32
	PolygonOffset  [2]float32
	LineWidth      float32
	StencilFunc    uint32
	StencilRef     int32
	StencilRefMask uint32
	StencilOps     [3]uint32
	StencilMask    uint32
	SampleCoverage float32
	CoverageInvert bool
	ColorMask      [4]bool
}

// DefaultGLState returns the between-draws defaults: depth test on with LEQUAL, back
// faces culled with CCW front faces, premultiplied blending, no polygon offset and a
// line width of 1.
//
// Returns:
//   - GLState: the defaults
func DefaultGLState() GLState {
	return GLState{
		Caps: map[uint32]bool{
			glDepthTest:             true,
			glCullFace:              true,
			glBlend:                 true,
			glPolygonOffsetFill:     false,
			glStencilTest:           false,
			glSampleAlphaToCoverage: false,
			glSampleCoverage:        false,
		},
		DepthFunc:      glCompareFuncs[render_data.CompareLEqual],
		DepthMask:      true,
		BlendSrc:       glBlendFuncs[render_data.BlendOne],
		BlendDst:       glBlendFuncs[render_data.BlendOneMinusSrcAlpha],
		CullFace:       glBack,
		FrontFace:      glCCW,
		LineWidth:      1,
		StencilFunc:    glCompareFuncs[render_data.CompareAlways],
		StencilRefMask: 0xFF,
		StencilOps:     [3]uint32{glStencilOps[render_data.StencilKeep], glStencilOps[render_data.StencilKeep], glStencilOps[render_data.StencilKeep]},
		StencilMask:    0xFF,
		SampleCoverage: 1,
		ColorMask:      [4]bool{true, true, true, true},
	}
}

func (s GLState) clone() GLState {
	s.Caps = maps.Clone(s.Caps)
	return s
}

// withModes derives the state a draw with modes m needs, starting from s.
func (s GLState) withModes(m *render_data.RenderModes) GLState {
	out := s.clone()
	switch m.CullFace() {
	case render_data.CullNone:
		out.Caps[glCullFace] = false
	case render_data.CullFront:
		out.CullFace = glFront
	}
	if !m.DepthTest() {
		out.Caps[glDepthTest] = false
	}
	out.DepthMask = m.DepthMask()
	if m.AlphaBlend() {
		out.BlendSrc = glBlendFuncs[m.SourceBlendFunc()]
		out.BlendDst = glBlendFuncs[m.DestBlendFunc()]
	} else {
		out.Caps[glBlend] = false
	}
	if m.Offset() {
		out.Caps[glPolygonOffsetFill] = true
		out.PolygonOffset = [2]float32{m.OffsetFactor(), m.OffsetUnits()}
	}
	if m.StencilTest() {
		out.Caps[glStencilTest] = true
		out.StencilFunc = glCompareFuncs[m.StencilFunc()]
		out.StencilRef = m.StencilRef()
		out.StencilRefMask = m.StencilFuncMask()
		sfail, dpfail, dppass := m.StencilOps()
		out.StencilOps = [3]uint32{glStencilOps[sfail], glStencilOps[dpfail], glStencilOps[dppass]}
		out.StencilMask = m.StencilMask()
	}
	if m.AlphaToCoverage() {
		out.Caps[glSampleAlphaToCoverage] = true
		if m.SampleCoverage() < 1 || m.InvertCoverageMask() {
			out.Caps[glSampleCoverage] = true
			out.SampleCoverage = m.SampleCoverage()
			out.CoverageInvert = m.InvertCoverageMask()
		}
	}
	return out
}

// applyState sends the calls that turn the tracked state into target and returns how
// many state calls were made.
func (b *glRendererBackendImpl) applyState(target GLState) int {
	cur := &b.state
	n := 0
	for _, c := range glCaps {
		if cur.Caps[c] == target.Caps[c] {
			continue
		}
		if target.Caps[c] {
			b.ctx.Enable(c)
		} else {
			b.ctx.Disable(c)
		}
		n++
	}
	if cur.DepthFunc != target.DepthFunc {
		b.ctx.DepthFunc(target.DepthFunc)
		n++
	}
	if cur.DepthMask != target.DepthMask {
		b.ctx.DepthMask(target.DepthMask)
		n++
	}
	if cur.BlendSrc != target.BlendSrc || cur.BlendDst != target.BlendDst {
		b.ctx.BlendFunc(target.BlendSrc, target.BlendDst)
		n++
	}
	if cur.CullFace != target.CullFace {
		b.ctx.CullFace(target.CullFace)
		n++
	}
	if cur.FrontFace != target.FrontFace {
		b.ctx.FrontFace(target.FrontFace)
		n++
	}
	if cur.PolygonOffset != target.PolygonOffset {
		b.ctx.PolygonOffset(target.PolygonOffset[0], target.PolygonOffset[1])
		n++
	}
	if cur.LineWidth != target.LineWidth {
		b.ctx.LineWidth(target.LineWidth)
		n++
	}
	if cur.StencilFunc != target.StencilFunc || cur.StencilRef != target.StencilRef || cur.StencilRefMask != target.StencilRefMask {
		b.ctx.StencilFunc(target.StencilFunc, target.StencilRef, target.StencilRefMask)
		n++
	}
	if cur.StencilOps != target.StencilOps {
		b.ctx.StencilOp(target.StencilOps[0], target.StencilOps[1], target.StencilOps[2])
		n++
	}
	if cur.StencilMask != target.StencilMask {
		b.ctx.StencilMask(target.StencilMask)
		n++
	}
	if cur.SampleCoverage != target.SampleCoverage || cur.CoverageInvert != target.CoverageInvert {
		b.ctx.SampleCoverage(target.SampleCoverage, target.CoverageInvert)
		n++
	}
	if cur.ColorMask != target.ColorMask {
		b.ctx.ColorMask(target.ColorMask[0], target.ColorMask[1], target.ColorMask[2], target.ColorMask[3])
		n++
	}
	b.state = target.clone()
	return n
}

// forceState sends every call of s regardless of the tracked state, so the tracked
// state and the context agree after a context is adopted.
func (b *glRendererBackendImpl) forceState(s GLState) {
	for _, c := range glCaps {
		if s.Caps[c] {
			b.ctx.Enable(c)
		} else {
			b.ctx.Disable(c)
		}
	}
	b.ctx.DepthFunc(s.DepthFunc)
	b.ctx.DepthMask(s.DepthMask)
	b.ctx.BlendFunc(s.BlendSrc, s.BlendDst)
	b.ctx.CullFace(s.CullFace)
	b.ctx.FrontFace(s.FrontFace)
	b.ctx.PolygonOffset(s.PolygonOffset[0], s.PolygonOffset[1])
	b.ctx.LineWidth(s.LineWidth)
	b.ctx.StencilFunc(s.StencilFunc, s.StencilRef, s.StencilRefMask)
	b.ctx.StencilOp(s.StencilOps[0], s.StencilOps[1], s.StencilOps[2])
	b.ctx.StencilMask(s.StencilMask)
	b.ctx.SampleCoverage(s.SampleCoverage, s.CoverageInvert)
	b.ctx.ColorMask(s.ColorMask[0], s.ColorMask[1], s.ColorMask[2], s.ColorMask[3])
	b.state = s.clone()
}

// StateSnapshot returns a deep copy of the tracked fixed-function state.
//
// Returns:
//   - GLState: the snapshot
func (b *glRendererBackendImpl) StateSnapshot() GLState {
	return *deepcopy.MustAnything(&b.state).(*GLState)
}
