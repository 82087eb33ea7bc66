package sorter

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
)

// mainPolicy draws every pass with its own modes and shader variant.
type mainPolicy struct{}

func (mainPolicy) modes(p render_data.RenderPass) render_data.RenderModes {
	return p.Modes()
}

func (mainPolicy) isValid(_ *sorter, rs *RenderState, r *Renderable) bool {
	return r.Mesh != nil && renderMaskAllows(rs, r)
}

// validate marks the pass dirty when it has no cached variant, when a lit pass's
// variant no longer ends in the light descriptor, or when its material changed.
func (mainPolicy) validate(s *sorter, r *Renderable) {
	sh := s.shaders.GetShader(r.Pass.ShaderID(s.multiview))
	if sh == nil || (r.Modes.UseLights() && !strings.HasSuffix(sh.Signature(), s.descriptor)) {
		r.Pass.MarkDirty()
	}
	if r.Material == nil {
		return
	}
	if r.Material.IsDirty() {
		r.Pass.MarkDirty()
	}
	if r.Material.Transparent() && r.Modes.RenderOrder() == render_data.RenderOrderGeometry {
		r.Modes.SetRenderOrder(render_data.RenderOrderTransparent)
	}
}

// selectShader reselects the variant of dirty passes. A variant that is not ready is
// replaced by the error shader for this frame and the pass stays dirty.
func (mainPolicy) selectShader(s *sorter, r *Renderable) shader.Shader {
	if !r.Pass.IsDirty() {
		if sh := s.shaders.GetShader(r.Pass.ShaderID(s.multiview)); sh != nil {
			return sh
		}
	}
	template := r.Pass.ShaderTemplate()
	sh, err := s.shaders.SelectShader(template, r.Modes.UseLights(), s.descriptor, s.multiview)
	if err != nil {
		s.logger.Warningf("pass of %v: %v", r, err)
		return s.shaders.ErrorShader()
	}
	r.Pass.SetShaderID(sh.ID(), s.multiview)
	if r.Material != nil {
		r.Material.ClearDirty()
	}
	return sh
}

func (mainPolicy) picks() bool {
	return true
}

// shadowPolicy draws shadow casters with the depth shader and fixed opaque modes.
type shadowPolicy struct{}

func (shadowPolicy) modes(p render_data.RenderPass) render_data.RenderModes {
	pm := p.Modes()
	m := render_data.DefaultRenderModes()
	m.SetUseLights(false)
	m.SetAlphaBlend(false)
	m.SetRenderOrder(render_data.RenderOrderGeometry)
	m.SetDepthTest(true)
	m.SetDepthMask(true)
	m.SetCastShadows(pm.CastShadows())
	m.SetCullFace(pm.CullFace())
	m.SetDrawMode(pm.DrawMode())
	m.SetRenderMask(pm.RenderMask())
	return m
}

func (shadowPolicy) isValid(_ *sorter, rs *RenderState, r *Renderable) bool {
	return r.RenderData.CastShadows() &&
		r.Modes.CastShadows() &&
		r.Mesh != nil && r.Mesh.IndexCount() > 0 &&
		renderMaskAllows(rs, r)
}

func (shadowPolicy) validate(*sorter, *Renderable) {}

func (shadowPolicy) selectShader(s *sorter, _ *Renderable) shader.Shader {
	return s.shaders.DepthShader(s.multiview)
}

func (shadowPolicy) picks() bool {
	return false
}

// DefaultShadowSortKeys groups shadow casters by mesh; every caster shares the depth
// shader.
var DefaultShadowSortKeys = []SortKey{KeyShader, KeyMesh}

// NewShadowSorter creates the sorter of a shadow-map render target. It accepts only
// shadow casters with indexed meshes and draws them with the depth shader.
//
// Parameters:
//   - dev: the device draws are issued to
//   - shaders: the shader registry holding the depth shaders
//   - opts: variadic list of SorterBuilderOption functions
//
// Returns:
//   - Sorter: the sorter
func NewShadowSorter(dev Device, shaders shader.Manager, opts ...SorterBuilderOption) Sorter {
	return newSorter(dev, shaders, shadowPolicy{}, DefaultShadowSortKeys, opts)
}
