package render_data

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
)

// renderPass is the implementation of the RenderPass interface.
type renderPass struct {
	mu       *sync.Mutex
	material material.Material
	modes    RenderModes
	template string
	shaderID [2]int
	dirty    bool
}

// RenderPass is one draw of a RenderData: a material, the render modes it draws with
// and the shader variant selected for it.
//
// The pass caches two shader IDs, one for mono and one for multiview rendering. The
// cached IDs stay valid until the pass is marked dirty; the sorter then reselects the
// variant from the shader template, the render modes and the current light descriptor.
type RenderPass interface {
	// Material returns the material drawn by this pass.
	//
	// Returns:
	//   - material.Material: the material
	Material() material.Material

	// SetMaterial replaces the material and marks the pass dirty when it changes.
	//
	// Parameters:
	//   - m: the new material
	SetMaterial(m material.Material)

	// Modes returns a copy of the render modes.
	//
	// Returns:
	//   - RenderModes: the modes
	Modes() RenderModes

	// UpdateModes applies fn to the render modes under the pass lock.
	// The pass is marked dirty when fn returns true.
	//
	// Parameters:
	//   - fn: the mutation, returning whether the shader variant is affected
	UpdateModes(fn func(m *RenderModes) bool)

	// SetUseLights toggles lighting and marks the pass dirty when the value changes.
	//
	// Parameters:
	//   - enable: true to light the pass
	SetUseLights(enable bool)

	// SetCastShadows toggles shadow casting and marks the pass dirty when the value changes.
	//
	// Parameters:
	//   - enable: true to cast shadows
	SetCastShadows(enable bool)

	// ShaderTemplate returns the name of the shader family variants are selected from.
	//
	// Returns:
	//   - string: the template name
	ShaderTemplate() string

	// SetShaderTemplate sets the shader family and marks the pass dirty.
	//
	// Parameters:
	//   - name: the template name
	SetShaderTemplate(name string)

	// ShaderID returns the cached shader ID for mono or multiview rendering, 0 if none.
	//
	// Parameters:
	//   - multiview: true for the multiview variant
	//
	// Returns:
	//   - int: the shader ID
	ShaderID(multiview bool) int

	// SetShaderID caches a selected shader ID and clears the dirty flag.
	//
	// Parameters:
	//   - id: the shader ID
	//   - multiview: true for the multiview variant
	SetShaderID(id int, multiview bool)

	// IsDirty reports whether the cached shader IDs must be reselected.
	//
	// Returns:
	//   - bool: true if dirty
	IsDirty() bool

	// MarkDirty invalidates the cached shader IDs.
	MarkDirty()
}

var _ RenderPass = &renderPass{}

// NewRenderPass creates a pass drawing the given material with default render modes.
//
// Parameters:
//   - m: the material
//   - opts: variadic list of RenderPassBuilderOption functions
//
// Returns:
//   - RenderPass: the new pass, initially dirty
func NewRenderPass(m material.Material, opts ...RenderPassBuilderOption) RenderPass {
	p := &renderPass{
		mu:       &sync.Mutex{},
		material: m,
		modes:    DefaultRenderModes(),
		dirty:    true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *renderPass) Material() material.Material {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.material
}

func (p *renderPass) SetMaterial(m material.Material) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.material != m {
		p.material = m
		p.dirty = true
	}
}

func (p *renderPass) Modes() RenderModes {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modes
}

func (p *renderPass) UpdateModes(fn func(m *RenderModes) bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fn(&p.modes) {
		p.dirty = true
	}
}

func (p *renderPass) SetUseLights(enable bool) {
	p.UpdateModes(func(m *RenderModes) bool { return m.SetUseLights(enable) })
}

func (p *renderPass) SetCastShadows(enable bool) {
	p.UpdateModes(func(m *RenderModes) bool { return m.SetCastShadows(enable) })
}

func (p *renderPass) ShaderTemplate() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.template
}

func (p *renderPass) SetShaderTemplate(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.template = name
	p.dirty = true
}

func (p *renderPass) ShaderID(multiview bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shaderID[viewIndex(multiview)]
}

func (p *renderPass) SetShaderID(id int, multiview bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shaderID[viewIndex(multiview)] = id
	p.dirty = false
}

func (p *renderPass) IsDirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

func (p *renderPass) MarkDirty() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dirty = true
}

func viewIndex(multiview bool) int {
	if multiview {
		return 1
	}
	return 0
}
