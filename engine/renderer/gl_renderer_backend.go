package renderer

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/engine/camera"
	"github.com/Carmen-Shannon/oxy-sg/engine/log"
	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/uniform_block"
)

type glProgram struct {
	id        uint32
	locations map[string]int32
}

type glMesh struct {
	vao, vbo, ibo uint32
	version       uint64
	count         int32
}

// glRendererBackendImpl is the raster backend. Every Device call mutates GL state
// immediately through the GLContext.
type glRendererBackendImpl struct {
	ctx    GLContext
	logger log.Logger

	shaders          shader.Manager
	maxMatrices      int
	stencil          bool
	invalidateShadow bool

	width, height int

	programs map[int]*glProgram
	meshes   map[uint64]*glMesh
	textures map[uint64]uint32
	targets  map[uint64]Framebuffer
	blocks   map[int]uint32

	program *glProgram
	target  *RenderTarget

	// base is the per-target baseline draws return to; state mirrors the context.
	base  GLState
	state GLState

	occlusion *glOcclusionCuller
}

var _ RendererBackend = &glRendererBackendImpl{}

func newGLRendererBackend(ctx GLContext, maxMatrices int, stencil, invalidateShadow, occlusion bool) *glRendererBackendImpl {
	b := &glRendererBackendImpl{
		ctx:              ctx,
		logger:           log.New("renderer"),
		maxMatrices:      maxMatrices,
		stencil:          stencil,
		invalidateShadow: invalidateShadow,
		programs:         make(map[int]*glProgram),
		meshes:           make(map[uint64]*glMesh),
		textures:         make(map[uint64]uint32),
		targets:          make(map[uint64]Framebuffer),
		blocks:           make(map[int]uint32),
		base:             DefaultGLState(),
	}
	if occlusion {
		b.occlusion = newGLOcclusionCuller(b)
	}
	return b
}

func (b *glRendererBackendImpl) Init(shaders shader.Manager) error {
	b.shaders = shaders
	b.forceState(b.base)
	return registerBuiltins(shaders, glBuiltinSources(b.maxMatrices))
}

func (b *glRendererBackendImpl) Resize(width, height int) {
	b.width, b.height = width, height
}

func (b *glRendererBackendImpl) UseShader(s shader.Shader) error {
	p, ok := b.programs[s.ID()]
	if !ok {
		src := s.Source()
		if src.Language != shader.LanguageGLSL {
			return fmt.Errorf("%w: %s is not GLSL", shader.ErrShaderNotReady, s.Signature())
		}
		id, err := b.ctx.CreateProgram(src.Vertex, src.Fragment)
		if err != nil {
			return fmt.Errorf("%w: compiling %s: %w", shader.ErrShaderNotReady, s.Signature(), err)
		}
		if !src.UsesMatrixUniforms {
			b.ctx.UniformBlockBinding(id, uniform_block.TransformBlockName, uniform_block.TransformBlockBinding)
		}
		p = &glProgram{id: id, locations: make(map[string]int32)}
		b.programs[s.ID()] = p
		b.logger.Debugf("compiled program %d for shader %d %q", id, s.ID(), s.Signature())
	}
	b.ctx.UseProgram(p.id)
	b.program = p
	return nil
}

func (b *glRendererBackendImpl) location(p *glProgram, name string) int32 {
	loc, ok := p.locations[name]
	if !ok {
		loc = b.ctx.UniformLocation(p.id, name)
		p.locations[name] = loc
	}
	return loc
}

func (b *glRendererBackendImpl) SetUniform(s shader.Shader, name string, value any) {
	p := b.programs[s.ID()]
	if p == nil {
		return
	}
	loc := b.location(p, name)
	if loc == glInvalidUniformLocation {
		return
	}
	switch v := value.(type) {
	case float32:
		b.ctx.Uniform1f(loc, v)
	case int:
		b.ctx.Uniform1i(loc, int32(v))
	case int32:
		b.ctx.Uniform1i(loc, v)
	case uint32:
		b.ctx.Uniform1ui(loc, v)
	case bool:
		var i int32
		if v {
			i = 1
		}
		b.ctx.Uniform1i(loc, i)
	case mgl32.Vec3:
		b.ctx.Uniform3f(loc, v)
	case mgl32.Vec4:
		b.ctx.Uniform4f(loc, v)
	case [4]float32:
		b.ctx.Uniform4f(loc, mgl32.Vec4(v))
	case mgl32.Mat4:
		b.ctx.UniformMatrix4fv(loc, []mgl32.Mat4{v})
	default:
		b.logger.Debugf("uniform %s: unsupported type %T", name, value)
	}
}

func (b *glRendererBackendImpl) BindTexture(s shader.Shader, name string, unit int, tex texture.Texture) {
	id, err := b.textureID(tex)
	if err != nil {
		b.logger.Debugf("texture %s: %v", name, err)
		return
	}
	b.ctx.ActiveTexture(glTexture0 + uint32(unit))
	b.ctx.BindTexture(glTexture2D, id)
	b.SetUniform(s, name, int32(unit))
}

// textureID returns the GL texture of tex, uploading staged pixels first.
func (b *glRendererBackendImpl) textureID(tex texture.Texture) (uint32, error) {
	if rt, ok := tex.(texture.RenderTexture); ok {
		fb, err := b.framebuffer(rt)
		if err != nil {
			return 0, err
		}
		if rt.DepthOnly() {
			return fb.Depth, nil
		}
		return fb.Color, nil
	}

	id, ok := b.textures[tex.ID()]
	if st := tex.TakeStaging(); st != nil {
		if ok {
			b.ctx.UpdateTexture2D(id, int32(st.Width), int32(st.Height), st.Pixels)
		} else {
			id = b.ctx.CreateTexture2D(int32(st.Width), int32(st.Height), st.Pixels)
			b.textures[tex.ID()] = id
		}
		tex.MarkUploaded()
		return id, nil
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", material.ErrTexturesNotReady, tex.Name())
	}
	return id, nil
}

func (b *glRendererBackendImpl) BindMaterial(s shader.Shader, m material.Material) (int, error) {
	if m == nil {
		return 0, nil
	}
	b.SetUniform(s, "u_base_color", mgl32.Vec4(m.BaseColor()))
	b.SetUniform(s, "u_metallic", m.Metallic())
	b.SetUniform(s, "u_roughness", m.Roughness())
	for _, name := range m.FloatNames() {
		v, _ := m.Float(name)
		b.SetUniform(s, "u_"+name, v)
	}

	unit := 0
	for _, name := range m.TextureNames() {
		id, err := b.textureID(m.Texture(name))
		if err != nil {
			return unit, err
		}
		b.ctx.ActiveTexture(glTexture0 + uint32(unit))
		b.ctx.BindTexture(glTexture2D, id)
		b.SetUniform(s, "u_"+name, int32(unit))
		unit++
	}
	return unit, nil
}

func (b *glRendererBackendImpl) BindMesh(m model.Mesh) error {
	gm, ok := b.meshes[m.ID()]
	if ok && gm.version == m.Version() {
		b.ctx.BindVertexArray(gm.vao)
		return nil
	}
	if ok {
		b.deleteMesh(gm)
	}
	if m.IndexCount() == 0 {
		return fmt.Errorf("mesh %q has no indices", m.Name())
	}

	vbo := b.ctx.CreateBuffer(glArrayBuffer, m.VertexData(), glStaticDraw)
	ibo := b.ctx.CreateBuffer(glElementArrayBuffer, m.IndexData(), glStaticDraw)
	gm = &glMesh{
		vbo:     vbo,
		ibo:     ibo,
		vao:     b.ctx.CreateVertexArray(vbo, ibo),
		version: m.Version(),
		count:   int32(m.IndexCount()),
	}
	b.meshes[m.ID()] = gm
	b.ctx.BindVertexArray(gm.vao)
	return nil
}

func (b *glRendererBackendImpl) deleteMesh(gm *glMesh) {
	b.ctx.DeleteVertexArray(gm.vao)
	b.ctx.DeleteBuffer(gm.vbo)
	b.ctx.DeleteBuffer(gm.ibo)
}

func (b *glRendererBackendImpl) UpdateTransformBlock(blk *uniform_block.TransformBlock) error {
	if ubo, ok := b.blocks[blk.Index()]; ok {
		b.ctx.BufferSubData(glUniformBuffer, ubo, 0, blk.Data())
	} else {
		b.blocks[blk.Index()] = b.ctx.CreateBuffer(glUniformBuffer, blk.Data(), glDynamicDraw)
	}
	blk.ClearDirty()
	return nil
}

func (b *glRendererBackendImpl) BindTransformBlock(blk *uniform_block.TransformBlock, s shader.Shader) {
	ubo, ok := b.blocks[blk.Index()]
	if !ok {
		b.logger.Debugf("transform block %d bound before upload", blk.Index())
		return
	}
	b.ctx.BindBufferBase(glUniformBuffer, uniform_block.TransformBlockBinding, ubo)
}

func (b *glRendererBackendImpl) SetMatrixUniforms(s shader.Shader, ms []mgl32.Mat4) {
	p := b.programs[s.ID()]
	if p == nil {
		return
	}
	if loc := b.location(p, uniform_block.MatrixArrayName); loc != glInvalidUniformLocation {
		b.ctx.UniformMatrix4fv(loc, ms)
	}
}

func (b *glRendererBackendImpl) SetRenderStates(m *render_data.RenderModes) {
	b.applyState(b.base.withModes(m))
}

func (b *glRendererBackendImpl) RestoreRenderStates(m *render_data.RenderModes) {
	b.applyState(b.base)
}

func (b *glRendererBackendImpl) Draw(r *sorter.Renderable, s shader.Shader) error {
	if b.target == nil {
		return ErrNoTarget
	}
	gm, ok := b.meshes[r.Mesh.ID()]
	if !ok {
		return fmt.Errorf("mesh %q drawn before it was bound", r.Mesh.Name())
	}
	if r.Block != nil && !s.UsesMatrixUniforms() {
		b.SetUniform(s, DrawOffsetUniform, int32(r.MatrixOffset))
	}
	b.ctx.DrawElements(glDrawModes[r.Modes.DrawMode()], gm.count)
	return nil
}

// framebuffer returns the GL objects of a render texture, creating them on first use.
func (b *glRendererBackendImpl) framebuffer(rt texture.RenderTexture) (Framebuffer, error) {
	if fb, ok := b.targets[rt.ID()]; ok {
		return fb, nil
	}
	w, h := rt.Size()
	fb, err := b.ctx.CreateFramebuffer(FramebufferSpec{
		Width:     int32(w),
		Height:    int32(h),
		Samples:   int32(rt.Samples()),
		Layers:    int32(rt.Layers()),
		Depth:     rt.HasDepth(),
		Stencil:   rt.HasStencil(),
		DepthOnly: rt.DepthOnly(),
	})
	if err != nil {
		return Framebuffer{}, fmt.Errorf("creating framebuffer for %q: %w", rt.Name(), err)
	}
	b.targets[rt.ID()] = fb
	return fb, nil
}

func (b *glRendererBackendImpl) BeginTarget(ctx context.Context, t *RenderTarget) error {
	var fbo uint32
	if t.Texture != nil {
		fb, err := b.framebuffer(t.Texture)
		if err != nil {
			return err
		}
		fbo = fb.FBO
	}
	b.ctx.BindFramebuffer(fbo)
	w, h := t.Size(b.width, b.height)
	b.ctx.Viewport(0, 0, int32(w), int32(h))
	b.target = t
	return nil
}

// WaitTarget returns immediately: GL orders every command on the context.
func (b *glRendererBackendImpl) WaitTarget(ctx context.Context, t *RenderTarget) error {
	return nil
}

func (b *glRendererBackendImpl) ClearBuffers(cam camera.Camera) {
	mask := glDepthBufferBit
	if cam != nil {
		if c := cam.BackgroundColor(); c.Valid() {
			b.ctx.ClearColor(c[0], c[1], c[2], c[3])
			mask |= glColorBufferBit
		}
	}
	if b.stencil {
		mask |= glStencilBufferBit
	}
	b.ctx.Clear(mask)
}

func (b *glRendererBackendImpl) SetViewport(x, y, width, height int) {
	b.ctx.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (b *glRendererBackendImpl) SetFaceCulling(mode render_data.CullFace) {
	b.base = b.base.clone()
	switch mode {
	case render_data.CullNone:
		b.base.Caps[glCullFace] = false
	case render_data.CullFront:
		b.base.Caps[glCullFace] = true
		b.base.CullFace = glFront
	default:
		b.base.Caps[glCullFace] = true
		b.base.CullFace = glBack
	}
	b.applyState(b.base)
}

func (b *glRendererBackendImpl) EndTarget(t *RenderTarget) error {
	if t.Texture != nil {
		fb := b.targets[t.Texture.ID()]
		if t.Shadow && b.invalidateShadow {
			b.ctx.InvalidateFramebuffer([]uint32{glColorAttachment0})
		}
		if fb.ResolveFBO != 0 {
			w, h := t.Texture.Size()
			b.ctx.ResolveFramebuffer(fb, int32(w), int32(h))
		}
	}
	b.base = DefaultGLState()
	b.applyState(b.base)
	b.ctx.UseProgram(0)
	b.program = nil
	b.target = nil
	return nil
}

func (b *glRendererBackendImpl) OcclusionCuller() sorter.OcclusionCuller {
	if b.occlusion == nil {
		return nil
	}
	return b.occlusion
}

func (b *glRendererBackendImpl) ReadPixels(rt texture.RenderTexture) ([]byte, error) {
	fb, ok := b.targets[rt.ID()]
	if !ok {
		return nil, fmt.Errorf("render texture %q was never rendered", rt.Name())
	}
	fbo := fb.FBO
	if fb.ResolveFBO != 0 {
		fbo = fb.ResolveFBO
	}
	b.ctx.BindFramebuffer(fbo)
	w, h := rt.Size()
	px := b.ctx.ReadPixels(0, 0, int32(w), int32(h))
	b.ctx.BindFramebuffer(0)
	return px, nil
}

func (b *glRendererBackendImpl) Release() {
	for id, p := range b.programs {
		b.ctx.DeleteProgram(p.id)
		delete(b.programs, id)
	}
	for id, gm := range b.meshes {
		b.deleteMesh(gm)
		delete(b.meshes, id)
	}
	for id, tex := range b.textures {
		b.ctx.DeleteTexture(tex)
		delete(b.textures, id)
	}
	for id, fb := range b.targets {
		b.ctx.DeleteFramebuffer(fb)
		delete(b.targets, id)
	}
	for i, ubo := range b.blocks {
		b.ctx.DeleteBuffer(ubo)
		delete(b.blocks, i)
	}
	if b.occlusion != nil {
		b.occlusion.release()
	}
}
