package gl_context

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/engine/log"
	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer"
)

// glContextImpl drives the current OpenGL 4.3 core context through go-gl.
type glContextImpl struct {
	logger log.Logger

	// multisample renderbuffers keyed by the framebuffer that owns them
	renderbuffers map[uint32][]uint32
}

var _ renderer.GLContext = &glContextImpl{}

// NewGLContext loads the GL function pointers of the context current on the calling
// thread and returns a renderer.GLContext over it. Every later call must happen on
// the same thread.
//
// Returns:
//   - renderer.GLContext: the context
//   - error: an error if the GL functions could not be loaded
func NewGLContext() (renderer.GLContext, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("loading OpenGL functions: %w", err)
	}
	c := &glContextImpl{
		logger:        log.New("gl_context"),
		renderbuffers: make(map[uint32][]uint32),
	}
	c.logger.Infof("OpenGL %s on %s", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))
	return c, nil
}

func (c *glContextImpl) Enable(capability uint32)  { gl.Enable(capability) }
func (c *glContextImpl) Disable(capability uint32) { gl.Disable(capability) }
func (c *glContextImpl) DepthFunc(fn uint32)       { gl.DepthFunc(fn) }
func (c *glContextImpl) DepthMask(enable bool)     { gl.DepthMask(enable) }
func (c *glContextImpl) BlendFunc(src, dst uint32) { gl.BlendFunc(src, dst) }
func (c *glContextImpl) CullFace(face uint32)      { gl.CullFace(face) }
func (c *glContextImpl) FrontFace(dir uint32)      { gl.FrontFace(dir) }
func (c *glContextImpl) LineWidth(width float32)   { gl.LineWidth(width) }
func (c *glContextImpl) StencilMask(mask uint32)   { gl.StencilMask(mask) }
func (c *glContextImpl) Clear(mask uint32)         { gl.Clear(mask) }

func (c *glContextImpl) PolygonOffset(factor, units float32) {
	gl.PolygonOffset(factor, units)
}

func (c *glContextImpl) StencilFunc(fn uint32, ref int32, mask uint32) {
	gl.StencilFunc(fn, ref, mask)
}

func (c *glContextImpl) StencilOp(sfail, dpfail, dppass uint32) {
	gl.StencilOp(sfail, dpfail, dppass)
}

func (c *glContextImpl) SampleCoverage(value float32, invert bool) {
	gl.SampleCoverage(value, invert)
}

func (c *glContextImpl) ColorMask(r, g, b, a bool) {
	gl.ColorMask(r, g, b, a)
}

func (c *glContextImpl) ClearColor(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
}

func (c *glContextImpl) Viewport(x, y, width, height int32) {
	gl.Viewport(x, y, width, height)
}

// compile compiles one shader stage, returning the info log on failure.
func compile(stage uint32, src string) (uint32, error) {
	sh := gl.CreateShader(stage)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(sh, 1, csrc, nil)
	free()
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &n)
		msg := strings.Repeat("\x00", int(n+1))
		gl.GetShaderInfoLog(sh, n, nil, gl.Str(msg))
		gl.DeleteShader(sh)
		return 0, fmt.Errorf("%s", strings.TrimRight(msg, "\x00\n"))
	}
	return sh, nil
}

func (c *glContextImpl) CreateProgram(vertex, fragment string) (uint32, error) {
	vs, err := compile(gl.VERTEX_SHADER, vertex)
	if err != nil {
		return 0, fmt.Errorf("vertex stage: %w", err)
	}
	defer gl.DeleteShader(vs)
	fs, err := compile(gl.FRAGMENT_SHADER, fragment)
	if err != nil {
		return 0, fmt.Errorf("fragment stage: %w", err)
	}
	defer gl.DeleteShader(fs)

	p := gl.CreateProgram()
	gl.AttachShader(p, vs)
	gl.AttachShader(p, fs)
	gl.LinkProgram(p)

	var status int32
	gl.GetProgramiv(p, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetProgramiv(p, gl.INFO_LOG_LENGTH, &n)
		msg := strings.Repeat("\x00", int(n+1))
		gl.GetProgramInfoLog(p, n, nil, gl.Str(msg))
		gl.DeleteProgram(p)
		return 0, fmt.Errorf("link: %s", strings.TrimRight(msg, "\x00\n"))
	}
	return p, nil
}

func (c *glContextImpl) DeleteProgram(program uint32) { gl.DeleteProgram(program) }
func (c *glContextImpl) UseProgram(program uint32)    { gl.UseProgram(program) }

func (c *glContextImpl) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (c *glContextImpl) UniformBlockBinding(program uint32, block string, binding uint32) {
	idx := gl.GetUniformBlockIndex(program, gl.Str(block+"\x00"))
	if idx == gl.INVALID_INDEX {
		return
	}
	gl.UniformBlockBinding(program, idx, binding)
}

func (c *glContextImpl) Uniform1i(location int32, v int32)   { gl.Uniform1i(location, v) }
func (c *glContextImpl) Uniform1ui(location int32, v uint32) { gl.Uniform1ui(location, v) }
func (c *glContextImpl) Uniform1f(location int32, v float32) { gl.Uniform1f(location, v) }

func (c *glContextImpl) Uniform3f(location int32, v mgl32.Vec3) {
	gl.Uniform3f(location, v[0], v[1], v[2])
}

func (c *glContextImpl) Uniform4f(location int32, v mgl32.Vec4) {
	gl.Uniform4f(location, v[0], v[1], v[2], v[3])
}

func (c *glContextImpl) UniformMatrix4fv(location int32, ms []mgl32.Mat4) {
	if len(ms) == 0 {
		return
	}
	gl.UniformMatrix4fv(location, int32(len(ms)), false, &ms[0][0])
}

func (c *glContextImpl) CreateBuffer(target uint32, data []byte, usage uint32) uint32 {
	var buf uint32
	gl.GenBuffers(1, &buf)
	gl.BindBuffer(target, buf)
	if len(data) == 0 {
		gl.BufferData(target, 0, nil, usage)
	} else {
		gl.BufferData(target, len(data), gl.Ptr(data), usage)
	}
	return buf
}

func (c *glContextImpl) BufferSubData(target, buffer uint32, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	gl.BindBuffer(target, buffer)
	gl.BufferSubData(target, offset, len(data), gl.Ptr(data))
}

func (c *glContextImpl) BindBufferBase(target, index, buffer uint32) {
	gl.BindBufferBase(target, index, buffer)
}

func (c *glContextImpl) DeleteBuffer(buffer uint32) { gl.DeleteBuffers(1, &buffer) }

func (c *glContextImpl) CreateVertexArray(vbo, ibo uint32) uint32 {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ibo)

	stride := int32((&model.GPUVertex{}).Size())
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 12)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 24)
	for i := uint32(0); i < 3; i++ {
		gl.EnableVertexAttribArray(i)
	}
	gl.BindVertexArray(0)
	return vao
}

func (c *glContextImpl) BindVertexArray(vao uint32)   { gl.BindVertexArray(vao) }
func (c *glContextImpl) DeleteVertexArray(vao uint32) { gl.DeleteVertexArrays(1, &vao) }

func (c *glContextImpl) DrawElements(mode uint32, count int32) {
	gl.DrawElements(mode, count, gl.UNSIGNED_INT, nil)
}

func (c *glContextImpl) CreateTexture2D(width, height int32, pixels []byte) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	setSampling(gl.TEXTURE_2D, gl.LINEAR)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr(pixels))
	return tex
}

func (c *glContextImpl) UpdateTexture2D(tex uint32, width, height int32, pixels []byte) {
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, width, height, gl.RGBA, gl.UNSIGNED_BYTE, ptr(pixels))
}

func (c *glContextImpl) ActiveTexture(unit uint32)       { gl.ActiveTexture(unit) }
func (c *glContextImpl) BindTexture(target, tex uint32) { gl.BindTexture(target, tex) }
func (c *glContextImpl) DeleteTexture(tex uint32)       { gl.DeleteTextures(1, &tex) }

func (c *glContextImpl) BindFramebuffer(fbo uint32) { gl.BindFramebuffer(gl.FRAMEBUFFER, fbo) }

func (c *glContextImpl) ResolveFramebuffer(fb renderer.Framebuffer, width, height int32) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, fb.FBO)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, fb.ResolveFBO)
	gl.BlitFramebuffer(0, 0, width, height, 0, 0, width, height, gl.COLOR_BUFFER_BIT|gl.DEPTH_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func (c *glContextImpl) InvalidateFramebuffer(attachments []uint32) {
	if len(attachments) == 0 {
		return
	}
	gl.InvalidateFramebuffer(gl.FRAMEBUFFER, int32(len(attachments)), &attachments[0])
}

func (c *glContextImpl) ReadPixels(x, y, width, height int32) []byte {
	px := make([]byte, width*height*4)
	if len(px) == 0 {
		return px
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(x, y, width, height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(px))
	return px
}

func (c *glContextImpl) GenQuery() uint32 {
	var q uint32
	gl.GenQueries(1, &q)
	return q
}

func (c *glContextImpl) BeginQuery(target, query uint32) { gl.BeginQuery(target, query) }
func (c *glContextImpl) EndQuery(target uint32)          { gl.EndQuery(target) }
func (c *glContextImpl) DeleteQuery(query uint32)        { gl.DeleteQueries(1, &query) }

func (c *glContextImpl) QueryResultAvailable(query uint32) bool {
	var v uint32
	gl.GetQueryObjectuiv(query, gl.QUERY_RESULT_AVAILABLE, &v)
	return v == gl.TRUE
}

func (c *glContextImpl) QueryResult(query uint32) uint32 {
	var v uint32
	gl.GetQueryObjectuiv(query, gl.QUERY_RESULT, &v)
	return v
}
