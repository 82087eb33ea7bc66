package renderer

import "github.com/go-gl/mathgl/mgl32"

// FramebufferSpec describes the attachments of an offscreen framebuffer.
type FramebufferSpec struct {
	Width     int32
	Height    int32
	Samples   int32
	Layers    int32
	Depth     bool
	Stencil   bool
	DepthOnly bool
}

// Framebuffer holds the GL names of an offscreen framebuffer. Multisampled targets
// render into FBO and resolve into ResolveFBO, whose Color texture is the sampled one.
type Framebuffer struct {
	FBO        uint32
	ResolveFBO uint32
	Color      uint32
	Depth      uint32
}

// GLContext is the slice of OpenGL the raster backend drives. The gl_context package
// implements it over go-gl; tests use an in-memory state machine.
//
// Enum arguments carry the GL values directly. Every call happens on the thread
// owning the GL context.
type GLContext interface {
	Enable(capability uint32)
	Disable(capability uint32)
	DepthFunc(fn uint32)
	DepthMask(enable bool)
	BlendFunc(src, dst uint32)
	CullFace(face uint32)
	FrontFace(dir uint32)
	PolygonOffset(factor, units float32)
	LineWidth(width float32)
	StencilFunc(fn uint32, ref int32, mask uint32)
	StencilOp(sfail, dpfail, dppass uint32)
	StencilMask(mask uint32)
	SampleCoverage(value float32, invert bool)
	ColorMask(r, g, b, a bool)
	ClearColor(r, g, b, a float32)
	Clear(mask uint32)
	Viewport(x, y, width, height int32)

	// CreateProgram compiles and links a vertex/fragment program.
	CreateProgram(vertex, fragment string) (uint32, error)
	DeleteProgram(program uint32)
	UseProgram(program uint32)
	UniformLocation(program uint32, name string) int32
	UniformBlockBinding(program uint32, block string, binding uint32)
	Uniform1i(location int32, v int32)
	Uniform1ui(location int32, v uint32)
	Uniform1f(location int32, v float32)
	Uniform3f(location int32, v mgl32.Vec3)
	Uniform4f(location int32, v mgl32.Vec4)
	UniformMatrix4fv(location int32, ms []mgl32.Mat4)

	CreateBuffer(target uint32, data []byte, usage uint32) uint32
	BufferSubData(target, buffer uint32, offset int, data []byte)
	BindBufferBase(target, index, buffer uint32)
	DeleteBuffer(buffer uint32)

	// CreateVertexArray builds a vertex array over an interleaved position, normal,
	// texcoord vertex buffer and a uint32 index buffer.
	CreateVertexArray(vbo, ibo uint32) uint32
	BindVertexArray(vao uint32)
	DeleteVertexArray(vao uint32)
	DrawElements(mode uint32, count int32)

	// CreateTexture2D uploads RGBA8 pixels into a new linear-filtered texture.
	CreateTexture2D(width, height int32, pixels []byte) uint32
	UpdateTexture2D(tex uint32, width, height int32, pixels []byte)
	ActiveTexture(unit uint32)
	BindTexture(target, tex uint32)
	DeleteTexture(tex uint32)

	CreateFramebuffer(spec FramebufferSpec) (Framebuffer, error)
	BindFramebuffer(fbo uint32)
	ResolveFramebuffer(fb Framebuffer, width, height int32)
	InvalidateFramebuffer(attachments []uint32)
	DeleteFramebuffer(fb Framebuffer)
	ReadPixels(x, y, width, height int32) []byte

	GenQuery() uint32
	BeginQuery(target, query uint32)
	EndQuery(target uint32)
	QueryResultAvailable(query uint32) bool
	QueryResult(query uint32) uint32
	DeleteQuery(query uint32)
}
