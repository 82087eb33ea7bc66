package renderer

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
)

// fakeGL is an in-memory GL state machine.
type fakeGL struct {
	state GLState

	next        uint32
	failCompile bool

	bound       uint32
	viewports   [][4]int32
	clears      []uint32
	invalidated [][]uint32
	draws       []int32
	uniforms    map[string]any
	locations   map[string]int32
	names       map[int32]string

	queryAvailable map[uint32]bool
	queryResult    map[uint32]uint32
	queriesBegun   int
}

var _ GLContext = &fakeGL{}

func newFakeGL() *fakeGL {
	return &fakeGL{
		state:          GLState{Caps: map[uint32]bool{}},
		uniforms:       map[string]any{},
		locations:      map[string]int32{},
		names:          map[int32]string{},
		queryAvailable: map[uint32]bool{},
		queryResult:    map[uint32]uint32{},
	}
}

func (f *fakeGL) name() uint32 {
	f.next++
	return f.next
}

func (f *fakeGL) Enable(c uint32) { f.state.Caps[c] = true }
func (f *fakeGL) Disable(c uint32) { f.state.Caps[c] = false }
func (f *fakeGL) DepthFunc(fn uint32) { f.state.DepthFunc = fn }
func (f *fakeGL) DepthMask(on bool) { f.state.DepthMask = on }
func (f *fakeGL) BlendFunc(src, dst uint32) { f.state.BlendSrc, f.state.BlendDst = src, dst }
func (f *fakeGL) CullFace(face uint32) { f.state.CullFace = face }
func (f *fakeGL) FrontFace(dir uint32) { f.state.FrontFace = dir }
func (f *fakeGL) PolygonOffset(factor, units float32) { f.state.PolygonOffset = [2]float32{factor, units} }
func (f *fakeGL) LineWidth(w float32) { f.state.LineWidth = w }
func (f *fakeGL) StencilFunc(fn uint32, ref int32, mask uint32) {
	f.state.StencilFunc, f.state.StencilRef, f.state.StencilRefMask = fn, ref, mask
}
func (f *fakeGL) StencilOp(a, b, c uint32) { f.state.StencilOps = [3]uint32{a, b, c} }
func (f *fakeGL) StencilMask(mask uint32) { f.state.StencilMask = mask }
func (f *fakeGL) SampleCoverage(v float32, invert bool) {
	f.state.SampleCoverage, f.state.CoverageInvert = v, invert
}
func (f *fakeGL) ColorMask(r, g, b, a bool) { f.state.ColorMask = [4]bool{r, g, b, a} }
func (f *fakeGL) ClearColor(r, g, b, a float32) {}
func (f *fakeGL) Clear(mask uint32) { f.clears = append(f.clears, mask) }
func (f *fakeGL) Viewport(x, y, w, h int32) {
	f.viewports = append(f.viewports, [4]int32{x, y, w, h})
}

func (f *fakeGL) CreateProgram(vertex, fragment string) (uint32, error) {
	if f.failCompile {
		return 0, errors.New("syntax error")
	}
	return f.name(), nil
}
func (f *fakeGL) DeleteProgram(p uint32) {}
func (f *fakeGL) UseProgram(p uint32) {}
func (f *fakeGL) UniformLocation(p uint32, name string) int32 {
	key := fmt.Sprintf("%d/%s", p, name)
	loc, ok := f.locations[key]
	if !ok {
		loc = int32(len(f.locations) + 1)
		f.locations[key] = loc
		f.names[loc] = name
	}
	return loc
}
func (f *fakeGL) UniformBlockBinding(p uint32, block string, binding uint32) {}
func (f *fakeGL) Uniform1i(loc int32, v int32) { f.uniforms[f.names[loc]] = v }
func (f *fakeGL) Uniform1ui(loc int32, v uint32) { f.uniforms[f.names[loc]] = v }
func (f *fakeGL) Uniform1f(loc int32, v float32) { f.uniforms[f.names[loc]] = v }
func (f *fakeGL) Uniform3f(loc int32, v mgl32.Vec3) { f.uniforms[f.names[loc]] = v }
func (f *fakeGL) Uniform4f(loc int32, v mgl32.Vec4) { f.uniforms[f.names[loc]] = v }
func (f *fakeGL) UniformMatrix4fv(loc int32, ms []mgl32.Mat4) { f.uniforms[f.names[loc]] = ms }

func (f *fakeGL) CreateBuffer(target uint32, data []byte, usage uint32) uint32 { return f.name() }
func (f *fakeGL) BufferSubData(target, buffer uint32, offset int, data []byte) {}
func (f *fakeGL) BindBufferBase(target, index, buffer uint32) {}
func (f *fakeGL) DeleteBuffer(buffer uint32) {}
func (f *fakeGL) CreateVertexArray(vbo, ibo uint32) uint32 { return f.name() }
func (f *fakeGL) BindVertexArray(vao uint32) {}
func (f *fakeGL) DeleteVertexArray(vao uint32) {}
func (f *fakeGL) DrawElements(mode uint32, count int32) { f.draws = append(f.draws, count) }

func (f *fakeGL) CreateTexture2D(w, h int32, pixels []byte) uint32 { return f.name() }
func (f *fakeGL) UpdateTexture2D(tex uint32, w, h int32, px []byte) {}
func (f *fakeGL) ActiveTexture(unit uint32) {}
func (f *fakeGL) BindTexture(target, tex uint32) {}
func (f *fakeGL) DeleteTexture(tex uint32) {}
func (f *fakeGL) BindFramebuffer(fbo uint32) { f.bound = fbo }
func (f *fakeGL) ResolveFramebuffer(fb Framebuffer, w, h int32) {}
func (f *fakeGL) InvalidateFramebuffer(attachments []uint32) { f.invalidated = append(f.invalidated, attachments) }
func (f *fakeGL) DeleteFramebuffer(fb Framebuffer) {}
func (f *fakeGL) ReadPixels(x, y, w, h int32) []byte { return make([]byte, w*h*4) }
func (f *fakeGL) CreateFramebuffer(spec FramebufferSpec) (Framebuffer, error) {
	fb := Framebuffer{FBO: f.name(), Depth: f.name()}
	if !spec.DepthOnly {
		fb.Color = f.name()
	}
	return fb, nil
}

func (f *fakeGL) GenQuery() uint32 { return f.name() }
func (f *fakeGL) BeginQuery(target, q uint32) { f.queriesBegun++ }
func (f *fakeGL) EndQuery(target uint32) {}
func (f *fakeGL) QueryResultAvailable(q uint32) bool { return f.queryAvailable[q] }
func (f *fakeGL) QueryResult(q uint32) uint32 { return f.queryResult[q] }
func (f *fakeGL) DeleteQuery(q uint32) {}

// fakeFence is signaled when its flag is set.
type fakeFence struct{ signaled bool }

func (f *fakeFence) Signaled() bool { return f.signaled }

// fakeExecutor records every submitted command buffer.
type fakeExecutor struct {
	buffers   []*CommandBuffer
	fences    []*fakeFence
	hang      bool
	failShade map[string]bool
}

var _ CommandExecutor = &fakeExecutor{}

func (e *fakeExecutor) Compile(s shader.Shader) error {
	if e.failShade[s.Signature()] {
		return errors.New("invalid WGSL")
	}
	return nil
}

func (e *fakeExecutor) Execute(cb *CommandBuffer) (Fence, error) {
	e.buffers = append(e.buffers, cb)
	f := &fakeFence{signaled: !e.hang}
	e.fences = append(e.fences, f)
	return f, nil
}

func (e *fakeExecutor) ReadPixels(rt texture.RenderTexture) ([]byte, error) {
	w, h := rt.Size()
	return make([]byte, w*h*4), nil
}

func (e *fakeExecutor) Release() {}
