package sorter

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sg/engine/light"
	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/uniform_block"
)

// Device is the slice of a backend the issue loop drives. The raster backend mutates
// GL state directly; the recording backend appends commands to the current pass.
//
// Every Bind/Use call is only made when the bound object changes, so implementations
// do not need to filter redundant calls.
type Device interface {
	light.Binder

	// UseShader makes s the current program, compiling it on first use.
	//
	// Parameters:
	//   - s: the shader
	//
	// Returns:
	//   - error: wraps shader.ErrShaderNotReady when the program cannot be built
	UseShader(s shader.Shader) error

	// BindMaterial uploads the material parameters and binds its textures.
	//
	// Parameters:
	//   - s: the current shader
	//   - m: the material, nil binds nothing
	//
	// Returns:
	//   - int: the next free texture unit
	//   - error: any binding error
	BindMaterial(s shader.Shader, m material.Material) (int, error)

	// BindMesh binds the vertex and index buffers of a mesh, uploading them on first use.
	BindMesh(m model.Mesh) error

	// UpdateTransformBlock uploads a transform block that received its last matrix.
	UpdateTransformBlock(b *uniform_block.TransformBlock) error

	// BindTransformBlock binds a transform block to the shader's transform binding.
	BindTransformBlock(b *uniform_block.TransformBlock, s shader.Shader)

	// SetMatrixUniforms delivers per-draw matrices as loose uniforms.
	SetMatrixUniforms(s shader.Shader, ms []mgl32.Mat4)

	// SetRenderStates applies the fixed-function state of m that differs from the
	// between-draws defaults.
	SetRenderStates(m *render_data.RenderModes)

	// RestoreRenderStates returns every field SetRenderStates touched to the
	// between-draws defaults.
	RestoreRenderStates(m *render_data.RenderModes)

	// Draw issues the draw of r with the currently bound state.
	//
	// Parameters:
	//   - r: the renderable, carrying its matrix offset
	//   - s: the current shader
	//
	// Returns:
	//   - error: any submission error; the draw is dropped
	Draw(r *Renderable, s shader.Shader) error
}

// OcclusionCuller decides whether a frustum-visible object enters the sorter. The
// raster backend implements it with hardware occlusion queries.
type OcclusionCuller interface {
	// Admit reports whether obj is admitted this frame. Objects whose query is still
	// in flight keep their last known visibility.
	Admit(rs *RenderState, obj game_object.GameObject) bool
}
