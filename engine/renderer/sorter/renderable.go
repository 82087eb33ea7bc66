package sorter

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/uniform_block"
)

// Renderable is the per-frame draw record of one render pass of one visible object.
// Renderables live in the sorter's arena and double as merge-tree nodes; none of
// them outlive Clear.
//
// The handles are non-owning; the scene owns render data, passes, materials and
// meshes.
type Renderable struct {
	RenderData render_data.RenderData
	Pass       render_data.RenderPass
	Material   material.Material
	Mesh       model.Mesh
	Shader     shader.Shader
	Modes      render_data.RenderModes
	Distance   float32
	Model      mgl32.Mat4

	// Matrices holds the per-draw matrices written by the issue phase. Block and
	// MatrixOffset locate them in a transform block unless the shader takes them as
	// loose uniforms.
	Matrices     []mgl32.Mat4
	Block        *uniform_block.TransformBlock
	MatrixOffset int

	seq      int
	level    int
	valid    bool
	skip     bool
	listHead bool

	nextLevel   *Renderable
	nextSibling *Renderable
}

// Seq returns the insertion index of the renderable within the frame.
func (r *Renderable) Seq() int {
	return r.seq
}

// NextLevel returns the head of the child list, nil for leaves.
func (r *Renderable) NextLevel() *Renderable {
	return r.nextLevel
}

// NextSibling returns the next peer at the same level.
func (r *Renderable) NextSibling() *Renderable {
	return r.nextSibling
}

// IsListHead reports whether the node is a synthetic bucket rather than a draw.
func (r *Renderable) IsListHead() bool {
	return r.listHead
}

// ShaderID returns the selected shader ID, 0 before selection.
func (r *Renderable) ShaderID() int {
	if r.Shader == nil {
		return 0
	}
	return r.Shader.ID()
}

func (r *Renderable) String() string {
	owner := "-"
	if r.RenderData != nil && r.RenderData.Owner() != nil {
		owner = r.RenderData.Owner().Name()
	}
	var meshID, matID uint64
	if r.Mesh != nil {
		meshID = r.Mesh.ID()
	}
	if r.Material != nil {
		matID = r.Material.ID()
	}
	return fmt.Sprintf("order=%d dist=%.2f shader=%d mesh=%d material=%d owner=%s",
		r.Modes.RenderOrder(), r.Distance, r.ShaderID(), meshID, matID, owner)
}
