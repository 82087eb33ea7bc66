package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sg/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
)

// glOcclusionCuller admits objects by hardware occlusion queries. Each object has at
// most one query in flight; the query draws the object's bounding box with color and
// depth writes off and is read back on a later frame without stalling.
type glOcclusionCuller struct {
	b *glRendererBackendImpl

	// bounding-box meshes keyed by the ID of the mesh they enclose
	boxes   map[uint64]model.Mesh
	queries map[uint32]struct{}
}

var _ sorter.OcclusionCuller = &glOcclusionCuller{}

func newGLOcclusionCuller(b *glRendererBackendImpl) *glOcclusionCuller {
	return &glOcclusionCuller{
		b:       b,
		boxes:   make(map[uint64]model.Mesh),
		queries: make(map[uint32]struct{}),
	}
}

// Admit resolves the object's finished query and issues the next one. The returned
// visibility is the last resolved result, so objects with a query in flight keep
// their previous state.
func (o *glOcclusionCuller) Admit(rs *sorter.RenderState, obj game_object.GameObject) bool {
	if q, inFlight := obj.OcclusionQuery(); inFlight {
		if !o.b.ctx.QueryResultAvailable(q) {
			return obj.OcclusionVisible()
		}
		obj.ResolveOcclusionQuery(o.b.ctx.QueryResult(q) > 0)
		o.b.ctx.DeleteQuery(q)
		delete(o.queries, q)
	}

	if err := o.issue(rs, obj); err != nil {
		o.b.logger.Debugf("occlusion query for %q: %v", obj.Name(), err)
	}
	return obj.OcclusionVisible()
}

func (o *glOcclusionCuller) issue(rs *sorter.RenderState, obj game_object.GameObject) error {
	rd := obj.RenderData()
	if rd == nil || rd.Mesh() == nil {
		return nil
	}
	mesh := rd.Mesh()
	box, ok := o.boxes[mesh.ID()]
	if !ok {
		box = mesh.BoundingBoxMesh()
		o.boxes[mesh.ID()] = box
	}

	sh := o.b.shaders.FindShader(BoundingBoxSignature)
	if sh == nil {
		return fmt.Errorf("no %s shader registered", BoundingBoxSignature)
	}
	if err := o.b.UseShader(sh); err != nil {
		return err
	}
	if err := o.b.BindMesh(box); err != nil {
		return err
	}
	o.b.SetUniform(sh, "u_mvp", rs.ViewProj(rs.RightEye).Mul4(obj.WorldMatrix()))

	prev := o.b.state.clone()
	hidden := prev.clone()
	hidden.ColorMask = [4]bool{}
	hidden.DepthMask = false
	hidden.Caps[glCullFace] = false
	o.b.applyState(hidden)

	q := o.b.ctx.GenQuery()
	o.b.ctx.BeginQuery(glAnySamplesPassed, q)
	o.b.ctx.DrawElements(glDrawModes[render_data.DrawTriangles], int32(box.IndexCount()))
	o.b.ctx.EndQuery(glAnySamplesPassed)
	o.b.applyState(prev)

	o.queries[q] = struct{}{}
	obj.SetOcclusionQuery(q)
	return nil
}

func (o *glOcclusionCuller) release() {
	for q := range o.queries {
		o.b.ctx.DeleteQuery(q)
	}
	clear(o.queries)
	for id, box := range o.boxes {
		if gm, ok := o.b.meshes[box.ID()]; ok {
			o.b.deleteMesh(gm)
			delete(o.b.meshes, box.ID())
		}
		delete(o.boxes, id)
	}
}
