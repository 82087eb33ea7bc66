package render_data

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sg/engine/model"
)

// Owner is the scene object a RenderData belongs to.
type Owner interface {
	Name() string
}

// renderData is the implementation of the RenderData interface.
type renderData struct {
	mu          *sync.Mutex
	mesh        model.Mesh
	passes      []RenderPass
	renderMask  RenderMask
	castShadows bool
	owner       Owner
}

// RenderData binds a mesh to the ordered passes that draw it.
//
// RenderData is authored by the scene side and consumed read-only by the sorter,
// which expands every visible RenderData into one draw record per pass.
type RenderData interface {
	// Mesh returns the geometry drawn by every pass.
	//
	// Returns:
	//   - model.Mesh: the mesh, or nil
	Mesh() model.Mesh

	// SetMesh replaces the geometry.
	//
	// Parameters:
	//   - m: the mesh
	SetMesh(m model.Mesh)

	// Passes returns the passes in draw order.
	//
	// Returns:
	//   - []RenderPass: the passes
	Passes() []RenderPass

	// AddPass appends a pass.
	//
	// Parameters:
	//   - p: the pass
	AddPass(p RenderPass)

	// Pass returns the pass at index i or nil.
	//
	// Parameters:
	//   - i: the pass index
	//
	// Returns:
	//   - RenderPass: the pass or nil
	Pass(i int) RenderPass

	// RenderMask returns the eyes this data renders into.
	//
	// Returns:
	//   - RenderMask: the mask
	RenderMask() RenderMask

	// SetRenderMask sets the eyes this data renders into.
	//
	// Parameters:
	//   - mask: the mask
	SetRenderMask(mask RenderMask)

	// CastShadows reports whether the data is drawn into shadow maps.
	//
	// Returns:
	//   - bool: true if it casts shadows
	CastShadows() bool

	// SetCastShadows sets whether the data is drawn into shadow maps and updates every pass.
	//
	// Parameters:
	//   - enable: true to cast shadows
	SetCastShadows(enable bool)

	// Owner returns the scene object this data belongs to.
	//
	// Returns:
	//   - Owner: the owner or nil
	Owner() Owner

	// SetOwner sets the scene object this data belongs to.
	//
	// Parameters:
	//   - o: the owner
	SetOwner(o Owner)
}

var _ RenderData = &renderData{}

// NewRenderData creates a RenderData for the given mesh.
//
// Parameters:
//   - mesh: the geometry
//   - opts: variadic list of RenderDataBuilderOption functions
//
// Returns:
//   - RenderData: the new render data
func NewRenderData(mesh model.Mesh, opts ...RenderDataBuilderOption) RenderData {
	rd := &renderData{
		mu:          &sync.Mutex{},
		mesh:        mesh,
		renderMask:  RenderMaskBoth,
		castShadows: true,
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

func (rd *renderData) Mesh() model.Mesh {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.mesh
}

func (rd *renderData) SetMesh(m model.Mesh) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.mesh = m
}

func (rd *renderData) Passes() []RenderPass {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.passes
}

func (rd *renderData) AddPass(p RenderPass) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.passes = append(rd.passes, p)
}

func (rd *renderData) Pass(i int) RenderPass {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	if i < 0 || i >= len(rd.passes) {
		return nil
	}
	return rd.passes[i]
}

func (rd *renderData) RenderMask() RenderMask {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.renderMask
}

func (rd *renderData) SetRenderMask(mask RenderMask) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.renderMask = mask
}

func (rd *renderData) CastShadows() bool {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.castShadows
}

func (rd *renderData) SetCastShadows(enable bool) {
	rd.mu.Lock()
	rd.castShadows = enable
	passes := rd.passes
	rd.mu.Unlock()

	for _, p := range passes {
		p.SetCastShadows(enable)
	}
}

func (rd *renderData) Owner() Owner {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.owner
}

func (rd *renderData) SetOwner(o Owner) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.owner = o
}
