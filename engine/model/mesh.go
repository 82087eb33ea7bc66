package model

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sg/common"
)

// mesh is the implementation of the Mesh interface.
type mesh struct {
	mu          *sync.Mutex
	id          uint64
	name        string
	vertices    []GPUVertex
	indices     []uint32
	bounds      common.AABB
	version     uint64
	bboxMesh    Mesh
	vertexBytes []byte
	indexBytes  []byte
}

// Mesh is indexed triangle geometry shared by any number of scene objects.
//
// Geometry is authored outside the renderer. Backends upload it lazily on first bind
// and again whenever Version changes.
type Mesh interface {
	// ID returns the process-unique mesh identity used as a sort key.
	// IDs increase with creation order.
	//
	// Returns:
	//   - uint64: the mesh ID
	ID() uint64

	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// Vertices returns the vertex array.
	//
	// Returns:
	//   - []GPUVertex: the vertices
	Vertices() []GPUVertex

	// Indices returns the triangle index list.
	//
	// Returns:
	//   - []uint32: the indices
	Indices() []uint32

	// VertexData returns the packed vertex buffer contents.
	//
	// Returns:
	//   - []byte: the vertex bytes
	VertexData() []byte

	// IndexData returns the packed index buffer contents.
	//
	// Returns:
	//   - []byte: the index bytes
	IndexData() []byte

	// IndexCount returns the number of indices to draw.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// TriangleCount returns the number of triangles in the index list.
	//
	// Returns:
	//   - int: the triangle count
	TriangleCount() int

	// BoundingBox returns the model-space bounds of the vertices.
	//
	// Returns:
	//   - common.AABB: the bounds
	BoundingBox() common.AABB

	// BoundingBoxMesh returns a 12-triangle box mesh enclosing this mesh, built on first
	// call and cached until the geometry changes. Occlusion queries draw it.
	//
	// Returns:
	//   - Mesh: the box mesh
	BoundingBoxMesh() Mesh

	// SetGeometry replaces the vertices and indices and bumps the version.
	//
	// Parameters:
	//   - vertices: the new vertices
	//   - indices: the new indices
	SetGeometry(vertices []GPUVertex, indices []uint32)

	// Version increments every time the geometry changes.
	//
	// Returns:
	//   - uint64: the geometry version
	Version() uint64
}

var _ Mesh = &mesh{}

// NewMesh creates a new Mesh with the provided options applied.
//
// Parameters:
//   - opts: variadic list of MeshBuilderOption functions
//
// Returns:
//   - Mesh: the new mesh
func NewMesh(opts ...MeshBuilderOption) Mesh {
	m := &mesh{
		mu:     &sync.Mutex{},
		id:     common.NextID(),
		bounds: common.EmptyAABB(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.rebuild()
	return m
}

func (m *mesh) ID() uint64 {
	return m.id
}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) Vertices() []GPUVertex {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vertices
}

func (m *mesh) Indices() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indices
}

func (m *mesh) VertexData() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vertexBytes
}

func (m *mesh) IndexData() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexBytes
}

func (m *mesh) IndexCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.indices)
}

func (m *mesh) TriangleCount() int {
	return m.IndexCount() / 3
}

func (m *mesh) BoundingBox() common.AABB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bounds
}

func (m *mesh) BoundingBoxMesh() Mesh {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bboxMesh == nil && m.bounds.Valid() {
		m.bboxMesh = NewBox(m.bounds, WithName(m.name+".bbox"))
	}
	return m.bboxMesh
}

func (m *mesh) SetGeometry(vertices []GPUVertex, indices []uint32) {
	m.mu.Lock()
	m.vertices = vertices
	m.indices = indices
	m.mu.Unlock()
	m.rebuild()
}

func (m *mesh) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// rebuild recomputes the derived data after the geometry changed.
func (m *mesh) rebuild() {
	m.mu.Lock()
	defer m.mu.Unlock()

	bounds := common.EmptyAABB()
	for i := range m.vertices {
		bounds = bounds.Extend(m.vertices[i].Position)
	}
	m.bounds = bounds
	m.vertexBytes = MarshalVertices(m.vertices)
	m.indexBytes = MarshalIndices(m.indices)
	m.bboxMesh = nil
	m.version++
}
