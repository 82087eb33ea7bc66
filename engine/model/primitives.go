package model

import (
	"github.com/Carmen-Shannon/oxy-sg/common"
	"github.com/go-gl/mathgl/mgl32"
)

// boxFaces lists each face as (normal, four corner indices into AABB.Corners) wound CCW
// when seen from outside.
var boxFaces = [6]struct {
	normal  [3]float32
	corners [4]int
}{
	{[3]float32{0, 0, -1}, [4]int{1, 0, 2, 3}},
	{[3]float32{0, 0, 1}, [4]int{4, 5, 7, 6}},
	{[3]float32{-1, 0, 0}, [4]int{0, 4, 6, 2}},
	{[3]float32{1, 0, 0}, [4]int{5, 1, 3, 7}},
	{[3]float32{0, -1, 0}, [4]int{0, 1, 5, 4}},
	{[3]float32{0, 1, 0}, [4]int{6, 7, 3, 2}},
}

var quadUVs = [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// NewBox builds a closed box mesh covering the given bounds with per-face normals.
//
// Parameters:
//   - bounds: the box extents
//   - opts: variadic list of MeshBuilderOption functions
//
// Returns:
//   - Mesh: a 24 vertex, 12 triangle mesh
func NewBox(bounds common.AABB, opts ...MeshBuilderOption) Mesh {
	corners := bounds.Corners()
	vertices := make([]GPUVertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range boxFaces {
		base := uint32(len(vertices))
		for i, c := range f.corners {
			vertices = append(vertices, GPUVertex{
				Position: corners[c],
				Normal:   f.normal,
				TexCoord: quadUVs[i],
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return NewMesh(append([]MeshBuilderOption{WithName("box"), WithGeometry(vertices, indices)}, opts...)...)
}

// NewCube builds an axis-aligned cube of the given edge length centered on the origin.
//
// Parameters:
//   - size: the edge length
//   - opts: variadic list of MeshBuilderOption functions
//
// Returns:
//   - Mesh: the cube mesh
func NewCube(size float32, opts ...MeshBuilderOption) Mesh {
	h := size / 2
	return NewBox(common.AABB{Min: mgl32.Vec3{-h, -h, -h}, Max: mgl32.Vec3{h, h, h}}, append([]MeshBuilderOption{WithName("cube")}, opts...)...)
}

// NewFullScreenQuad builds the clip-space quad post effects draw with.
// Positions span [-1, 1] on x and y at z = 0 and UVs span [0, 1].
//
// Returns:
//   - Mesh: a 4 vertex, 2 triangle mesh
func NewFullScreenQuad() Mesh {
	vertices := []GPUVertex{
		{Position: [3]float32{-1, -1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: quadUVs[0]},
		{Position: [3]float32{1, -1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: quadUVs[1]},
		{Position: [3]float32{1, 1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: quadUVs[2]},
		{Position: [3]float32{-1, 1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: quadUVs[3]},
	}
	return NewMesh(WithName("fullscreen_quad"), WithGeometry(vertices, []uint32{0, 1, 2, 0, 2, 3}))
}
