package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// AllPlanes is the plane mask with every frustum plane still under test.
const AllPlanes uint8 = 0x3F

// CullResult classifies a bounding volume against a frustum.
type CullResult int

const (
	// CullOutside means the volume is completely outside at least one plane.
	CullOutside CullResult = iota
	// CullIntersect means the volume straddles at least one tested plane.
	CullIntersect
	// CullInside means the volume is inside every tested plane.
	CullInside
)

// ExtractFrustum extracts frustum planes from a view-projection matrix.
// The matrix should be the combined Projection * View matrix.
// Uses the Gribb/Hartmann method for plane extraction.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustum(viewProj mgl32.Mat4) Frustum {
	var f Frustum
	r0, r1, r2, r3 := viewProj.Row(0), viewProj.Row(1), viewProj.Row(2), viewProj.Row(3)

	f.Planes[FrustumLeft] = planeFrom(r3.Add(r0))
	f.Planes[FrustumRight] = planeFrom(r3.Sub(r0))
	f.Planes[FrustumBottom] = planeFrom(r3.Add(r1))
	f.Planes[FrustumTop] = planeFrom(r3.Sub(r1))
	f.Planes[FrustumNear] = planeFrom(r3.Add(r2))
	f.Planes[FrustumFar] = planeFrom(r3.Sub(r2))

	return f
}

// planeFrom builds a normalized plane from a row combination (a, b, c, d).
func planeFrom(v mgl32.Vec4) Plane {
	p := Plane{Normal: v.Vec3(), Distance: v[3]}
	if length := p.Normal.Len(); length > 0 {
		invLen := 1.0 / length
		p.Normal = p.Normal.Mul(invLen)
		p.Distance *= invLen
	}
	return p
}

// CullAABB tests an axis-aligned box against the planes selected by planeMask.
// Planes the box is fully inside are cleared from the returned mask so children
// enclosed by the box can skip them.
//
// Parameters:
//   - box: the world-space bounding box
//   - planeMask: bit i set means plane i still needs testing
//
// Returns:
//   - CullResult: outside, intersecting or inside
//   - uint8: the plane mask to hand down to enclosed children
func (f *Frustum) CullAABB(box AABB, planeMask uint8) (CullResult, uint8) {
	result := CullInside
	outMask := planeMask
	for i := range f.Planes {
		bit := uint8(1) << uint(i)
		if planeMask&bit == 0 {
			continue
		}
		p := &f.Planes[i]

		// positive and negative vertices relative to the plane normal
		var pv, nv mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if p.Normal[axis] >= 0 {
				pv[axis], nv[axis] = box.Max[axis], box.Min[axis]
			} else {
				pv[axis], nv[axis] = box.Min[axis], box.Max[axis]
			}
		}
		if p.Normal.Dot(pv)+p.Distance < 0 {
			return CullOutside, 0
		}
		if p.Normal.Dot(nv)+p.Distance < 0 {
			result = CullIntersect
		} else {
			outMask &^= bit
		}
	}
	return result, outMask
}
