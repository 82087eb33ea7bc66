package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Mat4Bytes reinterprets a single matrix as its 64 column-major bytes.
//
// Parameters:
//   - m: pointer to the matrix to view
//
// Returns:
//   - []byte: byte slice view of the matrix memory
func Mat4Bytes(m *mgl32.Mat4) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&m[0])), 64)
}

// BuildModelMatrix builds a TRS model matrix from position, euler rotation (radians) and scale.
// Rotation is applied in Z * Y * X order.
//
// Parameters:
//   - pos: translation
//   - rot: euler rotation in radians (x, y, z)
//   - scale: per-axis scale
//
// Returns:
//   - mgl32.Mat4: the combined model matrix
func BuildModelMatrix(pos, rot, scale mgl32.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(pos[0], pos[1], pos[2])
	r := mgl32.HomogRotate3DZ(rot[2]).Mul4(mgl32.HomogRotate3DY(rot[1])).Mul4(mgl32.HomogRotate3DX(rot[0]))
	s := mgl32.Scale3D(scale[0], scale[1], scale[2])
	return t.Mul4(r).Mul4(s)
}

// TransformPoint applies a 4x4 affine matrix to a point.
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// Distance returns the euclidean distance between two points.
func Distance(a, b mgl32.Vec3) float32 {
	return a.Sub(b).Len()
}

// DegToRad converts degrees to radians.
func DegToRad(deg float32) float32 {
	return float32(float64(deg) * math.Pi / 180.0)
}
