package uniform_block

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// TransformBlockName is the shader-visible name of transform blocks.
	TransformBlockName = "Transform_ubo"

	// TransformBlockBinding is the binding point of transform blocks.
	TransformBlockBinding = 0

	// MatrixArrayName is the matrix array member of a transform block.
	MatrixArrayName = "u_matrices"
)

// TransformDescriptor returns the descriptor of a transform block holding capacity matrices.
//
// Parameters:
//   - capacity: the number of matrices
//
// Returns:
//   - string: the descriptor
func TransformDescriptor(capacity int) string {
	return fmt.Sprintf("uint u_right; uint u_render_mask; uint u_matrix_offset; uint u_pad; mat4 %s[%d]", MatrixArrayName, capacity)
}

// TransformBlock is a uniform block of per-draw matrices plus a header naming the eye
// being rendered, the render mask and the block's base matrix index.
type TransformBlock struct {
	UniformBlock
	capacity int
	used     int
	index    int
}

// NewTransformBlock allocates a transform block holding capacity matrices.
//
// Parameters:
//   - capacity: the number of matrices
//   - index: the position of the block in its pool
//
// Returns:
//   - *TransformBlock: the block
//   - error: any descriptor error
func NewTransformBlock(capacity, index int) (*TransformBlock, error) {
	ub, err := NewUniformBlock(TransformDescriptor(capacity), TransformBlockBinding, TransformBlockName)
	if err != nil {
		return nil, err
	}
	return &TransformBlock{UniformBlock: ub, capacity: capacity, index: index}, nil
}

// Capacity returns how many matrices fit in the block.
func (b *TransformBlock) Capacity() int {
	return b.capacity
}

// Used returns how many matrices have been allocated this frame.
func (b *TransformBlock) Used() int {
	return b.used
}

// Index returns the position of the block in its pool.
func (b *TransformBlock) Index() int {
	return b.index
}

// MatrixStride returns the byte distance between consecutive matrices.
func (b *TransformBlock) MatrixStride() int {
	e, _ := b.Layout().Lookup(MatrixArrayName)
	return e.Stride
}

// MatrixByteOffset returns the byte offset of matrix slot offset inside the block data.
func (b *TransformBlock) MatrixByteOffset(offset int) int {
	e, _ := b.Layout().Lookup(MatrixArrayName)
	return e.Offset + offset*e.Stride
}

// alloc reserves n consecutive matrix slots and returns the first, or false when full.
func (b *TransformBlock) alloc(n int) (int, bool) {
	if b.used+n > b.capacity {
		return 0, false
	}
	off := b.used
	b.used += n
	return off, true
}

// SetHeader writes the eye, render mask and base matrix index of the block.
//
// Parameters:
//   - right: true while rendering the right eye
//   - renderMask: the camera render mask
func (b *TransformBlock) SetHeader(right bool, renderMask uint32) {
	var r uint32
	if right {
		r = 1
	}
	_ = b.SetUint("u_right", r)
	_ = b.SetUint("u_render_mask", renderMask)
	_ = b.SetUint("u_matrix_offset", uint32(b.index*b.capacity))
}

// SetMatrices writes matrices starting at slot offset.
//
// Parameters:
//   - offset: the first slot
//   - ms: the matrices
//
// Returns:
//   - error: ErrUnknownUniform if the range falls outside the block
func (b *TransformBlock) SetMatrices(offset int, ms ...mgl32.Mat4) error {
	for i, m := range ms {
		if err := b.SetMat4At(MatrixArrayName, offset+i, m); err != nil {
			return err
		}
	}
	return nil
}
