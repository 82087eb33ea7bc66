package uniform_block

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/common"
)

// uniformBlock is the implementation of the UniformBlock interface.
type uniformBlock struct {
	id         uint64
	name       string
	binding    int
	descriptor string
	layout     *Layout
	data       []byte
	dirty      bool
}

// UniformBlock is a CPU-side copy of a std140 uniform buffer, written member by member
// and uploaded by a backend whenever it is dirty.
//
// Blocks are owned by the render thread and are not synchronized.
type UniformBlock interface {
	// ID returns the process-unique identifier backends use to key the GPU buffer.
	//
	// Returns:
	//   - uint64: the block ID
	ID() uint64

	// Name returns the block name as declared in shaders.
	//
	// Returns:
	//   - string: the block name
	Name() string

	// Binding returns the binding point of the block.
	//
	// Returns:
	//   - int: the binding index
	Binding() int

	// Descriptor returns the textual member list the layout was parsed from.
	//
	// Returns:
	//   - string: the descriptor
	Descriptor() string

	// Layout returns the std140 member layout.
	//
	// Returns:
	//   - *Layout: the layout
	Layout() *Layout

	// Data returns the block bytes. The slice aliases the block storage.
	//
	// Returns:
	//   - []byte: the data
	Data() []byte

	// SetInt writes a signed integer member.
	SetInt(name string, v int32) error

	// SetUint writes an unsigned integer member.
	SetUint(name string, v uint32) error

	// SetFloat writes a float member.
	SetFloat(name string, v float32) error

	// SetVec4 writes a vec4 member.
	SetVec4(name string, v mgl32.Vec4) error

	// SetMat4 writes a mat4 member, or element 0 of a mat4 array.
	SetMat4(name string, m mgl32.Mat4) error

	// SetMat4At writes element index of a mat4 array.
	//
	// Parameters:
	//   - name: the member name
	//   - index: the array index
	//   - m: the matrix
	//
	// Returns:
	//   - error: ErrUnknownUniform for unknown names or out-of-range indices
	SetMat4At(name string, index int, m mgl32.Mat4) error

	// Mat4At reads element index of a mat4 array.
	//
	// Parameters:
	//   - name: the member name
	//   - index: the array index
	//
	// Returns:
	//   - mgl32.Mat4: the matrix
	//   - error: ErrUnknownUniform for unknown names or out-of-range indices
	Mat4At(name string, index int) (mgl32.Mat4, error)

	// IsDirty reports whether the block changed since the last upload.
	//
	// Returns:
	//   - bool: true if dirty
	IsDirty() bool

	// ClearDirty marks the block as uploaded.
	ClearDirty()
}

var _ UniformBlock = &uniformBlock{}

// NewUniformBlock parses the descriptor and allocates zeroed block storage.
//
// Parameters:
//   - descriptor: the member list, e.g. "vec4 u_color; float u_roughness"
//   - binding: the binding point
//   - name: the block name
//
// Returns:
//   - UniformBlock: the block
//   - error: ErrBadDescriptor if the descriptor does not parse
func NewUniformBlock(descriptor string, binding int, name string) (UniformBlock, error) {
	layout, err := ParseLayout(descriptor)
	if err != nil {
		return nil, fmt.Errorf("block %q: %w", name, err)
	}
	return &uniformBlock{
		id:         common.NextID(),
		name:       name,
		binding:    binding,
		descriptor: descriptor,
		layout:     layout,
		data:       make([]byte, layout.Size),
		dirty:      true,
	}, nil
}

func (b *uniformBlock) ID() uint64 {
	return b.id
}

func (b *uniformBlock) Name() string {
	return b.name
}

func (b *uniformBlock) Binding() int {
	return b.binding
}

func (b *uniformBlock) Descriptor() string {
	return b.descriptor
}

func (b *uniformBlock) Layout() *Layout {
	return b.layout
}

func (b *uniformBlock) Data() []byte {
	return b.data
}

func (b *uniformBlock) slot(name string, index int, types ...UniformType) (int, error) {
	e, ok := b.layout.Lookup(name)
	if !ok || index < 0 || index >= e.Count {
		return 0, fmt.Errorf("%w: %s[%d] in block %q", ErrUnknownUniform, name, index, b.name)
	}
	for _, t := range types {
		if e.Type == t {
			return e.Offset + index*e.Stride, nil
		}
	}
	return 0, fmt.Errorf("%w: %s in block %q", ErrTypeMismatch, name, b.name)
}

func (b *uniformBlock) SetInt(name string, v int32) error {
	off, err := b.slot(name, 0, TypeInt, TypeUint)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[off:], uint32(v))
	b.dirty = true
	return nil
}

func (b *uniformBlock) SetUint(name string, v uint32) error {
	off, err := b.slot(name, 0, TypeUint, TypeInt)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[off:], v)
	b.dirty = true
	return nil
}

func (b *uniformBlock) SetFloat(name string, v float32) error {
	off, err := b.slot(name, 0, TypeFloat)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[off:], math.Float32bits(v))
	b.dirty = true
	return nil
}

func (b *uniformBlock) SetVec4(name string, v mgl32.Vec4) error {
	off, err := b.slot(name, 0, TypeVec4)
	if err != nil {
		return err
	}
	for i, c := range v {
		binary.LittleEndian.PutUint32(b.data[off+i*4:], math.Float32bits(c))
	}
	b.dirty = true
	return nil
}

func (b *uniformBlock) SetMat4(name string, m mgl32.Mat4) error {
	return b.SetMat4At(name, 0, m)
}

func (b *uniformBlock) SetMat4At(name string, index int, m mgl32.Mat4) error {
	off, err := b.slot(name, index, TypeMat4)
	if err != nil {
		return err
	}
	copy(b.data[off:off+64], common.Mat4Bytes(&m))
	b.dirty = true
	return nil
}

func (b *uniformBlock) Mat4At(name string, index int) (mgl32.Mat4, error) {
	off, err := b.slot(name, index, TypeMat4)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	var m mgl32.Mat4
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(b.data[off+i*4:]))
	}
	return m, nil
}

func (b *uniformBlock) IsDirty() bool {
	return b.dirty
}

func (b *uniformBlock) ClearDirty() {
	b.dirty = false
}
