package uniform_block

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestParseLayoutStd140(t *testing.T) {
	l, err := ParseLayout("float a; vec3 b; float c; vec2 d; mat4 e; float f[3]; vec4 g")
	if err != nil {
		t.Fatal(err)
	}

	specs := []struct {
		name   string
		offset int
		stride int
	}{
		{"a", 0, 4},
		{"b", 16, 12},
		{"c", 28, 4},
		{"d", 32, 8},
		{"e", 48, 64},
		{"f", 112, 16},
		{"g", 160, 16},
	}
	for index, spec := range specs {
		e, ok := l.Lookup(spec.name)
		if !ok {
			t.Errorf("[spec %d] member %q missing", index, spec.name)
			continue
		}
		if e.Offset != spec.offset {
			t.Errorf("[spec %d] expected %s at offset %d; got %d", index, spec.name, spec.offset, e.Offset)
		}
		if e.Stride != spec.stride {
			t.Errorf("[spec %d] expected %s stride %d; got %d", index, spec.name, spec.stride, e.Stride)
		}
	}
	if l.Size != 176 {
		t.Fatalf("expected block size 176; got %d", l.Size)
	}
}

func TestParseLayoutRejectsBadDescriptors(t *testing.T) {
	for index, desc := range []string{
		"",
		"float",
		"double x",
		"float x[0]",
		"float x[",
		"float x; float x",
	} {
		if _, err := ParseLayout(desc); !errors.Is(err, ErrBadDescriptor) {
			t.Errorf("[spec %d] expected ErrBadDescriptor for %q; got %v", index, desc, err)
		}
	}
}

func TestUniformBlockWrites(t *testing.T) {
	b, err := NewUniformBlock("vec4 u_color; float u_roughness; mat4 u_m[2]", 1, "Material_ubo")
	if err != nil {
		t.Fatal(err)
	}
	b.ClearDirty()

	if err := b.SetFloat("u_roughness", 0.5); err != nil {
		t.Fatal(err)
	}
	if !b.IsDirty() {
		t.Fatal("expected a write to dirty the block")
	}
	if err := b.SetFloat("u_color", 1); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch; got %v", err)
	}
	if err := b.SetFloat("u_missing", 1); !errors.Is(err, ErrUnknownUniform) {
		t.Fatalf("expected ErrUnknownUniform; got %v", err)
	}

	m := mgl32.Translate3D(1, 2, 3)
	if err := b.SetMat4At("u_m", 1, m); err != nil {
		t.Fatal(err)
	}
	got, err := b.Mat4At("u_m", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != m {
		t.Fatalf("expected %v; got %v", m, got)
	}
	if err := b.SetMat4At("u_m", 2, m); !errors.Is(err, ErrUnknownUniform) {
		t.Fatalf("expected out-of-range index to fail; got %v", err)
	}
}

func TestTransformBlockPoolRotates(t *testing.T) {
	var flushed []int
	pool := NewTransformBlockPool(4, func(b *TransformBlock) error {
		flushed = append(flushed, b.Index())
		return nil
	})
	pool.Reset(false, 3)

	specs := []struct {
		n      int
		block  int
		offset int
	}{
		{2, 0, 0},
		{2, 0, 2},
		{1, 1, 0},
		{3, 1, 1},
		{4, 2, 0},
	}
	for index, spec := range specs {
		b, off, err := pool.Alloc(spec.n)
		if err != nil {
			t.Fatalf("[spec %d] %v", index, err)
		}
		if b.Index() != spec.block || off != spec.offset {
			t.Errorf("[spec %d] expected block %d offset %d; got block %d offset %d", index, spec.block, spec.offset, b.Index(), off)
		}
	}
	if err := pool.FlushCurrent(); err != nil {
		t.Fatal(err)
	}
	if len(flushed) != 3 || flushed[0] != 0 || flushed[1] != 1 || flushed[2] != 2 {
		t.Fatalf("expected blocks 0, 1 and 2 to be flushed in order; got %v", flushed)
	}
	if pool.InUse() != 3 {
		t.Fatalf("expected 3 blocks in use; got %d", pool.InUse())
	}

	if _, _, err := pool.Alloc(5); err == nil {
		t.Fatal("expected a request larger than a block to fail")
	}

	pool.Reset(true, 2)
	if pool.InUse() != 0 || len(pool.Blocks()) != 3 {
		t.Fatalf("expected reset to keep 3 idle blocks; got %d in use of %d", pool.InUse(), len(pool.Blocks()))
	}
	b, off, _ := pool.Alloc(1)
	if b.Index() != 0 || off != 0 {
		t.Fatalf("expected allocation to restart at block 0; got block %d offset %d", b.Index(), off)
	}
}

func TestTransformBlockHeader(t *testing.T) {
	b, err := NewTransformBlock(8, 2)
	if err != nil {
		t.Fatal(err)
	}
	b.SetHeader(true, 2)

	data := b.Data()
	read := func(off int) uint32 {
		return uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
	}
	if read(0) != 1 || read(4) != 2 || read(8) != 16 {
		t.Fatalf("unexpected header %d %d %d", read(0), read(4), read(8))
	}
	if b.MatrixByteOffset(0) != 16 || b.MatrixByteOffset(3) != 16+3*64 {
		t.Fatalf("unexpected matrix offsets %d %d", b.MatrixByteOffset(0), b.MatrixByteOffset(3))
	}
}
