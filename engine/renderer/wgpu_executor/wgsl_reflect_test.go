package wgpu_executor

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer"
)

func TestReflectColorShader(t *testing.T) {
	src, err := renderer.WGPUGenerator(8)(renderer.TemplateColor, "Color$DirectLight1", true, false)
	if err != nil {
		t.Fatalf("generating: %v", err)
	}
	r, err := reflect(src.Vertex)
	if err != nil {
		t.Fatalf("reflecting: %v", err)
	}

	if r.vertexEntry != "vs_main" || r.fragmentEntry != "fs_main" {
		t.Errorf("entry points = %q/%q, want vs_main/fs_main", r.vertexEntry, r.fragmentEntry)
	}
	if r.vertexLayout == nil {
		t.Fatalf("no vertex layout")
	}
	if r.vertexLayout.ArrayStride != 32 || len(r.vertexLayout.Attributes) != 3 {
		t.Errorf("vertex layout stride %d with %d attributes, want 32 with 3", r.vertexLayout.ArrayStride, len(r.vertexLayout.Attributes))
	}
	wantOffsets := []uint64{0, 12, 24}
	for i, a := range r.vertexLayout.Attributes {
		if a.Offset != wantOffsets[i] || a.ShaderLocation != uint32(i) {
			t.Errorf("[spec %d] attribute at offset %d location %d, want %d/%d", i, a.Offset, a.ShaderLocation, wantOffsets[i], i)
		}
	}

	specs := []struct {
		group   uint32
		name    string
		kind    wgpu.BufferBindingType
		minSize uint64
	}{
		{renderer.WGPUGroupTransform, "transform", wgpu.BufferBindingTypeUniform, 16 + 64*8},
		{renderer.WGPUGroupMaterial, "material", wgpu.BufferBindingTypeUniform, 32},
		{renderer.WGPUGroupLights, "light_buffer", wgpu.BufferBindingTypeReadOnlyStorage, 16 + 64},
	}
	for i, spec := range specs {
		bs := r.groups[spec.group]
		if len(bs) != 1 {
			t.Errorf("[spec %d] group %d has %d bindings, want 1", i, spec.group, len(bs))
			continue
		}
		b := bs[0]
		if b.name != spec.name || b.entry.Buffer.Type != spec.kind || b.entry.Buffer.MinBindingSize != spec.minSize {
			t.Errorf("[spec %d] got %s %v size %d, want %s %v size %d",
				i, b.name, b.entry.Buffer.Type, b.entry.Buffer.MinBindingSize, spec.name, spec.kind, spec.minSize)
		}
	}
	if r.maxGroup() != 2 {
		t.Errorf("maxGroup = %d, want 2", r.maxGroup())
	}
}

func TestReflectBlitShader(t *testing.T) {
	const src = `struct VertexIn {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
};
@group(1) @binding(2) var u_source: texture_2d<f32>;
@group(1) @binding(1) var source_sampler: sampler;

@vertex
fn vs_main(in: VertexIn) -> @builtin(position) vec4<f32> {
    return vec4<f32>(in.position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return textureSample(u_source, source_sampler, vec2<f32>(0.5));
}
`
	r, err := reflect(src)
	if err != nil {
		t.Fatalf("reflecting: %v", err)
	}
	bs := r.groups[1]
	if len(bs) != 2 {
		t.Fatalf("group 1 has %d bindings, want 2", len(bs))
	}
	if bs[0].entry.Binding != 1 || bs[0].entry.Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Errorf("binding 1 = %+v, want a filtering sampler", bs[0].entry)
	}
	if bs[1].name != "u_source" || bs[1].entry.Texture.SampleType != wgpu.TextureSampleTypeFloat ||
		bs[1].entry.Texture.ViewDimension != wgpu.TextureViewDimension2D {
		t.Errorf("binding 2 = %s %+v, want a float 2D texture u_source", bs[1].name, bs[1].entry.Texture)
	}
	if r.maxGroup() != 1 {
		t.Errorf("maxGroup = %d, want 1 with group 0 left empty", r.maxGroup())
	}
}

func TestReflectVertexParameters(t *testing.T) {
	specs := []struct {
		src        string
		wantLayout bool
		wantFrag   string
	}{
		{
			src: `struct V { @location(0) p: vec3<f32>, };
@vertex fn main(@builtin(vertex_index) vi: u32, v: V) -> @builtin(position) vec4<f32> { return vec4<f32>(v.p, 1.0); }`,
			wantLayout: true,
		},
		{
			src: `// struct Hidden { @location(0) p: vec3<f32>, };
@vertex fn main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }`,
			wantLayout: false,
		},
		{
			src: `struct V { /* nested /* block */ comment */ @location(0) p: vec3<f32>, };
@vertex fn vs(v: V) -> @builtin(position) vec4<f32> { return vec4<f32>(v.p, 1.0); }
@fragment fn fs() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }`,
			wantLayout: true,
			wantFrag:   "fs",
		},
	}
	for i, spec := range specs {
		r, err := reflect(spec.src)
		if err != nil {
			t.Errorf("[spec %d] %v", i, err)
			continue
		}
		if (r.vertexLayout != nil) != spec.wantLayout {
			t.Errorf("[spec %d] vertex layout present = %t, want %t", i, r.vertexLayout != nil, spec.wantLayout)
		}
		if r.fragmentEntry != spec.wantFrag {
			t.Errorf("[spec %d] fragment entry = %q, want %q", i, r.fragmentEntry, spec.wantFrag)
		}
	}

	if _, err := reflect("fn helper() {}"); err == nil {
		t.Errorf("a module without @vertex reflected")
	}
}

func TestLayoutOf(t *testing.T) {
	known := structLayouts([]wgslStruct{
		{name: "Inner", fields: []wgslField{{typeName: "vec3<f32>"}, {typeName: "f32"}}},
		{name: "Outer", fields: []wgslField{{typeName: "u32"}, {typeName: "Inner"}}},
	})
	specs := []struct {
		typeName string
		want     typeLayout
	}{
		{"f32", typeLayout{4, 4}},
		{"mat4x4<f32>", typeLayout{64, 16}},
		{"array<mat4x4<f32>, 3>", typeLayout{192, 16}},
		{"array<vec3<f32>>", typeLayout{16, 16}},
		{"Inner", typeLayout{16, 16}},
		{"Outer", typeLayout{32, 16}},
	}
	for i, spec := range specs {
		got, ok := layoutOf(spec.typeName, known)
		if !ok || got != spec.want {
			t.Errorf("[spec %d] layoutOf(%s) = %+v %t, want %+v", i, spec.typeName, got, ok, spec.want)
		}
	}
	if _, ok := layoutOf("texture_2d<f32>", known); ok {
		t.Errorf("a texture type has a buffer layout")
	}
}
