package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
)

// Bind group layout shared by every shader of the recording backend.
const (
	WGPUGroupTransform = 0
	WGPUGroupMaterial  = 1
	WGPUGroupLights    = 2
)

// Chunks registered with the recording backend's pre-processor.
const (
	ChunkVertexIn  = "vertex_in"
	ChunkTransform = "transform"
	ChunkMaterial  = "material"
	ChunkLights    = "lights"
)

const wgslVertexIn = `struct VertexIn {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
};`

const wgslMaterialParams = `struct MaterialParams {
    base_color: vec4<f32>,
    metallic: f32,
    roughness: f32,
    pad: vec2<f32>,
};`

const wgslLightBuffer = `struct Light {
    position: vec3<f32>,
    light_type: u32,
    color: vec3<f32>,
    intensity: f32,
    direction: vec3<f32>,
    light_range: f32,
    inner_cone: f32,
    outer_cone: f32,
    casts_shadows: u32,
    pad: u32,
};
struct LightBuffer {
    ambient: vec3<f32>,
    count: u32,
    lights: array<Light>,
};`

// The draw's first instance is the index of its matrix in the transform block.
func wgslTransform(capacity int) string {
	return fmt.Sprintf(`struct Transform {
    right: u32,
    render_mask: u32,
    matrix_offset: u32,
    pad: u32,
    matrices: array<mat4x4<f32>, %d>,
};`, capacity)
}

// WGPUPreProcessor returns a pre-processor with the recording backend's chunks, for
// built-in templates and user effect shaders alike.
//
// Parameters:
//   - capacity: the matrices per transform block
//
// Returns:
//   - shader.PreProcessor: the pre-processor
func WGPUPreProcessor(capacity int) shader.PreProcessor {
	pp := shader.NewPreProcessor()
	pp.Register(ChunkVertexIn, shader.Chunk{Source: wgslVertexIn, Type: "VertexIn"})
	pp.Register(ChunkTransform, shader.Chunk{Source: wgslTransform(capacity), Type: "Transform"})
	pp.Register(ChunkMaterial, shader.Chunk{Source: wgslMaterialParams, Type: "MaterialParams"})
	pp.Register(ChunkLights, shader.Chunk{Source: wgslLightBuffer, Type: "LightBuffer"})
	return pp
}

// WGSLSource pre-processes annotated WGSL into a recording-backend shader source.
//
// Parameters:
//   - pp: the pre-processor
//   - src: WGSL with @oxy: annotations
//
// Returns:
//   - shader.Source: the source, UsesLights set when the light buffer is bound
//   - error: any annotation error
func WGSLSource(pp shader.PreProcessor, src string) (shader.Source, error) {
	code, decls, err := pp.Process(src)
	if err != nil {
		return shader.Source{}, err
	}
	out := shader.Source{Language: shader.LanguageWGSL, Vertex: code}
	for _, d := range decls {
		if d.Chunk == ChunkLights {
			out.UsesLights = true
		}
	}
	return out, nil
}

const wgslPositionOnly = `//@oxy:include vertex_in
//@oxy:include transform
//@oxy:group 0 0 uniform transform transform

@vertex
fn vs_main(in: VertexIn, @builtin(instance_index) inst: u32) -> @builtin(position) vec4<f32> {
    return transform.matrices[inst] * vec4<f32>(in.position, 1.0);
}
`

const wgslError = wgslPositionOnly + `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 1.0, 1.0);
}
`

const wgslBlit = `//@oxy:include vertex_in

struct VertexOut {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};
@group(1) @binding(1) var source_sampler: sampler;
@group(1) @binding(2) var u_source: texture_2d<f32>;

@vertex
fn vs_main(in: VertexIn) -> VertexOut {
    var out: VertexOut;
    out.position = vec4<f32>(in.position.xy, 0.0, 1.0);
    out.uv = vec2<f32>(in.uv.x, 1.0 - in.uv.y);
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    return textureSample(u_source, source_sampler, in.uv);
}
`

// wgpuBuiltinSources returns the fixed-signature shaders of the recording backend.
func wgpuBuiltinSources(capacity int) (map[string]shader.Source, error) {
	pp := WGPUPreProcessor(capacity)
	raw := map[string]string{
		shader.ErrorShaderSignature: wgslError,
		shader.Signature(shader.DepthShaderSignature, false, "", false): wgslPositionOnly,
		TemplateBlit: wgslBlit,
	}
	out := make(map[string]shader.Source, len(raw))
	for sig, src := range raw {
		s, err := WGSLSource(pp, src)
		if err != nil {
			return nil, fmt.Errorf("built-in %s: %w", sig, err)
		}
		out[sig] = s
	}
	return out, nil
}

const wgslColorHead = `//@oxy:include vertex_in
//@oxy:include transform
//@oxy:include material
//@oxy:group 0 0 uniform transform transform
//@oxy:group 1 0 uniform material material
`

const wgslColorLights = `//@oxy:include lights
//@oxy:group 2 0 storage_read light_buffer lights
`

const wgslColorBody = `
struct VertexOut {
    @builtin(position) position: vec4<f32>,
    @location(0) normal: vec3<f32>,
};

@vertex
fn vs_main(in: VertexIn, @builtin(instance_index) inst: u32) -> VertexOut {
    var out: VertexOut;
    out.position = transform.matrices[inst] * vec4<f32>(in.position, 1.0);
    out.normal = in.normal;
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    var c = material.base_color.rgb;
`

const wgslColorLighting = `    var lit = light_buffer.ambient;
    for (var i = 0u; i < light_buffer.count; i++) {
        let l = light_buffer.lights[i];
        if (l.light_type == 0u) {
            lit += l.color * l.intensity * max(dot(normalize(in.normal), -l.direction), 0.0);
        }
    }
    c *= lit;
`

// WGPUGenerator returns the shader generator of the recording backend's built-in
// templates. Vertex and fragment entry points share one WGSL module kept in
// Source.Vertex.
//
// Parameters:
//   - capacity: the matrices per transform block
//
// Returns:
//   - shader.Generator: the generator
func WGPUGenerator(capacity int) shader.Generator {
	pp := WGPUPreProcessor(capacity)
	return func(template, signature string, useLights, multiview bool) (shader.Source, error) {
		if template != TemplateColor {
			return shader.Source{}, unknownTemplate(template)
		}
		if multiview {
			return shader.Source{}, fmt.Errorf("%s: multiview is not supported by the recording backend", signature)
		}

		src := wgslColorHead
		if useLights {
			src += wgslColorLights
		}
		src += wgslColorBody
		if useLights {
			src += wgslColorLighting
		}
		src += `    return vec4<f32>(c * material.base_color.a, material.base_color.a);
}
`
		return WGSLSource(pp, src)
	}
}
