package renderer

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/uniform_block"
)

const glslVersion = "#version 410 core\n"

const glslMultiview = "#extension GL_OVR_multiview2 : require\nlayout(num_views = 2) in;\n"

const glslVertexInputs = `layout(location = 0) in vec3 a_position;
layout(location = 1) in vec3 a_normal;
layout(location = 2) in vec2 a_texcoord;
`

// glslTransformBlock declares the transform block for a given matrix capacity.
func glslTransformBlock(capacity int) string {
	return fmt.Sprintf(`layout(std140) uniform %s {
    uint u_right;
    uint u_render_mask;
    uint u_matrix_offset;
    uint u_pad;
    mat4 %s[%d];
};
uniform int %s;
`, uniform_block.TransformBlockName, uniform_block.MatrixArrayName, capacity, DrawOffsetUniform)
}

// glslMVP is the expression selecting the draw's clip matrix.
func glslMVP(multiview bool) string {
	if multiview {
		return "u_matrices[u_draw_offset + int(gl_ViewID_OVR)]"
	}
	return "u_matrices[u_draw_offset]"
}

func glslHeader(multiview bool) string {
	if multiview {
		return glslVersion + glslMultiview
	}
	return glslVersion
}

// glBuiltinSources returns the fixed-signature shaders of the raster backend.
func glBuiltinSources(capacity int) map[string]shader.Source {
	depth := func(multiview bool) shader.Source {
		return shader.Source{
			Language: shader.LanguageGLSL,
			Vertex: glslHeader(multiview) + glslVertexInputs + glslTransformBlock(capacity) +
				"void main() {\n    gl_Position = " + glslMVP(multiview) + " * vec4(a_position, 1.0);\n}\n",
			Fragment: glslVersion + "void main() {}\n",
		}
	}
	return map[string]shader.Source{
		shader.ErrorShaderSignature: {
			Language: shader.LanguageGLSL,
			Vertex: glslVersion + glslVertexInputs + glslTransformBlock(capacity) +
				"void main() {\n    gl_Position = " + glslMVP(false) + " * vec4(a_position, 1.0);\n}\n",
			Fragment: glslVersion + "out vec4 o_color;\nvoid main() {\n    o_color = vec4(1.0, 0.0, 1.0, 1.0);\n}\n",
		},
		shader.Signature(shader.DepthShaderSignature, false, "", false): depth(false),
		shader.Signature(shader.DepthShaderSignature, false, "", true):  depth(true),
		BoundingBoxSignature: {
			Language:           shader.LanguageGLSL,
			UsesMatrixUniforms: true,
			Vertex: glslVersion + glslVertexInputs +
				"uniform mat4 u_mvp;\nvoid main() {\n    gl_Position = u_mvp * vec4(a_position, 1.0);\n}\n",
			Fragment: glslVersion + "out vec4 o_color;\nvoid main() {\n    o_color = vec4(1.0);\n}\n",
		},
		TemplateBlit: {
			Language: shader.LanguageGLSL,
			Vertex: glslVersion + glslVertexInputs +
				"out vec2 v_uv;\nvoid main() {\n    v_uv = a_texcoord;\n    gl_Position = vec4(a_position.xy, 0.0, 1.0);\n}\n",
			Fragment: glslVersion + "uniform sampler2D " + SourceTextureName + ";\nin vec2 v_uv;\nout vec4 o_color;\n" +
				"void main() {\n    o_color = texture(" + SourceTextureName + ", v_uv);\n}\n",
		},
	}
}

// GLGenerator returns the shader generator of the raster backend's built-in
// templates. Unknown templates fail, which makes the sorter substitute the error
// shader.
//
// Parameters:
//   - capacity: the matrices per transform block
//
// Returns:
//   - shader.Generator: the generator
func GLGenerator(capacity int) shader.Generator {
	return func(template, signature string, useLights, multiview bool) (shader.Source, error) {
		if template != TemplateColor {
			return shader.Source{}, unknownTemplate(template)
		}

		var vs, fs strings.Builder
		vs.WriteString(glslHeader(multiview) + glslVertexInputs + glslTransformBlock(capacity))
		vs.WriteString("out vec3 v_normal;\nvoid main() {\n    v_normal = a_normal;\n")
		vs.WriteString("    gl_Position = " + glslMVP(multiview) + " * vec4(a_position, 1.0);\n}\n")

		fs.WriteString(glslVersion + "uniform vec4 u_base_color;\nin vec3 v_normal;\nout vec4 o_color;\n")
		n := lightCounts(signature)["DirectLight"]
		if useLights {
			fs.WriteString("uniform vec3 u_ambient;\n")
			if n > 0 {
				fmt.Fprintf(&fs, "struct DirectLight {\n    vec3 color;\n    float intensity;\n    vec3 direction;\n};\nuniform DirectLight u_DirectLight[%d];\n", n)
			}
		}
		fs.WriteString("void main() {\n    vec3 c = u_base_color.rgb;\n")
		if useLights {
			fs.WriteString("    vec3 lit = u_ambient;\n")
			if n > 0 {
				fmt.Fprintf(&fs, "    for (int i = 0; i < %d; i++) {\n", n)
				fs.WriteString("        lit += u_DirectLight[i].color * u_DirectLight[i].intensity * max(dot(normalize(v_normal), -u_DirectLight[i].direction), 0.0);\n    }\n")
			}
			fs.WriteString("    c *= lit;\n")
		}
		fs.WriteString("    o_color = vec4(c * u_base_color.a, u_base_color.a);\n}\n")

		return shader.Source{
			Language:   shader.LanguageGLSL,
			Vertex:     vs.String(),
			Fragment:   fs.String(),
			UsesLights: useLights,
		}, nil
	}
}
