package wgpu_executor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

type vertexFormat struct {
	format wgpu.VertexFormat
	size   uint64
}

var vertexFormats = map[string]vertexFormat{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
	"i32":       {wgpu.VertexFormatSint32, 4},
}

var textureDimensions = map[string]wgpu.TextureViewDimension{
	"texture_2d":              wgpu.TextureViewDimension2D,
	"texture_2d_array":        wgpu.TextureViewDimension2DArray,
	"texture_cube":            wgpu.TextureViewDimensionCube,
	"texture_multisampled_2d": wgpu.TextureViewDimension2D,
	"texture_depth_2d":        wgpu.TextureViewDimension2D,
	"texture_depth_2d_array":  wgpu.TextureViewDimension2DArray,
}

var (
	structRegex   = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex  = regexp.MustCompile(`@builtin\(\w+\)`)
	fieldRegex    = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)
	vertexRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)\s*\(((?:[^()]|\([^()]*\))*)\)`)
	fragmentRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)
	bindingRegex  = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
	paramRegex    = regexp.MustCompile(`(\w+)\s*:\s*(\w+)\s*$`)
)

type wgslField struct {
	name     string
	typeName string
	location int
	builtin  bool
}

type wgslStruct struct {
	name   string
	fields []wgslField
}

// binding is one resource a shader declares, with its variable name and declared type.
type binding struct {
	entry    wgpu.BindGroupLayoutEntry
	name     string
	typeName string
}

// reflection is what a pipeline needs to know about a WGSL module.
type reflection struct {
	vertexEntry   string
	fragmentEntry string
	vertexLayout  *wgpu.VertexBufferLayout
	groups        map[uint32][]binding
}

// maxGroup returns the highest group index the module binds, -1 for none.
func (r *reflection) maxGroup() int {
	m := -1
	for g := range r.groups {
		m = max(m, int(g))
	}
	return m
}

// reflect extracts the entry points, the vertex input layout and the bind group
// layouts of a WGSL module. Every binding is visible to both stages since one module
// holds both entry points.
//
// Parameters:
//   - source: the WGSL module
//
// Returns:
//   - *reflection: the reflected interface
//   - error: when the module has no vertex entry point
func reflect(source string) (*reflection, error) {
	cleaned := stripComments(source)
	structs := parseStructs(cleaned)

	r := &reflection{groups: make(map[uint32][]binding)}
	m := vertexRegex.FindStringSubmatch(cleaned)
	if m == nil {
		return nil, fmt.Errorf("no @vertex entry point")
	}
	r.vertexEntry = m[1]
	if fm := fragmentRegex.FindStringSubmatch(cleaned); fm != nil {
		r.fragmentEntry = fm[1]
	}
	r.vertexLayout = vertexInputLayout(m[2], structs)

	sizes := structLayouts(structs)
	for _, b := range bindingRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(b[1])
		index, _ := strconv.Atoi(b[2])
		typeName := strings.TrimSpace(b[5])
		entry := classify(uint32(index), strings.TrimSpace(b[3]), typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if l, ok := layoutOf(typeName, sizes); ok {
				entry.Buffer.MinBindingSize = l.size
			}
		}
		r.groups[uint32(group)] = append(r.groups[uint32(group)], binding{entry: entry, name: b[4], typeName: typeName})
	}
	for g := range r.groups {
		sort.Slice(r.groups[g], func(i, j int) bool {
			return r.groups[g][i].entry.Binding < r.groups[g][j].entry.Binding
		})
	}
	return r, nil
}

func parseStructs(source string) []wgslStruct {
	matches := structRegex.FindAllStringSubmatch(source, -1)
	structs := make([]wgslStruct, 0, len(matches))
	for _, m := range matches {
		s := wgslStruct{name: m[1]}
		for _, line := range splitTopLevel(m[2]) {
			line = strings.TrimSpace(line)
			fm := fieldRegex.FindStringSubmatch(line)
			if line == "" || fm == nil {
				continue
			}
			f := wgslField{name: fm[1], typeName: strings.TrimSpace(fm[2]), location: -1}
			f.builtin = builtinRegex.MatchString(line)
			if lm := locationRegex.FindStringSubmatch(line); lm != nil {
				f.location, _ = strconv.Atoi(lm[1])
			}
			s.fields = append(s.fields, f)
		}
		structs = append(structs, s)
	}
	return structs
}

// vertexInputLayout finds the struct parameter of the vertex entry point and packs
// its located fields into one interleaved buffer layout. Builtin parameters are
// skipped; nil means the entry point reads no vertex buffer.
func vertexInputLayout(params string, structs []wgslStruct) *wgpu.VertexBufferLayout {
	for _, p := range splitTopLevel(params) {
		if builtinRegex.MatchString(p) {
			continue
		}
		pm := paramRegex.FindStringSubmatch(strings.TrimSpace(p))
		if pm == nil {
			continue
		}
		for _, s := range structs {
			if s.name != pm[2] {
				continue
			}
			var attrs []wgpu.VertexAttribute
			var offset uint64
			for _, f := range s.fields {
				vf, ok := vertexFormats[f.typeName]
				if f.builtin || f.location < 0 || !ok {
					continue
				}
				attrs = append(attrs, wgpu.VertexAttribute{
					Format:         vf.format,
					Offset:         offset,
					ShaderLocation: uint32(f.location),
				})
				offset += vf.size
			}
			if len(attrs) == 0 {
				return nil
			}
			return &wgpu.VertexBufferLayout{
				ArrayStride: offset,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes:  attrs,
			}
		}
	}
	return nil
}

// classify turns a binding declaration into a layout entry.
func classify(index uint32, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    index,
		Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
	}
	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if strings.Contains(addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
			entry.Visibility = wgpu.ShaderStageFragment
		}
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case typeName == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(typeName, "texture_"):
		base, _, _ := strings.Cut(typeName, "<")
		entry.Texture.ViewDimension = textureDimensions[base]
		entry.Texture.Multisampled = strings.Contains(base, "multisampled")
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		if strings.HasPrefix(base, "texture_depth_") {
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		} else if strings.Contains(typeName, "<u32>") {
			entry.Texture.SampleType = wgpu.TextureSampleTypeUint
		} else if strings.Contains(typeName, "<i32>") {
			entry.Texture.SampleType = wgpu.TextureSampleTypeSint
		}
	}
	return entry
}
