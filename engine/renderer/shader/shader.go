package shader

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-sg/engine/matrix_calc"
)

// Language identifies the shading language of a Source.
type Language int

const (
	// LanguageGLSL is GLSL 4.10 core, consumed by the raster backend.
	LanguageGLSL Language = iota

	// LanguageWGSL is WGSL, consumed by the command-recording backend. Vertex and
	// fragment entry points live in one module as vs_main and fs_main.
	LanguageWGSL
)

// Source is the text and metadata of one shader variant, produced by a Generator
// or supplied by a backend for its built-in shaders.
type Source struct {
	Language Language
	Vertex   string
	Fragment string

	// MatrixCalc is the matrix expression program deriving per-draw matrices.
	// Empty means the default outputs: the mvp of each rendered eye.
	MatrixCalc string

	// UsesMatrixUniforms delivers matrices as loose uniforms instead of through
	// the transform block. Raster backend only.
	UsesMatrixUniforms bool

	// UsesLights marks shaders that read the light uniforms and shadow maps.
	UsesLights bool
}

// shader is the implementation of the Shader interface.
type shader struct {
	id         int
	signature  string
	source     Source
	matrixCalc matrix_calc.MatrixCalc
	invalid    atomic.Bool
}

// Shader is one compiled-on-demand shader variant, identified by a dense integer ID
// and by the signature string it was selected with.
//
// The CPU side of a shader is immutable apart from the invalid flag. Backends compile
// GPU programs lazily on first use and key them by ID.
type Shader interface {
	// ID returns the dense shader identifier, starting at 1. IDs are the shader sort key.
	//
	// Returns:
	//   - int: the shader ID
	ID() int

	// Signature returns the variant signature. Lit variants end in the light descriptor.
	//
	// Returns:
	//   - string: the signature
	Signature() string

	// Source returns the shader text and metadata.
	//
	// Returns:
	//   - Source: the source
	Source() Source

	// MatrixCalc returns the compiled matrix program, or nil to use the default outputs.
	//
	// Returns:
	//   - matrix_calc.MatrixCalc: the program or nil
	MatrixCalc() matrix_calc.MatrixCalc

	// OutputMatrixCount returns how many matrices each draw writes into the transform block.
	//
	// Parameters:
	//   - multiview: true when both eyes render in one pass
	//
	// Returns:
	//   - int: the matrix count
	OutputMatrixCount(multiview bool) int

	// UsesMatrixUniforms reports whether matrices are delivered as loose uniforms.
	//
	// Returns:
	//   - bool: true for loose uniforms
	UsesMatrixUniforms() bool

	// UsesLights reports whether the shader reads light uniforms.
	//
	// Returns:
	//   - bool: true if lit
	UsesLights() bool

	// IsValid reports whether the shader can be drawn with. Shaders become invalid when
	// their GPU program fails to compile or their matrix program fails to evaluate.
	//
	// Returns:
	//   - bool: true if usable
	IsValid() bool

	// Invalidate marks the shader unusable.
	Invalidate()
}

var _ Shader = &shader{}

func (s *shader) ID() int {
	return s.id
}

func (s *shader) Signature() string {
	return s.signature
}

func (s *shader) Source() Source {
	return s.source
}

func (s *shader) MatrixCalc() matrix_calc.MatrixCalc {
	return s.matrixCalc
}

func (s *shader) OutputMatrixCount(multiview bool) int {
	if s.matrixCalc != nil {
		return s.matrixCalc.NumOutputs()
	}
	if multiview {
		return 2
	}
	return 1
}

func (s *shader) UsesMatrixUniforms() bool {
	return s.source.UsesMatrixUniforms
}

func (s *shader) UsesLights() bool {
	return s.source.UsesLights
}

func (s *shader) IsValid() bool {
	return !s.invalid.Load()
}

func (s *shader) Invalidate() {
	s.invalid.Store(true)
}
