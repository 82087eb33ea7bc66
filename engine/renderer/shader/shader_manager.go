package shader

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash"

	"github.com/Carmen-Shannon/oxy-sg/engine/log"
	"github.com/Carmen-Shannon/oxy-sg/engine/matrix_calc"
)

const (
	// ErrorShaderSignature names the shader substituted for variants that are not ready.
	ErrorShaderSignature = "ErrorShader"

	// DepthShaderSignature names the shadow-map depth shader.
	DepthShaderSignature = "DepthShader"

	// MultiviewSuffix is appended to the template of multiview variants.
	MultiviewSuffix = "#multiview"
)

// Generator produces the source of a shader variant that is not cached yet. It is the
// hook to the external shader-text collaborator.
//
// Parameters:
//   - template: the shader family name
//   - signature: the full variant signature
//   - useLights: true if the variant is lit
//   - multiview: true for a multiview variant
//
// Returns:
//   - Source: the generated source
//   - error: any generation error
type Generator func(template, signature string, useLights, multiview bool) (Source, error)

// manager is the implementation of the Manager interface.
type manager struct {
	mu          *sync.RWMutex
	byID        []Shader
	bySignature map[uint64][]Shader
	generator   Generator
	logger      log.Logger
}

// Manager is the shader registry: it assigns IDs, caches variants by signature and
// selects the variant a render pass needs.
//
// All selection happens on the render thread, but shaders may be registered from a
// loading thread, so the registry is synchronized.
type Manager interface {
	// AddShader registers a shader under a signature, compiling its matrix program.
	// Registering an existing signature returns the cached shader.
	//
	// Parameters:
	//   - signature: the variant signature
	//   - src: the shader source
	//
	// Returns:
	//   - Shader: the registered shader
	//   - error: ErrExpressionCompile if the matrix program is malformed
	AddShader(signature string, src Source) (Shader, error)

	// FindShader looks a shader up by signature.
	//
	// Parameters:
	//   - signature: the variant signature
	//
	// Returns:
	//   - Shader: the shader or nil
	FindShader(signature string) Shader

	// GetShader looks a shader up by ID.
	//
	// Parameters:
	//   - id: the shader ID
	//
	// Returns:
	//   - Shader: the shader or nil
	GetShader(id int) Shader

	// SelectShader returns the variant for a template, generating and registering it
	// on a cache miss.
	//
	// Parameters:
	//   - template: the shader family name
	//   - useLights: true for a lit variant
	//   - lightDescriptor: the current light descriptor
	//   - multiview: true for a multiview variant
	//
	// Returns:
	//   - Shader: the variant
	//   - error: ErrShaderNotReady when the variant is missing and cannot be generated
	SelectShader(template string, useLights bool, lightDescriptor string, multiview bool) (Shader, error)

	// ErrorShader returns the shader drawn in place of variants that are not ready,
	// or nil before a backend registered one.
	//
	// Returns:
	//   - Shader: the error shader or nil
	ErrorShader() Shader

	// DepthShader returns the shadow-map depth shader.
	//
	// Parameters:
	//   - multiview: true for the multiview variant
	//
	// Returns:
	//   - Shader: the depth shader or nil
	DepthShader(multiview bool) Shader

	// SetGenerator installs the variant generator.
	//
	// Parameters:
	//   - g: the generator, nil to disable generation
	SetGenerator(g Generator)

	// Shaders returns every registered shader ordered by ID.
	//
	// Returns:
	//   - []Shader: the shaders
	Shaders() []Shader
}

var _ Manager = &manager{}

// NewManager creates an empty shader registry.
//
// Parameters:
//   - generator: the variant generator, may be nil
//
// Returns:
//   - Manager: the registry
func NewManager(generator Generator) Manager {
	return &manager{
		mu:          &sync.RWMutex{},
		bySignature: make(map[uint64][]Shader),
		generator:   generator,
		logger:      log.New("shader"),
	}
}

// Signature builds the signature of a shader variant. The light descriptor is the
// tail of lit signatures so a light change is detectable by comparing suffixes.
//
// Parameters:
//   - template: the shader family name
//   - useLights: true for a lit variant
//   - lightDescriptor: the current light descriptor
//   - multiview: true for a multiview variant
//
// Returns:
//   - string: the signature
func Signature(template string, useLights bool, lightDescriptor string, multiview bool) string {
	sig := template
	if multiview {
		sig += MultiviewSuffix
	}
	if useLights {
		sig += lightDescriptor
	}
	return sig
}

func (m *manager) AddShader(signature string, src Source) (Shader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.findLocked(signature); s != nil {
		return s, nil
	}

	s := &shader{
		id:        len(m.byID) + 1,
		signature: signature,
		source:    src,
	}
	var compileErr error
	if src.MatrixCalc != "" {
		mc, err := matrix_calc.NewMatrixCalc(src.MatrixCalc)
		if err != nil {
			compileErr = fmt.Errorf("%w: %s: %w", ErrExpressionCompile, signature, err)
			m.logger.Warningf("%v", compileErr)
			s.Invalidate()
		}
		s.matrixCalc = mc
	}

	m.byID = append(m.byID, s)
	key := xxhash.Sum64String(signature)
	m.bySignature[key] = append(m.bySignature[key], s)
	m.logger.Debugf("registered shader %d %q", s.id, signature)
	return s, compileErr
}

func (m *manager) FindShader(signature string) Shader {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(signature)
}

func (m *manager) findLocked(signature string) Shader {
	for _, s := range m.bySignature[xxhash.Sum64String(signature)] {
		if s.Signature() == signature {
			return s
		}
	}
	return nil
}

func (m *manager) GetShader(id int) Shader {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 1 || id > len(m.byID) {
		return nil
	}
	return m.byID[id-1]
}

func (m *manager) SelectShader(template string, useLights bool, lightDescriptor string, multiview bool) (Shader, error) {
	sig := Signature(template, useLights, lightDescriptor, multiview)
	if s := m.FindShader(sig); s != nil {
		if !s.IsValid() {
			return s, fmt.Errorf("%w: %s is invalid", ErrShaderNotReady, sig)
		}
		return s, nil
	}

	m.mu.RLock()
	gen := m.generator
	m.mu.RUnlock()
	if gen == nil {
		return nil, fmt.Errorf("%w: no variant %q and no generator", ErrShaderNotReady, sig)
	}

	src, err := gen(template, sig, useLights, multiview)
	if err != nil {
		return nil, fmt.Errorf("%w: generating %q: %w", ErrShaderNotReady, sig, err)
	}
	s, err := m.AddShader(sig, src)
	if err != nil {
		return s, fmt.Errorf("%w: %w", ErrShaderNotReady, err)
	}
	return s, nil
}

func (m *manager) ErrorShader() Shader {
	return m.FindShader(ErrorShaderSignature)
}

func (m *manager) DepthShader(multiview bool) Shader {
	return m.FindShader(Signature(DepthShaderSignature, false, "", multiview))
}

func (m *manager) SetGenerator(g Generator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generator = g
}

func (m *manager) Shaders() []Shader {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Shader, len(m.byID))
	copy(out, m.byID)
	return out
}
