package light

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/engine/log"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
)

// Binder receives light uniforms and shadow textures for a shader. Backends
// implement it.
type Binder interface {
	// SetUniform sets a loose uniform on the shader. Values are float32, int32,
	// mgl32.Vec3, mgl32.Vec4 or mgl32.Mat4.
	SetUniform(s shader.Shader, name string, value any)

	// BindTexture binds tex to a texture unit and points the named sampler at it.
	BindTexture(s shader.Shader, name string, unit int, tex texture.Texture)
}

// BufferBinder is implemented by backends that take lights as one storage buffer
// instead of loose uniforms.
type BufferBinder interface {
	Binder

	// BindLightBuffer binds the output of MarshalLightBuffer to the shader.
	BindLightBuffer(s shader.Shader, data []byte)
}

// managerImpl is the implementation of the Manager interface.
type managerImpl struct {
	mu         sync.RWMutex
	lights     []Light
	ambient    mgl32.Vec3
	descriptor string
	logger     log.Logger
}

// Manager owns the scene's lights and the light descriptor that ends the signature
// of every lit shader variant.
//
// Lights may be added from an authoring thread; descriptor computation and binding
// run on the render thread.
type Manager interface {
	// AddLight appends a light. Descriptor order follows insertion order.
	//
	// Parameters:
	//   - l: the light
	AddLight(l Light)

	// RemoveLight removes a light.
	//
	// Parameters:
	//   - l: the light
	//
	// Returns:
	//   - bool: true if the light was present
	RemoveLight(l Light) bool

	// Lights returns a copy of the light list.
	//
	// Returns:
	//   - []Light: the lights in insertion order
	Lights() []Light

	// SetAmbient sets the ambient color.
	SetAmbient(c mgl32.Vec3)

	// Ambient returns the ambient color.
	Ambient() mgl32.Vec3

	// Descriptor returns the descriptor computed by the last UpdateLights.
	//
	// Returns:
	//   - string: e.g. "$DirectLight1$SpotLight2", empty without enabled lights
	Descriptor() string

	// UpdateLights recomputes the descriptor from the current lights.
	//
	// Returns:
	//   - bool: true if any light casts shadows
	UpdateLights() bool

	// ShadowCasters returns the enabled lights that cast shadows.
	//
	// Returns:
	//   - []Light: the shadow casters in insertion order
	ShadowCasters() []Light

	// BindLights uploads the light uniforms of a lit shader, then its shadow maps.
	//
	// Parameters:
	//   - b: the backend binder
	//   - s: the shader
	//   - texIndex: the first free texture unit
	//
	// Returns:
	//   - int: the next free texture unit
	BindLights(b Binder, s shader.Shader, texIndex int) int

	// BindShadowMap binds every shadow caster's depth texture and light matrix.
	//
	// Parameters:
	//   - b: the backend binder
	//   - s: the shader
	//   - texIndex: the first free texture unit
	//
	// Returns:
	//   - int: the next free texture unit
	BindShadowMap(b Binder, s shader.Shader, texIndex int) int
}

var _ Manager = &managerImpl{}

// NewManager creates an empty light manager.
//
// Returns:
//   - Manager: the manager
func NewManager() Manager {
	return &managerImpl{
		ambient: mgl32.Vec3{0.1, 0.1, 0.1},
		logger:  log.New("light"),
	}
}

func (m *managerImpl) AddLight(l Light) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lights = append(m.lights, l)
}

func (m *managerImpl) RemoveLight(l Light) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.lights {
		if cur == l {
			m.lights = append(m.lights[:i], m.lights[i+1:]...)
			return true
		}
	}
	return false
}

func (m *managerImpl) Lights() []Light {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Light, len(m.lights))
	copy(out, m.lights)
	return out
}

func (m *managerImpl) SetAmbient(c mgl32.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ambient = c
}

func (m *managerImpl) Ambient() mgl32.Vec3 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ambient
}

func (m *managerImpl) Descriptor() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.descriptor
}

func (m *managerImpl) UpdateLights() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sb strings.Builder
	shadows := false
	run, count := "", 0
	flush := func() {
		if count > 0 {
			fmt.Fprintf(&sb, "$%s%d", run, count)
		}
	}
	for _, l := range m.lights {
		if !l.Enabled() {
			continue
		}
		if l.CastsShadows() {
			shadows = true
		}
		class := l.Type().Class()
		if class != run {
			flush()
			run, count = class, 0
		}
		count++
	}
	flush()

	if desc := sb.String(); desc != m.descriptor {
		m.logger.Debugf("light descriptor %q -> %q", m.descriptor, desc)
		m.descriptor = desc
	}
	return shadows
}

func (m *managerImpl) ShadowCasters() []Light {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Light
	for _, l := range m.lights {
		if l.CastsShadows() {
			out = append(out, l)
		}
	}
	return out
}

func (m *managerImpl) BindLights(b Binder, s shader.Shader, texIndex int) int {
	if !s.UsesLights() {
		return texIndex
	}
	lights := m.Lights()

	if bb, ok := b.(BufferBinder); ok {
		bb.BindLightBuffer(s, MarshalLightBuffer(lights, m.Ambient()))
		return m.BindShadowMap(b, s, texIndex)
	}

	b.SetUniform(s, "u_ambient", m.Ambient())
	index := map[LightType]int{}
	for _, l := range lights {
		if !l.Enabled() {
			continue
		}
		prefix := fmt.Sprintf("u_%s[%d].", l.Type().Class(), index[l.Type()])
		index[l.Type()]++

		b.SetUniform(s, prefix+"color", l.Color())
		b.SetUniform(s, prefix+"intensity", l.Intensity())
		switch l.Type() {
		case LightTypeDirectional:
			b.SetUniform(s, prefix+"direction", l.Direction())
		case LightTypePoint:
			b.SetUniform(s, prefix+"position", l.Position())
			b.SetUniform(s, prefix+"range", l.Range())
		case LightTypeSpot:
			b.SetUniform(s, prefix+"position", l.Position())
			b.SetUniform(s, prefix+"direction", l.Direction())
			b.SetUniform(s, prefix+"range", l.Range())
			b.SetUniform(s, prefix+"inner_cone", l.InnerCone())
			b.SetUniform(s, prefix+"outer_cone", l.OuterCone())
		}
	}
	return m.BindShadowMap(b, s, texIndex)
}

func (m *managerImpl) BindShadowMap(b Binder, s shader.Shader, texIndex int) int {
	bound := 0
	for _, l := range m.ShadowCasters() {
		sm := l.ShadowMap()
		if sm == nil {
			continue
		}
		b.BindTexture(s, fmt.Sprintf("u_shadow_map[%d]", bound), texIndex, sm.Texture)
		b.SetUniform(s, fmt.Sprintf("u_shadow_matrix[%d]", bound), sm.ViewProj())
		texIndex++
		bound++
	}
	if bound > 0 {
		b.SetUniform(s, "u_shadow_bias", DefaultShadowBias)
	}
	return texIndex
}
