package material

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-sg/common"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
)

// material is the implementation of the Material interface.
type material struct {
	mu          *sync.Mutex
	id          uint64
	name        string
	baseColor   [4]float32
	metallic    float32
	roughness   float32
	transparent bool
	textures    map[string]texture.Texture
	floats      map[string]float32
	dirty       bool
}

// Material defines the interface for a render material: surface parameters and the
// named textures a shader samples.
//
// Materials are authored outside the renderer and may be edited from other threads,
// so accessors are synchronized. Adding or removing a texture slot changes which
// shader variant a pass needs and sets the dirty flag; passes observe it during
// validation and reselect their shader.
type Material interface {
	// ID returns the process-unique material identity used as a sort key.
	// IDs increase with creation order.
	//
	// Returns:
	//   - uint64: the material ID
	ID() uint64

	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the albedo/diffuse RGBA color of the material.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// Metallic retrieves the metallic factor of the material.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Transparent reports whether the material needs blending. Passes using a transparent
	// material in the Geometry render order are moved to the Transparent order.
	//
	// Returns:
	//   - bool: true if the material is transparent
	Transparent() bool

	// SetTransparent marks the material as transparent or opaque.
	//
	// Parameters:
	//   - transparent: true for blended materials
	SetTransparent(transparent bool)

	// SetBaseColor sets the albedo/diffuse color.
	//
	// Parameters:
	//   - color: RGBA color
	SetBaseColor(color [4]float32)

	// SetFloat sets a named scalar shader parameter.
	//
	// Parameters:
	//   - name: the uniform name
	//   - value: the value
	SetFloat(name string, value float32)

	// Float returns a named scalar parameter.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - float32: the value
	//   - bool: false if the parameter is not set
	Float(name string) (float32, bool)

	// FloatNames returns the sorted names of the scalar parameters.
	//
	// Returns:
	//   - []string: the parameter names
	FloatNames() []string

	// SetTexture binds a texture to a named sampler slot. A nil texture removes the slot.
	//
	// Parameters:
	//   - name: the sampler name, e.g. "u_texture"
	//   - tex: the texture to bind, or nil
	SetTexture(name string, tex texture.Texture)

	// Texture returns the texture in a named slot or nil.
	//
	// Parameters:
	//   - name: the sampler name
	//
	// Returns:
	//   - texture.Texture: the bound texture or nil
	Texture(name string) texture.Texture

	// TextureNames returns the sorted sampler names; texture units are assigned in this order.
	//
	// Returns:
	//   - []string: the sampler names
	TextureNames() []string

	// CheckTextures verifies every bound texture is ready to sample.
	//
	// Returns:
	//   - error: ErrTexturesNotReady naming the first texture that is not ready
	CheckTextures() error

	// IsDirty reports whether a change invalidated the shader variants using this material.
	//
	// Returns:
	//   - bool: true if dirty
	IsDirty() bool

	// ClearDirty resets the dirty flag once dependent passes have been marked.
	ClearDirty()
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		mu:        &sync.Mutex{},
		id:        common.NextID(),
		baseColor: [4]float32{1, 1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
		textures:  make(map[string]texture.Texture),
		floats:    make(map[string]float32),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) ID() uint64 {
	return m.id
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseColor
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) Transparent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transparent
}

func (m *material) SetTransparent(transparent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transparent = transparent
}

func (m *material) SetBaseColor(color [4]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseColor = color
}

func (m *material) SetFloat(name string, value float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.floats[name] = value
}

func (m *material) Float(name string) (float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.floats[name]
	return v, ok
}

func (m *material) FloatNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.floats)
}

func (m *material) SetTexture(name string, tex texture.Texture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, had := m.textures[name]
	if tex == nil {
		delete(m.textures, name)
	} else {
		m.textures[name] = tex
	}
	if had != (tex != nil) {
		m.dirty = true
	}
}

func (m *material) Texture(name string) texture.Texture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textures[name]
}

func (m *material) TextureNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.textures)
}

func (m *material) CheckTextures() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range sortedKeys(m.textures) {
		if !m.textures[name].Ready() {
			return fmt.Errorf("%w: %s.%s", ErrTexturesNotReady, m.name, name)
		}
	}
	return nil
}

func (m *material) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

func (m *material) ClearDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = false
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
