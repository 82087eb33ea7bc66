package texture

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sg/common"
)

// texture is the implementation of the Texture interface.
type texture struct {
	mu       *sync.Mutex
	id       uint64
	name     string
	width    uint32
	height   uint32
	staging  *common.TextureStagingData
	uploaded bool
}

// Texture is a 2D RGBA image referenced by materials.
//
// Pixel data arrives from an external decoder and may show up after the texture is
// created and attached to a material. A texture without pixels or an upload reports
// Ready() == false, and draws using it are skipped until it becomes ready.
type Texture interface {
	// ID returns the process-unique identifier backends use to key GPU resources.
	//
	// Returns:
	//   - uint64: the texture ID
	ID() uint64

	// Name returns the debug name of the texture.
	//
	// Returns:
	//   - string: the texture name
	Name() string

	// Size returns the texture dimensions in pixels.
	//
	// Returns:
	//   - uint32: width
	//   - uint32: height
	Size() (uint32, uint32)

	// SetPixels stages RGBA pixel data for upload and clears the uploaded flag.
	//
	// Parameters:
	//   - data: the staged pixel data
	SetPixels(data *common.TextureStagingData)

	// TakeStaging returns and clears the staged pixel data, or nil when nothing is pending.
	// Backends call this when they upload the texture.
	//
	// Returns:
	//   - *common.TextureStagingData: the staged pixels or nil
	TakeStaging() *common.TextureStagingData

	// MarkUploaded records that a backend holds a current GPU copy of the texture.
	MarkUploaded()

	// Ready reports whether the texture can be sampled by a draw, which is the case once
	// pixels are staged or uploaded.
	//
	// Returns:
	//   - bool: true if the texture is usable
	Ready() bool
}

var _ Texture = &texture{}

// NewTexture creates a texture with the given options applied.
//
// Parameters:
//   - opts: variadic list of TextureBuilderOption functions
//
// Returns:
//   - Texture: the new texture
func NewTexture(opts ...TextureBuilderOption) Texture {
	t := &texture{
		mu: &sync.Mutex{},
		id: common.NextID(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *texture) ID() uint64 {
	return t.id
}

func (t *texture) Name() string {
	return t.name
}

func (t *texture) Size() (uint32, uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height
}

func (t *texture) SetPixels(data *common.TextureStagingData) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staging = data
	t.uploaded = false
	if data != nil {
		t.width, t.height = data.Width, data.Height
	}
}

func (t *texture) TakeStaging() *common.TextureStagingData {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.staging
	t.staging = nil
	return s
}

func (t *texture) MarkUploaded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.uploaded = true
}

func (t *texture) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.uploaded || t.staging != nil
}
