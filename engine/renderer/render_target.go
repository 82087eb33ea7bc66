package renderer

import (
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
)

// RenderTarget pairs a drawing destination with the sorter that fills it. Each
// target owns its own sorter so the frames of several cameras and lights never share
// a merge tree.
type RenderTarget struct {
	// Texture is the destination, nil for the external framebuffer.
	Texture texture.RenderTexture

	// Sorter renders the target's scene items.
	Sorter sorter.Sorter

	// Shadow marks shadow-map targets, whose color attachment may be invalidated.
	Shadow bool

	fence Fence
}

// Size returns the pixel size of the target, falling back to the external
// framebuffer size for nil textures.
//
// Parameters:
//   - width: external framebuffer width
//   - height: external framebuffer height
//
// Returns:
//   - int: the width
//   - int: the height
func (t *RenderTarget) Size(width, height int) (int, int) {
	if t.Texture == nil {
		return width, height
	}
	w, h := t.Texture.Size()
	return int(w), int(h)
}

// ID returns the texture ID of the target, 0 for the external framebuffer.
//
// Returns:
//   - uint64: the identifier
func (t *RenderTarget) ID() uint64 {
	if t.Texture == nil {
		return 0
	}
	return t.Texture.ID()
}
