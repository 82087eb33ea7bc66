package texture

import "github.com/Carmen-Shannon/oxy-sg/common"

// TextureBuilderOption is a function that configures a Texture during construction.
type TextureBuilderOption func(*texture)

// WithName sets the debug name of the texture.
//
// Parameters:
//   - name: the texture name
//
// Returns:
//   - TextureBuilderOption: a function that applies the name option
func WithName(name string) TextureBuilderOption {
	return func(t *texture) {
		t.name = name
	}
}

// WithPixels stages the initial pixel data of the texture.
//
// Parameters:
//   - data: RGBA pixels with their dimensions
//
// Returns:
//   - TextureBuilderOption: a function that applies the pixel option
func WithPixels(data *common.TextureStagingData) TextureBuilderOption {
	return func(t *texture) {
		t.staging = data
		if data != nil {
			t.width, t.height = data.Width, data.Height
		}
	}
}

// WithSize sets the dimensions of a texture whose pixels arrive later.
//
// Parameters:
//   - width: width in pixels
//   - height: height in pixels
//
// Returns:
//   - TextureBuilderOption: a function that applies the size option
func WithSize(width, height uint32) TextureBuilderOption {
	return func(t *texture) {
		t.width, t.height = width, height
	}
}
