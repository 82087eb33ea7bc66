package material

import "errors"

// ErrTexturesNotReady is returned when a material references a texture whose pixels
// have not arrived or been uploaded yet. The draw is skipped for the frame.
var ErrTexturesNotReady = errors.New("material: textures not ready")
