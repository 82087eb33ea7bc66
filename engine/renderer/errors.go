package renderer

import "errors"

var (
	// ErrFenceTimeout is returned when a render target's previous submission did not
	// complete within the fence timeout. The frame is dropped.
	ErrFenceTimeout = errors.New("renderer: fence wait timed out")

	// ErrUnsupportedBackend is returned by NewRenderer for an unknown backend type or
	// a backend missing its device.
	ErrUnsupportedBackend = errors.New("renderer: unsupported backend")

	// ErrNoTarget is returned when a pass is issued with no render target bound.
	ErrNoTarget = errors.New("renderer: no render target bound")
)
