package shader

import "errors"

var (
	// ErrShaderNotReady is returned when a shader variant is missing, has no generator
	// to produce it, or failed to compile.
	ErrShaderNotReady = errors.New("shader: shader not ready")

	// ErrExpressionCompile is returned when a shader's matrix expression does not compile.
	ErrExpressionCompile = errors.New("shader: matrix expression does not compile")
)
