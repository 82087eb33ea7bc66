package uniform_block

import "errors"

var (
	// ErrBadDescriptor is returned when a uniform block descriptor cannot be parsed.
	ErrBadDescriptor = errors.New("uniform_block: bad descriptor")

	// ErrUnknownUniform is returned when a uniform name or array index is not part of the block.
	ErrUnknownUniform = errors.New("uniform_block: unknown uniform")

	// ErrTypeMismatch is returned when a uniform is written with the wrong type.
	ErrTypeMismatch = errors.New("uniform_block: type mismatch")
)
