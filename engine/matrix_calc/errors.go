package matrix_calc

import "errors"

var (
	// ErrMalformedExpression is returned when an expression has unbalanced
	// parentheses, an unknown operand name or a misplaced operator.
	ErrMalformedExpression = errors.New("matrix_calc: malformed expression")

	// ErrEval is returned when a statement reads an output slot that has not
	// been written by an earlier statement.
	ErrEval = errors.New("matrix_calc: evaluation error")
)
