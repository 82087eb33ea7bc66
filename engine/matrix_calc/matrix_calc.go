// Package matrix_calc compiles the small matrix expression language shaders use to
// derive their per-draw matrices from the camera and model transforms.
//
// A program is a list of statements separated by ';' or ','. Each statement is
// either "outputN = expr" or a bare expression, which is written to the output slot
// matching its statement index. Operators by precedence, highest first:
//
//	~ ^     inverse and transpose, accepted before or after their operand
//	*       matrix multiply
//	+ -     component-wise add and subtract
package matrix_calc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Input names one of the fixed matrices supplied by the renderer for every draw.
type Input int

const (
	LeftViewProj Input = iota
	RightViewProj
	Projection
	LeftView
	RightView
	InverseLeftView
	InverseRightView
	Model
	LeftMVP
	RightMVP

	// NumInputs is the size of the input table.
	NumInputs
)

// MaxOutputs is the number of output slots (output0 .. output9).
const MaxOutputs = 10

var inputNames = [NumInputs]string{
	"left_view_proj", "right_view_proj",
	"projection",
	"left_view", "right_view",
	"inverse_left_view", "inverse_right_view",
	"model",
	"left_mvp", "right_mvp",
}

// String returns the operand name of the input.
func (i Input) String() string {
	if i < 0 || i >= NumInputs {
		return "input(" + strconv.Itoa(int(i)) + ")"
	}
	return inputNames[i]
}

// Inputs is the caller-provided table of input matrices indexed by Input.
type Inputs [NumInputs]mgl32.Mat4

// Outputs receives the results of Calculate.
type Outputs [MaxOutputs]mgl32.Mat4

type nodeType int

const (
	nodeInput nodeType = iota
	nodeOutput
	nodeAdd
	nodeSubtract
	nodeMultiply
	nodeTranspose
	nodeInvert
)

type exprNode struct {
	typ      nodeType
	slot     int
	operands [2]*exprNode
}

type statement struct {
	target int
	root   *exprNode
}

// MatrixCalc is a compiled matrix expression program.
//
// Compiled programs are immutable and may be shared between shaders; Calculate
// keeps no state between calls.
type MatrixCalc interface {
	// Expression returns the source text the program was compiled from.
	//
	// Returns:
	//   - string: the expression source
	Expression() string

	// NumOutputs returns the number of output slots the program writes, which is
	// one past the highest written slot.
	//
	// Returns:
	//   - int: the number of leading output slots a caller must upload
	NumOutputs() int

	// Calculate evaluates every statement in order against the inputs and writes
	// the results into the output table.
	//
	// Parameters:
	//   - in: the input matrix table
	//   - out: the output matrix table
	//
	// Returns:
	//   - error: ErrEval if a statement reads an output not yet written during this call
	Calculate(in *Inputs, out *Outputs) error
}

type matrixCalc struct {
	source     string
	statements []statement
	numOutputs int
}

var _ MatrixCalc = &matrixCalc{}

// NewMatrixCalc compiles an expression program.
//
// Parameters:
//   - expression: the program source
//
// Returns:
//   - MatrixCalc: the compiled program
//   - error: ErrMalformedExpression wrapped with position information on a syntax error
func NewMatrixCalc(expression string) (MatrixCalc, error) {
	p := &parser{lex: newLexer(expression)}
	p.advance()

	mc := &matrixCalc{source: expression}
	for p.tok.typ != tokEOF {
		if p.tok.typ == tokSeparator {
			p.advance()
			continue
		}
		stmt, err := p.parseStatement(len(mc.statements))
		if err != nil {
			return nil, err
		}
		mc.statements = append(mc.statements, stmt)
		if stmt.target+1 > mc.numOutputs {
			mc.numOutputs = stmt.target + 1
		}
		switch p.tok.typ {
		case tokSeparator, tokEOF:
		default:
			return nil, p.errorf("expected separator, got %s", p.tok.typ)
		}
	}
	if p.lex.err != nil {
		return nil, p.lex.err
	}
	if len(mc.statements) == 0 {
		return nil, fmt.Errorf("%w: empty program", ErrMalformedExpression)
	}
	return mc, nil
}

func (m *matrixCalc) Expression() string {
	return m.source
}

func (m *matrixCalc) NumOutputs() int {
	return m.numOutputs
}

func (m *matrixCalc) Calculate(in *Inputs, out *Outputs) error {
	var written uint16
	for i := range m.statements {
		s := &m.statements[i]
		result, err := eval(s.root, in, out, written)
		if err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
		out[s.target] = result
		written |= 1 << uint(s.target)
	}
	return nil
}

func eval(n *exprNode, in *Inputs, out *Outputs, written uint16) (mgl32.Mat4, error) {
	switch n.typ {
	case nodeInput:
		return in[n.slot], nil
	case nodeOutput:
		if written&(1<<uint(n.slot)) == 0 {
			return mgl32.Mat4{}, fmt.Errorf("%w: output%d read before it was written", ErrEval, n.slot)
		}
		return out[n.slot], nil
	}

	a, err := eval(n.operands[0], in, out, written)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	switch n.typ {
	case nodeInvert:
		return a.Inv(), nil
	case nodeTranspose:
		return a.Transpose(), nil
	}

	b, err := eval(n.operands[1], in, out, written)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	switch n.typ {
	case nodeAdd:
		return a.Add(b), nil
	case nodeSubtract:
		return a.Sub(b), nil
	default:
		return a.Mul4(b), nil
	}
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() {
	p.tok = p.lex.next()
}

func (p *parser) errorf(format string, args ...any) error {
	if p.lex.err != nil {
		return p.lex.err
	}
	return fmt.Errorf("%w: %s at offset %d", ErrMalformedExpression, fmt.Sprintf(format, args...), p.tok.pos)
}

// parseStatement parses "outputN = expr" or a bare expression targeting index.
func (p *parser) parseStatement(index int) (statement, error) {
	target := index
	if p.tok.typ == tokIdent {
		if slot, ok := outputSlot(p.tok.text); ok {
			save := *p.lex
			saveTok := p.tok
			p.advance()
			if p.tok.typ == tokAssign {
				p.advance()
				target = slot
			} else {
				*p.lex = save
				p.tok = saveTok
			}
		}
	}
	if target >= MaxOutputs {
		return statement{}, p.errorf("too many statements, only %d outputs available", MaxOutputs)
	}
	root, err := p.parseSum()
	if err != nil {
		return statement{}, err
	}
	return statement{target: target, root: root}, nil
}

func (p *parser) parseSum() (*exprNode, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.tok.typ == tokAdd || p.tok.typ == tokSub {
		typ := nodeAdd
		if p.tok.typ == tokSub {
			typ = nodeSubtract
		}
		p.advance()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = &exprNode{typ: typ, operands: [2]*exprNode{left, right}}
	}
	return left, nil
}

func (p *parser) parseProduct() (*exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.typ == tokMul {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &exprNode{typ: nodeMultiply, operands: [2]*exprNode{left, right}}
	}
	return left, nil
}

func (p *parser) parseUnary() (*exprNode, error) {
	var prefix []nodeType
	for p.tok.typ == tokInvert || p.tok.typ == tokTranspose {
		prefix = append(prefix, unaryType(p.tok.typ))
		p.advance()
	}
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.tok.typ == tokInvert || p.tok.typ == tokTranspose {
		n = &exprNode{typ: unaryType(p.tok.typ), operands: [2]*exprNode{n}}
		p.advance()
	}
	for i := len(prefix) - 1; i >= 0; i-- {
		n = &exprNode{typ: prefix[i], operands: [2]*exprNode{n}}
	}
	return n, nil
}

func (p *parser) parsePrimary() (*exprNode, error) {
	switch p.tok.typ {
	case tokLParen:
		p.advance()
		n, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.tok.typ != tokRParen {
			return nil, p.errorf("unbalanced parentheses")
		}
		p.advance()
		return n, nil
	case tokIdent:
		name := p.tok.text
		n, err := p.operand(name)
		if err != nil {
			return nil, err
		}
		p.advance()
		return n, nil
	case tokRParen:
		return nil, p.errorf("unbalanced parentheses")
	default:
		return nil, p.errorf("expected operand, got %s", p.tok.typ)
	}
}

func (p *parser) operand(name string) (*exprNode, error) {
	for i, in := range inputNames {
		if in == name {
			return &exprNode{typ: nodeInput, slot: i}, nil
		}
	}
	if slot, ok := outputSlot(name); ok {
		return &exprNode{typ: nodeOutput, slot: slot}, nil
	}
	return nil, p.errorf("unknown matrix %q", name)
}

func unaryType(t tokenType) nodeType {
	if t == tokInvert {
		return nodeInvert
	}
	return nodeTranspose
}

func outputSlot(name string) (int, bool) {
	suffix, ok := strings.CutPrefix(name, "output")
	if !ok || len(suffix) != 1 {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return n, true
}
