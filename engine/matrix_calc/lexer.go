package matrix_calc

import (
	"fmt"
	"unicode"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokMul
	tokAdd
	tokSub
	tokTranspose
	tokInvert
	tokLParen
	tokRParen
	tokAssign
	tokSeparator
)

func (t tokenType) String() string {
	switch t {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokMul:
		return "'*'"
	case tokAdd:
		return "'+'"
	case tokSub:
		return "'-'"
	case tokTranspose:
		return "'^'"
	case tokInvert:
		return "'~'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokAssign:
		return "'='"
	default:
		return "separator"
	}
}

type token struct {
	typ  tokenType
	text string
	pos  int
}

// lexer splits an expression string into tokens. The first error encountered
// is kept and every later call to next returns tokEOF.
type lexer struct {
	input []rune
	pos   int
	err   error
}

func newLexer(input string) *lexer {
	return &lexer{input: []rune(input)}
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *lexer) next() token {
	if l.err != nil {
		return token{typ: tokEOF, pos: l.pos}
	}
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.input) {
		return token{typ: tokEOF, pos: start}
	}

	r := l.input[l.pos]
	l.pos++
	switch r {
	case '*':
		return token{typ: tokMul, text: "*", pos: start}
	case '+':
		return token{typ: tokAdd, text: "+", pos: start}
	case '-':
		return token{typ: tokSub, text: "-", pos: start}
	case '^':
		return token{typ: tokTranspose, text: "^", pos: start}
	case '~':
		return token{typ: tokInvert, text: "~", pos: start}
	case '(':
		return token{typ: tokLParen, text: "(", pos: start}
	case ')':
		return token{typ: tokRParen, text: ")", pos: start}
	case '=':
		return token{typ: tokAssign, text: "=", pos: start}
	case ';', ',':
		return token{typ: tokSeparator, text: string(r), pos: start}
	}

	if unicode.IsLetter(r) || r == '_' {
		for {
			c := l.peekRune()
			if c == 0 || !(unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_') {
				break
			}
			l.pos++
		}
		return token{typ: tokIdent, text: string(l.input[start:l.pos]), pos: start}
	}

	l.err = fmt.Errorf("%w: unexpected character %q at offset %d", ErrMalformedExpression, r, start)
	return token{typ: tokEOF, pos: start}
}
