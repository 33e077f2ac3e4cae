// Package lexer implements the staged, on-demand scanner for Ink source.
// Lexing uses a state-machine dispatch style (one function per lexical
// state, à la Rob Pike's "Lexical Scanning in Go") but is fully synchronous
// and supports arbitrary rewind, so the parser can backtrack over
// speculatively-parsed constructs.
package lexer

import (
	"github.com/ink-lang/ink/internal/source"
	"github.com/ink-lang/ink/internal/token"
)

// Mode selects which lexical grammar governs the next token: narrative
// content text, or a full expression.
type Mode int

const (
	// Content is the default top-level mode: runs of text accumulate into
	// STRING tokens, punctuation that introduces logic (braces, tilde,
	// diverts) is still recognized so the parser can switch modes.
	Content Mode = iota
	// Expression is the mode used inside braces, parens, and after '~':
	// the full operator/identifier grammar is active.
	Expression
)

func (m Mode) String() string {
	if m == Content {
		return "CONTENT"
	}
	return "EXPRESSION"
}

// Lexer produces Tokens on demand from an immutable source.Buffer. It owns
// a small mode stack so the parser can push Expression while inside braces
// and pop back to whatever enclosing mode it came from.
type Lexer struct {
	src   *source.Buffer
	pos   int // current read offset
	modes []Mode

	// atLineStart is true when the next byte begins a new source line;
	// used to fold whitespace in content mode at line starts.
	atLineStart bool

	maxModeDepth int
}

// New returns a Lexer positioned at the start of src, beginning in Content
// mode. maxModeDepth bounds the mode stack (spec.md 4.1: "fixed maximum
// depth"); if <= 0, a default of 64 is used.
func New(src *source.Buffer, maxModeDepth int) *Lexer {
	if maxModeDepth <= 0 {
		maxModeDepth = 64
	}
	return &Lexer{
		src:          src,
		modes:        []Mode{Content},
		atLineStart:  true,
		maxModeDepth: maxModeDepth,
	}
}

// Current returns the mode at the top of the mode stack.
func (l *Lexer) Current() Mode {
	return l.modes[len(l.modes)-1]
}

// Push enters a new mode. It reports false without changing state if the
// mode stack is already at its maximum depth.
func (l *Lexer) Push(m Mode) bool {
	if len(l.modes) >= l.maxModeDepth {
		return false
	}
	l.modes = append(l.modes, m)
	return true
}

// Pop leaves the current mode, returning to whatever was active before.
// The outermost Content mode is never popped.
func (l *Lexer) Pop() {
	if len(l.modes) > 1 {
		l.modes = l.modes[:len(l.modes)-1]
	}
}

// Mark returns an opaque cursor that Reset can later rewind to.
func (l *Lexer) Mark() int {
	return l.pos
}

// Reset rewinds the read cursor to a position previously returned by
// Mark. It does not restore the mode stack; callers that push a mode before
// speculative parsing are responsible for popping it back off on failure.
func (l *Lexer) Reset(mark int) {
	l.pos = mark
}

// Pos returns the current read offset.
func (l *Lexer) Pos() int {
	return l.pos
}

func (l *Lexer) byteAt(i int) byte {
	return l.src.At(i)
}

func (l *Lexer) peek() byte {
	return l.byteAt(l.pos)
}

func (l *Lexer) peek2() byte {
	return l.byteAt(l.pos + 1)
}

func (l *Lexer) advance() byte {
	c := l.byteAt(l.pos)
	if l.pos < l.src.Len() {
		l.pos++
	}
	return c
}

// match consumes the next byte and reports true if it equals c.
func (l *Lexer) match(c byte) bool {
	if l.peek() == c {
		l.advance()
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isAlphaNum(c byte) bool { return isAlpha(c) || isDigit(c) }

// Next produces the next token given the lexer's current mode.
func (l *Lexer) Next() token.Token {
	if l.Current() == Expression {
		return l.lexExpression()
	}
	return l.lexContent()
}

func (l *Lexer) errTok(start int) token.Token {
	return token.Token{Kind: token.ERROR, Start: start, End: l.pos}
}

// lexTwoChar recognizes the shared set of two-character operators that are
// valid in both modes, returning (kind, ok).
func (l *Lexer) lexTwoChar(start int) (token.Token, bool) {
	c := l.byteAt(start)
	switch c {
	case '=':
		if l.peek() == '=' {
			l.advance()
			return token.Token{Kind: token.EQ, Start: start, End: l.pos}, true
		}
		return token.Token{Kind: token.ASSIGN, Start: start, End: l.pos}, true
	case '!':
		if l.peek() == '=' {
			l.advance()
			return token.Token{Kind: token.NEQ, Start: start, End: l.pos}, true
		}
		return token.Token{}, false
	case '<':
		switch l.peek() {
		case '=':
			l.advance()
			return token.Token{Kind: token.LTE, Start: start, End: l.pos}, true
		case '>':
			l.advance()
			return token.Token{Kind: token.GLUE, Start: start, End: l.pos}, true
		case '-':
			l.advance()
			return token.Token{Kind: token.LARROW, Start: start, End: l.pos}, true
		default:
			return token.Token{Kind: token.LT, Start: start, End: l.pos}, true
		}
	case '>':
		if l.peek() == '=' {
			l.advance()
			return token.Token{Kind: token.GTE, Start: start, End: l.pos}, true
		}
		return token.Token{Kind: token.GT, Start: start, End: l.pos}, true
	case '-':
		if l.peek() == '>' {
			l.advance()
			return token.Token{Kind: token.RARROW, Start: start, End: l.pos}, true
		}
		return token.Token{Kind: token.MINUS, Start: start, End: l.pos}, true
	}
	return token.Token{}, false
}

func (l *Lexer) skipLineComment() {
	for l.peek() != '\n' && l.peek() != 0 {
		l.advance()
	}
}

// skipBlockComment consumes up to and including "*/". It leaves the lexer
// positioned just past the terminator, or at EOF if unterminated.
func (l *Lexer) skipBlockComment() bool {
	for {
		c := l.peek()
		if c == 0 {
			return false
		}
		if c == '*' && l.peek2() == '/' {
			l.advance()
			l.advance()
			return true
		}
		l.advance()
	}
}

func (l *Lexer) lexNumber(start int) token.Token {
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peek2()) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	return token.Token{Kind: token.NUMBER, Start: start, End: l.pos}
}

func (l *Lexer) lexIdent(start int) token.Token {
	for isAlphaNum(l.peek()) {
		l.advance()
	}
	lexeme := l.src.String(start, l.pos)
	if kind, ok := token.Reserved[lexeme]; ok {
		return token.Token{Kind: kind, Start: start, End: l.pos}
	}
	return token.Token{Kind: token.IDENT, Start: start, End: l.pos}
}
