package lexer

import "github.com/ink-lang/ink/internal/token"

// lexContent scans a single token under the narrative content grammar.
// Plain text accumulates into a single STRING token; bytes that introduce
// logic or structure (braces, tilde, diverts, choice markers, pipes used as
// sequence separators, glue) are emitted as their own punctuation tokens so
// the parser can recognize them without re-lexing. Whitespace runs are
// folded into a single WHITESPACE token (never discarded, since leading
// spaces are significant content in Ink), except at a line start, where
// indentation is insignificant and is skipped.
func (l *Lexer) lexContent() token.Token {
	if l.atLineStart {
		for l.peek() == ' ' || l.peek() == '\t' {
			l.advance()
		}
		l.atLineStart = false
	}

	start := l.pos
	c := l.peek()

	switch {
	case c == 0:
		return token.Token{Kind: token.EOF, Start: start, End: start}

	case c == '\r':
		l.advance()
		return l.lexContent()

	case c == '\n':
		l.advance()
		l.atLineStart = true
		return token.Token{Kind: token.NEWLINE, Start: start, End: l.pos}

	case c == ' ' || c == '\t':
		for l.peek() == ' ' || l.peek() == '\t' {
			l.advance()
		}
		return token.Token{Kind: token.WHITESPACE, Start: start, End: l.pos}

	case c == '/' && l.peek2() == '/':
		l.skipLineComment()
		return l.lexContent()

	case c == '/' && l.peek2() == '*':
		l.advance()
		l.advance()
		if !l.skipBlockComment() {
			return l.errTok(start)
		}
		return l.lexContent()

	case c == '{':
		l.advance()
		return token.Token{Kind: token.LBRACE, Start: start, End: l.pos}
	case c == '}':
		l.advance()
		return token.Token{Kind: token.RBRACE, Start: start, End: l.pos}
	case c == '|':
		l.advance()
		return token.Token{Kind: token.PIPE, Start: start, End: l.pos}

	case c == '~':
		l.advance()
		return token.Token{Kind: token.TILDE, Start: start, End: l.pos}

	case c == '*':
		l.advance()
		return token.Token{Kind: token.STAR, Start: start, End: l.pos}
	case c == '+':
		l.advance()
		return token.Token{Kind: token.PLUS, Start: start, End: l.pos}
	case c == '-' && l.peek2() == '>':
		l.advance()
		l.advance()
		return token.Token{Kind: token.RARROW, Start: start, End: l.pos}
	case c == '<' && l.peek2() == '-':
		l.advance()
		l.advance()
		return token.Token{Kind: token.LARROW, Start: start, End: l.pos}
	case c == '<' && l.peek2() == '>':
		l.advance()
		l.advance()
		return token.Token{Kind: token.GLUE, Start: start, End: l.pos}
	case c == '-':
		l.advance()
		return token.Token{Kind: token.MINUS, Start: start, End: l.pos}
	case c == '=':
		l.advance()
		for l.peek() == '=' {
			l.advance()
		}
		return token.Token{Kind: token.EQ, Start: start, End: l.pos}
	case c == ':':
		l.advance()
		return token.Token{Kind: token.COLON, Start: start, End: l.pos}
	case c == '[':
		l.advance()
		return token.Token{Kind: token.LBRACKET, Start: start, End: l.pos}
	case c == ']':
		l.advance()
		return token.Token{Kind: token.RBRACKET, Start: start, End: l.pos}
	case c == '#':
		l.advance()
		return token.Token{Kind: token.POUND, Start: start, End: l.pos}
	}

	return l.lexContentText(start)
}

// lexContentText consumes plain narrative text up to (but not including)
// the next byte that lexContent's own dispatch claims: end of line, EOF, or
// any byte that introduces logic/structure.
func (l *Lexer) lexContentText(start int) token.Token {
	for {
		c := l.peek()
		switch c {
		case 0, '\n', '\r', '{', '}', '|', '~', '#', '*', '+', ':', '[', ']', '=':
			return token.Token{Kind: token.STRING, Start: start, End: l.pos}
		case '-':
			if l.peek2() == '>' {
				return token.Token{Kind: token.STRING, Start: start, End: l.pos}
			}
			l.advance()
		case '<':
			if l.peek2() == '-' || l.peek2() == '>' {
				return token.Token{Kind: token.STRING, Start: start, End: l.pos}
			}
			l.advance()
		default:
			l.advance()
		}
	}
}
