package parser

import (
	"github.com/ink-lang/ink/internal/ast"
	"github.com/ink-lang/ink/internal/diag"
	"github.com/ink-lang/ink/internal/lexer"
	"github.com/ink-lang/ink/internal/token"
)

// parseTopLevel parses one statement at the file/knot/stitch body level:
// content, a choice, a gather, a knot/stitch/function header, a variable
// declaration, a logic line, or a divert/thread. It is the single entry
// point both Parse's main loop and parseKnotOrStitch's body loop use.
func (p *Parser) parseTopLevel() *ast.Node {
	if !p.enter() {
		p.recover()
		return nil
	}
	defer p.leave()

	p.skipNewlines()

	switch {
	case p.tok.Kind == token.EOF:
		return nil
	case p.tok.Kind == token.EQ:
		return p.parseKnotOrStitch()
	case p.tok.Kind == token.STAR || p.tok.Kind == token.PLUS:
		return p.parseChoice(p.tok.Kind == token.PLUS)
	case p.tok.Kind == token.MINUS:
		return p.parseGather()
	case p.tok.Kind == token.TILDE:
		return p.parseLogicLine()
	case p.tok.Kind == token.RARROW:
		return p.parseDivert()
	case p.tok.Kind == token.LARROW:
		return p.parseThread()
	case p.lineHasKeyword("VAR"):
		return p.parseSimpleDecl("VAR", ast.VarDecl)
	case p.lineHasKeyword("CONST"):
		return p.parseSimpleDecl("CONST", ast.ConstDecl)
	case p.lineHasKeyword("temp"):
		return p.parseSimpleDecl("temp", ast.TempDecl)
	case p.lineHasKeyword("LIST"):
		return p.parseListDecl()
	default:
		return p.parseContentLine()
	}
}

// lineHasKeyword reports whether the current token is a content STRING run
// whose text begins with kw followed by a word boundary. Declaration
// keywords (VAR, CONST, temp, LIST) appear at statement start with no
// preceding punctuation to trigger a mode switch, so content mode has
// already folded them into a plain STRING token; this raw prefix check is
// how the parser recognizes them without the lexer needing to know about
// top-level keywords at all.
func (p *Parser) lineHasKeyword(kw string) bool {
	if p.tok.Kind != token.STRING {
		return false
	}
	n := len(kw)
	if p.tok.End-p.tok.Start < n {
		return false
	}
	if p.src.String(p.tok.Start, p.tok.Start+n) != kw {
		return false
	}
	switch p.src.At(p.tok.Start + n) {
	case ' ', '\t', 0, '\n', '\r':
		return true
	default:
		return false
	}
}

// consumeKeyword re-synchronizes the lexer past a raw keyword prefix
// matched by lineHasKeyword and switches to Expression mode for the rest
// of the declaration.
func (p *Parser) consumeKeyword(kw string) {
	pos := p.tok.Start + len(kw)
	p.lex.Push(lexer.Expression)
	p.lex.Reset(pos)
	p.tok = p.lex.Next()
}

// endLine consumes through the end of the current statement's line,
// reporting nothing (callers that need a diagnostic on stray trailing
// tokens report it themselves before calling endLine).
func (p *Parser) endLine() {
	for p.tok.Kind != token.NEWLINE && p.tok.Kind != token.EOF {
		p.advance()
	}
	if p.tok.Kind == token.NEWLINE {
		p.advance()
	}
}

// parseSimpleDecl parses the shared "KEYWORD name = expr" shape of VAR,
// CONST, and temp declarations. A missing '=' already reports one
// diagnostic from expect; rather than also attempting to parse an
// expression starting at whatever token follows (almost always producing a
// second, redundant "expected an expression" diagnostic), the declaration
// is given an implicit 0 and the rest of the line is discarded.
func (p *Parser) parseSimpleDecl(kw string, kind ast.Kind) *ast.Node {
	start := p.tok.Start
	p.consumeKeyword(kw)
	name := p.identName()
	var value *ast.Node
	if p.expect(token.ASSIGN, "'='") {
		p.advance()
		value = p.parseExpr(precOr)
	} else {
		value = p.tree.NewNode(ast.NumberLit, p.tok.Start, p.tok.Start)
		value.Name = "0"
	}
	end := p.endOf(value)
	p.leaveExpr()
	n := p.tree.NewNode(kind, start, end)
	n.Name = name
	n.RHS = value
	p.endLine()
	return n
}

// parseListDecl parses "LIST name = item, item, item".
func (p *Parser) parseListDecl() *ast.Node {
	start := p.tok.Start
	p.consumeKeyword("LIST")
	name := p.identName()
	if p.expect(token.ASSIGN, "'='") {
		p.advance()
	}
	mark := p.scratchMark()
	for {
		itemStart, itemEnd := p.tok.Start, p.tok.End
		itemName := p.identName()
		item := p.tree.NewNode(ast.Ident, itemStart, itemEnd)
		item.Name = itemName
		p.scratchPush(item)
		if p.tok.Kind == token.COMMA {
			p.advance()
			continue
		}
		break
	}
	items := p.scratchPop(mark)
	end := p.tok.Start
	p.leaveExpr()
	n := p.tree.NewNode(ast.ListDecl, start, end)
	n.Name = name
	n.Children = items
	p.endLine()
	return n
}

// identName consumes and returns the current IDENT token's text, reporting
// a diagnostic (and returning "") if the current token isn't an identifier.
func (p *Parser) identName() string {
	if p.tok.Kind != token.IDENT {
		p.report(diag.SyntaxError, "expected identifier, found "+p.tok.Kind.String())
		return ""
	}
	s := p.text()
	p.advance()
	return s
}

// parseLogicLine parses a '~'-prefixed logic-only statement: a return, an
// assignment, or a bare expression (typically a function call kept for its
// side effect).
func (p *Parser) parseLogicLine() *ast.Node {
	start := p.tok.Start
	p.enterExpr()
	p.advance() // consume '~'

	if p.tok.Kind == token.RETURN {
		p.advance()
		var val *ast.Node
		if p.tok.Kind != token.NEWLINE && p.tok.Kind != token.EOF {
			val = p.parseExpr(precOr)
		}
		end := p.endOf(val)
		if val == nil {
			end = p.tok.Start
		}
		p.leaveExpr()
		n := p.tree.NewNode(ast.Return, start, end)
		n.RHS = val
		p.endLine()
		return n
	}

	lhs := p.parseExpr(precOr)
	var n *ast.Node
	if p.tok.Kind == token.ASSIGN {
		p.advance()
		rhs := p.parseExpr(precOr)
		n = p.tree.NewNode(ast.Assign, start, p.endOf(rhs))
		n.LHS, n.RHS = lhs, rhs
	} else {
		n = lhs
	}
	p.leaveExpr()
	p.endLine()
	return n
}

// parseDivert parses "-> target(args)", or "-> target(args) ->" for a
// tunnel call (the trailing arrow marks the divert as a call that returns
// control to the point after it, per the Tunnel operation).
func (p *Parser) parseDivert() *ast.Node {
	start := p.tok.Start
	p.enterExpr()
	p.advance() // consume '->'

	name := p.identName()
	for p.tok.Kind == token.DOT {
		p.advance()
		name += "." + p.identName()
	}

	var args []*ast.Node
	if p.tok.Kind == token.LPAREN {
		p.advance()
		mark := p.scratchMark()
		if p.tok.Kind != token.RPAREN {
			for {
				arg := p.parseExpr(precOr)
				if arg != nil {
					p.scratchPush(arg)
				}
				if p.tok.Kind == token.COMMA {
					p.advance()
					continue
				}
				break
			}
		}
		args = p.scratchPop(mark)
		if p.expect(token.RPAREN, "')'") {
			p.advance()
		}
	}

	p.leaveExpr()
	kind := ast.Divert
	if p.tok.Kind == token.RARROW {
		p.advance()
		kind = ast.Tunnel
	}
	end := p.tok.Start
	n := p.tree.NewNode(kind, start, end)
	n.Name = name
	n.Children = args
	return n
}

// parseThread parses "<- target", spawning a parallel content thread.
func (p *Parser) parseThread() *ast.Node {
	start := p.tok.Start
	p.enterExpr()
	p.advance() // consume '<-'
	name := p.identName()
	end := p.tok.Start
	p.leaveExpr()
	n := p.tree.NewNode(ast.Thread, start, end)
	n.Name = name
	return n
}

// parseChoice parses one or more leading '*'/'+' choice markers (their
// count is the choice's nesting depth, stashed in Flags), an optional
// "[label]" bracket, and the choice's content line.
func (p *Parser) parseChoice(sticky bool) *ast.Node {
	start := p.tok.Start
	depth := 0
	for p.tok.Kind == token.STAR || p.tok.Kind == token.PLUS {
		if p.tok.Kind == token.PLUS {
			sticky = true
		}
		depth++
		p.advance()
	}

	label := p.parseOptionalLabel()
	content := p.parseContentLine()

	kind := ast.ChoiceStar
	if sticky {
		kind = ast.ChoicePlus
	}
	n := p.tree.NewNode(kind, start, p.endOf(content))
	n.Name = label
	n.Flags = ast.Flags(depth) << ast.FlagDepthShift
	if sticky {
		n.Flags |= ast.FlagSticky
	}
	n.RHS = content
	return n
}

// parseGather parses one or more leading '-' gather markers (nesting
// depth in Flags, as with choices), an optional "[label]" bracket, and the
// gather's content line.
func (p *Parser) parseGather() *ast.Node {
	start := p.tok.Start
	depth := 0
	for p.tok.Kind == token.MINUS {
		depth++
		p.advance()
	}

	label := p.parseOptionalLabel()
	content := p.parseContentLine()

	n := p.tree.NewNode(ast.Gather, start, p.endOf(content))
	n.Name = label
	n.Flags = ast.Flags(depth) << ast.FlagDepthShift
	n.RHS = content
	return n
}

// parseOptionalLabel parses a "[text]" choice/gather label if present.
// '[' and ']' are their own content-mode tokens, so the label text between
// them lexes as a single ordinary STRING run.
func (p *Parser) parseOptionalLabel() string {
	if p.tok.Kind != token.LBRACKET {
		return ""
	}
	p.advance()
	var label string
	if p.tok.Kind == token.STRING {
		label = p.text()
		p.advance()
	}
	if p.expect(token.RBRACKET, "']'") {
		p.advance()
	}
	return label
}

// parseContentLine parses a single line of narrative content: a mixture
// of literal text, inline {..} logic, glue, diverts, and threads, stopping
// at NEWLINE/EOF. Any punctuation token that would start a new statement
// at line-start (STAR, PLUS, MINUS, EQ) is, mid-line, just more literal
// text, since parseTopLevel already claimed those meanings at the point
// where they actually occur at a line's start.
func (p *Parser) parseContentLine() *ast.Node {
	start := p.tok.Start
	mark := p.scratchMark()
	flags := ast.Flags(0)

loop:
	for {
		switch p.tok.Kind {
		case token.NEWLINE, token.EOF, token.TILDE:
			break loop
		case token.LBRACE:
			if n := p.parseInlineLogicBrace(); n != nil {
				p.scratchPush(n)
			}
		case token.GLUE:
			flags |= ast.FlagGlue
			p.advance()
		case token.RARROW:
			p.scratchPush(p.parseDivert())
		case token.LARROW:
			p.scratchPush(p.parseThread())
		default:
			n := p.tree.NewNode(ast.ContentText, p.tok.Start, p.tok.End)
			n.Name = p.text()
			p.scratchPush(n)
			p.advance()
		}
	}

	children := p.scratchPop(mark)
	end := p.tok.Start
	n := p.tree.NewNode(ast.StringExpr, start, end)
	n.Flags = flags
	n.Children = children
	if p.tok.Kind == token.NEWLINE {
		p.advance()
	}
	return n
}

// parseKnotOrStitch parses a "==" knot or "=" stitch header (distinguished
// by the length of the EQ run the lexer folded together), an optional
// "function" marker and parameter list, and the decl's body: every
// statement up to the next header or EOF. Stitches are kept as flat
// top-level siblings rather than nested under their owning knot; IR
// lowering recovers the grouping from declaration order, matching the
// flat top-level Children list the rest of the parser already produces.
func (p *Parser) parseKnotOrStitch() *ast.Node {
	start := p.tok.Start
	isKnot := p.tok.End-p.tok.Start >= 2
	p.enterExpr()
	p.advance() // consume the '='/'==' run

	isFunc := false
	if p.tok.Kind == token.FUNCTION {
		isFunc = true
		p.advance()
	}
	name := p.identName()

	mark := p.scratchMark()
	if p.tok.Kind == token.LPAREN {
		p.advance()
		if p.tok.Kind != token.RPAREN {
			for {
				byRef := p.tok.Kind == token.REF
				if byRef {
					p.advance()
				}
				pStart, pEnd := p.tok.Start, p.tok.End
				pName := p.identName()
				pn := p.tree.NewNode(ast.ParamDecl, pStart, pEnd)
				pn.Name = pName
				if byRef {
					pn.Flags = ast.FlagByRef
				}
				p.scratchPush(pn)
				if p.tok.Kind == token.COMMA {
					p.advance()
					continue
				}
				break
			}
		}
		if p.expect(token.RPAREN, "')'") {
			p.advance()
		}
	}
	params := p.scratchPop(mark)

	// tolerate a closing "== name ==" style trailer
	for p.tok.Kind == token.EQ {
		p.advance()
	}
	p.leaveExpr()
	p.endLine()

	bodyMark := p.scratchMark()
	for p.tok.Kind != token.EOF && p.tok.Kind != token.EQ {
		p.skipNewlines()
		if p.tok.Kind == token.EOF || p.tok.Kind == token.EQ {
			break
		}
		if n := p.parseTopLevel(); n != nil {
			p.scratchPush(n)
		}
	}
	body := p.scratchPop(bodyMark)

	kind := ast.StitchDecl
	if isKnot {
		kind = ast.KnotDecl
	}
	if isFunc {
		kind = ast.FunctionDecl
	}

	end := start
	if len(body) > 0 {
		end = body[len(body)-1].End
	} else if len(params) > 0 {
		end = params[len(params)-1].End
	}
	n := p.tree.NewNode(kind, start, end)
	n.Name = name
	n.Children = append(params, body...)
	return n
}
