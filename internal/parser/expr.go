package parser

import (
	"github.com/ink-lang/ink/internal/ast"
	"github.com/ink-lang/ink/internal/diag"
	"github.com/ink-lang/ink/internal/token"
)

// precedence levels, lowest to highest, per spec.md 4.2.
const (
	precNone = iota
	precOr
	precAnd
	precEquality
	precComparison
	precAdditive
	precMultiplicative
	precUnary
	precCall
	precPrimary
)

// binInfo describes one infix operator: its precedence and the AST operator
// it builds. Every infix operator is left-associative.
type binInfo struct {
	prec int
	op   ast.Op
}

var binTable = map[token.Kind]binInfo{
	token.OR:      {precOr, ast.OpOr},
	token.AND:     {precAnd, ast.OpAnd},
	token.EQ:      {precEquality, ast.OpEq},
	token.NEQ:     {precEquality, ast.OpNeq},
	token.LT:      {precComparison, ast.OpLt},
	token.LTE:     {precComparison, ast.OpLte},
	token.GT:      {precComparison, ast.OpGt},
	token.GTE:     {precComparison, ast.OpGte},
	token.PLUS:    {precAdditive, ast.OpAdd},
	token.MINUS:   {precAdditive, ast.OpSub},
	token.STAR:    {precMultiplicative, ast.OpMul},
	token.SLASH:   {precMultiplicative, ast.OpDiv},
	token.MOD:     {precMultiplicative, ast.OpMod},
	token.PERCENT: {precMultiplicative, ast.OpMod},
}

// parseExpr parses an expression with precedence >= minPrec (a standard
// precedence-climbing / Pratt parse), mirroring the shape of the teacher's
// read/readOp mutual recursion (lang/parser.go) generalized from Prolog's
// user-defined operator table to Ink's fixed precedence table.
func (p *Parser) parseExpr(minPrec int) *ast.Node {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	lhs := p.parseUnary()
	if lhs == nil {
		return nil
	}

	for {
		info, ok := binTable[p.tok.Kind]
		if !ok || info.prec < minPrec {
			return lhs
		}
		opTok := p.tok
		p.advance()
		rhs := p.parseExpr(info.prec + 1)
		if rhs == nil {
			p.report(diag.SyntaxError, "expected right-hand operand")
			return lhs
		}
		n := p.tree.NewNode(ast.BinaryExpr, lhs.Start, rhs.End)
		n.Flags = ast.Flags(info.op)
		n.LHS, n.RHS = lhs, rhs
		_ = opTok
		lhs = n
	}
}

func (p *Parser) parseUnary() *ast.Node {
	switch p.tok.Kind {
	case token.MINUS:
		start := p.tok.Start
		p.advance()
		operand := p.parseExpr(precUnary)
		n := p.tree.NewNode(ast.UnaryExpr, start, p.endOf(operand))
		n.Flags = ast.Flags(ast.OpNeg)
		n.LHS = operand
		return n
	case token.NOT:
		start := p.tok.Start
		p.advance()
		operand := p.parseExpr(precUnary)
		n := p.tree.NewNode(ast.UnaryExpr, start, p.endOf(operand))
		n.Flags = ast.Flags(ast.OpNot)
		n.LHS = operand
		return n
	default:
		return p.parseCallOrPrimary()
	}
}

func (p *Parser) endOf(n *ast.Node) int {
	if n == nil {
		return p.tok.Start
	}
	return n.End
}

func (p *Parser) parseCallOrPrimary() *ast.Node {
	n := p.parsePrimary()
	if n == nil {
		return nil
	}
	for n.Kind == ast.Ident && p.tok.Kind == token.LPAREN {
		start := n.Start
		p.advance() // consume '('
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
		args := p.scratchPop(mark)
		end := p.tok.End
		if p.expect(token.RPAREN, "')'") {
			p.advance()
		}
		call := p.tree.NewNode(ast.CallExpr, start, end)
		call.LHS = n
		call.Children = args
		n = call
	}
	return n
}

func (p *Parser) parsePrimary() *ast.Node {
	switch p.tok.Kind {
	case token.NUMBER:
		n := p.tree.NewNode(ast.NumberLit, p.tok.Start, p.tok.End)
		n.Name = p.text()
		p.advance()
		return n

	case token.STRING:
		n := p.tree.NewNode(ast.StringLit, p.tok.Start, p.tok.End)
		n.Name = p.text()
		p.advance()
		return n

	case token.TRUE, token.FALSE:
		n := p.tree.NewNode(ast.BoolLit, p.tok.Start, p.tok.End)
		n.Name = p.tok.Kind.String()
		p.advance()
		return n

	case token.IDENT:
		n := p.tree.NewNode(ast.Ident, p.tok.Start, p.tok.End)
		n.Name = p.text()
		p.advance()
		return n

	case token.LPAREN:
		p.advance()
		inner := p.parseExpr(precOr)
		if p.expect(token.RPAREN, "')'") {
			p.advance()
		}
		return inner

	case token.LBRACE:
		return p.parseInlineLogicBrace()

	default:
		p.report(diag.SyntaxError, "expected an expression, found "+p.tok.Kind.String())
		return nil
	}
}

// parseInlineLogicBrace parses an Ink `{...}` logic block in any of its
// three forms: a bare expression `{expr}`, conditional content
// `{cond: then|else}`, or a sequence expression `{a|b|c}` (optionally
// flagged `{!...}`/`{&...}`/`{~...}` for once/cycle/shuffle; stopping is
// the default with no marker). The form is decided by a raw look-ahead scan
// of the source bytes between the braces (tracking nested-brace depth) for
// a top-level ':' or '|', since the three forms are lexed under different
// grammars (the condition and bare-expression forms under Expression mode,
// the content alternatives under a raw span scan) and committing to a mode
// before classifying would make backtracking awkward.
func (p *Parser) parseInlineLogicBrace() *ast.Node {
	start := p.tok.Start
	kind, flagLen := p.classifyBrace()

	if kind != braceSequence {
		p.enterExpr()
	}
	p.advance() // consume '{'
	if flagLen > 0 {
		p.lex.Reset(p.tok.Start + flagLen)
		p.tok = p.lex.Next()
	}

	switch kind {
	case braceConditional:
		cond := p.parseExpr(precOr)
		colon := p.expect(token.COLON, "':'")
		p.leaveExpr()
		if colon {
			p.advance()
		}
		branches := p.parseAltList()
		end := p.tok.End
		if p.expect(token.RBRACE, "'}'") {
			p.advance()
		}
		n := p.tree.NewNode(ast.ConditionalContent, start, end)
		n.LHS = cond
		n.Children = branches
		return n

	case braceSequence:
		policy := ast.FlagSeqStopping
		switch flagLen {
		case 1:
			switch p.src.At(start + 1) {
			case '&':
				policy = ast.FlagSeqCycle
			case '~':
				policy = ast.FlagSeqShuffle
			case '!':
				policy = ast.FlagSeqOnce
			}
		}
		branches := p.parseAltList()
		end := p.tok.End
		if p.expect(token.RBRACE, "'}'") {
			p.advance()
		}
		n := p.tree.NewNode(ast.SequenceExpr, start, end)
		n.Flags = policy
		n.Children = branches
		return n

	default: // bare expression
		expr := p.parseExpr(precOr)
		p.leaveExpr()
		end := p.tok.End
		if p.expect(token.RBRACE, "'}'") {
			p.advance()
		}
		if expr != nil {
			expr.End = end
		}
		return expr
	}
}

type braceKind int

const (
	braceExpr braceKind = iota
	braceConditional
	braceSequence
)

// classifyBrace scans raw source bytes from just after the opening '{'
// (p.tok.Start + 1) looking for a top-level ':' or '|' before the matching
// '}', tracking nested-brace depth. It returns the classification and,
// for a flag-prefixed sequence, the length of that flag prefix (0 or 1).
func (p *Parser) classifyBrace() (braceKind, int) {
	i := p.tok.Start + 1
	flagLen := 0
	if c := p.src.At(i); c == '!' || c == '&' || c == '~' {
		flagLen = 1
	}
	depth := 0
	for j := i; ; j++ {
		c := p.src.At(j)
		switch c {
		case 0:
			return braceExpr, flagLen
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return braceExpr, flagLen
			}
			depth--
		case ':':
			if depth == 0 {
				return braceConditional, 0
			}
		case '|':
			if depth == 0 {
				return braceSequence, flagLen
			}
		}
	}
}

// parseAltList parses a '|'-delimited list of content alternatives,
// stopping at the matching '}'.
func (p *Parser) parseAltList() []*ast.Node {
	mark := p.scratchMark()
	for {
		p.scratchPush(p.parseSequenceAlt())
		if p.tok.Kind == token.PIPE {
			p.advance()
			continue
		}
		break
	}
	return p.scratchPop(mark)
}

// parseSequenceAlt parses one alternative of a sequence or conditional
// content expression: a run of literal text and nested {..} logic blocks,
// stopping at '|' or '}'.
func (p *Parser) parseSequenceAlt() *ast.Node {
	start := p.tok.Start
	mark := p.scratchMark()
	for {
		c := p.src.At(p.tok.Start)
		if c == '|' || c == '}' || c == 0 {
			break
		}
		if c == '{' {
			if n := p.parseInlineLogicBrace(); n != nil {
				p.scratchPush(n)
			}
			continue
		}
		if n := p.scanContentText(); n != nil {
			p.scratchPush(n)
		}
	}
	children := p.scratchPop(mark)
	n := p.tree.NewNode(ast.Block, start, p.tok.Start)
	n.Children = children
	return n
}

// scanContentText consumes raw source bytes, starting at the current token,
// up to (not including) the next '|', '{', '}', or EOF, and resynchronizes
// the parser's lookahead token to that stopping point. It returns nil if no
// bytes were consumed.
func (p *Parser) scanContentText() *ast.Node {
	start := p.tok.Start
	i := start
	for {
		c := p.src.At(i)
		if c == 0 || c == '|' || c == '{' || c == '}' {
			break
		}
		i++
	}
	p.lex.Reset(i)
	p.tok = p.lex.Next()
	if i == start {
		return nil
	}
	n := p.tree.NewNode(ast.ContentText, start, i)
	n.Name = p.src.String(start, i)
	return n
}
