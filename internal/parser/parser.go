// Package parser implements the hand-written recursive-descent parser that
// converts a token stream into an AST plus a list of diagnostics. Parsing
// never aborts on error: diagnostics are recorded and a best-effort tree is
// still produced, matching spec.md's propagation policy.
package parser

import (
	"github.com/ink-lang/ink/internal/ast"
	"github.com/ink-lang/ink/internal/diag"
	"github.com/ink-lang/ink/internal/lexer"
	"github.com/ink-lang/ink/internal/source"
	"github.com/ink-lang/ink/internal/token"
)

// Parser holds the scratch state for one parse of one source.Buffer. It is
// not reusable across sources.
type Parser struct {
	src   *source.Buffer
	lex   *lexer.Lexer
	tree  *ast.Tree
	Diags []diag.Diagnostic

	tok token.Token // the current lookahead token

	// scratch is the shared child-list stack used to build ast.Node
	// sequences: a production records the scratch's current length,
	// appends children as it parses them, then materializes a slice from
	// the recorded mark before truncating scratch back down. This mirrors
	// original_source/src/parse.c's ink_scratch_buffer and the teacher's
	// p.heap/p.args scratch arrays (lang/parser.go).
	scratch []*ast.Node

	depth    int
	maxDepth int
}

// New returns a Parser over src, ready to produce tokens from lex in
// Content mode. maxDepth bounds recursive-descent recursion (spec.md 4.2);
// if <= 0 a default of 128 is used.
func New(src *source.Buffer, lex *lexer.Lexer, maxDepth int) *Parser {
	if maxDepth <= 0 {
		maxDepth = 128
	}
	p := &Parser{
		src:      src,
		lex:      lex,
		tree:     ast.NewTree(),
		maxDepth: maxDepth,
		scratch:  make([]*ast.Node, 0, 64),
	}
	p.advance()
	return p
}

// Parse runs the parser to completion and returns the resulting tree. The
// tree remains valid (and owns its own arena) independent of the Parser.
func (p *Parser) Parse() *ast.Tree {
	start := p.tok.Start
	mark := p.scratchMark()
	for p.tok.Kind != token.EOF {
		if n := p.parseTopLevel(); n != nil {
			p.scratchPush(n)
		}
	}
	children := p.scratchPop(mark)
	file := p.tree.NewNode(ast.File, start, p.tok.End)
	file.Children = children
	p.tree.Root = file
	return p.tree
}

// advance discards the current token (skipping WHITESPACE, which never
// carries syntactic meaning once lexed) and loads the next one.
func (p *Parser) advance() token.Token {
	prev := p.tok
	for {
		p.tok = p.lex.Next()
		if p.tok.Kind != token.WHITESPACE {
			break
		}
	}
	return prev
}

// skipNewlines advances past any run of blank NEWLINE tokens.
func (p *Parser) skipNewlines() {
	for p.tok.Kind == token.NEWLINE {
		p.advance()
	}
}

func (p *Parser) text() string {
	return p.src.String(p.tok.Start, p.tok.End)
}

func (p *Parser) report(kind diag.Kind, detail string) {
	p.Diags = append(p.Diags, diag.Diagnostic{
		Kind: kind, Start: p.tok.Start, End: p.tok.End, Detail: detail,
	})
}

// expect reports a syntax error if the current token is not k, without
// consuming it; callers decide whether to recover by advancing anyway.
func (p *Parser) expect(k token.Kind, what string) bool {
	if p.tok.Kind == k {
		return true
	}
	p.report(diag.SyntaxError, "expected "+what+", found "+p.tok.Kind.String())
	return false
}

// recover advances until the next NEWLINE or EOF, used after a diagnostic
// to resynchronize the parser with the next statement.
func (p *Parser) recover() {
	for p.tok.Kind != token.NEWLINE && p.tok.Kind != token.EOF {
		p.advance()
	}
}

// enter increments the recursion depth guard, reporting RecursionTooDeep
// and returning false if the parser is already at maxDepth.
func (p *Parser) enter() bool {
	if p.depth >= p.maxDepth {
		p.report(diag.RecursionTooDeep, "")
		return false
	}
	p.depth++
	return true
}

func (p *Parser) leave() {
	p.depth--
}

// Scratch stack helpers
// --------------------------------------------------

func (p *Parser) scratchMark() int {
	return len(p.scratch)
}

func (p *Parser) scratchPush(n *ast.Node) {
	p.scratch = append(p.scratch, n)
}

// scratchPop materializes the slice of children pushed since mark, copying
// them out of the shared scratch array, and shrinks scratch back to mark.
func (p *Parser) scratchPop(mark int) []*ast.Node {
	n := len(p.scratch) - mark
	if n <= 0 {
		p.scratch = p.scratch[:mark]
		return nil
	}
	out := make([]*ast.Node, n)
	copy(out, p.scratch[mark:])
	p.scratch = p.scratch[:mark]
	return out
}

// Pushing/popping lexer mode
// --------------------------------------------------
//
// The convention throughout the parser is: push/pop the mode, then use the
// ordinary advance() to read the next token, so the byte *after* the mode
// switch is lexed under the new grammar. The delimiter token itself (the
// brace, paren, or tilde) is classified identically in either mode, so it
// doesn't matter which mode was active when it was produced.

// enterExpr pushes Expression mode.
func (p *Parser) enterExpr() {
	p.lex.Push(lexer.Expression)
}

// leaveExpr pops back to the enclosing mode.
func (p *Parser) leaveExpr() {
	p.lex.Pop()
}
