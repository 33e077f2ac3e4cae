// Package ast defines the typed syntax tree produced by the parser. Nodes
// are allocated from an arena.Arena and are never freed individually; the
// whole tree is released when the arena is released after codegen.
package ast

import "github.com/ink-lang/ink/internal/arena"

// Kind enumerates the concrete syntactic forms of a Node.
type Kind int

const (
	File Kind = iota
	Block

	// Choices
	ChoiceStar
	ChoicePlus
	Gather

	// Declarations
	KnotDecl
	StitchDecl
	FunctionDecl
	ParamDecl // a single parameter; Flags holds byRef
	ConstDecl
	VarDecl
	TempDecl
	ListDecl

	// Control flow
	Divert
	Tunnel
	Thread
	Return

	// Content / expressions
	ContentText  // LHS-less leaf; Start:End is the literal text span
	StringExpr   // an interpolated content line: Children are text/expr parts
	NumberLit
	StringLit
	BoolLit
	Ident

	BinaryExpr // LHS op RHS, op kept in Flags
	UnaryExpr  // op Start, operand in LHS
	CondBranch // If/else: LHS=condition, RHS=then Block, Children[0]=else Block (optional)
	MultiBranch
	SwitchStmt // LHS=subject, Children=SwitchCase
	SwitchCase // LHS=value (nil for default), RHS=body Block
	ConditionalContent
	SequenceExpr // Children=alternatives (Block each); Flags holds the policy
	CallExpr     // LHS=callee Ident, Children=args
	Assign       // LHS=target Ident, RHS=value
)

var kindNames = [...]string{
	File: "File", Block: "Block",
	ChoiceStar: "ChoiceStar", ChoicePlus: "ChoicePlus", Gather: "Gather",
	KnotDecl: "KnotDecl", StitchDecl: "StitchDecl", FunctionDecl: "FunctionDecl",
	ParamDecl: "ParamDecl", ConstDecl: "ConstDecl", VarDecl: "VarDecl",
	TempDecl: "TempDecl", ListDecl: "ListDecl",
	Divert: "Divert", Tunnel: "Tunnel", Thread: "Thread", Return: "Return",
	ContentText: "ContentText", StringExpr: "StringExpr", NumberLit: "NumberLit",
	StringLit: "StringLit", BoolLit: "BoolLit", Ident: "Ident",
	BinaryExpr: "BinaryExpr", UnaryExpr: "UnaryExpr", CondBranch: "CondBranch",
	MultiBranch: "MultiBranch", SwitchStmt: "SwitchStmt", SwitchCase: "SwitchCase",
	ConditionalContent: "ConditionalContent", SequenceExpr: "SequenceExpr",
	CallExpr: "CallExpr", Assign: "Assign",
}

// String returns the Kind's mnemonic, for debugging and the dump-AST flag.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Kind(?)"
}

// Flags carries small per-kind boolean/enum bits.
type Flags uint32

const (
	FlagSticky Flags = 1 << iota // choice: '+' rather than '*'
	FlagByRef                    // parameter: passed by reference
	FlagGlue                     // content: followed by '<>'

	// Sequence policies (mutually exclusive, spec.md 4.2/glossary)
	FlagSeqStopping Flags = 0 << 8
	FlagSeqCycle    Flags = 1 << 8
	FlagSeqShuffle  Flags = 2 << 8
	FlagSeqOnce     Flags = 3 << 8
	FlagSeqMask     Flags = 0x3 << 8

	// Binary/unary operator, stashed in the low byte when Flags is used
	// for that purpose (Kind == BinaryExpr or UnaryExpr).
	FlagOpMask Flags = 0xFF

	// Nesting depth of a ChoiceStar/ChoicePlus/Gather, i.e. how many
	// consecutive '*'/'+'/'-' markers introduced it, packed into a high
	// byte so it never collides with FlagSticky/FlagByRef/FlagGlue.
	FlagDepthShift      = 16
	FlagDepthMask Flags = 0xFF << FlagDepthShift
)

// Op identifies a binary or unary operator kept in a BinaryExpr/UnaryExpr's
// Flags & FlagOpMask.
type Op uint32

const (
	OpAdd Op = iota + 1
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
	OpNeg
	OpNot
)

// Node is a single arena-owned syntax tree node.
type Node struct {
	Kind     Kind
	Flags    Flags
	Start    int
	End      int
	Name     string // identifier/knot/stitch/function name, or literal text
	LHS      *Node
	RHS      *Node
	Children []*Node
}

// Tree owns the arena backing every Node in a single parse.
type Tree struct {
	arena *arena.Arena[Node]
	Root  *Node
}

// NewTree returns an empty Tree.
func NewTree() *Tree {
	return &Tree{arena: arena.New[Node]()}
}

// NewNode allocates a zero-valued Node owned by the tree, with Kind and
// span set.
func (t *Tree) NewNode(kind Kind, start, end int) *Node {
	n := t.arena.Alloc()
	n.Kind = kind
	n.Start = start
	n.End = end
	return n
}

// Release discards the tree's arena. The Tree (and every Node it produced)
// must not be used afterward.
func (t *Tree) Release() {
	t.arena.Release()
}

// Op extracts the operator stashed in a BinaryExpr/UnaryExpr's Flags.
func (n *Node) Op() Op {
	return Op(n.Flags & FlagOpMask)
}

// SeqPolicy extracts the sequence-expression policy from Flags.
func (n *Node) SeqPolicy() Flags {
	return n.Flags & FlagSeqMask
}

// Depth extracts a ChoiceStar/ChoicePlus/Gather's nesting depth from Flags.
func (n *Node) Depth() int {
	return int((n.Flags & FlagDepthMask) >> FlagDepthShift)
}
