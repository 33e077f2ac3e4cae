// Package ir implements the typed intermediate representation that sits
// between the AST and bytecode: a flat array of instructions addressed by
// linear index, plus instruction sequences (also index-addressed) used for
// blocks, branch arms, call argument lists, and switch cases.
package ir

// Op enumerates the kinds of IR instruction, one per spec.md 4.3 mapping.
type Op int

const (
	Number Op = iota
	String
	True
	False
	Add
	Sub
	Mul
	Div
	Mod
	Neg
	Not
	CmpEq
	CmpNeq
	CmpLt
	CmpLte
	CmpGt
	CmpGte
	Load
	Store
	Pop
	Alloc
	ContentPush
	Done
	End
	Ret
	CondBr
	Block
	Call
	Declaration
	Switch
	SwitchCase

	// ChoicePush is not in spec.md 4.3's minimum mapping list; it is the
	// natural extension for surfacing a choice block, since 4.7's VM
	// dispatch table describes choice presentation as its own behavior
	// distinct from ordinary content emission.
	ChoicePush
)

// SlotKind distinguishes where a Load/Store/Alloc instruction's Slot lives.
type SlotKind int

const (
	SlotLocal SlotKind = iota
	SlotGlobal
)

// NoSeq marks an absent optional sequence reference (e.g. CondBr with no
// else arm).
const NoSeq = -1

// Instr is one IR instruction. Not every field is meaningful for every Op;
// the comment on each field below names the Ops that use it. Instructions
// are addressed by their index into a Program's Instrs
// slice — that index IS the "instruction reference" other instructions'
// payloads point to (spec.md 4.1 invariant (c)).
type Instr struct {
	Op Op

	Num float64 // Number
	Str int     // String: byte offset into Program.Strings

	LHS  int // Add..Not's operand, CondBr's condition, SwitchCase's value (NoSeq if none)
	RHS  int // binary ops' right operand; String's byte length; Call/ChoicePush's name byte length
	Slot int // Load/Store/Alloc's variable slot (Kind==SlotLocal), or name byte offset (Kind==SlotGlobal)
	Kind SlotKind

	Seq  int // Block/then-arm/Call-args/SwitchCase-body/Declaration-body sequence index
	Seq2 int // CondBr's else arm / Switch's default case, or NoSeq

	Name int // Call/Declaration/ChoicePush's name, as a byte offset into Program.Strings; for
	// Load/Store/Alloc with Kind==SlotGlobal, the global's name byte LENGTH (Slot holds its offset)
}

// Program owns every instruction and sequence produced while lowering one
// source file. Sequences are themselves index-addressed (Seqs[i] is the
// ordered list of instruction indices making up sequence i), mirroring the
// "singly-linked list of all sequences, kept for release" shape from
// spec.md 4.1 — in Go there is nothing to manually release, so the slice
// itself stands in for that intrusive list.
type Program struct {
	Instrs  []Instr
	Seqs    [][]int
	Strings *StringPool
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	return &Program{Strings: NewStringPool()}
}

// Emit appends instr and returns its index.
func (p *Program) Emit(instr Instr) int {
	p.Instrs = append(p.Instrs, instr)
	return len(p.Instrs) - 1
}

// NewSeq allocates an empty sequence and returns its index.
func (p *Program) NewSeq() int {
	p.Seqs = append(p.Seqs, nil)
	return len(p.Seqs) - 1
}

// Append adds an instruction index to the end of sequence seq.
func (p *Program) Append(seq, instrIdx int) {
	p.Seqs[seq] = append(p.Seqs[seq], instrIdx)
}

// StringPool is the global byte pool string literals are copied into;
// lowering returns a byte offset rather than a separate index so the pool
// can later be sliced directly into constant-pool strings during codegen.
type StringPool struct {
	buf []byte
}

// NewStringPool returns an empty StringPool.
func NewStringPool() *StringPool {
	return &StringPool{}
}

// Intern copies s into the pool and returns its starting byte offset.
// Unlike the constant pool (which deduplicates per content path at codegen
// time), the string pool does not deduplicate: it is a flat append-only
// arena, matching spec.md 4.3's "copies bytes into a global byte pool".
func (sp *StringPool) Intern(s string) int {
	off := len(sp.buf)
	sp.buf = append(sp.buf, s...)
	return off
}

// Bytes returns the slice of the pool starting at off with length n.
func (sp *StringPool) Bytes(off, n int) []byte {
	return sp.buf[off : off+n]
}

// Func is one compiled content path's IR: a knot, stitch, or function. Its
// Body sequence is the top-level statement list lowered from the AST
// decl's Children.
type Func struct {
	Name       string
	Arity      int
	LocalCount int
	Body       int // sequence index into the owning Program
	IsFunction bool
}
