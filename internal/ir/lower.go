package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ink-lang/ink/internal/ast"
	"github.com/ink-lang/ink/internal/diag"
	"github.com/ink-lang/ink/internal/symtab"
)

// Lowerer walks an ast.Tree and emits a Program plus one Func per content
// path (spec.md 4.3). It accumulates diagnostics rather than aborting,
// matching the parser's own recovery policy.
type Lowerer struct {
	prog       *Program
	diags      *[]diag.Diagnostic
	globals    *symtab.Scope
	seqCounter int
}

// Lower runs a full AST-to-IR lowering pass over tree and returns the
// resulting Program along with every content path it produced, main
// (top-level loose content) first.
func Lower(tree *ast.Tree, diags *[]diag.Diagnostic) (*Program, []*Func) {
	l := &Lowerer{prog: NewProgram(), diags: diags, globals: symtab.NewGlobal()}
	children := tree.Root.Children

	// Pass 1: pre-declare every knot/stitch/function so forward diverts
	// and calls resolve regardless of textual order — a story's knots
	// freely divert to each other in either direction.
	names := make([]string, len(children))
	knotName := ""
	for i, n := range children {
		switch n.Kind {
		case ast.KnotDecl, ast.StitchDecl, ast.FunctionDecl:
			name := n.Name
			if n.Kind == ast.StitchDecl && knotName != "" {
				name = knotName + "." + n.Name
			}
			if n.Kind == ast.KnotDecl {
				knotName = n.Name
			}
			names[i] = name

			kind := symtab.Knot
			if n.Kind == ast.FunctionDecl {
				kind = symtab.Function
			}
			sym, fresh := l.globals.Declare(name, kind)
			if !fresh {
				l.report(diag.Redefinition, n.Start, n.End, name)
			}
			sym.Arity = countParams(n)
		}
	}

	// Pass 2: lower every body now that every name is resolvable.
	var funcs []*Func
	var mainBody []*ast.Node
	for i, n := range children {
		switch n.Kind {
		case ast.KnotDecl, ast.StitchDecl, ast.FunctionDecl:
			funcs = append(funcs, l.lowerFunc(n, names[i]))
		default:
			mainBody = append(mainBody, n)
		}
	}
	mainFn := l.lowerMain(mainBody)
	funcs = append([]*Func{mainFn}, funcs...)
	return l.prog, funcs
}

func countParams(n *ast.Node) int {
	c := 0
	for _, ch := range n.Children {
		if ch.Kind != ast.ParamDecl {
			break
		}
		c++
	}
	return c
}

func (l *Lowerer) report(kind diag.Kind, start, end int, detail string) {
	*l.diags = append(*l.diags, diag.Diagnostic{Kind: kind, Start: start, End: end, Detail: detail})
}

// lowerMain lowers the loose top-level content (everything before the
// first knot header, or a knotless one-knot story) into its own content
// path, named "" by convention — the story's entry point.
func (l *Lowerer) lowerMain(body []*ast.Node) *Func {
	scope := l.globals.Push()
	seq := l.prog.NewSeq()
	for _, n := range body {
		l.lowerStmt(n, scope, seq)
	}
	l.prog.Append(seq, l.prog.Emit(Instr{Op: End}))
	return &Func{Name: "", Body: seq, LocalCount: scope.LocalCount()}
}

// lowerFunc lowers one knot/stitch/function declaration's body. Its own
// name is already registered in l.globals by Lower's first pass; this
// only introduces the nested scope for parameters and locals.
func (l *Lowerer) lowerFunc(n *ast.Node, qualifiedName string) *Func {
	scope := l.globals.Push()
	i := 0
	for i < len(n.Children) && n.Children[i].Kind == ast.ParamDecl {
		p := n.Children[i]
		scope.Declare(p.Name, symtab.Parameter)
		i++
	}
	arity := i
	body := n.Children[i:]

	seq := l.prog.NewSeq()
	for _, stmt := range body {
		l.lowerStmt(stmt, scope, seq)
	}
	falseIdx := l.prog.Emit(Instr{Op: False})
	l.prog.Append(seq, falseIdx)
	l.prog.Append(seq, l.prog.Emit(Instr{Op: Ret, LHS: falseIdx}))

	return &Func{
		Name:       qualifiedName,
		Arity:      arity,
		Body:       seq,
		LocalCount: scope.LocalCount(),
		IsFunction: n.Kind == ast.FunctionDecl,
	}
}

// lowerStmt lowers one statement-level AST node into seq.
func (l *Lowerer) lowerStmt(n *ast.Node, scope *symtab.Scope, seq int) {
	switch n.Kind {
	case ast.StringExpr:
		l.lowerContentLine(n, scope, seq)
	case ast.VarDecl, ast.ConstDecl, ast.TempDecl:
		l.lowerVarDecl(n, scope, seq)
	case ast.ListDecl:
		l.lowerListDecl(n, scope, seq)
	case ast.Assign:
		l.lowerAssignStmt(n, scope, seq)
	case ast.Return:
		var idx int
		if n.RHS != nil {
			idx = l.lowerExpr(n.RHS, scope, seq)
		} else {
			idx = l.prog.Emit(Instr{Op: False})
			l.prog.Append(seq, idx)
		}
		l.prog.Append(seq, l.prog.Emit(Instr{Op: Ret, LHS: idx}))
	case ast.Divert, ast.Tunnel, ast.Thread:
		l.lowerDivert(n, scope, seq)
	case ast.ChoiceStar, ast.ChoicePlus:
		l.lowerChoice(n, scope, seq)
	case ast.Gather:
		if n.RHS != nil {
			l.lowerContentLine(n.RHS, scope, seq)
		}
	default:
		// A bare expression kept only for its side effect (typically a
		// function call) — its value is unused, so discard it.
		idx := l.lowerExpr(n, scope, seq)
		l.prog.Append(seq, l.prog.Emit(Instr{Op: Pop, LHS: idx}))
	}
}

// lowerContentLine lowers a StringExpr's mixture of literal text, inline
// logic, and embedded diverts/threads, appending a DONE at the end (every
// content line is its own suspension point, per spec.md 4.3's
// "end-of-line → DONE").
func (l *Lowerer) lowerContentLine(n *ast.Node, scope *symtab.Scope, seq int) {
	l.lowerBlockInto(n, scope, seq)
	l.prog.Append(seq, l.prog.Emit(Instr{Op: Done}))
}

// lowerBlockInto lowers a Block/StringExpr's Children into destSeq without
// a trailing DONE, for use inside sequence/conditional alternatives where
// the enclosing line's own DONE already covers the whole expression.
// Returns the index of the last instruction lowered, or -1 if n was empty.
func (l *Lowerer) lowerBlockInto(n *ast.Node, scope *symtab.Scope, destSeq int) int {
	last := -1
	for _, c := range n.Children {
		switch c.Kind {
		case ast.ContentText:
			off := l.prog.Strings.Intern(c.Name)
			strIdx := l.prog.Emit(Instr{Op: String, Str: off, RHS: len(c.Name)})
			l.prog.Append(destSeq, strIdx)
			last = l.prog.Emit(Instr{Op: ContentPush, LHS: strIdx})
			l.prog.Append(destSeq, last)
		case ast.Divert, ast.Tunnel, ast.Thread:
			l.lowerDivert(c, scope, destSeq)
		case ast.SequenceExpr, ast.ConditionalContent:
			// Each alternative already pushes its own content; there is no
			// value left for a ContentPush to consume.
			last = l.lowerExpr(c, scope, destSeq)
		default:
			idx := l.lowerExpr(c, scope, destSeq)
			last = l.prog.Emit(Instr{Op: ContentPush, LHS: idx})
			l.prog.Append(destSeq, last)
		}
	}
	return last
}

// lowerVarDecl lowers VAR/CONST (always a true global, regardless of
// lexical position) and temp (a function-local).
func (l *Lowerer) lowerVarDecl(n *ast.Node, scope *symtab.Scope, seq int) {
	target := l.globals
	kind := symtab.Global
	slotKind := SlotGlobal
	if n.Kind == ast.TempDecl {
		target = scope
		kind = symtab.Local
		slotKind = SlotLocal
	}

	sym, fresh := target.Declare(n.Name, kind)
	if !fresh {
		l.report(diag.Redefinition, n.Start, n.End, n.Name)
	}
	sym.Const = n.Kind == ast.ConstDecl
	if kind == symtab.Global {
		sym.Slot = l.prog.Strings.Intern(n.Name)
	}

	nameLen := 0
	if slotKind == SlotGlobal {
		nameLen = len(n.Name)
	}
	allocIdx := l.prog.Emit(Instr{Op: Alloc, Slot: sym.Slot, Kind: slotKind, Name: nameLen})
	l.prog.Append(seq, allocIdx)

	valIdx := l.lowerExpr(n.RHS, scope, seq)
	storeIdx := l.prog.Emit(Instr{Op: Store, Slot: sym.Slot, Kind: slotKind, RHS: valIdx, Name: nameLen})
	l.prog.Append(seq, storeIdx)
}

// lowerListDecl lowers "LIST name = a, b, c" into a global holding the
// list's current value (initialized to the first item's ordinal) plus one
// global per item holding its ordinal, addressable as "name.item".
func (l *Lowerer) lowerListDecl(n *ast.Node, scope *symtab.Scope, seq int) {
	sym, fresh := l.globals.Declare(n.Name, symtab.Global)
	if !fresh {
		l.report(diag.Redefinition, n.Start, n.End, n.Name)
	}
	sym.Slot = l.prog.Strings.Intern(n.Name)
	nameLen := len(n.Name)

	l.prog.Append(seq, l.prog.Emit(Instr{Op: Alloc, Slot: sym.Slot, Kind: SlotGlobal, Name: nameLen}))
	zeroIdx := l.prog.Emit(Instr{Op: Number, Num: 0})
	l.prog.Append(seq, zeroIdx)
	l.prog.Append(seq, l.prog.Emit(Instr{Op: Store, Slot: sym.Slot, Kind: SlotGlobal, RHS: zeroIdx, Name: nameLen}))

	for i, item := range n.Children {
		itemName := n.Name + "." + item.Name
		itemSym, freshItem := l.globals.Declare(itemName, symtab.Global)
		if !freshItem {
			l.report(diag.Redefinition, item.Start, item.End, itemName)
		}
		itemSym.Slot = l.prog.Strings.Intern(itemName)
		itemNameLen := len(itemName)
		l.prog.Append(seq, l.prog.Emit(Instr{Op: Alloc, Slot: itemSym.Slot, Kind: SlotGlobal, Name: itemNameLen}))
		ordIdx := l.prog.Emit(Instr{Op: Number, Num: float64(i)})
		l.prog.Append(seq, ordIdx)
		l.prog.Append(seq, l.prog.Emit(Instr{Op: Store, Slot: itemSym.Slot, Kind: SlotGlobal, RHS: ordIdx, Name: itemNameLen}))
	}
}

// lowerAssignStmt lowers a '~'-line assignment "target = expr".
func (l *Lowerer) lowerAssignStmt(n *ast.Node, scope *symtab.Scope, seq int) {
	target := n.LHS
	if target == nil || target.Kind != ast.Ident {
		l.report(diag.SyntaxError, n.Start, n.End, "invalid assignment target")
		return
	}
	sym, ok := scope.Lookup(target.Name)
	if !ok {
		l.report(diag.UnknownIdentifier, target.Start, target.End, target.Name)
		return
	}
	if sym.Const {
		l.report(diag.SyntaxError, target.Start, target.End, "cannot assign to a CONST")
	}

	valIdx := l.lowerExpr(n.RHS, scope, seq)
	kind := SlotLocal
	nameLen := 0
	if sym.Kind == symtab.Global {
		kind = SlotGlobal
		nameLen = len(sym.Name)
	}
	idx := l.prog.Emit(Instr{Op: Store, Slot: sym.Slot, Kind: kind, RHS: valIdx, Name: nameLen})
	l.prog.Append(seq, idx)
}

// lowerDivert lowers a Divert/Tunnel/Thread, reusing the call-expression
// payload as spec.md 4.3 suggests. Num tags which of the three it is
// (0 divert, 1 tunnel, 2 thread) for the VM to interpret at CALL time. A
// plain divert never returns control here, so nothing needs discarding; a
// tunnel or thread does return (it pushed a frame), leaving one value on
// the stack from the callee's Ret that this statement never uses.
func (l *Lowerer) lowerDivert(n *ast.Node, scope *symtab.Scope, seq int) {
	argsSeq := l.prog.NewSeq()
	for _, a := range n.Children {
		l.lowerExpr(a, scope, argsSeq)
	}
	nameOff := l.prog.Strings.Intern(n.Name)
	tag := 0.0
	returns := false
	switch n.Kind {
	case ast.Tunnel:
		tag = 1
		returns = true
	case ast.Thread:
		tag = 2
		returns = true
	}
	idx := l.prog.Emit(Instr{Op: Call, Name: nameOff, RHS: len(n.Name), Seq: argsSeq, Num: tag})
	l.prog.Append(seq, idx)
	if returns {
		l.prog.Append(seq, l.prog.Emit(Instr{Op: Pop, LHS: idx}))
	}
}

// lowerCall lowers a `foo(args)` call expression, checking arity against
// the callee's pre-declared signature.
func (l *Lowerer) lowerCall(n *ast.Node, scope *symtab.Scope, seq int) int {
	callee := n.LHS
	sym, ok := l.globals.LookupLocal(callee.Name)
	if !ok {
		l.report(diag.UnknownIdentifier, callee.Start, callee.End, callee.Name)
	} else if len(n.Children) < sym.Arity {
		l.report(diag.TooFewArguments, n.Start, n.End, callee.Name)
	} else if len(n.Children) > sym.Arity {
		l.report(diag.TooManyArguments, n.Start, n.End, callee.Name)
	}

	argsSeq := l.prog.NewSeq()
	for _, a := range n.Children {
		l.lowerExpr(a, scope, argsSeq)
	}
	nameOff := l.prog.Strings.Intern(callee.Name)
	// Num 1 compiles to CALL, which pushes a frame and returns the callee's
	// value here, rather than to a non-returning DIVERT.
	idx := l.prog.Emit(Instr{Op: Call, Num: 1, Name: nameOff, RHS: len(callee.Name), Seq: argsSeq})
	l.prog.Append(seq, idx)
	return idx
}

// lowerChoice lowers a ChoiceStar/ChoicePlus into a ChoicePush whose body
// sequence is the choice's own content line (including any embedded
// divert). The presented label is the bracketed "[label]" text if given,
// else the content line's plain text.
func (l *Lowerer) lowerChoice(n *ast.Node, scope *symtab.Scope, seq int) {
	label := n.Name
	if label == "" && n.RHS != nil {
		label = plainText(n.RHS)
	}
	labelOff := l.prog.Strings.Intern(label)

	bodySeq := l.prog.NewSeq()
	if n.RHS != nil {
		l.lowerContentLine(n.RHS, scope, bodySeq)
	}

	idx := l.prog.Emit(Instr{Op: ChoicePush, Name: labelOff, RHS: len(label), Seq: bodySeq})
	l.prog.Append(seq, idx)
}

func plainText(n *ast.Node) string {
	var sb strings.Builder
	for _, c := range n.Children {
		if c.Kind == ast.ContentText {
			sb.WriteString(c.Name)
		}
	}
	return sb.String()
}

// lowerExpr lowers an expression AST node, returning the index of the
// instruction that produces its value. SequenceExpr and ConditionalContent
// are the exceptions: their alternatives push their own content, and the
// returned Switch/CondBr leaves no value on the stack.
func (l *Lowerer) lowerExpr(n *ast.Node, scope *symtab.Scope, seq int) int {
	if n == nil {
		idx := l.prog.Emit(Instr{Op: False})
		l.prog.Append(seq, idx)
		return idx
	}

	switch n.Kind {
	case ast.NumberLit:
		v, _ := strconv.ParseFloat(n.Name, 64)
		idx := l.prog.Emit(Instr{Op: Number, Num: v})
		l.prog.Append(seq, idx)
		return idx

	case ast.StringLit, ast.ContentText:
		off := l.prog.Strings.Intern(n.Name)
		idx := l.prog.Emit(Instr{Op: String, Str: off, RHS: len(n.Name)})
		l.prog.Append(seq, idx)
		return idx

	case ast.BoolLit:
		op := False
		if n.Name == "true" {
			op = True
		}
		idx := l.prog.Emit(Instr{Op: op})
		l.prog.Append(seq, idx)
		return idx

	case ast.Ident:
		sym, ok := scope.Lookup(n.Name)
		if !ok {
			l.report(diag.UnknownIdentifier, n.Start, n.End, n.Name)
			idx := l.prog.Emit(Instr{Op: False})
			l.prog.Append(seq, idx)
			return idx
		}
		kind := SlotLocal
		nameLen := 0
		if sym.Kind == symtab.Global {
			kind = SlotGlobal
			nameLen = len(sym.Name)
		}
		idx := l.prog.Emit(Instr{Op: Load, Slot: sym.Slot, Kind: kind, Name: nameLen})
		l.prog.Append(seq, idx)
		return idx

	case ast.BinaryExpr:
		switch n.Op() {
		case ast.OpAnd:
			return l.lowerLogical(n, scope, seq, true)
		case ast.OpOr:
			return l.lowerLogical(n, scope, seq, false)
		default:
			lhs := l.lowerExpr(n.LHS, scope, seq)
			rhs := l.lowerExpr(n.RHS, scope, seq)
			idx := l.prog.Emit(Instr{Op: binOp(n.Op()), LHS: lhs, RHS: rhs})
			l.prog.Append(seq, idx)
			return idx
		}

	case ast.UnaryExpr:
		lhs := l.lowerExpr(n.LHS, scope, seq)
		op := Neg
		if n.Op() == ast.OpNot {
			op = Not
		}
		idx := l.prog.Emit(Instr{Op: op, LHS: lhs})
		l.prog.Append(seq, idx)
		return idx

	case ast.CallExpr:
		return l.lowerCall(n, scope, seq)

	case ast.ConditionalContent:
		return l.lowerConditional(n, scope, seq)

	case ast.SequenceExpr:
		return l.lowerSequence(n, scope, seq)

	case ast.Block:
		last := l.lowerBlockInto(n, scope, seq)
		if last == -1 {
			idx := l.prog.Emit(Instr{Op: False})
			l.prog.Append(seq, idx)
			return idx
		}
		return last

	default:
		idx := l.prog.Emit(Instr{Op: False})
		l.prog.Append(seq, idx)
		return idx
	}
}

// lowerLogical lowers a short-circuit 'and'/'or' as a CondBr: for 'and',
// the then-arm evaluates the right operand and the else-arm pushes false;
// for 'or' it's the reverse. Both arms leave exactly one value on the
// stack, so the CondBr's own bytecode (a conditional skip over one arm)
// doubles as the expression's value-producing code with no extra machinery.
func (l *Lowerer) lowerLogical(n *ast.Node, scope *symtab.Scope, seq int, isAnd bool) int {
	cond := l.lowerExpr(n.LHS, scope, seq)
	thenSeq := l.prog.NewSeq()
	elseSeq := l.prog.NewSeq()
	if isAnd {
		l.lowerExpr(n.RHS, scope, thenSeq)
		l.prog.Append(elseSeq, l.prog.Emit(Instr{Op: False}))
	} else {
		l.prog.Append(thenSeq, l.prog.Emit(Instr{Op: True}))
		l.lowerExpr(n.RHS, scope, elseSeq)
	}
	idx := l.prog.Emit(Instr{Op: CondBr, LHS: cond, Seq: thenSeq, Seq2: elseSeq})
	l.prog.Append(seq, idx)
	return idx
}

// lowerConditional lowers "{cond: then|else...}" into a CondBr. Only the
// first two alternatives participate as then/else; any further
// alternatives are concatenated into the else arm, since the parser's
// ConditionalContent only ever carries a single top-level condition.
func (l *Lowerer) lowerConditional(n *ast.Node, scope *symtab.Scope, seq int) int {
	cond := l.lowerExpr(n.LHS, scope, seq)
	thenSeq := l.prog.NewSeq()
	elseSeq := l.prog.NewSeq()
	if len(n.Children) > 0 {
		l.lowerBlockInto(n.Children[0], scope, thenSeq)
	}
	for _, extra := range n.Children[min(1, len(n.Children)):] {
		l.lowerBlockInto(extra, scope, elseSeq)
	}
	idx := l.prog.Emit(Instr{Op: CondBr, LHS: cond, Seq: thenSeq, Seq2: elseSeq})
	l.prog.Append(seq, idx)
	return idx
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// lowerSequence lowers "{a|b|c}" (optionally flagged for cycle/shuffle/
// once) into a hidden per-occurrence visit counter plus a Switch over the
// alternatives. The counter is a synthetic global named "$seqN", seeded to 0
// only the first time this statement runs (Alloc -> INIT_GLOBAL): the
// containing content can be replayed many times across a story (revisiting a
// knot re-executes its body from the top), and the counter must keep
// advancing across those replays rather than resetting to 0 on each one. Its
// mapping to a case selector depends on the policy:
//
//   - Stopping (default): the raw visit count is the selector; once it
//     reaches or exceeds the last alternative's index, Switch's own
//     default-case fallback naturally repeats the final alternative.
//   - Cycle / Shuffle: the count modulo the alternative count is the
//     selector, so it wraps. True per-instance shuffling is out of scope
//     for this IR; shuffle is lowered identically to cycle.
//   - Once: the raw count is the selector, but once it's out of range (no
//     case matches) the default arm is empty, so the sequence falls
//     silent after a single pass.
func (l *Lowerer) lowerSequence(n *ast.Node, scope *symtab.Scope, seq int) int {
	name := fmt.Sprintf("$seq%d", l.seqCounter)
	l.seqCounter++
	sym, _ := l.globals.Declare(name, symtab.Global)
	sym.Slot = l.prog.Strings.Intern(name)
	nameLen := len(name)

	// Alloc seeds the counter to 0 the first time this statement is ever
	// reached and is a no-op on every later visit (bytecode.INIT_GLOBAL), so
	// revisiting the knot that contains this sequence does not reset it.
	l.prog.Append(seq, l.prog.Emit(Instr{Op: Alloc, Slot: sym.Slot, Kind: SlotGlobal, Name: nameLen}))

	loadIdx := l.prog.Emit(Instr{Op: Load, Slot: sym.Slot, Kind: SlotGlobal, Name: nameLen})
	l.prog.Append(seq, loadIdx)

	nAlts := len(n.Children)
	selector := loadIdx
	switch n.SeqPolicy() {
	case ast.FlagSeqCycle, ast.FlagSeqShuffle:
		modOperand := l.prog.Emit(Instr{Op: Number, Num: float64(nAlts)})
		l.prog.Append(seq, modOperand)
		selector = l.prog.Emit(Instr{Op: Mod, LHS: loadIdx, RHS: modOperand})
		l.prog.Append(seq, selector)
	}

	casesSeq := l.prog.NewSeq()
	for i, alt := range n.Children {
		caseBody := l.prog.NewSeq()
		l.lowerBlockInto(alt, scope, caseBody)
		valIdx := l.prog.Emit(Instr{Op: Number, Num: float64(i)})
		caseIdx := l.prog.Emit(Instr{Op: SwitchCase, LHS: valIdx, Seq: caseBody})
		l.prog.Append(casesSeq, caseIdx)
	}

	def := l.prog.NewSeq()
	if n.SeqPolicy() != ast.FlagSeqOnce && nAlts > 0 {
		l.lowerBlockInto(n.Children[nAlts-1], scope, def)
	}

	swIdx := l.prog.Emit(Instr{Op: Switch, LHS: selector, Seq: casesSeq, Seq2: def})
	l.prog.Append(seq, swIdx)

	oneIdx := l.prog.Emit(Instr{Op: Number, Num: 1})
	l.prog.Append(seq, oneIdx)
	reloadIdx := l.prog.Emit(Instr{Op: Load, Slot: sym.Slot, Kind: SlotGlobal, Name: nameLen})
	l.prog.Append(seq, reloadIdx)
	addIdx := l.prog.Emit(Instr{Op: Add, LHS: reloadIdx, RHS: oneIdx})
	l.prog.Append(seq, addIdx)
	l.prog.Append(seq, l.prog.Emit(Instr{Op: Store, Slot: sym.Slot, Kind: SlotGlobal, RHS: addIdx, Name: nameLen}))

	return swIdx
}

func binOp(op ast.Op) Op {
	switch op {
	case ast.OpAdd:
		return Add
	case ast.OpSub:
		return Sub
	case ast.OpMul:
		return Mul
	case ast.OpDiv:
		return Div
	case ast.OpMod:
		return Mod
	case ast.OpEq:
		return CmpEq
	case ast.OpNeq:
		return CmpNeq
	case ast.OpLt:
		return CmpLt
	case ast.OpLte:
		return CmpLte
	case ast.OpGt:
		return CmpGt
	case ast.OpGte:
		return CmpGte
	default:
		return Add
	}
}
