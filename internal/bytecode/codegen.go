package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/ink-lang/ink/internal/ir"
)

// Compile translates every ir.Func into a bytecode.Path and returns the
// resulting Program. Instructions are emitted by replaying each IR
// sequence top to bottom: lowering already leaves every operand-producing
// instruction immediately before its sole consumer in the same sequence
// (spec.md 4.3's index-addressed IR is a dataflow graph, but this
// lowering's evaluation order happens to already be a valid stack-machine
// trace), so most opcodes translate 1:1 with no extra bookkeeping. The two
// exceptions are documented on emitSwitch and emitChoiceRun below.
func Compile(prog *ir.Program, funcs []*ir.Func) (*Program, error) {
	out := NewProgram()
	for _, fn := range funcs {
		path := &Path{
			Name:       fn.Name,
			LocalCount: fn.LocalCount,
			Arity:      fn.Arity,
			IsFunction: fn.IsFunction,
		}
		e := &emitter{prog: prog, path: path, constIdx: make(map[Const]int)}
		e.emitSeq(fn.Body)
		if e.err != nil {
			return nil, e.err
		}
		out.AddPath(path)
	}
	return out, nil
}

type emitter struct {
	prog     *ir.Program
	path     *Path
	constIdx map[Const]int
	err      error
}

func (e *emitter) fail(format string, args ...interface{}) {
	if e.err == nil {
		e.err = fmt.Errorf(format, args...)
	}
}

func (e *emitter) constIndex(c Const) int {
	if idx, ok := e.constIdx[c]; ok {
		return idx
	}
	idx := len(e.path.Consts)
	e.path.Consts = append(e.path.Consts, c)
	e.constIdx[c] = idx
	return idx
}

// emit appends one instruction (opcode + 4-byte little-endian operand) and
// returns the byte offset it was written at.
func (e *emitter) emit(op Op, operand int32) int {
	pos := len(e.path.Code)
	var buf [InstrSize]byte
	buf[0] = byte(op)
	binary.LittleEndian.PutUint32(buf[1:], uint32(operand))
	e.path.Code = append(e.path.Code, buf[:]...)
	return pos
}

// patch overwrites the operand of the instruction at pos with a relative
// offset from the end of that instruction to e.here().
func (e *emitter) patch(pos int) {
	offset := int32(e.here() - (pos + InstrSize))
	binary.LittleEndian.PutUint32(e.path.Code[pos+1:pos+InstrSize], uint32(offset))
}

func (e *emitter) here() int {
	return len(e.path.Code)
}

// emitSeq replays sequence seqID in order. Most IR ops translate directly;
// see the per-case comments for the few that need structural handling.
func (e *emitter) emitSeq(seqID int) {
	if seqID == ir.NoSeq || e.err != nil {
		return
	}
	instrs := e.prog.Seqs[seqID]
	for i := 0; i < len(instrs); i++ {
		idx := instrs[i]
		instr := e.prog.Instrs[idx]

		switch instr.Op {
		case ir.Number:
			e.emit(LOAD_CONST, int32(e.constIndex(Const{Kind: ConstNumber, Num: instr.Num})))
		case ir.String:
			s := string(e.prog.Strings.Bytes(instr.Str, instr.RHS))
			e.emit(LOAD_CONST, int32(e.constIndex(Const{Kind: ConstString, Str: s})))
		case ir.True:
			e.emit(TRUE, 0)
		case ir.False:
			e.emit(FALSE, 0)
		case ir.Add:
			e.emit(ADD, 0)
		case ir.Sub:
			e.emit(SUB, 0)
		case ir.Mul:
			e.emit(MUL, 0)
		case ir.Div:
			e.emit(DIV, 0)
		case ir.Mod:
			e.emit(MOD, 0)
		case ir.Neg:
			e.emit(NEG, 0)
		case ir.Not:
			e.emit(NOT, 0)
		case ir.CmpEq:
			e.emit(CMP_EQ, 0)
		case ir.CmpNeq:
			// Tie-break for inequality: CMP_EQ followed by NOT, per spec.md 4.4.
			e.emit(CMP_EQ, 0)
			e.emit(NOT, 0)
		case ir.CmpLt:
			e.emit(CMP_LT, 0)
		case ir.CmpLte:
			e.emit(CMP_LTE, 0)
		case ir.CmpGt:
			e.emit(CMP_GT, 0)
		case ir.CmpGte:
			e.emit(CMP_GTE, 0)
		case ir.Load:
			e.emitLoad(instr)
		case ir.Store:
			e.emitStore(instr)
		case ir.Pop:
			e.emit(POP, 0)
		case ir.Alloc:
			e.emitAlloc(instr)
		case ir.ContentPush:
			e.emit(CONTENT_PUSH, 0)
		case ir.Done:
			e.emit(DONE, 0)
		case ir.End:
			e.emit(END, 0)
		case ir.Ret:
			e.emit(RET, 0)
		case ir.CondBr:
			e.emitCondBr(instr)
		case ir.Call:
			e.emitCall(instr)
		case ir.Switch:
			e.emitSwitch(instr)
		case ir.ChoicePush:
			i = e.emitChoiceRun(instrs, i)
		case ir.Block, ir.Declaration, ir.SwitchCase:
			// Block is always inlined by the lowering pass rather than
			// appearing as its own sequence entry; Declaration is reserved
			// IR vocabulary this lowering pass never emits; SwitchCase is
			// only ever visited from emitSwitch via its own cases list.
		default:
			e.fail("bytecode: unhandled ir op %v", instr.Op)
		}
		if e.err != nil {
			return
		}
	}
}

func (e *emitter) emitLoad(instr ir.Instr) {
	if instr.Kind == ir.SlotGlobal {
		name := string(e.prog.Strings.Bytes(instr.Slot, instr.Name))
		e.emit(LOAD_GLOBAL, int32(e.constIndex(Const{Kind: ConstString, Str: name})))
		return
	}
	e.emit(LOAD_LOCAL, int32(instr.Slot))
}

// emitAlloc compiles a declaration's binding site. A local's storage is a
// slot already reserved in the path's Locals array, so there is nothing to
// emit; a global's binding must only be seeded with Number 0 the first time
// it is ever reached, since the declaring statement can be re-entered on
// later visits (INIT_GLOBAL is a no-op past the first run).
func (e *emitter) emitAlloc(instr ir.Instr) {
	if instr.Kind != ir.SlotGlobal {
		return
	}
	name := string(e.prog.Strings.Bytes(instr.Slot, instr.Name))
	e.emit(INIT_GLOBAL, int32(e.constIndex(Const{Kind: ConstString, Str: name})))
}

func (e *emitter) emitStore(instr ir.Instr) {
	if instr.Kind == ir.SlotGlobal {
		name := string(e.prog.Strings.Bytes(instr.Slot, instr.Name))
		e.emit(STORE_GLOBAL, int32(e.constIndex(Const{Kind: ConstString, Str: name})))
		return
	}
	e.emit(STORE_LOCAL, int32(instr.Slot))
}

// emitCondBr compiles an if/else: the condition's value is already on the
// stack from the instructions replayed immediately before this one.
//
//	CONDBR else        ; pops cond, jumps to else if falsey
//	<then>
//	BR end
//	else:
//	<else>
//	end:
func (e *emitter) emitCondBr(instr ir.Instr) {
	condBr := e.emit(CONDBR, 0)
	e.emitSeq(instr.Seq)
	br := e.emit(BR, 0)
	e.patch(condBr)
	e.emitSeq(instr.Seq2)
	e.patch(br)
}

// emitCall compiles a Call/Divert/Tunnel/Thread: push the argument values,
// then either DIVERT (plain divert, never returns here) or CALL (function
// call, tunnel or thread, which pushes a frame and does return here).
func (e *emitter) emitCall(instr ir.Instr) {
	e.emitSeq(instr.Seq)
	name := string(e.prog.Strings.Bytes(instr.Name, instr.RHS))
	k := e.constIndex(Const{Kind: ConstString, Str: name})
	if instr.Num == 0 {
		e.emit(DIVERT, int32(k))
		return
	}
	e.emit(CALL, int32(k))
}

// emitSwitch compiles an ir.Switch/SwitchCase pair into a CMP_EQ/CONDBR
// cascade, since the bytecode opcode set (spec.md 4.4) has no native
// switch. The selector's single pushed value needs to be read once per
// case; bytecode has no DUP, so it is spilled into a scratch local slot
// allocated on top of the path's declared locals and reloaded before each
// comparison.
func (e *emitter) emitSwitch(instr ir.Instr) {
	scratch := e.path.LocalCount
	e.path.LocalCount++
	e.emit(STORE_LOCAL, int32(scratch))

	var ends []int
	cases := e.prog.Seqs[instr.Seq]
	for _, caseIdx := range cases {
		c := e.prog.Instrs[caseIdx]
		e.emit(LOAD_LOCAL, int32(scratch))
		e.emitValue(c.LHS)
		e.emit(CMP_EQ, 0)
		condBr := e.emit(CONDBR, 0)
		e.emitSeq(c.Seq)
		ends = append(ends, e.emit(BR, 0))
		e.patch(condBr)
	}
	e.emitSeq(instr.Seq2)
	for _, pos := range ends {
		e.patch(pos)
	}
}

// emitValue re-materializes the value an instruction produces when it was
// deliberately not placed in any replayed sequence (only SwitchCase's
// comparison literal, an ir.Number never appended to a sequence by the
// lowering pass since it is referenced purely by index).
func (e *emitter) emitValue(idx int) {
	instr := e.prog.Instrs[idx]
	switch instr.Op {
	case ir.Number:
		e.emit(LOAD_CONST, int32(e.constIndex(Const{Kind: ConstNumber, Num: instr.Num})))
	case ir.String:
		s := string(e.prog.Strings.Bytes(instr.Str, instr.RHS))
		e.emit(LOAD_CONST, int32(e.constIndex(Const{Kind: ConstString, Str: s})))
	case ir.True:
		e.emit(TRUE, 0)
	case ir.False:
		e.emit(FALSE, 0)
	case ir.Load:
		e.emitLoad(instr)
	default:
		e.fail("bytecode: unsupported out-of-sequence value op %v", instr.Op)
	}
}

// emitChoiceRun compiles one run of consecutive ChoicePush statements. Each
// choice's label is carried directly in its ChoicePush instruction (a
// string-pool offset/length pair, not a separately replayed value), so it
// is loaded as a constant right before the CHOICE_PUSH that presents it.
// CHOICE_PUSH's own operand is a forward offset to its body, patched once
// the body's code is known. Choice bodies are placed immediately after the
// run's trailing DONE, one after another, each ending in its own DONE,
// after which only Choose resumes execution. Every body but the last also
// gets a trailing BR past the rest of the run, so execution that reaches
// the end of a body never falls through into a sibling body that was not
// selected. Returns the index into
// instrs of the last ChoicePush consumed, so the caller's loop resumes
// right after the run.
func (e *emitter) emitChoiceRun(instrs []int, start int) int {
	type pending struct {
		pushPos int
		body    int
	}
	var runs []pending

	i := start
	for i < len(instrs) {
		instr := e.prog.Instrs[instrs[i]]
		if instr.Op != ir.ChoicePush {
			break
		}
		name := string(e.prog.Strings.Bytes(instr.Name, instr.RHS))
		e.emit(LOAD_CONST, int32(e.constIndex(Const{Kind: ConstString, Str: name})))
		pushPos := e.emit(CHOICE_PUSH, 0)
		runs = append(runs, pending{pushPos: pushPos, body: instr.Seq})
		i++
	}

	e.emit(DONE, 0)

	var ends []int
	for n, r := range runs {
		e.patch(r.pushPos)
		e.emitSeq(r.body)
		if n < len(runs)-1 {
			ends = append(ends, e.emit(BR, 0))
		}
	}
	for _, pos := range ends {
		e.patch(pos)
	}

	return i - 1
}
