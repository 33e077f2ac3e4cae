package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ink-lang/ink/internal/bytecode"
	"github.com/ink-lang/ink/internal/ir"
)

// build assembles a one-function ir.Program whose body sequence is exactly
// the given instructions, and compiles it.
func build(t *testing.T, instrs ...ir.Instr) *bytecode.Path {
	t.Helper()
	prog := ir.NewProgram()
	body := prog.NewSeq()
	for _, in := range instrs {
		prog.Append(body, prog.Emit(in))
	}
	fn := &ir.Func{Name: "", Body: body}
	out, err := bytecode.Compile(prog, []*ir.Func{fn})
	require.NoError(t, err)
	require.Len(t, out.Paths, 1)
	return out.Paths[0]
}

func decode(code []byte) []bytecode.Op {
	var ops []bytecode.Op
	for pc := 0; pc < len(code); pc += bytecode.InstrSize {
		ops = append(ops, bytecode.Op(code[pc]))
	}
	return ops
}

func TestCompileArithmeticReplaysFlat(t *testing.T) {
	p := build(t,
		ir.Instr{Op: ir.Number, Num: 2},
		ir.Instr{Op: ir.Number, Num: 3},
		ir.Instr{Op: ir.Add},
		ir.Instr{Op: ir.Ret},
	)
	require.Equal(t, []bytecode.Op{bytecode.LOAD_CONST, bytecode.LOAD_CONST, bytecode.ADD, bytecode.RET}, decode(p.Code))
	require.Len(t, p.Consts, 2)
}

func TestCompileCmpNeqIsEqThenNot(t *testing.T) {
	p := build(t,
		ir.Instr{Op: ir.Number, Num: 1},
		ir.Instr{Op: ir.Number, Num: 2},
		ir.Instr{Op: ir.CmpNeq},
		ir.Instr{Op: ir.Ret},
	)
	require.Equal(t, []bytecode.Op{bytecode.LOAD_CONST, bytecode.LOAD_CONST, bytecode.CMP_EQ, bytecode.NOT, bytecode.RET}, decode(p.Code))
}

func TestCompileCondBrBackpatchesBothTargets(t *testing.T) {
	prog := ir.NewProgram()
	thenSeq := prog.NewSeq()
	prog.Append(thenSeq, prog.Emit(ir.Instr{Op: ir.True}))
	elseSeq := prog.NewSeq()
	prog.Append(elseSeq, prog.Emit(ir.Instr{Op: ir.False}))

	body := prog.NewSeq()
	prog.Append(body, prog.Emit(ir.Instr{Op: ir.True}))
	prog.Append(body, prog.Emit(ir.Instr{Op: ir.CondBr, Seq: thenSeq, Seq2: elseSeq}))
	prog.Append(body, prog.Emit(ir.Instr{Op: ir.Ret}))

	fn := &ir.Func{Name: "", Body: body}
	out, err := bytecode.Compile(prog, []*ir.Func{fn})
	require.NoError(t, err)
	p := out.Paths[0]

	ops := decode(p.Code)
	require.Equal(t, []bytecode.Op{
		bytecode.TRUE,   // condition
		bytecode.CONDBR, // -> else
		bytecode.TRUE,   // then
		bytecode.BR,     // -> end
		bytecode.FALSE,  // else
		bytecode.RET,
	}, ops)

	// CONDBR's operand must land exactly on the FALSE instruction (else arm).
	condBrPos := 1 * bytecode.InstrSize
	condOperand := readOperand(p.Code, condBrPos)
	elseStart := 4 * bytecode.InstrSize
	require.Equal(t, int32(elseStart-(condBrPos+bytecode.InstrSize)), condOperand)

	// BR's operand must land exactly on RET (the end).
	brPos := 3 * bytecode.InstrSize
	brOperand := readOperand(p.Code, brPos)
	end := 5 * bytecode.InstrSize
	require.Equal(t, int32(end-(brPos+bytecode.InstrSize)), brOperand)
}

func readOperand(code []byte, pos int) int32 {
	var b [4]byte
	copy(b[:], code[pos+1:pos+bytecode.InstrSize])
	return int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

func TestCompileSwitchUsesScratchLocal(t *testing.T) {
	prog := ir.NewProgram()

	caseVal := prog.Emit(ir.Instr{Op: ir.Number, Num: 1})
	caseBody := prog.NewSeq()
	prog.Append(caseBody, prog.Emit(ir.Instr{Op: ir.True}))
	caseInstr := prog.Emit(ir.Instr{Op: ir.SwitchCase, LHS: caseVal, Seq: caseBody})
	cases := prog.NewSeq()
	prog.Append(cases, caseInstr)

	defBody := prog.NewSeq()
	prog.Append(defBody, prog.Emit(ir.Instr{Op: ir.False}))

	body := prog.NewSeq()
	prog.Append(body, prog.Emit(ir.Instr{Op: ir.Number, Num: 1})) // selector
	prog.Append(body, prog.Emit(ir.Instr{Op: ir.Switch, Seq: cases, Seq2: defBody}))
	prog.Append(body, prog.Emit(ir.Instr{Op: ir.Ret}))

	fn := &ir.Func{Name: "", Body: body, LocalCount: 0}
	out, err := bytecode.Compile(prog, []*ir.Func{fn})
	require.NoError(t, err)
	p := out.Paths[0]

	require.Equal(t, 1, p.LocalCount, "the selector spill bumps LocalCount by one scratch slot")

	ops := decode(p.Code)
	require.Contains(t, ops, bytecode.STORE_LOCAL)
	require.Contains(t, ops, bytecode.LOAD_LOCAL)
	require.Contains(t, ops, bytecode.CMP_EQ)
}

func TestCompileChoicePushBodyFollowsDone(t *testing.T) {
	prog := ir.NewProgram()
	body1 := prog.NewSeq()
	prog.Append(body1, prog.Emit(ir.Instr{Op: ir.ContentPush}))

	nameOff := prog.Strings.Intern("go left")

	body := prog.NewSeq()
	prog.Append(body, prog.Emit(ir.Instr{Op: ir.ChoicePush, Name: nameOff, RHS: len("go left"), Seq: body1}))
	prog.Append(body, prog.Emit(ir.Instr{Op: ir.End}))

	fn := &ir.Func{Name: "", Body: body}
	out, err := bytecode.Compile(prog, []*ir.Func{fn})
	require.NoError(t, err)
	p := out.Paths[0]

	ops := decode(p.Code)
	// LOAD_CONST(label), CHOICE_PUSH, DONE, <body: CONTENT_PUSH>, END
	require.Equal(t, []bytecode.Op{
		bytecode.LOAD_CONST,
		bytecode.CHOICE_PUSH,
		bytecode.DONE,
		bytecode.CONTENT_PUSH,
		bytecode.END,
	}, ops)

	choicePushPos := 1 * bytecode.InstrSize
	operand := readOperand(p.Code, choicePushPos)
	bodyStart := 3 * bytecode.InstrSize
	require.Equal(t, int32(bodyStart-(choicePushPos+bytecode.InstrSize)), operand)
}

func TestCompileDivertVsCall(t *testing.T) {
	prog := ir.NewProgram()
	nameOff := prog.Strings.Intern("knot_a")

	args := prog.NewSeq()
	body := prog.NewSeq()
	prog.Append(body, prog.Emit(ir.Instr{Op: ir.Call, Name: nameOff, RHS: len("knot_a"), Seq: args, Num: 0}))

	fn := &ir.Func{Name: "", Body: body}
	out, err := bytecode.Compile(prog, []*ir.Func{fn})
	require.NoError(t, err)
	require.Equal(t, []bytecode.Op{bytecode.DIVERT}, decode(out.Paths[0].Code))

	prog2 := ir.NewProgram()
	nameOff2 := prog2.Strings.Intern("knot_b")
	args2 := prog2.NewSeq()
	body2 := prog2.NewSeq()
	prog2.Append(body2, prog2.Emit(ir.Instr{Op: ir.Call, Name: nameOff2, RHS: len("knot_b"), Seq: args2, Num: 1}))
	fn2 := &ir.Func{Name: "", Body: body2}
	out2, err := bytecode.Compile(prog2, []*ir.Func{fn2})
	require.NoError(t, err)
	require.Equal(t, []bytecode.Op{bytecode.CALL}, decode(out2.Paths[0].Code))
}
