package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ink-lang/ink/internal/bytecode"
	"github.com/ink-lang/ink/internal/config"
	"github.com/ink-lang/ink/internal/vm"
)

// asm is a tiny fixed-width bytecode assembler for hand-built test programs;
// it mirrors the encoding internal/bytecode/codegen.go emits (1-byte opcode,
// 4-byte little-endian operand) without going through Compile.
type asm struct {
	code []byte
}

func (a *asm) emit(op bytecode.Op, operand int32) int {
	pos := len(a.code)
	buf := make([]byte, bytecode.InstrSize)
	buf[0] = byte(op)
	buf[1] = byte(operand)
	buf[2] = byte(operand >> 8)
	buf[3] = byte(operand >> 16)
	buf[4] = byte(operand >> 24)
	a.code = append(a.code, buf...)
	return pos
}

func (a *asm) patch(pos int, operand int32) {
	a.code[pos+1] = byte(operand)
	a.code[pos+2] = byte(operand >> 8)
	a.code[pos+3] = byte(operand >> 16)
	a.code[pos+4] = byte(operand >> 24)
}

func (a *asm) here() int { return len(a.code) }

func newStory(t *testing.T) *vm.Story {
	t.Helper()
	return vm.New(config.Default(), nil, true, false, false, false)
}

func TestContentPushThenDoneSuspends(t *testing.T) {
	var a asm
	a.emit(bytecode.LOAD_CONST, 0)
	a.emit(bytecode.CONTENT_PUSH, 0)
	a.emit(bytecode.DONE, 0)
	a.emit(bytecode.END, 0)

	prog := bytecode.NewProgram()
	prog.AddPath(&bytecode.Path{
		Name:   "",
		Code:   a.code,
		Consts: []bytecode.Const{{Kind: bytecode.ConstString, Str: "hello"}},
	})

	s := newStory(t)
	require.NoError(t, s.Load(prog))
	require.True(t, s.CanContinue())

	require.NoError(t, s.Continue())
	require.False(t, s.CanContinue(), "DONE suspends until the embedder resumes")

	line, ok := s.Stream().ReadLine()
	require.True(t, ok)
	require.Equal(t, "hello", string(line))
}

func TestEndTerminatesStory(t *testing.T) {
	var a asm
	a.emit(bytecode.END, 0)

	prog := bytecode.NewProgram()
	prog.AddPath(&bytecode.Path{Name: "", Code: a.code})

	s := newStory(t)
	require.NoError(t, s.Load(prog))
	require.NoError(t, s.Continue())
	require.False(t, s.CanContinue())
}

func TestArithmeticAddsTwoConstants(t *testing.T) {
	var a asm
	a.emit(bytecode.LOAD_CONST, 0)
	a.emit(bytecode.LOAD_CONST, 1)
	a.emit(bytecode.ADD, 0)
	a.emit(bytecode.CONTENT_PUSH, 0)
	a.emit(bytecode.DONE, 0)

	prog := bytecode.NewProgram()
	prog.AddPath(&bytecode.Path{
		Name: "",
		Code: a.code,
		Consts: []bytecode.Const{
			{Kind: bytecode.ConstNumber, Num: 2},
			{Kind: bytecode.ConstNumber, Num: 3},
		},
	})

	s := newStory(t)
	require.NoError(t, s.Load(prog))
	require.NoError(t, s.Continue())

	line, ok := s.Stream().ReadLine()
	require.True(t, ok)
	require.Equal(t, "5", string(line))
}

func TestChoicePushCollectsChoiceAndResumesOnChoose(t *testing.T) {
	var a asm
	a.emit(bytecode.LOAD_CONST, 0) // choice label
	choicePush := a.emit(bytecode.CHOICE_PUSH, 0)
	a.emit(bytecode.DONE, 0)

	bodyStart := a.here()
	a.emit(bytecode.LOAD_CONST, 1) // body content
	a.emit(bytecode.CONTENT_PUSH, 0)
	a.emit(bytecode.END, 0)

	a.patch(choicePush, int32(bodyStart-(choicePush+bytecode.InstrSize)))

	prog := bytecode.NewProgram()
	prog.AddPath(&bytecode.Path{
		Name: "",
		Code: a.code,
		Consts: []bytecode.Const{
			{Kind: bytecode.ConstString, Str: "go left"},
			{Kind: bytecode.ConstString, Str: "you went left"},
		},
	})

	s := newStory(t)
	require.NoError(t, s.Load(prog))
	require.NoError(t, s.Continue())
	require.False(t, s.CanContinue())

	choices := s.Choices()
	require.Len(t, choices, 1)
	require.Equal(t, "go left", choices[0].Text)

	require.NoError(t, s.Choose(0))
	line, ok := s.Stream().ReadLine()
	require.True(t, ok)
	require.Equal(t, "you went left", string(line))
	require.False(t, s.CanContinue())
}

func TestCallReturnsToCaller(t *testing.T) {
	// Path "" calls path "greet", which pushes a string and returns; the
	// caller then emits it as content.
	var callee asm
	callee.emit(bytecode.LOAD_CONST, 0)
	callee.emit(bytecode.RET, 0)

	var main asm
	main.emit(bytecode.CALL, 0) // operand indexes main's const pool for the callee name
	main.emit(bytecode.CONTENT_PUSH, 0)
	main.emit(bytecode.DONE, 0)

	prog := bytecode.NewProgram()
	prog.AddPath(&bytecode.Path{
		Name: "",
		Code: main.code,
		Consts: []bytecode.Const{
			{Kind: bytecode.ConstString, Str: "greet"},
		},
	})
	prog.AddPath(&bytecode.Path{
		Name: "greet",
		Code: callee.code,
		Consts: []bytecode.Const{
			{Kind: bytecode.ConstString, Str: "hi"},
		},
	})

	s := newStory(t)
	require.NoError(t, s.Load(prog))
	require.NoError(t, s.Continue())

	line, ok := s.Stream().ReadLine()
	require.True(t, ok)
	require.Equal(t, "hi", string(line))
}

func TestDivertNeverReturns(t *testing.T) {
	var target asm
	target.emit(bytecode.LOAD_CONST, 0)
	target.emit(bytecode.CONTENT_PUSH, 0)
	target.emit(bytecode.END, 0)

	var main asm
	main.emit(bytecode.DIVERT, 0) // operand 0 -> main's const pool entry naming the callee
	// If DIVERT ever returned here, this would push a second, unwanted line.
	main.emit(bytecode.LOAD_CONST, 1)
	main.emit(bytecode.CONTENT_PUSH, 0)
	main.emit(bytecode.END, 0)

	prog := bytecode.NewProgram()
	prog.AddPath(&bytecode.Path{
		Name: "",
		Code: main.code,
		Consts: []bytecode.Const{
			{Kind: bytecode.ConstString, Str: "target"},
			{Kind: bytecode.ConstString, Str: "unreachable"},
		},
	})
	prog.AddPath(&bytecode.Path{
		Name:   "target",
		Code:   target.code,
		Consts: []bytecode.Const{{Kind: bytecode.ConstString, Str: "arrived"}},
	})

	s := newStory(t)
	require.NoError(t, s.Load(prog))
	require.NoError(t, s.Continue())

	line, ok := s.Stream().ReadLine()
	require.True(t, ok)
	require.Equal(t, "arrived", string(line))

	_, ok = s.Stream().ReadLine()
	require.False(t, ok, "DIVERT must not fall back into the caller's remaining code")
}

func TestDivisionByZeroIsAnError(t *testing.T) {
	var a asm
	a.emit(bytecode.LOAD_CONST, 0)
	a.emit(bytecode.LOAD_CONST, 1)
	a.emit(bytecode.DIV, 0)

	prog := bytecode.NewProgram()
	prog.AddPath(&bytecode.Path{
		Name: "",
		Code: a.code,
		Consts: []bytecode.Const{
			{Kind: bytecode.ConstNumber, Num: 1},
			{Kind: bytecode.ConstNumber, Num: 0},
		},
	})

	s := newStory(t)
	require.NoError(t, s.Load(prog))
	require.Error(t, s.Continue())
}
