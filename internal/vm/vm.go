// Package vm implements the stack machine that executes compiled bytecode
// against the tagged object heap, per spec.md 4.7: a fetch-decode-execute
// loop, call frames, and the content/choice suspension protocol that
// package ink's public Story type drives.
package vm

import (
	"fmt"

	"github.com/ink-lang/ink/internal/bytecode"
	"github.com/ink-lang/ink/internal/config"
	"github.com/ink-lang/ink/internal/gc"
	"github.com/ink-lang/ink/internal/object"
	"github.com/ink-lang/ink/internal/obslog"
	"github.com/ink-lang/ink/internal/outstream"
)

// Choice is one presented option: its label text, a unique identifier
// object (a GC root while choices are pending), and where its body starts
// in the owning path's code.
type Choice struct {
	ID         object.Header
	Text       string
	BodyOffset int
}

// Story is one running instance of a compiled program: the call stack, the
// evaluation stack, the content stream, and the set of choices currently
// awaiting a decision. A Story is not safe for concurrent use.
type Story struct {
	cfg *config.Config
	log *obslog.Logger

	globals *object.Table
	paths   *object.Table
	heap    *gc.Heap

	frame *object.Frame
	stack []object.Header

	stream *outstream.Stream

	choices     []Choice
	choiceOrd   int
	canContinue bool
	ended       bool

	traceVM   bool
	enableGC  bool
}

// New constructs a Story ready to Load a compiled program. cfg must not be
// nil; use config.Default() for the published defaults. enableGC gates
// whether Continue ever triggers a collection at all — with it false the
// heap only ever grows, which is occasionally useful for short debugging
// runs where reclaiming is not worth the trace noise.
func New(cfg *config.Config, log *obslog.Logger, enableGC, traceGC, stressGC, traceVM bool) *Story {
	return &Story{
		cfg:      cfg,
		log:      log,
		heap:     gc.New(cfg, log, traceGC, stressGC),
		stream:   outstream.New(),
		traceVM:  traceVM,
		enableGC: enableGC,
	}
}

// Load materializes prog's paths into the heap and starts execution at the
// implicit main path (registered under the empty name by internal/ir).
func (s *Story) Load(prog *bytecode.Program) error {
	s.globals = s.heap.Register(object.NewTable()).(*object.Table)
	s.paths = s.heap.Register(object.NewTable()).(*object.Table)
	s.heap.Own(s.globals)
	s.heap.Own(s.paths)

	runtimePaths := make(map[string]*object.ContentPath, len(prog.Paths))
	for _, p := range prog.Paths {
		nameObj := s.heap.Register(object.NewString([]byte(p.Name))).(*object.String)
		rp := s.heap.Register(object.NewContentPath(nameObj, p)).(*object.ContentPath)
		s.paths.Insert(nameObj, rp)
		runtimePaths[p.Name] = rp
	}

	main, ok := runtimePaths[""]
	if !ok {
		return fmt.Errorf("vm: program has no entry path")
	}
	s.frame = s.heap.Register(object.NewFrame(main, 0, nil)).(*object.Frame)
	s.stack = s.stack[:0]
	s.canContinue = true
	s.ended = false
	return nil
}

// CanContinue reports whether the next Continue call would execute any
// bytecode, per spec.md 4.7/6.
func (s *Story) CanContinue() bool {
	return s.canContinue && !s.ended
}

// Stream exposes the accumulated content stream for the embedder to read
// lines from.
func (s *Story) Stream() *outstream.Stream { return s.stream }

// Choices returns the choices collected by the most recent suspension, in
// textual order.
func (s *Story) Choices() []Choice { return s.choices }

// Continue runs the fetch-decode-execute loop until the VM reaches a DONE,
// a choice presentation, or END, mirroring spec.md 5's suspension-point
// description.
func (s *Story) Continue() error {
	if !s.CanContinue() {
		return fmt.Errorf("vm: cannot continue")
	}
	if s.enableGC && s.heap.ShouldCollect() {
		s.collect()
	}
	return s.run()
}

// Choose resumes execution from the chosen branch's body, per spec.md
// 4.7's choice-presentation protocol.
func (s *Story) Choose(index int) error {
	if index < 0 || index >= len(s.choices) {
		return fmt.Errorf("vm: invalid choice index %d", index)
	}
	target := s.choices[index]
	s.choices = nil
	s.frame.ReturnAddr = target.BodyOffset
	s.canContinue = true
	return s.run()
}

func (s *Story) collect() {
	var choiceIDs []object.Header
	for _, c := range s.choices {
		choiceIDs = append(choiceIDs, c.ID)
	}
	var currentChoiceID object.Header
	if len(s.choices) > 0 {
		currentChoiceID = s.choices[0].ID
	}
	s.heap.Collect(gc.Roots{
		Stack:           s.stack,
		Globals:         s.globals,
		Paths:           s.paths,
		CurrentPath:     s.frame.Path,
		CurrentChoiceID: currentChoiceID,
		ChoiceIDs:       choiceIDs,
	})
}

func (s *Story) push(v object.Header) error {
	if len(s.stack) >= s.cfg.StackMax {
		return fmt.Errorf("vm: stack overflow")
	}
	s.stack = append(s.stack, v)
	return nil
}

func (s *Story) pop() (object.Header, error) {
	if len(s.stack) == 0 {
		return nil, fmt.Errorf("vm: stack underflow")
	}
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v, nil
}

// run is the fetch-decode-execute loop. pc resumes from s.frame.ReturnAddr,
// which doubles as "the next instruction to execute in the current frame"
// both on first entry (0) and after a Choose (the chosen body's offset).
func (s *Story) run() error {
	pc := s.frame.ReturnAddr
	for {
		path := s.frame.Path
		code := path.Code
		if pc >= len(code) {
			var err error
			pc, err = s.doReturn(object.NewBool(false))
			if err != nil {
				return err
			}
			if s.ended {
				return nil
			}
			continue
		}

		op := bytecode.Op(code[pc])
		operand := int32(uint32(code[pc+1]) | uint32(code[pc+2])<<8 | uint32(code[pc+3])<<16 | uint32(code[pc+4])<<24)
		next := pc + bytecode.InstrSize

		if s.traceVM {
			s.log.Printf("pc=%d path=%q op=%s operand=%d stack=%d", pc, path.Name, op, operand, len(s.stack))
		}

		switch op {
		case bytecode.LOAD_CONST:
			if err := s.push(path.Consts[operand]); err != nil {
				return err
			}

		case bytecode.TRUE:
			if err := s.push(object.NewBool(true)); err != nil {
				return err
			}
		case bytecode.FALSE:
			if err := s.push(object.NewBool(false)); err != nil {
				return err
			}

		case bytecode.POP:
			if _, err := s.pop(); err != nil {
				return err
			}

		case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.MOD:
			if err := s.binArith(op); err != nil {
				return err
			}
		case bytecode.NEG:
			v, err := s.pop()
			if err != nil {
				return err
			}
			r, err := object.Neg(v)
			if err != nil {
				return err
			}
			if err := s.push(r); err != nil {
				return err
			}
		case bytecode.NOT:
			v, err := s.pop()
			if err != nil {
				return err
			}
			if err := s.push(object.NewBool(object.IsFalsey(v))); err != nil {
				return err
			}

		case bytecode.CMP_EQ:
			b, err := s.pop()
			if err != nil {
				return err
			}
			a, err := s.pop()
			if err != nil {
				return err
			}
			if err := s.push(object.NewBool(object.Equal(a, b))); err != nil {
				return err
			}
		case bytecode.CMP_LT, bytecode.CMP_LTE, bytecode.CMP_GT, bytecode.CMP_GTE:
			if err := s.binCompare(op); err != nil {
				return err
			}

		case bytecode.BR:
			next = next + int(operand)
		case bytecode.CONDBR:
			v, err := s.pop()
			if err != nil {
				return err
			}
			if object.IsFalsey(v) {
				next = next + int(operand)
			}

		case bytecode.LOAD_LOCAL:
			if err := s.push(s.frame.Locals[operand]); err != nil {
				return err
			}
		case bytecode.STORE_LOCAL:
			v, err := s.pop()
			if err != nil {
				return err
			}
			s.frame.Locals[operand] = v
		case bytecode.LOAD_GLOBAL:
			name := path.Consts[operand].(*object.String)
			v, _ := s.globals.Lookup(name)
			if err := s.push(v); err != nil {
				return err
			}
		case bytecode.STORE_GLOBAL:
			name := path.Consts[operand].(*object.String)
			v, err := s.pop()
			if err != nil {
				return err
			}
			s.globals.Insert(name, v)

		case bytecode.INIT_GLOBAL:
			name := path.Consts[operand].(*object.String)
			if _, ok := s.globals.Lookup(name); !ok {
				s.globals.Insert(name, s.heap.Register(object.NewNumber(0, true)))
			}

		case bytecode.CONTENT_PUSH:
			v, err := s.pop()
			if err != nil {
				return err
			}
			s.stream.WriteString(printable(v))

		case bytecode.DONE:
			s.frame.ReturnAddr = next
			s.canContinue = false
			return nil

		case bytecode.END:
			s.ended = true
			s.canContinue = false
			return nil

		case bytecode.CALL, bytecode.DIVERT:
			callee, err := s.resolvePath(path, operand)
			if err != nil {
				return err
			}
			args := s.popArgs(callee.Arity)
			if op == bytecode.CALL {
				if s.callDepth() >= s.cfg.CallStackMax {
					return fmt.Errorf("vm: call stack overflow")
				}
				newFrame := object.NewFrame(callee, next, s.frame)
				copy(newFrame.Locals, args)
				s.frame = s.heap.Register(newFrame).(*object.Frame)
				next = 0
			} else {
				s.frame.Path = callee
				s.frame.Locals = make([]object.Header, callee.LocalCount)
				copy(s.frame.Locals, args)
				next = 0
			}

		case bytecode.RET:
			v, err := s.pop()
			if err != nil {
				v = object.NewBool(false)
			}
			next, err = s.doReturn(v)
			if err != nil {
				return err
			}
			if s.ended {
				return nil
			}

		case bytecode.CHOICE_PUSH:
			label, err := s.pop()
			if err != nil {
				return err
			}
			id := object.NewNumber(float64(s.choiceOrd), true)
			s.choiceOrd++
			s.choices = append(s.choices, Choice{
				ID:         id,
				Text:       printable(label),
				BodyOffset: next + int(operand),
			})

		default:
			return fmt.Errorf("vm: invalid instruction %v at pc=%d", op, pc)
		}

		pc = next
	}
}

// doReturn pops the current call frame, pushes its return value onto the
// caller's stack, and reports where the caller should resume. If no
// caller remains, the story ends (spec.md 4.7: "if stack is empty, story
// ends") and the returned pc is meaningless.
func (s *Story) doReturn(value object.Header) (int, error) {
	if s.frame.Caller == nil {
		s.ended = true
		s.canContinue = false
		return 0, nil
	}
	ret := s.frame.ReturnAddr
	s.frame = s.frame.Caller
	if err := s.push(value); err != nil {
		return 0, err
	}
	return ret, nil
}

func (s *Story) callDepth() int {
	n := 0
	for f := s.frame; f != nil; f = f.Caller {
		n++
	}
	return n
}

func (s *Story) resolvePath(current *object.ContentPath, operand int32) (*object.ContentPath, error) {
	name, ok := current.Consts[operand].(*object.String)
	if !ok {
		return nil, fmt.Errorf("vm: callee operand is not a name constant")
	}
	v, ok := s.paths.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("vm: unknown content path %q", string(name.Bytes))
	}
	target, ok := v.(*object.ContentPath)
	if !ok {
		return nil, fmt.Errorf("vm: path table entry %q is not a content path", string(name.Bytes))
	}
	return target, nil
}

func (s *Story) popArgs(arity int) []object.Header {
	if arity == 0 {
		return nil
	}
	args := make([]object.Header, arity)
	copy(args, s.stack[len(s.stack)-arity:])
	s.stack = s.stack[:len(s.stack)-arity]
	return args
}

func (s *Story) binArith(op bytecode.Op) error {
	b, err := s.pop()
	if err != nil {
		return err
	}
	a, err := s.pop()
	if err != nil {
		return err
	}
	var r object.Header
	switch op {
	case bytecode.ADD:
		r, err = object.Add(a, b)
	case bytecode.SUB:
		r, err = object.Sub(a, b)
	case bytecode.MUL:
		r, err = object.Mul(a, b)
	case bytecode.DIV:
		r, err = object.Div(a, b)
	case bytecode.MOD:
		r, err = object.Mod(a, b)
	}
	if err != nil {
		return err
	}
	return s.push(r)
}

func (s *Story) binCompare(op bytecode.Op) error {
	b, err := s.pop()
	if err != nil {
		return err
	}
	a, err := s.pop()
	if err != nil {
		return err
	}
	var sym string
	switch op {
	case bytecode.CMP_LT:
		sym = "<"
	case bytecode.CMP_LTE:
		sym = "<="
	case bytecode.CMP_GT:
		sym = ">"
	case bytecode.CMP_GTE:
		sym = ">="
	}
	r, err := object.Compare(sym, a, b)
	if err != nil {
		return err
	}
	return s.push(object.NewBool(r))
}

// printable renders a value the way CONTENT_PUSH appends it to the stream.
func printable(v object.Header) string {
	switch t := v.(type) {
	case *object.String:
		return string(t.Bytes)
	case *object.Number:
		return t.String()
	case *object.Bool:
		if t.Value {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
