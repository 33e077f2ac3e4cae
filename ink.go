// Package ink is the embedder-facing API: compile an Ink script and drive
// it one line (or one choice) at a time. It wires together the lexer,
// parser, IR lowering pass, bytecode codegen, and virtual machine behind
// the operation table in spec.md section 6.
package ink

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ink-lang/ink/internal/ast"
	"github.com/ink-lang/ink/internal/bytecode"
	"github.com/ink-lang/ink/internal/config"
	"github.com/ink-lang/ink/internal/diag"
	"github.com/ink-lang/ink/internal/ir"
	"github.com/ink-lang/ink/internal/lexer"
	"github.com/ink-lang/ink/internal/obslog"
	"github.com/ink-lang/ink/internal/parser"
	"github.com/ink-lang/ink/internal/source"
	"github.com/ink-lang/ink/internal/vm"
)

// Flag is the bitmask type for Load's option set (spec.md 6: "An integer
// bitmask with reserved and defined bits"). Unknown bits are ignored.
type Flag uint32

const (
	FlagCache Flag = 1 << iota
	FlagColor
	FlagDumpAST
	FlagDumpBytecode
	FlagEnableGC
	FlagStressGC
	FlagTraceGC
	FlagTraceVM
)

// Options configures one Load call.
type Options struct {
	Filename string
	Source   []byte
	Flags    Flag
	Config   *config.Config
}

// Status is the result of an operation, matching spec.md 6's error
// taxonomy.
type Status int

const (
	StatusOK Status = iota
	StatusOOM
	StatusOS
	StatusFile
	StatusParse
	StatusRuntime
	StatusInvalidArgument
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusOOM:
		return "out of memory"
	case StatusOS:
		return "os error"
	case StatusFile:
		return "not an ink script"
	case StatusParse:
		return "parse error"
	case StatusRuntime:
		return "runtime error"
	case StatusInvalidArgument:
		return "invalid argument"
	default:
		return "unknown status"
	}
}

// Error wraps a non-OK Status with a human-readable cause.
type Error struct {
	Status Status
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ink: %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("ink: %s", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Story is one compiled, running instance of an Ink script — the embedder-
// facing handle spec.md 6 calls a "story handle".
type Story struct {
	src     *source.Buffer
	tree    *ast.Tree
	diags   []diag.Diagnostic
	prog    *bytecode.Program
	vm      *vm.Story
	log     *obslog.Logger
	dumpAST bool
	dumpBC  bool
	color   bool
}

// Open returns a new, unloaded Story handle. Call Load before driving it.
func Open() *Story {
	return &Story{}
}

// Close releases every resource the story owns. Per spec.md 5, close after
// a partial run is always safe; there is nothing left to do explicitly
// once the Go garbage collector owns every allocation transitively, but
// Close is kept as an explicit lifecycle step so embedders written against
// the open/close contract in spec.md 6 have a concrete call to make.
func (s *Story) Close() {
	s.vm = nil
	s.prog = nil
	s.tree = nil
}

// Load compiles opts.Source (a `.ink` script when Filename is set) and
// prepares the VM to begin execution. A non-nil error is always an *Error
// with a Status matching spec.md 6's taxonomy.
func (s *Story) Load(opts Options) error {
	if opts.Filename != "" && !strings.HasSuffix(opts.Filename, ".ink") {
		return &Error{Status: StatusFile, Err: fmt.Errorf("filename %q must end in .ink", opts.Filename)}
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	s.color = opts.Flags&FlagColor != 0
	s.dumpAST = opts.Flags&FlagDumpAST != 0
	s.dumpBC = opts.Flags&FlagDumpBytecode != 0
	s.log = obslog.New("ink", os.Stderr)

	s.src = source.New(opts.Filename, opts.Source)

	lx := lexer.New(s.src, cfg.ModeStackMax)
	p := parser.New(s.src, lx, cfg.ParserMaxDepth)
	s.tree = p.Parse()

	var diags []diag.Diagnostic
	diags = append(diags, p.Diags...)

	prog, funcs := ir.Lower(s.tree, &diags)

	if len(diags) > 0 {
		s.diags = diags
		return &Error{Status: StatusParse, Err: fmt.Errorf("%d diagnostic(s)", len(diags))}
	}

	bcProg, err := bytecode.Compile(prog, funcs)
	if err != nil {
		return &Error{Status: StatusInvalidArgument, Err: err}
	}
	s.prog = bcProg

	enableGC := opts.Flags&FlagEnableGC != 0
	traceGC := opts.Flags&FlagTraceGC != 0
	stressGC := opts.Flags&FlagStressGC != 0
	traceVM := opts.Flags&FlagTraceVM != 0
	s.vm = vm.New(cfg, s.log, enableGC, traceGC, stressGC, traceVM)
	if err := s.vm.Load(bcProg); err != nil {
		return &Error{Status: StatusRuntime, Err: err}
	}

	if s.dumpAST {
		var buf bytes.Buffer
		dumpNode(&buf, s.tree.Root, 0)
		os.Stdout.Write(buf.Bytes())
	}
	if s.dumpBC {
		var buf bytes.Buffer
		s.Dump(&buf)
		os.Stdout.Write(buf.Bytes())
	}
	return nil
}

// dumpNode writes a tree-shaped disassembly of the AST, one node per line
// indented by depth, for the dump-AST debugging flag.
func dumpNode(w *bytes.Buffer, n *ast.Node, depth int) {
	if n == nil {
		return
	}
	fmt.Fprintf(w, "%s%s", strings.Repeat("  ", depth), n.Kind)
	if n.Name != "" {
		fmt.Fprintf(w, " %q", n.Name)
	}
	fmt.Fprintf(w, "\n")
	if n.LHS != nil {
		dumpNode(w, n.LHS, depth+1)
	}
	if n.RHS != nil {
		dumpNode(w, n.RHS, depth+1)
	}
	for _, c := range n.Children {
		dumpNode(w, c, depth+1)
	}
}

// Diagnostics returns every diagnostic recorded by the most recent Load,
// in source order.
func (s *Story) Diagnostics() []diag.Diagnostic { return s.diags }

// RenderDiagnostics writes every diagnostic from the most recent Load in
// the path:line:col format from spec.md section 6.
func (s *Story) RenderDiagnostics(w *bytes.Buffer) {
	for _, d := range s.diags {
		diag.Render(w, d, s.src, s.color)
	}
}

// CanContinue reports whether Continue would produce another line.
func (s *Story) CanContinue() bool {
	return s.vm != nil && s.vm.CanContinue()
}

// Continue runs the VM until the next suspension point and returns the
// line of content produced, trimmed of its trailing newline per spec.md
// 4.8's `trim` operation.
func (s *Story) Continue() (string, error) {
	if s.vm == nil {
		return "", &Error{Status: StatusInvalidArgument, Err: fmt.Errorf("story not loaded")}
	}
	if err := s.vm.Continue(); err != nil {
		return "", &Error{Status: StatusRuntime, Err: err}
	}
	stream := s.vm.Stream()
	line, ok := stream.ReadLine()
	if !ok {
		return "", nil
	}
	return strings.TrimRight(string(line), "\n\r"), nil
}

// Choice is one embedder-visible option: its presented text and its
// 0-based index for Choose.
type Choice struct {
	Index int
	Text  string
}

// ChoiceNext returns the choices collected by the most recent suspension,
// matching spec.md 6's `choice_next` enumeration in spirit (iterated in
// one call here, since Go callers range over a slice rather than poll a
// cursor).
func (s *Story) ChoiceNext() []Choice {
	if s.vm == nil {
		return nil
	}
	raw := s.vm.Choices()
	out := make([]Choice, len(raw))
	for i, c := range raw {
		out[i] = Choice{Index: i, Text: c.Text}
	}
	return out
}

// Choose selects choice index and resumes execution from its body.
func (s *Story) Choose(index int) error {
	if s.vm == nil {
		return &Error{Status: StatusInvalidArgument, Err: fmt.Errorf("story not loaded")}
	}
	if err := s.vm.Choose(index); err != nil {
		return &Error{Status: StatusInvalidArgument, Err: err}
	}
	return nil
}

// Dump writes a disassembly of the compiled program to w, per spec.md 6's
// `dump` operation.
func (s *Story) Dump(w *bytes.Buffer) {
	if s.prog == nil {
		return
	}
	for _, p := range s.prog.Paths {
		name := p.Name
		if name == "" {
			name = "<main>"
		}
		fmt.Fprintf(w, "path %s (arity=%d, locals=%d)\n", name, p.Arity, p.LocalCount)
		disassemble(w, p)
	}
}

func disassemble(w *bytes.Buffer, p *bytecode.Path) {
	for pc := 0; pc < len(p.Code); pc += bytecode.InstrSize {
		op := bytecode.Op(p.Code[pc])
		operand := int32(uint32(p.Code[pc+1]) | uint32(p.Code[pc+2])<<8 |
			uint32(p.Code[pc+3])<<16 | uint32(p.Code[pc+4])<<24)
		fmt.Fprintf(w, "  %04d  %-14s %d\n", pc, op, operand)
	}
}
