// Package symtab implements the nested lexical scope chain used during
// AST-to-IR lowering to resolve identifiers.
package symtab

// Kind classifies what a Symbol names.
type Kind int

const (
	Local Kind = iota
	Global
	Parameter
	Knot
	Function
)

// Symbol is a named entity visible in some Scope.
type Symbol struct {
	Name  string
	Kind  Kind
	Const bool

	// Slot is the stack/local slot index for Local/Parameter symbols, or,
	// for Global symbols, the byte offset of the name in the IR string pool.
	Slot int

	// Arity is the parameter count, for Knot/Function symbols.
	Arity int

	// Nested is the child scope of a Knot/Function's own body. The lowering
	// pass leaves it nil; stitches are registered in the global scope under
	// their qualified "knot.stitch" name.
	Nested *Scope
}

// Scope is one link in the lexical scope chain: a knot, stitch, function,
// block, or the file-level global scope.
type Scope struct {
	parent *Scope
	names  map[string]*Symbol
	nextSlot int
}

// NewGlobal returns a fresh top-level Scope with no parent.
func NewGlobal() *Scope {
	return &Scope{names: make(map[string]*Symbol)}
}

// Push returns a new child Scope nested under s.
func (s *Scope) Push() *Scope {
	return &Scope{parent: s, names: make(map[string]*Symbol)}
}

// Parent returns the enclosing scope, or nil if s is the global scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Declare adds name to this scope (not checking any enclosing scope) and
// returns the new Symbol. If name is already declared in THIS scope,
// Declare returns (existing, false) so the caller can report a redefinition
// diagnostic without losing the original declaration.
func (s *Scope) Declare(name string, kind Kind) (sym *Symbol, fresh bool) {
	if existing, ok := s.names[name]; ok {
		return existing, false
	}
	sym = &Symbol{Name: name, Kind: kind}
	if kind == Local || kind == Parameter {
		sym.Slot = s.nextSlot
		s.nextSlot++
	}
	s.names[name] = sym
	return sym, true
}

// LocalCount returns the number of Local/Parameter slots allocated directly
// in this scope.
func (s *Scope) LocalCount() int {
	return s.nextSlot
}

// Lookup searches this scope and every enclosing scope, outermost-last (the
// nearest declaration wins), and reports whether name was found.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.names[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal searches only this scope, not any enclosing scope.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.names[name]
	return sym, ok
}
