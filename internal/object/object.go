// Package object implements the tagged runtime heap objects the virtual
// machine operates on: numbers, strings, tables, content paths, and call
// frames. Allocation is routed through internal/gc so every object joins
// the collector's intrusive allocation list.
package object

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ink-lang/ink/internal/bytecode"
)

// Kind tags a heap object's concrete type.
type Kind int

const (
	KindNumber Kind = iota
	KindBool
	KindString
	KindTable
	KindContentPath
	KindFrame
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "Number"
	case KindBool:
		return "Bool"
	case KindString:
		return "String"
	case KindTable:
		return "Table"
	case KindContentPath:
		return "ContentPath"
	case KindFrame:
		return "StackFrame"
	default:
		return "Unknown"
	}
}

// Object is the common header every heap value embeds. Next links it into
// the collector's intrusive allocation list; Marked is the GC's tri-color
// bit (false/white until a mark phase blackens it).
type Object struct {
	Next   Header
	Kind   Kind
	Marked bool
}

// Header returns the embedding value's own Object header, so the collector
// can walk the heap without a type switch on every object it visits.
type Header interface {
	Header() *Object
}

// Number is a tagged numeric value. IsInt is derived rather than stored
// alongside a separate integer representation: a constant number is marked
// integral when NewContentPath materializes it and its value has no
// fractional part, and every arithmetic op re-derives it from its
// operands (see Add/Sub/Mul/Mod/Div below), matching the "integer division
// when exact" behavior the published Ink spec and the original
// implementation's number-to-string formatting path both imply.
type Number struct {
	Obj   Object
	Value float64
	IsInt bool
}

func (n *Number) Header() *Object { return &n.Obj }

// NewNumber constructs a Number object, not yet attached to a heap.
func NewNumber(value float64, isInt bool) *Number {
	return &Number{Obj: Object{Kind: KindNumber}, Value: value, IsInt: isInt}
}

// String renders the number the way the VM's CONTENT_PUSH output and the
// public Dump API do: integers print without a decimal point, floats use
// Go's shortest round-trip representation.
func (n *Number) String() string {
	if n.IsInt {
		return strconv.FormatInt(int64(n.Value), 10)
	}
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// Bool is a tagged boolean value.
type Bool struct {
	Obj   Object
	Value bool
}

func (b *Bool) Header() *Object { return &b.Obj }

// NewBool constructs a Bool object.
func NewBool(value bool) *Bool {
	return &Bool{Obj: Object{Kind: KindBool}, Value: value}
}

// IsFalsey reports whether v counts as false for CONDBR/CHOICE_PUSH
// conditions: only an explicit false Bool is falsey, matching the original
// implementation's ink_object_is_falsey (a number, string, or table is
// always truthy).
func IsFalsey(v Header) bool {
	b, ok := v.(*Bool)
	return ok && !b.Value
}

// String is an immutable byte string, stored with its length and a cached
// hash for table lookups.
type String struct {
	Obj   Object
	Hash  uint32
	Bytes []byte
}

func (s *String) Header() *Object { return &s.Obj }

// NewString constructs a String object, copying b so later mutation of the
// caller's slice cannot corrupt the heap value.
func NewString(b []byte) *String {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &String{Obj: Object{Kind: KindString}, Hash: fnv32(cp), Bytes: cp}
}

func fnv32(b []byte) uint32 {
	const prime = 16777619
	h := uint32(2166136261)
	for _, c := range b {
		h ^= uint32(c)
		h *= prime
	}
	return h
}

// StringEqual compares two strings by length then byte content, per
// spec.md 4.5.
func StringEqual(a, b *String) bool {
	return len(a.Bytes) == len(b.Bytes) && string(a.Bytes) == string(b.Bytes)
}

// NumberEqual compares two numbers by value, promoting an integer operand
// to float64 when the other side is a float, per spec.md 4.5.
func NumberEqual(a, b *Number) bool {
	return a.Value == b.Value
}

// Equal implements spec.md 4.5's object-equality rule: equality requires
// matching kind; cross-kind comparisons are always false.
func Equal(a, b Header) bool {
	ha, hb := a.Header(), b.Header()
	if ha.Kind != hb.Kind {
		return false
	}
	switch av := a.(type) {
	case *Number:
		return NumberEqual(av, b.(*Number))
	case *Bool:
		return av.Value == b.(*Bool).Value
	case *String:
		return StringEqual(av, b.(*String))
	default:
		return a == b
	}
}

// arithResult derives the IsInt flag for the four operations where integer
// arithmetic composes cleanly: both operands integral implies an integral
// result.
func arithResult(value float64, aIsInt, bIsInt bool) *Number {
	return NewNumber(value, aIsInt && bIsInt)
}

// Add implements '+' with string concatenation when either operand is a
// String, and numeric addition otherwise.
func Add(a, b Header) (Header, error) {
	if as, ok := a.(*String); ok {
		bs, ok := b.(*String)
		if !ok {
			return nil, typeError("+", a, b)
		}
		return NewString(append(append([]byte{}, as.Bytes...), bs.Bytes...)), nil
	}
	an, bn, err := numberPair("+", a, b)
	if err != nil {
		return nil, err
	}
	return arithResult(an.Value+bn.Value, an.IsInt, bn.IsInt), nil
}

// Sub implements numeric '-'.
func Sub(a, b Header) (Header, error) {
	an, bn, err := numberPair("-", a, b)
	if err != nil {
		return nil, err
	}
	return arithResult(an.Value-bn.Value, an.IsInt, bn.IsInt), nil
}

// Mul implements numeric '*'.
func Mul(a, b Header) (Header, error) {
	an, bn, err := numberPair("*", a, b)
	if err != nil {
		return nil, err
	}
	return arithResult(an.Value*bn.Value, an.IsInt, bn.IsInt), nil
}

// Mod implements numeric '%', Go's floating-point Mod so non-integer
// operands behave sensibly too.
func Mod(a, b Header) (Header, error) {
	an, bn, err := numberPair("mod", a, b)
	if err != nil {
		return nil, err
	}
	return arithResult(math.Mod(an.Value, bn.Value), an.IsInt, bn.IsInt), nil
}

// Div implements numeric '/'. The result is marked integral only when both
// operands were integers AND the quotient has no fractional remainder —
// "integer division when exact", matching the original implementation's
// number-formatting behavior referenced by this Go module's extended
// design notes.
func Div(a, b Header) (Header, error) {
	an, bn, err := numberPair("/", a, b)
	if err != nil {
		return nil, err
	}
	if bn.Value == 0 {
		return nil, fmt.Errorf("object: division by zero")
	}
	q := an.Value / bn.Value
	isInt := an.IsInt && bn.IsInt && q == math.Trunc(q)
	return NewNumber(q, isInt), nil
}

// Neg implements unary '-'.
func Neg(a Header) (Header, error) {
	an, ok := a.(*Number)
	if !ok {
		return nil, fmt.Errorf("object: cannot negate %s", a.Header().Kind)
	}
	return NewNumber(-an.Value, an.IsInt), nil
}

func numberPair(op string, a, b Header) (*Number, *Number, error) {
	an, ok := a.(*Number)
	if !ok {
		return nil, nil, typeError(op, a, b)
	}
	bn, ok := b.(*Number)
	if !ok {
		return nil, nil, typeError(op, a, b)
	}
	return an, bn, nil
}

func typeError(op string, a, b Header) error {
	return fmt.Errorf("object: invalid operand types for %q: %s, %s", op, a.Header().Kind, b.Header().Kind)
}

// Compare implements the ordered comparisons named by op; only numbers
// support ordering.
func Compare(op string, a, b Header) (bool, error) {
	an, bn, err := numberPair(op, a, b)
	if err != nil {
		return false, err
	}
	switch op {
	case "<":
		return an.Value < bn.Value, nil
	case "<=":
		return an.Value <= bn.Value, nil
	case ">":
		return an.Value > bn.Value, nil
	case ">=":
		return an.Value >= bn.Value, nil
	default:
		return false, fmt.Errorf("object: unknown comparison %q", op)
	}
}

// tableEntry is one open-addressed slot; Key == nil marks it empty.
type tableEntry struct {
	Key   *String
	Value Header
}

// Table is an open-addressed hash table keyed by String, per spec.md 4.5:
// power-of-two capacity, 80% max load, linear probing via (i+1)&(cap-1).
type Table struct {
	Obj      Object
	entries  []tableEntry
	count    int
	capacity int
}

func (t *Table) Header() *Object { return &t.Obj }

const (
	tableCapacityMin = 8
	tableLoadMaxPct  = 80
)

// NewTable constructs an empty Table.
func NewTable() *Table {
	return &Table{Obj: Object{Kind: KindTable}}
}

func (t *Table) findSlot(entries []tableEntry, capacity int, key *String) int {
	idx := int(key.Hash) & (capacity - 1)
	for {
		e := &entries[idx]
		if e.Key == nil || StringEqual(e.Key, key) {
			return idx
		}
		idx = (idx + 1) & (capacity - 1)
	}
}

func (t *Table) needsResize() bool {
	if t.capacity == 0 {
		return true
	}
	return (t.count*100)/t.capacity > tableLoadMaxPct
}

func (t *Table) resize() {
	newCap := t.capacity * 2
	if newCap < tableCapacityMin {
		newCap = tableCapacityMin
	}
	newEntries := make([]tableEntry, newCap)
	for _, e := range t.entries {
		if e.Key == nil {
			continue
		}
		idx := t.findSlot(newEntries, newCap, e.Key)
		newEntries[idx] = e
	}
	t.entries = newEntries
	t.capacity = newCap
}

// InsertResult distinguishes a fresh insert from an overwrite, per
// spec.md 4.5's "OK on new, OVERWRITE on replace".
type InsertResult int

const (
	InsertOK InsertResult = iota
	InsertOverwrite
)

// Insert stores value under key, growing the table first if the load
// factor would exceed the 80% bound.
func (t *Table) Insert(key *String, value Header) InsertResult {
	if t.needsResize() {
		t.resize()
	}
	idx := t.findSlot(t.entries, t.capacity, key)
	entry := &t.entries[idx]
	if entry.Key == nil {
		entry.Key = key
		entry.Value = value
		t.count++
		return InsertOK
	}
	entry.Value = value
	return InsertOverwrite
}

// Lookup returns the value stored under key and true, or (nil, false) if
// absent.
func (t *Table) Lookup(key *String) (Header, bool) {
	if t.count == 0 {
		return nil, false
	}
	idx := t.findSlot(t.entries, t.capacity, key)
	entry := &t.entries[idx]
	if entry.Key == nil {
		return nil, false
	}
	return entry.Value, true
}

// Entries returns every live key/value pair, for GC marking and for Dump.
func (t *Table) Entries() []struct {
	Key   *String
	Value Header
} {
	out := make([]struct {
		Key   *String
		Value Header
	}, 0, t.count)
	for _, e := range t.entries {
		if e.Key != nil {
			out = append(out, struct {
				Key   *String
				Value Header
			}{e.Key, e.Value})
		}
	}
	return out
}

// ContentPath is the runtime form of one compiled bytecode.Path: its code,
// constant pool (already materialized into heap objects), and shape.
type ContentPath struct {
	Obj        Object
	Name       *String
	Code       []byte
	Consts     []Header
	Arity      int
	LocalCount int
	IsFunction bool
}

func (p *ContentPath) Header() *Object { return &p.Obj }

// NewContentPath materializes one bytecode.Path's constant pool into heap
// objects and wraps it as a runtime ContentPath. Number/String constants
// become Number/String objects; IsInt for a constant number is true
// whenever its value has no fractional part. The parser and lowering pass
// keep only the float64 value, so this is where IsInt is first set.
func NewContentPath(name *String, path *bytecode.Path) *ContentPath {
	consts := make([]Header, len(path.Consts))
	for i, c := range path.Consts {
		switch c.Kind {
		case bytecode.ConstNumber:
			consts[i] = NewNumber(c.Num, c.Num == math.Trunc(c.Num))
		case bytecode.ConstString:
			consts[i] = NewString([]byte(c.Str))
		}
	}
	return &ContentPath{
		Obj:        Object{Kind: KindContentPath},
		Name:       name,
		Code:       path.Code,
		Consts:     consts,
		Arity:      path.Arity,
		LocalCount: path.LocalCount,
		IsFunction: path.IsFunction,
	}
}

// Frame is one call-stack activation record: the path being executed, the
// return address into the caller's code, the caller's own frame (nil at
// the root), and this call's local variable slots.
type Frame struct {
	Obj        Object
	Path       *ContentPath
	ReturnAddr int
	Caller     *Frame
	Locals     []Header
}

func (f *Frame) Header() *Object { return &f.Obj }

// NewFrame constructs a Frame ready to begin executing path from offset 0.
func NewFrame(path *ContentPath, returnAddr int, caller *Frame) *Frame {
	return &Frame{
		Obj:        Object{Kind: KindFrame},
		Path:       path,
		ReturnAddr: returnAddr,
		Caller:     caller,
		Locals:     make([]Header, path.LocalCount),
	}
}
