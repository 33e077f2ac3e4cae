// Package gc implements the tracing mark-and-sweep collector described in
// spec.md 4.6: a gray worklist over an intrusive allocation list, triggered
// either by stress mode or once allocated bytes cross a growth-scaled
// threshold.
package gc

import (
	"time"
	"unsafe"

	"github.com/ink-lang/ink/internal/config"
	"github.com/ink-lang/ink/internal/object"
	"github.com/ink-lang/ink/internal/obslog"
)

// Heap owns every live object plus the bookkeeping a collection cycle
// needs: the intrusive allocation list head, the externally pinned (owned)
// set, the gray worklist, and the growth threshold.
type Heap struct {
	head      object.Header
	owned     map[object.Header]struct{}
	gray      []object.Header
	allocated uint64
	threshold uint64

	minHeap  uint64
	growthPc uint64
	stress   bool
	trace    bool
	log      *obslog.Logger
}

// New returns a Heap configured from cfg. trace enables per-object mark/
// blacken/free logging (the trace-GC flag); stress (the stress-GC flag)
// makes ShouldCollect always report true, so the VM collects at the start
// of every Continue. Individual allocations never trigger a collection.
func New(cfg *config.Config, log *obslog.Logger, trace, stress bool) *Heap {
	return &Heap{
		owned:     make(map[object.Header]struct{}),
		minHeap:   uint64(cfg.GCMinHeap),
		growthPc:  uint64(cfg.GCGrowthPercent),
		threshold: uint64(cfg.GCMinHeap),
		stress:    stress,
		trace:     trace,
		log:       log,
	}
}

// Register attaches obj to the intrusive allocation list and returns it,
// so call sites can write `h.Register(object.NewNumber(...))`.
func (h *Heap) Register(obj object.Header) object.Header {
	obj.Header().Next = h.head
	h.head = obj
	return obj
}

// Own pins obj as a GC root until Disown is called — the externally-owned
// set from spec.md 4.6's root list.
func (h *Heap) Own(obj object.Header) {
	h.owned[obj] = struct{}{}
}

// Disown releases a previously-owned object, allowing it to be collected
// once nothing else references it.
func (h *Heap) Disown(obj object.Header) {
	delete(h.owned, obj)
}

// Allocated returns the live byte count computed by the most recent
// collection.
func (h *Heap) Allocated() uint64 { return h.allocated }

// ShouldCollect reports whether the next allocation should trigger a
// collection: stress mode always does, otherwise once allocated bytes
// cross the threshold set by the previous cycle.
func (h *Heap) ShouldCollect() bool {
	return h.stress || h.allocated >= h.threshold
}

// Roots is every GC root the VM supplies at collection time, per
// spec.md 4.6: the evaluation stack up to stack_top, the globals and paths
// tables, the current content path, the current choice id, and every
// live choice's id.
type Roots struct {
	Stack           []object.Header
	Globals         *object.Table
	Paths           *object.Table
	CurrentPath     object.Header
	CurrentChoiceID object.Header
	ChoiceIDs       []object.Header
}

// Collect runs one full mark-and-sweep cycle against roots.
func (h *Heap) Collect(roots Roots) {
	var start time.Time
	var before uint64
	if h.trace {
		start = time.Now()
		before = h.allocated
		h.log.Printf("beginning collection")
	}

	h.allocated = 0
	h.gray = h.gray[:0]

	for _, v := range roots.Stack {
		h.mark(v)
	}
	for v := range h.owned {
		h.mark(v)
	}
	// A nil *Table stored in the Header interface is not == nil, so the
	// table roots are checked here rather than in mark.
	if roots.Globals != nil {
		h.mark(roots.Globals)
	}
	if roots.Paths != nil {
		h.mark(roots.Paths)
	}
	h.mark(roots.CurrentPath)
	h.mark(roots.CurrentChoiceID)
	for _, id := range roots.ChoiceIDs {
		h.mark(id)
	}

	for len(h.gray) > 0 {
		obj := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(obj)
	}

	h.sweep()

	h.threshold = h.allocated + (h.allocated*h.growthPc)/100
	if h.threshold < h.minHeap {
		h.threshold = h.minHeap
	}

	if h.trace {
		elapsed := time.Since(start)
		h.log.Printf("collection completed in %s, before=%d, after=%d, collected=%d, next at %d",
			elapsed, before, h.allocated, before-h.allocated, h.threshold)
	}
}

// mark pushes obj onto the gray worklist the first time it is seen. nil
// and already-marked objects are no-ops, mirroring the original
// implementation's ink_gc_mark_object.
func (h *Heap) mark(obj object.Header) {
	if obj == nil {
		return
	}
	hdr := obj.Header()
	if hdr.Marked {
		return
	}
	hdr.Marked = true
	if h.trace {
		h.log.Printf("marked object %p, type=%s", obj, hdr.Kind)
	}
	h.gray = append(h.gray, obj)
}

// blacken marks every object obj references and accounts its size toward
// the post-sweep threshold computation.
func (h *Heap) blacken(obj object.Header) {
	var size uint64

	switch v := obj.(type) {
	case *object.Bool:
		size = uint64(unsafe.Sizeof(*v))
	case *object.Number:
		size = uint64(unsafe.Sizeof(*v))
	case *object.String:
		size = uint64(unsafe.Sizeof(*v)) + uint64(len(v.Bytes))
	case *object.Table:
		for _, e := range v.Entries() {
			h.mark(e.Key)
			h.mark(e.Value)
		}
		size = uint64(unsafe.Sizeof(*v))
	case *object.ContentPath:
		h.mark(v.Name)
		for _, c := range v.Consts {
			h.mark(c)
		}
		size = uint64(unsafe.Sizeof(*v)) + uint64(len(v.Code))
	case *object.Frame:
		h.mark(v.Path)
		for _, l := range v.Locals {
			h.mark(l)
		}
		size = uint64(unsafe.Sizeof(*v))
	}

	h.allocated += size
	if h.trace {
		h.log.Printf("blackened object %p, type=%s, size=%d", obj, obj.Header().Kind, size)
	}
}

// sweep walks the intrusive allocation list, dropping every object whose
// mark bit is still unset and clearing the bit on survivors.
func (h *Heap) sweep() {
	var prev object.Header
	cur := h.head
	for cur != nil {
		hdr := cur.Header()
		next := hdr.Next
		if !hdr.Marked {
			if h.trace {
				h.log.Printf("free object %p, type=%s", cur, hdr.Kind)
			}
			if prev == nil {
				h.head = next
			} else {
				prev.Header().Next = next
			}
		} else {
			hdr.Marked = false
			prev = cur
		}
		cur = next
	}
}
