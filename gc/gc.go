// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package gc implements the engine's value arena: a slot-indexed store of
// value.Zval addressed by value.Handle, collected by a mark-and-sweep pass
// with an adaptive threshold. Ported from the host interpreter's GcHeap.
package gc

import (
	"fmt"

	"github.com/probechain/gophp/value"
)

const (
	initialThreshold = 1024
	minThreshold     = 256
	maxThreshold     = 65536
)

// Traceable is implemented by any value that can hold further Handles, so
// the mark phase can walk the full live graph. ArrayData, ObjectData and
// generator internals all have Handle-shaped children and so implement it
// indirectly through traceableOf below — package value knows nothing of gc, so
// Heap does the traversal itself rather than requiring value types to
// import this package.
type Traceable interface {
	// TraceChildren calls visit once for every Handle directly reachable
	// from this value.
	TraceChildren(visit func(value.Handle))
}

// Heap is the arena. The zero Heap is not usable; use New.
type Heap struct {
	slots     []*value.Zval
	freeList  []value.Handle
	marks     []bool
	threshold int
	liveCount int
}

// New returns an empty Heap with slot 0 permanently reserved (so NoHandle
// never aliases a real allocation).
func New() *Heap {
	h := &Heap{
		slots:     make([]*value.Zval, 1),
		marks:     make([]bool, 1),
		threshold: initialThreshold,
	}
	return h
}

// Alloc stores v in a fresh or recycled slot and returns its Handle.
// Triggering a GC pass is the caller's responsibility (see MaybeCollect);
// Alloc itself never collects.
func (h *Heap) Alloc(v value.Value) value.Handle {
	z := &value.Zval{Value: v}
	if n := len(h.freeList); n > 0 {
		handle := h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.slots[handle] = z
		h.marks[handle] = false
		h.liveCount++
		return handle
	}
	handle := value.Handle(len(h.slots))
	h.slots = append(h.slots, z)
	h.marks = append(h.marks, false)
	h.liveCount++
	return handle
}

// Get returns the Zval stored at handle. It panics with a diagnostic
// message rather than silently returning a default value if handle refers
// to a freed or never-allocated slot — using a value after it has been
// collected is an engine bug, not a recoverable condition.
func (h *Heap) Get(handle value.Handle) *value.Zval {
	z := h.lookup(handle)
	if z == nil {
		panic(fmt.Sprintf("gc: use-after-free: handle %d refers to a collected or unallocated slot", handle))
	}
	return z
}

// TryGet is Get without the panic, for callers (e.g. diagnostic dumps) that
// can tolerate a dangling Handle.
func (h *Heap) TryGet(handle value.Handle) (*value.Zval, bool) {
	z := h.lookup(handle)
	return z, z != nil
}

func (h *Heap) lookup(handle value.Handle) *value.Zval {
	idx := int(handle)
	if idx <= 0 || idx >= len(h.slots) {
		return nil
	}
	return h.slots[idx]
}

// Set overwrites the Value stored at handle in place (same slot, same
// identity) — used for assignment through a reference.
func (h *Heap) Set(handle value.Handle, v value.Value) {
	h.Get(handle).Value = v
}

// LiveCount returns the number of currently allocated (non-free) slots.
func (h *Heap) LiveCount() int { return h.liveCount }

// Threshold returns the live-count at which the next MaybeCollect call
// will actually run a collection.
func (h *Heap) Threshold() int { return h.threshold }

// SetThreshold overrides the adaptive threshold's current value, for a host
// that wants a different starting point than the built-in default (see
// config.GCConfig.InitialThreshold). The adaptive doubling/halving in
// Collect still clamps to [minThreshold, maxThreshold] afterward.
func (h *Heap) SetThreshold(n int) { h.threshold = n }

// MaybeCollect runs Collect if LiveCount has reached the adaptive
// threshold, returning the number of slots freed (0 if no collection ran).
func (h *Heap) MaybeCollect(roots []value.Handle) int {
	if h.liveCount < h.threshold {
		return 0
	}
	return h.Collect(roots)
}

// Collect runs a full mark-and-sweep pass rooted at roots, frees every
// unreached slot, and adjusts the adaptive threshold based on how much was
// reclaimed: a weak harvest doubles the threshold (up to maxThreshold) so
// we collect less often when it isn't paying off; a strong harvest halves
// it (down to minThreshold) so we collect sooner next time. Returns the
// number of slots freed.
func (h *Heap) Collect(roots []value.Handle) int {
	for i := range h.marks {
		h.marks[i] = false
	}

	stack := make([]value.Handle, 0, len(roots))
	stack = append(stack, roots...)
	for len(stack) > 0 {
		n := len(stack) - 1
		handle := stack[n]
		stack = stack[:n]

		idx := int(handle)
		if idx <= 0 || idx >= len(h.slots) || h.slots[idx] == nil {
			continue
		}
		if h.marks[idx] {
			continue
		}
		h.marks[idx] = true

		if t, ok := traceableOf(h.slots[idx]); ok {
			t.TraceChildren(func(child value.Handle) {
				stack = append(stack, child)
			})
		}
	}

	freed := 0
	for idx := 1; idx < len(h.slots); idx++ {
		if h.slots[idx] == nil {
			continue
		}
		if !h.marks[idx] {
			h.slots[idx] = nil
			h.freeList = append(h.freeList, value.Handle(idx))
			h.liveCount--
			freed++
		}
	}

	if freed < h.threshold/4 {
		h.threshold *= 2
		if h.threshold > maxThreshold {
			h.threshold = maxThreshold
		}
	} else if freed > h.threshold/2 {
		h.threshold /= 2
		if h.threshold < minThreshold {
			h.threshold = minThreshold
		}
	}

	return freed
}

// traceableOf builds a Traceable view over whatever is stored in z, since
// value.Value's Arr/Payload fields don't themselves implement the
// interface (package value has no notion of Handles-as-graph-edges).
func traceableOf(z *value.Zval) (Traceable, bool) {
	switch z.Value.Kind {
	case value.KindArray:
		if z.Value.Arr == nil {
			return nil, false
		}
		return arrayTracer{z.Value.Arr}, true
	case value.KindObject:
		return objectIndirection{z.Value.Obj}, true
	case value.KindObjPayload:
		if z.Value.Payload == nil {
			return nil, false
		}
		return objectTracer{z.Value.Payload}, true
	default:
		return nil, false
	}
}

// objectIndirection traces the single Obj Handle a KindObject slot points
// at, so the mark phase reaches its KindObjPayload slot.
type objectIndirection struct{ target value.Handle }

func (t objectIndirection) TraceChildren(visit func(value.Handle)) {
	visit(t.target)
}

type arrayTracer struct{ a *value.ArrayData }

func (t arrayTracer) TraceChildren(visit func(value.Handle)) {
	t.a.Each(func(_ value.ArrayKey, h value.Handle) bool {
		visit(h)
		return true
	})
}

type objectTracer struct{ o *value.ObjectData }

func (t objectTracer) TraceChildren(visit func(value.Handle)) {
	for _, prop := range t.o.PropOrder {
		if h, ok := t.o.GetProperty(prop); ok {
			visit(h)
		}
	}
	if tr, ok := t.o.Internal.(Traceable); ok {
		tr.TraceChildren(visit)
	}
}
