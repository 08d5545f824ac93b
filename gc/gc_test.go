// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package gc

import (
	"testing"

	"github.com/probechain/gophp/value"
)

func TestAllocAndGet(t *testing.T) {
	h := New()
	handle := h.Alloc(value.Int(42))
	z := h.Get(handle)
	if z.Value.Kind != value.KindInt || z.Value.Int != 42 {
		t.Fatalf("got %+v, want Int(42)", z.Value)
	}
	if h.LiveCount() != 1 {
		t.Fatalf("LiveCount = %d, want 1", h.LiveCount())
	}
}

func TestGetUseAfterFreePanics(t *testing.T) {
	h := New()
	handle := h.Alloc(value.Int(1))
	h.Collect(nil)
	defer func() {
		if recover() == nil {
			t.Fatal("Get on collected handle did not panic")
		}
	}()
	h.Get(handle)
}

func TestCollectSweepsUnreachable(t *testing.T) {
	h := New()
	root := h.Alloc(value.Int(1))
	garbage := h.Alloc(value.Int(2))

	freed := h.Collect([]value.Handle{root})
	if freed != 1 {
		t.Fatalf("freed = %d, want 1", freed)
	}
	if _, ok := h.TryGet(root); !ok {
		t.Fatal("root handle was collected")
	}
	if _, ok := h.TryGet(garbage); ok {
		t.Fatal("garbage handle survived collection")
	}
}

func TestCollectTracesArrayChildren(t *testing.T) {
	h := New()
	child := h.Alloc(value.Int(7))
	arr := value.NewArrayData()
	arr.Push(child)
	root := h.Alloc(value.Array(arr))

	h.Collect([]value.Handle{root})

	if _, ok := h.TryGet(child); !ok {
		t.Fatal("array element handle was collected despite reachable array root")
	}
}

func TestCollectTracesObjectIndirection(t *testing.T) {
	h := New()
	propVal := h.Alloc(value.Int(9))
	obj := value.NewObjectData(1)
	obj.SetProperty(2, propVal, false)
	payloadHandle := h.Alloc(value.ObjPayload(obj))
	root := h.Alloc(value.Object(payloadHandle))

	h.Collect([]value.Handle{root})

	if _, ok := h.TryGet(payloadHandle); !ok {
		t.Fatal("object payload was collected despite reachable indirection root")
	}
	if _, ok := h.TryGet(propVal); !ok {
		t.Fatal("object property handle was collected despite reachable payload")
	}
}

func TestAllocRecyclesFreedSlots(t *testing.T) {
	h := New()
	a := h.Alloc(value.Int(1))
	h.Collect(nil)
	if _, ok := h.TryGet(a); ok {
		t.Fatal("expected a to be collected")
	}
	before := len(h.slots)
	h.Alloc(value.Int(2))
	if len(h.slots) != before {
		t.Fatalf("Alloc grew slots instead of recycling free slot: before=%d after=%d", before, len(h.slots))
	}
}

func TestAdaptiveThresholdGrowsOnWeakHarvest(t *testing.T) {
	h := New()
	root := h.Alloc(value.Int(1))
	start := h.Threshold()
	h.Collect([]value.Handle{root})
	if h.Threshold() <= start {
		t.Fatalf("threshold = %d, want > %d after a near-zero harvest", h.Threshold(), start)
	}
}

func TestAdaptiveThresholdShrinksOnStrongHarvest(t *testing.T) {
	h := New()
	h.threshold = 1024
	for i := 0; i < 900; i++ {
		h.Alloc(value.Int(int64(i)))
	}
	start := h.Threshold()
	freed := h.Collect(nil)
	if freed < start/2 {
		t.Fatalf("test setup invalid: freed=%d not > half of %d", freed, start)
	}
	if h.Threshold() >= start {
		t.Fatalf("threshold = %d, want < %d after a strong harvest", h.Threshold(), start)
	}
}

func TestMaybeCollectOnlyRunsPastThreshold(t *testing.T) {
	h := New()
	h.threshold = 4
	h.Alloc(value.Int(1))
	h.Alloc(value.Int(2))
	if freed := h.MaybeCollect(nil); freed != 0 {
		t.Fatalf("MaybeCollect ran early: freed = %d", freed)
	}
	h.Alloc(value.Int(3))
	h.Alloc(value.Int(4))
	h.MaybeCollect(nil)
	if h.LiveCount() != 0 {
		t.Fatalf("LiveCount = %d, want 0 after unrooted collection", h.LiveCount())
	}
}
