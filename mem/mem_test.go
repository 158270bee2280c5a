package mem

import "testing"

func TestAllocFreeRoundTrip(t *testing.T) {
	Init(64)
	_, used0, free0 := Physmem.Stat()

	pa, ok := Physmem.AllocFrame(4)
	if !ok {
		t.Fatal("alloc failed")
	}
	_, used1, free1 := Physmem.Stat()
	if used1 != used0+4*uint64(PGSIZE) {
		t.Fatalf("used mismatch: got %d want %d", used1, used0+4*uint64(PGSIZE))
	}

	Physmem.FreeFrame(pa, 4)
	_, used2, free2 := Physmem.Stat()
	if used2 != used0 || free2 != free0 {
		t.Fatalf("free did not return frames: used=%d free=%d", used2, free2)
	}
	_ = free1
}

func TestAllocPageframeZeroed(t *testing.T) {
	Init(8)
	pa, ok := Physmem.AllocPageframe()
	if !ok {
		t.Fatal("alloc failed")
	}
	bpg := Physmem.Dmap8(pa)
	for i, b := range bpg[:PGSIZE] {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %x", i, b)
		}
	}
}

func TestExhaustion(t *testing.T) {
	Init(2)
	if _, ok := Physmem.AllocFrame(3); ok {
		t.Fatal("expected failure allocating more frames than exist")
	}
	if _, ok := Physmem.AllocFrame(1); !ok {
		t.Fatal("expected single-frame alloc to succeed")
	}
}

func TestDoubleFreePanics(t *testing.T) {
	Init(4)
	pa, _ := Physmem.AllocFrame(1)
	Physmem.FreeFrame(pa, 1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double free")
		}
	}()
	Physmem.FreeFrame(pa, 1)
}
