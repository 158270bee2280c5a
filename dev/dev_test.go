package dev

import (
	"testing"

	"hyra/defs"
	"hyra/driver"
	"hyra/mem"
)

func TestBuiltinDriversRegisterNodes(t *testing.T) {
	mem.Init(1024)
	failures := driver.DriversInit()
	if len(failures) != 0 {
		t.Fatalf("unexpected driver init failures: %v", failures)
	}
	names := map[string]bool{}
	for _, n := range Nodes() {
		names[n.Name] = true
	}
	for _, want := range []string{"console", "null", "random", "rtc", "beep", "fb0"} {
		if !names[want] {
			t.Fatalf("expected devfs node %q to be registered, got %v", want, names)
		}
	}
}

func TestNullDiscardsWrites(t *testing.T) {
	ops, ok := Cdev(defs.D_DEVNULL)
	if !ok {
		t.Fatal("null driver not registered")
	}
	n, err := ops.Write(0, []byte("ignored"), 0)
	if err != 0 || n != len("ignored") {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
}

func TestRandomProducesVaryingOutput(t *testing.T) {
	ops, ok := Cdev(defs.D_RANDOM)
	if !ok {
		t.Fatal("random driver not registered")
	}
	a := make([]byte, 32)
	b := make([]byte, 32)
	ops.Read(0, a, 0)
	ops.Read(0, b, 0)
	if string(a) == string(b) {
		t.Fatal("expected successive reads to differ")
	}
}

func TestFbMmapRejectsOutOfBounds(t *testing.T) {
	mops, ok := Cdev(defs.D_FB)
	if !ok {
		t.Fatal("fb driver not registered")
	}
	mmapper := mops.(interface {
		Mmap(minor int, off int64, flags int) (mem.Pa_t, defs.Err_t)
	})
	if _, err := mmapper.Mmap(0, 1<<40, 0); err == 0 {
		t.Fatal("expected out-of-bounds mmap to fail")
	}
}
