package vsr

import "testing"

func TestNewCapsuleAndLookup(t *testing.T) {
	var tbl Table_t
	InitDomains(&tbl)
	cap, err := tbl.NewCapsule(DomainFile, "consfeat")
	if err != 0 {
		t.Fatalf("NewCapsule: %v", err)
	}
	got, err := tbl.LookupCapsule(DomainFile, "consfeat")
	if err != 0 || got != cap {
		t.Fatalf("LookupCapsule: got=%v err=%v", got, err)
	}
}

func TestNewCapsuleDuplicateNameFails(t *testing.T) {
	var tbl Table_t
	tbl.NewCapsule(DomainFile, "dup")
	if _, err := tbl.NewCapsule(DomainFile, "dup"); err == 0 {
		t.Fatal("expected duplicate capsule name to fail")
	}
}

func TestLookupMissingCapsuleFails(t *testing.T) {
	var tbl Table_t
	if _, err := tbl.LookupCapsule(DomainFile, "nope"); err == 0 {
		t.Fatal("expected lookup of missing domain to fail")
	}
}

func TestShadowIsCopyOnWrite(t *testing.T) {
	var tbl Table_t
	cap, _ := tbl.NewCapsule(DomainFile, "shadowed")
	cap.Data = "global"

	if got := cap.Read(); got != "global" {
		t.Fatalf("expected global read before any write, got %v", got)
	}
	cap.Write("local")
	if got := cap.Read(); got != "local" {
		t.Fatalf("expected shadow read after write, got %v", got)
	}
	if cap.Data != "global" {
		t.Fatalf("expected global payload untouched, got %v", cap.Data)
	}
}

func TestCapsuleTagIsStableFnvHash(t *testing.T) {
	var tbl Table_t
	cap, err := tbl.NewCapsule(DomainFile, "tagged")
	if err != 0 {
		t.Fatalf("NewCapsule: %v", err)
	}
	if cap.Tag != fnv1("tagged") {
		t.Fatalf("expected Tag to be fnv1(name), got %#x", cap.Tag)
	}
	if cap.Tag == 0 {
		t.Fatal("expected non-zero tag")
	}
}

func TestGlobalModeWritesThrough(t *testing.T) {
	var tbl Table_t
	cap, _ := tbl.NewCapsule(DomainFile, "global-mode")
	cap.Mode = ModeGlobWrite | ModeGlobRead
	cap.Write("shared")
	if cap.Data != "shared" {
		t.Fatalf("expected global write-through, got %v", cap.Data)
	}
}
