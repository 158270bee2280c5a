package ustr

import "testing"

func TestIsdotIsdotdot(t *testing.T) {
	if !Ustr(".").Isdot() {
		t.Fatal("expected '.' to be dot")
	}
	if !Ustr("..").Isdotdot() {
		t.Fatal("expected '..' to be dotdot")
	}
	if Ustr("a").Isdot() || Ustr("a").Isdotdot() {
		t.Fatal("expected 'a' to be neither")
	}
}

func TestEq(t *testing.T) {
	if !Ustr("abc").Eq(Ustr("abc")) {
		t.Fatal("expected equal strings to compare equal")
	}
	if Ustr("abc").Eq(Ustr("abd")) {
		t.Fatal("expected differing strings to compare unequal")
	}
}

func TestMkUstrSliceTruncatesAtNul(t *testing.T) {
	buf := []byte{'a', 'b', 0, 'c'}
	got := MkUstrSlice(buf)
	if got.String() != "ab" {
		t.Fatalf("expected 'ab', got %q", got.String())
	}
}

func TestExtend(t *testing.T) {
	got := Ustr("a").Extend(Ustr("b"))
	if got.String() != "a/b" {
		t.Fatalf("expected 'a/b', got %q", got.String())
	}
}

func TestIsAbsolute(t *testing.T) {
	if !Ustr("/a").IsAbsolute() {
		t.Fatal("expected '/a' to be absolute")
	}
	if Ustr("a").IsAbsolute() || Ustr("").IsAbsolute() {
		t.Fatal("expected 'a' and '' to not be absolute")
	}
}

func TestComponentsSkipsEmptyAndEnforcesLimits(t *testing.T) {
	comps, ok := Ustr("/a//b/c").Components()
	if !ok {
		t.Fatal("expected split to succeed")
	}
	if len(comps) != 3 || comps[0].String() != "a" || comps[1].String() != "b" || comps[2].String() != "c" {
		t.Fatalf("unexpected components: %v", comps)
	}
}

func TestComponentsRejectsOverlongComponent(t *testing.T) {
	long := make([]byte, NAME_MAX+1)
	for i := range long {
		long[i] = 'x'
	}
	_, ok := Ustr("/" + string(long)).Components()
	if ok {
		t.Fatal("expected overlong component to fail")
	}
}
