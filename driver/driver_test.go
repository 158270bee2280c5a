package driver

import (
	"testing"

	"hyra/defs"
)

func TestBlacklistSkipsInit(t *testing.T) {
	ran := false
	Export("dummy-"+t.Name(), func() defs.Err_t {
		ran = true
		return 0
	})
	Blacklist("dummy-" + t.Name())
	DriversInit()
	if ran {
		t.Fatal("blacklisted driver should not have run")
	}
}

func TestDeferredRunsSeparately(t *testing.T) {
	order := []string{}
	Export("early-"+t.Name(), func() defs.Err_t {
		order = append(order, "early")
		return 0
	})
	Defer("late-"+t.Name(), func() defs.Err_t {
		order = append(order, "late")
		return 0
	})
	DriversInit()
	if len(order) != 1 || order[0] != "early" {
		t.Fatalf("expected only early driver to run from DriversInit, got %v", order)
	}
	DriversRunDeferred()
	if len(order) != 2 || order[1] != "late" {
		t.Fatalf("expected deferred driver to run after DriversRunDeferred, got %v", order)
	}
}

func TestFailureIsCollectedNotFatal(t *testing.T) {
	Export("failing-"+t.Name(), func() defs.Err_t { return defs.EIO })
	failures := DriversInit()
	if failures["failing-"+t.Name()] != defs.EIO {
		t.Fatalf("expected failure recorded, got %v", failures)
	}
}
