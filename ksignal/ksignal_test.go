package ksignal

import (
	"testing"

	"hyra/defs"
)

func TestSigsetRoundTrip(t *testing.T) {
	var set Sigset_t
	Sigemptyset(&set)
	if Sigismember(set, SIGTERM) {
		t.Fatal("expected empty set")
	}
	if err := Sigaddset(&set, SIGTERM); err != 0 {
		t.Fatalf("Sigaddset: %v", err)
	}
	if !Sigismember(set, SIGTERM) {
		t.Fatal("expected SIGTERM set")
	}
	Sigdelset(&set, SIGTERM)
	if Sigismember(set, SIGTERM) {
		t.Fatal("expected SIGTERM cleared")
	}
}

func TestSigfillsetSetsEverySignal(t *testing.T) {
	var set Sigset_t
	Sigfillset(&set)
	for _, s := range []int{SIGFPE, SIGKILL, SIGSEGV, SIGTERM, 1, 63} {
		if !Sigismember(set, s) {
			t.Fatalf("expected signal %d set after Sigfillset", s)
		}
	}
}

type fakeExiter struct {
	exited bool
	status int
}

func (f *fakeExiter) Exit1(status int) {
	f.exited = true
	f.status = status
}

func TestSendsigEnqueuesAndDispatchRunsDefault(t *testing.T) {
	q := NewQueue()
	var set Sigset_t
	Sigaddset(&set, SIGKILL)
	if err := q.Sendsig(set); err != 0 {
		t.Fatalf("Sendsig: %v", err)
	}
	owner := &fakeExiter{}
	DispatchSignals(q, owner)
	if !owner.exited || owner.status != 128+SIGKILL {
		t.Fatalf("expected SIGKILL to terminate, got exited=%v status=%d", owner.exited, owner.status)
	}
}

func TestDispatchDrainsQueue(t *testing.T) {
	q := NewQueue()
	var set Sigset_t
	Sigaddset(&set, SIGTERM)
	q.Sendsig(set)
	DispatchSignals(q, nil)
	q.Lock()
	n := len(q.pending)
	q.Unlock()
	if n != 0 {
		t.Fatalf("expected queue drained, has %d pending", n)
	}
}

type fakeCorer struct {
	fakeExiter
	faultAddr uintptr
	dumped    bool
}

func (f *fakeCorer) Coredump(addr uintptr) defs.Err_t {
	f.dumped = true
	f.faultAddr = addr
	return 0
}

func TestSendsigFaultDumpsCoreBeforeExit(t *testing.T) {
	q := NewQueue()
	if err := q.SendsigFault(SIGSEGV, 0xdeadbeef); err != 0 {
		t.Fatalf("SendsigFault: %v", err)
	}
	owner := &fakeCorer{}
	DispatchSignals(q, owner)
	if !owner.dumped || owner.faultAddr != 0xdeadbeef {
		t.Fatalf("expected Coredump called with fault address, got dumped=%v addr=%x", owner.dumped, owner.faultAddr)
	}
	if !owner.exited || owner.status != 128+SIGSEGV {
		t.Fatalf("expected SIGSEGV to terminate after coredump, got exited=%v status=%d", owner.exited, owner.status)
	}
}

func TestCustomHandlerOverridesDefault(t *testing.T) {
	q := NewQueue()
	called := false
	q.SetAction(SIGTERM, Sigaction_t{Handler: func(signo int) { called = true }})
	var set Sigset_t
	Sigaddset(&set, SIGTERM)
	q.Sendsig(set)
	DispatchSignals(q, nil)
	if !called {
		t.Fatal("expected custom handler to run")
	}
}
