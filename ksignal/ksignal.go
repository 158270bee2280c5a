// Package ksignal implements per-thread signal delivery: a sigset_t
// bitset, a fixed sigaction table, a FIFO ksiginfo queue, and the
// default handlers that run when no user handler is registered.
package ksignal

import (
	"sync"

	"hyra/defs"
)

// Signal numbers carrying a default handler.
const (
	SIGFPE  = 8
	SIGKILL = 9
	SIGSEGV = 11
	SIGTERM = 15
)

// Sigmax is the size of a process's sigaction table and sigset_t range.
const Sigmax = 64

/// Sigset_t is a 64-signal bitset.
type Sigset_t uint64

/// Sigemptyset clears every bit.
func Sigemptyset(set *Sigset_t) { *set = 0 }

/// Sigfillset sets every valid bit.
func Sigfillset(set *Sigset_t) { *set = ^Sigset_t(0) >> (64 - Sigmax) }

/// Sigaddset sets signo's bit.
func Sigaddset(set *Sigset_t, signo int) defs.Err_t {
	if signo < 0 || signo >= Sigmax {
		return defs.EINVAL
	}
	*set |= 1 << uint(signo)
	return 0
}

/// Sigdelset clears signo's bit.
func Sigdelset(set *Sigset_t, signo int) defs.Err_t {
	if signo < 0 || signo >= Sigmax {
		return defs.EINVAL
	}
	*set &^= 1 << uint(signo)
	return 0
}

/// Sigismember reports whether signo's bit is set.
func Sigismember(set Sigset_t, signo int) bool {
	if signo < 0 || signo >= Sigmax {
		return false
	}
	return set&(1<<uint(signo)) != 0
}

/// HandlerFunc is a user (or default) signal handler.
type HandlerFunc func(signo int)

/// Sigaction_t is one signal's registered disposition.
type Sigaction_t struct {
	Handler HandlerFunc
	Mask    Sigset_t
	Flags   int
}

/// Ksiginfo_t is one pending signal delivery.
type Ksiginfo_t struct {
	Signo     int
	Sigcode   int
	Action    *Sigaction_t
	FaultAddr uintptr // valid for SIGSEGV, delivered by SendsigFault
}

/// Queue_t is a thread's pending-signal queue plus its sigaction table.
type Queue_t struct {
	sync.Mutex
	actions [Sigmax]Sigaction_t
	pending []*Ksiginfo_t
}

/// NewQueue creates an empty signal queue with default dispositions
/// installed for the signals that have one.
func NewQueue() *Queue_t {
	q := &Queue_t{}
	q.actions[SIGFPE] = Sigaction_t{Handler: SigfpeDefault}
	q.actions[SIGKILL] = Sigaction_t{Handler: SigkillDefault}
	q.actions[SIGSEGV] = Sigaction_t{Handler: SigsegvDefault}
	q.actions[SIGTERM] = Sigaction_t{Handler: SigtermDefault}
	return q
}

/// SetAction installs act as signo's disposition.
func (q *Queue_t) SetAction(signo int, act Sigaction_t) defs.Err_t {
	if signo < 0 || signo >= Sigmax {
		return defs.EINVAL
	}
	q.Lock()
	defer q.Unlock()
	q.actions[signo] = act
	return 0
}

/// Sendsig enqueues a ksiginfo for every signal set in set.
func (q *Queue_t) Sendsig(set Sigset_t) defs.Err_t {
	q.Lock()
	defer q.Unlock()
	for signo := 0; signo < Sigmax; signo++ {
		if !Sigismember(set, signo) {
			continue
		}
		act := q.actions[signo]
		q.pending = append(q.pending, &Ksiginfo_t{Signo: signo, Action: &act})
	}
	return 0
}

// Exiter is called by the default handlers for signals that terminate
// the process (SIGKILL, SIGSEGV); set by the owning proc.Proc_t so
// ksignal need not import proc.
type Exiter interface {
	Exit1(status int)
}

// Corer is implemented by an Exiter that can also produce a crash
// report; the default SIGSEGV handler calls it, if present, before
// tearing the process down. Kept separate from Exiter so callers that
// only exit processes (tests, kernel threads) don't need a Coredump
// stub.
type Corer interface {
	Coredump(faultAddr uintptr) defs.Err_t
}

/// SendsigFault enqueues a single signo carrying the faulting address,
/// for delivery paths (the page fault handler) that need to pass more
/// than Sendsig's bitset can carry.
func (q *Queue_t) SendsigFault(signo int, addr uintptr) defs.Err_t {
	if signo < 0 || signo >= Sigmax {
		return defs.EINVAL
	}
	q.Lock()
	defer q.Unlock()
	act := q.actions[signo]
	q.pending = append(q.pending, &Ksiginfo_t{Signo: signo, Action: &act, FaultAddr: addr})
	return 0
}

/// DispatchSignals drains q, running each pending signal's handler (the
/// registered one, or the default if none was set) against owner. It is
/// called at every return-to-user boundary. A fatal SIGSEGV dumps core
/// (via Corer, if owner implements it) before owner.Exit1 tears the
/// process down.
func DispatchSignals(q *Queue_t, owner Exiter) {
	q.Lock()
	pending := q.pending
	q.pending = nil
	q.Unlock()

	for _, ksi := range pending {
		if ksi.Action == nil || ksi.Action.Handler == nil {
			continue
		}
		ksi.Action.Handler(ksi.Signo)
		switch ksi.Signo {
		case SIGSEGV:
			if corer, ok := owner.(Corer); ok {
				corer.Coredump(ksi.FaultAddr)
			}
			if owner != nil {
				owner.Exit1(128 + ksi.Signo)
			}
		case SIGKILL:
			if owner != nil {
				owner.Exit1(128 + ksi.Signo)
			}
		}
	}
}

// Default handlers. Each is a no-op: SIGFPE and SIGTERM therefore
// take no action by default, while for SIGKILL and SIGSEGV
// DispatchSignals itself ends the owner through the Exiter interface
// after the handler returns.
func SigfpeDefault(signo int)  {}
func SigkillDefault(signo int) {}
func SigsegvDefault(signo int) {}
func SigtermDefault(signo int) {}
