// Package ksync implements the kernel's synchronization primitives: a
// spinning lock, a yielding mutex, and the atomic helpers the VM and
// scheduler build on. These are first-class kernel types rather than
// raw stdlib sync, since a thread holding one of them must not be
// preempted mid-critical-section — a contract plain sync.Mutex cannot
// express.
package ksync

import (
	"runtime"
	"sync/atomic"
	"time"
)

// PreemptHook is set by the scheduler at boot to toggle preemption on the
// current CPU. Spinlock.Acquire/Release call through it so that a thread
// holding a spinlock cannot be preempted mid-critical-section. A nil hook (the
// state before the scheduler initializes) is a no-op, which keeps this
// package usable standalone in tests.
var PreemptHook func(enable bool)

// YieldHook is set by the scheduler at boot; Mutex.Acquire calls it on
// contention so that a blocked thread is descheduled rather than
// spinning on the CPU.
var YieldHook func()

func preemptSet(enable bool) {
	if PreemptHook != nil {
		PreemptHook(enable)
	}
}

func yieldToSched() {
	if YieldHook != nil {
		YieldHook()
		return
	}
	runtime.Gosched()
}

/// Spinlock_t is a single-word spinning lock.
type Spinlock_t struct {
	state int32
}

/// Acquire spins until the lock is taken, disabling preemption on the
/// current CPU for the duration.
func (l *Spinlock_t) Acquire() {
	preemptSet(false)
	for !atomic.CompareAndSwapInt32(&l.state, 0, 1) {
		runtime.Gosched()
	}
}

/// Release clears the lock and re-enables preemption.
func (l *Spinlock_t) Release() {
	atomic.StoreInt32(&l.state, 0)
	preemptSet(true)
}

/// TryAcquire attempts to take the lock without spinning. It returns
/// true if the lock was already held, so callers can decide whether to
/// spin or back off.
func (l *Spinlock_t) TryAcquire() bool {
	if atomic.CompareAndSwapInt32(&l.state, 0, 1) {
		preemptSet(false)
		return false
	}
	return true
}

/// Usleep spins with a monotonic timer until the lock is acquired or
/// usecMax microseconds elapse. It returns true on success, false on
/// timeout.
func (l *Spinlock_t) Usleep(usecMax int) bool {
	deadline := time.Now().Add(time.Duration(usecMax) * time.Microsecond)
	for {
		if !l.TryAcquire() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		runtime.Gosched()
	}
}

/// Mutex_t is a sleeping lock: contention yields to the scheduler
/// instead of spinning, making it safe to hold across blocking code.
type Mutex_t struct {
	state int32
	Name  string
}

/// Acquire takes the mutex, yielding to the scheduler on contention.
/// The flags parameter is reserved for future interruptible-wait support
/// and is currently unused: acquire is not interruptible.
func (m *Mutex_t) Acquire(flags int) {
	for !atomic.CompareAndSwapInt32(&m.state, 0, 1) {
		yieldToSched()
	}
}

/// Release clears the mutex.
func (m *Mutex_t) Release() {
	atomic.StoreInt32(&m.state, 0)
}

// Atomic helpers used by the scheduler (run-queue counters, nthreads)
// and the VM (page/object refcounts). These are thin, named wrappers
// around sync/atomic so call sites read as kernel operations rather than
// raw stdlib calls.

func Load32(p *int32) int32   { return atomic.LoadInt32(p) }
func Store32(p *int32, v int32) { atomic.StoreInt32(p, v) }
func Add32(p *int32, delta int32) int32 { return atomic.AddInt32(p, delta) }
func Sub32(p *int32, delta int32) int32 { return atomic.AddInt32(p, -delta) }

func Load64(p *int64) int64   { return atomic.LoadInt64(p) }
func Store64(p *int64, v int64) { atomic.StoreInt64(p, v) }
func Add64(p *int64, delta int64) int64 { return atomic.AddInt64(p, delta) }
func Sub64(p *int64, delta int64) int64 { return atomic.AddInt64(p, -delta) }

/// TestAndSet atomically sets *p to 1 and returns the previous value.
func TestAndSet(p *int32) int32 {
	return atomic.SwapInt32(p, 1)
}

/// Clear atomically sets *p to 0.
func Clear(p *int32) {
	atomic.StoreInt32(p, 0)
}
