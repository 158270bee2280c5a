package ksync

import "testing"

func TestSpinlockAcquireRelease(t *testing.T) {
	var l Spinlock_t
	l.Acquire()
	if l.state != 1 {
		t.Fatal("expected state 1 after Acquire")
	}
	l.Release()
	if l.state != 0 {
		t.Fatal("expected state 0 after Release")
	}
}

func TestSpinlockTryAcquire(t *testing.T) {
	var l Spinlock_t
	if already := l.TryAcquire(); already {
		t.Fatal("expected first TryAcquire to report not already held")
	}
	if already := l.TryAcquire(); !already {
		t.Fatal("expected second TryAcquire to report already held")
	}
	l.Release()
}

func TestSpinlockUsleepTimesOut(t *testing.T) {
	var l Spinlock_t
	l.Acquire()
	if l.Usleep(1000) {
		t.Fatal("expected Usleep to time out while lock is held")
	}
}

func TestMutexAcquireRelease(t *testing.T) {
	var m Mutex_t
	m.Acquire(0)
	if m.state != 1 {
		t.Fatal("expected state 1 after Acquire")
	}
	m.Release()
	if m.state != 0 {
		t.Fatal("expected state 0 after Release")
	}
}

func TestAtomicHelpers(t *testing.T) {
	var v32 int32
	Store32(&v32, 5)
	if Load32(&v32) != 5 {
		t.Fatal("expected Load32 to see stored value")
	}
	if Add32(&v32, 3) != 8 {
		t.Fatal("expected Add32 to return new value")
	}
	if Sub32(&v32, 2) != 6 {
		t.Fatal("expected Sub32 to return new value")
	}

	var v64 int64
	Store64(&v64, 10)
	if Add64(&v64, 5) != 15 {
		t.Fatal("expected Add64 to return new value")
	}
	if Sub64(&v64, 3) != 12 {
		t.Fatal("expected Sub64 to return new value")
	}
}

func TestTestAndSetAndClear(t *testing.T) {
	var f int32
	if TestAndSet(&f) != 0 {
		t.Fatal("expected previous value 0")
	}
	if TestAndSet(&f) != 1 {
		t.Fatal("expected previous value 1 once set")
	}
	Clear(&f)
	if f != 0 {
		t.Fatal("expected Clear to zero the flag")
	}
}
