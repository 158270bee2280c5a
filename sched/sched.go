// Package sched implements the multi-level feedback queue / round-robin
// scheduler: per-CPU run queues, the timeslice length constants (no
// preemption timer is programmed here), and the preempt-disable hook
// consulted by spinlock acquire/release.
package sched

import (
	"sync"
	"sync/atomic"
)

// Scheduling policy selectable at build time.
const (
	PolicyMLFQ = 0
	PolicyRR   = 1
)

// SchedNqueue is the number of MLFQ priority levels.
const SchedNqueue = 4

// Timeslice durations, matching the default and "kick now" quanta.
const (
	DefaultTimesliceUsec = 9000
	ShortTimesliceUsec   = 10
)

/// Runnable is anything a run queue can hold: proc.Proc_t satisfies
/// this, but sched itself does not import proc to avoid a cycle.
type Runnable interface {
	Priority() int
	SetPriority(int)
}

type queue_t struct {
	sync.Mutex
	items []Runnable
}

func (q *queue_t) push(r Runnable) {
	q.Lock()
	q.items = append(q.items, r)
	q.Unlock()
}

func (q *queue_t) pop() Runnable {
	q.Lock()
	defer q.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	r := q.items[0]
	q.items = q.items[1:]
	return r
}

func (q *queue_t) len() int {
	q.Lock()
	defer q.Unlock()
	return len(q.items)
}

/// CPUSched_t is one logical CPU's scheduling state: SchedNqueue
/// priority levels, drained round-robin within a level, highest
/// priority (lowest index) first.
type CPUSched_t struct {
	Policy   int32
	levels   [SchedNqueue]queue_t
	nthread  int32
	preempt  int32 // 0 = preemption disabled
	current  Runnable
}

/// NewCPUSched creates a per-CPU scheduler with preemption enabled and
/// policy set to MLFQ.
func NewCPUSched() *CPUSched_t {
	return &CPUSched_t{Policy: PolicyMLFQ, preempt: 1}
}

/// Nthread returns the number of runnable threads enqueued on this CPU.
func (cs *CPUSched_t) Nthread() int32 {
	return atomic.LoadInt32(&cs.nthread)
}

/// Enqueue adds r to the run queue for its current priority level,
/// clamping to the valid range.
func (cs *CPUSched_t) Enqueue(r Runnable) {
	lvl := clampLevel(r.Priority())
	cs.levels[lvl].push(r)
	atomic.AddInt32(&cs.nthread, 1)
}

func clampLevel(p int) int {
	if p < 0 {
		return 0
	}
	if p >= SchedNqueue {
		return SchedNqueue - 1
	}
	return p
}

/// Dequeue picks the next thread to run: highest-priority non-empty
/// level, FIFO within that level. Returns nil if every level is empty.
func (cs *CPUSched_t) Dequeue() Runnable {
	for lvl := 0; lvl < SchedNqueue; lvl++ {
		if cs.levels[lvl].len() == 0 {
			continue
		}
		if r := cs.levels[lvl].pop(); r != nil {
			atomic.AddInt32(&cs.nthread, -1)
			cs.current = r
			return r
		}
	}
	cs.current = nil
	return nil
}

/// Current returns the thread last returned by Dequeue, or nil.
func (cs *CPUSched_t) Current() Runnable {
	return cs.current
}

/// Requeue re-enqueues from after a timer interrupt; under MLFQ it
/// first demotes the thread's priority by one level, clamped to the
/// lowest (quantum exhausted without blocking), under RR priority is
/// left unchanged.
func (cs *CPUSched_t) Requeue(r Runnable) {
	if cs.Policy == PolicyMLFQ {
		r.SetPriority(clampLevel(r.Priority() + 1))
	}
	cs.Enqueue(r)
}

/// PreemptSet enables or disables preemption on the current CPU; held
/// across a critical section the way a spinlock acquire/release pair
/// brackets it.
func (cs *CPUSched_t) PreemptSet(enable bool) {
	if enable {
		atomic.StoreInt32(&cs.preempt, 1)
	} else {
		atomic.StoreInt32(&cs.preempt, 0)
	}
}

/// PreemptEnabled reports whether preemption is currently allowed on
/// this CPU.
func (cs *CPUSched_t) PreemptEnabled() bool {
	return atomic.LoadInt32(&cs.preempt) != 0
}

/// Stat is the accounting snapshot returned by CollectStat. No ctlfs
/// entry publishes it; there is no /ctl/sched/stat file.
type Stat struct {
	NThreads   int32
	CPUsOnline int
	QuantumUsec int
}

/// CollectStat summarizes scheduler state across every online CPU.
func CollectStat(cpus []*CPUSched_t) Stat {
	var total int32
	for _, cs := range cpus {
		total += cs.Nthread()
	}
	return Stat{NThreads: total, CPUsOnline: len(cpus), QuantumUsec: DefaultTimesliceUsec}
}
