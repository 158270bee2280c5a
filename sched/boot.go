package sched

import "hyra/ksync"

var bootCPU *CPUSched_t

/// RegisterHooks wires cs's PreemptSet and a yield-to-next-runnable
/// callback into ksync, so that Spinlock_t and Mutex_t can toggle
/// preemption and yield without importing sched directly.
func RegisterHooks(cs *CPUSched_t) {
	bootCPU = cs
	ksync.PreemptHook = cs.PreemptSet
	ksync.YieldHook = func() {
		if r := cs.Dequeue(); r != nil {
			cs.Requeue(r)
		}
	}
}
