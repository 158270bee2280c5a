package intr

import (
	"sync"
	"sync/atomic"

	"hyra/defs"
)

/// IPIHandler runs on the target CPU when one of its pending IPIs is
/// dispatched. source is the id of the sending CPU.
type IPIHandler func(source int)

type ipiSlot_t struct {
	handler IPIHandler
}

/// IPIRegistry_t is a per-CPU inter-processor-interrupt table: each CPU
/// owns one, replacing a single shared global array, so that allocating
/// an IPI id on one CPU can never race with dispatch on another.
type IPIRegistry_t struct {
	sync.Mutex
	owner      *CPU_t
	slots      [maxIPI]*ipiSlot_t
	count      int
	pending    uint32
	dispatching int32
}

/// Alloc registers handler under a new IPI id in 0..31 and returns it.
func (r *IPIRegistry_t) Alloc(handler IPIHandler) (int, defs.Err_t) {
	if handler == nil {
		return 0, defs.EINVAL
	}
	r.Lock()
	defer r.Unlock()
	if r.count >= maxIPI {
		return 0, defs.EAGAIN
	}
	id := r.count
	r.slots[id] = &ipiSlot_t{handler: handler}
	r.count++
	return id, 0
}

/// Send sets id's bit in r's pending bitmap and dispatches it, unless a
/// dispatch on r is already in progress, in which case the new bit
/// still gets set (nested IPIs coalesce into the bitmap) and the
/// in-progress dispatch loop picks it up.
func Send(r *IPIRegistry_t, source int, id int) defs.Err_t {
	r.Lock()
	if id < 0 || id >= r.count {
		r.Unlock()
		return defs.EINVAL
	}
	r.pending |= 1 << uint(id)
	already := atomic.LoadInt32(&r.dispatching) != 0
	r.Unlock()
	if already {
		return 0
	}
	dispatch(r, source)
	return 0
}

// dispatch drains r's pending bitmap, invoking each set slot's handler
// once. The dispatching flag prevents a handler that triggers another
// Send to this same CPU from recursing; the bit it sets is instead
// picked up by this same draining loop below.
func dispatch(r *IPIRegistry_t, source int) {
	atomic.StoreInt32(&r.dispatching, 1)
	defer atomic.StoreInt32(&r.dispatching, 0)
	for {
		r.Lock()
		pending := r.pending
		if pending == 0 {
			r.Unlock()
			return
		}
		r.pending = 0
		slots := make([]*ipiSlot_t, 0, r.count)
		for i := 0; i < r.count; i++ {
			if pending&(1<<uint(i)) != 0 {
				slots = append(slots, r.slots[i])
			}
		}
		r.Unlock()
		for _, s := range slots {
			s.handler(source)
		}
	}
}
