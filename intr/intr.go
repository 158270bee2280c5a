// Package intr implements the interrupt vector registry and the
// per-CPU IPL/IPI machinery sitting beneath the scheduler and device
// drivers: vectors 0x20-0xFF divided into 16-vector-wide IPL bands,
// splraise/splx priority gating, and a per-CPU inter-processor
// interrupt dispatch table.
package intr

import (
	"sync"
	"sync/atomic"

	"hyra/defs"
)

// Interrupt priority levels; the upper nibble of a vector number.
const (
	IPL_NONE  = 0
	IPL_BIO   = 1
	IPL_CLOCK = 2
	IPL_HIGH  = 3
)

const (
	vectorBase    = 0x20
	vectorCount   = 0x100 - vectorBase
	vectorsPerIPL = 16
	// Vectors 0x20-0x23 are reserved: 0x20 for the scheduler tick and
	// 0x21-0x23 for inter-processor interrupts.
	reservedBelow = 0x24
	maxIPI        = 32
)

/// HandlerFunc is invoked with the vector that fired and the opaque
/// data word supplied at registration.
type HandlerFunc func(vector int, data uint64)

/// IntrHand_t is a registered interrupt handler.
type IntrHand_t struct {
	Name    string
	Handler HandlerFunc
	IPL     int
	IRQ     int // requested IRQ, or -1 for MSI / no external routing
	Vector  int
	Data    uint64
	nintr   uint64
}

/// Nintr returns the number of times this handler has fired.
func (ih *IntrHand_t) Nintr() uint64 {
	return atomic.LoadUint64(&ih.nintr)
}

type registry_t struct {
	sync.Mutex
	vecs      [vectorCount]*IntrHand_t
	routeIRQs map[int]int // irq -> vector, for RouteOf lookups in tests
}

var reg = &registry_t{routeIRQs: make(map[int]int)}

/// Register allocates a free vector at or above ipl<<4 and installs
/// handler there, routing irq to it if irq >= 0. It returns the handle,
/// which carries the assigned vector number.
func Register(name string, handler HandlerFunc, ipl int, irq int, data uint64) (*IntrHand_t, defs.Err_t) {
	if name == "" || handler == nil {
		return nil, defs.EINVAL
	}
	vec := ipl << 4
	if vec < 0 {
		vec = 0
	}
	reg.Lock()
	defer reg.Unlock()
	for i := vec; i < vec+vectorsPerIPL; i++ {
		idx := i
		if idx+vectorBase < reservedBelow {
			continue
		}
		if idx < 0 || idx >= vectorCount {
			continue
		}
		if reg.vecs[idx] != nil {
			continue
		}
		ih := &IntrHand_t{
			Name:    name,
			Handler: handler,
			IPL:     ipl,
			IRQ:     irq,
			Vector:  idx + vectorBase,
			Data:    data,
		}
		reg.vecs[idx] = ih
		if irq >= 0 {
			reg.routeIRQs[irq] = ih.Vector
		}
		return ih, 0
	}
	return nil, defs.EAGAIN
}

/// Fire simulates the given vector firing, invoking its registered
/// handler and incrementing its hit count. It is the stand-in for the
/// hardware trampoline that would otherwise land here from an ISR.
func Fire(vector int) defs.Err_t {
	reg.Lock()
	idx := vector - vectorBase
	if idx < 0 || idx >= vectorCount || reg.vecs[idx] == nil {
		reg.Unlock()
		return defs.EINVAL
	}
	ih := reg.vecs[idx]
	reg.Unlock()
	atomic.AddUint64(&ih.nintr, 1)
	ih.Handler(vector, ih.Data)
	return 0
}

/// VectorOf returns the vector assigned to irq, if any.
func VectorOf(irq int) (int, bool) {
	reg.Lock()
	defer reg.Unlock()
	v, ok := reg.routeIRQs[irq]
	return v, ok
}

/// Nvectors returns the number of currently registered interrupt
/// vectors, the content of /proc/interrupts.
func Nvectors() int {
	reg.Lock()
	defer reg.Unlock()
	n := 0
	for _, ih := range reg.vecs {
		if ih != nil {
			n++
		}
	}
	return n
}

/// CPU_t is a per-logical-CPU interrupt control block.
type CPU_t struct {
	ID          int
	APICID      uint32
	ipl         int32
	IPIs        IPIRegistry_t
	ShootdownVA uintptr
	Pinned      int32
	Online      bool
}

/// NewCPU creates an interrupt control block for a logical CPU.
func NewCPU(id int, apicid uint32) *CPU_t {
	c := &CPU_t{ID: id, APICID: apicid, Online: true}
	c.IPIs.owner = c
	return c
}

/// IPL returns the CPU's current interrupt priority level.
func (c *CPU_t) IPL() int {
	return int(atomic.LoadInt32(&c.ipl))
}

/// Splraise raises the CPU's IPL to s, which must be at or above the
/// current level, and returns the previous level for a later Splx.
func Splraise(c *CPU_t, s int) int {
	old := int(atomic.LoadInt32(&c.ipl))
	if s < old {
		panic("intr: splraise IPL less than current IPL")
	}
	atomic.StoreInt32(&c.ipl, int32(s))
	return old
}

/// Splx restores the CPU's IPL to s, which must be at or below the
/// current level.
func Splx(c *CPU_t, s int) {
	old := int(atomic.LoadInt32(&c.ipl))
	if s > old {
		panic("intr: splx IPL greater than current IPL")
	}
	atomic.StoreInt32(&c.ipl, int32(s))
}
