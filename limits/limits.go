// Package limits tracks configurable system wide resource ceilings.
package limits

import (
	"sync/atomic"
	"unsafe"
)

/// Sysatomic_t is a numeric limit that can be atomically given/taken.
type Sysatomic_t int64

/// Syslimit_t tracks system wide resource limits.
type Syslimit_t struct {
	// Vnodes caps the live vnode count (protected by the vnode cache lock).
	Vnodes int
	// Procs caps the number of live processes.
	Procs int
	// Vcache caps the per-process or global vnode cache size (sysctl knob).
	Vcache int
	// Capsules caps VSR capsule table size per domain.
	Capsules int
	// Mfspgs tracks additional tmpfs page objects handed out.
	Mfspgs Sysatomic_t
	// Blocks caps bdev block pages outstanding.
	Blocks int
}

/// Syslimit holds the configured system wide limits.
var Syslimit = MkSysLimit()

/// MkSysLimit returns the default set of limits.
func MkSysLimit() *Syslimit_t {
	return &Syslimit_t{
		Procs:    1e4,
		Vnodes:   20000,
		Vcache:   128,
		Capsules: 256,
		Blocks:   100000,
	}
}

func (s *Sysatomic_t) aptr() *int64 {
	return (*int64)(unsafe.Pointer(s))
}

/// Given increases the limit by the provided amount.
func (s *Sysatomic_t) Given(n uint) {
	atomic.AddInt64(s.aptr(), int64(n))
}

/// Taken tries to decrement the limit by the provided amount. It returns
/// true on success and leaves the limit unmodified on failure.
func (s *Sysatomic_t) Taken(n uint) bool {
	g := atomic.AddInt64(s.aptr(), -int64(n))
	if g >= 0 {
		return true
	}
	atomic.AddInt64(s.aptr(), int64(n))
	return false
}

/// Take decrements the limit by one and reports whether it succeeded.
func (s *Sysatomic_t) Take() bool {
	return s.Taken(1)
}

/// Give increments the limit by one.
func (s *Sysatomic_t) Give() {
	s.Given(1)
}
