// Package accnt accumulates per-thread user/system time accounting.
package accnt

import (
	"sync"
	"sync/atomic"
	"time"

	"hyra/util"
)

/// Accnt_t accumulates per-process accounting information. Userns and
/// Sysns store runtime in nanoseconds. The embedded mutex allows callers
/// to take a consistent snapshot of the fields when exporting usage
/// statistics via Fetch.
type Accnt_t struct {
	Userns int64
	Sysns  int64
	sync.Mutex
}

/// Utadd adds delta nanoseconds to the user-time counter.
func (a *Accnt_t) Utadd(delta int) {
	atomic.AddInt64(&a.Userns, int64(delta))
}

/// Systadd adds delta nanoseconds to the system-time counter.
func (a *Accnt_t) Systadd(delta int) {
	atomic.AddInt64(&a.Sysns, int64(delta))
}

/// Now returns the current time in nanoseconds.
func (a *Accnt_t) Now() int {
	return int(time.Now().UnixNano())
}

/// IoTime removes time spent waiting for I/O from the system-time total.
func (a *Accnt_t) IoTime(since int) {
	a.Systadd(-(a.Now() - since))
}

/// SleepTime removes time spent sleeping from the system-time total.
func (a *Accnt_t) SleepTime(since int) {
	a.Systadd(-(a.Now() - since))
}

/// Finish finalizes accounting by adding the time since inttime to the
/// system-time total.
func (a *Accnt_t) Finish(inttime int) {
	a.Systadd(a.Now() - inttime)
}

/// Add merges another accounting record into this one.
func (a *Accnt_t) Add(n *Accnt_t) {
	a.Lock()
	a.Userns += n.Userns
	a.Sysns += n.Sysns
	a.Unlock()
}

/// Fetch returns a snapshot of the accounting information encoded as an
/// rusage structure.
func (a *Accnt_t) Fetch() []uint8 {
	a.Lock()
	ru := a.ToRusage()
	a.Unlock()
	return ru
}

/// ToRusage converts the accounting data into an rusage-shaped byte
/// slice suitable for copying to user space.
func (a *Accnt_t) ToRusage() []uint8 {
	const words = 4
	ret := make([]uint8, words*8)
	totv := func(nano int64) (int, int) {
		return int(nano / 1e9), int((nano % 1e9) / 1000)
	}
	off := 0
	s, us := totv(a.Userns)
	util.Writen(ret, 8, off, s)
	off += 8
	util.Writen(ret, 8, off, us)
	off += 8
	s, us = totv(a.Sysns)
	util.Writen(ret, 8, off, s)
	off += 8
	util.Writen(ret, 8, off, us)
	return ret
}
