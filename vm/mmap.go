package vm

import (
	"sort"
	"sync"

	"hyra/defs"
	"hyra/mem"
	"hyra/pmap"
)

// MapFlags describe how a region was established, mirroring the
// shared/private distinction mmap(2) makes.
type MapFlags int

const (
	MAP_SHARED  MapFlags = 1 << 0
	MAP_PRIVATE MapFlags = 1 << 1
	MAP_FIXED   MapFlags = 1 << 2
	MAP_ANON    MapFlags = 1 << 3
)

/// Entry_t is one non-overlapping mapped region of an address space.
type Entry_t struct {
	Start uintptr
	Len   uintptr
	Obj   *Object_t
	Prot  pmap.Prot_t
	Flags MapFlags
}

func (e *Entry_t) end() uintptr { return e.Start + e.Len }

/// Ledger_t is the per-address-space mmap ledger: a sorted, non-
/// overlapping list of mapped regions. Lookups use binary search rather
/// than a balanced tree, which is adequate at the region counts a single
/// address space accumulates.
type Ledger_t struct {
	sync.Mutex
	entries []*Entry_t
}

func NewLedger() *Ledger_t {
	return &Ledger_t{}
}

// find returns the index of the first entry whose end is > va.
func (l *Ledger_t) find(va uintptr) int {
	return sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].end() > va
	})
}

/// Lookup returns the entry covering va, if any.
func (l *Ledger_t) Lookup(va uintptr) (*Entry_t, bool) {
	l.Lock()
	defer l.Unlock()
	i := l.find(va)
	if i < len(l.entries) && l.entries[i].Start <= va {
		return l.entries[i], true
	}
	return nil, false
}

/// Insert adds a new entry to the ledger, failing with EEXIST if it
/// overlaps an existing one.
func (l *Ledger_t) Insert(e *Entry_t) defs.Err_t {
	l.Lock()
	defer l.Unlock()
	i := l.find(e.Start)
	if i < len(l.entries) && l.entries[i].Start < e.end() {
		return defs.EEXIST
	}
	if i > 0 && l.entries[i-1].end() > e.Start {
		return defs.EEXIST
	}
	l.entries = append(l.entries, nil)
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = e
	return 0
}

/// Remove deletes the ledger entry exactly spanning [start, start+length).
func (l *Ledger_t) Remove(start, length uintptr) (*Entry_t, defs.Err_t) {
	l.Lock()
	defer l.Unlock()
	i := l.find(start)
	if i >= len(l.entries) || l.entries[i].Start != start || l.entries[i].Len != length {
		return nil, defs.EINVAL
	}
	e := l.entries[i]
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return e, 0
}

/// Entries returns a snapshot slice of the ledger's current entries,
/// used by fork to duplicate an address space's mappings.
func (l *Ledger_t) Entries() []*Entry_t {
	l.Lock()
	defer l.Unlock()
	out := make([]*Entry_t, len(l.entries))
	copy(out, l.entries)
	return out
}

/// AddrSpace_t ties a page-table tree (Vas) to the mmap ledger that
/// describes what is mapped into it, under a single lock ordered
/// Ledger-then-Vas to avoid deadlocks against the fault handler.
type AddrSpace_t struct {
	sync.Mutex
	Vas    *pmap.Vas_t
	Ledger *Ledger_t
}

/// NewAddrSpace allocates a fresh, empty address space.
func NewAddrSpace() (*AddrSpace_t, defs.Err_t) {
	vas, err := pmap.NewVas()
	if err != 0 {
		return nil, err
	}
	return &AddrSpace_t{Vas: vas, Ledger: NewLedger()}, 0
}

/// MmapAt establishes a new mapping of obj at [va, va+length) with the
/// given protection and flags. obj's refcount is taken by the mapping;
/// the caller retains their own reference if they intend to keep using
/// obj independently.
func (as *AddrSpace_t) MmapAt(va, length uintptr, obj *Object_t, prot pmap.Prot_t, flags MapFlags) defs.Err_t {
	length = uintptr(roundup(int(length), mem.PGSIZE))
	obj.Ref()
	e := &Entry_t{Start: va, Len: length, Obj: obj, Prot: prot, Flags: flags}
	if err := as.Ledger.Insert(e); err != 0 {
		obj.Unref()
		return err
	}
	return 0
}

/// MunmapAt tears down the mapping at [va, va+length), unmapping every
/// page it currently has installed and dropping the ledger's reference
/// to the backing object.
func (as *AddrSpace_t) MunmapAt(va, length uintptr) defs.Err_t {
	length = uintptr(roundup(int(length), mem.PGSIZE))
	e, err := as.Ledger.Remove(va, length)
	if err != 0 {
		return err
	}
	as.Lock()
	for off := e.Start; off < e.end(); off += uintptr(mem.PGSIZE) {
		as.Vas.Unmap(off)
	}
	as.Unlock()
	e.Obj.Unref()
	return 0
}

func roundup(n, to int) int {
	if n%to == 0 {
		return n
	}
	return n + (to - n%to)
}
