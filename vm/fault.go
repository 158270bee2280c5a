package vm

import (
	"hyra/defs"
	"hyra/mem"
	"hyra/pmap"
)

// AccessType describes the kind of access that triggered a page fault.
type AccessType int

const (
	AccessRead AccessType = iota
	AccessWrite
	AccessExec
)

/// HandleFault resolves a page fault at va against as's mmap ledger: it
/// locates the covering mapping, fetches (and lazily installs) the
/// backing page, and — for a write fault against a copy-on-write
/// private mapping whose page is still shared with another address
/// space — duplicates the page before granting write access.
func HandleFault(as *AddrSpace_t, va uintptr, acc AccessType) defs.Err_t {
	va = uintptr(rounddown(int(va), mem.PGSIZE))
	entry, ok := as.Ledger.Lookup(va)
	if !ok {
		return defs.EFAULT
	}
	if acc == AccessWrite && entry.Prot&pmap.PROT_WRITE == 0 {
		return defs.EFAULT
	}
	if acc == AccessExec && entry.Prot&pmap.PROT_EXEC == 0 {
		return defs.EFAULT
	}

	objOff := va - entry.Start
	pages, err := entry.Obj.Get(objOff, mem.PGSIZE)
	if err != 0 {
		return err
	}
	pg := pages[0]
	pa := pg.Pa
	installProt := entry.Prot

	private := entry.Flags&MAP_PRIVATE != 0
	if private {
		// Lazily-mapped private pages start read-only so the first
		// write traps here and triggers a copy rather than mutating
		// a page another address space may still be reading.
		installProt &^= pmap.PROT_WRITE
	}

	as.Lock()
	defer as.Unlock()

	existingPa, _, mapped := as.Vas.Lookup(va)
	if mapped {
		if !(acc == AccessWrite && private) {
			// Already mapped and this isn't a COW upgrade: nothing to do.
			return 0
		}
		pa = existingPa
	}

	// Snapshot shared-ness before touching the frame's refcount: Unmap
	// below (via FreeFrame) drops our own claim on pa, which would
	// otherwise make a two-mapping shared page look exclusively owned
	// by the time the refcount is checked.
	shared := acc == AccessWrite && private && mem.Physmem.Refcnt(pa) > 1

	if mapped {
		as.Vas.Unmap(va)
		mem.Physmem.FreeFrame(pa, 1)
	}

	if shared {
		newPa, ok := mem.Physmem.AllocPageframe()
		if !ok {
			return defs.ENOMEM
		}
		copy(mem.Physmem.Dmap(newPa), mem.Physmem.Dmap(pa))
		pa = newPa
		installProt |= pmap.PROT_WRITE
	} else if acc == AccessWrite {
		installProt |= pmap.PROT_WRITE
	}

	mem.Physmem.Refup(pa)
	if err := as.Vas.Map(va, pa, installProt); err != 0 {
		mem.Physmem.FreeFrame(pa, 1)
		return err
	}
	if acc == AccessWrite {
		as.Vas.MarkDirty(va)
	}
	return 0
}

func rounddown(n, to int) int {
	return n - n%to
}
