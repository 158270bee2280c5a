// Package vm implements the VM object/page cache and the mmap ledger
// and fault handler: named objects backed by pluggable pagers (ANON,
// VNODE, DEVICE), and the per-address-space mapping ledger and page
// fault resolution built on top of them.
package vm

import (
	"sync"
	"sync/atomic"
	"time"

	"hyra/defs"
	"hyra/mem"
	"hyra/pmap"
)

// Page flags.
const (
	PG_VALID     uint32 = 1 << 0
	PG_CLEAN     uint32 = 1 << 1
	PG_REQUESTED uint32 = 1 << 2
)

/// Page_t is a single page owned by a vm_object: a physical frame plus
/// its offset within the object. The Obj back-reference is non-owning:
/// it becomes invalid once the owning object is destroyed, but a page
/// cannot outlive its object by construction (pages are freed when their
/// object's refcount reaches zero).
type Page_t struct {
	sync.Mutex
	Pa     mem.Pa_t
	Obj    *Object_t
	Offset uintptr
	Flags  uint32
}

// PagerKind distinguishes the three pager backends an object may use.
type PagerKind int

const (
	PagerAnon PagerKind = iota
	PagerVnode
	PagerDevice
)

// VnodeIO is the subset of vnode behaviour the VNODE pager needs. The
// fs package's Vnode_t satisfies this interface; vm does not import fs
// to avoid the import cycle a literal *fs.Vnode_t field would create
// (fs.Vnode_t already holds a *vm.Object_t).
type VnodeIO interface {
	VopRead(buf []byte, offset int64) (int, defs.Err_t)
	VopWrite(buf []byte, offset int64) (int, defs.Err_t)
}

// DeviceIO is the subset of cdev behaviour the DEVICE pager needs.
type DeviceIO interface {
	Mmap(off int64, flags int) (mem.Pa_t, defs.Err_t)
}

/// Object_t is a named collection of pages backed by a pager. Variants
/// by pager: ANON (zero-fill), VNODE (file-backed read/write-through),
/// DEVICE (cdev-backed, populate-only). An object is referenced by zero
/// or more mappings and by at most one vnode; it is destroyed when its
/// refcount reaches zero.
type Object_t struct {
	sync.Mutex
	Kind     PagerKind
	Prot     pmap.Prot_t
	Vnode    VnodeIO  // set when Kind == PagerVnode
	Device   DeviceIO // set when Kind == PagerDevice
	refcount int32
	pages    map[uintptr]*Page_t
}

/// NewAnonObject creates a fresh zero-fill anonymous object.
func NewAnonObject(prot pmap.Prot_t) *Object_t {
	return &Object_t{Kind: PagerAnon, Prot: prot, refcount: 1, pages: make(map[uintptr]*Page_t)}
}

/// NewVnodeObject creates an object backed by vn for file-backed
/// mappings.
func NewVnodeObject(vn VnodeIO, prot pmap.Prot_t) *Object_t {
	return &Object_t{Kind: PagerVnode, Vnode: vn, Prot: prot, refcount: 1, pages: make(map[uintptr]*Page_t)}
}

/// NewDeviceObject creates an object backed by a memory-mappable
/// character device.
func NewDeviceObject(dev DeviceIO, prot pmap.Prot_t) *Object_t {
	return &Object_t{Kind: PagerDevice, Device: dev, Prot: prot, refcount: 1, pages: make(map[uintptr]*Page_t)}
}

/// Ref increments the object's reference count.
func (o *Object_t) Ref() {
	atomic.AddInt32(&o.refcount, 1)
}

/// Unref decrements the object's reference count, reclaiming its pages
/// and returning them to the physical allocator when it reaches zero.
/// It reports whether the object was destroyed.
func (o *Object_t) Unref() bool {
	if atomic.AddInt32(&o.refcount, -1) > 0 {
		return false
	}
	o.Lock()
	for off, pg := range o.pages {
		mem.Physmem.FreeFrame(pg.Pa, 1)
		delete(o.pages, off)
	}
	o.Unlock()
	return true
}

/// Refcount returns the object's current reference count.
func (o *Object_t) Refcount() int {
	return int(atomic.LoadInt32(&o.refcount))
}

// pagerTimeout bounds how long Get waits for a page already locked by
// another caller before giving up.
const pagerTimeout = 200 * time.Millisecond

/// Pagelookup returns the page at offset, if one exists in the object's
/// page tree.
func (o *Object_t) Pagelookup(offset uintptr) (*Page_t, bool) {
	o.Lock()
	defer o.Unlock()
	pg, ok := o.pages[offset]
	return pg, ok
}

/// Pagealloc allocates and inserts a new page at offset, zero-filling it
/// when the object is ANON (all frames start zeroed by mem.AllocPageframe
/// regardless of pager, so this matches every pager's needs).
func (o *Object_t) Pagealloc(offset uintptr) (*Page_t, defs.Err_t) {
	pa, ok := mem.Physmem.AllocPageframe()
	if !ok {
		return nil, defs.ENOMEM
	}
	pg := &Page_t{Pa: pa, Obj: o, Offset: offset}
	o.Lock()
	if existing, dup := o.pages[offset]; dup {
		o.Unlock()
		mem.Physmem.FreeFrame(pa, 1)
		return existing, 0
	}
	o.pages[offset] = pg
	o.Unlock()
	return pg, 0
}

/// Get fetches length bytes' worth of pages starting at offset,
/// allocating and populating any that are missing via the object's
/// pager. offset and length are page-aligned by the caller (the fault
/// handler only ever asks for a single page at a time).
func (o *Object_t) Get(offset uintptr, length int) ([]*Page_t, defs.Err_t) {
	var out []*Page_t
	for off := offset; off < offset+uintptr(length); off += uintptr(mem.PGSIZE) {
		if pg, ok := o.Pagelookup(off); ok {
			if !pg.TryLock() {
				// Already held by the caller; tolerate briefly.
				deadline := time.Now().Add(pagerTimeout)
				for !pg.TryLock() {
					if time.Now().After(deadline) {
						return nil, defs.ETIMEDOUT
					}
				}
			}
			pg.Unlock()
			out = append(out, pg)
			continue
		}
		pg, err := o.Pagealloc(off)
		if err != 0 {
			return nil, err
		}
		if err := o.populate(pg); err != 0 {
			return nil, err
		}
		pg.Flags |= PG_VALID | PG_CLEAN
		out = append(out, pg)
	}
	return out, 0
}

// populate fills a freshly allocated page from the object's pager. ANON
// pages are already zero (mem.AllocPageframe guarantees it); VNODE pages
// are read through from the backing vnode; DEVICE pages are populated by
// asking the cdev for a physical address instead of using the allocated
// frame at all.
func (o *Object_t) populate(pg *Page_t) defs.Err_t {
	switch o.Kind {
	case PagerAnon:
		return 0
	case PagerVnode:
		buf := mem.Physmem.Dmap(pg.Pa)
		n, err := o.Vnode.VopRead(buf[:mem.PGSIZE], int64(pg.Offset))
		if err != 0 {
			return err
		}
		for i := n; i < mem.PGSIZE; i++ {
			buf[i] = 0
		}
		return 0
	case PagerDevice:
		mem.Physmem.FreeFrame(pg.Pa, 1)
		pa, err := o.Device.Mmap(int64(pg.Offset), 0)
		if err != 0 {
			return err
		}
		pg.Pa = pa
		return 0
	}
	return defs.ENOSUP
}

/// Store writes pages back through the object's pager. Only the VNODE
/// pager performs real I/O; ANON/DEVICE objects have nothing to flush.
func (o *Object_t) Store(offset uintptr, pages []*Page_t) defs.Err_t {
	if o.Kind != PagerVnode {
		return 0
	}
	for _, pg := range pages {
		buf := mem.Physmem.Dmap(pg.Pa)
		if _, err := o.Vnode.VopWrite(buf[:mem.PGSIZE], int64(pg.Offset)); err != 0 {
			return err
		}
		pg.Flags |= PG_CLEAN
	}
	return 0
}

// TryLock on sync.Mutex is provided by Go 1.18+; declared here only to
// document the 200ms tolerance contract above (sync.Mutex.TryLock is
// used directly on Page_t).
func (p *Page_t) TryLock() bool { return p.Mutex.TryLock() }
