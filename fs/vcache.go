package fs

import "sync"

type vcacheKey struct {
	mnt *Mount_t
	ino uint64
}

/// Vcache_t caches live vnodes by (mount, inode number) so repeated
/// lookups of the same file return the same Vnode_t instance.
type Vcache_t struct {
	sync.RWMutex
	m map[vcacheKey]*Vnode_t
}

/// Vcache is the global vnode cache.
var Vcache = &Vcache_t{m: make(map[vcacheKey]*Vnode_t)}

/// Get returns the cached vnode for (mnt, ino), if present.
func (vc *Vcache_t) Get(mnt *Mount_t, ino uint64) (*Vnode_t, bool) {
	vc.RLock()
	defer vc.RUnlock()
	vn, ok := vc.m[vcacheKey{mnt, ino}]
	return vn, ok
}

/// Insert adds vn to the cache, keyed by its own mount and inode number.
func (vc *Vcache_t) Insert(vn *Vnode_t) {
	vc.Lock()
	defer vc.Unlock()
	vc.m[vcacheKey{vn.Mount, vn.Ino}] = vn
}

/// Evict removes (mnt, ino) from the cache.
func (vc *Vcache_t) Evict(mnt *Mount_t, ino uint64) {
	vc.Lock()
	defer vc.Unlock()
	delete(vc.m, vcacheKey{mnt, ino})
}
