// Package fs implements the virtual filesystem layer: vnodes, mounts,
// path lookup, and the vnode cache sitting above per-filesystem vops
// implementations (tmpfs, devfs, ctlfs, procfs).
package fs

import (
	"sync"
	"sync/atomic"

	"hyra/defs"
	"hyra/pmap"
	"hyra/stat"
	"hyra/ustr"
	"hyra/vm"
)

// VType is a vnode's file type.
type VType int

const (
	VNON VType = iota
	VREG
	VDIR
	VCHR
	VBLK
)

// Dirent_t is one entry returned by Readdir.
type Dirent_t struct {
	Name ustr.Ustr
	Ino  uint64
	Type VType
}

// Vops_i is the operations vector a backing filesystem (tmpfs, devfs,
// ctlfs, procfs) supplies; Vnode_t dispatches through it rather than
// switching on filesystem type at each call site.
type Vops_i interface {
	Lookup(dir *Vnode_t, name ustr.Ustr) (*Vnode_t, defs.Err_t)
	Create(dir *Vnode_t, name ustr.Ustr, mode int) (*Vnode_t, defs.Err_t)
	Mkdir(dir *Vnode_t, name ustr.Ustr, mode int) (*Vnode_t, defs.Err_t)
	Unlink(dir *Vnode_t, name ustr.Ustr) defs.Err_t
	Readdir(dir *Vnode_t) ([]Dirent_t, defs.Err_t)
	Read(vn *Vnode_t, buf []byte, offset int64) (int, defs.Err_t)
	Write(vn *Vnode_t, buf []byte, offset int64) (int, defs.Err_t)
	Getattr(vn *Vnode_t) (*stat.Stat_t, defs.Err_t)
}

/// Vnode_t is an in-core inode: the filesystem-independent state namei,
/// the fd layer, and the VM fault handler all operate on, dispatching
/// filesystem-specific behavior through Ops.
type Vnode_t struct {
	sync.Mutex
	Ino         uint64
	Type        VType
	Mode        int
	Size        int64
	Dev         uint
	Mount       *Mount_t // filesystem this vnode belongs to
	MountedHere *Mount_t // non-nil when another filesystem is mounted on this (directory) vnode
	Ops         Vops_i
	Fsdata       interface{} // backing-filesystem private state (e.g. tmpfs directory map)

	refcount int32
	object   *vm.Object_t
}

/// Ref increments the vnode's reference count.
func (vn *Vnode_t) Ref() {
	atomic.AddInt32(&vn.refcount, 1)
}

/// Unref decrements the vnode's reference count, returning true if it
/// reached zero (the caller is then responsible for evicting it from
/// the vcache).
func (vn *Vnode_t) Unref() bool {
	return atomic.AddInt32(&vn.refcount, -1) == 0
}

/// Effective resolves through a mount point: if this vnode has another
/// filesystem mounted on it, Effective returns that filesystem's root;
/// otherwise it returns vn itself.
func (vn *Vnode_t) Effective() *Vnode_t {
	if vn.MountedHere != nil {
		return vn.MountedHere.Root
	}
	return vn
}

/// VMObject lazily creates (or returns the existing) VM object backing
/// this vnode's page cache, used by mmap'd regular files.
func (vn *Vnode_t) VMObject() *vm.Object_t {
	vn.Lock()
	defer vn.Unlock()
	if vn.object == nil {
		vn.object = vm.NewVnodeObject(vn, pmap.PROT_READ|pmap.PROT_WRITE)
	}
	return vn.object
}

// VopRead/VopWrite satisfy vm.VnodeIO, letting the VM layer page a
// vnode's content in and out through the same Ops.Read/Write the fd
// layer uses, so a file's mmap'd view and its read(2)/write(2) view
// stay coherent.
func (vn *Vnode_t) VopRead(buf []byte, offset int64) (int, defs.Err_t) {
	return vn.Ops.Read(vn, buf, offset)
}

func (vn *Vnode_t) VopWrite(buf []byte, offset int64) (int, defs.Err_t) {
	return vn.Ops.Write(vn, buf, offset)
}

/// Stat fills in a Stat_t describing this vnode.
func (vn *Vnode_t) Stat() (*stat.Stat_t, defs.Err_t) {
	return vn.Ops.Getattr(vn)
}
