// Package dev is the device framework: the major/minor-indexed cdevsw
// and bdevsw tables every driver registers into, and the dispatch
// helpers devfs and the fd layer call through.
package dev

import (
	"sync"

	"hyra/defs"
	"hyra/mem"
)

/// Cdevsw_i is the operations vector a character device driver
/// implements.
type Cdevsw_i interface {
	Read(minor int, buf []byte, offset int64) (int, defs.Err_t)
	Write(minor int, buf []byte, offset int64) (int, defs.Err_t)
}

/// Bdevsw_i is the operations vector a block device driver implements.
type Bdevsw_i interface {
	ReadBlock(minor int, blockno int, buf []byte) defs.Err_t
	WriteBlock(minor int, blockno int, buf []byte) defs.Err_t
	BlockSize() int
}

/// MmapDev_i is implemented by character devices that support being
/// mapped into a process's address space (e.g. the framebuffer).
type MmapDev_i interface {
	Mmap(minor int, off int64, flags int) (mem.Pa_t, defs.Err_t)
}

type registry_t struct {
	sync.RWMutex
	cdevs map[int]Cdevsw_i
	bdevs map[int]Bdevsw_i
	nodes []NodeSpec
}

var reg = &registry_t{cdevs: make(map[int]Cdevsw_i), bdevs: make(map[int]Bdevsw_i)}

/// NodeSpec names a devfs entry a driver wants created once devfs is
/// mounted, analogous to the original kernel's devfs_create_entry call
/// made from within each driver's init function.
type NodeSpec struct {
	Name  string
	Devid uint
	Mode  int
}

/// RegisterNode records a devfs entry to be created when devfs mounts.
func RegisterNode(spec NodeSpec) {
	reg.Lock()
	defer reg.Unlock()
	reg.nodes = append(reg.nodes, spec)
}

/// Nodes returns every devfs entry registered so far.
func Nodes() []NodeSpec {
	reg.RLock()
	defer reg.RUnlock()
	out := make([]NodeSpec, len(reg.nodes))
	copy(out, reg.nodes)
	return out
}

/// RegisterCdev installs the character-device driver for major.
func RegisterCdev(major int, ops Cdevsw_i) {
	reg.Lock()
	defer reg.Unlock()
	reg.cdevs[major] = ops
}

/// RegisterBdev installs the block-device driver for major.
func RegisterBdev(major int, ops Bdevsw_i) {
	reg.Lock()
	defer reg.Unlock()
	reg.bdevs[major] = ops
}

/// Cdev looks up the character-device driver for major.
func Cdev(major int) (Cdevsw_i, bool) {
	reg.RLock()
	defer reg.RUnlock()
	ops, ok := reg.cdevs[major]
	return ops, ok
}

/// Bdev looks up the block-device driver for major.
func Bdev(major int) (Bdevsw_i, bool) {
	reg.RLock()
	defer reg.RUnlock()
	ops, ok := reg.bdevs[major]
	return ops, ok
}

/// CdevRead/CdevWrite dispatch a read or write to the device named by
/// devid (as returned by defs.Mkdev), the form file descriptors and
/// devfs vnodes store.
func CdevRead(devid uint, buf []byte, offset int64) (int, defs.Err_t) {
	maj, min := defs.Unmkdev(devid)
	ops, ok := Cdev(maj)
	if !ok {
		return 0, defs.ENODEV
	}
	return ops.Read(min, buf, offset)
}

func CdevWrite(devid uint, buf []byte, offset int64) (int, defs.Err_t) {
	maj, min := defs.Unmkdev(devid)
	ops, ok := Cdev(maj)
	if !ok {
		return 0, defs.ENODEV
	}
	return ops.Write(min, buf, offset)
}

/// CdevMmap dispatches a device mmap request, failing ENOSUP for
/// devices that do not implement MmapDev_i.
func CdevMmap(devid uint, off int64, flags int) (mem.Pa_t, defs.Err_t) {
	maj, min := defs.Unmkdev(devid)
	ops, ok := Cdev(maj)
	if !ok {
		return 0, defs.ENODEV
	}
	mops, ok := ops.(MmapDev_i)
	if !ok {
		return 0, defs.ENOSUP
	}
	return mops.Mmap(min, off, flags)
}
