// Package devfs implements /dev: a flat directory of VCHR vnodes, each
// naming a (major, minor) device pair dispatched through the dev
// package's cdevsw registry. Grounded in the original kernel's
// devfs_create_entry/dev_register contract (sys/dev/random/random.c),
// restated as an fs.Vops_i so namei walks /dev the same way it walks
// any other filesystem.
package devfs

import (
	"sync"

	"hyra/defs"
	"hyra/dev"
	"hyra/fs"
	"hyra/stat"
	"hyra/ustr"
)

type entry_t struct {
	vn    *fs.Vnode_t
	devid uint
}

/// Devfs_t is the devfs instance: one flat directory of registered
/// device nodes.
type Devfs_t struct {
	sync.Mutex
	entries map[string]*entry_t
	nextIno uint64
}

/// Mkfs creates an empty devfs mount and the Devfs_t backing it. Callers
/// that need to populate it from the driver registry keep the *Devfs_t;
/// everything else only needs the *fs.Mount_t.
func Mkfs() (*fs.Mount_t, *Devfs_t) {
	d := &Devfs_t{entries: make(map[string]*entry_t), nextIno: 1}
	root := &fs.Vnode_t{Ino: 0, Type: fs.VDIR, Mode: 0755, Ops: d}
	m := &fs.Mount_t{Fstype: "devfs", Root: root}
	root.Mount = m
	fs.Vcache.Insert(root)
	return m, d
}

/// Populate creates a devfs entry for every node drivers have registered
/// via dev.RegisterNode, called once after driver.DriversInit so every
/// early driver's devfs entry is in place before user code runs.
func (d *Devfs_t) Populate(m *fs.Mount_t) {
	for _, spec := range dev.Nodes() {
		d.CreateEntry(m, spec.Name, spec.Devid, spec.Mode)
	}
}

/// CreateEntry registers a device node named name backed by devid,
/// analogous to the original kernel's devfs_create_entry.
func (d *Devfs_t) CreateEntry(m *fs.Mount_t, name string, devid uint, mode int) *fs.Vnode_t {
	d.Lock()
	defer d.Unlock()
	d.nextIno++
	vn := &fs.Vnode_t{Ino: d.nextIno, Type: fs.VCHR, Mode: mode, Dev: devid, Mount: m, Ops: d}
	d.entries[name] = &entry_t{vn: vn, devid: devid}
	fs.Vcache.Insert(vn)
	return vn
}

func (d *Devfs_t) Lookup(dir *fs.Vnode_t, name ustr.Ustr) (*fs.Vnode_t, defs.Err_t) {
	if name.Isdot() || name.Isdotdot() {
		return dir, 0
	}
	d.Lock()
	defer d.Unlock()
	e, ok := d.entries[name.String()]
	if !ok {
		return nil, defs.ENOENT
	}
	return e.vn, 0
}

func (d *Devfs_t) Create(dir *fs.Vnode_t, name ustr.Ustr, mode int) (*fs.Vnode_t, defs.Err_t) {
	return nil, defs.ENOSUP
}

func (d *Devfs_t) Mkdir(dir *fs.Vnode_t, name ustr.Ustr, mode int) (*fs.Vnode_t, defs.Err_t) {
	return nil, defs.ENOSUP
}

func (d *Devfs_t) Unlink(dir *fs.Vnode_t, name ustr.Ustr) defs.Err_t {
	return defs.ENOSUP
}

func (d *Devfs_t) Readdir(dir *fs.Vnode_t) ([]fs.Dirent_t, defs.Err_t) {
	d.Lock()
	defer d.Unlock()
	out := make([]fs.Dirent_t, 0, len(d.entries))
	for name, e := range d.entries {
		out = append(out, fs.Dirent_t{Name: ustr.Ustr(name), Ino: e.vn.Ino, Type: fs.VCHR})
	}
	return out, 0
}

func (d *Devfs_t) Read(vn *fs.Vnode_t, buf []byte, offset int64) (int, defs.Err_t) {
	return dev.CdevRead(vn.Dev, buf, offset)
}

func (d *Devfs_t) Write(vn *fs.Vnode_t, buf []byte, offset int64) (int, defs.Err_t) {
	return dev.CdevWrite(vn.Dev, buf, offset)
}

func (d *Devfs_t) Getattr(vn *fs.Vnode_t) (*stat.Stat_t, defs.Err_t) {
	st := &stat.Stat_t{}
	st.Wino(uint(vn.Ino))
	mode := stat.S_IFCHR
	if vn.Type == fs.VDIR {
		mode = stat.S_IFDIR
	}
	st.Wmode(uint(mode) | uint(vn.Mode))
	st.Wrdev(vn.Dev)
	return st, 0
}
