// Package ctlfs implements /ctl: a two-level pseudo-filesystem of named
// device/subsystem nodes, each holding named control entries dispatched
// through a small read/write operations vector. Grounded in the
// original kernel's ctlfs_create_node/ctlfs_create_entry contract (see
// sys/dev/video/fbdev.c's "fb0/attr" node and sys/dev/dmi/dmi_board.c's
// "dmi/board" entry).
package ctlfs

import (
	"sync"

	"hyra/defs"
	"hyra/fs"
	"hyra/stat"
	"hyra/ustr"
)

/// Ctlops_i is the operations vector a control entry implements.
type Ctlops_i interface {
	Read(buf []byte, offset int64) (int, defs.Err_t)
	Write(buf []byte, offset int64) (int, defs.Err_t)
}

type ctlnode_t struct {
	vn      *fs.Vnode_t
	entries map[string]*fs.Vnode_t
}

type ctlentry_t struct {
	ops Ctlops_i
}

/// Ctlfs_t is the /ctl instance: a root directory of nodes, each a
/// directory of control-file entries.
type Ctlfs_t struct {
	sync.Mutex
	nodes   map[string]*ctlnode_t
	nextIno uint64
}

/// Mkfs creates an empty ctlfs mount.
func Mkfs() (*fs.Mount_t, *Ctlfs_t) {
	c := &Ctlfs_t{nodes: make(map[string]*ctlnode_t), nextIno: 1}
	root := &fs.Vnode_t{Ino: 0, Type: fs.VDIR, Mode: 0755, Ops: c}
	m := &fs.Mount_t{Fstype: "ctlfs", Root: root}
	root.Mount = m
	fs.Vcache.Insert(root)
	return m, c
}

/// CreateNode creates (or returns the existing) top-level node directory
/// name, e.g. "fb0" or "dmi".
func (c *Ctlfs_t) CreateNode(m *fs.Mount_t, name string, mode int) *fs.Vnode_t {
	c.Lock()
	defer c.Unlock()
	if n, ok := c.nodes[name]; ok {
		return n.vn
	}
	c.nextIno++
	vn := &fs.Vnode_t{Ino: c.nextIno, Type: fs.VDIR, Mode: mode, Mount: m, Ops: c}
	c.nodes[name] = &ctlnode_t{vn: vn, entries: make(map[string]*fs.Vnode_t)}
	fs.Vcache.Insert(vn)
	return vn
}

/// CreateEntry creates a control file named entryName under node,
/// dispatched through ops.
func (c *Ctlfs_t) CreateEntry(m *fs.Mount_t, node, entryName string, ops Ctlops_i, mode int) (*fs.Vnode_t, defs.Err_t) {
	c.Lock()
	defer c.Unlock()
	n, ok := c.nodes[node]
	if !ok {
		return nil, defs.ENOENT
	}
	c.nextIno++
	vn := &fs.Vnode_t{Ino: c.nextIno, Type: fs.VREG, Mode: mode, Mount: m, Ops: c, Fsdata: ctlentry_t{ops: ops}}
	n.entries[entryName] = vn
	fs.Vcache.Insert(vn)
	return vn, 0
}

func (c *Ctlfs_t) Lookup(dir *fs.Vnode_t, name ustr.Ustr) (*fs.Vnode_t, defs.Err_t) {
	if name.Isdot() || name.Isdotdot() {
		return dir, 0
	}
	c.Lock()
	defer c.Unlock()
	if dir.Ino == 0 {
		n, ok := c.nodes[name.String()]
		if !ok {
			return nil, defs.ENOENT
		}
		return n.vn, 0
	}
	for _, n := range c.nodes {
		if n.vn == dir {
			vn, ok := n.entries[name.String()]
			if !ok {
				return nil, defs.ENOENT
			}
			return vn, 0
		}
	}
	return nil, defs.ENOTDIR
}

func (c *Ctlfs_t) Create(dir *fs.Vnode_t, name ustr.Ustr, mode int) (*fs.Vnode_t, defs.Err_t) {
	return nil, defs.ENOSUP
}

func (c *Ctlfs_t) Mkdir(dir *fs.Vnode_t, name ustr.Ustr, mode int) (*fs.Vnode_t, defs.Err_t) {
	return nil, defs.ENOSUP
}

func (c *Ctlfs_t) Unlink(dir *fs.Vnode_t, name ustr.Ustr) defs.Err_t {
	return defs.ENOSUP
}

func (c *Ctlfs_t) Readdir(dir *fs.Vnode_t) ([]fs.Dirent_t, defs.Err_t) {
	c.Lock()
	defer c.Unlock()
	if dir.Ino == 0 {
		out := make([]fs.Dirent_t, 0, len(c.nodes))
		for name, n := range c.nodes {
			out = append(out, fs.Dirent_t{Name: ustr.Ustr(name), Ino: n.vn.Ino, Type: fs.VDIR})
		}
		return out, 0
	}
	for _, n := range c.nodes {
		if n.vn == dir {
			out := make([]fs.Dirent_t, 0, len(n.entries))
			for name, vn := range n.entries {
				out = append(out, fs.Dirent_t{Name: ustr.Ustr(name), Ino: vn.Ino, Type: fs.VREG})
			}
			return out, 0
		}
	}
	return nil, defs.ENOTDIR
}

func (c *Ctlfs_t) Read(vn *fs.Vnode_t, buf []byte, offset int64) (int, defs.Err_t) {
	e, ok := vn.Fsdata.(ctlentry_t)
	if !ok {
		return 0, defs.EISDIR
	}
	return e.ops.Read(buf, offset)
}

func (c *Ctlfs_t) Write(vn *fs.Vnode_t, buf []byte, offset int64) (int, defs.Err_t) {
	e, ok := vn.Fsdata.(ctlentry_t)
	if !ok {
		return 0, defs.EISDIR
	}
	return e.ops.Write(buf, offset)
}

func (c *Ctlfs_t) Getattr(vn *fs.Vnode_t) (*stat.Stat_t, defs.Err_t) {
	st := &stat.Stat_t{}
	st.Wino(uint(vn.Ino))
	mode := stat.S_IFREG
	if vn.Type == fs.VDIR {
		mode = stat.S_IFDIR
	}
	st.Wmode(uint(mode) | uint(vn.Mode))
	return st, 0
}
