// Package tmpfs implements an in-memory filesystem: every file's
// content lives in a Go byte slice and every directory's entries live
// in a Go map, both reclaimed when the mount is torn down. It
// implements fs.Vops_i so it plugs directly into namei.
package tmpfs

import (
	"sync"

	"hyra/defs"
	"hyra/fs"
	"hyra/stat"
	"hyra/ustr"
)

type inode_t struct {
	vn       *fs.Vnode_t
	data     []byte
	children map[string]uint64 // VDIR only: name -> child ino
	parent   uint64
}

/// Tmpfs_t is one tmpfs instance: its own inode table and allocator.
type Tmpfs_t struct {
	sync.Mutex
	inodes  map[uint64]*inode_t
	nextIno uint64
}

/// Mkfs creates a fresh tmpfs instance with an empty root directory and
/// returns the mount ready to be registered with fs.Mountlist.
func Mkfs() *fs.Mount_t {
	t := &Tmpfs_t{inodes: make(map[uint64]*inode_t), nextIno: 1}
	root := t.newInode(fs.VDIR, 0755)
	root.parent = root.vn.Ino
	m := &fs.Mount_t{Fstype: "tmpfs"}
	root.vn.Mount = m
	m.Root = root.vn
	fs.Vcache.Insert(root.vn)
	return m
}

func (t *Tmpfs_t) newInode(typ fs.VType, mode int) *inode_t {
	t.Lock()
	ino := t.nextIno
	t.nextIno++
	t.Unlock()

	vn := &fs.Vnode_t{Ino: ino, Type: typ, Mode: mode, Ops: t}
	in := &inode_t{vn: vn}
	if typ == fs.VDIR {
		in.children = make(map[string]uint64)
	}
	t.Lock()
	t.inodes[ino] = in
	t.Unlock()
	return in
}

func (t *Tmpfs_t) get(ino uint64) *inode_t {
	t.Lock()
	defer t.Unlock()
	return t.inodes[ino]
}

func (t *Tmpfs_t) Lookup(dir *fs.Vnode_t, name ustr.Ustr) (*fs.Vnode_t, defs.Err_t) {
	din := t.get(dir.Ino)
	if din == nil {
		return nil, defs.ENOENT
	}
	if name.Isdot() {
		return dir, 0
	}
	if name.Isdotdot() {
		pin := t.get(din.parent)
		if pin == nil {
			return nil, defs.ENOENT
		}
		return pin.vn, 0
	}
	t.Lock()
	ino, ok := din.children[name.String()]
	t.Unlock()
	if !ok {
		return nil, defs.ENOENT
	}
	cin := t.get(ino)
	if cin == nil {
		return nil, defs.ENOENT
	}
	if v, cached := fs.Vcache.Get(dir.Mount, ino); cached {
		return v, 0
	}
	cin.vn.Mount = dir.Mount
	fs.Vcache.Insert(cin.vn)
	return cin.vn, 0
}

func (t *Tmpfs_t) create(dir *fs.Vnode_t, name ustr.Ustr, mode int, typ fs.VType) (*fs.Vnode_t, defs.Err_t) {
	din := t.get(dir.Ino)
	if din == nil {
		return nil, defs.ENOENT
	}
	t.Lock()
	if _, exists := din.children[name.String()]; exists {
		t.Unlock()
		return nil, defs.EEXIST
	}
	t.Unlock()

	in := t.newInode(typ, mode)
	in.parent = dir.Ino
	in.vn.Mount = dir.Mount

	t.Lock()
	din.children[name.String()] = in.vn.Ino
	t.Unlock()
	fs.Vcache.Insert(in.vn)
	return in.vn, 0
}

func (t *Tmpfs_t) Create(dir *fs.Vnode_t, name ustr.Ustr, mode int) (*fs.Vnode_t, defs.Err_t) {
	return t.create(dir, name, mode, fs.VREG)
}

func (t *Tmpfs_t) Mkdir(dir *fs.Vnode_t, name ustr.Ustr, mode int) (*fs.Vnode_t, defs.Err_t) {
	vn, err := t.create(dir, name, mode, fs.VDIR)
	if err != 0 {
		return nil, err
	}
	t.get(vn.Ino).children = make(map[string]uint64)
	return vn, 0
}

func (t *Tmpfs_t) Unlink(dir *fs.Vnode_t, name ustr.Ustr) defs.Err_t {
	din := t.get(dir.Ino)
	if din == nil {
		return defs.ENOENT
	}
	t.Lock()
	ino, ok := din.children[name.String()]
	if !ok {
		t.Unlock()
		return defs.ENOENT
	}
	cin := t.inodes[ino]
	if cin != nil && cin.vn.Type == fs.VDIR && len(cin.children) > 0 {
		t.Unlock()
		return defs.ENOTEMPTY
	}
	delete(din.children, name.String())
	delete(t.inodes, ino)
	t.Unlock()
	fs.Vcache.Evict(dir.Mount, ino)
	return 0
}

func (t *Tmpfs_t) Readdir(dir *fs.Vnode_t) ([]fs.Dirent_t, defs.Err_t) {
	din := t.get(dir.Ino)
	if din == nil || din.children == nil {
		return nil, defs.ENOTDIR
	}
	t.Lock()
	defer t.Unlock()
	out := make([]fs.Dirent_t, 0, len(din.children))
	for name, ino := range din.children {
		cin := t.inodes[ino]
		if cin == nil {
			continue
		}
		out = append(out, fs.Dirent_t{Name: ustr.Ustr(name), Ino: ino, Type: cin.vn.Type})
	}
	return out, 0
}

func (t *Tmpfs_t) Read(vn *fs.Vnode_t, buf []byte, offset int64) (int, defs.Err_t) {
	in := t.get(vn.Ino)
	if in == nil {
		return 0, defs.ENOENT
	}
	t.Lock()
	defer t.Unlock()
	if offset >= int64(len(in.data)) {
		return 0, 0
	}
	n := copy(buf, in.data[offset:])
	return n, 0
}

func (t *Tmpfs_t) Write(vn *fs.Vnode_t, buf []byte, offset int64) (int, defs.Err_t) {
	in := t.get(vn.Ino)
	if in == nil {
		return 0, defs.ENOENT
	}
	t.Lock()
	defer t.Unlock()
	end := offset + int64(len(buf))
	if end > int64(len(in.data)) {
		grown := make([]byte, end)
		copy(grown, in.data)
		in.data = grown
	}
	copy(in.data[offset:end], buf)
	vn.Size = int64(len(in.data))
	return len(buf), 0
}

func (t *Tmpfs_t) Getattr(vn *fs.Vnode_t) (*stat.Stat_t, defs.Err_t) {
	in := t.get(vn.Ino)
	if in == nil {
		return nil, defs.ENOENT
	}
	st := &stat.Stat_t{}
	st.Wino(uint(vn.Ino))
	mode := stat.S_IFREG
	if vn.Type == fs.VDIR {
		mode = stat.S_IFDIR
	}
	st.Wmode(uint(mode) | uint(vn.Mode))
	st.Wsize(uint(vn.Size))
	return st, 0
}
