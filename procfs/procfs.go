// Package procfs implements /proc: a flat registry of named read-only
// text entries, each regenerated on every read from a small callback
// rather than stored as static content. Grounded in the original
// kernel's procfs_add_entry/proc_node registry (sys/fs/procfs.c),
// restated as an fs.Vops_i.
package procfs

import (
	"sync"

	"hyra/defs"
	"hyra/fs"
	"hyra/stat"
	"hyra/ustr"
)

/// Generator produces an entry's current text content on demand.
type Generator func() []byte

type entry_t struct {
	vn  *fs.Vnode_t
	gen Generator
}

/// Procfs_t is the /proc instance: a flat directory of generated
/// read-only text entries.
type Procfs_t struct {
	sync.Mutex
	entries map[string]*entry_t
	nextIno uint64
}

/// Mkfs creates an empty procfs mount.
func Mkfs() (*fs.Mount_t, *Procfs_t) {
	p := &Procfs_t{entries: make(map[string]*entry_t), nextIno: 1}
	root := &fs.Vnode_t{Ino: 0, Type: fs.VDIR, Mode: 0555, Ops: p}
	m := &fs.Mount_t{Fstype: "procfs", Root: root}
	root.Mount = m
	fs.Vcache.Insert(root)
	return m, p
}

/// AddEntry registers a read-only text entry named name, regenerated by
/// gen on every read.
func (p *Procfs_t) AddEntry(m *fs.Mount_t, name string, gen Generator) defs.Err_t {
	if name == "" {
		return defs.EINVAL
	}
	p.Lock()
	defer p.Unlock()
	if _, exists := p.entries[name]; exists {
		return defs.EEXIST
	}
	p.nextIno++
	vn := &fs.Vnode_t{Ino: p.nextIno, Type: fs.VREG, Mode: 0444, Mount: m, Ops: p}
	p.entries[name] = &entry_t{vn: vn, gen: gen}
	fs.Vcache.Insert(vn)
	return 0
}

func (p *Procfs_t) Lookup(dir *fs.Vnode_t, name ustr.Ustr) (*fs.Vnode_t, defs.Err_t) {
	if name.Isdot() || name.Isdotdot() {
		return dir, 0
	}
	p.Lock()
	defer p.Unlock()
	e, ok := p.entries[name.String()]
	if !ok {
		return nil, defs.ENOENT
	}
	return e.vn, 0
}

func (p *Procfs_t) Create(dir *fs.Vnode_t, name ustr.Ustr, mode int) (*fs.Vnode_t, defs.Err_t) {
	return nil, defs.ENOSUP
}

func (p *Procfs_t) Mkdir(dir *fs.Vnode_t, name ustr.Ustr, mode int) (*fs.Vnode_t, defs.Err_t) {
	return nil, defs.ENOSUP
}

func (p *Procfs_t) Unlink(dir *fs.Vnode_t, name ustr.Ustr) defs.Err_t {
	return defs.ENOSUP
}

func (p *Procfs_t) Readdir(dir *fs.Vnode_t) ([]fs.Dirent_t, defs.Err_t) {
	p.Lock()
	defer p.Unlock()
	out := make([]fs.Dirent_t, 0, len(p.entries))
	for name, e := range p.entries {
		out = append(out, fs.Dirent_t{Name: ustr.Ustr(name), Ino: e.vn.Ino, Type: fs.VREG})
	}
	return out, 0
}

func (p *Procfs_t) Read(vn *fs.Vnode_t, buf []byte, offset int64) (int, defs.Err_t) {
	p.Lock()
	var gen Generator
	for _, e := range p.entries {
		if e.vn == vn {
			gen = e.gen
			break
		}
	}
	p.Unlock()
	if gen == nil {
		return 0, defs.ENOENT
	}
	content := gen()
	if offset >= int64(len(content)) {
		return 0, 0
	}
	return copy(buf, content[offset:]), 0
}

func (p *Procfs_t) Write(vn *fs.Vnode_t, buf []byte, offset int64) (int, defs.Err_t) {
	return 0, defs.EACCES
}

func (p *Procfs_t) Getattr(vn *fs.Vnode_t) (*stat.Stat_t, defs.Err_t) {
	st := &stat.Stat_t{}
	st.Wino(uint(vn.Ino))
	mode := stat.S_IFREG
	if vn.Type == fs.VDIR {
		mode = stat.S_IFDIR
	}
	st.Wmode(uint(mode) | uint(vn.Mode))
	return st, 0
}
