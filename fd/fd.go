// Package fd implements the per-process file-descriptor table: the
// Fd_t/Cwd_t open-file handle types, a descriptor table supporting
// dup/fork/close-on-exec, and the VnodeFile_t adapter that lets a
// vnode be read, written, and seeked through an open file descriptor.
package fd

import (
	"sync"
	"sync/atomic"

	"hyra/bpath"
	"hyra/defs"
	"hyra/fs"
	"hyra/stat"
	"hyra/ustr"
)

// File descriptor permission bits.
const (
	FD_READ    = 0x1 // read permission
	FD_WRITE   = 0x2 // write permission
	FD_CLOEXEC = 0x4 // close-on-exec flag
)

/// Fdops_i is the operations vector an open file descriptor dispatches
/// through.
type Fdops_i interface {
	Read(buf []byte) (int, defs.Err_t)
	Write(buf []byte) (int, defs.Err_t)
	Lseek(offset int64, whence int) (int64, defs.Err_t)
	Close() defs.Err_t
	Reopen() defs.Err_t
	Stat() (*stat.Stat_t, defs.Err_t)
}

/// Fd_t represents an open file descriptor.
type Fd_t struct {
	// Fops is an interface implemented via a pointer receiver, thus
	// Fops is a reference, not a value.
	Fops  Fdops_i
	Perms int
}

/// Copyfd duplicates an open file descriptor by reopening it.
func Copyfd(fd *Fd_t) (*Fd_t, defs.Err_t) {
	nfd := &Fd_t{}
	*nfd = *fd
	err := nfd.Fops.Reopen()
	if err != 0 {
		return nil, err
	}
	return nfd, 0
}

/// Close_panic closes the descriptor and panics on failure.
func Close_panic(f *Fd_t) {
	if f.Fops.Close() != 0 {
		panic("must succeed")
	}
}

/// Cwd_t tracks the current working directory for a process.
type Cwd_t struct {
	sync.Mutex // serializes chdirs
	Fd   *Fd_t
	Path ustr.Ustr
}

/// Fullpath joins cwd with p if p is not already absolute.
func (cwd *Cwd_t) Fullpath(p ustr.Ustr) ustr.Ustr {
	if p.IsAbsolute() {
		return p
	}
	full := append(append(ustr.Ustr{}, cwd.Path...), '/')
	return append(full, p...)
}

/// Canonicalpath resolves path components relative to cwd.
func (cwd *Cwd_t) Canonicalpath(p ustr.Ustr) ustr.Ustr {
	return bpath.Canonicalize(cwd.Fullpath(p))
}

/// MkRootCwd constructs a Cwd_t rooted at "/".
func MkRootCwd(fd *Fd_t) *Cwd_t {
	return &Cwd_t{Fd: fd, Path: ustr.MkUstrRoot()}
}

// Seek whence values, matching lseek(2).
const (
	SEEK_SET = 0
	SEEK_CUR = 1
	SEEK_END = 2
)

/// VnodeFile_t adapts a vnode into an Fdops_i: the open file's cursor
/// (Off) is shared across every Fd_t created by Copyfd from the same
/// open, matching dup(2)'s shared-offset semantics, since they all hold
/// the same *VnodeFile_t through Fops.
type VnodeFile_t struct {
	sync.Mutex
	Vn  *fs.Vnode_t
	Off int64
}

/// OpenVnode wraps vn in a file descriptor ready to install into a
/// process's descriptor table. vn's reference count is assumed already
/// taken by the caller (namei's result).
func OpenVnode(vn *fs.Vnode_t, perms int) *Fd_t {
	return &Fd_t{Fops: &VnodeFile_t{Vn: vn}, Perms: perms}
}

func (v *VnodeFile_t) Read(buf []byte) (int, defs.Err_t) {
	v.Lock()
	defer v.Unlock()
	n, err := v.Vn.Ops.Read(v.Vn, buf, v.Off)
	if err != 0 {
		return 0, err
	}
	v.Off += int64(n)
	return n, 0
}

func (v *VnodeFile_t) Write(buf []byte) (int, defs.Err_t) {
	v.Lock()
	defer v.Unlock()
	n, err := v.Vn.Ops.Write(v.Vn, buf, v.Off)
	if err != 0 {
		return 0, err
	}
	v.Off += int64(n)
	return n, 0
}

func (v *VnodeFile_t) Lseek(offset int64, whence int) (int64, defs.Err_t) {
	v.Lock()
	defer v.Unlock()
	switch whence {
	case SEEK_SET:
		v.Off = offset
	case SEEK_CUR:
		v.Off += offset
	case SEEK_END:
		st, err := v.Vn.Stat()
		if err != 0 {
			return 0, err
		}
		v.Off = int64(st.Size()) + offset
	default:
		return 0, defs.EINVAL
	}
	if v.Off < 0 {
		v.Off = 0
		return 0, defs.EINVAL
	}
	return v.Off, 0
}

func (v *VnodeFile_t) Close() defs.Err_t {
	v.Vn.Unref()
	return 0
}

func (v *VnodeFile_t) Reopen() defs.Err_t {
	v.Vn.Ref()
	return 0
}

func (v *VnodeFile_t) Stat() (*stat.Stat_t, defs.Err_t) {
	return v.Vn.Stat()
}

/// Fdtable_t is a process's open-file table: a sparse, dynamically
/// growable array indexed by descriptor number.
type Fdtable_t struct {
	sync.Mutex
	tbl []*Fd_t
}

/// NewFdtable creates an empty descriptor table.
func NewFdtable() *Fdtable_t {
	return &Fdtable_t{}
}

/// Alloc installs fd at the lowest free descriptor number, per open(2)'s
/// "lowest available" contract, and returns that number.
func (t *Fdtable_t) Alloc(fd *Fd_t) int {
	t.Lock()
	defer t.Unlock()
	for i, slot := range t.tbl {
		if slot == nil {
			t.tbl[i] = fd
			return i
		}
	}
	t.tbl = append(t.tbl, fd)
	return len(t.tbl) - 1
}

/// Get returns the descriptor installed at fdnum.
func (t *Fdtable_t) Get(fdnum int) (*Fd_t, defs.Err_t) {
	t.Lock()
	defer t.Unlock()
	if fdnum < 0 || fdnum >= len(t.tbl) || t.tbl[fdnum] == nil {
		return nil, defs.EINVAL
	}
	return t.tbl[fdnum], 0
}

/// Close closes and removes the descriptor at fdnum.
func (t *Fdtable_t) Close(fdnum int) defs.Err_t {
	t.Lock()
	if fdnum < 0 || fdnum >= len(t.tbl) || t.tbl[fdnum] == nil {
		t.Unlock()
		return defs.EINVAL
	}
	fd := t.tbl[fdnum]
	t.tbl[fdnum] = nil
	t.Unlock()
	return fd.Fops.Close()
}

/// Dup duplicates fdnum to the lowest free descriptor number.
func (t *Fdtable_t) Dup(fdnum int) (int, defs.Err_t) {
	orig, err := t.Get(fdnum)
	if err != 0 {
		return 0, err
	}
	nfd, err := Copyfd(orig)
	if err != 0 {
		return 0, err
	}
	return t.Alloc(nfd), 0
}

/// Fork duplicates every open descriptor into a fresh table, for use by
/// fork1 when constructing a child process.
func (t *Fdtable_t) Fork() (*Fdtable_t, defs.Err_t) {
	t.Lock()
	defer t.Unlock()
	nt := &Fdtable_t{tbl: make([]*Fd_t, len(t.tbl))}
	for i, fd := range t.tbl {
		if fd == nil {
			continue
		}
		nfd, err := Copyfd(fd)
		if err != 0 {
			return nil, err
		}
		nt.tbl[i] = nfd
	}
	return nt, 0
}

/// CloseOnExec closes every descriptor marked FD_CLOEXEC, called by
/// execve before installing the new image.
func (t *Fdtable_t) CloseOnExec() {
	t.Lock()
	tbl := t.tbl
	t.Unlock()
	for i, fd := range tbl {
		if fd != nil && fd.Perms&FD_CLOEXEC != 0 {
			t.Close(i)
		}
	}
}

var _ = atomic.AddInt32 // retained for future refcount instrumentation
