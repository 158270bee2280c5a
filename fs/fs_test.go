package fs

import (
	"testing"

	"hyra/defs"
	"hyra/stat"
	"hyra/ustr"
)

// fakeFs is a minimal in-memory Vops_i backing just enough of a directory
// tree to exercise Namei/NameiParent without depending on a real
// filesystem package (which would import fs and create a cycle).
type fakeFs struct{}

func (fakeFs) Lookup(dir *Vnode_t, name ustr.Ustr) (*Vnode_t, defs.Err_t) {
	kids, _ := dir.Fsdata.(map[string]*Vnode_t)
	vn, ok := kids[name.String()]
	if !ok {
		return nil, defs.ENOENT
	}
	return vn, 0
}

func (fakeFs) Create(dir *Vnode_t, name ustr.Ustr, mode int) (*Vnode_t, defs.Err_t) {
	return nil, defs.ENOSUP
}

func (fakeFs) Mkdir(dir *Vnode_t, name ustr.Ustr, mode int) (*Vnode_t, defs.Err_t) {
	return nil, defs.ENOSUP
}

func (fakeFs) Unlink(dir *Vnode_t, name ustr.Ustr) defs.Err_t {
	return defs.ENOSUP
}

func (fakeFs) Readdir(dir *Vnode_t) ([]Dirent_t, defs.Err_t) {
	return nil, defs.ENOSUP
}

func (fakeFs) Read(vn *Vnode_t, buf []byte, offset int64) (int, defs.Err_t) {
	return 0, defs.ENOSUP
}

func (fakeFs) Write(vn *Vnode_t, buf []byte, offset int64) (int, defs.Err_t) {
	return 0, defs.ENOSUP
}

func (fakeFs) Getattr(vn *Vnode_t) (*stat.Stat_t, defs.Err_t) {
	return &stat.Stat_t{}, 0
}

func mkdirVn(ino uint64) *Vnode_t {
	return &Vnode_t{Ino: ino, Type: VDIR, Ops: fakeFs{}, Fsdata: make(map[string]*Vnode_t)}
}

func addChild(dir, child *Vnode_t, name string) {
	dir.Fsdata.(map[string]*Vnode_t)[name] = child
}

func TestNameiResolvesNestedPath(t *testing.T) {
	root := mkdirVn(1)
	m := &Mount_t{Root: root, Fstype: "fake"}
	root.Mount = m
	a := mkdirVn(2)
	a.Mount = m
	addChild(root, a, "a")
	b := &Vnode_t{Ino: 3, Type: VREG, Ops: fakeFs{}, Mount: m}
	addChild(a, b, "b")

	got, err := Namei(ustr.Ustr("/a/b"), root, nil)
	if err != 0 {
		t.Fatalf("Namei: %v", err)
	}
	if got != b {
		t.Fatalf("expected to resolve to b, got %+v", got)
	}
}

func TestNameiMissingComponentFails(t *testing.T) {
	root := mkdirVn(1)
	root.Mount = &Mount_t{Root: root}
	if _, err := Namei(ustr.Ustr("/nope"), root, nil); err != defs.ENOENT {
		t.Fatalf("expected ENOENT, got %v", err)
	}
}

func TestNameiRelativeUsesCwd(t *testing.T) {
	root := mkdirVn(1)
	m := &Mount_t{Root: root}
	root.Mount = m
	cwd := mkdirVn(2)
	cwd.Mount = m
	leaf := &Vnode_t{Ino: 3, Type: VREG, Ops: fakeFs{}, Mount: m}
	addChild(cwd, leaf, "leaf")

	got, err := Namei(ustr.Ustr("leaf"), root, cwd)
	if err != 0 || got != leaf {
		t.Fatalf("expected to resolve leaf relative to cwd, got %+v err=%v", got, err)
	}
}

func TestNameiParentSplitsFinalComponent(t *testing.T) {
	root := mkdirVn(1)
	m := &Mount_t{Root: root}
	root.Mount = m
	a := mkdirVn(2)
	a.Mount = m
	addChild(root, a, "a")

	dir, last, err := NameiParent(ustr.Ustr("/a/newfile"), root, nil)
	if err != 0 {
		t.Fatalf("NameiParent: %v", err)
	}
	if dir != a || last.String() != "newfile" {
		t.Fatalf("expected parent a and last 'newfile', got dir=%+v last=%q", dir, last.String())
	}
}

func TestNameiCrossesMountPoint(t *testing.T) {
	root := mkdirVn(1)
	m := &Mount_t{Root: root}
	root.Mount = m
	mountDir := mkdirVn(2)
	mountDir.Mount = m
	addChild(root, mountDir, "mnt")

	otherRoot := mkdirVn(10)
	other := &Mount_t{Root: otherRoot, MountedOn: mountDir}
	otherRoot.Mount = other
	mountDir.MountedHere = other
	leaf := &Vnode_t{Ino: 11, Type: VREG, Ops: fakeFs{}, Mount: other}
	addChild(otherRoot, leaf, "leaf")

	got, err := Namei(ustr.Ustr("/mnt/leaf"), root, nil)
	if err != 0 || got != leaf {
		t.Fatalf("expected to cross mount point to leaf, got %+v err=%v", got, err)
	}
}

func TestVnodeRefUnref(t *testing.T) {
	vn := &Vnode_t{}
	vn.Ref()
	vn.Ref()
	if vn.Unref() {
		t.Fatal("expected Unref to report non-zero after two refs and one unref")
	}
	if !vn.Unref() {
		t.Fatal("expected Unref to report zero on the final release")
	}
}

func TestMountlistAddRemove(t *testing.T) {
	ml := &Mountlist_t{}
	m := &Mount_t{}
	ml.Add(m)
	if len(ml.All()) != 1 {
		t.Fatalf("expected 1 mount, got %d", len(ml.All()))
	}
	ml.Remove(m)
	if len(ml.All()) != 0 {
		t.Fatalf("expected 0 mounts after remove, got %d", len(ml.All()))
	}
}

func TestVcacheInsertGetEvict(t *testing.T) {
	vc := &Vcache_t{m: make(map[vcacheKey]*Vnode_t)}
	m := &Mount_t{}
	vn := &Vnode_t{Ino: 7, Mount: m}
	vc.Insert(vn)
	got, ok := vc.Get(m, 7)
	if !ok || got != vn {
		t.Fatalf("expected cached vnode, got %+v ok=%v", got, ok)
	}
	vc.Evict(m, 7)
	if _, ok := vc.Get(m, 7); ok {
		t.Fatal("expected vnode to be evicted")
	}
}
