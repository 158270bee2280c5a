package fd

import (
	"testing"

	"hyra/fs"
	"hyra/tmpfs"
	"hyra/ustr"
)

func mkfile(t *testing.T) *fs.Vnode_t {
	t.Helper()
	m := tmpfs.Mkfs()
	fs.Mountlist.Add(m)
	dir, name, err := fs.NameiParent(ustr.Ustr("/hello.txt"), m.Root, nil)
	if err != 0 {
		t.Fatalf("NameiParent: %v", err)
	}
	vn, err := dir.Ops.Create(dir, name, 0644)
	if err != 0 {
		t.Fatalf("Create: %v", err)
	}
	return vn
}

func TestReadWriteAdvancesOffset(t *testing.T) {
	vn := mkfile(t)
	vn.Ref()
	fdesc := OpenVnode(vn, FD_READ|FD_WRITE)

	if n, err := fdesc.Fops.Write([]byte("hyra")); err != 0 || n != 4 {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
	if _, err := fdesc.Fops.Lseek(0, SEEK_SET); err != 0 {
		t.Fatalf("Lseek: %v", err)
	}
	buf := make([]byte, 16)
	n, err := fdesc.Fops.Read(buf)
	if err != 0 || string(buf[:n]) != "hyra" {
		t.Fatalf("Read: n=%d err=%v buf=%q", n, err, buf[:n])
	}
}

func TestCopyfdSharesOffset(t *testing.T) {
	vn := mkfile(t)
	vn.Ref()
	fdesc := OpenVnode(vn, FD_READ|FD_WRITE)
	fdesc.Fops.Write([]byte("hyra"))

	dup, err := Copyfd(fdesc)
	if err != 0 {
		t.Fatalf("Copyfd: %v", err)
	}
	// dup shares the same VnodeFile_t, so its cursor reflects the
	// original's prior write rather than starting back at zero.
	buf := make([]byte, 16)
	n, _ := dup.Fops.Read(buf)
	if n != 0 {
		t.Fatalf("expected EOF at shared offset, read %d bytes", n)
	}
	dup.Fops.Lseek(0, SEEK_SET)
	n, _ = dup.Fops.Read(buf)
	if string(buf[:n]) != "hyra" {
		t.Fatalf("unexpected content %q", buf[:n])
	}
}

func TestFdtableAllocLowestFree(t *testing.T) {
	vn := mkfile(t)
	tbl := NewFdtable()
	vn.Ref()
	a := tbl.Alloc(OpenVnode(vn, FD_READ))
	vn.Ref()
	b := tbl.Alloc(OpenVnode(vn, FD_READ))
	if a != 0 || b != 1 {
		t.Fatalf("expected sequential allocation, got a=%d b=%d", a, b)
	}
	if err := tbl.Close(a); err != 0 {
		t.Fatalf("Close: %v", err)
	}
	vn.Ref()
	c := tbl.Alloc(OpenVnode(vn, FD_READ))
	if c != 0 {
		t.Fatalf("expected reuse of freed slot 0, got %d", c)
	}
}

func TestFdtableForkDuplicatesDescriptors(t *testing.T) {
	vn := mkfile(t)
	tbl := NewFdtable()
	vn.Ref()
	tbl.Alloc(OpenVnode(vn, FD_READ))

	child, err := tbl.Fork()
	if err != 0 {
		t.Fatalf("Fork: %v", err)
	}
	if _, err := child.Get(0); err != 0 {
		t.Fatalf("expected child to inherit descriptor 0: %v", err)
	}
}

func TestCloseOnExecClosesFlaggedDescriptors(t *testing.T) {
	vn := mkfile(t)
	tbl := NewFdtable()
	vn.Ref()
	cloexecFd := tbl.Alloc(OpenVnode(vn, FD_READ|FD_CLOEXEC))
	vn.Ref()
	keepFd := tbl.Alloc(OpenVnode(vn, FD_READ))

	tbl.CloseOnExec()

	if _, err := tbl.Get(cloexecFd); err == 0 {
		t.Fatal("expected close-on-exec descriptor to be closed")
	}
	if _, err := tbl.Get(keepFd); err != 0 {
		t.Fatalf("expected non-cloexec descriptor to survive: %v", err)
	}
}

func TestCwdCanonicalpathResolvesRelative(t *testing.T) {
	vn := mkfile(t)
	vn.Ref()
	cwd := MkRootCwd(OpenVnode(vn, FD_READ))
	cwd.Path = ustr.Ustr("/home/user")

	got := cwd.Canonicalpath(ustr.Ustr("../etc/passwd"))
	if got.String() != "/home/etc/passwd" {
		t.Fatalf("unexpected canonical path %q", got.String())
	}
}
