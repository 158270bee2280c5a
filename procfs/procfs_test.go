package procfs

import (
	"testing"

	"hyra/fs"
	"hyra/ustr"
)

func TestEntryRegeneratesOnEachRead(t *testing.T) {
	m, p := Mkfs()
	calls := 0
	p.AddEntry(m, "version", func() []byte {
		calls++
		return []byte("hyra 0.1")
	})

	vn, err := fs.Namei(ustr.Ustr("/version"), m.Root, nil)
	if err != 0 {
		t.Fatalf("Namei: %v", err)
	}
	buf := make([]byte, 32)
	n, _ := vn.Ops.Read(vn, buf, 0)
	if string(buf[:n]) != "hyra 0.1" {
		t.Fatalf("unexpected content %q", buf[:n])
	}
	vn.Ops.Read(vn, buf, 0)
	if calls != 2 {
		t.Fatalf("expected generator called once per read, got %d", calls)
	}
}

func TestWriteIsRejected(t *testing.T) {
	m, p := Mkfs()
	p.AddEntry(m, "memstat", func() []byte { return nil })
	vn, _ := fs.Namei(ustr.Ustr("/memstat"), m.Root, nil)
	if _, err := vn.Ops.Write(vn, []byte("x"), 0); err == 0 {
		t.Fatal("expected write to a procfs entry to fail")
	}
}
