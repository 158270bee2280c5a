package main

import (
	"testing"

	"hyra/fs"
	"hyra/ksignal"
	"hyra/mem"
	"hyra/proc"
	"hyra/scall"
	"hyra/sched"
)

func TestMountRootWiresPseudoFilesystems(t *testing.T) {
	mem.Init(4096)
	root, pfs := mountRoot()
	rootVnode = root.Root

	if _, err := fs.Namei([]byte("/dev"), root.Root, nil); err != 0 {
		t.Fatalf("expected /dev to resolve after mountRoot, got %v", err)
	}
	if _, err := fs.Namei([]byte("/ctl"), root.Root, nil); err != 0 {
		t.Fatalf("expected /ctl to resolve after mountRoot, got %v", err)
	}
	if _, err := fs.Namei([]byte("/proc"), root.Root, nil); err != 0 {
		t.Fatalf("expected /proc to resolve after mountRoot, got %v", err)
	}
	if _, err := fs.Namei([]byte("/tmp"), root.Root, nil); err != 0 {
		t.Fatalf("expected /tmp to resolve after mountRoot, got %v", err)
	}
	if pfs.devfs == nil || pfs.ctlfs == nil || pfs.procfs == nil {
		t.Fatal("expected pseudofs handles to be populated")
	}
}

func TestSigsegvDefaultHandlerWritesCoreFile(t *testing.T) {
	mem.Init(4096)
	root, _ := mountRoot()
	defer func(prev *fs.Vnode_t) { proc.Root = prev }(proc.Root)
	proc.Root = root.Root

	p, serr := proc.Spawn(nil, 0)
	if serr != 0 {
		t.Fatalf("Spawn: %v", serr)
	}
	if err := p.Sig.SendsigFault(ksignal.SIGSEGV, 0xbadaddr); err != 0 {
		t.Fatalf("SendsigFault: %v", err)
	}
	ksignal.DispatchSignals(p.Sig, p)

	if _, err := fs.Namei([]byte("/tmp/core."+itoaTest(p.Pid)), root.Root, nil); err != 0 {
		t.Fatalf("expected core file to exist after SIGSEGV dispatch, got %v", err)
	}
}

func itoaTest(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestBringUpDriversPopulatesDevfsAndProc(t *testing.T) {
	mem.Init(4096)
	root, pfs := mountRoot()
	rootVnode = root.Root
	bringUpDrivers(pfs)

	if _, err := fs.Namei([]byte("/dev/console"), root.Root, nil); err != 0 {
		t.Fatalf("expected /dev/console after bringUpDrivers, got %v", err)
	}
	if _, err := fs.Namei([]byte("/proc/version"), root.Root, nil); err != 0 {
		t.Fatalf("expected /proc/version after bringUpDrivers, got %v", err)
	}
	if _, err := fs.Namei([]byte("/ctl/fb0/attr"), root.Root, nil); err != 0 {
		t.Fatalf("expected /ctl/fb0/attr after bringUpDrivers, got %v", err)
	}
	if _, err := fs.Namei([]byte("/ctl/dmi/board"), root.Root, nil); err != 0 {
		t.Fatalf("expected /ctl/dmi/board after bringUpDrivers, got %v", err)
	}
}

func TestDmiBoardReadRendersFields(t *testing.T) {
	buf := make([]byte, 256)
	n, err := dmiBoardOps{}.Read(buf, 0)
	if err != 0 {
		t.Fatalf("Read: %v", err)
	}
	if n == 0 {
		t.Fatal("expected non-empty dmi board payload")
	}
	if _, err := dmiBoardOps{}.Write(buf, 0); err == 0 {
		t.Fatal("expected dmi board writes to be rejected")
	}
}

func TestRegisterSyscallsInstallsGetpid(t *testing.T) {
	mem.Init(4096)
	root, pfs := mountRoot()
	rootVnode = root.Root
	bringUpDrivers(pfs)
	registerSyscalls()

	p, serr := proc.Spawn(nil, 0)
	if serr != 0 {
		t.Fatalf("Spawn: %v", serr)
	}
	got := scall.Dispatch(scall.SYS_getpid, &scall.Args_t{Tf: &Ctx_t{Proc: p}})
	if got != int64(p.Pid) {
		t.Fatalf("expected getpid to return %d, got %d", p.Pid, got)
	}
}

func TestBootSequenceEnqueuesInit(t *testing.T) {
	mem.Init(4096)
	root, pfs := mountRoot()
	rootVnode = root.Root
	bringUpDrivers(pfs)

	cs := sched.NewCPUSched()
	init1, serr := proc.Spawn(nil, 0)
	if serr != 0 {
		t.Fatalf("Spawn: %v", serr)
	}
	cs.Enqueue(init1)

	if cs.Nthread() != 1 {
		t.Fatalf("expected exactly one runnable thread queued, got %d", cs.Nthread())
	}
}
