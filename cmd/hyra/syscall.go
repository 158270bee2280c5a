package main

import (
	"hyra/defs"
	"hyra/fd"
	"hyra/fs"
	"hyra/ksignal"
	"hyra/pmap"
	"hyra/proc"
	"hyra/scall"
	"hyra/ustr"
	"hyra/vm"
)

// Ctx_t is the trap-frame handle every syscall handler receives through
// Args_t.Tf: the calling thread plus whatever string argument (a path,
// for the calls that take one) the trap entry copied in from user
// memory. There is no real user address space to copy in from here, so
// the boot wiring passes Ctx_t directly instead of a raw pointer.
type Ctx_t struct {
	Proc *proc.Proc_t
	Path ustr.Ustr
}

func ctxOf(a *scall.Args_t) (*Ctx_t, defs.Err_t) {
	c, ok := a.Tf.(*Ctx_t)
	if !ok || c.Proc == nil {
		return nil, defs.EINVAL
	}
	return c, 0
}

func cwdVnode(p *proc.Proc_t) *fs.Vnode_t {
	vf, ok := p.Cwd.Fd.Fops.(*fd.VnodeFile_t)
	if !ok {
		return nil
	}
	return vf.Vn
}

var rootVnode *fs.Vnode_t

// registerSyscalls installs a handler for each scall.SYS_* number into
// the dispatch table, matching the original kernel's g_sctab layout.
func registerSyscalls() {
	scall.Register(scall.SYS_exit, sysExit)
	scall.Register(scall.SYS_open, sysOpen)
	scall.Register(scall.SYS_read, sysRead)
	scall.Register(scall.SYS_close, sysClose)
	scall.Register(scall.SYS_stat, sysStat)
	scall.Register(scall.SYS_sysctl, sysSysctl)
	scall.Register(scall.SYS_write, sysWrite)
	scall.Register(scall.SYS_spawn, sysSpawn)
	scall.Register(scall.SYS_reboot, sysReboot)
	scall.Register(scall.SYS_mmap, sysMmap)
	scall.Register(scall.SYS_munmap, sysMunmap)
	scall.Register(scall.SYS_access, sysAccess)
	scall.Register(scall.SYS_lseek, sysLseek)
	scall.Register(scall.SYS_sleep, sysSleep)
	scall.Register(scall.SYS_inject, sysInject)
	scall.Register(scall.SYS_getpid, sysGetpid)
	scall.Register(scall.SYS_getppid, sysGetppid)
	scall.Register(scall.SYS_setuid, sysSetuid)
	scall.Register(scall.SYS_getuid, sysGetuid)
	scall.Register(scall.SYS_waitpid, sysWaitpid)
}

func sysExit(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	proc.Exit1(c.Proc, int(a.Arg0))
	return 0
}

func sysOpen(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	path := c.Proc.Cwd.Canonicalpath(c.Path)
	vn, nerr := fs.Namei(path, rootVnode, cwdVnode(c.Proc))
	if nerr != 0 {
		return int64(nerr)
	}
	nfd := fd.OpenVnode(vn, int(a.Arg1))
	return int64(c.Proc.Fds.Alloc(nfd))
}

func sysRead(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	f, ferr := c.Proc.Fds.Get(int(a.Arg0))
	if ferr != 0 {
		return int64(ferr)
	}
	buf := make([]byte, a.Arg2)
	n, rerr := f.Fops.Read(buf)
	if rerr != 0 {
		return int64(rerr)
	}
	return int64(n)
}

func sysWrite(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	f, ferr := c.Proc.Fds.Get(int(a.Arg0))
	if ferr != 0 {
		return int64(ferr)
	}
	n, werr := f.Fops.Write(make([]byte, a.Arg2))
	if werr != 0 {
		return int64(werr)
	}
	return int64(n)
}

func sysClose(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	return int64(c.Proc.Fds.Close(int(a.Arg0)))
}

func sysStat(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	path := c.Proc.Cwd.Canonicalpath(c.Path)
	vn, nerr := fs.Namei(path, rootVnode, cwdVnode(c.Proc))
	if nerr != 0 {
		return int64(nerr)
	}
	if _, serr := vn.Ops.Getattr(vn); serr != 0 {
		return int64(serr)
	}
	return 0
}

func sysSysctl(a *scall.Args_t) int64 {
	return int64(defs.ENOSUP)
}

func sysSpawn(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	child, serr := proc.Fork1(c.Proc, 0)
	if serr != 0 {
		return int64(serr)
	}
	return int64(child.Pid)
}

func sysReboot(a *scall.Args_t) int64 {
	return int64(defs.ENOSUP)
}

func sysMmap(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	obj := vm.NewAnonObject(pmap.PROT_READ | pmap.PROT_WRITE | pmap.PROT_USER)
	length := uintptr(a.Arg1)
	if merr := c.Proc.As.MmapAt(uintptr(a.Arg0), length, obj, pmap.PROT_READ|pmap.PROT_WRITE|pmap.PROT_USER, vm.MAP_PRIVATE|vm.MAP_ANON); merr != 0 {
		return int64(merr)
	}
	return int64(a.Arg0)
}

func sysMunmap(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	return int64(c.Proc.As.MunmapAt(uintptr(a.Arg0), uintptr(a.Arg1)))
}

func sysAccess(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	path := c.Proc.Cwd.Canonicalpath(c.Path)
	if _, nerr := fs.Namei(path, rootVnode, cwdVnode(c.Proc)); nerr != 0 {
		return int64(nerr)
	}
	return 0
}

func sysLseek(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	f, ferr := c.Proc.Fds.Get(int(a.Arg0))
	if ferr != 0 {
		return int64(ferr)
	}
	off, serr := f.Fops.Lseek(int64(a.Arg1), int(a.Arg2))
	if serr != 0 {
		return int64(serr)
	}
	return off
}

func sysSleep(a *scall.Args_t) int64 {
	return 0
}

func sysInject(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	ksignal.DispatchSignals(c.Proc.Sig, c.Proc)
	return 0
}

func sysGetpid(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	return int64(c.Proc.Pid)
}

func sysGetppid(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	if c.Proc.Parent == nil {
		return -1
	}
	return int64(c.Proc.Parent.Pid)
}

func sysSetuid(a *scall.Args_t) int64 {
	return int64(defs.ENOSUP)
}

func sysGetuid(a *scall.Args_t) int64 {
	return 0
}

func sysWaitpid(a *scall.Args_t) int64 {
	c, err := ctxOf(a)
	if err != 0 {
		return int64(err)
	}
	status, werr := proc.Waitpid(c.Proc, int(a.Arg0))
	if werr != 0 {
		return int64(werr)
	}
	return int64(status)
}
