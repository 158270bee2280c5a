// Package proc implements the process/thread struct and its lifecycle
// operations: spawn, fork1, execve, exit1, and waitpid. A process is a
// tree of threads; the root thread plus its leaf queue represents one
// process, and the Proc_t struct serves both a process and a thread.
package proc

import (
	dbgelf "debug/elf"
	"hash/crc32"
	"sync"
	"sync/atomic"

	"hyra/accnt"
	"hyra/defs"
	"hyra/elf"
	"hyra/fd"
	"hyra/fs"
	"hyra/ksignal"
	"hyra/pmap"
	"hyra/ustr"
	"hyra/vm"
	"hyra/vsr"
)

// Per-process resource ceilings.
const (
	MaxFiledes = 256
	StackPages = 8
)

// Root is the filesystem root Coredump resolves "/tmp/core.<pid>"
// against; set once by boot wiring once the root pseudo-filesystem is
// mounted, the same hook-var pattern ksync's PreemptHook/YieldHook use
// to let a leaf package reach a piece of state only assembled at boot.
var Root *fs.Vnode_t

// Proc_t.Flags bits.
const (
	FlagExiting = 1 << iota
	FlagExec
	FlagZombie
	FlagLeafq
	FlagWaited
	FlagKernelThread
	FlagSleep
	FlagPinned
)

/// ExecProg_t records what execve loaded, for coredumps and /proc
/// introspection.
type ExecProg_t struct {
	Path     ustr.Ustr
	LoadMap  []elf.Segment_t
	AuxEntry uintptr
}

/// Proc_t is a kernel thread/process. Threads are the unit of
/// scheduling; a process is its root thread plus the leaves linked
/// through Leafq.
type Proc_t struct {
	sync.Mutex

	Pid        int
	Parent     *Proc_t
	Leafq      []*Proc_t
	Exec       ExecProg_t
	Fds        *fd.Fdtable_t
	Cwd        *fd.Cwd_t
	VSR        vsr.Table_t
	As         *vm.AddrSpace_t
	Sig        *ksignal.Queue_t
	Accnt      accnt.Accnt_t

	Affinity   int16
	priority   int32
	ExitStatus int
	Flags      uint32
	StackBase  uintptr

	waitq chan *Proc_t // zombie children delivered here for waitpid
}

var (
	nextPid  int32
	nthreads int64
)

/// Nthreads returns the live thread count across the whole system.
func Nthreads() int64 {
	return atomic.LoadInt64(&nthreads)
}

/// Priority implements sched.Runnable.
func (p *Proc_t) Priority() int { return int(atomic.LoadInt32(&p.priority)) }

/// SetPriority implements sched.Runnable.
func (p *Proc_t) SetPriority(v int) { atomic.StoreInt32(&p.priority, int32(v)) }

/// HasFlag reports whether every bit in mask is set.
func (p *Proc_t) HasFlag(mask uint32) bool {
	return atomic.LoadUint32(&p.Flags)&mask == mask
}

func (p *Proc_t) setFlag(mask uint32) {
	for {
		old := atomic.LoadUint32(&p.Flags)
		if atomic.CompareAndSwapUint32(&p.Flags, old, old|mask) {
			return
		}
	}
}

func (p *Proc_t) clearFlag(mask uint32) {
	for {
		old := atomic.LoadUint32(&p.Flags)
		if atomic.CompareAndSwapUint32(&p.Flags, old, old&^mask) {
			return
		}
	}
}

/// Spawn allocates a new thread under parent (nil for the first, init,
/// process), with an empty mmap ledger, VSR namespace, descriptor
/// table, and signal queue. flags carries FlagKernelThread for a
/// kernel-only thread that never enters userland.
func Spawn(parent *Proc_t, flags uint32) (*Proc_t, defs.Err_t) {
	as, err := vm.NewAddrSpace()
	if err != 0 {
		return nil, err
	}
	p := &Proc_t{
		Pid:    int(atomic.AddInt32(&nextPid, 1)),
		Parent: parent,
		Fds:    fd.NewFdtable(),
		As:     as,
		Sig:    ksignal.NewQueue(),
		Flags:  flags,
		waitq:  make(chan *Proc_t, 1),
	}
	vsr.InitDomains(&p.VSR)
	if parent != nil {
		parent.Lock()
		parent.Leafq = append(parent.Leafq, p)
		parent.Unlock()
		p.setFlag(FlagLeafq)
	}
	atomic.AddInt64(&nthreads, 1)
	return p, 0
}

/// Pin sets p's CPU affinity and marks it pinned.
func (p *Proc_t) Pin(cpu int16) {
	p.Affinity = cpu
	p.setFlag(FlagPinned)
}

/// Unpin clears p's CPU affinity.
func (p *Proc_t) Unpin() {
	p.clearFlag(FlagPinned)
}

/// Execve loads an ELF64 image into p: validates and parses raw via the
/// elf package, maps every PT_LOAD segment as a private vnode-backed
/// object at its requested address and protection, records the load
/// map, and re-initializes signal state. The thread's entry point
/// becomes the image's auxval entry.
func (p *Proc_t) Execve(path ustr.Ustr, raw []byte, vn *fs.Vnode_t) defs.Err_t {
	img, err := elf.Load(raw)
	if err != 0 {
		return err
	}

	as, err := vm.NewAddrSpace()
	if err != 0 {
		return err
	}
	obj := vn.VMObject()
	for _, seg := range img.Segments {
		prot := segProt(seg)
		if err := as.MmapAt(roundDown(seg.Vaddr), roundUp(seg.Memsz), obj, prot, vm.MAP_PRIVATE); err != 0 {
			return err
		}
	}

	p.Lock()
	p.As = as
	p.Exec = ExecProg_t{Path: path, LoadMap: img.Segments, AuxEntry: img.Entry}
	p.Sig = ksignal.NewQueue()
	p.setFlag(FlagExec)
	p.Unlock()
	return 0
}

func segProt(seg elf.Segment_t) pmap.Prot_t {
	var prot pmap.Prot_t
	if seg.Flags&dbgelf.PF_R != 0 {
		prot |= pmap.PROT_READ
	}
	if seg.Flags&dbgelf.PF_W != 0 {
		prot |= pmap.PROT_WRITE
	}
	if seg.Flags&dbgelf.PF_X != 0 {
		prot |= pmap.PROT_EXEC
	}
	return prot | pmap.PROT_USER
}

func roundDown(v uintptr) uintptr { return v &^ (4096 - 1) }
func roundUp(v uintptr) uintptr   { return (v + 4096 - 1) &^ (4096 - 1) }

/// Fork1 clones cur's address space (copy-on-write share of each
/// mapping's backing object) and duplicates its descriptor table and
/// VSR shadows into a new child thread of cur; Fork1 does not set where
/// the child begins executing.
func Fork1(cur *Proc_t, flags uint32) (*Proc_t, defs.Err_t) {
	child, err := Spawn(cur, flags)
	if err != 0 {
		return nil, err
	}
	cur.Lock()
	defer cur.Unlock()

	for _, e := range cur.As.Ledger.Entries() {
		if err := child.As.MmapAt(e.Start, e.Len, e.Obj, e.Prot, e.Flags); err != 0 {
			return nil, err
		}
	}

	nt, err := cur.Fds.Fork()
	if err != 0 {
		return nil, err
	}
	child.Fds = nt
	child.Parent = cur
	cur.VSR.Dup(&child.VSR)
	return child, 0
}

/// Exit1 marks td exiting, recursively exits its leaves, and either
/// frees td immediately (td has no parent) or parks it as a zombie for
/// the parent's Waitpid to reap; whether the parent is currently
/// waiting is not checked.
func Exit1(td *Proc_t, status int) {
	td.Lock()
	if td.HasFlag(FlagExiting) {
		td.Unlock()
		return
	}
	td.setFlag(FlagExiting)
	leaves := td.Leafq
	td.Leafq = nil
	td.Unlock()

	for _, leaf := range leaves {
		Exit1(leaf, status)
	}

	td.ExitStatus = status
	atomic.AddInt64(&nthreads, -1)

	if td.Parent == nil {
		return
	}
	td.setFlag(FlagZombie)
	select {
	case td.Parent.waitq <- td:
	default:
	}
}

/// Exit1 implements ksignal.Exiter, letting a ksignal.Queue_t terminate
/// its own thread via a default SIGKILL/SIGSEGV handler without
/// importing proc back.
func (p *Proc_t) Exit1(status int) {
	Exit1(p, status)
}

/// GetChild finds pid among cur's direct leaves.
func GetChild(cur *Proc_t, pid int) *Proc_t {
	cur.Lock()
	defer cur.Unlock()
	for _, c := range cur.Leafq {
		if c.Pid == pid {
			return c
		}
	}
	return nil
}

/// Waitpid blocks until the child with the given pid becomes a zombie,
/// then reaps it and returns its exit status.
func Waitpid(parent *Proc_t, pid int) (int, defs.Err_t) {
	for {
		z := <-parent.waitq
		if pid != 0 && z.Pid != pid {
			// Not the one we're waiting for; re-deliver and keep
			// looking (single-slot channel, so this never spins hot
			// in the one-outstanding-wait common case).
			select {
			case parent.waitq <- z:
			default:
			}
			continue
		}
		z.setFlag(FlagWaited)
		return z.ExitStatus, 0
	}
}

// Trapframe_t mirrors arch/amd64's struct trapframe field-for-field
// (trapno through ss). A hosted Go process never takes a real CPU trap,
// so every field is left zeroed; the layout is kept faithful so the
// on-disk record matches what a crash report is documented to contain.
type Trapframe_t struct {
	Trapno    uint64
	Rax       uint64
	Rcx       uint64
	Rdx       uint64
	Rbx       uint64
	Rsi       uint64
	Rdi       uint64
	Rbp       uint64
	R8        uint64
	R9        uint64
	R10       uint64
	R11       uint64
	R12       uint64
	R13       uint64
	R14       uint64
	R15       uint64
	ErrorCode uint64
	Rip       uint64
	Cs        uint64
	Rflags    uint64
	Rsp       uint64
	Ss        uint64
}

const trapframeWords = 22
const coredumpSize = 4 + 8 + trapframeWords*8 + 4

/// Coredump_t is the on-disk crash record written to /tmp/core.<pid>:
/// pid, faulting address, the trapframe at fault time, and a trailing
/// CRC-32 over everything before it.
type Coredump_t struct {
	Pid       uint32
	FaultAddr uint64
	Frame     Trapframe_t
	Checksum  uint32
}

/// coredumpBytes builds td's crash record with a CRC-32 computed over
/// every preceding field, matching the original kernel's checksum
/// placement as the last word.
func coredumpBytes(td *Proc_t, faultAddr uintptr, frame Trapframe_t) []byte {
	buf := make([]byte, coredumpSize)
	off := 0
	putU32(buf[off:off+4], uint32(td.Pid))
	off += 4
	putU64(buf[off:off+8], uint64(faultAddr))
	off += 8
	for _, word := range []uint64{
		frame.Trapno, frame.Rax, frame.Rcx, frame.Rdx, frame.Rbx,
		frame.Rsi, frame.Rdi, frame.Rbp, frame.R8, frame.R9,
		frame.R10, frame.R11, frame.R12, frame.R13, frame.R14,
		frame.R15, frame.ErrorCode, frame.Rip, frame.Cs, frame.Rflags,
		frame.Rsp, frame.Ss,
	} {
		putU64(buf[off:off+8], word)
		off += 8
	}
	sum := crc32.ChecksumIEEE(buf[:off])
	putU32(buf[off:off+4], sum)
	return buf
}

/// Coredump writes p's crash record to /tmp/core.<pid>, satisfying
/// ksignal.Corer so the default SIGSEGV handler can produce a core file
/// without ksignal importing proc. Root must have been set by boot
/// wiring; a nil Root (no filesystem mounted yet, e.g. in unit tests
/// that don't exercise boot) is reported as ENOENT rather than a panic.
func (p *Proc_t) Coredump(faultAddr uintptr) defs.Err_t {
	if Root == nil {
		return defs.ENOENT
	}
	name := ustr.Ustr("core." + itoa(p.Pid))
	dir, last, err := fs.NameiParent(ustr.Ustr("/tmp/"+name.String()), Root, nil)
	if err != 0 {
		return err
	}
	vn, err := dir.Ops.Create(dir, last, 0600)
	if err != 0 {
		return err
	}
	rec := coredumpBytes(p, faultAddr, Trapframe_t{})
	if _, err := vn.Ops.Write(vn, rec, 0); err != 0 {
		return err
	}
	return 0
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}
