// Command hyra is the kernel's boot entry point: it brings up physical
// memory, mounts the root pseudo-filesystems, runs the driver registry,
// starts the scheduler, and spawns init before handing off control.
package main

import (
	"fmt"
	"runtime"

	"hyra/ctlfs"
	"hyra/defs"
	"hyra/dev"
	"hyra/devfs"
	"hyra/driver"
	"hyra/fd"
	"hyra/fs"
	"hyra/intr"
	"hyra/mem"
	"hyra/proc"
	"hyra/procfs"
	"hyra/sched"
	"hyra/tmpfs"
	"hyra/ustr"
)

const physFrames = 32 * 1024 // 128MB arena, enough for an in-process boot

// pseudofs bundles the filesystem handles mountRoot creates, so
// bringUpDrivers can populate them once drivers have registered
// themselves.
type pseudofs struct {
	devfs       *devfs.Devfs_t
	devfsMount  *fs.Mount_t
	ctlfs       *ctlfs.Ctlfs_t
	ctlfsMount  *fs.Mount_t
	procfs      *procfs.Procfs_t
	procfsMount *fs.Mount_t
}

func main() {
	defs.Klogf("boot", "hyra kernel starting\n")

	mem.Init(physFrames)

	root, pfs := mountRoot()
	rootVnode = root.Root
	proc.Root = root.Root
	for name, err := range bringUpDrivers(pfs) {
		defs.Klogf("boot", "driver %s failed: %s\n", name, err)
	}

	cpu := intr.NewCPU(0, 0)
	cs := sched.NewCPUSched()
	sched.RegisterHooks(cs)
	defs.Klogf("boot", "cpu%d online, ipl=%d\n", cpu.ID, cpu.IPL())

	registerSyscalls()

	init1, err := proc.Spawn(nil, 0)
	if err != 0 {
		panic("spawn init: " + err.String())
	}
	rootfd := fd.OpenVnode(root.Root, 0)
	init1.Cwd = fd.MkRootCwd(rootfd)
	cs.Enqueue(init1)

	defs.Klogf("boot", "init running as pid %d\n", init1.Pid)
}

// mountRoot mounts the root tmpfs and the /dev, /ctl, and /proc
// pseudo-filesystems beneath it, registering each with fs.Mountlist.
func mountRoot() (*fs.Mount_t, *pseudofs) {
	root := tmpfs.Mkfs()
	fs.Mountlist.Add(root)

	pfs := &pseudofs{}

	devDir := mkdirOrPanic(root, "dev")
	pfs.devfsMount, pfs.devfs = devfs.Mkfs()
	mountOn(devDir, pfs.devfsMount)

	ctlDir := mkdirOrPanic(root, "ctl")
	pfs.ctlfsMount, pfs.ctlfs = ctlfs.Mkfs()
	mountOn(ctlDir, pfs.ctlfsMount)

	procDir := mkdirOrPanic(root, "proc")
	pfs.procfsMount, pfs.procfs = procfs.Mkfs()
	mountOn(procDir, pfs.procfsMount)

	mkdirOrPanic(root, "tmp")

	return root, pfs
}

func mkdirOrPanic(root *fs.Mount_t, name string) *fs.Vnode_t {
	vn, err := root.Root.Ops.Mkdir(root.Root, ustr.Ustr(name), 0755)
	if err != 0 {
		panic("mkdir /" + name + ": " + err.String())
	}
	return vn
}

func mountOn(dir *fs.Vnode_t, m *fs.Mount_t) {
	dir.MountedHere = m
	m.MountedOn = dir
	fs.Mountlist.Add(m)
}

// bringUpDrivers runs every early driver (each dev/*.go file registers
// itself via driver.Export from its own package-init function, pulled
// in transitively through the dev import), populates devfs and the
// /ctl/fb0/attr and /ctl/dmi/board control entries from what registered,
// adds the /proc entries, and finally runs deferred drivers.
func bringUpDrivers(pfs *pseudofs) map[string]defs.Err_t {
	failures := driver.DriversInit()

	pfs.devfs.Populate(pfs.devfsMount)

	pfs.ctlfs.CreateNode(pfs.ctlfsMount, "fb0", 0755)
	if _, err := pfs.ctlfs.CreateEntry(pfs.ctlfsMount, "fb0", "attr", fbAttrOps{}, 0444); err != 0 {
		defs.Klogf("boot", "ctl/fb0/attr: %s\n", err)
	}

	pfs.ctlfs.CreateNode(pfs.ctlfsMount, "dmi", 0755)
	if _, err := pfs.ctlfs.CreateEntry(pfs.ctlfsMount, "dmi", "board", dmiBoardOps{}, 0444); err != 0 {
		defs.Klogf("boot", "ctl/dmi/board: %s\n", err)
	}

	pfs.procfs.AddEntry(pfs.procfsMount, "version", func() []byte {
		return []byte("hyra-go\n")
	})
	pfs.procfs.AddEntry(pfs.procfsMount, "memstat", func() []byte {
		total, used, free := mem.Physmem.Stat()
		return []byte(fmt.Sprintf("total %d\nused %d\nfree %d\n", total, used, free))
	})
	pfs.procfs.AddEntry(pfs.procfsMount, "interrupts", func() []byte {
		return []byte(fmt.Sprintf("vectors %d\n", intr.Nvectors()))
	})

	for name, err := range driver.DriversRunDeferred() {
		failures[name] = err
	}
	return failures
}

// fbAttrOps renders the framebuffer geometry as the /ctl/fb0/attr
// control file's read-only payload.
type fbAttrOps struct{}

func (fbAttrOps) Read(buf []byte, offset int64) (int, defs.Err_t) {
	a := dev.FramebufferAttr()
	text := []byte(fmt.Sprintf("width %d\nheight %d\npitch %d\nbpp %d\n", a.Width, a.Height, a.Pitch, a.Bpp))
	if offset >= int64(len(text)) {
		return 0, 0
	}
	return copy(buf, text[offset:]), 0
}

func (fbAttrOps) Write(buf []byte, offset int64) (int, defs.Err_t) {
	return 0, defs.EACCES
}

// dmiBoard mirrors the fixed-size board identity record the board_ctl_read
// handler it is grounded on fills from the platform's DMI/SMBIOS tables.
// There are no SMBIOS tables to read inside a hosted Go process, so the
// fields are populated from what the Go runtime actually knows about the
// host it's running on.
var dmiBoard = struct {
	cpuVersion string
	version    string
	cpuManuf   string
	product    string
	vendor     string
}{
	cpuVersion: runtime.GOARCH,
	version:    runtime.Version(),
	cpuManuf:   "go-runtime",
	product:    "hyra",
	vendor:     runtime.GOOS,
}

// dmiBoardOps renders dmiBoard as the /ctl/dmi/board control file's
// read-only payload, clamping offset the way the read it is grounded on
// clamps against sizeof(board).
type dmiBoardOps struct{}

func (dmiBoardOps) Read(buf []byte, offset int64) (int, defs.Err_t) {
	text := []byte(fmt.Sprintf("cpu_version %s\nversion %s\ncpu_manuf %s\nproduct %s\nvendor %s\n",
		dmiBoard.cpuVersion, dmiBoard.version, dmiBoard.cpuManuf, dmiBoard.product, dmiBoard.vendor))
	if offset >= int64(len(text)) {
		return 0, 0
	}
	return copy(buf, text[offset:]), 0
}

func (dmiBoardOps) Write(buf []byte, offset int64) (int, defs.Err_t) {
	return 0, defs.EACCES
}
