// Package scall implements the syscall argument struct and the
// fixed-size dispatch table indexed by syscall number, matching the
// trap_syscall/g_sctab contract: six register-passed arguments are
// marshalled into Args_t, the number indexes the table, and an
// out-of-range or unset slot returns EINVAL.
package scall

import "hyra/defs"

// Syscall numbers, in g_sctab order.
const (
	SYS_none = iota
	SYS_exit
	SYS_open
	SYS_read
	SYS_close
	SYS_stat
	SYS_sysctl
	SYS_write
	SYS_spawn
	SYS_reboot
	SYS_mmap
	SYS_munmap
	SYS_access
	SYS_lseek
	SYS_sleep
	SYS_inject
	SYS_getpid
	SYS_getppid
	SYS_setuid
	SYS_getuid
	SYS_waitpid
	maxSyscall
)

/// Args_t holds the six register-passed syscall arguments plus an
/// opaque trap-frame handle, deposited by the architecture trap entry.
type Args_t struct {
	Arg0, Arg1, Arg2, Arg3, Arg4, Arg5 uint64
	Tf                                 interface{}
}

/// HandlerFunc runs one syscall; a negative return value is an errno
/// code, matching scret_t's sign convention.
type HandlerFunc func(*Args_t) int64

var table [maxSyscall]HandlerFunc

/// Register installs fn as the handler for syscall number nr.
func Register(nr int, fn HandlerFunc) defs.Err_t {
	if nr <= SYS_none || nr >= maxSyscall {
		return defs.EINVAL
	}
	table[nr] = fn
	return 0
}

/// Dispatch looks up nr's handler and runs it against args, returning
/// EINVAL (as a negative scret_t-style value) for an out-of-range or
/// unregistered syscall number.
func Dispatch(nr int, args *Args_t) int64 {
	if nr <= SYS_none || nr >= maxSyscall || table[nr] == nil {
		return int64(defs.EINVAL)
	}
	return table[nr](args)
}
