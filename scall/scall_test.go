package scall

import "testing"

func TestDispatchOutOfRangeReturnsEinval(t *testing.T) {
	if got := Dispatch(9999, &Args_t{}); got >= 0 {
		t.Fatalf("expected negative errno for out-of-range syscall, got %d", got)
	}
}

func TestDispatchUnregisteredReturnsEinval(t *testing.T) {
	if got := Dispatch(SYS_getuid, &Args_t{}); got >= 0 {
		t.Fatalf("expected negative errno for unregistered syscall, got %d", got)
	}
}

func TestRegisterAndDispatch(t *testing.T) {
	if err := Register(SYS_getpid, func(a *Args_t) int64 { return 42 }); err != 0 {
		t.Fatalf("Register: %v", err)
	}
	if got := Dispatch(SYS_getpid, &Args_t{}); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestRegisterRejectsOutOfRange(t *testing.T) {
	if err := Register(-1, func(a *Args_t) int64 { return 0 }); err == 0 {
		t.Fatal("expected Register to reject negative syscall number")
	}
	if err := Register(maxSyscall, func(a *Args_t) int64 { return 0 }); err == 0 {
		t.Fatal("expected Register to reject out-of-range syscall number")
	}
}

func TestArgsCarrySixRegisters(t *testing.T) {
	a := &Args_t{Arg0: 1, Arg1: 2, Arg2: 3, Arg3: 4, Arg4: 5, Arg5: 6}
	Register(SYS_write, func(args *Args_t) int64 {
		return int64(args.Arg0 + args.Arg1 + args.Arg2 + args.Arg3 + args.Arg4 + args.Arg5)
	})
	if got := Dispatch(SYS_write, a); got != 21 {
		t.Fatalf("expected sum 21, got %d", got)
	}
}
