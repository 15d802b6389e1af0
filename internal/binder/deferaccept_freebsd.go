package binder

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// acceptFilter installs the "dataready" accept filter (accf_data).
type acceptFilter struct{}

// acceptFilterArg mirrors struct accept_filter_arg.
type acceptFilterArg struct {
	name [16]byte
	arg  [240]byte
}

func (acceptFilter) Enable(fd int, _ time.Duration) error {
	var afa acceptFilterArg
	copy(afa.name[:], "dataready")
	_, _, e := unix.Syscall6(unix.SYS_SETSOCKOPT, uintptr(fd), unix.SOL_SOCKET, unix.SO_ACCEPTFILTER,
		uintptr(unsafe.Pointer(&afa)), unsafe.Sizeof(afa), 0)
	if e != 0 {
		return e
	}
	return nil
}

func (acceptFilter) Name() string { return "SO_ACCEPTFILTER" }

// DefaultAcceptOptimizer returns the platform's deferred-accept option.
func DefaultAcceptOptimizer() AcceptOptimizer { return acceptFilter{} }
