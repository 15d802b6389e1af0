package binder

import (
	"time"

	"golang.org/x/sys/unix"
)

// deferAccept sets TCP_DEFER_ACCEPT; the kernel completes the accept only
// after data arrives or the timeout (in seconds) elapses.
type deferAccept struct{}

func (deferAccept) Enable(fd int, timeout time.Duration) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, int(timeout/time.Second))
}

func (deferAccept) Name() string { return "TCP_DEFER_ACCEPT" }

// DefaultAcceptOptimizer returns the platform's deferred-accept option.
func DefaultAcceptOptimizer() AcceptOptimizer { return deferAccept{} }
