//go:build linux || freebsd

// Package connector opens outbound stream connections to Unix and IPv4
// socket specs with an optional timeout and non-blocking mode.
//
// All failures are recoverable: the socket is closed and the error is
// returned for the caller to retry, log or abandon.
package connector

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	sockerr "gosock/internal/errors"
	"gosock/internal/rawsock"
	"gosock/internal/sockaddr"
)

// DefaultTimeout bounds the writability wait when the caller passes zero.
const DefaultTimeout = 3 * time.Second

// Syscall seams, replaced in tests.
var (
	connectFn = rawsock.Connect
	pollFn    = unix.Poll
)

// Connect connects to name: a "host:port" spec uses TCP, anything else is
// a Unix path (or "@name" abstract socket).  With async set the returned
// descriptor may still be connecting and the caller must wait for it to
// become writable.
func Connect(name string, timeout time.Duration, async bool) (int, error) {
	if strings.IndexByte(name, ':') >= 0 {
		return connectInet(name, timeout, async)
	}
	return connectUnix(name, timeout, async)
}

// ConnectN connects to the first n bytes of name.  The bytes may contain
// NULs (a leading NUL addresses the abstract namespace); they are copied
// so that name is never retained.
func ConnectN(name []byte, n int, timeout time.Duration, async bool) (int, error) {
	if n > len(name) {
		n = len(name)
	}
	if n < 0 {
		n = 0
	}
	return Connect(string(name[:n]), timeout, async)
}

func connectUnix(name string, timeout time.Duration, async bool) (int, error) {
	raw, err := sockaddr.EncodeUnix(name, false)
	if err != nil {
		return -1, sockerr.Recoverable("connect", name, err)
	}
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, sockerr.Recoverable("socket", name, err)
	}
	if err := TimedConnect(fd, raw, timeout, async); err != nil {
		unix.Close(fd)
		return -1, wrap(name, err)
	}
	return fd, nil
}

func connectInet(name string, timeout time.Duration, async bool) (int, error) {
	raw, err := sockaddr.EncodeInetName(name)
	if err != nil {
		return -1, sockerr.Recoverable("connect", name, err)
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, sockerr.Recoverable("socket", name, err)
	}
	if err := TimedConnect(fd, raw, timeout, async); err != nil {
		unix.Close(fd)
		return -1, wrap(name, err)
	}
	return fd, nil
}

// wrap attaches the spec name to a TimedConnect error.
func wrap(name string, err error) error {
	var se *sockerr.SocketError
	if errors.As(err, &se) {
		se.Name = name
		return se
	}
	return sockerr.Recoverable("connect", name, err)
}

// TimedConnect connects fd to raw.  The descriptor is switched to
// non-blocking for the connect and is always back in blocking mode when
// TimedConnect returns.
//
// In async mode both immediate success and EINPROGRESS count as success.
// Otherwise an in-progress connect waits up to timeout (DefaultTimeout
// when zero or negative) for writability and then checks SO_ERROR.  An
// interrupted wait fails immediately with ErrInterrupted.
func TimedConnect(fd int, raw *sockaddr.Raw, timeout time.Duration, async bool) (err error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return sockerr.Recoverable("fcntl", "", err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags|unix.O_NONBLOCK); err != nil {
		return sockerr.Recoverable("fcntl", "", err)
	}
	defer func() {
		if _, rerr := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags&^unix.O_NONBLOCK); rerr != nil && err == nil {
			err = sockerr.Recoverable("fcntl", "", rerr)
		}
	}()

	cerr := connectFn(fd, raw)
	if cerr == nil {
		return nil
	}
	if !errors.Is(cerr, unix.EINPROGRESS) {
		return sockerr.Recoverable("connect", "", cerr)
	}
	if async {
		return nil
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	n, perr := pollFn(fds, int(timeout/time.Millisecond))
	switch {
	case errors.Is(perr, unix.EINTR):
		return sockerr.Recoverable("poll", "", sockerr.ErrInterrupted)
	case perr != nil:
		return sockerr.Recoverable("poll", "", perr)
	case n == 0:
		return sockerr.Recoverable("connect", "", sockerr.ErrConnectTimeout)
	}

	soerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return sockerr.Recoverable("getsockopt", "", err)
	}
	if soerr != 0 {
		return sockerr.Recoverable("connect", "", unix.Errno(soerr))
	}
	return nil
}
