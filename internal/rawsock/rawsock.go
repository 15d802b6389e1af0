//go:build linux || freebsd

// Package rawsock issues bind, connect and getsockname with the exact
// sockaddr length produced by the sockaddr encoder.  The x/sys/unix
// wrappers recompute lengths from their own Sockaddr types, which would
// disagree with peers that use the shortened Unix lengths.
package rawsock

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"gosock/internal/sockaddr"
)

// Bind binds fd to the encoded address.
func Bind(fd int, r *sockaddr.Raw) error {
	_, _, e := unix.Syscall(unix.SYS_BIND, uintptr(fd), uintptr(r.Pointer()), uintptr(r.Len))
	if e != 0 {
		return e
	}
	return nil
}

// Connect connects fd to the encoded address.  EINPROGRESS is returned
// as an error for non-blocking descriptors.
func Connect(fd int, r *sockaddr.Raw) error {
	_, _, e := unix.Syscall(unix.SYS_CONNECT, uintptr(fd), uintptr(r.Pointer()), uintptr(r.Len))
	if e != 0 {
		return e
	}
	return nil
}

// Getsockname returns the raw local address of fd and its length.
func Getsockname(fd int) (*unix.RawSockaddrAny, uint32, error) {
	var rsa unix.RawSockaddrAny
	n := uint32(unix.SizeofSockaddrAny)
	_, _, e := unix.RawSyscall(unix.SYS_GETSOCKNAME, uintptr(fd), uintptr(unsafe.Pointer(&rsa)), uintptr(unsafe.Pointer(&n)))
	if e != 0 {
		return nil, 0, e
	}
	return &rsa, n, nil
}

// LocalAddr decodes the local address of fd.  ok is false for unbound
// descriptors and unsupported families.
func LocalAddr(fd int) (addr sockaddr.Addr, ok bool, err error) {
	rsa, n, err := Getsockname(fd)
	if err != nil {
		return nil, false, err
	}
	addr, ok = sockaddr.Decode(rsa, n)
	return addr, ok, nil
}
