//go:build linux || freebsd

package sockaddr

import (
	"fmt"
	"net/netip"
	"unsafe"

	"golang.org/x/sys/unix"

	sockerr "gosock/internal/errors"
)

// UnboundAddrLen is the getsockname length at or below which a descriptor
// is treated as not bound to anything.
const UnboundAddrLen = 2

// unixHeaderLen is offsetof(struct sockaddr_un, sun_path).
var unixHeaderLen = uint32(unsafe.Offsetof(unix.RawSockaddrUnix{}.Path))

// Raw is an encoded socket address together with the exact length to pass
// to bind(2) or connect(2).
type Raw struct {
	sa  unix.RawSockaddrAny
	Len uint32
}

// Pointer returns the address of the encoded sockaddr.
func (r *Raw) Pointer() unsafe.Pointer { return unsafe.Pointer(&r.sa) }

// Family returns the encoded address family.
func (r *Raw) Family() Family {
	if rawFamily(&r.sa) == unix.AF_UNIX {
		return FamilyUnix
	}
	return FamilyInet
}

// EncodeUnix encodes a Unix socket name.  A leading '@' or NUL, or the
// abstract flag, selects the abstract namespace: sun_path starts with NUL
// and the name (minus its marker, if any) follows.  The length is the
// sun_path offset plus len(name) plus one when abstract, never the size of
// the whole structure; both ends of a connection compute it the same way.
func EncodeUnix(name string, abstract bool) (*Raw, error) {
	if name == "" {
		return nil, sockerr.ErrEmptySpec
	}
	if len(name) > MaxUnixNameLen {
		return nil, fmt.Errorf("%s: %w", name, sockerr.ErrNameTooLong)
	}
	body := name
	if name[0] == '@' || name[0] == 0 {
		abstract = true
		body = name[1:]
	}

	r := &Raw{}
	sa := (*unix.RawSockaddrUnix)(unsafe.Pointer(&r.sa))
	off := 0
	if abstract {
		off = 1
	}
	for i := 0; i < len(body); i++ {
		sa.Path[off+i] = int8(body[i])
	}

	r.Len = unixHeaderLen + uint32(len(name))
	if abstract {
		r.Len++
	}
	setUnixHeader(sa, r.Len)
	return r, nil
}

// EncodeInet4 encodes an IPv4 address.  The empty host is INADDR_ANY.
// The length is always the full sockaddr_in size.
func EncodeInet4(host string, port uint16) (*Raw, error) {
	ip, err := parseIPv4(host)
	if err != nil {
		return nil, err
	}
	r := &Raw{}
	sa := (*unix.RawSockaddrInet4)(unsafe.Pointer(&r.sa))
	sa.Addr = ip.As4()
	p := (*[2]byte)(unsafe.Pointer(&sa.Port))
	p[0] = byte(port >> 8)
	p[1] = byte(port)
	r.Len = unix.SizeofSockaddrInet4
	setInet4Header(sa)
	return r, nil
}

// EncodeInetName encodes a "host:port" name.
func EncodeInetName(name string) (*Raw, error) {
	s := Spec{Name: name, Family: FamilyInet}
	port, err := s.Port()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	r, err := EncodeInet4(s.Host(), port)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return r, nil
}

// Encode encodes a resolved, non-SCTP spec.
func Encode(s Spec) (*Raw, error) {
	if s.Family == FamilyUnix {
		return EncodeUnix(s.Name, s.Abstract)
	}
	if s.Wildcard {
		return nil, fmt.Errorf("%s: wildcard not resolved: %w", s.Name, sockerr.ErrNoInterface)
	}
	return EncodeInetName(s.Name)
}

// Decode converts a getsockname result back into an Addr.  It reports
// false when n is at or below UnboundAddrLen or the family is neither
// AF_UNIX nor AF_INET.
func Decode(rsa *unix.RawSockaddrAny, n uint32) (Addr, bool) {
	if n <= UnboundAddrLen {
		return nil, false
	}
	switch rawFamily(rsa) {
	case unix.AF_UNIX:
		sa := (*unix.RawSockaddrUnix)(unsafe.Pointer(rsa))
		size := int(n) - int(unixHeaderLen)
		if size > len(sa.Path) {
			size = len(sa.Path)
		}
		b := make([]byte, size)
		for i := range b {
			b[i] = byte(sa.Path[i])
		}
		start := 0
		if size > 0 && b[0] == 0 {
			start = 1
		}
		end := start
		for end < len(b) && b[end] != 0 {
			end++
		}
		return UnixAddr{Path: string(b[start:end]), Abstract: start == 1}, true
	case unix.AF_INET:
		sa := (*unix.RawSockaddrInet4)(unsafe.Pointer(rsa))
		p := (*[2]byte)(unsafe.Pointer(&sa.Port))
		return InetAddr{
			IP:   netip.AddrFrom4(sa.Addr),
			Port: uint16(p[0])<<8 | uint16(p[1]),
		}, true
	}
	return nil, false
}
