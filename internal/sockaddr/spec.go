// Package sockaddr parses socket specification text and converts it to and
// from the kernel's binary socket address formats.
//
// Grammar:
//
//	path                   Unix socket at a filesystem path
//	@name                  abstract Unix socket (Linux)
//	:port                  all IPv4 interfaces
//	host:port              one IPv4 address
//	host*:port             first local interface whose address starts with host
//	addr1,addr2,...:port   SCTP multi-homed (at most MaxSCTPAddrs addresses)
package sockaddr

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"unicode"

	sockerr "gosock/internal/errors"
)

// Family is the address family of a socket specification.
type Family uint8

const (
	FamilyUnix Family = iota
	FamilyInet
)

func (f Family) String() string {
	switch f {
	case FamilyUnix:
		return "UNIX"
	case FamilyInet:
		return "INET"
	default:
		return fmt.Sprintf("family(%d)", uint8(f))
	}
}

// Proto selects the transport used for an Inet specification.
type Proto uint8

const (
	ProtoStream Proto = iota // TCP, or SOCK_STREAM for Unix specs
	ProtoUDP
	ProtoSCTP
)

func (p Proto) String() string {
	switch p {
	case ProtoStream:
		return "stream"
	case ProtoUDP:
		return "udp"
	case ProtoSCTP:
		return "sctp"
	default:
		return fmt.Sprintf("proto(%d)", uint8(p))
	}
}

// ParseProto maps the config-file spelling of a protocol to a Proto.
// The empty string and "tcp" both mean ProtoStream.
func ParseProto(s string) (Proto, error) {
	switch strings.ToLower(s) {
	case "", "tcp", "stream", "unix":
		return ProtoStream, nil
	case "udp":
		return ProtoUDP, nil
	case "sctp":
		return ProtoSCTP, nil
	default:
		return 0, fmt.Errorf("unknown protocol %q", s)
	}
}

const (
	// MaxUnixNameLen is the longest accepted Unix socket name.  It leaves
	// room for the abstract-namespace NUL within the smaller BSD sun_path.
	MaxUnixNameLen = 102

	// MaxSCTPAddrs is the number of addresses one SCTP spec may bind.
	MaxSCTPAddrs = 4
)

// Spec is a parsed socket specification.  Name is the configured text
// and remains the listener's identity for its whole life; a Spec is never
// modified after creation, derived specs are returned as new values.
type Spec struct {
	Name      string
	Family    Family
	Proto     Proto
	Abstract  bool // Unix name starts with '@'
	Wildcard  bool // Inet host contains '*'
	Multicast bool // UDP only: join the host as a multicast group
	Broadcast bool // UDP only: bind ANY with SO_BROADCAST
}

// Parse parses socket specification text.  Leading whitespace is
// dropped; an empty remainder is ErrEmptySpec.
func Parse(text string) (Spec, error) {
	name := strings.TrimLeftFunc(text, unicode.IsSpace)
	if name == "" {
		return Spec{}, sockerr.ErrEmptySpec
	}

	s := Spec{Name: name}
	colon := strings.IndexByte(name, ':')
	if colon < 0 {
		s.Family = FamilyUnix
		s.Abstract = name[0] == '@'
		return s, nil
	}
	s.Family = FamilyInet
	s.Wildcard = strings.IndexByte(name[:colon], '*') >= 0
	return s, nil
}

// MustParse is like Parse but panics on error.  Intended for tests and
// constant specs.
func MustParse(text string) Spec {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// WithProto returns a copy of s using transport p.
func (s Spec) WithProto(p Proto) Spec {
	s.Proto = p
	return s
}

// WithUDPMode returns a copy of s configured as a UDP listener with the
// given addressing flags.
func (s Spec) WithUDPMode(multicast, broadcast bool) Spec {
	s.Proto = ProtoUDP
	s.Multicast = multicast
	s.Broadcast = broadcast
	return s
}

// String returns the configured name.
func (s Spec) String() string { return s.Name }

// HasPort reports whether the name carries a ':' separator.
func (s Spec) HasPort() bool { return strings.IndexByte(s.Name, ':') >= 0 }

// Host returns the text before the first ':', or the whole name for
// Unix specs.
func (s Spec) Host() string {
	host, _, _ := strings.Cut(s.Name, ":")
	return host
}

// PortText returns the text after the first ':' (empty for Unix specs).
func (s Spec) PortText() string {
	_, port, _ := strings.Cut(s.Name, ":")
	return port
}

// Port parses the numeric port.
func (s Spec) Port() (uint16, error) {
	if !s.HasPort() {
		return 0, sockerr.ErrMissingPort
	}
	return parsePort(s.PortText())
}

// Addr returns the tagged address variant of the spec.  Wildcard specs
// must be resolved first; SCTP lists are handled by ParseSCTP.
func (s Spec) Addr() (Addr, error) {
	if s.Family == FamilyUnix {
		if s.Abstract {
			return UnixAddr{Path: s.Name[1:], Abstract: true}, nil
		}
		return UnixAddr{Path: s.Name}, nil
	}
	if s.Wildcard {
		return nil, fmt.Errorf("%s: wildcard not resolved: %w", s.Name, sockerr.ErrNoInterface)
	}
	port, err := s.Port()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	ip, err := parseIPv4(s.Host())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	return InetAddr{IP: ip, Port: port}, nil
}

// ── Helpers ──────────────────────────────────────────────────────────

func parsePort(text string) (uint16, error) {
	n, err := strconv.ParseUint(text, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", text, sockerr.ErrInvalidPort)
	}
	return uint16(n), nil
}

// parseIPv4 parses a dotted IPv4 literal.  The empty host is ANY.
func parseIPv4(host string) (netip.Addr, error) {
	if host == "" {
		return netip.IPv4Unspecified(), nil
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || !ip.Is4() {
		return netip.Addr{}, fmt.Errorf("%q: %w", host, sockerr.ErrInvalidAddress)
	}
	return ip, nil
}
