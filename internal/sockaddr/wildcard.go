package sockaddr

import (
	"net/netip"
	"strings"

	"github.com/pkg/errors"

	sockerr "gosock/internal/errors"
)

// InterfaceAddr is one address assigned to a local interface.
type InterfaceAddr struct {
	Name string // interface (or label) name, for logging
	IP   netip.Addr
}

// InterfaceLister enumerates local interface addresses.
type InterfaceLister interface {
	InterfaceAddrs() ([]InterfaceAddr, error)
}

// InterfaceListerFunc adapts a function to InterfaceLister.
type InterfaceListerFunc func() ([]InterfaceAddr, error)

func (f InterfaceListerFunc) InterfaceAddrs() ([]InterfaceAddr, error) { return f() }

// ResolveWildcard replaces a "host*:port" spec with the first local IPv4
// address whose text starts with the part of host before '*'.  Specs
// without a wildcard are returned unchanged.  The returned spec is a new
// value named "<addr>:<port>"; s itself is not touched.
//
// Any failure here is fatal to listener setup: there is no degraded mode.
func ResolveWildcard(s Spec, lister InterfaceLister) (Spec, InterfaceAddr, error) {
	if !s.Wildcard {
		return s, InterfaceAddr{}, nil
	}
	if lister == nil {
		lister = SystemInterfaces()
	}

	host := s.Host()
	prefix := host[:strings.IndexByte(host, '*')]

	addrs, err := lister.InterfaceAddrs()
	if err != nil {
		return Spec{}, InterfaceAddr{}, errors.Wrapf(err, "enumerate interfaces for %s", s.Name)
	}
	for _, a := range addrs {
		if !a.IP.Is4() {
			continue
		}
		text := a.IP.String()
		if strings.HasPrefix(text, prefix) {
			resolved := s
			resolved.Name = text + ":" + s.PortText()
			resolved.Wildcard = false
			return resolved, a, nil
		}
	}
	return Spec{}, InterfaceAddr{}, errors.Wrapf(sockerr.ErrNoInterface, "%s", s.Name)
}
