//go:build !linux

package sockaddr

import (
	"net"
	"net/netip"

	"github.com/pkg/errors"

	sockerr "gosock/internal/errors"
)

// SystemInterfaces returns the lister backed by the net package.
func SystemInterfaces() InterfaceLister {
	return InterfaceListerFunc(netAddrs)
}

func netAddrs() ([]InterfaceAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, errors.Wrapf(sockerr.ErrIfaddrsUnsupported, "%v", err)
	}
	var out []InterfaceAddr
	for _, ifi := range ifaces {
		addrs, err := ifi.Addrs()
		if err != nil {
			return nil, errors.Wrapf(err, "addresses of %s", ifi.Name)
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip, ok := netip.AddrFromSlice(ipnet.IP)
			if !ok {
				continue
			}
			out = append(out, InterfaceAddr{Name: ifi.Name, IP: ip.Unmap()})
		}
	}
	return out, nil
}
