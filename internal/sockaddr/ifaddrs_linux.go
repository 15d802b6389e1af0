//go:build linux

package sockaddr

import (
	"net/netip"

	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

// SystemInterfaces returns the lister backed by netlink RTM_GETADDR.
func SystemInterfaces() InterfaceLister {
	return InterfaceListerFunc(netlinkAddrs)
}

func netlinkAddrs() ([]InterfaceAddr, error) {
	list, err := netlink.AddrList(nil, netlink.FAMILY_V4)
	if err != nil {
		return nil, errors.Wrap(err, "getifaddrs()")
	}
	out := make([]InterfaceAddr, 0, len(list))
	for _, a := range list {
		if a.IPNet == nil {
			continue
		}
		ip, ok := netip.AddrFromSlice(a.IP)
		if !ok {
			continue
		}
		out = append(out, InterfaceAddr{Name: a.Label, IP: ip.Unmap()})
	}
	return out, nil
}
