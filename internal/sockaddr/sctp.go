package sockaddr

import (
	"fmt"
	"net/netip"
	"strings"

	sockerr "gosock/internal/errors"
)

// ParseSCTP splits an "addr1,addr2,...:port" spec into its addresses and
// the shared port.  Empty list items are skipped.  An empty list binds
// INADDR_ANY.
func ParseSCTP(name string) ([]netip.Addr, uint16, error) {
	colon := strings.LastIndexByte(name, ':')
	if colon < 0 {
		return nil, 0, fmt.Errorf("%s: %w", name, sockerr.ErrMissingPort)
	}
	port, err := parsePort(name[colon+1:])
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", name, err)
	}

	var addrs []netip.Addr
	for _, item := range strings.Split(name[:colon], ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if len(addrs) == MaxSCTPAddrs {
			return nil, 0, fmt.Errorf("%s: more than %d addresses: %w", name, MaxSCTPAddrs, sockerr.ErrTooManyAddrs)
		}
		ip, err := parseIPv4(item)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", name, err)
		}
		addrs = append(addrs, ip)
	}
	if len(addrs) == 0 {
		addrs = append(addrs, netip.IPv4Unspecified())
	}
	return addrs, port, nil
}
