package sockaddr

import (
	"net/netip"
	"strconv"
)

// Addr is a decoded local socket address: either UnixAddr or InetAddr.
type Addr interface {
	Family() Family
	String() string
	isAddr()
}

// UnixAddr is a Unix-domain address.  For abstract addresses Path holds
// the name without the leading NUL.
type UnixAddr struct {
	Path     string
	Abstract bool
}

func (UnixAddr) Family() Family { return FamilyUnix }
func (UnixAddr) isAddr()        {}

// String renders abstract addresses with the '@' marker used in specs.
func (a UnixAddr) String() string {
	if a.Abstract {
		return "@" + a.Path
	}
	return a.Path
}

// InetAddr is an IPv4 address and port.
type InetAddr struct {
	IP   netip.Addr
	Port uint16
}

func (InetAddr) Family() Family { return FamilyInet }
func (InetAddr) isAddr()        {}

// String renders "ip:port"; the unspecified address becomes ":port" so
// that it compares equal to an all-interfaces spec.
func (a InetAddr) String() string {
	port := strconv.Itoa(int(a.Port))
	if !a.IP.IsValid() || a.IP.IsUnspecified() {
		return ":" + port
	}
	return a.IP.String() + ":" + port
}
