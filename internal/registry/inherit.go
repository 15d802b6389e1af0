//go:build linux || freebsd

package registry

import (
	"strings"

	"golang.org/x/sys/unix"

	"gosock/internal/rawsock"
	"gosock/internal/sockaddr"
)

// Inherit offers an inherited descriptor to e.  If fd's local address
// matches e's name the entry takes ownership of fd and Inherit returns
// true.  Descriptors that are unbound, of another family, or that fail
// getsockname are left alone.
func (r *Registry) Inherit(e *Entry, fd int) bool {
	addr, ok, err := rawsock.LocalAddr(fd)
	if err != nil || !ok {
		return false
	}
	if !matchAddr(e.spec.Name, addr) {
		return false
	}
	e.fd = fd
	e.bound = true
	e.family = addr.Family()
	if r.logger != nil {
		r.logger.Info("socket %d inherited %s address %s fd %d", r.Index(e), addr.Family(), e.spec.Name, fd)
	}
	return true
}

// Reconcile offers each descriptor to every unbound entry in order and
// returns the descriptors nobody claimed.  The caller decides whether to
// close them.
func (r *Registry) Reconcile(fds []int) []int {
	var unmatched []int
	for _, fd := range fds {
		claimed := false
		for _, e := range r.entries {
			if !e.bound && r.Inherit(e, fd) {
				claimed = true
				break
			}
		}
		if !claimed {
			unmatched = append(unmatched, fd)
		}
	}
	return unmatched
}

// CloseAll closes every bound descriptor and marks the entries unbound.
// Close errors are ignored.
func (r *Registry) CloseAll() {
	for _, e := range r.entries {
		if e.fd >= 0 {
			unix.Close(e.fd)
		}
		e.fd = -1
		e.bound = false
	}
}

// matchAddr reports whether a decoded local address satisfies the
// configured name.
//
// Unix addresses compare the path against the name, skipping the first
// byte of the name when the address is abstract.  IPv4 addresses render
// as "ip:port" (":port" for INADDR_ANY); a name containing '*' compares
// only the text before the '*', so "192.168.*:9000" accepts any address
// starting with "192.168.", whatever its port.
func matchAddr(name string, addr sockaddr.Addr) bool {
	switch a := addr.(type) {
	case sockaddr.UnixAddr:
		if a.Abstract {
			return len(name) > 0 && name[1:] == a.Path
		}
		return name == a.Path
	case sockaddr.InetAddr:
		text := a.String()
		if i := strings.IndexByte(name, '*'); i >= 0 {
			return strings.HasPrefix(text, name[:i])
		}
		return text == name
	}
	return false
}
