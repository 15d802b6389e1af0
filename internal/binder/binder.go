//go:build linux || freebsd

// Package binder creates listening sockets for each supported family.
//
// Every Bind* call creates a fresh descriptor, applies options, binds
// with the exact encoded address length and listens.  On failure the
// descriptor is closed and a *errors.SocketError is returned; the
// binder never terminates the process.  Unix, TCP and SCTP failures are
// fatal-tier, UDP failures are recoverable.
package binder

import (
	"errors"
	"net/netip"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"gosock/config"
	sockerr "gosock/internal/errors"
	"gosock/internal/metrics"
	"gosock/internal/rawsock"
	"gosock/internal/sockaddr"
	"gosock/util"
)

// Binder holds the process-wide options shared by every listener.
type Binder struct {
	Logger     *util.Logger
	Metrics    *metrics.Collector
	Interfaces sockaddr.InterfaceLister // wildcard resolution; nil → system interfaces

	AbstractSocket bool          // place plain Unix names in the abstract namespace
	DeferAccept    bool          // enable Accept on TCP listeners
	SocketTimeout  time.Duration // deferred-accept window
	Accept         AcceptOptimizer

	ChmodSocket bool
	ChmodMode   os.FileMode // 0 → 0666 with a notice

	abstractOnce sync.Once
}

// New builds a Binder from the configuration.
func New(cfg *config.Config, logger *util.Logger, m *metrics.Collector) *Binder {
	return &Binder{
		Logger:         logger,
		Metrics:        m,
		AbstractSocket: cfg.AbstractSocket,
		DeferAccept:    !cfg.NoDeferAccept,
		SocketTimeout:  cfg.SocketTimeout,
		Accept:         DefaultAcceptOptimizer(),
		ChmodSocket:    cfg.ChmodSocket,
		ChmodMode:      cfg.ChmodMode,
	}
}

// Bind dispatches on the spec's family and protocol and returns the
// listening (or, for UDP, bound) descriptor.
func (b *Binder) Bind(s sockaddr.Spec, backlog int) (int, error) {
	var (
		fd  int
		err error
	)
	switch {
	case s.Proto == sockaddr.ProtoUDP:
		fd, err = b.BindUDP(s.Name, s.Multicast, s.Broadcast)
	case s.Proto == sockaddr.ProtoSCTP:
		fd, err = b.BindSCTP(s.Name, backlog)
	case s.Family == sockaddr.FamilyUnix:
		fd, err = b.BindUnix(s.Name, backlog, b.AbstractSocket)
	default:
		fd, err = b.BindTCP(s, backlog)
	}
	if err != nil {
		b.Metrics.BindFailed(err.Error())
		return -1, err
	}
	b.Metrics.ListenerBound()
	return fd, nil
}

// ── Unix ─────────────────────────────────────────────────────────────

// BindUnix binds a Unix stream socket.  A leading '@' forces abstract
// mode whatever the flag says.  Filesystem paths are unlinked first and
// optionally chmod'ed after listen.
func (b *Binder) BindUnix(name string, backlog int, abstract bool) (int, error) {
	if name != "" && name[0] == '@' {
		abstract = true
	}
	raw, err := sockaddr.EncodeUnix(name, abstract)
	if err != nil {
		return -1, sockerr.Fatal("bind", name, err)
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, sockerr.Fatal("socket", name, err)
	}

	if abstract {
		b.abstractOnce.Do(func() {
			b.Logger.Warn("setting abstract socket mode (warning: only Linux supports this)")
		})
	} else if err := unix.Unlink(name); err != nil && !errors.Is(err, unix.ENOENT) {
		b.Logger.Error("unlink() %s: %v", name, err)
	}

	if err := rawsock.Bind(fd, raw); err != nil {
		unix.Close(fd)
		return -1, sockerr.Fatal("bind", name, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, sockerr.Fatal("listen", name, err)
	}

	if b.ChmodSocket && !abstract {
		b.chmod(name)
	}
	return fd, nil
}

func (b *Binder) chmod(path string) {
	mode := b.ChmodMode
	if mode == 0 {
		b.Logger.Info("chmod() socket to 666 for lazy and brave users")
		mode = config.DefaultChmodMode
	}
	if err := os.Chmod(path, mode); err != nil {
		b.Logger.Error("chmod() %s: %v", path, err)
	}
}

// ── TCP ──────────────────────────────────────────────────────────────

// BindTCP binds an IPv4 stream listener, resolving a "host*:port"
// wildcard against local interfaces first.
func (b *Binder) BindTCP(s sockaddr.Spec, backlog int) (int, error) {
	resolved, ifa, err := sockaddr.ResolveWildcard(s, b.Interfaces)
	if err != nil {
		return -1, sockerr.Fatal("getifaddrs", s.Name, err)
	}
	if s.Wildcard {
		b.Logger.Info("found %s for %s on interface %s", resolved.Name, s.Name, ifa.Name)
	}
	raw, err := sockaddr.Encode(resolved)
	if err != nil {
		return -1, sockerr.Fatal("bind", s.Name, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, sockerr.Fatal("socket", s.Name, err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, sockerr.Fatal("setsockopt", s.Name, err)
	}

	if b.DeferAccept {
		opt := b.Accept
		if opt == nil {
			opt = DefaultAcceptOptimizer()
		}
		if err := opt.Enable(fd, b.SocketTimeout); err != nil {
			b.Logger.Warn("setsockopt(%s) %s: %v", opt.Name(), s.Name, err)
		}
	}

	if err := rawsock.Bind(fd, raw); err != nil {
		if errors.Is(err, unix.EADDRINUSE) {
			b.Logger.Error("probably another instance of gosock is running on the same address (%s).", resolved.Name)
		}
		unix.Close(fd)
		return -1, sockerr.Fatal("bind", s.Name, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, sockerr.Fatal("listen", s.Name, err)
	}
	return fd, nil
}

// ── UDP ──────────────────────────────────────────────────────────────

// BindUDP binds a datagram socket.  Modes are exclusive: multicast binds
// ANY and joins the host as a group, broadcast binds ANY with
// SO_BROADCAST, otherwise the host (or ANY when empty) is bound.
// All failures are recoverable.
func (b *Binder) BindUDP(name string, multicast, broadcast bool) (int, error) {
	s := sockaddr.Spec{Name: name, Family: sockaddr.FamilyInet}
	if !s.HasPort() {
		return -1, sockerr.Recoverable("bind", name, sockerr.ErrMissingPort)
	}
	host := s.Host()
	port, err := s.Port()
	if err != nil {
		return -1, sockerr.Recoverable("bind", name, err)
	}

	var group [4]byte
	bindHost := host
	switch {
	case multicast:
		if host == "" {
			b.Logger.Error("invalid multicast address")
			return -1, sockerr.Recoverable("bind", name, sockerr.ErrInvalidMulticast)
		}
		ip, err := netip.ParseAddr(host)
		if err != nil || !ip.Is4() || !ip.IsMulticast() {
			b.Logger.Error("invalid multicast address %s", host)
			return -1, sockerr.Recoverable("bind", name, sockerr.ErrInvalidMulticast)
		}
		group = ip.As4()
		bindHost = ""
	case broadcast:
		bindHost = ""
	}

	raw, err := sockaddr.EncodeInet4(bindHost, port)
	if err != nil {
		return -1, sockerr.Recoverable("bind", name, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, sockerr.Recoverable("socket", name, err)
	}
	if broadcast {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, 1); err != nil {
			unix.Close(fd)
			return -1, sockerr.Recoverable("setsockopt", name, err)
		}
	}
	if err := rawsock.Bind(fd, raw); err != nil {
		unix.Close(fd)
		return -1, sockerr.Recoverable("bind", name, err)
	}

	if multicast {
		b.Logger.Info("joining multicast group: %s:%d", host, port)
		if err := unix.SetsockoptByte(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_LOOP, 1); err != nil {
			b.Logger.Error("setsockopt(IP_MULTICAST_LOOP) %s: %v", name, err)
		}
		mreq := &unix.IPMreq{Multiaddr: group}
		if err := unix.SetsockoptIPMreq(fd, unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq); err != nil {
			b.Logger.Error("setsockopt(IP_ADD_MEMBERSHIP) %s: %v", name, err)
		}
	}
	return fd, nil
}
