//go:build linux || freebsd

package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sys/unix"

	"gosock/config"
	"gosock/internal/capability"
	sockerr "gosock/internal/errors"
	"gosock/internal/metrics"
	"gosock/internal/registry"
	"gosock/internal/session"
	"gosock/internal/sockaddr"
	"gosock/util"
)

// SocketBinder creates a listening descriptor for a spec.
type SocketBinder interface {
	Bind(s sockaddr.Spec, backlog int) (int, error)
}

// ServeMode brings up every configured listener and serves connections
// on them until the context is done.
//
// Startup order: descriptors inherited from a previous image are matched
// against the registry (unclaimed ones are closed), then every entry that
// is still unbound is bound.  A fatal error from the binder goes to Abort;
// a recoverable one drops the entry and startup continues.
type ServeMode struct {
	Registry   *registry.Registry
	Binder     SocketBinder
	Backlog    int
	Capability capability.Capability
	Logger     *util.Logger
	Metrics    *metrics.Collector

	// Inherited returns descriptors passed by the previous image.
	Inherited func() ([]int, error)
	// Reload triggers Exec; nil disables reloading.
	Reload <-chan os.Signal
	// Exec replaces the process keeping the registry's descriptors.
	Exec func(reg *registry.Registry, logger *util.Logger) error
	// Abort receives fatal setup errors; nil logs and exits with status 1.
	Abort func(err error)

	MetricsAddr string
	GracePeriod time.Duration

	// Ready, when set, is closed once every listener is serving.
	Ready chan struct{}
}

// Run sets up the listeners and serves until ctx is done.
func (m *ServeMode) Run(ctx context.Context) error {
	if err := m.Setup(); err != nil {
		if sockerr.IsFatal(err) {
			m.abort(err)
		}
		return err
	}
	defer m.Registry.CloseAll()

	if m.MetricsAddr != "" {
		stop, err := m.serveMetrics()
		if err != nil {
			return err
		}
		defer stop()
	}

	connCtx, cancelConns := context.WithCancel(ctx)
	defer cancelConns()

	var loops, conns sync.WaitGroup
	var closers []func()
	for i, e := range m.Registry.Entries() {
		closer, err := m.serve(connCtx, i, e, &loops, &conns)
		if err != nil {
			for _, c := range closers {
				c()
			}
			loops.Wait()
			return err
		}
		closers = append(closers, closer)
	}
	if m.Ready != nil {
		close(m.Ready)
	}

	m.wait(ctx)

	for _, c := range closers {
		c()
	}
	loops.Wait()
	m.drain(&conns, cancelConns)
	m.Logger.Verbose("closing %d sockets", m.Registry.Len())
	return nil
}

// Setup reconciles inherited descriptors and binds the rest.
func (m *ServeMode) Setup() error {
	if m.Inherited != nil {
		fds, err := m.Inherited()
		if err != nil {
			m.Logger.Warn("inherited sockets: %v", err)
		}
		for _, fd := range m.Registry.Reconcile(fds) {
			m.Logger.Verbose("closing unclaimed inherited fd %d", fd)
			unix.Close(fd)
			m.Metrics.InheritedClosed()
		}
		for _, e := range m.Registry.Entries() {
			if e.Bound() {
				m.Metrics.ListenerInherited()
			}
		}
	}

	e := m.Registry.At(0)
	for e != nil {
		if e.Bound() {
			e = m.Registry.At(m.Registry.Index(e) + 1)
			continue
		}
		fd, err := m.Binder.Bind(e.Spec(), m.Backlog)
		if err != nil {
			if sockerr.IsFatal(err) {
				return err
			}
			m.Logger.Error("socket %d (%s) disabled: %v", m.Registry.Index(e), e.Name(), err)
			e = m.Registry.Delete(e)
			continue
		}
		e.SetBound(fd)
		m.Logger.Info("socket %d bound to %s %s fd %d", m.Registry.Index(e), e.Family(), e.Name(), fd)
		e = m.Registry.At(m.Registry.Index(e) + 1)
	}

	if m.Registry.Len() == 0 {
		return fmt.Errorf("no usable sockets")
	}
	return nil
}

func (m *ServeMode) abort(err error) {
	if m.Abort != nil {
		m.Abort(err)
		return
	}
	m.Logger.Error("%v", err)
	os.Exit(1)
}

// wait blocks until ctx is done, running Exec on each reload request.
func (m *ServeMode) wait(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-m.Reload:
			m.Logger.Info("%v received, reloading", sig)
			if m.Exec == nil {
				continue
			}
			if err := m.Exec(m.Registry, m.Logger); err != nil {
				m.Logger.Error("reload failed: %v", err)
			}
		}
	}
}

// drain waits for in-flight connections, cancelling them after the grace
// period.
func (m *ServeMode) drain(conns *sync.WaitGroup, cancel context.CancelFunc) {
	grace := m.GracePeriod
	if grace <= 0 {
		grace = config.DefaultGracePeriod
	}
	done := make(chan struct{})
	go func() {
		conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		m.Logger.Warn("grace period expired, closing active connections")
		cancel()
		<-done
	}
}

// ── Listeners ────────────────────────────────────────────────────────

// dupFile wraps a duplicate of fd so the registry keeps its own copy.
func dupFile(fd int, name string) (*os.File, error) {
	nfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, sockerr.Recoverable("fcntl", name, err)
	}
	return os.NewFile(uintptr(nfd), name), nil
}

// serve starts the loop for one entry and returns its closer.
func (m *ServeMode) serve(ctx context.Context, idx int, e *registry.Entry, loops, conns *sync.WaitGroup) (func(), error) {
	f, err := dupFile(e.FD(), e.Name())
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if e.Spec().Proto == sockaddr.ProtoUDP {
		pc, err := net.FilePacketConn(f)
		if err != nil {
			return nil, fmt.Errorf("socket %d (%s): %w", idx, e.Name(), err)
		}
		loops.Add(1)
		go func() {
			defer loops.Done()
			m.echoPackets(idx, e.Name(), pc)
		}()
		return func() { pc.Close() }, nil
	}

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("socket %d (%s): %w", idx, e.Name(), err)
	}
	loops.Add(1)
	go func() {
		defer loops.Done()
		m.acceptLoop(ctx, idx, e.Name(), ln, conns)
	}()
	return func() { ln.Close() }, nil
}

func (m *ServeMode) acceptLoop(ctx context.Context, idx int, name string, ln net.Listener, conns *sync.WaitGroup) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			err = sockerr.Wrap("accept", name, err)
			m.Metrics.RecordError(err.Error())
			m.Logger.Warn("socket %d: %v", idx, err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		m.Metrics.ConnectionOpened()
		conns.Add(1)
		go func() {
			defer conns.Done()
			defer m.Metrics.ConnectionClosed()
			defer conn.Close()

			sess := session.Accepted(conn, name, idx, m.Logger)
			sess.Logger.Verbose("connection from %s", sess.RemoteAddr())
			if err := m.Capability.Handle(ctx, sess); err != nil {
				m.Metrics.RecordError(err.Error())
				sess.Logger.Warn("%v", err)
			}
		}()
	}
}

// echoPackets returns every datagram to its sender.
func (m *ServeMode) echoPackets(idx int, name string, pc net.PacketConn) {
	buf := util.GetDatagramBuf()
	defer util.PutDatagramBuf(buf)
	for {
		n, from, err := pc.ReadFrom(*buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			m.Logger.Warn("socket %d: recvfrom(): %v", idx, err)
			continue
		}
		m.Logger.Debug("socket %d (%s): %d bytes from %s", idx, name, n, from)
		if _, err := pc.WriteTo((*buf)[:n], from); err != nil {
			m.Logger.Warn("socket %d: sendto(): %v", idx, err)
		}
	}
}

// ── Metrics endpoint ─────────────────────────────────────────────────

func (m *ServeMode) serveMetrics() (func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if m.Metrics != nil {
		reg.MustRegister(m.Metrics)
	}

	ln, err := net.Listen("tcp", m.MetricsAddr)
	if err != nil {
		return nil, fmt.Errorf("metrics endpoint %s: %w", m.MetricsAddr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go srv.Serve(ln) //nolint:errcheck
	m.Logger.Info("metrics on http://%s/metrics", ln.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx) //nolint:errcheck
	}, nil
}
