//go:build linux || freebsd

package transport

import (
	"context"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"gosock/internal/connector"
	sockerr "gosock/internal/errors"
	"gosock/internal/metrics"
)

// connectFn is replaced in tests.
var connectFn = connector.Connect

// SocketDialer dials through the connector's timed connect.
type SocketDialer struct {
	Timeout time.Duration // 0 → connector.DefaultTimeout
	Async   bool          // return before the handshake completes
	Metrics *metrics.Collector
}

// Dial connects to address.  A context deadline shorter than Timeout
// shortens the writability wait.
func (d *SocketDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = connector.DefaultTimeout
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			if left <= 0 {
				return nil, context.DeadlineExceeded
			}
			timeout = left
		}
	}

	d.Metrics.ConnectAttempt()
	fd, err := connectFn(address, timeout, d.Async)
	if err != nil {
		d.Metrics.ConnectFailed(sockerr.Is(err, sockerr.ErrConnectTimeout))
		d.Metrics.RecordError(err.Error())
		return nil, err
	}

	conn, err := fdConn(fd, address)
	if err != nil {
		d.Metrics.ConnectFailed(false)
		return nil, err
	}
	d.Metrics.ConnectionOpened()
	return &countedConn{Conn: conn, m: d.Metrics}, nil
}

// Close is a no-op.
func (d *SocketDialer) Close() error { return nil }

// fdConn wraps a connected descriptor in a net.Conn and releases fd.
func fdConn(fd int, address string) (net.Conn, error) {
	f := os.NewFile(uintptr(fd), "sock:"+strconv.Itoa(fd)+":"+address)
	defer f.Close()
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, sockerr.Recoverable("fcntl", address, err)
	}
	conn, err := net.FileConn(f)
	if err != nil {
		return nil, sockerr.Recoverable("connect", address, err)
	}
	return conn, nil
}

// countedConn reports its close to the metrics collector once.
type countedConn struct {
	net.Conn
	m    *metrics.Collector
	once sync.Once
}

func (c *countedConn) Close() error {
	c.once.Do(c.m.ConnectionClosed)
	return c.Conn.Close()
}

// CloseWrite half-closes the underlying stream when it supports it.
func (c *countedConn) CloseWrite() error {
	if hc, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return hc.CloseWrite()
	}
	return nil
}
