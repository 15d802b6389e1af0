//go:build linux || freebsd

package transport

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sockerr "gosock/internal/errors"
	"gosock/internal/metrics"
)

func greeter(t *testing.T, network, addr string) net.Listener {
	t.Helper()
	ln, err := net.Listen(network, addr)
	require.NoError(t, err)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("hello from server\n")) //nolint:errcheck
	}()
	t.Cleanup(func() { ln.Close() })
	return ln
}

func TestSocketDialer_Connect(t *testing.T) {
	tcp := greeter(t, "tcp", "127.0.0.1:0")
	unixPath := filepath.Join(t.TempDir(), "dial.sock")
	greeter(t, "unix", unixPath)

	for _, addr := range []string{tcp.Addr().String(), unixPath} {
		t.Run(addr, func(t *testing.T) {
			m := metrics.New()
			d := &SocketDialer{Timeout: 2 * time.Second, Metrics: m}

			conn, err := d.Dial(context.Background(), addr)
			require.NoError(t, err)
			got, err := io.ReadAll(conn)
			require.NoError(t, err)
			assert.Equal(t, "hello from server\n", string(got))

			assert.EqualValues(t, 1, m.ActiveConnections())
			require.NoError(t, conn.Close())
			conn.Close() //nolint:errcheck
			assert.EqualValues(t, 0, m.ActiveConnections())
			assert.EqualValues(t, 1, m.ConnectAttempts())
		})
	}
}

func TestSocketDialer_Refused(t *testing.T) {
	m := metrics.New()
	d := &SocketDialer{Timeout: time.Second, Metrics: m}

	_, err := d.Dial(context.Background(), filepath.Join(t.TempDir(), "missing.sock"))
	require.Error(t, err)
	assert.False(t, sockerr.IsFatal(err))
	assert.EqualValues(t, 1, m.ConnectFailures())
}

func TestSocketDialer_Timeout(t *testing.T) {
	old := connectFn
	defer func() { connectFn = old }()
	var gotTimeout time.Duration
	connectFn = func(name string, timeout time.Duration, async bool) (int, error) {
		gotTimeout = timeout
		return -1, sockerr.Recoverable("poll", name, sockerr.ErrConnectTimeout)
	}

	m := metrics.New()
	d := &SocketDialer{Timeout: time.Minute, Metrics: m}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := d.Dial(ctx, "10.255.255.1:80")
	assert.ErrorIs(t, err, sockerr.ErrConnectTimeout)
	assert.LessOrEqual(t, gotTimeout, 500*time.Millisecond, "context deadline bounds the wait")
	assert.EqualValues(t, 1, m.ConnectTimeouts())
}

func TestSocketDialer_ContextDone(t *testing.T) {
	d := &SocketDialer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Dial(ctx, "127.0.0.1:1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSocketDialer_Close(t *testing.T) {
	var d Dialer = &SocketDialer{}
	assert.NoError(t, d.Close())
}
