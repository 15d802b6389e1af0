package core

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"gosock/internal/capability"
	sockerr "gosock/internal/errors"
	"gosock/internal/retry"
	"gosock/internal/session"
	"gosock/internal/transport"
	"gosock/util"
)

// ConnectMode connects to one socket spec and runs a capability on the
// connection, the default client mode.
type ConnectMode struct {
	Dialer     transport.Dialer
	Capability capability.Capability
	Address    string
	Logger     *util.Logger

	// Backoff retries recoverable connect failures; nil tries once.
	Backoff *retry.Backoff

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run dials the address, creates a session, and hands it to the
// capability.  The dialer is closed when Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	m.Logger.Verbose("connecting to %s", m.Address)

	var conn net.Conn
	dial := func(attempt int) error {
		c, err := m.Dialer.Dial(ctx, m.Address)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	var err error
	if m.Backoff != nil {
		b := *m.Backoff
		b.OnRetry = func(attempt int, wait time.Duration, err error) {
			m.Logger.Warn("connect attempt %d to %s failed: %v (retrying in %s)",
				attempt, m.Address, err, wait.Round(time.Millisecond))
		}
		err = b.Do(ctx, dial)
	} else {
		err = dial(1)
	}
	if err != nil {
		return sockerr.Wrap("connect", m.Address, err)
	}
	defer conn.Close()

	m.Logger.Verbose("connected to %s", m.Address)

	sess := session.New(conn, m.stdin(), m.stdout(), m.Logger)
	return m.Capability.Handle(ctx, sess)
}
