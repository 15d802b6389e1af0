package capability

import (
	"context"
	"io"

	"gosock/internal/session"
	"gosock/util"
)

// Relay copies data bidirectionally between the connection and the
// session's stdin/stdout.
type Relay struct{}

// Handle shuttles bytes until one side closes or ctx is cancelled.
func (r *Relay) Handle(ctx context.Context, sess *session.Session) error {
	return util.BidirectionalCopy(ctx, sess.Conn, sess.Stdin, sess.Stdout)
}

// Echo writes everything the peer sends straight back to it.
type Echo struct{}

// Handle echoes until the peer half-closes or ctx is cancelled.
func (Echo) Handle(ctx context.Context, sess *session.Session) error {
	stop := context.AfterFunc(ctx, func() { sess.Conn.Close() })
	defer stop()

	_, err := io.Copy(sess.Conn, sess.Conn)
	if hc, ok := sess.Conn.(interface{ CloseWrite() error }); ok {
		hc.CloseWrite() //nolint:errcheck
	}
	if ctx.Err() != nil {
		return nil
	}
	return err
}
