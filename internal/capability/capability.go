// Package capability defines what happens over an established
// connection.  Each Capability encapsulates a single behaviour and
// operates on a Session rather than a raw net.Conn.
package capability

import (
	"context"

	"gosock/internal/session"
)

// Capability handles a single connection.  Implementations relay local
// stdio (Relay), echo the peer (Echo), or hand the connection to a child
// process (Exec).
type Capability interface {
	// Handle blocks until the connection is done or ctx is cancelled.
	Handle(ctx context.Context, sess *session.Session) error
}
