// Package transport turns socket specs into net.Conn values.  The socket
// work itself happens in the connector; this layer adapts its raw
// descriptors to the net package and records outcomes.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound stream connections to socket specs such as
// "/run/app.sock", "@name" or "host:port".
type Dialer interface {
	// Dial establishes a connection to address.
	Dial(ctx context.Context, address string) (net.Conn, error)

	// Close releases long-lived resources.  Stateless dialers return nil.
	Close() error
}
