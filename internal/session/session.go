// Package session binds one established connection to the endpoints a
// capability works against: local stdio for outbound connections, or the
// listener it arrived on for served ones.
package session

import (
	"io"
	"net"

	"gosock/util"
)

// Session is the runtime context for a single connection.
type Session struct {
	Conn   net.Conn
	Stdin  io.Reader
	Stdout io.Writer
	Logger *util.Logger

	// Socket and Index identify the listener a served connection was
	// accepted on.  Index is -1 for outbound connections.
	Socket string
	Index  int
}

// New creates an outbound Session bound to the given I/O pair.
func New(conn net.Conn, stdin io.Reader, stdout io.Writer, logger *util.Logger) *Session {
	return &Session{
		Conn:   conn,
		Stdin:  stdin,
		Stdout: stdout,
		Logger: logger,
		Index:  -1,
	}
}

// Accepted creates a Session for a connection accepted on listener number
// index.  Its logger carries the socket number.
func Accepted(conn net.Conn, socket string, index int, logger *util.Logger) *Session {
	if logger != nil {
		logger = logger.WithField("socket", index)
	}
	return &Session{
		Conn:   conn,
		Logger: logger,
		Socket: socket,
		Index:  index,
	}
}

// RemoteAddr returns the peer address text, or "" for unnamed Unix peers.
func (s *Session) RemoteAddr() string {
	if a := s.Conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
