package capability

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"gosock/internal/session"
)

// fileConn is implemented by *net.TCPConn and *net.UnixConn.
type fileConn interface {
	File() (*os.File, error)
}

// Exec runs Command through /bin/sh for every connection, inetd style:
// the connection is the child's stdin, stdout and stderr.  The child sees
// GOSOCK_SOCKET, GOSOCK_SOCKET_NUM and GOSOCK_REMOTE_ADDR.
type Exec struct {
	Command string
	Shell   string // default /bin/sh
}

// Handle starts the child and waits for it.
func (e *Exec) Handle(ctx context.Context, sess *session.Session) error {
	if e.Command == "" {
		return fmt.Errorf("no command specified for exec mode")
	}
	shell := e.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", e.Command)
	if fc, ok := sess.Conn.(fileConn); ok {
		// Hand the socket itself to the child.
		f, err := fc.File()
		if err != nil {
			return fmt.Errorf("exec: dup connection: %w", err)
		}
		defer f.Close()
		cmd.Stdin, cmd.Stdout, cmd.Stderr = f, f, f
	} else {
		cmd.Stdin, cmd.Stdout, cmd.Stderr = sess.Conn, sess.Conn, sess.Conn
		cmd.WaitDelay = time.Second
	}
	cmd.Env = append(os.Environ(),
		"GOSOCK_SOCKET="+sess.Socket,
		"GOSOCK_SOCKET_NUM="+strconv.Itoa(sess.Index),
		"GOSOCK_REMOTE_ADDR="+sess.RemoteAddr(),
	)

	if sess.Logger != nil {
		sess.Logger.Debug("exec: %s", cmd.String())
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("exec %q: %w", e.Command, err)
	}
	return nil
}
