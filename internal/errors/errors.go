// Package errors provides domain-specific error types for gosock.
//
// Socket failures come in two tiers.  Fatal errors mean a configured
// listener could not be set up; only the top-level startup routine may
// turn them into a process exit.  Everything else (connects, optional
// UDP/SCTP listeners, best-effort socket options) is recoverable and is
// handed back to the caller to retry, log, or abandon.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrEmptySpec          = errors.New("invalid/empty socket name")
	ErrNameTooLong        = errors.New("invalid UNIX socket name: longer than 102 bytes")
	ErrNoInterface        = errors.New("unable to find a valid socket address")
	ErrIfaddrsUnsupported = errors.New("interface address enumeration is not supported on this system")
	ErrMissingPort        = errors.New("missing ':port' separator")
	ErrInvalidAddress     = errors.New("invalid IPv4 address")
	ErrInvalidPort        = errors.New("invalid port")
	ErrInvalidMulticast   = errors.New("invalid multicast address")
	ErrTooManyAddrs       = errors.New("too many SCTP addresses")
	ErrConnectTimeout     = errors.New("connect timed out")
	ErrInterrupted        = errors.New("connect wait interrupted")
	ErrUnsupported        = errors.New("not supported on this platform")
)

// ── Structured error types ───────────────────────────────────────────

// SocketError reports a failed socket system call together with the
// socket specification it was operating on.
type SocketError struct {
	Call  string // failing call: "socket", "bind", "listen", "connect", "poll", ...
	Name  string // socket specification text
	Err   error  // underlying error (usually a unix.Errno)
	Fatal bool   // true when listener setup cannot continue
}

func (e *SocketError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s(): %v", e.Call, e.Err)
	}
	return fmt.Sprintf("%s() %s: %v", e.Call, e.Name, e.Err)
}

func (e *SocketError) Unwrap() error { return e.Err }

// NetworkError represents a failure in a higher-level network operation.
type NetworkError struct {
	Op        string // operation: "dial", "accept", "probe"
	Addr      string // socket specification involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Fatal creates a fatal-tier SocketError.
func Fatal(call, name string, err error) *SocketError {
	return &SocketError{Call: call, Name: name, Err: err, Fatal: true}
}

// Recoverable creates a recoverable-tier SocketError.
func Recoverable(call, name string, err error) *SocketError {
	return &SocketError{Call: call, Name: name, Err: err}
}

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// ── Classification helpers ───────────────────────────────────────────

// IsFatal reports whether err belongs to the fatal tier.  Spec parsing
// failures count as fatal: a listener that cannot even be named is a
// configuration error.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var se *SocketError
	if errors.As(err, &se) {
		return se.Fatal
	}
	return errors.Is(err, ErrEmptySpec) ||
		errors.Is(err, ErrNameTooLong) ||
		errors.Is(err, ErrNoInterface) ||
		errors.Is(err, ErrIfaddrsUnsupported)
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects connector and standard library errors.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectTimeout) || errors.Is(err, ErrInterrupted) {
		return true
	}
	var se *SocketError
	if errors.As(err, &se) && !se.Fatal {
		switch se.Call {
		case "connect", "poll", "getsockopt":
			return true
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
