package errors

import (
	"fmt"
	"io"
	"syscall"
	"testing"
)

func TestSocketError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  SocketError
		want string
	}{
		{
			name: "with name",
			err:  SocketError{Call: "bind", Name: "/tmp/app.sock", Err: syscall.EADDRINUSE, Fatal: true},
			want: "bind() /tmp/app.sock: address already in use",
		},
		{
			name: "without name",
			err:  SocketError{Call: "fcntl", Err: syscall.EBADF},
			want: "fcntl(): bad file descriptor",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNetworkError_Format(t *testing.T) {
	err := &NetworkError{Op: "dial", Addr: "127.0.0.1:9000", Err: io.EOF, Retryable: true}
	if got, want := err.Error(), "dial 127.0.0.1:9000: EOF (retryable)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "listen-backlog",
				Value:   -1,
				Message: "must be positive",
				Hint:    "the kernel caps it at net.core.somaxconn",
			},
			want: "config: --listen-backlog=-1: must be positive\n  hint: the kernel caps it at net.core.somaxconn",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "socket",
				Message: "required with -l",
			},
			want: "config: --socket: required with -l",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"fatal socket error", Fatal("listen", ":80", syscall.EACCES), true},
		{"recoverable socket error", Recoverable("bind", ":5353", syscall.EADDRINUSE), false},
		{"wrapped fatal", fmt.Errorf("startup: %w", Fatal("socket", "", syscall.EMFILE)), true},
		{"empty spec", ErrEmptySpec, true},
		{"wrapped wildcard miss", fmt.Errorf("10.*:80: %w", ErrNoInterface), true},
		{"timeout", ErrConnectTimeout, false},
		{"plain", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF, Retryable: true}, true},
		{"non-retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF, Retryable: false}, false},
		{"timeout", ErrConnectTimeout, true},
		{"interrupted", fmt.Errorf("wait: %w", ErrInterrupted), true},
		{"connect refused", Recoverable("connect", "127.0.0.1:1", syscall.ECONNREFUSED), true},
		{"fatal bind", Fatal("bind", ":80", syscall.EACCES), false},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	inner := Recoverable("connect", "/run/app.sock", syscall.ENOENT)
	err := Wrap("dial", "/run/app.sock", inner)

	if err.Op != "dial" || err.Addr != "/run/app.sock" {
		t.Errorf("wrong fields: Op=%q Addr=%q", err.Op, err.Addr)
	}
	if !Is(err, syscall.ENOENT) {
		t.Error("should unwrap to the errno")
	}
	if !err.Retryable {
		t.Error("connect failures are retryable")
	}
}

func TestSentinels(t *testing.T) {
	sentinels := []error{
		ErrEmptySpec, ErrNameTooLong, ErrNoInterface, ErrIfaddrsUnsupported,
		ErrMissingPort, ErrInvalidAddress, ErrInvalidPort, ErrInvalidMulticast,
		ErrTooManyAddrs, ErrConnectTimeout, ErrInterrupted, ErrUnsupported,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
