// Package config defines the runtime configuration for gosock: the
// listener list, bind options, and outbound connect options.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sockerr "gosock/internal/errors"
	"gosock/internal/sockaddr"
)

// SocketConfig is one configured listener before parsing.
type SocketConfig struct {
	Name      string
	Proto     sockaddr.Proto
	Multicast bool
	Broadcast bool
}

// Config holds every tuneable for a gosock process.
type Config struct {
	// ── Mode ─────────────────────────────────────────────────────────
	Listen bool // serve the configured sockets
	Probe  bool // -z: report reachability of targets
	DryRun bool // print the resolved configuration and exit

	// ── Listeners ────────────────────────────────────────────────────
	Sockets        []SocketConfig
	Backlog        int
	AbstractSocket bool
	ChmodSocket    bool
	ChmodMode      os.FileMode // 0 → DefaultChmodMode with a notice
	NoDeferAccept  bool
	SocketTimeout  time.Duration
	Exec           string // shell command run per accepted connection; empty echoes

	// ── Outbound ─────────────────────────────────────────────────────
	Targets []string
	Timeout time.Duration
	Async   bool
	Retries int

	// ── Ambient ──────────────────────────────────────────────────────
	ConfigPath  string
	MetricsAddr string
	Verbose     int
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Backlog:       DefaultBacklog,
		SocketTimeout: DefaultSocketTimeout,
		Timeout:       DefaultConnectTimeout,
		Verbose:       1,
	}
}

// AddSockets appends one listener per name with the given protocol.
func (c *Config) AddSockets(proto sockaddr.Proto, multicast, broadcast bool, names ...string) {
	for _, n := range names {
		c.Sockets = append(c.Sockets, SocketConfig{
			Name:      n,
			Proto:     proto,
			Multicast: multicast,
			Broadcast: broadcast,
		})
	}
}

// Specs parses every configured socket in order.  Wildcards are left
// unresolved; the binder resolves them at bind time.
func (c *Config) Specs() ([]sockaddr.Spec, error) {
	out := make([]sockaddr.Spec, 0, len(c.Sockets))
	for _, sc := range c.Sockets {
		s, err := sockaddr.Parse(sc.Name)
		if err != nil {
			return nil, &sockerr.ConfigError{Field: "socket", Value: sc.Name, Message: err.Error()}
		}
		s = s.WithProto(sc.Proto)
		if sc.Proto == sockaddr.ProtoUDP {
			s = s.WithUDPMode(sc.Multicast, sc.Broadcast)
		}
		out = append(out, s)
	}
	return out, nil
}

// EffectiveChmodMode returns the configured chmod mode or the default.
func (c *Config) EffectiveChmodMode() os.FileMode {
	if c.ChmodMode != 0 {
		return c.ChmodMode
	}
	return DefaultChmodMode
}

// ── Chmod parsing ────────────────────────────────────────────────────

// ChmodDefault is the flag/file spelling for "chmod with the default mode".
const ChmodDefault = "default"

// ParseChmod interprets a chmod-socket value.  "", "0", "false" and "no"
// disable chmod; "default", "1", "true" and "yes" enable it with the
// default mode; anything else must be an octal permission such as "660".
func ParseChmod(text string) (enabled bool, mode os.FileMode, err error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "0", "false", "no":
		return false, 0, nil
	case ChmodDefault, "1", "true", "yes":
		return true, 0, nil
	}
	n, err := strconv.ParseUint(text, 8, 32)
	if err != nil || n > 0o777 {
		return false, 0, &sockerr.ConfigError{
			Field:   "chmod-socket",
			Value:   text,
			Message: "invalid permission mode",
			Hint:    "use an octal mode such as 660, or omit the value for 666",
		}
	}
	return true, os.FileMode(n), nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Listen && c.Probe {
		return &sockerr.ConfigError{Field: "probe", Message: "listen and probe modes are mutually exclusive"}
	}

	if c.Listen {
		if len(c.Sockets) == 0 {
			return &sockerr.ConfigError{
				Field:   "socket",
				Message: "listen mode requires at least one socket",
				Hint:    "pass -s /run/app.sock, -s :8000 or a [[socket]] table in the config file",
			}
		}
		if c.Backlog <= 0 {
			return &sockerr.ConfigError{
				Field:   "listen-backlog",
				Value:   c.Backlog,
				Message: "must be positive",
				Hint:    fmt.Sprintf("the default is %d", DefaultBacklog),
			}
		}
		if c.ChmodMode > 0o777 {
			return &sockerr.ConfigError{Field: "chmod-socket", Value: fmt.Sprintf("%o", c.ChmodMode), Message: "permission bits out of range"}
		}
		for _, sc := range c.Sockets {
			if err := validateSocket(sc); err != nil {
				return err
			}
		}
	} else if len(c.Targets) == 0 {
		return &sockerr.ConfigError{
			Field:   "target",
			Message: "a socket to connect to is required (use --help for usage)",
			Hint:    "add -l to serve the configured sockets instead",
		}
	}

	if c.Retries < 0 {
		return &sockerr.ConfigError{Field: "retries", Value: c.Retries, Message: "must not be negative"}
	}
	if c.Timeout < 0 {
		return &sockerr.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must not be negative"}
	}
	return nil
}

func validateSocket(sc SocketConfig) error {
	s, err := sockaddr.Parse(sc.Name)
	if err != nil {
		return &sockerr.ConfigError{Field: "socket", Value: sc.Name, Message: err.Error()}
	}
	if s.Family == sockaddr.FamilyUnix {
		if sc.Proto != sockaddr.ProtoStream {
			return &sockerr.ConfigError{
				Field:   sc.Proto.String(),
				Value:   sc.Name,
				Message: "requires host:port",
				Hint:    "UDP and SCTP listeners cannot use Unix paths",
			}
		}
		if len(s.Name) > sockaddr.MaxUnixNameLen {
			return &sockerr.ConfigError{
				Field:   "socket",
				Value:   sc.Name,
				Message: fmt.Sprintf("Unix socket name longer than %d bytes", sockaddr.MaxUnixNameLen),
				Hint:    "use a shorter path or an abstract @name",
			}
		}
	}
	if sc.Multicast && sc.Broadcast {
		return &sockerr.ConfigError{Field: "udp-multicast", Value: sc.Name, Message: "multicast and broadcast are mutually exclusive"}
	}
	if sc.Multicast && s.Host() == "" {
		return &sockerr.ConfigError{
			Field:   "udp-multicast",
			Value:   sc.Name,
			Message: "multicast group address is required",
			Hint:    "use group:port, e.g. 239.255.0.1:5000",
		}
	}
	if sc.Proto == sockaddr.ProtoSCTP {
		if _, _, err := sockaddr.ParseSCTP(sc.Name); err != nil {
			return &sockerr.ConfigError{Field: "sctp", Value: sc.Name, Message: err.Error()}
		}
	}
	return nil
}
