package config

// file.go - TOML configuration file.
//
//	[server]
//	listen-backlog  = 128
//	abstract-socket = false
//	chmod-socket    = "660"
//	no-defer-accept = false
//	socket-timeout  = "4s"
//	metrics-addr    = "127.0.0.1:9102"
//	exec            = "cat"
//	verbose         = 1
//
//	[[socket]]
//	name  = "/run/app.sock"
//
//	[[socket]]
//	name      = "239.255.0.1:5000"
//	proto     = "udp"
//	multicast = true
//
//	[client]
//	timeout = "3s"
//	async   = false
//	retries = 3

import (
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	sockerr "gosock/internal/errors"
	"gosock/internal/sockaddr"
)

type fileServer struct {
	Backlog        int    `toml:"listen-backlog"`
	AbstractSocket *bool  `toml:"abstract-socket"`
	ChmodSocket    string `toml:"chmod-socket"`
	NoDeferAccept  *bool  `toml:"no-defer-accept"`
	SocketTimeout  string `toml:"socket-timeout"`
	MetricsAddr    string `toml:"metrics-addr"`
	Exec           string `toml:"exec"`
	Verbose        int    `toml:"verbose"`
}

type fileSocket struct {
	Name      string `toml:"name"`
	Proto     string `toml:"proto"`
	Multicast bool   `toml:"multicast"`
	Broadcast bool   `toml:"broadcast"`
}

type fileClient struct {
	Timeout string `toml:"timeout"`
	Async   *bool  `toml:"async"`
	Retries *int   `toml:"retries"`
}

type fileConfig struct {
	Server  fileServer   `toml:"server"`
	Sockets []fileSocket `toml:"socket"`
	Client  fileClient   `toml:"client"`
}

// LoadFile overlays the TOML file at path onto cfg.  Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func LoadFile(path string, cfg *Config) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return errors.Wrapf(err, "config file %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return &sockerr.ConfigError{
			Field:   "config",
			Value:   path,
			Message: "unknown keys: " + strings.Join(keys, ", "),
		}
	}
	return errors.Wrapf(fc.apply(cfg), "config file %s", path)
}

func (fc *fileConfig) apply(cfg *Config) error {
	s := fc.Server
	if s.Backlog != 0 {
		cfg.Backlog = s.Backlog
	}
	if s.AbstractSocket != nil {
		cfg.AbstractSocket = *s.AbstractSocket
	}
	if s.ChmodSocket != "" {
		on, mode, err := ParseChmod(s.ChmodSocket)
		if err != nil {
			return err
		}
		cfg.ChmodSocket, cfg.ChmodMode = on, mode
	}
	if s.NoDeferAccept != nil {
		cfg.NoDeferAccept = *s.NoDeferAccept
	}
	if s.SocketTimeout != "" {
		d, err := parseDuration("socket-timeout", s.SocketTimeout)
		if err != nil {
			return err
		}
		cfg.SocketTimeout = d
	}
	if s.MetricsAddr != "" {
		cfg.MetricsAddr = s.MetricsAddr
	}
	if s.Exec != "" {
		cfg.Exec = s.Exec
	}
	if s.Verbose != 0 {
		cfg.Verbose = s.Verbose
	}

	for _, fs := range fc.Sockets {
		proto, err := sockaddr.ParseProto(fs.Proto)
		if err != nil {
			return &sockerr.ConfigError{Field: "socket.proto", Value: fs.Proto, Message: err.Error()}
		}
		cfg.AddSockets(proto, fs.Multicast, fs.Broadcast, fs.Name)
	}

	c := fc.Client
	if c.Timeout != "" {
		d, err := parseDuration("timeout", c.Timeout)
		if err != nil {
			return err
		}
		cfg.Timeout = d
	}
	if c.Async != nil {
		cfg.Async = *c.Async
	}
	if c.Retries != nil {
		cfg.Retries = *c.Retries
	}
	return nil
}

// parseDuration accepts Go duration strings and bare seconds.
func parseDuration(field, text string) (time.Duration, error) {
	if d, err := time.ParseDuration(text); err == nil {
		return d, nil
	}
	if d, err := time.ParseDuration(text + "s"); err == nil {
		return d, nil
	}
	return 0, &sockerr.ConfigError{Field: field, Value: text, Message: "invalid duration", Hint: `use a value such as "4s" or "500ms"`}
}
