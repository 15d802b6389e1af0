package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gosock/internal/sockaddr"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the GOSOCK_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Socket lists are
// comma separated, except GOSOCK_SCTP whose items already contain
// commas and is therefore separated by ';'.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "CONFIG"); v != "" {
		cfg.ConfigPath = v
	}
	if envBool(EnvPrefix + "LISTEN") {
		cfg.Listen = true
	}

	// Listeners
	cfg.AddSockets(sockaddr.ProtoStream, false, false, envList(EnvPrefix+"SOCKET", ",")...)
	cfg.AddSockets(sockaddr.ProtoUDP, false, false, envList(EnvPrefix+"UDP", ",")...)
	cfg.AddSockets(sockaddr.ProtoUDP, true, false, envList(EnvPrefix+"UDP_MULTICAST", ",")...)
	cfg.AddSockets(sockaddr.ProtoUDP, false, true, envList(EnvPrefix+"UDP_BROADCAST", ",")...)
	cfg.AddSockets(sockaddr.ProtoSCTP, false, false, envList(EnvPrefix+"SCTP", ";")...)

	if v := envInt(EnvPrefix + "LISTEN_BACKLOG"); v > 0 {
		cfg.Backlog = v
	}
	if envBool(EnvPrefix + "ABSTRACT_SOCKET") {
		cfg.AbstractSocket = true
	}
	if v := os.Getenv(EnvPrefix + "CHMOD_SOCKET"); v != "" {
		if on, mode, err := ParseChmod(v); err == nil {
			cfg.ChmodSocket = on
			cfg.ChmodMode = mode
		}
	}
	if envBool(EnvPrefix + "NO_DEFER_ACCEPT") {
		cfg.NoDeferAccept = true
	}
	if v := envInt(EnvPrefix + "SOCKET_TIMEOUT"); v > 0 {
		cfg.SocketTimeout = secondsDuration(v)
	}

	// Outbound
	if v := envInt(EnvPrefix + "TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}
	if envBool(EnvPrefix + "ASYNC") {
		cfg.Async = true
	}
	if v := envInt(EnvPrefix + "RETRIES"); v > 0 {
		cfg.Retries = v
	}

	if v := os.Getenv(EnvPrefix + "EXEC"); v != "" {
		cfg.Exec = v
	}

	// Output
	if v := os.Getenv(EnvPrefix + "METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := envInt(EnvPrefix + "VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envList(key, sep string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
