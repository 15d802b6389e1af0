//go:build linux || freebsd

package core

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gosock/config"
	"gosock/internal/binder"
	"gosock/internal/capability"
	"gosock/internal/metrics"
	"gosock/internal/registry"
	"gosock/internal/reload"
	"gosock/internal/retry"
	"gosock/internal/transport"
	"gosock/util"
)

// Build constructs the Mode selected by cfg.  m may be nil.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	switch {
	case cfg.Listen:
		return buildServe(cfg, logger, m)
	case cfg.Probe:
		return buildProbe(cfg, logger, m), nil
	default:
		return buildConnect(cfg, logger, m)
	}
}

// ── mode builders ────────────────────────────────────────────────────

func buildServe(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	specs, err := cfg.Specs()
	if err != nil {
		return nil, err
	}
	reg := registry.New(logger)
	for _, s := range specs {
		reg.Add(s)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	return &ServeMode{
		Registry:    reg,
		Binder:      binder.New(cfg, logger, m),
		Backlog:     cfg.Backlog,
		Capability:  buildCapability(cfg),
		Logger:      logger,
		Metrics:     m,
		Inherited:   reload.InheritedFDs,
		Reload:      hup,
		Exec:        reload.Exec,
		MetricsAddr: cfg.MetricsAddr,
		GracePeriod: config.DefaultGracePeriod,
	}, nil
}

func buildConnect(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no socket to connect to")
	}
	mode := &ConnectMode{
		Dialer:     buildDialer(cfg, m),
		Capability: &capability.Relay{},
		Address:    cfg.Targets[0],
		Logger:     logger,
	}
	if cfg.Retries > 0 {
		mode.Backoff = retry.New(cfg.Retries, config.DefaultRetryBackoff, config.DefaultMaxRetryBackoff)
	}
	return mode, nil
}

func buildProbe(cfg *config.Config, logger *util.Logger, m *metrics.Collector) Mode {
	return &ProbeMode{
		Dialer:      buildDialer(cfg, m),
		Targets:     cfg.Targets,
		Timeout:     cfg.Timeout,
		Concurrency: config.DefaultMaxConcurrentProbes,
		Logger:      logger,
		Metrics:     m,
	}
}

// ── shared helpers ───────────────────────────────────────────────────

func buildDialer(cfg *config.Config, m *metrics.Collector) transport.Dialer {
	return &transport.SocketDialer{
		Timeout: cfg.Timeout,
		Async:   cfg.Async,
		Metrics: m,
	}
}

// buildCapability selects the per-connection behaviour for served
// sockets.
func buildCapability(cfg *config.Config) capability.Capability {
	if cfg.Exec != "" {
		return &capability.Exec{Command: cfg.Exec}
	}
	return capability.Echo{}
}
