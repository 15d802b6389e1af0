package core

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"gosock/config"
	sockerr "gosock/internal/errors"
	"gosock/internal/metrics"
	"gosock/internal/transport"
	"gosock/util"
)

// DialFunc establishes a connection to a socket spec.
type DialFunc func(ctx context.Context, address string) (net.Conn, error)

// ProbeResult records whether one socket accepted a connection.
type ProbeResult struct {
	Target string
	Open   bool
	Err    error
}

// ProbeMode connects to every target once and reports which accept
// connections, in the manner of nc -z.
type ProbeMode struct {
	Dialer      transport.Dialer
	Targets     []string
	Timeout     time.Duration
	Concurrency int
	Logger      *util.Logger
	Metrics     *metrics.Collector
}

// Run probes all targets and logs the results.  It fails when any target
// is unreachable.
func (m *ProbeMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	if len(m.Targets) == 0 {
		return fmt.Errorf("no sockets specified for probing")
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = config.DefaultConnectTimeout
	}

	m.Logger.Verbose("probing %d socket(s)", len(m.Targets))

	results := ProbeTargets(ctx, m.Targets, timeout, m.Concurrency, m.Dialer.Dial)

	closed := 0
	for _, r := range results {
		m.Metrics.ProbeResult(r.Open)
		if r.Open {
			m.Logger.Info("%s open", r.Target)
		} else {
			closed++
			m.Logger.Verbose("%s closed - %v", r.Target, r.Err)
		}
	}
	if closed > 0 {
		return fmt.Errorf("%d of %d sockets unreachable", closed, len(results))
	}
	return nil
}

// ProbeTargets probes every target concurrently, at most concurrency at
// a time, and returns results in input order.
func ProbeTargets(ctx context.Context, targets []string, timeout time.Duration, concurrency int, dial DialFunc) []ProbeResult {
	if concurrency <= 0 {
		concurrency = config.DefaultMaxConcurrentProbes
	}
	results := make([]ProbeResult, len(targets))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)
		go func(idx int, addr string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			probeCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			conn, err := dial(probeCtx, addr)
			if err != nil {
				results[idx] = ProbeResult{Target: addr, Err: sockerr.Wrap("probe", addr, err)}
				return
			}
			conn.Close()
			results[idx] = ProbeResult{Target: addr, Open: true}
		}(i, target)
	}

	wg.Wait()
	return results
}
