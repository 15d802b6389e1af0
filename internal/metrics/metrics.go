// Package metrics provides lock-free counters for listener setup,
// inheritance and connect outcomes.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.  A Collector
// is also a prometheus.Collector and can be registered directly.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gosock"

// Collector tracks runtime metrics for a gosock process.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	listenersBound     atomic.Int64
	listenersInherited atomic.Int64
	inheritedClosed    atomic.Int64
	bindFailures       atomic.Int64

	connectAttempts atomic.Int64
	connectFailures atomic.Int64
	connectTimeouts atomic.Int64

	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64

	probesOpen   atomic.Int64
	probesClosed atomic.Int64

	errorsTotal atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Listener metrics ─────────────────────────────────────────────────

// ListenerBound records a listener created by an explicit bind.
func (c *Collector) ListenerBound() {
	if c == nil {
		return
	}
	c.listenersBound.Add(1)
}

// ListenerInherited records a listener recovered from an inherited descriptor.
func (c *Collector) ListenerInherited() {
	if c == nil {
		return
	}
	c.listenersInherited.Add(1)
}

// InheritedClosed records an inherited descriptor that matched no entry.
func (c *Collector) InheritedClosed() {
	if c == nil {
		return
	}
	c.inheritedClosed.Add(1)
}

// BindFailed records a failed bind and remembers the error text.
func (c *Collector) BindFailed(msg string) {
	if c == nil {
		return
	}
	c.bindFailures.Add(1)
	c.RecordError(msg)
}

// ListenersBound returns the number of explicitly bound listeners.
func (c *Collector) ListenersBound() int64 {
	if c == nil {
		return 0
	}
	return c.listenersBound.Load()
}

// ListenersInherited returns the number of recovered listeners.
func (c *Collector) ListenersInherited() int64 {
	if c == nil {
		return 0
	}
	return c.listenersInherited.Load()
}

// BindFailures returns the number of failed binds.
func (c *Collector) BindFailures() int64 {
	if c == nil {
		return 0
	}
	return c.bindFailures.Load()
}

// ── Connect metrics ──────────────────────────────────────────────────

// ConnectAttempt records one outbound connect.
func (c *Collector) ConnectAttempt() {
	if c == nil {
		return
	}
	c.connectAttempts.Add(1)
}

// ConnectFailed records a failed connect; timeout marks a connect that
// ran out of time waiting for writability.
func (c *Collector) ConnectFailed(timeout bool) {
	if c == nil {
		return
	}
	c.connectFailures.Add(1)
	if timeout {
		c.connectTimeouts.Add(1)
	}
}

// ConnectAttempts returns the total connect count.
func (c *Collector) ConnectAttempts() int64 {
	if c == nil {
		return 0
	}
	return c.connectAttempts.Load()
}

// ConnectFailures returns the failed connect count.
func (c *Collector) ConnectFailures() int64 {
	if c == nil {
		return 0
	}
	return c.connectFailures.Load()
}

// ConnectTimeouts returns the timed-out connect count.
func (c *Collector) ConnectTimeouts() int64 {
	if c == nil {
		return 0
	}
	return c.connectTimeouts.Load()
}

// ── Accepted connections ─────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── Probes ───────────────────────────────────────────────────────────

// ProbeResult records the outcome of one reachability probe.
func (c *Collector) ProbeResult(open bool) {
	if c == nil {
		return
	}
	if open {
		c.probesOpen.Add(1)
	} else {
		c.probesClosed.Add(1)
	}
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime             string `json:"uptime"`
	ListenersBound     int64  `json:"listeners_bound"`
	ListenersInherited int64  `json:"listeners_inherited"`
	InheritedClosed    int64  `json:"inherited_closed"`
	BindFailures       int64  `json:"bind_failures"`
	ConnectAttempts    int64  `json:"connect_attempts"`
	ConnectFailures    int64  `json:"connect_failures"`
	ConnectTimeouts    int64  `json:"connect_timeouts"`
	ConnectionsActive  int64  `json:"connections_active"`
	ConnectionsTotal   int64  `json:"connections_total"`
	ProbesOpen         int64  `json:"probes_open"`
	ProbesClosed       int64  `json:"probes_closed"`
	ErrorsTotal        int64  `json:"errors_total"`
	LastError          string `json:"last_error,omitempty"`
	LastErrorMessage   string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:             time.Since(c.startTime).Truncate(time.Second).String(),
		ListenersBound:     c.listenersBound.Load(),
		ListenersInherited: c.listenersInherited.Load(),
		InheritedClosed:    c.inheritedClosed.Load(),
		BindFailures:       c.bindFailures.Load(),
		ConnectAttempts:    c.connectAttempts.Load(),
		ConnectFailures:    c.connectFailures.Load(),
		ConnectTimeouts:    c.connectTimeouts.Load(),
		ConnectionsActive:  c.connectionsActive.Load(),
		ConnectionsTotal:   c.connectionsTotal.Load(),
		ProbesOpen:         c.probesOpen.Load(),
		ProbesClosed:       c.probesClosed.Load(),
		ErrorsTotal:        c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}

// ── Prometheus export ────────────────────────────────────────────────

var (
	descListeners = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "listeners_total"),
		"Listeners set up, by origin (bound or inherited).",
		[]string{"origin"}, nil)
	descInheritedClosed = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "inherited_closed_total"),
		"Inherited descriptors closed because no listener claimed them.",
		nil, nil)
	descBindFailures = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "bind_failures_total"),
		"Listener bind failures.",
		nil, nil)
	descConnects = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "connects_total"),
		"Outbound connects, by result.",
		[]string{"result"}, nil)
	descConnectionsActive = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "connections_active"),
		"Accepted connections currently open.",
		nil, nil)
	descConnectionsTotal = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "connections_accepted_total"),
		"Accepted connections.",
		nil, nil)
	descProbes = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "probes_total"),
		"Reachability probes, by state.",
		[]string{"state"}, nil)
	descErrors = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "errors_total"),
		"Errors recorded.",
		nil, nil)
)

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descListeners
	ch <- descInheritedClosed
	ch <- descBindFailures
	ch <- descConnects
	ch <- descConnectionsActive
	ch <- descConnectionsTotal
	ch <- descProbes
	ch <- descErrors
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.Snapshot()
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	counter(descListeners, s.ListenersBound, "bound")
	counter(descListeners, s.ListenersInherited, "inherited")
	counter(descInheritedClosed, s.InheritedClosed)
	counter(descBindFailures, s.BindFailures)
	counter(descConnects, s.ConnectAttempts-s.ConnectFailures, "ok")
	counter(descConnects, s.ConnectFailures-s.ConnectTimeouts, "error")
	counter(descConnects, s.ConnectTimeouts, "timeout")
	ch <- prometheus.MustNewConstMetric(descConnectionsActive, prometheus.GaugeValue, float64(s.ConnectionsActive))
	counter(descConnectionsTotal, s.ConnectionsTotal)
	counter(descProbes, s.ProbesOpen, "open")
	counter(descProbes, s.ProbesClosed, "closed")
	counter(descErrors, s.ErrorsTotal)
}
