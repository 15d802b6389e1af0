package config

import (
	"os"
	"time"
)

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultBacklog is the listen(2) queue length for stream listeners.
	DefaultBacklog = 100

	// DefaultSocketTimeout is the deferred-accept window for TCP
	// listeners (TCP_DEFER_ACCEPT seconds on Linux).
	DefaultSocketTimeout = 4 * time.Second

	// DefaultConnectTimeout bounds a synchronous timed connect when the
	// caller passes zero.
	DefaultConnectTimeout = 3 * time.Second

	// DefaultChmodMode is applied to Unix socket paths when chmod is
	// requested without an explicit mode.
	DefaultChmodMode os.FileMode = 0o666

	// DefaultMaxConcurrentProbes limits simultaneous probe goroutines.
	DefaultMaxConcurrentProbes = 100

	// DefaultRetryBackoff is the first delay between connect retries.
	DefaultRetryBackoff = 250 * time.Millisecond

	// DefaultMaxRetryBackoff caps the exponential connect backoff.
	DefaultMaxRetryBackoff = 10 * time.Second

	// DefaultGracePeriod is how long shutdown waits for handlers to finish.
	DefaultGracePeriod = 5 * time.Second

	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "GOSOCK_"
)
