//go:build !linux && !freebsd

package core

import (
	"fmt"
	"runtime"

	"gosock/config"
	sockerr "gosock/internal/errors"
	"gosock/internal/metrics"
	"gosock/util"
)

// Build reports that no mode is available on this platform.
func Build(_ *config.Config, _ *util.Logger, _ *metrics.Collector) (Mode, error) {
	return nil, fmt.Errorf("%s: %w", runtime.GOOS, sockerr.ErrUnsupported)
}
