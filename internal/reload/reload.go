// Package reload hands listening descriptors from one process image to the
// next.  The parent clears close-on-exec on its bound listeners, names them
// in GOSOCK_INHERIT_FDS and execs itself; the child picks them up (together
// with any systemd socket-activation descriptors) and passes them to
// registry reconciliation.
package reload

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// EnvInheritFDs names the variable carrying inherited descriptor numbers.
const EnvInheritFDs = "GOSOCK_INHERIT_FDS"

// FormatFDs renders descriptors as the comma separated list stored in
// EnvInheritFDs.
func FormatFDs(fds []int) string {
	parts := make([]string, len(fds))
	for i, fd := range fds {
		parts[i] = strconv.Itoa(fd)
	}
	return strings.Join(parts, ",")
}

// ParseFDs parses a FormatFDs list.  Blank items are skipped; anything else
// that is not a non-negative integer is an error.
func ParseFDs(s string) ([]int, error) {
	var fds []int
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fd, err := strconv.Atoi(item)
		if err != nil || fd < 0 {
			return nil, errors.Errorf("%s: bad descriptor %q", EnvInheritFDs, item)
		}
		fds = append(fds, fd)
	}
	return fds, nil
}

// withInheritEnv returns env with EnvInheritFDs replaced by fds.
func withInheritEnv(env []string, fds []int) []string {
	out := make([]string, 0, len(env)+1)
	prefix := EnvInheritFDs + "="
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+FormatFDs(fds))
}

// envFDs reads and clears EnvInheritFDs.
func envFDs() ([]int, error) {
	v, ok := os.LookupEnv(EnvInheritFDs)
	if !ok {
		return nil, nil
	}
	os.Unsetenv(EnvInheritFDs)
	return ParseFDs(v)
}
