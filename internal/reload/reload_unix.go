//go:build linux || freebsd

package reload

import (
	"os"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"gosock/internal/registry"
	"gosock/util"
)

// execFn is replaced in tests.
var execFn = unix.Exec

// InheritedFDs returns the descriptors passed by the previous process
// image: systemd socket activation first, then EnvInheritFDs.  Both
// environment hand-offs are consumed so they do not leak into children.
func InheritedFDs() ([]int, error) {
	var fds []int
	for _, f := range activation.Files(true) {
		// The *os.File closes its descriptor when collected; keep a dup.
		fd, err := unix.FcntlInt(f.Fd(), unix.F_DUPFD_CLOEXEC, 0)
		f.Close()
		if err != nil {
			return fds, errors.Wrapf(err, "dup activation fd %s", f.Name())
		}
		fds = append(fds, fd)
	}

	own, err := envFDs()
	if err != nil {
		return fds, err
	}
	for _, fd := range own {
		// Descriptors crossing exec must not leak into later children.
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
			return fds, errors.Wrapf(err, "inherited fd %d", fd)
		}
		fds = append(fds, fd)
	}
	return fds, nil
}

// Prepare clears close-on-exec on every bound listener in reg and returns
// the environment the next image should run with, along with the handed
// over descriptors.
func Prepare(reg *registry.Registry, env []string) ([]string, []int, error) {
	var fds []int
	for _, e := range reg.Entries() {
		if !e.Bound() {
			continue
		}
		if _, err := unix.FcntlInt(uintptr(e.FD()), unix.F_SETFD, 0); err != nil {
			return nil, nil, errors.Wrapf(err, "clear close-on-exec on fd %d (%s)", e.FD(), e.Name())
		}
		fds = append(fds, e.FD())
	}
	return withInheritEnv(env, fds), fds, nil
}

// Exec replaces the running image with a fresh copy of itself, keeping the
// listeners in reg open.  It returns only on failure.
func Exec(reg *registry.Registry, logger *util.Logger) error {
	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "locate executable")
	}
	env, fds, err := Prepare(reg, os.Environ())
	if err != nil {
		return err
	}
	if logger != nil {
		logger.Info("reloading %s, passing fds %s", exe, FormatFDs(fds))
	}
	if err := execFn(exe, os.Args, env); err != nil {
		return errors.Wrapf(err, "execve(%s)", exe)
	}
	return nil
}
