package binder

import "time"

// AcceptOptimizer is a best-effort option that delays accept(2) until a
// connection has data to read.  Failures are logged by the caller and
// never prevent listening.
type AcceptOptimizer interface {
	Enable(fd int, timeout time.Duration) error
	Name() string
}

type noopOptimizer struct{}

func (noopOptimizer) Enable(int, time.Duration) error { return nil }
func (noopOptimizer) Name() string                    { return "none" }

// NoAcceptOptimizer returns an optimizer that does nothing.
func NoAcceptOptimizer() AcceptOptimizer { return noopOptimizer{} }
