//go:build !linux && !freebsd

package binder

// DefaultAcceptOptimizer returns the no-op optimizer on platforms without
// a deferred-accept option.
func DefaultAcceptOptimizer() AcceptOptimizer { return noopOptimizer{} }
