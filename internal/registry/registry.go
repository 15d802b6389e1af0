// Package registry keeps the ordered list of configured listeners and
// matches inherited descriptors back to them after a re-exec.
//
// A Registry is owned by one goroutine; it does no locking.  An entry's
// position in insertion order is its socket number in logs and tools.
package registry

import (
	"gosock/internal/sockaddr"
	"gosock/util"
)

// Entry is one configured listener.
type Entry struct {
	spec   sockaddr.Spec
	fd     int
	bound  bool
	family sockaddr.Family
}

// Spec returns the configured specification.
func (e *Entry) Spec() sockaddr.Spec { return e.spec }

// Name returns the configured socket text.
func (e *Entry) Name() string { return e.spec.Name }

// FD returns the descriptor, or -1 before the entry is bound.
func (e *Entry) FD() int { return e.fd }

// Bound reports whether the entry owns a descriptor.
func (e *Entry) Bound() bool { return e.bound }

// Family returns the family recorded at bind or inherit time.
func (e *Entry) Family() sockaddr.Family { return e.family }

// SetBound records a descriptor created by an explicit bind.
func (e *Entry) SetBound(fd int) {
	e.fd = fd
	e.bound = true
	e.family = e.spec.Family
}

// Registry is an ordered set of listener entries.
type Registry struct {
	entries []*Entry
	logger  *util.Logger
}

// New returns an empty registry.  logger may be nil.
func New(logger *util.Logger) *Registry {
	return &Registry{logger: logger}
}

// Add appends an unbound entry for spec and returns it.
func (r *Registry) Add(spec sockaddr.Spec) *Entry {
	e := &Entry{spec: spec, fd: -1, family: spec.Family}
	r.entries = append(r.entries, e)
	return e
}

// Index returns the socket number of e, or -1 if e is not registered.
func (r *Registry) Index(e *Entry) int {
	for i, x := range r.entries {
		if x == e {
			return i
		}
	}
	return -1
}

// At returns the entry with socket number i, or nil.
func (r *Registry) At(i int) *Entry {
	if i < 0 || i >= len(r.entries) {
		return nil
	}
	return r.entries[i]
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns the entries in insertion order.  The slice is a copy;
// the entries are shared.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Delete removes e, keeping the order of the others, and returns the
// entry that followed it (nil when e was last or not registered).
// The descriptor is not closed.
func (r *Registry) Delete(e *Entry) *Entry {
	i := r.Index(e)
	if i < 0 {
		return nil
	}
	copy(r.entries[i:], r.entries[i+1:])
	r.entries[len(r.entries)-1] = nil
	r.entries = r.entries[:len(r.entries)-1]
	if i < len(r.entries) {
		return r.entries[i]
	}
	return nil
}
