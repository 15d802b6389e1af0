// Package core is the orchestration layer.  It composes the binder,
// registry, connector and capabilities into complete operational modes
// and provides a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	sockaddr  →  binder / connector / registry  →  transport, capability  →  core  →  cmd
package core

import "context"

// Mode is a complete operational mode of gosock (serve, connect or
// probe).  Each mode owns its full lifecycle.
type Mode interface {
	Run(ctx context.Context) error
}
