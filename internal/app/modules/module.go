// Package modules contains domain-oriented dependency modules for the
// composition root.
package modules

import (
	"context"

	"github.com/riverqueue/river"

	"stateflow.dev/stateflow/internal/api/handlers"
)

// Module represents a domain-specific dependency unit in the composition root.
type Module interface {
	// Name returns a stable module identifier for logging/debugging.
	Name() string

	// ServerDeps returns the HTTP dependencies the module owns.
	ServerDeps() handlers.ServerDeps

	// RegisterWorkers registers module workers into a shared River worker registry.
	RegisterWorkers(*river.Workers)

	// PeriodicJobs returns the module's periodic River jobs.
	PeriodicJobs() []*river.PeriodicJob

	// Start launches in-process background work that River does not cover.
	Start(context.Context) error

	// Shutdown performs module-local graceful cleanup.
	Shutdown(context.Context) error
}
