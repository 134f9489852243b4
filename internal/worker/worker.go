package worker

import "context"

// Worker is a long-running background process supervised by a
// WorkerSupervisor. Run must block until ctx is cancelled or a fatal error
// occurs, and return nil or context.Canceled for a graceful stop.
type Worker interface {
	// Name uniquely identifies the worker within a supervisor.
	Name() string

	// Run executes the worker until ctx ends or a fatal error occurs.
	Run(ctx context.Context) error
}
