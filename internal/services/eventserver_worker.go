package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hookdeck/chime/internal/eventserver"
	"github.com/hookdeck/chime/internal/logging"
	"github.com/hookdeck/chime/internal/worker"
)

// EventServerWorker wraps the event server dispatch loop as a worker.
type EventServerWorker struct {
	server *eventserver.Server
	logger *logging.Logger
}

// NewEventServerWorker creates a new event server worker.
func NewEventServerWorker(server *eventserver.Server, logger *logging.Logger) worker.Worker {
	return &EventServerWorker{
		server: server,
		logger: logger,
	}
}

// Name returns the worker name.
func (w *EventServerWorker) Name() string {
	return "event-server"
}

// Run executes the dispatch loop and blocks until context is cancelled or it fails.
func (w *EventServerWorker) Run(ctx context.Context) error {
	logger := w.logger.Ctx(ctx)
	logger.Info("event server worker running")

	if err := w.server.Run(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("event server error", zap.Error(err))
		}
		return err
	}

	return nil
}
