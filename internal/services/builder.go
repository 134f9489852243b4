package services

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hookdeck/chime/internal/config"
	"github.com/hookdeck/chime/internal/eventserver"
	"github.com/hookdeck/chime/internal/logging"
	"github.com/hookdeck/chime/internal/worker"
)

var ErrNilShutdown = errors.New("console worker requires a shutdown callback")

// ServiceBuilder constructs workers based on service configuration.
type ServiceBuilder struct {
	cfg    *config.Config
	logger *logging.Logger
}

// NewServiceBuilder creates a new ServiceBuilder.
func NewServiceBuilder(cfg *config.Config, logger *logging.Logger) *ServiceBuilder {
	return &ServiceBuilder{
		cfg:    cfg,
		logger: logger,
	}
}

// BuildWorkers creates the event server worker and, unless running
// headless, the interactive console, registered on a supervisor configured
// from the shutdown timeout. shutdown is invoked when the console asks the
// application to exit.
func (b *ServiceBuilder) BuildWorkers(shutdown func()) (*worker.WorkerSupervisor, error) {
	b.logger.Debug("building service workers",
		zap.Bool("headless", b.cfg.Headless))

	var supervisorOpts []worker.SupervisorOption
	if b.cfg.ShutdownTimeoutSeconds > 0 {
		supervisorOpts = append(supervisorOpts,
			worker.WithShutdownTimeout(time.Duration(b.cfg.ShutdownTimeoutSeconds)*time.Second))
	}
	supervisor := worker.NewWorkerSupervisor(b.logger, supervisorOpts...)

	server := eventserver.New(b.logger,
		eventserver.WithMailboxSize(b.cfg.MailboxSize),
		eventserver.WithSubscriberBufferSize(b.cfg.SubscriberBufferSize),
		eventserver.WithMaxPendingEvents(b.cfg.MaxPendingEvents),
	)
	supervisor.Register(NewEventServerWorker(server, b.logger))

	if !b.cfg.Headless {
		if shutdown == nil {
			return nil, ErrNilShutdown
		}
		console := NewConsoleWorker(server, supervisor.GetHealthTracker(), shutdown, b.logger,
			WithCancelTimeout(time.Duration(b.cfg.CancelTimeoutSeconds)*time.Second))
		supervisor.Register(console)
	}

	b.logger.Info("service workers built successfully")
	return supervisor, nil
}
