package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hookdeck/chime/internal/config"
	"github.com/hookdeck/chime/internal/idgen"
	"github.com/hookdeck/chime/internal/logging"
	"github.com/hookdeck/chime/internal/services"
)

type App struct {
	config *config.Config
}

func New(cfg *config.Config) *App {
	return &App{
		config: cfg,
	}
}

func (a *App) Run(ctx context.Context) error {
	return run(ctx, a.config)
}

func run(mainContext context.Context, cfg *config.Config) error {
	// The interactive console owns the terminal, so logs are kept quiet
	// unless running headless.
	logger, err := logging.NewLogger(
		logging.WithLogLevel(cfg.LogLevel),
		logging.WithQuiet(!cfg.Headless),
	)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting chime",
		zap.String("config_path", cfg.ConfigFilePath()),
		zap.Bool("headless", cfg.Headless))
	logger.Debug("configuration summary", cfg.LogConfigurationSummary()...)

	// Initialize ID generators
	logger.Debug("configuring ID generators",
		zap.String("type", cfg.IDGen.Type),
		zap.String("event_prefix", cfg.IDGen.EventPrefix),
		zap.String("subscription_prefix", cfg.IDGen.SubscriptionPrefix))
	if err := idgen.Configure(cfg.IDGen.ToConfig()); err != nil {
		logger.Error("failed to configure ID generators", zap.Error(err))
		return err
	}

	// Set up cancellation context
	ctx, cancel := context.WithCancel(mainContext)
	defer cancel()

	// Build services using ServiceBuilder; the console's quit command
	// cancels the run context like a termination signal would.
	logger.Debug("building services")
	builder := services.NewServiceBuilder(cfg, logger)

	supervisor, err := builder.BuildWorkers(cancel)
	if err != nil {
		logger.Error("failed to build workers", zap.Error(err))
		return err
	}

	// Handle sigterm and await termChan signal
	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(termChan)

	// Run workers in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- supervisor.Run(ctx)
	}()

	// Wait for either termination signal or worker exit
	var exitErr error
	select {
	case <-termChan:
		logger.Info("shutdown signal received")
		cancel() // Cancel context to trigger graceful shutdown
		err := <-errChan
		// context.Canceled is expected during graceful shutdown
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("error during graceful shutdown", zap.Error(err))
			exitErr = err
		}
	case err := <-errChan:
		// A console quit cancels the run context, which is a normal exit.
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("workers exited unexpectedly", zap.Error(err))
			exitErr = err
		}
	}

	logger.Info("chime shutdown complete")

	return exitErr
}
