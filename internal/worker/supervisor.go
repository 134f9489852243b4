package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNoWorkers        = errors.New("no workers registered")
	ErrAllWorkersExited = errors.New("all workers have exited unexpectedly")
)

// Logger is the minimal structured logging surface the supervisor needs.
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// WorkerSupervisor runs registered workers concurrently, tracks their
// health, and coordinates graceful shutdown. A failed worker is recorded
// but does not bring down its siblings; the supervisor only returns once
// the context ends or every worker has exited.
type WorkerSupervisor struct {
	workers         map[string]Worker
	health          *HealthTracker
	logger          Logger
	shutdownTimeout time.Duration
}

type SupervisorOption func(*WorkerSupervisor)

// WithShutdownTimeout bounds the wait for workers to drain after the
// context is cancelled. Zero (the default) waits indefinitely.
func WithShutdownTimeout(timeout time.Duration) SupervisorOption {
	return func(s *WorkerSupervisor) {
		s.shutdownTimeout = timeout
	}
}

func NewWorkerSupervisor(logger Logger, opts ...SupervisorOption) *WorkerSupervisor {
	s := &WorkerSupervisor{
		workers: make(map[string]Worker),
		health:  NewHealthTracker(),
		logger:  logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register adds a worker. Panics if the name is already taken; duplicate
// registration is a programming error, not a runtime condition.
func (s *WorkerSupervisor) Register(w Worker) {
	if _, exists := s.workers[w.Name()]; exists {
		panic(fmt.Sprintf("worker %s already registered", w.Name()))
	}
	s.workers[w.Name()] = w
	s.logger.Debug("worker registered", zap.String("worker", w.Name()))
}

func (s *WorkerSupervisor) GetHealthTracker() *HealthTracker {
	return s.health
}

// Run starts every registered worker and blocks until the context is
// cancelled or all workers have exited on their own.
//
// On cancellation it waits for the workers to drain: indefinitely by
// default, returning ctx.Err(), or up to the configured shutdown timeout,
// returning nil on a clean drain and an error when the timeout passes.
// If every worker exits without the context ending, that is an abnormal
// condition and Run returns ErrAllWorkersExited.
func (s *WorkerSupervisor) Run(ctx context.Context) error {
	if len(s.workers) == 0 {
		s.logger.Warn("no workers registered")
		return ErrNoWorkers
	}

	s.logger.Info("starting workers", zap.Int("count", len(s.workers)))

	var wg sync.WaitGroup
	for name, w := range s.workers {
		wg.Add(1)
		go func(name string, w Worker) {
			defer wg.Done()

			s.logger.Info("worker starting", zap.String("worker", name))
			s.health.MarkHealthy(name)

			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("worker failed",
					zap.String("worker", name),
					zap.Error(err))
				s.health.MarkFailed(name)
			} else {
				s.logger.Info("worker stopped gracefully", zap.String("worker", name))
				s.health.MarkHealthy(name)
			}
		}(name, w)
	}

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down workers")

		if s.shutdownTimeout > 0 {
			return s.waitWithTimeout(&wg, s.shutdownTimeout)
		}

		wg.Wait()
		return ctx.Err()
	case <-s.waitForWorkers(&wg):
		s.logger.Warn("all workers have exited")
		return ErrAllWorkersExited
	}
}

// waitForWorkers exposes wg.Wait as a channel usable in a select.
func (s *WorkerSupervisor) waitForWorkers(wg *sync.WaitGroup) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (s *WorkerSupervisor) waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) error {
	select {
	case <-s.waitForWorkers(wg):
		s.logger.Info("all workers shutdown gracefully")
		return nil
	case <-time.After(timeout):
		s.logger.Warn("shutdown timeout exceeded, some workers may still be running",
			zap.Duration("timeout", timeout))
		return fmt.Errorf("shutdown timeout exceeded (%v)", timeout)
	}
}
