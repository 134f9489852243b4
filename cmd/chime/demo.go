package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/hookdeck/chime/internal/eventserver"
	"github.com/hookdeck/chime/internal/logging"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const demoMinDelay = 50 * time.Millisecond

type demoStats struct {
	mu        sync.Mutex
	scheduled int
	cancelled int
	raced     int
	errors    []string
}

func (s *demoStats) addScheduled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled++
}

func (s *demoStats) addCancelled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled++
}

func (s *demoStats) addRaced() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raced++
}

func (s *demoStats) addError(err string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, err)
}

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Schedule a burst of fake reminders and watch them fire",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "events",
				Usage: "Number of reminders to schedule",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "cancel-percent",
				Usage: "Chance (0-100) that a reminder gets a cancel attempt",
				Value: 30,
			},
			&cli.DurationFlag{
				Name:  "max-delay",
				Usage: "Longest reminder delay",
				Value: 3 * time.Second,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of concurrent scheduling goroutines",
				Value: 4,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
		},
		Action: runDemo,
	}
}

func runDemo(ctx context.Context, c *cli.Command) error {
	numEvents := c.Int("events")
	cancelPercent := c.Int("cancel-percent")
	maxDelay := c.Duration("max-delay")
	concurrency := c.Int("concurrency")
	verbose := c.Bool("verbose")

	if numEvents < 1 {
		return errors.New("events must be at least 1")
	}
	if maxDelay <= 0 {
		return errors.New("max-delay must be positive")
	}
	if concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}

	gofakeit.Seed(time.Now().UnixNano())

	fmt.Printf("=== Chime Demo Configuration ===\n")
	fmt.Printf("Reminders to schedule: %d\n", numEvents)
	fmt.Printf("Cancel chance: %d%%\n", cancelPercent)
	fmt.Printf("Delay range: %v-%v\n", demoMinDelay, maxDelay+demoMinDelay)
	fmt.Printf("Concurrency: %d workers\n", concurrency)
	fmt.Printf("\n")

	logOpts := []logging.Option{logging.WithQuiet(!verbose)}
	if verbose {
		logOpts = append(logOpts, logging.WithLogLevel("debug"))
	}
	logger, err := logging.NewLogger(logOpts...)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Size the buffers to hold every notification so none are dropped
	// while the schedule and cancel phases run.
	server := eventserver.New(logger,
		eventserver.WithMailboxSize(numEvents),
		eventserver.WithSubscriberBufferSize(numEvents),
	)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Run(runCtx)
	}()

	sub, err := server.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	type reminder struct {
		name        string
		description string
		delay       time.Duration
		ok          bool
	}
	plan := make([]reminder, numEvents)
	for i := range plan {
		plan[i] = reminder{
			name:        fmt.Sprintf("%s-%s-%d", gofakeit.Adjective(), gofakeit.Noun(), i),
			description: gofakeit.HackerPhrase(),
			delay:       demoMinDelay + time.Duration(rand.Int63n(int64(maxDelay))),
		}
	}

	stats := &demoStats{}

	fmt.Printf("Scheduling %d reminders...\n", numEvents)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range plan {
		g.Go(func() error {
			_, err := server.AddEvent(gctx, eventserver.AddEventInput{
				Name:        plan[i].name,
				Description: plan[i].description,
				Delay:       plan[i].delay,
			})
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				stats.addError(fmt.Sprintf("failed to schedule %s: %v", plan[i].name, err))
				return nil
			}
			plan[i].ok = true
			stats.addScheduled()
			if verbose {
				fmt.Printf("  scheduled %s (fires in %v)\n", plan[i].name, plan[i].delay)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("Racing cancellations against the timers...\n")

	cg, cgctx := errgroup.WithContext(ctx)
	for i := range plan {
		if !plan[i].ok || rand.Intn(100) >= cancelPercent {
			continue
		}
		name := plan[i].name
		wait := time.Duration(rand.Int63n(int64(plan[i].delay)))
		cg.Go(func() error {
			select {
			case <-time.After(wait):
			case <-cgctx.Done():
				return cgctx.Err()
			}
			switch err := server.CancelEvent(cgctx, name); {
			case err == nil:
				stats.addCancelled()
				if verbose {
					fmt.Printf("  cancelled %s\n", name)
				}
			case errors.Is(err, eventserver.ErrEventNotFound):
				stats.addRaced()
				if verbose {
					fmt.Printf("  %s fired before the cancel landed\n", name)
				}
			default:
				return err
			}
			return nil
		})
	}
	if err := cg.Wait(); err != nil {
		return err
	}

	// Every scheduled reminder either fires or was cancelled in time, so
	// the subscription owes us exactly this many notifications.
	remaining := stats.scheduled - stats.cancelled
	fired := 0
	if remaining > 0 {
		fmt.Printf("Waiting for %d reminders to fire...\n\n", remaining)
		deadline := time.NewTimer(maxDelay + demoMinDelay + 2*time.Second)
		defer deadline.Stop()
	collect:
		for fired < remaining {
			select {
			case ev, ok := <-sub.C():
				if !ok {
					break collect
				}
				fired++
				firedAt := time.Now()
				if ev.FiredAt != nil {
					firedAt = *ev.FiredAt
				}
				fmt.Printf("⏰ %s fired at %s: %s\n", ev.Name, firedAt.Format(time.Kitchen), ev.Description)
			case <-deadline.C:
				break collect
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	pending, err := server.Events(ctx)
	if err != nil {
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serverDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Printf("\n=== Demo Complete ===\n")
	fmt.Printf("Reminders scheduled: %d\n", stats.scheduled)
	fmt.Printf("Reminders fired: %d\n", fired)
	fmt.Printf("Reminders cancelled: %d\n", stats.cancelled)
	if stats.raced > 0 {
		fmt.Printf("Cancellations beaten by the timer: %d\n", stats.raced)
	}
	if len(pending) > 0 {
		fmt.Printf("Still pending: %d\n", len(pending))
	}
	if len(stats.errors) > 0 {
		fmt.Printf("Errors encountered: %d\n", len(stats.errors))
		if verbose {
			fmt.Println("\nErrors:")
			for _, e := range stats.errors {
				fmt.Printf("  - %s\n", e)
			}
		}
	}
	return nil
}
