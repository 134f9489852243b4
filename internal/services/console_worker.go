package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hookdeck/chime/internal/eventserver"
	"github.com/hookdeck/chime/internal/logging"
	"github.com/hookdeck/chime/internal/models"
	"github.com/hookdeck/chime/internal/worker"
)

const defaultListenWindow = 5 * time.Second

// ConsoleWorker is the interactive reminder console. It subscribes to the
// event server, prints fired events as they arrive, and turns typed
// commands into server operations. A quit command invokes the shutdown
// callback so the whole application winds down, not just the console.
type ConsoleWorker struct {
	server        *eventserver.Server
	health        *worker.HealthTracker
	shutdown      func()
	logger        *logging.Logger
	cancelTimeout time.Duration

	in  io.Reader
	out io.Writer
}

type ConsoleOption func(*ConsoleWorker)

// WithConsoleIO redirects the console's input and output, mainly for tests.
func WithConsoleIO(in io.Reader, out io.Writer) ConsoleOption {
	return func(w *ConsoleWorker) {
		w.in = in
		w.out = out
	}
}

// WithCancelTimeout bounds how long a cancel command may block on a timer
// acknowledgement. Zero disables the bound.
func WithCancelTimeout(timeout time.Duration) ConsoleOption {
	return func(w *ConsoleWorker) {
		w.cancelTimeout = timeout
	}
}

// NewConsoleWorker creates a new console worker.
func NewConsoleWorker(server *eventserver.Server, health *worker.HealthTracker, shutdown func(), logger *logging.Logger, opts ...ConsoleOption) worker.Worker {
	w := &ConsoleWorker{
		server:        server,
		health:        health,
		shutdown:      shutdown,
		logger:        logger,
		cancelTimeout: 5 * time.Second,
		in:            os.Stdin,
		out:           os.Stdout,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Name returns the worker name.
func (w *ConsoleWorker) Name() string {
	return "console"
}

// Run reads commands and prints fired events until ctx ends, input hits
// EOF, or the user quits. The stdin reader goroutine can stay blocked in a
// read past shutdown; the process exits regardless.
func (w *ConsoleWorker) Run(ctx context.Context) error {
	sub, err := w.server.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	w.logger.Ctx(ctx).Info("console attached", zap.String("subscription_id", sub.ID()))

	lines := make(chan string)
	go w.readLines(ctx, lines)

	w.printf("chime reminder console, type 'help' for commands")
	w.prompt()

	for {
		select {
		case event, ok := <-sub.C():
			if !ok {
				w.printf("event server closed")
				return nil
			}
			w.printFired(event)
			w.prompt()
		case line, ok := <-lines:
			if !ok {
				// EOF on input reads as a quit.
				w.printf("shutting down")
				w.shutdown()
				return nil
			}
			if quit := w.handleLine(ctx, sub, line); quit {
				w.printf("shutting down")
				w.shutdown()
				return nil
			}
			w.prompt()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *ConsoleWorker) readLines(ctx context.Context, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(w.in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

func (w *ConsoleWorker) handleLine(ctx context.Context, sub *eventserver.Subscription, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "add":
		w.handleAdd(ctx, args)
	case "cancel":
		w.handleCancel(ctx, args)
	case "cancel-all":
		w.handleCancelAll(ctx)
	case "list":
		w.handleList(ctx)
	case "listen":
		w.handleListen(ctx, sub, args)
	case "status":
		w.handleStatus(ctx)
	case "help":
		w.printHelp()
	case "quit", "exit":
		return true
	default:
		w.printf("unknown command %q, type 'help' for commands", cmd)
	}
	return false
}

func (w *ConsoleWorker) handleAdd(ctx context.Context, args []string) {
	if len(args) < 2 {
		w.printf("usage: add <name> <delay> [description]")
		return
	}

	delay, err := time.ParseDuration(args[1])
	if err != nil {
		w.printf("invalid delay %q: %v", args[1], err)
		return
	}

	event, err := w.server.AddEvent(ctx, eventserver.AddEventInput{
		Name:        args[0],
		Description: strings.Join(args[2:], " "),
		Delay:       delay,
	})
	if err != nil {
		if errors.Is(err, eventserver.ErrDuplicateEvent) {
			w.printf("an event named %q is already pending", args[0])
			return
		}
		w.printf("add failed: %v", err)
		return
	}

	w.printf("scheduled %s (%s), fires at %s", event.Name, event.ID, event.FireAt.Format(time.Kitchen))
}

func (w *ConsoleWorker) handleCancel(ctx context.Context, args []string) {
	if len(args) != 1 {
		w.printf("usage: cancel <name>")
		return
	}

	cancelCtx := ctx
	if w.cancelTimeout > 0 {
		var cancel context.CancelFunc
		cancelCtx, cancel = context.WithTimeout(ctx, w.cancelTimeout)
		defer cancel()
	}

	if err := w.server.CancelEvent(cancelCtx, args[0]); err != nil {
		if errors.Is(err, eventserver.ErrEventNotFound) {
			w.printf("no pending event named %q", args[0])
			return
		}
		w.printf("cancel failed: %v", err)
		return
	}

	w.printf("cancelled %s", args[0])
}

func (w *ConsoleWorker) handleCancelAll(ctx context.Context) {
	if err := w.server.CancelAll(ctx); err != nil {
		w.printf("cancel-all failed: %v", err)
		return
	}
	w.printf("cancelled all pending events")
}

func (w *ConsoleWorker) handleList(ctx context.Context) {
	events, err := w.server.Events(ctx)
	if err != nil {
		w.printf("list failed: %v", err)
		return
	}

	if len(events) == 0 {
		w.printf("no pending events")
		return
	}
	for _, event := range events {
		w.printf("%-20s fires in %s  %s", event.Name, time.Until(event.FireAt).Round(time.Second), event.Description)
	}
}

func (w *ConsoleWorker) handleListen(ctx context.Context, sub *eventserver.Subscription, args []string) {
	window := defaultListenWindow
	if len(args) == 1 {
		parsed, err := time.ParseDuration(args[0])
		if err != nil {
			w.printf("invalid window %q: %v", args[0], err)
			return
		}
		window = parsed
	}

	w.printf("listening for %s...", window)
	events := sub.Listen(ctx, window)
	if len(events) == 0 {
		w.printf("nothing fired")
		return
	}
	for _, event := range events {
		w.printFired(event)
	}
}

func (w *ConsoleWorker) handleStatus(ctx context.Context) {
	events, err := w.server.Events(ctx)
	if err != nil {
		w.printf("status failed: %v", err)
		return
	}

	status := w.health.GetStatus()
	w.printf("workers: %s, pending events: %d", status.Status, len(events))
	for name, wh := range status.Workers {
		w.printf("  %-20s %s", name, wh.Status)
	}
}

func (w *ConsoleWorker) printHelp() {
	w.printf("commands:")
	w.printf("  add <name> <delay> [description]  schedule a reminder (delay like 90s, 5m, 1h30m)")
	w.printf("  cancel <name>                     cancel a pending reminder")
	w.printf("  cancel-all                        cancel every pending reminder")
	w.printf("  list                              show pending reminders")
	w.printf("  listen [window]                   wait for reminders to fire (default %s)", defaultListenWindow)
	w.printf("  status                            show worker health and pending count")
	w.printf("  quit                              shut chime down")
}

func (w *ConsoleWorker) printFired(event models.Event) {
	firedAt := time.Now()
	if event.FiredAt != nil {
		firedAt = *event.FiredAt
	}
	if event.Description != "" {
		w.printf("⏰ %s fired at %s: %s", event.Name, firedAt.Format(time.Kitchen), event.Description)
		return
	}
	w.printf("⏰ %s fired at %s", event.Name, firedAt.Format(time.Kitchen))
}

func (w *ConsoleWorker) printf(format string, args ...any) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

func (w *ConsoleWorker) prompt() {
	fmt.Fprint(w.out, "> ")
}
