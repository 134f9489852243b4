// Package eventserver implements the reminder event server. It keeps a
// registry of named pending events, each backed by a countdown timer linked
// to the server's run context, and forwards fired events to subscribed
// clients.
//
// All registry and subscriber state is owned by the single dispatch
// goroutine inside Run. Public methods communicate with it over a command
// channel, so no locks are involved and operations are serialized in
// arrival order.
package eventserver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hookdeck/chime/internal/countdown"
	"github.com/hookdeck/chime/internal/emetrics"
	"github.com/hookdeck/chime/internal/idgen"
	"github.com/hookdeck/chime/internal/logging"
	"github.com/hookdeck/chime/internal/models"
)

var (
	ErrServerClosed   = errors.New("eventserver: server closed")
	ErrDuplicateEvent = errors.New("eventserver: event name already scheduled")
	ErrEventNotFound  = errors.New("eventserver: no event with that name")
	ErrTooManyEvents  = errors.New("eventserver: pending event limit reached")
)

const (
	defaultMailboxSize      = 64
	defaultSubscriberBuffer = 16
)

// AddEventInput describes an event to schedule. Name is required because it
// keys the registry; Delay must be non-negative.
type AddEventInput struct {
	Name        string        `json:"name" validate:"required"`
	Description string        `json:"description"`
	Delay       time.Duration `json:"delay" validate:"gte=0"`
}

type commandKind int

const (
	cmdAdd commandKind = iota
	cmdCancel
	cmdCancelAll
	cmdList
	cmdSubscribe
	cmdUnsubscribe
	cmdShutdown
)

type command struct {
	kind  commandKind
	input AddEventInput
	name  string
	subID string
	reply chan response
}

type response struct {
	err     error
	event   models.Event
	events  []models.Event
	sub     *Subscription
	targets []cancelTarget
}

type cancelTarget struct {
	event models.Event
	timer *countdown.Timer
}

type entry struct {
	event models.Event
	timer *countdown.Timer
}

type Server struct {
	logger   *logging.Logger
	emeter   emetrics.ChimeMetrics
	validate *validator.Validate

	mailboxSize      int
	subscriberBuffer int
	maxPending       int

	cmdc   chan command
	notifc chan countdown.Notification
	donec  chan struct{}

	// Owned by the dispatch loop; never touched from other goroutines.
	entries map[string]*entry
	subs    map[string]*Subscription
}

type Option func(*Server)

// WithMailboxSize sets the capacity of the notification mailbox between
// countdown timers and the dispatch loop.
func WithMailboxSize(n int) Option {
	return func(s *Server) {
		s.mailboxSize = n
	}
}

// WithSubscriberBufferSize sets the per-subscription delivery buffer.
// Subscribers whose buffer is full miss events instead of stalling dispatch.
func WithSubscriberBufferSize(n int) Option {
	return func(s *Server) {
		s.subscriberBuffer = n
	}
}

// WithMaxPendingEvents caps the number of pending events. 0 means unlimited.
func WithMaxPendingEvents(n int) Option {
	return func(s *Server) {
		s.maxPending = n
	}
}

func New(logger *logging.Logger, opts ...Option) *Server {
	emeter, _ := emetrics.New()
	s := &Server{
		logger:           logger,
		emeter:           emeter,
		validate:         validator.New(),
		mailboxSize:      defaultMailboxSize,
		subscriberBuffer: defaultSubscriberBuffer,
		entries:          make(map[string]*entry),
		subs:             make(map[string]*Subscription),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.cmdc = make(chan command)
	s.notifc = make(chan countdown.Notification, s.mailboxSize)
	s.donec = make(chan struct{})
	return s
}

// Run executes the dispatch loop until ctx is cancelled or Shutdown is
// called. Countdown timers are linked to the run context, so when Run
// returns every pending timer is torn down without firing.
func (s *Server) Run(ctx context.Context) error {
	logger := s.logger.Ctx(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer s.teardown()
	defer cancel()

	logger.Info("event server started",
		zap.Int("mailbox_size", s.mailboxSize),
		zap.Int("subscriber_buffer_size", s.subscriberBuffer),
		zap.Int("max_pending_events", s.maxPending))

	for {
		select {
		case cmd := <-s.cmdc:
			if stop := s.handleCommand(runCtx, cmd); stop {
				logger.Info("event server stopped",
					zap.Int("pending_events", len(s.entries)))
				return nil
			}
		case n := <-s.notifc:
			s.handleNotification(runCtx, n)
		case <-ctx.Done():
			logger.Info("event server stopping",
				zap.Int("pending_events", len(s.entries)))
			return ctx.Err()
		}
	}
}

// AddEvent schedules a named reminder. The countdown starts immediately and
// a Notification-driven dispatch will fan the event out to subscribers when
// it fires. Names must be unique among pending events.
func (s *Server) AddEvent(ctx context.Context, input AddEventInput) (models.Event, error) {
	if err := s.validate.Struct(input); err != nil {
		return models.Event{}, fmt.Errorf("invalid event: %w", err)
	}

	res, err := s.do(ctx, command{kind: cmdAdd, input: input})
	if err != nil {
		return models.Event{}, err
	}
	return res.event, nil
}

// CancelEvent removes a pending event and stops its countdown, blocking
// until the timer acknowledges. If the event fired while the cancellation
// was in flight the entry is gone either way; the stray notification is
// dropped by the dispatch loop.
func (s *Server) CancelEvent(ctx context.Context, name string) error {
	res, err := s.do(ctx, command{kind: cmdCancel, name: name})
	if err != nil {
		return err
	}

	target := res.targets[0]
	if err := target.timer.Cancel(ctx); err != nil {
		if errors.Is(err, countdown.ErrNotFound) {
			s.logger.Ctx(ctx).Debug("event fired during cancellation",
				zap.String("event_name", name))
			return nil
		}
		return err
	}

	s.emeter.EventCancelled(ctx, &target.event)
	s.logger.Ctx(ctx).Info("event cancelled",
		zap.String("event_id", target.event.ID),
		zap.String("event_name", name))
	return nil
}

// CancelAll removes every pending event and stops the countdowns
// concurrently. Timers that fire while the sweep runs are not errors; their
// notifications are dropped as strays.
func (s *Server) CancelAll(ctx context.Context) error {
	res, err := s.do(ctx, command{kind: cmdCancelAll})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range res.targets {
		g.Go(func() error {
			if err := target.timer.Cancel(gctx); err != nil {
				if errors.Is(err, countdown.ErrNotFound) {
					return nil
				}
				return err
			}
			s.emeter.EventCancelled(gctx, &target.event)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Ctx(ctx).Info("all events cancelled", zap.Int("count", len(res.targets)))
	return nil
}

// Events returns a snapshot of pending events ordered by fire time.
func (s *Server) Events(ctx context.Context) ([]models.Event, error) {
	res, err := s.do(ctx, command{kind: cmdList})
	if err != nil {
		return nil, err
	}
	return res.events, nil
}

// Subscribe registers a client for fired events. The subscription lives
// until Close is called, ctx ends, or the server shuts down; in every case
// its channel is closed by the dispatch loop.
func (s *Server) Subscribe(ctx context.Context) (*Subscription, error) {
	res, err := s.do(ctx, command{kind: cmdSubscribe})
	if err != nil {
		return nil, err
	}

	go s.watchSubscriber(ctx, res.sub)
	return res.sub, nil
}

// Shutdown stops the dispatch loop and tears down all pending countdowns
// without firing them. It blocks until the loop has exited.
func (s *Server) Shutdown(ctx context.Context) error {
	if _, err := s.do(ctx, command{kind: cmdShutdown}); err != nil {
		return err
	}

	select {
	case <-s.donec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// do sends a command to the dispatch loop and waits for its reply. Reply
// channels are buffered so the loop never blocks on a caller that gave up.
func (s *Server) do(ctx context.Context, cmd command) (response, error) {
	cmd.reply = make(chan response, 1)

	select {
	case s.cmdc <- cmd:
	case <-s.donec:
		return response{}, ErrServerClosed
	case <-ctx.Done():
		return response{}, ctx.Err()
	}

	select {
	case res := <-cmd.reply:
		return res, res.err
	case <-s.donec:
		// The loop may have replied just before exiting.
		select {
		case res := <-cmd.reply:
			return res, res.err
		default:
		}
		return response{}, ErrServerClosed
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

func (s *Server) watchSubscriber(ctx context.Context, sub *Subscription) {
	select {
	case <-ctx.Done():
		sub.Close()
	case <-sub.closed:
	}
}

func (s *Server) handleCommand(ctx context.Context, cmd command) bool {
	switch cmd.kind {
	case cmdAdd:
		cmd.reply <- s.handleAdd(ctx, cmd.input)
	case cmdCancel:
		ent, ok := s.entries[cmd.name]
		if !ok {
			cmd.reply <- response{err: ErrEventNotFound}
			break
		}
		// Remove the entry first; the blocking timer cancellation happens
		// on the caller's goroutine so the loop stays free to dispatch.
		delete(s.entries, cmd.name)
		cmd.reply <- response{targets: []cancelTarget{{event: ent.event, timer: ent.timer}}}
	case cmdCancelAll:
		targets := make([]cancelTarget, 0, len(s.entries))
		for _, ent := range s.entries {
			targets = append(targets, cancelTarget{event: ent.event, timer: ent.timer})
		}
		clear(s.entries)
		cmd.reply <- response{targets: targets}
	case cmdList:
		events := make([]models.Event, 0, len(s.entries))
		for _, ent := range s.entries {
			events = append(events, ent.event)
		}
		slices.SortFunc(events, func(a, b models.Event) int {
			if c := a.FireAt.Compare(b.FireAt); c != 0 {
				return c
			}
			return strings.Compare(a.Name, b.Name)
		})
		cmd.reply <- response{events: events}
	case cmdSubscribe:
		sub := &Subscription{
			id:     idgen.Subscription(),
			events: make(chan models.Event, s.subscriberBuffer),
			closed: make(chan struct{}),
			server: s,
		}
		s.subs[sub.id] = sub
		s.logger.Ctx(ctx).Debug("subscriber added",
			zap.String("subscription_id", sub.id),
			zap.Int("subscribers", len(s.subs)))
		cmd.reply <- response{sub: sub}
	case cmdUnsubscribe:
		if sub, ok := s.subs[cmd.subID]; ok {
			delete(s.subs, cmd.subID)
			close(sub.events)
			close(sub.closed)
			s.logger.Ctx(ctx).Debug("subscriber removed",
				zap.String("subscription_id", cmd.subID),
				zap.Int("subscribers", len(s.subs)))
		}
		cmd.reply <- response{}
	case cmdShutdown:
		cmd.reply <- response{}
		return true
	}
	return false
}

func (s *Server) handleAdd(ctx context.Context, input AddEventInput) response {
	if _, exists := s.entries[input.Name]; exists {
		return response{err: ErrDuplicateEvent}
	}
	if s.maxPending > 0 && len(s.entries) >= s.maxPending {
		return response{err: ErrTooManyEvents}
	}

	event := models.NewEvent(input.Name, input.Description, input.Delay)
	timer := countdown.StartLinked(ctx, s.notifc, event.Name, event.Delay)
	s.entries[event.Name] = &entry{event: event, timer: timer}

	s.emeter.EventScheduled(ctx, &event)
	s.logger.Ctx(ctx).Info("event scheduled",
		zap.String("event_id", event.ID),
		zap.String("event_name", event.Name),
		zap.Duration("delay", event.Delay),
		zap.Time("fire_at", event.FireAt))

	return response{event: event}
}

func (s *Server) handleNotification(ctx context.Context, n countdown.Notification) {
	ent, ok := s.entries[n.Name]
	if !ok {
		// The event was cancelled while its fire was in flight.
		s.logger.Ctx(ctx).Debug("dropped stray notification",
			zap.String("event_name", n.Name))
		return
	}
	delete(s.entries, n.Name)

	fired := ent.event.Fired(n.FiredAt)
	s.emeter.EventFired(ctx, &fired)

	delivered := 0
	for _, sub := range s.subs {
		select {
		case sub.events <- fired:
			delivered++
		default:
			s.logger.Ctx(ctx).Warn("subscriber buffer full, dropping event",
				zap.String("subscription_id", sub.id),
				zap.String("event_id", fired.ID),
				zap.String("event_name", fired.Name))
		}
	}
	s.emeter.NotificationsDispatched(ctx, delivered)

	s.logger.Ctx(ctx).Info("event fired",
		zap.String("event_id", fired.ID),
		zap.String("event_name", fired.Name),
		zap.Int("subscribers_notified", delivered))
}

// teardown closes all subscriber channels and marks the server closed. It
// runs exactly once, when the dispatch loop exits; the countdown timers are
// already tearing down through the cancelled run context.
func (s *Server) teardown() {
	for _, sub := range s.subs {
		close(sub.events)
		close(sub.closed)
	}
	clear(s.subs)
	clear(s.entries)
	close(s.donec)
}
