package eventserver

import (
	"context"
	"sync"
	"time"

	"github.com/hookdeck/chime/internal/models"
)

// Subscription is a registered consumer of fired events. Events are
// delivered on C with a bounded buffer; the dispatch loop never waits for a
// slow subscriber.
type Subscription struct {
	id     string
	events chan models.Event
	closed chan struct{}
	server *Server

	closeOnce sync.Once
}

func (s *Subscription) ID() string {
	return s.id
}

// C returns the delivery channel. It is closed when the subscription is
// removed or the server shuts down.
func (s *Subscription) C() <-chan models.Event {
	return s.events
}

// Close removes the subscription from the server. Safe to call more than
// once and after shutdown. When Close returns no further events will be
// delivered.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		cmd := command{kind: cmdUnsubscribe, subID: s.id, reply: make(chan response, 1)}
		select {
		case s.server.cmdc <- cmd:
			select {
			case <-cmd.reply:
			case <-s.server.donec:
			}
		case <-s.server.donec:
		case <-s.closed:
		}
	})
}

// Listen collects events fired during the given window. It returns early if
// the subscription is closed or ctx ends.
func (s *Subscription) Listen(ctx context.Context, window time.Duration) []models.Event {
	deadline := time.NewTimer(window)
	defer deadline.Stop()

	var events []models.Event
	for {
		select {
		case event, ok := <-s.events:
			if !ok {
				return events
			}
			events = append(events, event)
		case <-deadline.C:
			return events
		case <-ctx.Done():
			return events
		}
	}
}
