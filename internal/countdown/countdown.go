// Package countdown implements one-shot cancellable reminder timers.
//
// Each timer runs in its own goroutine, waits for a fixed delay, and then
// sends exactly one Notification to its owner channel. A timer can be
// cancelled while it is still waiting; cancellation blocks until the timer
// goroutine acknowledges, so when Cancel returns nil the owner is guaranteed
// to never receive a notification for that timer.
package countdown

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Cancel when the countdown has already reached a
// terminal state, either because it fired or because it was cancelled before.
var ErrNotFound = errors.New("countdown: no live countdown")

// Notification is the single message a countdown delivers when it expires.
type Notification struct {
	Name    string
	FiredAt time.Time
}

type cancelRequest struct {
	ack chan struct{}
}

// Timer is a handle to one running countdown. A Timer reaches exactly one of
// two terminal states: fired (the owner received a Notification) or cancelled
// (a Cancel call was acknowledged). The handle stays valid after the terminal
// state; operations on it then report ErrNotFound.
type Timer struct {
	name  string
	delay time.Duration

	// cancelc is unbuffered. A send on it succeeds only while the timer
	// goroutine is still waiting, which makes the rendezvous the point
	// where the cancel-vs-expiry race is decided.
	cancelc chan cancelRequest
	done    chan struct{}
}

// Start spawns a countdown that sends one Notification on owner after delay.
// The wait begins immediately. A negative delay is treated as zero. The
// notification send blocks until the owner receives it, so owners that may
// be slow to drain should use a buffered channel.
//
// The countdown is not tied to any context and runs to completion even if
// the creator goroutine exits.
func Start(owner chan<- Notification, name string, delay time.Duration) *Timer {
	return StartLinked(context.Background(), owner, name, delay)
}

// StartLinked is like Start but ties the countdown to ctx. If ctx ends
// before the countdown fires, the goroutine is torn down without sending
// anything and without needing an explicit Cancel.
func StartLinked(ctx context.Context, owner chan<- Notification, name string, delay time.Duration) *Timer {
	if delay < 0 {
		delay = 0
	}
	t := &Timer{
		name:    name,
		delay:   delay,
		cancelc: make(chan cancelRequest),
		done:    make(chan struct{}),
	}
	go t.run(ctx, owner)
	return t
}

// Name returns the name the countdown was created with. Names are opaque
// here; they may be empty and need not be unique.
func (t *Timer) Name() string {
	return t.name
}

// Delay returns the delay the countdown was created with. It is immutable
// for the lifetime of the timer.
func (t *Timer) Delay() time.Duration {
	return t.delay
}

// Done returns a channel that is closed once the countdown has reached a
// terminal state and its goroutine has exited.
func (t *Timer) Done() <-chan struct{} {
	return t.done
}

// Cancel stops the countdown before it fires. It blocks until the timer
// goroutine acknowledges the cancellation, so a nil return guarantees no
// notification was or will be delivered.
//
// If the countdown already fired or was already cancelled, Cancel returns
// ErrNotFound. If ctx ends first, Cancel returns ctx.Err(); the countdown
// itself is unaffected in that case.
func (t *Timer) Cancel(ctx context.Context) error {
	req := cancelRequest{ack: make(chan struct{})}
	select {
	case t.cancelc <- req:
		<-req.ack
		return nil
	case <-t.done:
		return ErrNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Timer) run(ctx context.Context, owner chan<- Notification) {
	defer close(t.done)

	expiry := time.NewTimer(t.delay)
	defer expiry.Stop()

	select {
	case firedAt := <-expiry.C:
		// The fire is committed. Late cancellers resolve to ErrNotFound
		// through the done channel once the notification is delivered.
		select {
		case owner <- Notification{Name: t.name, FiredAt: firedAt}:
		case <-ctx.Done():
		}
	case req := <-t.cancelc:
		close(req.ack)
	case <-ctx.Done():
	}
}
