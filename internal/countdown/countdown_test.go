package countdown

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_FiresAfterDelay(t *testing.T) {
	t.Parallel()

	owner := make(chan Notification, 1)
	start := time.Now()
	timer := Start(owner, "meeting", 100*time.Millisecond)

	select {
	case n := <-owner:
		elapsed := time.Since(start)
		assert.Equal(t, "meeting", n.Name)
		assert.False(t, n.FiredAt.IsZero(), "notification should carry the fire time")
		assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond,
			"notification must not arrive before the delay elapses")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}

	select {
	case <-timer.Done():
	case <-time.After(time.Second):
		t.Fatal("timer did not reach a terminal state after firing")
	}
}

func TestTimer_ZeroDelayFiresImmediately(t *testing.T) {
	t.Parallel()

	owner := make(chan Notification, 1)
	Start(owner, "now", 0)

	select {
	case n := <-owner:
		assert.Equal(t, "now", n.Name)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("zero-delay timer did not fire immediately")
	}
}

func TestTimer_NegativeDelayTreatedAsZero(t *testing.T) {
	t.Parallel()

	owner := make(chan Notification, 1)
	timer := Start(owner, "past", -time.Second)
	assert.Equal(t, time.Duration(0), timer.Delay())

	select {
	case <-owner:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("negative-delay timer did not fire immediately")
	}
}

func TestTimer_EmptyNameAllowed(t *testing.T) {
	t.Parallel()

	owner := make(chan Notification, 1)
	Start(owner, "", 10*time.Millisecond)

	select {
	case n := <-owner:
		assert.Equal(t, "", n.Name)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timer with empty name did not fire")
	}
}

func TestTimer_CancelBeforeExpiry(t *testing.T) {
	t.Parallel()

	owner := make(chan Notification, 1)
	timer := Start(owner, "later", 200*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, timer.Cancel(context.Background()))

	// No notification may arrive, including after the original deadline.
	select {
	case n := <-owner:
		t.Fatalf("received notification %q after successful cancel", n.Name)
	case <-time.After(400 * time.Millisecond):
	}

	select {
	case <-timer.Done():
	case <-time.After(time.Second):
		t.Fatal("cancelled timer did not reach a terminal state")
	}
}

func TestTimer_CancelAfterFire(t *testing.T) {
	t.Parallel()

	owner := make(chan Notification, 1)
	timer := Start(owner, "done", 10*time.Millisecond)

	select {
	case <-timer.Done():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := timer.Cancel(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Less(t, time.Since(start), 100*time.Millisecond,
		"cancel against a fired timer must fail fast, not hang")

	// The delivered notification is unaffected by the failed cancel.
	select {
	case n := <-owner:
		assert.Equal(t, "done", n.Name)
	default:
		t.Fatal("notification missing after fire")
	}
}

func TestTimer_CancelBlockedDeliveryHonorsContext(t *testing.T) {
	t.Parallel()

	// Unbuffered owner that is never drained. The timer fires and blocks on
	// delivery, so a cancel can neither rendezvous nor observe completion.
	// The canceller's context bounds the wait.
	owner := make(chan Notification)
	timer := Start(owner, "stuck", 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := timer.Cancel(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	// Draining the owner lets the timer finish; a later cancel sees not-found.
	<-owner
	assert.ErrorIs(t, timer.Cancel(context.Background()), ErrNotFound)
}

func TestTimer_DoubleCancel(t *testing.T) {
	t.Parallel()

	owner := make(chan Notification, 1)
	timer := Start(owner, "twice", 200*time.Millisecond)

	assert.NoError(t, timer.Cancel(context.Background()))
	assert.ErrorIs(t, timer.Cancel(context.Background()), ErrNotFound)
}

func TestTimer_ConcurrentCancels(t *testing.T) {
	t.Parallel()

	owner := make(chan Notification, 1)
	timer := Start(owner, "contended", 100*time.Millisecond)

	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			results <- timer.Cancel(context.Background())
		}()
	}

	var acked, notFound int
	for i := 0; i < 5; i++ {
		switch err := <-results; {
		case err == nil:
			acked++
		case errors.Is(err, ErrNotFound):
			notFound++
		default:
			t.Fatalf("unexpected cancel error: %v", err)
		}
	}

	assert.Equal(t, 1, acked, "exactly one canceller may win")
	assert.Equal(t, 4, notFound)

	select {
	case n := <-owner:
		t.Fatalf("received notification %q after cancel", n.Name)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestTimer_LinkedTeardown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	owner := make(chan Notification, 1)
	timer := StartLinked(ctx, owner, "linked", 200*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-timer.Done():
	case <-time.After(time.Second):
		t.Fatal("linked timer did not tear down with its context")
	}

	select {
	case n := <-owner:
		t.Fatalf("torn-down timer delivered notification %q", n.Name)
	case <-time.After(400 * time.Millisecond):
	}

	assert.ErrorIs(t, timer.Cancel(context.Background()), ErrNotFound)
}

func TestTimer_LinkedFiresBeforeTeardown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	owner := make(chan Notification, 1)
	StartLinked(ctx, owner, "quick", 10*time.Millisecond)

	select {
	case n := <-owner:
		assert.Equal(t, "quick", n.Name)
	case <-time.After(time.Second):
		t.Fatal("linked timer did not fire while its context was live")
	}
}

// TestTimer_ExactlyOnce races cancellation against expiry across many timers
// and verifies every timer produces exactly one outcome: either its owner got
// the notification or a canceller got the acknowledgement, never both and
// never neither.
func TestTimer_ExactlyOnce(t *testing.T) {
	t.Parallel()

	const count = 50
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	type outcome struct {
		cancelled bool
		notFound  bool
	}

	owners := make([]chan Notification, count)
	timers := make([]*Timer, count)
	outcomes := make([]outcome, count)

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		owners[i] = make(chan Notification, 1)
		delay := time.Duration(10+rng.Intn(50)) * time.Millisecond
		timers[i] = Start(owners[i], fmt.Sprintf("timer-%d", i), delay)

		wg.Add(1)
		go func(i int, cancelAfter time.Duration) {
			defer wg.Done()
			time.Sleep(cancelAfter)
			switch err := timers[i].Cancel(context.Background()); {
			case err == nil:
				outcomes[i].cancelled = true
			case errors.Is(err, ErrNotFound):
				outcomes[i].notFound = true
			default:
				t.Errorf("timer-%d: unexpected cancel error: %v", i, err)
			}
		}(i, time.Duration(rng.Intn(60))*time.Millisecond)
	}
	wg.Wait()

	for i := 0; i < count; i++ {
		<-timers[i].Done()

		var fired bool
		select {
		case <-owners[i]:
			fired = true
		default:
		}

		if outcomes[i].cancelled && fired {
			t.Errorf("timer-%d: both cancelled and fired", i)
		}
		if outcomes[i].notFound && !fired {
			t.Errorf("timer-%d: cancel saw not-found but no notification was delivered", i)
		}
		if !outcomes[i].cancelled && !fired {
			t.Errorf("timer-%d: no outcome at all", i)
		}
	}
}

// TestTimer_ReminderSession walks through a typical session: an immediate
// reminder fires right away, while a long one is cancelled partway through
// and stays silent past its original deadline.
func TestTimer_ReminderSession(t *testing.T) {
	t.Parallel()

	owner := make(chan Notification, 2)

	Start(owner, "Event", 0)
	select {
	case n := <-owner:
		require.Equal(t, "Event", n.Name)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("immediate reminder did not fire")
	}

	long := Start(owner, "LongEvent", 3*time.Second)
	time.Sleep(time.Second)
	require.NoError(t, long.Cancel(context.Background()))

	select {
	case n := <-owner:
		t.Fatalf("cancelled reminder %q fired anyway", n.Name)
	case <-time.After(3 * time.Second):
	}
}
