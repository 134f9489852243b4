package models

import (
	"time"

	"github.com/hookdeck/chime/internal/idgen"
)

const (
	EventStatusPending = "pending"
	EventStatusFired   = "fired"
)

// Event is a named reminder scheduled against the event server. Exactly one
// pending event may exist per name at a time; the name doubles as the
// cancellation key.
type Event struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Delay       time.Duration `json:"delay"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	FireAt      time.Time     `json:"fire_at"`
	FiredAt     *time.Time    `json:"fired_at,omitempty"`
}

// NewEvent creates a pending event. FireAt is derived from the creation time
// and the delay; it is informational, the authoritative countdown runs in the
// timer goroutine.
func NewEvent(name, description string, delay time.Duration) Event {
	now := time.Now()
	return Event{
		ID:          idgen.Event(),
		Name:        name,
		Description: description,
		Delay:       delay,
		Status:      EventStatusPending,
		CreatedAt:   now,
		FireAt:      now.Add(delay),
	}
}

// Fired returns a copy of the event marked as fired at the given time.
func (e Event) Fired(at time.Time) Event {
	e.Status = EventStatusFired
	e.FiredAt = &at
	return e
}
