package idgen

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Supported ID generation types.
const (
	TypeUUIDv4 = "uuidv4"
	TypeUUIDv7 = "uuidv7"
	TypeNanoID = "nanoid"
)

const (
	nanoidAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	nanoidSize     = 26
)

// IDGenConfig contains ID generation settings for all entity types.
type IDGenConfig struct {
	Type               string
	EventPrefix        string
	SubscriptionPrefix string
}

type generator struct {
	newID  func() string
	prefix string
}

func (g generator) generate() string {
	id := g.newID()
	if g.prefix != "" {
		return g.prefix + "_" + id
	}
	return id
}

var (
	eventGenerator        = generator{newID: newUUIDv4}
	subscriptionGenerator = generator{newID: newUUIDv4}
)

func newIDFunc(idType string) (func() string, error) {
	switch idType {
	case "", TypeUUIDv4:
		return newUUIDv4, nil
	case TypeUUIDv7:
		return newUUIDv7, nil
	case TypeNanoID:
		return newNanoID, nil
	default:
		return nil, fmt.Errorf("unknown ID type: %q", idType)
	}
}

// ValidType reports whether idType names a supported generator. The empty
// string is valid and selects the default (UUID v4).
func ValidType(idType string) bool {
	_, err := newIDFunc(idType)
	return err == nil
}

func newUUIDv4() string {
	return uuid.New().String()
}

func newUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the random source does. Fall back to v4.
		return uuid.New().String()
	}
	return id.String()
}

func newNanoID() string {
	id, err := gonanoid.Generate(nanoidAlphabet, nanoidSize)
	if err != nil {
		return uuid.New().String()
	}
	return id
}

// Configure sets up all ID generators based on the provided config.
// This should be called once at application startup before any concurrent usage.
func Configure(cfg IDGenConfig) error {
	newID, err := newIDFunc(cfg.Type)
	if err != nil {
		return fmt.Errorf("failed to configure ID generators: %w", err)
	}
	eventGenerator = generator{newID: newID, prefix: cfg.EventPrefix}
	subscriptionGenerator = generator{newID: newID, prefix: cfg.SubscriptionPrefix}
	return nil
}

// Event generates an event ID using the configured generator.
// Defaults to UUID v4 if not configured via Configure().
func Event() string {
	return eventGenerator.generate()
}

// Subscription generates a subscription ID using the configured generator.
// Defaults to UUID v4 if not configured via Configure().
func Subscription() string {
	return subscriptionGenerator.generate()
}
