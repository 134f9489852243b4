package config

import (
	"errors"
	"strings"

	"github.com/hookdeck/chime/internal/idgen"
)

var (
	ErrInvalidLogLevel         = errors.New("invalid log level")
	ErrInvalidMailboxSize      = errors.New("mailbox size must be positive")
	ErrInvalidSubscriberBuffer = errors.New("subscriber buffer size must be positive")
	ErrInvalidMaxPending       = errors.New("max pending events must not be negative")
	ErrInvalidTimeout          = errors.New("timeout seconds must not be negative")
	ErrInvalidIDGenType        = errors.New("invalid id generation type")
)

var validLogLevels = map[string]struct{}{
	"":        {},
	"debug":   {},
	"info":    {},
	"warn":    {},
	"warning": {},
	"error":   {},
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateLogLevel(); err != nil {
		return err
	}

	if err := c.validateEventServer(); err != nil {
		return err
	}

	if err := c.validateTimeouts(); err != nil {
		return err
	}

	return c.validateIDGen()
}

func (c *Config) validateLogLevel() error {
	if _, ok := validLogLevels[strings.ToLower(c.LogLevel)]; !ok {
		return ErrInvalidLogLevel
	}
	return nil
}

func (c *Config) validateEventServer() error {
	if c.MailboxSize <= 0 {
		return ErrInvalidMailboxSize
	}
	if c.SubscriberBufferSize <= 0 {
		return ErrInvalidSubscriberBuffer
	}
	if c.MaxPendingEvents < 0 {
		return ErrInvalidMaxPending
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	if c.CancelTimeoutSeconds < 0 {
		return ErrInvalidTimeout
	}
	if c.ShutdownTimeoutSeconds < 0 {
		return ErrInvalidTimeout
	}
	return nil
}

func (c *Config) validateIDGen() error {
	if !idgen.ValidType(c.IDGen.Type) {
		return ErrInvalidIDGenType
	}
	return nil
}
