package config

import "github.com/hookdeck/chime/internal/idgen"

// IDGenConfig is the configuration for ID generation
type IDGenConfig struct {
	Type               string `yaml:"type" env:"ID_GEN_TYPE" desc:"ID generation type for all entities: uuidv4, uuidv7, nanoid. Default: uuidv4" required:"N"`
	EventPrefix        string `yaml:"event_prefix" env:"ID_GEN_EVENT_PREFIX" desc:"Prefix for event IDs, prepended with underscore (e.g., 'evt_123'). Default: empty (no prefix)" required:"N"`
	SubscriptionPrefix string `yaml:"subscription_prefix" env:"ID_GEN_SUBSCRIPTION_PREFIX" desc:"Prefix for subscription IDs, prepended with underscore (e.g., 'sub_123'). Default: empty (no prefix)" required:"N"`
}

func (c IDGenConfig) ToConfig() idgen.IDGenConfig {
	return idgen.IDGenConfig{
		Type:               c.Type,
		EventPrefix:        c.EventPrefix,
		SubscriptionPrefix: c.SubscriptionPrefix,
	}
}
