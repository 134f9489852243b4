package config

import "go.uber.org/zap"

// LogConfigurationSummary returns zap fields with a configuration summary.
//
// ⚠️ IMPORTANT: When adding new configuration fields, you MUST update this
// function to include them in the startup logs. This helps with
// troubleshooting and ensures configuration visibility.
func (c *Config) LogConfigurationSummary() []zap.Field {
	configFile := c.configPath
	if configFile == "" {
		configFile = "none (using defaults and environment variables)"
	}

	return []zap.Field{
		// General
		zap.String("config_file_path", configFile),
		zap.String("log_level", c.LogLevel),
		zap.Bool("headless", c.Headless),

		// Event server
		zap.Int("mailbox_size", c.MailboxSize),
		zap.Int("subscriber_buffer_size", c.SubscriberBufferSize),
		zap.Int("max_pending_events", c.MaxPendingEvents),

		// Timeouts
		zap.Int("cancel_timeout_seconds", c.CancelTimeoutSeconds),
		zap.Int("shutdown_timeout_seconds", c.ShutdownTimeoutSeconds),

		// ID Generation
		zap.String("idgen_type", c.IDGen.Type),
		zap.String("idgen_event_prefix", c.IDGen.EventPrefix),
		zap.String("idgen_subscription_prefix", c.IDGen.SubscriptionPrefix),
	}
}
