package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func getConfigLocations() []string {
	return []string{
		// Relative paths
		".env",
		".chime.yaml",
		"config/chime.yaml",
		"config/chime/config.yaml",
		"config/chime/.env",

		// Container-friendly absolute paths
		"/config/chime.yaml",
		"/config/chime/config.yaml",
		"/config/chime/.env",
	}
}

type Config struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	Headless bool   `yaml:"headless" env:"HEADLESS"`

	// Event server
	MailboxSize          int `yaml:"mailbox_size" env:"MAILBOX_SIZE"`
	SubscriberBufferSize int `yaml:"subscriber_buffer_size" env:"SUBSCRIBER_BUFFER_SIZE"`
	MaxPendingEvents     int `yaml:"max_pending_events" env:"MAX_PENDING_EVENTS"`

	// Timeouts
	CancelTimeoutSeconds   int `yaml:"cancel_timeout_seconds" env:"CANCEL_TIMEOUT_SECONDS"`
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" env:"SHUTDOWN_TIMEOUT_SECONDS"`

	// ID Generation
	IDGen IDGenConfig `yaml:"id_gen"`

	// configPath records which config file was loaded, for the startup
	// summary.
	configPath string
}

// Flags are the command-line values that feed into config parsing.
type Flags struct {
	Config string
}

func (c *Config) initDefaults() {
	c.LogLevel = "info"
	c.MailboxSize = 64
	c.SubscriberBufferSize = 16
	c.MaxPendingEvents = 0
	c.CancelTimeoutSeconds = 5
	c.ShutdownTimeoutSeconds = 10
}

// ConfigFilePath returns the path of the config file that was loaded, or
// empty when only defaults and environment variables applied.
func (c *Config) ConfigFilePath() string {
	return c.configPath
}

func (c *Config) parseConfigFile(flagPath string, osInterface OSInterface) error {
	// Get config file path from flag or env
	configPath := flagPath
	if envPath := osInterface.Getenv("CONFIG"); envPath != "" {
		if configPath != "" && configPath != envPath {
			return fmt.Errorf("conflicting config paths: flag=%s env=%s", configPath, envPath)
		}
		configPath = envPath
	}

	// If no explicit config path, try default locations
	if configPath == "" {
		for _, loc := range getConfigLocations() {
			if _, err := osInterface.Stat(loc); err == nil {
				configPath = loc
				break
			}
		}
	}

	if configPath == "" {
		return nil
	}

	data, err := osInterface.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	// Parse based on file extension
	if strings.HasSuffix(strings.ToLower(configPath), ".env") {
		envMap, err := godotenv.Unmarshal(string(data))
		if err != nil {
			return fmt.Errorf("error loading .env file: %w", err)
		}
		if err := env.ParseWithOptions(c, env.Options{
			Environment: envMap,
		}); err != nil {
			return fmt.Errorf("error parsing .env file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("error parsing yaml config: %w", err)
		}
	}

	c.configPath = configPath
	return nil
}

func (c *Config) parseEnvVariables(osInterface OSInterface) error {
	environment := make(map[string]string)
	for _, kv := range osInterface.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			environment[key] = value
		}
	}
	if err := env.ParseWithOptions(c, env.Options{
		Environment: environment,
	}); err != nil {
		return fmt.Errorf("error parsing environment variables: %w", err)
	}
	return nil
}

func Parse(flags Flags) (*Config, error) {
	return ParseWithOS(flags, defaultOS)
}

func ParseWithOS(flags Flags, osInterface OSInterface) (*Config, error) {
	var config Config

	// Initialize defaults
	config.initDefaults()

	// Parse config file
	if err := config.parseConfigFile(flags.Config, osInterface); err != nil {
		return nil, err
	}

	// Parse environment variables (highest priority)
	if err := config.parseEnvVariables(osInterface); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
