package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML configuration file schema.
type FileConfig struct {
	Listen        ListenConfig         `yaml:"listen"`
	Log           LogConfig            `yaml:"log"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
}

// ListenConfig selects exactly one transport.
type ListenConfig struct {
	// Address is the TCP listen address for the socket listener,
	// e.g. ":1028". Leave empty to use NATS instead.
	Address string `yaml:"address"`

	// NATS configures the broker-topic listener.
	NATS NATSConfig `yaml:"nats"`
}

// NATSConfig configures the broker-topic listener.
type NATSConfig struct {
	URL   string `yaml:"url"`
	Topic string `yaml:"topic"`
}

// LogConfig configures protocol event logging.
type LogConfig struct {
	// File receives CBOR-encoded protocol events. Empty disables it.
	File string `yaml:"file"`

	// Level is the slog level for console logging: debug, info, warn,
	// error. Default info.
	Level string `yaml:"level"`
}

// SubscriptionConfig registers one subscription at startup.
type SubscriptionConfig struct {
	ID   string `yaml:"id"`
	Mode string `yaml:"mode"` // "full" or "diff", default full
}

// LoadConfig parses a YAML configuration file.
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, cfg.validate()
}

func (c *FileConfig) validate() error {
	if c.Listen.Address != "" && c.Listen.NATS.URL != "" {
		return fmt.Errorf("config selects both a listen address and a NATS URL; pick one")
	}
	if c.Listen.Address == "" && c.Listen.NATS.URL == "" {
		return fmt.Errorf("config selects no transport; set listen.address or listen.nats.url")
	}
	if c.Listen.NATS.URL != "" && c.Listen.NATS.Topic == "" {
		return fmt.Errorf("listen.nats.topic is required with listen.nats.url")
	}
	for i, sub := range c.Subscriptions {
		if sub.ID == "" {
			return fmt.Errorf("subscriptions[%d]: id is required", i)
		}
		switch sub.Mode {
		case "", "full", "diff":
		default:
			return fmt.Errorf("subscriptions[%d]: unknown mode %q", i, sub.Mode)
		}
	}
	return nil
}
