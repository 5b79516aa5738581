package config

import "fmt"

// EventBusConfig configures the Event Bus's WebSocket exporter (C10): an
// optional out-of-process subscriber that mirrors every Agent Runtime
// event to connected clients, alongside the in-process sinks the Runtime
// always drives.
type EventBusConfig struct {
	// Enabled controls whether `forge serve` mounts the exporter at all.
	Enabled bool `yaml:"enabled"`

	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

func (e *EventBusConfig) applyDefaults() {
	if e.Bind == "" {
		e.Bind = "127.0.0.1"
	}
	if e.Port == 0 {
		e.Port = 8089
	}
	if e.Path == "" {
		e.Path = "/events"
	}
}

func (e EventBusConfig) Validate() error {
	if !e.Enabled {
		return nil
	}
	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if e.Path == "" {
		return fmt.Errorf("path is required when enabled")
	}
	return nil
}
