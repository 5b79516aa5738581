package config

import "fmt"

// LogConfig configures the process-wide structured logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // "json" or "text"
	AddSource bool   `yaml:"add_source"`
}

func (l *LogConfig) applyDefaults() {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "json"
	}
}

// Validate reports an unknown level or format.
func (l LogConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", l.Level)
	}
	switch l.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown format %q", l.Format)
	}
	return nil
}
