package config

import "fmt"

// SessionConfig configures the Session Store: its backend and the
// on-disk layout for the file-backed implementation.
type SessionConfig struct {
	// Backend selects the Store implementation: "file", "sqlite", or
	// "postgres".
	Backend string `yaml:"backend"`

	// Dir is the session directory for the file-backed store.
	Dir string `yaml:"dir"`

	// DSN is the connection string for the sqlite/postgres backends.
	DSN string `yaml:"dsn,omitempty"`

	// BackupOnOverwrite keeps the previous revision of a session file
	// before each write, consulted by crash recovery.
	BackupOnOverwrite bool `yaml:"backup_on_overwrite"`
}

func (s *SessionConfig) applyDefaults() {
	if s.Backend == "" {
		s.Backend = "file"
	}
	if s.Dir == "" {
		s.Dir = "sessions"
	}
	s.BackupOnOverwrite = true
}

// Validate reports an unknown backend or a backend missing its required
// location field.
func (s SessionConfig) Validate() error {
	switch s.Backend {
	case "file":
		if s.Dir == "" {
			return fmt.Errorf("dir is required for the file backend")
		}
	case "sqlite", "postgres":
		if s.DSN == "" {
			return fmt.Errorf("dsn is required for the %s backend", s.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	return nil
}
