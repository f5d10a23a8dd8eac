package store

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

// IDStyle selects how record ids are generated.
type IDStyle string

const (
	// IDStyleUUID generates explicit UUIDv7 ids at create time.
	IDStyleUUID IDStyle = "uuid"

	// IDStylePush generates push-style keys: time-ordered ULIDs that
	// sort lexicographically by creation time, matching the key shape
	// a server-assigned push id has.
	IDStylePush IDStyle = "push"
)

// Config holds the store's construction-time settings.
type Config struct {
	// BasePath prefixes every record path.
	BasePath string `yaml:"base_path"`

	// GroupPaths maps logical group names (from model descriptors) to
	// path segments inserted between the base path and the model name.
	GroupPaths map[string]string `yaml:"group_paths,omitempty"`

	// IDStyle is "uuid" or "push". Defaults to push.
	IDStyle IDStyle `yaml:"id_style,omitempty"`

	// Database is the SQLite file path used by the CLI when no --db
	// flag is given. The library itself takes a remote.Client directly.
	Database string `yaml:"database,omitempty"`
}

// Validate checks the configuration, applying defaults in place.
func (c *Config) Validate() error {
	if c.IDStyle == "" {
		c.IDStyle = IDStylePush
	}
	switch c.IDStyle {
	case IDStyleUUID, IDStylePush:
	default:
		return fmt.Errorf("config: invalid id_style %q (want %q or %q)",
			c.IDStyle, IDStyleUUID, IDStylePush)
	}
	return nil
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newID generates a record id in the configured style.
func (c *Config) newID() string {
	if c.IDStyle == IDStyleUUID {
		return uuid.Must(uuid.NewV7()).String()
	}
	return ulid.Make().String()
}
