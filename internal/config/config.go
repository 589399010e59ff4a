// Package config handles repository and global configuration.
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/peerflow/peerflow/internal/blind"
)

// Config represents repository configuration stored in .peerflow/config.json.
type Config struct {
	Venue           string `json:"venue,omitempty"`             // Default conference/venue ref for submissions
	BlindKey        string `json:"blind_key"`                   // Hex key for blind-review pseudonyms
	NotifyWebhook   string `json:"notify_webhook,omitempty"`    // Notification service endpoint
	DefaultDueDays  int    `json:"default_due_days,omitempty"`  // Default review due window
	DefaultMaxMatch int    `json:"default_max_match,omitempty"` // Default matcher result count
}

const (
	PeerflowDir = ".peerflow"
	ConfigFile  = "config.json"
	DBFile      = "engine.db"
)

// PeerflowPath returns the path to the .peerflow directory from a root path.
func PeerflowPath(root string) string {
	return filepath.Join(root, PeerflowDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, PeerflowDir, ConfigFile)
}

// DBPath returns the path to engine.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, PeerflowDir, DBFile)
}

// IsRepository checks if the given path contains a peerflow repository.
func IsRepository(root string) bool {
	info, err := os.Stat(PeerflowPath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find a peerflow repository.
// Returns the repository root path or an error if not found.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a peerflow repository (no .peerflow directory found)")
		}
		abs = parent
	}
}

// Init creates the .peerflow directory and a fresh config with a generated
// blind-review key. Fails if the repository already exists.
func Init(root string) (*Config, error) {
	dir := PeerflowPath(root)
	if IsRepository(root) {
		return nil, fmt.Errorf("peerflow repository already exists at %s", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	key, err := blind.GenerateKey()
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		BlindKey:       hex.EncodeToString(key),
		DefaultDueDays: 14,
	}
	if err := Save(root, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads configuration from the repository at the given root.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes configuration to the repository at the given root.
func Save(root string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// BlindKeyBytes decodes the configured blind-review key.
func (c *Config) BlindKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.BlindKey)
	if err != nil {
		return nil, fmt.Errorf("decoding blind key: %w", err)
	}
	return key, nil
}
