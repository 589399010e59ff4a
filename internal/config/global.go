package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/peerflow/config.yml.
type GlobalConfig struct {
	RepoPath           string `yaml:"repo_path,omitempty"`
	NotifyWebhook      string `yaml:"notify_webhook,omitempty"`
	NotifyWebhookToken string `yaml:"notify_webhook_token,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "peerflow"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"

	// WebhookTokenEnv is the environment variable consulted for the
	// notification token, loadable from a .env file.
	WebhookTokenEnv = "PEERFLOW_WEBHOOK_TOKEN"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/peerflow/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.RepoPath != "" {
		cfg.RepoPath = ExpandTilde(cfg.RepoPath)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetRepoPath returns the configured default repository path.
func GetRepoPath() string {
	cfg, _ := LoadGlobalConfig()
	return cfg.RepoPath
}

// GetNotifyWebhook returns the notification webhook URL, preferring the
// repository config value when set.
func GetNotifyWebhook(repoCfg *Config) string {
	if repoCfg != nil && repoCfg.NotifyWebhook != "" {
		return repoCfg.NotifyWebhook
	}
	cfg, _ := LoadGlobalConfig()
	return cfg.NotifyWebhook
}

// GetWebhookToken returns the notification bearer token. Order: environment
// (including a .env file in the working directory), then global config.
func GetWebhookToken() string {
	godotenv.Load()
	if token := os.Getenv(WebhookTokenEnv); token != "" {
		return token
	}
	cfg, _ := LoadGlobalConfig()
	return cfg.NotifyWebhookToken
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// HelpfulConfigMessage returns a helpful message when no repository is found.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No peerflow repository found.

Tip: run 'peerflow init' in your workflow directory, or create %s to set a default:
  mkdir -p %s
  echo 'repo_path: /path/to/your/repo' > %s`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
