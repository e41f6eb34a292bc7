// ABOUTME: Configuration loading and parsing for the chat client
// ABOUTME: Supports YAML or TOML files, .env loading, ${VAR} expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values applied by Load and Default
const (
	DefaultEndpoint = "http://localhost:8787/chat"
	DefaultAgentID  = "default-agent"
	DefaultUserID   = "local-user"
	DefaultTimeout  = 120 * time.Second
	DefaultBackend  = "file"
	DefaultKey      = "conversations"
	appDirName      = "ultimate-super-space"
)

// Config represents the complete chat client configuration
type Config struct {
	Agent   AgentConfig   `yaml:"agent" toml:"agent"`
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// AgentConfig holds the inference endpoint settings
type AgentConfig struct {
	Endpoint string        `yaml:"endpoint" toml:"endpoint"`
	APIKey   string        `yaml:"api_key" toml:"api_key"`
	AgentID  string        `yaml:"agent_id" toml:"agent_id"`
	UserID   string        `yaml:"user_id" toml:"user_id"`
	Timeout  time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// StorageConfig selects where conversations are persisted
type StorageConfig struct {
	Backend string `yaml:"backend" toml:"backend"` // "file" or "sqlite"
	Path    string `yaml:"path" toml:"path"`
	Key     string `yaml:"key" toml:"key"` // record key for the sqlite backend
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no config file exists.
// The API key is taken from CHAT_API_KEY, which may be set in ./.env.
func Default() *Config {
	loadDotEnv(".env")

	cfg := &Config{}
	cfg.Agent.APIKey = os.Getenv("CHAT_API_KEY")
	applyDefaults(cfg)
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// A .env file next to the config (and one in the working directory) is loaded
// first without overriding existing variables; then ${VAR_NAME} references are
// expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env")

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads each existing file; missing files are skipped.
// godotenv.Load never overrides variables that are already set.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills every empty field with its default
func applyDefaults(cfg *Config) {
	if cfg.Agent.Endpoint == "" {
		cfg.Agent.Endpoint = DefaultEndpoint
	}
	if cfg.Agent.AgentID == "" {
		cfg.Agent.AgentID = DefaultAgentID
	}
	if cfg.Agent.UserID == "" {
		cfg.Agent.UserID = DefaultUserID
	}
	if cfg.Agent.Timeout == 0 {
		cfg.Agent.Timeout = DefaultTimeout
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultBackend
	}
	if cfg.Storage.Key == "" {
		cfg.Storage.Key = DefaultKey
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath(cfg.Storage.Backend)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Agent.Endpoint)
	if err != nil {
		return fmt.Errorf("agent.endpoint is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("agent.endpoint must be an http or https URL")
	}
	if u.Host == "" {
		return fmt.Errorf("agent.endpoint must include a host")
	}

	if c.Agent.Timeout < 0 {
		return fmt.Errorf("agent.timeout must not be negative")
	}

	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be \"file\" or \"sqlite\", got %q", c.Storage.Backend)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Agent.TimeoutRaw != "" {
		cfg.Agent.Timeout, err = time.ParseDuration(cfg.Agent.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.Agent.TimeoutRaw, err)
		}
	}

	return nil
}

// Path returns the config file path.
// Priority: CHAT_CONFIG env var > XDG_CONFIG_HOME/ultimate-super-space/config.yaml > ~/.config/ultimate-super-space/config.yaml
func Path() string {
	if envPath := os.Getenv("CHAT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, appDirName, "config.yaml")
}

// DataDir returns the data directory.
// Priority: XDG_DATA_HOME/ultimate-super-space > ~/.local/share/ultimate-super-space
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, appDirName)
}

// DefaultStoragePath returns the default location for the given backend
func DefaultStoragePath(backend string) string {
	if backend == "sqlite" {
		return filepath.Join(DataDir(), "chat.db")
	}
	return filepath.Join(DataDir(), "conversations.json")
}
