// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, .env and env var expansion, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
agent:
  endpoint: "https://inference.example.com/v3/inference/chat/"
  api_key: "sk-test"
  agent_id: "agent-1"
  user_id: "me@example.com"
  timeout: "45s"

storage:
  backend: "sqlite"
  path: "/tmp/chat.db"
  key: "threads"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Agent.Endpoint != "https://inference.example.com/v3/inference/chat/" {
		t.Errorf("Agent.Endpoint = %q", cfg.Agent.Endpoint)
	}
	if cfg.Agent.APIKey != "sk-test" {
		t.Errorf("Agent.APIKey = %q", cfg.Agent.APIKey)
	}
	if cfg.Agent.AgentID != "agent-1" || cfg.Agent.UserID != "me@example.com" {
		t.Errorf("identifiers = %q, %q", cfg.Agent.AgentID, cfg.Agent.UserID)
	}
	if cfg.Agent.Timeout != 45*time.Second {
		t.Errorf("Agent.Timeout = %v, want 45s", cfg.Agent.Timeout)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.Path != "/tmp/chat.db" || cfg.Storage.Key != "threads" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[agent]
endpoint = "http://localhost:9000/chat"
agent_id = "toml-agent"
timeout = "5s"

[storage]
backend = "file"
path = "/tmp/conversations.json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Agent.AgentID != "toml-agent" {
		t.Errorf("Agent.AgentID = %q, want toml-agent", cfg.Agent.AgentID)
	}
	if cfg.Agent.Timeout != 5*time.Second {
		t.Errorf("Agent.Timeout = %v, want 5s", cfg.Agent.Timeout)
	}
	if cfg.Storage.Path != "/tmp/conversations.json" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	path := writeConfig(t, "config.yaml", "agent:\n  agent_id: \"only-this\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Agent.Endpoint != DefaultEndpoint {
		t.Errorf("Endpoint = %q, want default", cfg.Agent.Endpoint)
	}
	if cfg.Agent.UserID != DefaultUserID {
		t.Errorf("UserID = %q, want default", cfg.Agent.UserID)
	}
	if cfg.Agent.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want default", cfg.Agent.Timeout)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Backend = %q, want file", cfg.Storage.Backend)
	}
	want := filepath.Join("/data", "ultimate-super-space", "conversations.json")
	if cfg.Storage.Path != want {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, want)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_CHAT_KEY", "from-env")
	path := writeConfig(t, "config.yaml", "agent:\n  api_key: \"${TEST_CHAT_KEY}\"\n  user_id: \"${TEST_CHAT_UNSET}\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Agent.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want from-env", cfg.Agent.APIKey)
	}
	// Unset variables expand to "" and then take the default
	if cfg.Agent.UserID != DefaultUserID {
		t.Errorf("UserID = %q, want default", cfg.Agent.UserID)
	}
}

func TestLoad_DotEnvNextToConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TEST_DOTENV_KEY=dotenv-secret\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("agent:\n  api_key: \"${TEST_DOTENV_KEY}\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("TEST_DOTENV_KEY") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Agent.APIKey != "dotenv-secret" {
		t.Errorf("APIKey = %q, want dotenv-secret", cfg.Agent.APIKey)
	}
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_DOTENV_KEEP", "from-shell")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TEST_DOTENV_KEEP=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("agent:\n  api_key: \"${TEST_DOTENV_KEEP}\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Agent.APIKey != "from-shell" {
		t.Errorf("APIKey = %q, want from-shell", cfg.Agent.APIKey)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad yaml", "c.yaml", "agent: [unclosed", "parsing config file"},
		{"bad toml", "c.toml", "[agent\nendpoint=", "parsing config file"},
		{"bad duration", "c.yaml", "agent:\n  timeout: \"soon\"\n", "parsing timeout"},
		{"bad scheme", "c.yaml", "agent:\n  endpoint: \"ftp://host/x\"\n", "http or https"},
		{"no host", "c.yaml", "agent:\n  endpoint: \"http:///chat\"\n", "host"},
		{"bad backend", "c.yaml", "storage:\n  backend: \"redis\"\n", "storage.backend"},
		{"bad level", "c.yaml", "logging:\n  level: \"loud\"\n", "logging.level"},
		{"bad format", "c.yaml", "logging:\n  format: \"xml\"\n", "logging.format"},
		{"negative timeout", "c.yaml", "agent:\n  timeout: \"-1s\"\n", "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	t.Setenv("CHAT_API_KEY", "k")
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() is invalid: %v", err)
	}
	if cfg.Agent.APIKey != "k" {
		t.Errorf("APIKey = %q, want k", cfg.Agent.APIKey)
	}
}

func TestDefault_ReadsDotEnvInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CHAT_API_KEY=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	// Registers restoration of the original value, then leaves it unset so
	// the .env file is allowed to provide it.
	t.Setenv("CHAT_API_KEY", "")
	os.Unsetenv("CHAT_API_KEY")

	cfg := Default()
	if cfg.Agent.APIKey != "from-dotenv" {
		t.Errorf("APIKey = %q, want from-dotenv", cfg.Agent.APIKey)
	}
}

func TestPath(t *testing.T) {
	t.Setenv("CHAT_CONFIG", "/etc/chat.toml")
	if got := Path(); got != "/etc/chat.toml" {
		t.Errorf("Path() = %q", got)
	}

	t.Setenv("CHAT_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := Path(); got != filepath.Join("/xdg", "ultimate-super-space", "config.yaml") {
		t.Errorf("Path() = %q", got)
	}
}

func TestDefaultStoragePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/d")
	if got := DefaultStoragePath("sqlite"); got != filepath.Join("/d", "ultimate-super-space", "chat.db") {
		t.Errorf("sqlite path = %q", got)
	}
	if got := DefaultStoragePath("file"); got != filepath.Join("/d", "ultimate-super-space", "conversations.json") {
		t.Errorf("file path = %q", got)
	}
}
