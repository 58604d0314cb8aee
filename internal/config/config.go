// Package config loads vizard configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all vizard configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Session     SessionConfig     `yaml:"session"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Store       StoreConfig       `yaml:"store"`
	Resolver    ResolverConfig    `yaml:"resolver"`
	Executors   ExecutorsConfig   `yaml:"executors"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Schema      SchemaConfig      `yaml:"schema"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SessionConfig configures the websocket session.
type SessionConfig struct {
	Endpoint             string `yaml:"endpoint"`
	UserID               string `yaml:"user_id"`
	ProjectID            string `yaml:"project_id"`
	Role                 string `yaml:"role"`
	ReconnectDelay       string `yaml:"reconnect_delay"`
	MaxReconnectAttempts int    `yaml:"max_reconnect_attempts"`
	RequestTimeout       string `yaml:"request_timeout"`
	MaxMessageBytes      int    `yaml:"max_message_bytes"`
	SyncCatalog          bool   `yaml:"sync_catalog"`
}

// LLMConfig configures the completion client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // ollama, genai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// StoreConfig configures the candidate store.
type StoreConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// ResolverConfig configures prompt resolution.
type ResolverConfig struct {
	Strategy      string `yaml:"strategy"` // rank, vector
	TopK          int    `yaml:"top_k"`
	MinConfidence int    `yaml:"min_confidence"`
	RowLimit      int    `yaml:"row_limit"`
}

// ExecutorsConfig configures the query executors.
type ExecutorsConfig struct {
	SQLitePath   string `yaml:"sqlite_path"`
	WarehouseDSN string `yaml:"warehouse_dsn"`
}

// CredentialsConfig configures the credential store.
type CredentialsConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// SchemaConfig points at the warehouse schema description.
type SchemaConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures the category logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Dir   string `yaml:"dir"`
	Debug bool   `yaml:"debug"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "vizard",
		Version: "0.3.0",

		Session: SessionConfig{
			Endpoint:             "ws://localhost:8090/session",
			Role:                 "data_agent",
			ReconnectDelay:       "5s",
			MaxReconnectAttempts: 10,
			RequestTimeout:       "30s",
			MaxMessageBytes:      1 << 20,
			SyncCatalog:          true,
		},

		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash",
			Timeout:  "120s",
		},

		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},

		Store: StoreConfig{
			Path:       ".vizard/candidates.db",
			Collection: "artifacts",
		},

		Resolver: ResolverConfig{
			Strategy:      "vector",
			TopK:          5,
			MinConfidence: 30,
			RowLimit:      50,
		},

		Executors: ExecutorsConfig{
			SQLitePath: ".vizard/rows.db",
		},

		Credentials: CredentialsConfig{
			Path:  ".vizard/users.json",
			Watch: true,
		},

		Logging: LoggingConfig{
			Level: "info",
			Dir:   ".vizard/logs",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("VIZARD_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("VIZARD_EMBEDDING_API_KEY"); key != "" {
		c.Embedding.APIKey = key
	}
	if url := os.Getenv("VIZARD_ENDPOINT"); url != "" {
		c.Session.Endpoint = url
	}
	if id := os.Getenv("VIZARD_USER_ID"); id != "" {
		c.Session.UserID = id
	}
	if id := os.Getenv("VIZARD_PROJECT_ID"); id != "" {
		c.Session.ProjectID = id
	}
	if dsn := os.Getenv("VIZARD_WAREHOUSE_DSN"); dsn != "" {
		c.Executors.WarehouseDSN = dsn
	}
	if path := os.Getenv("VIZARD_DB"); path != "" {
		c.Store.Path = path
	}
	if path := os.Getenv("VIZARD_CREDENTIALS"); path != "" {
		c.Credentials.Path = path
	}
}

// GetLLMTimeout returns the completion timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetReconnectDelay returns the reconnect delay as a duration.
func (c *Config) GetReconnectDelay() time.Duration {
	d, err := time.ParseDuration(c.Session.ReconnectDelay)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetRequestTimeout returns the correlation deadline as a duration.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Session.RequestTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ValidProviders lists all supported completion providers.
var ValidProviders = []string{"gemini", "openai"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set VIZARD_API_KEY, GEMINI_API_KEY, or OPENAI_API_KEY)")
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.Session.Endpoint == "" {
		return fmt.Errorf("session endpoint not configured")
	}
	return nil
}
