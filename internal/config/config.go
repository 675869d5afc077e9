package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the paperdex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Sources   SourcesConfig   `yaml:"sources"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. Empty api_keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port                 int    `yaml:"port"`
	PortFallbackAttempts int    `yaml:"port_fallback_attempts"` // extra ports tried on bind conflict
	ReadTimeoutSec       int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec      int    `yaml:"write_timeout_sec"`
	ShutdownSec          int    `yaml:"shutdown_timeout_sec"`
	AllowedOrigin        string `yaml:"allowed_origin"` // browser origin for CORS
}

// DatabaseConfig holds vector-store connection settings.
// Empty addrs means the service runs without a cache (degraded).
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LLMConfig holds the OpenAI-compatible provider settings for both the
// chat-completion summarizer and the embedder.
type LLMConfig struct {
	APIKey              string  `yaml:"api_key"`
	BaseURL             string  `yaml:"base_url"`
	ChatModel           string  `yaml:"chat_model"`
	EmbeddingModel      string  `yaml:"embedding_model"`
	EmbeddingDimensions int     `yaml:"embedding_dimensions"`
	RequestsPerSecond   float64 `yaml:"requests_per_second"` // client-side ceiling on chat calls
	TimeoutSec          int     `yaml:"timeout_sec"`         // per completion/embedding call
}

// SourcesConfig holds upstream paper-catalog settings.
type SourcesConfig struct {
	MaxResults   int    `yaml:"max_results"`
	TimeoutSec   int    `yaml:"timeout_sec"` // per external call
	PubmedAPIKey string `yaml:"pubmed_api_key"`
	UserAgent    string `yaml:"user_agent"`
}

// CacheConfig holds vector-cache settings.
type CacheConfig struct {
	KeyPrefix  string `yaml:"key_prefix"`
	Collection string `yaml:"collection"`
	LookupK    int    `yaml:"lookup_k"`
}

// RateLimitConfig holds the per-client request ceiling.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.PortFallbackAttempts <= 0 {
		c.HTTP.PortFallbackAttempts = 10
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 15
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// summarization of a full result set can take a while
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.LLM.ChatModel == "" {
		c.LLM.ChatModel = "gpt-4o-mini"
	}
	if c.LLM.EmbeddingModel == "" {
		c.LLM.EmbeddingModel = "text-embedding-3-small"
	}
	if c.LLM.EmbeddingDimensions <= 0 {
		c.LLM.EmbeddingDimensions = 1536
	}
	if c.LLM.RequestsPerSecond <= 0 {
		c.LLM.RequestsPerSecond = 2
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 10
	}
	if c.Sources.MaxResults <= 0 {
		c.Sources.MaxResults = 5
	}
	if c.Sources.TimeoutSec <= 0 {
		c.Sources.TimeoutSec = 10
	}
	if c.Sources.UserAgent == "" {
		c.Sources.UserAgent = "paperdex/1.0"
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "paperdex:"
	}
	if c.Cache.Collection == "" {
		c.Cache.Collection = "papers"
	}
	if c.Cache.LookupK <= 0 {
		c.Cache.LookupK = 5
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = 30
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
}

// Validate checks the configuration for correctness.
// The LLM API key is mandatory: the process refuses to start without it.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (set LLM_API_KEY)")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.Port+c.HTTP.PortFallbackAttempts > 65535 {
		return fmt.Errorf("http.port_fallback_attempts overflows the port range")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
