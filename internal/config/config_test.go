package config

import (
	"os"
	"testing"
)

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing llm.api_key")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 0},
		LLM:  LLMConfig{APIKey: "test-key"},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_PortFallbackOverflow(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 65530, PortFallbackAttempts: 100},
		LLM:  LLMConfig{APIKey: "test-key"},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for fallback range past 65535")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{LLM: LLMConfig{APIKey: "test-key"}}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.Sources.MaxResults != 5 {
		t.Errorf("MaxResults = %d, want 5", cfg.Sources.MaxResults)
	}
	if cfg.Sources.TimeoutSec != 10 {
		t.Errorf("TimeoutSec = %d, want 10", cfg.Sources.TimeoutSec)
	}
	if cfg.Cache.LookupK != 5 {
		t.Errorf("LookupK = %d, want 5", cfg.Cache.LookupK)
	}
	if cfg.Cache.KeyPrefix != "paperdex:" {
		t.Errorf("KeyPrefix = %q", cfg.Cache.KeyPrefix)
	}
	if cfg.RateLimit.RequestsPerMinute != 30 {
		t.Errorf("RequestsPerMinute = %d, want 30", cfg.RateLimit.RequestsPerMinute)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("PAPERDEX_TEST_KEY", "sk-123")
	defer os.Unsetenv("PAPERDEX_TEST_KEY")

	tests := []struct {
		in, want string
	}{
		{"api_key: ${PAPERDEX_TEST_KEY}", "api_key: sk-123"},
		{"port: ${PAPERDEX_TEST_UNSET:-8080}", "port: 8080"},
		{"plain: value", "plain: value"},
	}
	for _, tc := range tests {
		if got := string(expandEnvVars([]byte(tc.in))); got != tc.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGetEnv(t *testing.T) {
	os.Unsetenv("ENV")
	if got := GetEnv(); got != "local" {
		t.Errorf("GetEnv() = %q, want local", got)
	}

	os.Setenv("ENV", "prod")
	defer os.Unsetenv("ENV")
	if got := GetEnv(); got != "prod" {
		t.Errorf("GetEnv() = %q, want prod", got)
	}
}
