package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadIncludesPipelineDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("EXTRACTION_TIMEOUT_SECONDS", "")
	t.Setenv("TASK_TIMEOUT_SECONDS", "")
	t.Setenv("API_RATE_LIMIT_RPS", "")
	t.Setenv("NATS_SUBJECT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ExtractionTimeoutSeconds != 5 {
		t.Fatalf("extraction must default to a short hard timeout, got %d", cfg.ExtractionTimeoutSeconds)
	}
	if cfg.TaskTimeoutSeconds != 300 {
		t.Fatalf("expected default task timeout 300, got %d", cfg.TaskTimeoutSeconds)
	}
	if cfg.APIRateLimitRPS != 50 {
		t.Fatalf("expected default rate limit 50 rps, got %d", cfg.APIRateLimitRPS)
	}
	if cfg.NATSSubject != "documents.pipeline" {
		t.Fatalf("expected default task subject, got %q", cfg.NATSSubject)
	}
}

func TestLoadParsesEnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("EXTRACTION_TIMEOUT_SECONDS", "30")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ExtractionTimeoutSeconds != 30 {
		t.Fatalf("expected extraction timeout override, got %d", cfg.ExtractionTimeoutSeconds)
	}
	if cfg.GroqAPIKey != "gsk-test" {
		t.Fatalf("expected api key override, got %q", cfg.GroqAPIKey)
	}
	if cfg.SMTPPort != 2525 {
		t.Fatalf("expected smtp port 2525, got %d", cfg.SMTPPort)
	}
}

func TestLoadOverlaysConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "api_port: \"9191\"\nextraction_timeout_seconds: 45\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "8080")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9191" {
		t.Fatalf("file value must win over environment, got %q", cfg.APIPort)
	}
	if cfg.ExtractionTimeoutSeconds != 45 {
		t.Fatalf("expected file extraction timeout 45, got %d", cfg.ExtractionTimeoutSeconds)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("keys absent from the file must keep env values, got %q", cfg.LogLevel)
	}
}

func TestLoadRejectsBrokenConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_port: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error for broken config file")
	}
}
