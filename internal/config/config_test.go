package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var keys = []string{
	"CALENDAR_HTTP_ADDR", "CALENDAR_DB_PATH", "CALENDAR_PROMPTS_PATH", "CALENDAR_WEB_DIR",
	"CALENDAR_LLM_PROVIDER", "CALENDAR_LLM_MODEL", "CALENDAR_LLM_API_KEY",
	"CALENDAR_LLM_TIMEOUT", "CALENDAR_LLM_DEBUG", "CALENDAR_API_KEY_SETTING",
	"CALENDAR_PIPELINE", "CALENDAR_LOG_FORMAT", "CALENDAR_LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "calendar_llm.db" {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.LLMModel != "gpt-4o-mini" || cfg.LLMProvider != "openai-chat" {
		t.Fatalf("unexpected model %q/%q", cfg.LLMProvider, cfg.LLMModel)
	}
	if cfg.LLMTimeout != 60*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.LLMTimeout)
	}
	if cfg.APIKeySetting != "openai_api_key" || cfg.Mode != ModeIntent {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALENDAR_DB_PATH", "/tmp/cal.db")
	t.Setenv("CALENDAR_LLM_TIMEOUT", "5s")
	t.Setenv("CALENDAR_PIPELINE", "Pipeline")
	t.Setenv("CALENDAR_LLM_DEBUG", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/cal.db" || cfg.LLMTimeout != 5*time.Second || cfg.Mode != ModePipeline || !cfg.LLMDebug {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("CALENDAR_DB_PATH")
	os.Unsetenv("CALENDAR_LLM_MODEL")
	t.Setenv("CALENDAR_HTTP_ADDR", ":9999")
	env := "CALENDAR_DB_PATH=from-file.db\nCALENDAR_LLM_MODEL=\"gpt-4o\"\nCALENDAR_HTTP_ADDR=:1111\n"
	if err := os.WriteFile(filepath.Join(".", ".env"), []byte(env), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("CALENDAR_DB_PATH")
		os.Unsetenv("CALENDAR_LLM_MODEL")
	})
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "from-file.db" || cfg.LLMModel != "gpt-4o" {
		t.Fatalf("expected values from .env, got %+v", cfg)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("environment should win over .env, got %q", cfg.HTTPAddr)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALENDAR_LLM_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for bad timeout")
	}
	t.Setenv("CALENDAR_LLM_TIMEOUT", "")
	t.Setenv("CALENDAR_PIPELINE", "crew")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
