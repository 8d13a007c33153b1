package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Pipeline modes.
const (
	ModeIntent   = "intent"
	ModePipeline = "pipeline"
)

type Config struct {
	HTTPAddr    string
	DBPath      string
	PromptsPath string
	WebDir      string

	LLMProvider   string
	LLMModel      string
	LLMAPIKey     string
	LLMTimeout    time.Duration
	LLMDebug      bool
	APIKeySetting string

	Mode string

	LogFormat string
	LogLevel  string
}

// Load reads the environment, after merging a .env file from the working
// directory if there is one. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	timeout, err := getDuration("CALENDAR_LLM_TIMEOUT", 60*time.Second)
	if err != nil {
		return Config{}, err
	}
	mode := strings.ToLower(getEnv("CALENDAR_PIPELINE", ModeIntent))
	if mode != ModeIntent && mode != ModePipeline {
		return Config{}, fmt.Errorf("CALENDAR_PIPELINE: unknown mode %q", mode)
	}

	return Config{
		HTTPAddr:    getEnv("CALENDAR_HTTP_ADDR", "127.0.0.1:8000"),
		DBPath:      getEnv("CALENDAR_DB_PATH", "calendar_llm.db"),
		PromptsPath: getEnv("CALENDAR_PROMPTS_PATH", ""),
		WebDir:      getEnv("CALENDAR_WEB_DIR", ""),

		LLMProvider:   getEnv("CALENDAR_LLM_PROVIDER", "openai-chat"),
		LLMModel:      getEnv("CALENDAR_LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:     getEnv("CALENDAR_LLM_API_KEY", ""),
		LLMTimeout:    timeout,
		LLMDebug:      getBool("CALENDAR_LLM_DEBUG"),
		APIKeySetting: getEnv("CALENDAR_API_KEY_SETTING", "openai_api_key"),

		Mode: mode,

		LogFormat: getEnv("CALENDAR_LOG_FORMAT", "json"),
		LogLevel:  getEnv("CALENDAR_LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", key, d)
	}
	return d, nil
}

func getBool(key string) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
