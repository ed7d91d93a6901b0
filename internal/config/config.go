package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kagura-engine/kagura/pkg/plugin"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL string

	// DataDir holds story packages and their plugin scripts.
	DataDir   string
	StoryFile string

	PluginCallTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		DataDir:           getEnv("DATA_DIR", "./data"),
		StoryFile:         getEnv("STORY_FILE", "story.yaml"),
		PluginCallTimeout: parseDuration(getEnv("PLUGIN_CALL_TIMEOUT", ""), plugin.DefaultCallTimeout),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
