package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	BackendURL     string
	ConsoleAddr    string
	LogLevel       string
	RequestTimeout time.Duration // 0 means no timeout
	SessionTTL     time.Duration
	MaxUploadBytes int64
	AllowedOrigins []string
}

// Load reads a local .env file (outside Docker) and then the environment
func Load(envFiles ...string) *Config {
	if os.Getenv("DOCKER_ENV") == "" {
		if err := godotenv.Load(envFiles...); err != nil {
			log.Debug("No .env file found, using system environment variables")
		}
	}

	return &Config{
		BackendURL:     envOr("BACKEND_URL", "http://127.0.0.1:5000"),
		ConsoleAddr:    envOr("CONSOLE_ADDR", ":8080"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		RequestTimeout: envDurationOr("REQUEST_TIMEOUT", 0),
		SessionTTL:     envDurationOr("SESSION_TTL", 24*time.Hour),
		MaxUploadBytes: envInt64Or("MAX_UPLOAD_BYTES", 512<<20),
		AllowedOrigins: envListOr("ALLOWED_ORIGINS", []string{"http://localhost:8080", "http://127.0.0.1:8080"}),
	}
}

// ConfigureLogging applies LogLevel to the standard logrus logger
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if v == "0" {
			return 0
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envListOr(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
