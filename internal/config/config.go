package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTP_PORT string `env:"HTTP_PORT"`
	DB_STRING string `env:"DB_STRING"`

	API_BASE_URL        string        `env:"API_BASE_URL"`
	API_EMAIL           string        `env:"API_EMAIL"`
	API_PASSWORD        string        `env:"API_PASSWORD"`
	HTTP_CLIENT_TIMEOUT time.Duration `env:"HTTP_CLIENT_TIMEOUT"`

	PAGE_SIZE         int    `env:"PAGE_SIZE"`
	LOAD_ERROR_POLICY string `env:"LOAD_ERROR_POLICY"`
	STALE_LOAD_GUARD  bool   `env:"STALE_LOAD_GUARD"`
	SNAPSHOT_KEEP     int    `env:"SNAPSHOT_KEEP"`

	KAFKA_BROKERS  string `env:"KAFKA_BROKERS"`
	KAFKA_TOPIC    string `env:"KAFKA_TOPIC"`
	KAFKA_GROUP_ID string `env:"KAFKA_GROUP_ID"`
	INSTANCE_ID    string `env:"INSTANCE_ID"`

	LOG_LEVEL  string `env:"LOG_LEVEL"`
	LOG_FORMAT string `env:"LOG_FORMAT"`
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTP_PORT: getEnv("HTTP_PORT", "8080"),
		DB_STRING: os.Getenv("DB_STRING"),

		API_BASE_URL:        strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:3000"), "/"),
		API_EMAIL:           os.Getenv("API_EMAIL"),
		API_PASSWORD:        os.Getenv("API_PASSWORD"),
		HTTP_CLIENT_TIMEOUT: getDuration("HTTP_CLIENT_TIMEOUT", 0),

		PAGE_SIZE:         getInt("PAGE_SIZE", 10),
		LOAD_ERROR_POLICY: strings.ToLower(getEnv("LOAD_ERROR_POLICY", "clear")),
		STALE_LOAD_GUARD:  getBool("STALE_LOAD_GUARD", true),
		SNAPSHOT_KEEP:     getInt("SNAPSHOT_KEEP", 20),

		KAFKA_BROKERS:  os.Getenv("KAFKA_BROKERS"),
		KAFKA_TOPIC:    getEnv("KAFKA_TOPIC", "backoffice.changes"),
		KAFKA_GROUP_ID: os.Getenv("KAFKA_GROUP_ID"),
		INSTANCE_ID:    getEnv("INSTANCE_ID", uuid.NewString()),

		LOG_LEVEL:  getEnv("LOG_LEVEL", "info"),
		LOG_FORMAT: getEnv("LOG_FORMAT", "console"),
	}

	// each instance needs its own group so every dashboard sees every change
	if cfg.KAFKA_GROUP_ID == "" {
		cfg.KAFKA_GROUP_ID = "backoffice-" + cfg.INSTANCE_ID
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP_PORT == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}
	u, err := url.Parse(c.API_BASE_URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.API_BASE_URL)
	}
	if c.PAGE_SIZE <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive")
	}
	switch c.LOAD_ERROR_POLICY {
	case "clear", "keep":
	default:
		return fmt.Errorf("LOAD_ERROR_POLICY must be clear or keep, got %q", c.LOAD_ERROR_POLICY)
	}
	if c.SNAPSHOT_KEEP < 1 {
		return fmt.Errorf("SNAPSHOT_KEEP must be at least 1")
	}
	if c.HTTP_CLIENT_TIMEOUT < 0 {
		return fmt.Errorf("HTTP_CLIENT_TIMEOUT cannot be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}
