package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the relay. Everything has a default;
// nothing external is required to start.
type Config struct {
	Host         string
	Port         string
	Env          string
	ClientURL    string
	DefaultRoom  string
	HistoryLimit int
}

// Load reads configuration from the environment, after loading a .env file
// if one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Host:         getEnv("HOST", ""),
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("APP_ENV", "development"),
		ClientURL:    getEnv("CLIENT_URL", "http://localhost:5173"),
		DefaultRoom:  getEnv("DEFAULT_ROOM", "General"),
		HistoryLimit: getEnvInt("HISTORY_LIMIT", 100),
	}
}

// IsDevelopment reports whether the relay runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
