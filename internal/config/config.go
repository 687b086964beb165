package config

import (
	"errors"
	"os"
	"time"
)

const minSecretLen = 32

type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   string
	LogFile    string
	LogFormat  string
	JWTSecret  string
	TokenTTL   time.Duration
	TestMode   bool
}

func Load() *Config {
	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DBPath:     getEnv("DB_PATH", "/data/stockcount.db"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    getEnv("LOG_FILE", ""),
		LogFormat:  getEnv("LOG_FORMAT", "json"),
		JWTSecret:  getEnv("JWT_SECRET", ""),
		TokenTTL:   getDuration("TOKEN_TTL", 12*time.Hour),
		TestMode:   os.Getenv("STOCKCOUNT_TEST_MODE") == "1",
	}
}

// Validate reports settings the server cannot start with. Test mode accepts
// a short secret.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if !c.TestMode && len(c.JWTSecret) < minSecretLen {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
