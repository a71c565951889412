package cli

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Output    string
	Verbose   bool

	// Used by commands that run a game engine in-process
	Storage    string
	RedisURL   string
	Dictionary string
	Port       int
}

// LoadEnv reads .env files into the environment without overriding
// variables already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  getEnvOrDefault("XWSYNC_SERVER", "http://localhost:8080"),
		Output:     "text",
		Verbose:    false,
		Storage:    getEnvOrDefault("XWSYNC_STORAGE", "memory"),
		RedisURL:   getEnvOrDefault("XWSYNC_REDIS_URL", "redis://localhost:6379"),
		Dictionary: getEnvOrDefault("XWSYNC_DICT", "data/words.txt"),
		Port:       getEnvInt("XWSYNC_PORT", 8080),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return n
}
