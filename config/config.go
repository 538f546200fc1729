package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir  string
	Env      string
	LogLevel string
}

var AppConfig *Config

// Load reads the environment, plus an optional .env file, into the
// process-wide configuration.
func Load() *Config {
	_ = godotenv.Load()

	AppConfig = &Config{
		DataDir:  GetEnv("DATA_DIR", "./data"),
		Env:      GetEnv("ENV", "development"),
		LogLevel: GetEnv("LOG_LEVEL", "info"),
	}
	return AppConfig
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
