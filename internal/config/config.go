package config

import (
	"os"
	"strconv"
)

type Config struct {
	Database DatabaseConfig
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
	Ollama   OllamaConfig
	Faces    FacesConfig
	LogLevel string
}

type DatabaseConfig struct {
	Driver       string // "sqlite" (default) or "postgres"
	SQLitePath   string // path to the database file for the sqlite driver
	URL          string // PostgreSQL connection URL for the postgres driver
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type OllamaConfig struct {
	URL   string // defaults to http://localhost:11434
	Model string // defaults to llama3.2-vision:11b
}

type FacesConfig struct {
	DetectorURL string // face detection service, empty disables detection
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       envDefault("TAGLENS_DB_DRIVER", "sqlite"),
			SQLitePath:   envDefault("TAGLENS_SQLITE_PATH", "taglens.db"),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Ollama: OllamaConfig{
			URL:   os.Getenv("OLLAMA_URL"),
			Model: os.Getenv("OLLAMA_MODEL"),
		},
		Faces: FacesConfig{
			DetectorURL: os.Getenv("FACE_DETECTOR_URL"),
		},
		LogLevel: envDefault("LOG_LEVEL", "info"),
	}
}
