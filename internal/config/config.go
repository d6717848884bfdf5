package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// OpenAI (shot-list planning, GitHub link finding, README simplification)
	OpenAIKey   string
	OpenAIModel string

	// Gemini API key (Veo runs on the same key)
	GeminiKey string
	VeoModel  string

	// LMNT (narration synthesis)
	LMNTKey     string
	LMNTVoiceID string

	// GitHub (optional token for README fetches — raises the rate limit)
	GitHubToken string

	// Filesystem
	UploadDir string // uploaded PDFs
	OutputDir string // final videos, one file per job
	WorkDir   string // per-job clip working directories

	// Rendering
	DefaultQuality string // low, medium, high

	// Worker
	MaxConcurrentJobs int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-5-mini"),
		GeminiKey:          getEnv("GEMINI_API_KEY", ""),
		VeoModel:           getEnv("VEO_MODEL", "veo-2.0-generate-001"),
		LMNTKey:            getEnv("LMNT_API_KEY", ""),
		LMNTVoiceID:        getEnv("LMNT_VOICE_ID", "morgan"),
		GitHubToken:        getEnv("GITHUB_TOKEN", ""),
		UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
		OutputDir:          getEnv("OUTPUT_DIR", "outputs"),
		WorkDir:            getEnv("WORK_DIR", "/tmp/papervid"),
		DefaultQuality:     getEnv("DEFAULT_QUALITY", "medium"),
		MaxConcurrentJobs:  getEnvInt("MAX_CONCURRENT_JOBS", 2),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	if cfg.GeminiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for Veo video generation")
	}

	if cfg.LMNTKey == "" {
		return nil, fmt.Errorf("LMNT_API_KEY is required for narration")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
