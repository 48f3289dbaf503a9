package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	OpenAIAPIKey string

	// Local similarity index.
	EmbeddingModel string
	LocalIndexPath string
	LocalTopK      int

	// Generation.
	ResponsesModel  string
	SynthesisModel  string
	Temperature     float32
	MaxOutputTokens int

	// Remote vector store.
	MaxSearchResults  int
	PollInterval      time.Duration
	ProcessingTimeout time.Duration

	// Analysis pipeline.
	RequestDelay      time.Duration
	TempUploadDir     string
	AnalysisOutputDir string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	_ = godotenv.Load(".env", "cmd/.env")

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             normalizeEnv(getEnv("ENV", "dev")),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),

		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		LocalIndexPath: getEnv("LOCAL_INDEX_PATH", "db_v9.json"),
		LocalTopK:      getEnvInt("LOCAL_TOP_K", 8),

		ResponsesModel:  getEnv("RESPONSES_MODEL", "gpt-4o"),
		SynthesisModel:  getEnv("SYNTHESIS_MODEL", "gpt-4o-mini"),
		Temperature:     float32(getEnvFloat("TEMPERATURE", 0)),
		MaxOutputTokens: getEnvInt("MAX_OUTPUT_TOKENS", 1500),

		MaxSearchResults:  getEnvInt("MAX_SEARCH_RESULTS", 10),
		PollInterval:      time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)) * time.Second,
		ProcessingTimeout: time.Duration(getEnvInt("PROCESSING_TIMEOUT_SECONDS", 360)) * time.Second,

		RequestDelay:      time.Duration(getEnvInt("REQUEST_DELAY_SECONDS", 5)) * time.Second,
		TempUploadDir:     getEnv("TEMP_UPLOAD_DIR", "temp_uploads"),
		AnalysisOutputDir: getEnv("ANALYSIS_OUTPUT_DIR", "analysis_results"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
