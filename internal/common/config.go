package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	OCR       OCRConfig
	Providers ProvidersConfig
	Analysis  AnalysisConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	SQLitePath       string // local history file for the one-shot CLI
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	VisionAPIKey       string        // Google Cloud Vision API key (primary engine)
	Languages          []string      // tesseract language hints, default ["deu","eng"]
	FallbackThreshold  float32       // below this, the local engine is tried
	FallbackTimeout    time.Duration // budget for one local OCR attempt
	TerminationTimeout time.Duration // grace period for a stuck local worker
	CropTimeout        time.Duration // per-crop budget inside evidence extraction
}

// ProvidersConfig enables and configures the AI analysis providers.
// One boolean-equivalent flag per provider; the enabled set may be one.
type ProvidersConfig struct {
	Timeout time.Duration // per provider call

	OpenAIEnabled bool
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	GeminiEnabled bool
	GeminiKey     string
	GeminiModel   string

	AnthropicEnabled bool
	AnthropicKey     string
	AnthropicModel   string
}

// AnalysisConfig carries merge caps and quality-scoring weights.
// The weights are empirically chosen tunables, not business rules.
type AnalysisConfig struct {
	MaxStrengths       int
	MaxWeaknesses      int
	MaxRecommendations int

	Scoring ScoringConfig
}

// ScoringConfig holds the per-result quality score weights.
type ScoringConfig struct {
	GradeBonus       float64 // presence of a summary grade
	ScoreBonus       float64 // presence of numeric score/maxScore
	SubjectBonus     float64 // presence of a subject
	SectionBonus     float64 // per populated section entry
	SectionCap       float64
	RecBonus         float64 // having any recommendations
	RecLengthWeight  float64 // per avg char of recommendation action text
	RecLengthCap     float64
	ListDepthBonus   float64 // more than two strengths resp. weaknesses
	DevelopmentBonus float64 // per populated long-term development field
}

// DefaultScoring returns the tuned default weights.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		GradeBonus:       10,
		ScoreBonus:       8,
		SubjectBonus:     5,
		SectionBonus:     3,
		SectionCap:       15,
		RecBonus:         5,
		RecLengthWeight:  0.1,
		RecLengthCap:     10,
		ListDepthBonus:   4,
		DevelopmentBonus: 2,
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		OCR: OCRConfig{
			VisionAPIKey:       getEnv("VISION_API_KEY", ""),
			Languages:          getEnvAsList("OCR_LANGUAGES", []string{"deu", "eng"}),
			FallbackThreshold:  getEnvAsFloat32("OCR_FALLBACK_THRESHOLD", 0.85),
			FallbackTimeout:    getEnvAsDuration("OCR_FALLBACK_TIMEOUT", 30*time.Second),
			TerminationTimeout: getEnvAsDuration("OCR_TERMINATION_TIMEOUT", 5*time.Second),
			CropTimeout:        getEnvAsDuration("OCR_CROP_TIMEOUT", 10*time.Second),
		},
		Providers: ProvidersConfig{
			Timeout: getEnvAsDuration("PROVIDER_TIMEOUT", 60*time.Second),

			OpenAIEnabled: getEnvAsBool("OPENAI_ENABLED", false),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

			GeminiEnabled: getEnvAsBool("GEMINI_ENABLED", false),
			GeminiKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

			AnthropicEnabled: getEnvAsBool("ANTHROPIC_ENABLED", false),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
		},
		Analysis: AnalysisConfig{
			MaxStrengths:       getEnvAsInt("MAX_STRENGTHS", 8),
			MaxWeaknesses:      getEnvAsInt("MAX_WEAKNESSES", 8),
			MaxRecommendations: getEnvAsInt("MAX_RECOMMENDATIONS", 10),
			Scoring:            DefaultScoring(),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// EnabledProviders returns the names of all enabled analysis providers.
func (p ProvidersConfig) EnabledProviders() []string {
	var names []string
	if p.OpenAIEnabled {
		names = append(names, "openai")
	}
	if p.GeminiEnabled {
		names = append(names, "gemini")
	}
	if p.AnthropicEnabled {
		names = append(names, "anthropic")
	}
	return names
}

// Validate validates the loaded configuration. Missing provider credentials
// are configuration errors and name the credential that is absent.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if len(c.Providers.EnabledProviders()) == 0 {
		return NewAppError("CONFIG_ERROR",
			"no analysis providers enabled: set at least one of OPENAI_ENABLED, GEMINI_ENABLED, ANTHROPIC_ENABLED", ErrInvalidInput)
	}
	if c.Providers.OpenAIEnabled && c.Providers.OpenAIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required when OPENAI_ENABLED", ErrInvalidInput)
	}
	if c.Providers.GeminiEnabled && c.Providers.GeminiKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required when GEMINI_ENABLED", ErrInvalidInput)
	}
	if c.Providers.AnthropicEnabled && c.Providers.AnthropicKey == "" {
		return NewAppError("CONFIG_ERROR", "ANTHROPIC_API_KEY is required when ANTHROPIC_ENABLED", ErrInvalidInput)
	}
	if c.OCR.VisionAPIKey == "" {
		return NewAppError("CONFIG_ERROR", "VISION_API_KEY is required", ErrInvalidInput)
	}
	return nil
}
