package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	Database           DatabaseConfig
	RedisURL           string
	JWTSecret          string
	TokenTTL           time.Duration
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	CatalogCacheTTL    time.Duration
	OTLPEndpoint       string
	Team               TeamDefaults
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// TeamDefaults are copied onto every newly created team.
type TeamDefaults struct {
	ChatModel       string
	EmbeddingModel  string
	ASRModel        string
	Image2TextModel string
	RerankModel     string
	Parsers         string
	LLMFactory      string
	APIKey          string
	BaseURL         string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	dbPort, err := getInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getInt("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, err
	}
	tokenTTL, err := getDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getDuration("CATALOG_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			URL:          getEnv("DATABASE_URL", ""),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         dbPort,
			User:         getEnv("DB_USER", "teamspace"),
			Password:     getEnv("DB_PASSWORD", "dev"),
			Name:         getEnv("DB_NAME", "teamspace"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: maxOpen,
			MaxIdleConns: maxIdle,
		},
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		TokenTTL:           tokenTTL,
		RateLimitPerMinute: rateLimit,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		CatalogCacheTTL: cacheTTL,
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Team:            LoadTeamDefaults(),
	}

	if cfg.JWTSecret == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}

	return cfg, nil
}

// LoadTeamDefaults reads the model defaults assigned to new teams.
func LoadTeamDefaults() TeamDefaults {
	return TeamDefaults{
		ChatModel:       getEnv("CHAT_MDL", ""),
		EmbeddingModel:  getEnv("EMBEDDING_MDL", ""),
		ASRModel:        getEnv("ASR_MDL", ""),
		Image2TextModel: getEnv("IMAGE2TEXT_MDL", ""),
		RerankModel:     getEnv("RERANK_MDL", ""),
		Parsers: getEnv("PARSERS", "naive:General,qa:Q&A,resume:Resume,manual:Manual,table:Table,"+
			"paper:Paper,book:Book,laws:Laws,presentation:Presentation,picture:Picture,one:One"),
		LLMFactory: getEnv("LLM_FACTORY", ""),
		APIKey:     getEnv("API_KEY", ""),
		BaseURL:    getEnv("LLM_BASE_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
