package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Storage  StorageConfig
	Search   SearchConfig
	OCR      OCRConfig
	Table    TableConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	APIKey       string
	APIKeyHeader string
}

type LLMConfig struct {
	BaseURL          string // OpenAI-compatible endpoint of the hosted model
	APIKey           string
	FolderID         string // cloud folder, becomes part of the gpt:// model URI
	Model            string
	AnthropicKey     string
	DefaultProvider  string
	FallbackProvider string
	MaxRetries       int
	Temperature      float64
	MaxTokens        int
}

type StorageConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

type SearchConfig struct {
	BaseURL            string
	APIKey             string
	FolderID           string
	FileTTLDays        int
	ChunkSizeTokens    int
	ChunkOverlapTokens int
	PollInterval       time.Duration
	PollTimeout        time.Duration
}

type OCRConfig struct {
	Language    string
	PageSegMode int
	DPI         int
}

type TableConfig struct {
	ConfidenceThreshold float64
	RowBuckets          int
	ColBuckets          int
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	// Single attempt unless retries are opted into.
	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 500)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_TOKENS: %w", err)
	}

	temperature, err := getEnvFloat("LLM_TEMPERATURE", 0.3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}

	ttlDays, err := getEnvInt("SEARCH_FILE_TTL_DAYS", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_FILE_TTL_DAYS: %w", err)
	}

	chunkSize, err := getEnvInt("SEARCH_CHUNK_SIZE_TOKENS", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_CHUNK_SIZE_TOKENS: %w", err)
	}

	chunkOverlap, err := getEnvInt("SEARCH_CHUNK_OVERLAP_TOKENS", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_CHUNK_OVERLAP_TOKENS: %w", err)
	}

	pollIntervalSec, err := getEnvInt("SEARCH_POLL_INTERVAL_SECONDS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_POLL_INTERVAL_SECONDS: %w", err)
	}

	pollTimeoutSec, err := getEnvInt("SEARCH_POLL_TIMEOUT_SECONDS", 300)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_POLL_TIMEOUT_SECONDS: %w", err)
	}

	psm, err := getEnvInt("OCR_PAGE_SEG_MODE", 11)
	if err != nil {
		return nil, fmt.Errorf("invalid OCR_PAGE_SEG_MODE: %w", err)
	}

	dpi, err := getEnvInt("OCR_DPI", 150)
	if err != nil {
		return nil, fmt.Errorf("invalid OCR_DPI: %w", err)
	}

	confThreshold, err := getEnvFloat("TABLE_CONFIDENCE_THRESHOLD", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid TABLE_CONFIDENCE_THRESHOLD: %w", err)
	}

	rowBuckets, err := getEnvInt("TABLE_ROW_BUCKETS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid TABLE_ROW_BUCKETS: %w", err)
	}

	colBuckets, err := getEnvInt("TABLE_COL_BUCKETS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid TABLE_COL_BUCKETS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			APIKey:       getEnv("SERVICE_API_KEY", ""),
			APIKeyHeader: getEnv("API_KEY_HEADER", "X-API-Key"),
		},
		LLM: LLMConfig{
			BaseURL:          getEnv("LLM_BASE_URL", "https://rest-assistant.api.cloud.yandex.net/v1"),
			APIKey:           getEnv("LLM_API_KEY", ""),
			FolderID:         getEnv("CLOUD_FOLDER_ID", ""),
			Model:            getEnv("LLM_MODEL", "yandexgpt"),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "cloud"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			MaxRetries:       maxRetries,
			Temperature:      temperature,
			MaxTokens:        maxTokens,
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "https://storage.yandexcloud.net"),
			Region:          getEnv("STORAGE_REGION", "ru-central1"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("STORAGE_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("STORAGE_BUCKET", "documents"),
		},
		Search: SearchConfig{
			BaseURL:            getEnv("SEARCH_BASE_URL", "https://rest-assistant.api.cloud.yandex.net"),
			APIKey:             getEnv("SEARCH_API_KEY", ""),
			FolderID:           getEnv("CLOUD_FOLDER_ID", ""),
			FileTTLDays:        ttlDays,
			ChunkSizeTokens:    chunkSize,
			ChunkOverlapTokens: chunkOverlap,
			PollInterval:       time.Duration(pollIntervalSec) * time.Second,
			PollTimeout:        time.Duration(pollTimeoutSec) * time.Second,
		},
		OCR: OCRConfig{
			Language:    getEnv("OCR_LANGUAGE", "rus"),
			PageSegMode: psm,
			DPI:         dpi,
		},
		Table: TableConfig{
			ConfidenceThreshold: confThreshold,
			RowBuckets:          rowBuckets,
			ColBuckets:          colBuckets,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	if c.LLM.FolderID == "" {
		missing = append(missing, "CLOUD_FOLDER_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}
