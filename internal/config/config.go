package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/pdf2llm/internal/chunker"
	"github.com/dgallion1/pdf2llm/internal/embed"
	"github.com/dgallion1/pdf2llm/internal/qa"
)

// FileEnv names the optional YAML config file. Environment variables
// override values read from it.
const FileEnv = "PDF2LLM_CONFIG"

type Config struct {
	Port  string `yaml:"port"`
	Debug bool   `yaml:"debug"` // Log at debug level

	// Auth
	APIKey string `yaml:"-"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`
	PageWorkers  int `yaml:"page_workers"`
	ScoreWorkers int `yaml:"score_workers"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Processing
	ChunkSize    int     `yaml:"chunk_size"` // Pages per extraction batch
	OCRThreshold float64 `yaml:"ocr_threshold"`
	OCRLanguage  string  `yaml:"ocr_language"`

	// Matching
	TopN          int     `yaml:"top_n"`
	MinSimilarity float64 `yaml:"min_similarity"`
	ExcerptRunes  int     `yaml:"excerpt_runes"`
	WindowTokens  int     `yaml:"window_tokens"`
	WindowOverlap int     `yaml:"window_overlap"`

	// Embeddings
	EmbeddingProvider  string        `yaml:"embedding_provider"`
	EmbeddingEndpoint  string        `yaml:"embedding_endpoint"`
	EmbeddingAPIKey    string        `yaml:"-"`
	EmbeddingModel     string        `yaml:"embedding_model"`
	EmbeddingDimension int           `yaml:"embedding_dimension"`
	EmbeddingBatchSize int           `yaml:"embedding_batch_size"`
	EmbeddingTimeout   time.Duration `yaml:"embedding_timeout"`
	EmbeddingCache     string        `yaml:"embedding_cache"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port: "8090",

		WorkerCount:  2,
		MaxQueueSize: 50,
		PageWorkers:  4,
		ScoreWorkers: 8,

		MaxUploadBytes: 52428800, // 50MB

		JobTTL: 1 * time.Hour,

		ChunkSize:    50,
		OCRThreshold: 0.7,
		OCRLanguage:  "eng",

		TopN:          3,
		MinSimilarity: 0.5,
		ExcerptRunes:  qa.DefaultExcerptRunes,
		WindowTokens:  256,
		WindowOverlap: 32,

		EmbeddingProvider:  embed.ProviderLexical,
		EmbeddingDimension: 512,
		EmbeddingBatchSize: 32,
		EmbeddingTimeout:   30 * time.Second,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by PDF2LLM_CONFIG and the environment, in increasing precedence.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv(FileEnv); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.Debug = envBool("DEBUG", cfg.Debug)
	cfg.APIKey = envOr("PDF2LLM_API_KEY", cfg.APIKey)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.PageWorkers = envInt("PAGE_WORKERS", cfg.PageWorkers)
	cfg.ScoreWorkers = envInt("SCORE_WORKERS", cfg.ScoreWorkers)

	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)

	cfg.ChunkSize = envInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.OCRThreshold = envFloat("OCR_THRESHOLD", cfg.OCRThreshold)
	cfg.OCRLanguage = envOr("OCR_LANGUAGE", cfg.OCRLanguage)

	cfg.TopN = envInt("TOP_N", cfg.TopN)
	cfg.MinSimilarity = envFloat("MIN_SIMILARITY", cfg.MinSimilarity)
	cfg.ExcerptRunes = envInt("EXCERPT_RUNES", cfg.ExcerptRunes)
	cfg.WindowTokens = envInt("WINDOW_TOKENS", cfg.WindowTokens)
	cfg.WindowOverlap = envInt("WINDOW_OVERLAP", cfg.WindowOverlap)

	cfg.EmbeddingProvider = envOr("EMBEDDING_PROVIDER", cfg.EmbeddingProvider)
	cfg.EmbeddingEndpoint = envOr("EMBEDDING_ENDPOINT", cfg.EmbeddingEndpoint)
	cfg.EmbeddingAPIKey = envOr("EMBEDDING_API_KEY", cfg.EmbeddingAPIKey)
	cfg.EmbeddingModel = envOr("EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.EmbeddingDimension = envInt("EMBEDDING_DIMENSION", cfg.EmbeddingDimension)
	cfg.EmbeddingBatchSize = envInt("EMBEDDING_BATCH_SIZE", cfg.EmbeddingBatchSize)
	cfg.EmbeddingTimeout = envDuration("EMBEDDING_TIMEOUT", cfg.EmbeddingTimeout)
	cfg.EmbeddingCache = envOr("EMBEDDING_CACHE", cfg.EmbeddingCache)

	if cfg.EmbeddingAPIKey == "" {
		switch cfg.EmbeddingProvider {
		case embed.ProviderOpenAI:
			cfg.EmbeddingAPIKey = os.Getenv("OPENAI_API_KEY")
		case embed.ProviderGemini:
			cfg.EmbeddingAPIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	def := Defaults()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = def.MaxQueueSize
	}
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = def.PageWorkers
	}
	if cfg.ScoreWorkers <= 0 {
		cfg.ScoreWorkers = def.ScoreWorkers
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = def.JobTTL
	}

	return cfg, nil
}

// Validate checks the settings shared by the CLI and the server.
func (c Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if c.OCRThreshold < 0 || c.OCRThreshold > 1 {
		errs = append(errs, fmt.Errorf("OCR_THRESHOLD must be in [0,1], got %v", c.OCRThreshold))
	}
	if c.TopN < 1 {
		errs = append(errs, fmt.Errorf("TOP_N must be at least 1, got %d", c.TopN))
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("MIN_SIMILARITY must be in [0,1], got %v", c.MinSimilarity))
	}
	if c.ExcerptRunes < 0 {
		errs = append(errs, fmt.Errorf("EXCERPT_RUNES must not be negative, got %d", c.ExcerptRunes))
	}
	switch c.EmbeddingProvider {
	case embed.ProviderLexical:
	case embed.ProviderOpenAI:
		if c.EmbeddingEndpoint == "" {
			errs = append(errs, errors.New("EMBEDDING_ENDPOINT is required for the openai provider"))
		}
		if c.EmbeddingModel == "" {
			errs = append(errs, errors.New("EMBEDDING_MODEL is required for the openai provider"))
		}
	case embed.ProviderGemini:
		if c.EmbeddingAPIKey == "" {
			errs = append(errs, errors.New("EMBEDDING_API_KEY or GEMINI_API_KEY is required for the gemini provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider))
	}
	return errors.Join(errs...)
}

// ValidateServer additionally requires the settings the HTTP service needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("PDF2LLM_API_KEY is required")
	}
	return nil
}

// EmbedConfig returns the embedding provider settings.
func (c Config) EmbedConfig() embed.Config {
	return embed.Config{
		Provider:  c.EmbeddingProvider,
		Endpoint:  c.EmbeddingEndpoint,
		APIKey:    c.EmbeddingAPIKey,
		Model:     c.EmbeddingModel,
		Dimension: c.EmbeddingDimension,
		BatchSize: c.EmbeddingBatchSize,
		Timeout:   c.EmbeddingTimeout,
		CachePath: c.EmbeddingCache,
	}
}

// RankOptions returns the match ranking options.
func (c Config) RankOptions() qa.Options {
	return qa.Options{
		TopN:          c.TopN,
		MinSimilarity: c.MinSimilarity,
		ExcerptRunes:  c.ExcerptRunes,
		Concurrency:   c.ScoreWorkers,
	}
}

// WindowConfig returns the passage windowing settings.
func (c Config) WindowConfig() chunker.Config {
	cfg := chunker.DefaultConfig()
	cfg.ChunkSize = c.WindowTokens
	cfg.ChunkOverlap = c.WindowOverlap
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
