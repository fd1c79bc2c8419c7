// Package embed turns text into vectors for similarity scoring.
//
// Three providers are available: "lexical", an offline hashed bag of words;
// "openai", any server speaking the OpenAI /v1/embeddings format; and
// "gemini", the Gemini embedding API. Any provider can be wrapped in a
// SQLite-backed cache.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Embedder converts text to vectors.
type Embedder interface {
	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the model name, used as part of the cache key.
	Model() string
}

// Provider names accepted by New.
const (
	ProviderLexical = "lexical"
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
)

// ErrUnknownProvider is returned by New for an unrecognized provider name.
var ErrUnknownProvider = errors.New("embed: unknown provider")

// Config configures an embedding provider.
type Config struct {
	Provider  string        `yaml:"provider"`
	Endpoint  string        `yaml:"endpoint"` // openai: base URL, e.g. http://localhost:8003
	APIKey    string        `yaml:"-"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"` // lexical vector size
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
	CachePath string        `yaml:"cache_path"` // SQLite file; empty disables the cache

	Stats  *Stats       `yaml:"-"`
	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Provider == "" {
		c.Provider = ProviderLexical
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Dimension <= 0 {
		c.Dimension = 512
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New builds the configured provider, wrapped in a cache when CachePath is
// set. The returned close function releases the cache and clients.
func New(ctx context.Context, cfg Config) (Embedder, func() error, error) {
	cfg.defaults()

	var (
		emb Embedder
		err error
	)
	switch cfg.Provider {
	case ProviderLexical:
		emb = NewLexical(cfg.Dimension)
	case ProviderOpenAI:
		emb, err = NewOpenAI(cfg)
	case ProviderGemini:
		emb, err = NewGemini(ctx, cfg)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, nil, err
	}
	if cfg.Stats != nil {
		cfg.Stats.setModel(emb.Model())
		emb = &timedEmbedder{next: emb, stats: cfg.Stats}
	}

	closeFn := func() error { return nil }
	if cfg.CachePath != "" {
		cache, err := OpenCache(cfg.CachePath, emb, cfg.Logger)
		if err != nil {
			return nil, nil, err
		}
		cache.stats = cfg.Stats
		emb, closeFn = cache, cache.Close
	}
	cfg.Logger.Debug("embedding provider ready", "provider", cfg.Provider, "model", emb.Model())
	return emb, closeFn, nil
}

// timedEmbedder records every call that reaches the provider.
type timedEmbedder struct {
	next  Embedder
	stats *Stats
}

func (t *timedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := t.next.EmbedBatch(ctx, texts)
	t.stats.RecordCall(len(texts), time.Since(start), err)
	return vecs, err
}

func (t *timedEmbedder) Model() string { return t.next.Model() }
