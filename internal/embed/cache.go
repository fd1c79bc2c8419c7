package embed

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"

	_ "modernc.org/sqlite"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS embeddings (
	model      TEXT NOT NULL,
	text_hash  TEXT NOT NULL,
	vector     BLOB NOT NULL,
	created_at INTEGER NOT NULL DEFAULT (unixepoch()),
	PRIMARY KEY (model, text_hash)
)`

// Cache stores vectors in SQLite keyed by model and SHA-256 of the text, and
// only sends misses to the wrapped embedder.
type Cache struct {
	db    *sql.DB
	next  Embedder
	log   *slog.Logger
	stats *Stats
}

// OpenCache opens (creating if needed) the cache database at path.
func OpenCache(path string, next Embedder, log *slog.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("embed: open cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("embed: create cache schema: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache{db: db, next: next, log: log}, nil
}

func (c *Cache) Model() string { return c.next.Model() }

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := c.next.Model()
	out := make([][]float32, len(texts))
	hashes := make([]string, len(texts))

	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		hashes[i] = textHash(t)
		var blob []byte
		err := c.db.QueryRowContext(ctx,
			`SELECT vector FROM embeddings WHERE model = ? AND text_hash = ?`, model, hashes[i]).Scan(&blob)
		switch {
		case err == sql.ErrNoRows:
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, t)
		case err != nil:
			return nil, fmt.Errorf("embed: read cache: %w", err)
		default:
			out[i] = DeserializeVector(blob)
		}
	}
	if c.stats != nil {
		c.stats.RecordLookup(len(texts)-len(missIdx), len(missIdx))
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	vecs, err := c.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embed: provider returned %d vectors for %d texts", len(vecs), len(missTexts))
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("embed: begin cache write: %w", err)
	}
	defer tx.Rollback()
	for j, i := range missIdx {
		out[i] = vecs[j]
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO embeddings (model, text_hash, vector) VALUES (?, ?, ?)`,
			model, hashes[i], SerializeVector(vecs[j])); err != nil {
			return nil, fmt.Errorf("embed: write cache: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("embed: commit cache write: %w", err)
	}
	c.log.Debug("embedding cache", "hits", len(texts)-len(missIdx), "misses", len(missIdx))
	return out, nil
}

func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// SerializeVector converts a float32 slice to bytes (little-endian).
func SerializeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DeserializeVector converts bytes back to a float32 slice.
func DeserializeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
