package embed

import (
	"context"
	"fmt"
	"math"
)

// MatrixScorer holds question-to-passage similarities computed from one
// embedding pass. A passage may be split into several windows; its score is
// that of its best window.
type MatrixScorer struct {
	scores [][]float64
}

// NewMatrixScorer embeds every question and passage window in a single batch
// and precomputes all similarities. A passage without windows scores zero.
func NewMatrixScorer(ctx context.Context, emb Embedder, questions []string, passages [][]string) (*MatrixScorer, error) {
	texts := make([]string, 0, len(questions)+len(passages))
	texts = append(texts, questions...)
	owner := make([]int, 0, len(passages))
	for p, windows := range passages {
		for _, w := range windows {
			texts = append(texts, w)
			owner = append(owner, p)
		}
	}

	vecs, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed: provider returned %d vectors for %d texts", len(vecs), len(texts))
	}

	scores := make([][]float64, len(questions))
	for q := range questions {
		scores[q] = make([]float64, len(passages))
		for i, p := range owner {
			if s := Similarity(vecs[q], vecs[len(questions)+i]); s > scores[q][p] {
				scores[q][p] = s
			}
		}
	}
	return &MatrixScorer{scores: scores}, nil
}

// Score returns the similarity of question q to passage p.
func (m *MatrixScorer) Score(_ context.Context, q, p int) (float64, error) {
	if q < 0 || q >= len(m.scores) || p < 0 || p >= len(m.scores[q]) {
		return 0, fmt.Errorf("embed: no score for question %d passage %d", q, p)
	}
	return m.scores[q][p], nil
}

// Similarity is the cosine similarity of a and b clamped to [0,1]. Vectors
// of different length or zero norm score zero.
func Similarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	s := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	return min(s, 1)
}
