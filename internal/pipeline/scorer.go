package pipeline

import (
	"context"

	"github.com/dgallion1/pdf2llm/internal/chunker"
	"github.com/dgallion1/pdf2llm/internal/embed"
	"github.com/dgallion1/pdf2llm/internal/qa"
)

// EmbeddingScorer returns a ScorerFactory that splits each passage into
// windows and scores questions by embedding similarity. A passage with no
// text is represented by its title.
func EmbeddingScorer(emb embed.Embedder, window chunker.Config) qa.ScorerFactory {
	return func(ctx context.Context, questions []string, passages []qa.Passage) (qa.Scorer, error) {
		windows := make([][]string, len(passages))
		for i, p := range passages {
			windows[i] = chunker.Windows(p.Text, window)
			if len(windows[i]) == 0 && p.Title != "" {
				windows[i] = []string{p.Title}
			}
		}
		return embed.NewMatrixScorer(ctx, emb, questions, windows)
	}
}
