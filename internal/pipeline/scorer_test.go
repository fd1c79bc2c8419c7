package pipeline

import (
	"context"
	"testing"

	"github.com/dgallion1/pdf2llm/internal/chunker"
	"github.com/dgallion1/pdf2llm/internal/embed"
	"github.com/dgallion1/pdf2llm/internal/qa"
)

func TestEmbeddingScorer_EmptyPassageUsesTitle(t *testing.T) {
	factory := EmbeddingScorer(embed.NewLexical(512), chunker.DefaultConfig())
	passages := []qa.Passage{
		{Title: "warranty claims"},
		{Title: "Other", Text: "delivery times for parcels"},
	}
	scorer, err := factory(context.Background(), []string{"warranty claims"}, passages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byTitle, err := scorer.Score(context.Background(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if byTitle < 0.99 {
		t.Errorf("expected title-only passage to match its own words, got %v", byTitle)
	}
	other, err := scorer.Score(context.Background(), 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if other >= byTitle {
		t.Errorf("expected unrelated passage to score lower, got %v >= %v", other, byTitle)
	}
}
