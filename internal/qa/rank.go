// Package qa ranks answer passages against questions and builds match
// reports.
package qa

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

// Passage is one candidate answer: a section title, its 0-based inclusive
// page range and its text.
type Passage struct {
	Title     string
	PageStart int
	PageEnd   int
	Text      string
}

// Scorer returns the similarity in [0,1] of question q to passage p.
// Indices refer to the slices given to Rank.
type Scorer interface {
	Score(ctx context.Context, q, p int) (float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, q, p int) (float64, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, q, p int) (float64, error) {
	return f(ctx, q, p)
}

// Options control ranking.
type Options struct {
	TopN          int     // Matches kept per question, at least 1.
	MinSimilarity float64 // Scores below this are discarded.
	ExcerptRunes  int     // Excerpt length; zero means DefaultExcerptRunes.
	Concurrency   int     // Parallel scorer calls; zero means 1.
}

// DefaultExcerptRunes is the excerpt length used when Options leaves it unset.
const DefaultExcerptRunes = 500

// DefaultOptions returns the standard ranking options.
func DefaultOptions() Options {
	return Options{
		TopN:          3,
		MinSimilarity: 0.5,
		ExcerptRunes:  DefaultExcerptRunes,
		Concurrency:   8,
	}
}

// ErrInvalidOptions is returned for out-of-range ranking options.
var ErrInvalidOptions = errors.New("qa: invalid options")

func (o Options) validate() error {
	switch {
	case o.TopN < 1:
		return fmt.Errorf("%w: top_n %d must be at least 1", ErrInvalidOptions, o.TopN)
	case math.IsNaN(o.MinSimilarity) || o.MinSimilarity < 0 || o.MinSimilarity > 1:
		return fmt.Errorf("%w: min_similarity %v outside [0,1]", ErrInvalidOptions, o.MinSimilarity)
	case o.ExcerptRunes < 0:
		return fmt.Errorf("%w: excerpt length %d is negative", ErrInvalidOptions, o.ExcerptRunes)
	case o.Concurrency < 0:
		return fmt.Errorf("%w: concurrency %d is negative", ErrInvalidOptions, o.Concurrency)
	}
	return nil
}

// Rank scores every passage against every question and returns one QAMatch
// per question, in question order. Each question keeps the passages scoring
// at least MinSimilarity, best first, at most TopN of them; equal scores
// keep passage order. A question with no such passage is unmatched.
//
// The scorer is called exactly len(questions)*len(passages) times, possibly
// in parallel. A score outside [0,1] fails the call with an
// *doctree.InvariantViolationError.
func Rank(ctx context.Context, questions []string, passages []Passage, scorer Scorer, opts Options) ([]doctree.QAMatch, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.ExcerptRunes == 0 {
		opts.ExcerptRunes = DefaultExcerptRunes
	}
	if len(questions) == 0 {
		return nil, nil
	}

	scores, err := scoreAll(ctx, len(questions), len(passages), scorer, max(opts.Concurrency, 1))
	if err != nil {
		return nil, err
	}

	out := make([]doctree.QAMatch, len(questions))
	for q, question := range questions {
		out[q] = rankOne(question, scores[q], passages, opts)
	}
	return out, nil
}

func rankOne(question string, scores []float64, passages []Passage, opts Options) doctree.QAMatch {
	var idx []int
	for p, s := range scores {
		if s >= opts.MinSimilarity {
			idx = append(idx, p)
		}
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return scores[idx[i]] > scores[idx[j]]
	})
	if len(idx) > opts.TopN {
		idx = idx[:opts.TopN]
	}

	m := doctree.QAMatch{Question: question, IsUnmatched: len(idx) == 0}
	for _, p := range idx {
		ps := passages[p]
		excerpt := Excerpt(ps.Text, opts.ExcerptRunes)
		if excerpt == "" {
			excerpt = ps.Title
		}
		m.Matches = append(m.Matches, doctree.MatchResult{
			SectionTitle:    ps.Title,
			PageRange:       [2]int{ps.PageStart, ps.PageEnd},
			SimilarityScore: scores[p],
			TextExcerpt:     excerpt,
		})
	}
	return m
}

type scoreResult struct {
	q, p  int
	score float64
	err   error
}

// scoreAll fills a questions x passages matrix using at most workers
// concurrent scorer calls. Every cell is evaluated before it returns.
func scoreAll(ctx context.Context, questions, passages int, scorer Scorer, workers int) ([][]float64, error) {
	scores := make([][]float64, questions)
	for q := range scores {
		scores[q] = make([]float64, passages)
	}
	total := questions * passages
	if total == 0 {
		return scores, nil
	}

	results := make(chan scoreResult, total)
	sem := make(chan struct{}, workers)
	go func() {
		for q := range questions {
			for p := range passages {
				sem <- struct{}{}
				go func(q, p int) {
					defer func() { <-sem }()
					s, err := scorer.Score(ctx, q, p)
					results <- scoreResult{q: q, p: p, score: s, err: err}
				}(q, p)
			}
		}
	}()

	var firstErr error
	for range total {
		r := <-results
		switch {
		case firstErr != nil:
		case r.err != nil:
			firstErr = fmt.Errorf("qa: score question %d against passage %d: %w", r.q, r.p, r.err)
		case math.IsNaN(r.score) || r.score < 0 || r.score > 1:
			firstErr = doctree.Violation("similarity %v for question %d and passage %d outside [0,1]", r.score, r.q, r.p)
		default:
			scores[r.q][r.p] = r.score
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return scores, nil
}
