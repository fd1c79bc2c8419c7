package embed

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"
)

// fakeClock returns a Stats whose clock is advanced by hand.
func fakeClock(window time.Duration) (*Stats, *time.Time) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewStats(window)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestStats_BatchesAndThroughput(t *testing.T) {
	s, _ := fakeClock(time.Hour)
	s.RecordCall(10, 100*time.Millisecond, nil)
	s.RecordCall(30, 300*time.Millisecond, nil)
	s.RecordCall(5, 50*time.Millisecond, errors.New("503"))

	snap := s.Snapshot()
	if snap.Calls != 3 || snap.Failures != 1 {
		t.Fatalf("expected 3 calls with 1 failure, got %d/%d", snap.Calls, snap.Failures)
	}
	if snap.Texts != 40 {
		t.Errorf("expected 40 embedded texts, got %d", snap.Texts)
	}
	if snap.MeanBatch != 15 {
		t.Errorf("expected mean batch 15, got %f", snap.MeanBatch)
	}
	if math.Abs(snap.TextsPerSec-100) > 1e-9 {
		t.Errorf("expected 100 texts/sec, got %f", snap.TextsPerSec)
	}
	if snap.P50Ms != 100 || snap.P95Ms != 300 || snap.MaxMs != 300 {
		t.Errorf("expected p50=100 p95=300 max=300, got %f %f %f", snap.P50Ms, snap.P95Ms, snap.MaxMs)
	}
}

func TestStats_CacheHitRate(t *testing.T) {
	s, _ := fakeClock(time.Hour)
	s.RecordLookup(3, 1)
	s.RecordLookup(0, 2)
	s.RecordLookup(0, 0)

	snap := s.Snapshot()
	if snap.CacheHits != 3 || snap.CacheMisses != 3 {
		t.Fatalf("expected 3 hits and 3 misses, got %d/%d", snap.CacheHits, snap.CacheMisses)
	}
	if snap.CacheHitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", snap.CacheHitRate)
	}
	if snap.Calls != 0 || snap.TextsPerSec != 0 {
		t.Errorf("expected no provider figures, got %+v", snap)
	}
}

func TestStats_WindowDropsOldSamples(t *testing.T) {
	s, now := fakeClock(time.Minute)
	s.RecordCall(8, time.Second, nil)
	s.RecordLookup(1, 0)

	*now = now.Add(2 * time.Minute)
	s.RecordCall(2, 500*time.Millisecond, nil)

	snap := s.Snapshot()
	if snap.Calls != 1 || snap.Texts != 2 {
		t.Errorf("expected only the fresh call, got calls=%d texts=%d", snap.Calls, snap.Texts)
	}
	if snap.CacheHits != 0 || snap.CacheHitRate != 0 {
		t.Errorf("expected expired lookup dropped, got %+v", snap)
	}
}

func TestStats_NegativeElapsedClamped(t *testing.T) {
	s, _ := fakeClock(time.Hour)
	s.RecordCall(1, -time.Second, nil)
	snap := s.Snapshot()
	if snap.MaxMs != 0 || snap.TextsPerSec != 0 {
		t.Errorf("expected zero latency and no throughput, got %+v", snap)
	}
}

func TestNew_RecordsProviderCallsBehindCache(t *testing.T) {
	stats := NewStats(time.Hour)
	emb, closeFn, err := New(context.Background(), Config{
		Stats:     stats,
		CachePath: filepath.Join(t.TempDir(), "embed.db"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closeFn()

	ctx := context.Background()
	if _, err := emb.EmbedBatch(ctx, []string{"alpha", "beta"}); err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if _, err := emb.EmbedBatch(ctx, []string{"alpha", "gamma"}); err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if _, err := emb.EmbedBatch(ctx, []string{"gamma"}); err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}

	snap := stats.Snapshot()
	if snap.Model != "lexical-512" {
		t.Errorf("expected model label, got %q", snap.Model)
	}
	if snap.Calls != 2 || snap.Texts != 3 {
		t.Errorf("expected 2 provider calls for 3 texts, got %d/%d", snap.Calls, snap.Texts)
	}
	if snap.CacheHits != 2 || snap.CacheMisses != 3 {
		t.Errorf("expected 2 hits and 3 misses, got %d/%d", snap.CacheHits, snap.CacheMisses)
	}
}
