package embed

import (
	"math"
	"slices"
	"sort"
	"sync"
	"time"
)

// providerCall is one EmbedBatch request that reached the provider.
type providerCall struct {
	at      time.Time
	elapsed time.Duration
	texts   int
	failed  bool
}

// cacheLookup is one batch answered partly or wholly from the cache.
type cacheLookup struct {
	at           time.Time
	hits, misses int
}

// StatsSnapshot summarizes embedding traffic inside the stats window.
// Latency and batch figures cover every provider call; throughput counts
// only the texts of calls that succeeded.
type StatsSnapshot struct {
	Model       string  `json:"model,omitempty"`
	Calls       int     `json:"calls"`
	Failures    int     `json:"failures"`
	Texts       int     `json:"texts"`
	MeanBatch   float64 `json:"mean_batch"`
	TextsPerSec float64 `json:"texts_per_sec"`
	P50Ms       float64 `json:"p50_ms"`
	P95Ms       float64 `json:"p95_ms"`
	MaxMs       float64 `json:"max_ms"`

	CacheHits    int     `json:"cache_hits"`
	CacheMisses  int     `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`
}

// Stats records provider calls and cache lookups over a rolling window.
// It is safe for concurrent use.
type Stats struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	model   string
	calls   []providerCall
	lookups []cacheLookup
}

// NewStats keeps samples for window (one hour when window <= 0).
func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{window: window, now: time.Now}
}

func (s *Stats) setModel(model string) {
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
}

// RecordCall adds a provider request of texts inputs that took elapsed.
func (s *Stats) RecordCall(texts int, elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now)
	s.calls = append(s.calls, providerCall{
		at:      now,
		elapsed: max(elapsed, 0),
		texts:   texts,
		failed:  err != nil,
	})
}

// RecordLookup adds the outcome of one cache pass over a batch.
func (s *Stats) RecordLookup(hits, misses int) {
	if hits == 0 && misses == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now)
	s.lookups = append(s.lookups, cacheLookup{at: now, hits: hits, misses: misses})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())

	snap := StatsSnapshot{Model: s.model, Calls: len(s.calls)}
	for _, l := range s.lookups {
		snap.CacheHits += l.hits
		snap.CacheMisses += l.misses
	}
	if total := snap.CacheHits + snap.CacheMisses; total > 0 {
		snap.CacheHitRate = float64(snap.CacheHits) / float64(total)
	}
	if len(s.calls) == 0 {
		return snap
	}

	var batched int
	var busy time.Duration
	latencies := make([]float64, len(s.calls))
	for i, c := range s.calls {
		latencies[i] = float64(c.elapsed) / float64(time.Millisecond)
		batched += c.texts
		if c.failed {
			snap.Failures++
			continue
		}
		snap.Texts += c.texts
		busy += c.elapsed
	}
	slices.Sort(latencies)

	snap.MeanBatch = float64(batched) / float64(len(s.calls))
	if busy > 0 {
		snap.TextsPerSec = float64(snap.Texts) / busy.Seconds()
	}
	snap.P50Ms = nearestRank(latencies, 50)
	snap.P95Ms = nearestRank(latencies, 95)
	snap.MaxMs = latencies[len(latencies)-1]
	return snap
}

// pruneLocked drops samples older than the window. Samples are appended
// under the lock with a non-decreasing clock, so both slices are sorted.
func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.calls = dropBefore(s.calls, cutoff, func(c providerCall) time.Time { return c.at })
	s.lookups = dropBefore(s.lookups, cutoff, func(l cacheLookup) time.Time { return l.at })
}

func dropBefore[T any](xs []T, cutoff time.Time, at func(T) time.Time) []T {
	i := sort.Search(len(xs), func(i int) bool { return !at(xs[i]).Before(cutoff) })
	if i == 0 {
		return xs
	}
	return append(xs[:0], xs[i:]...)
}

// nearestRank returns the pct-th percentile of sorted values.
func nearestRank(sorted []float64, pct float64) float64 {
	rank := int(math.Ceil(pct / 100 * float64(len(sorted))))
	return sorted[min(max(rank, 1), len(sorted))-1]
}
