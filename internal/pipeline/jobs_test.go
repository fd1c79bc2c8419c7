package pipeline

import (
	"errors"
	"testing"
	"time"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob(KindCompare,
		Input{Filename: "questions.pdf", Data: []byte("hello ")},
		Input{Filename: "answers.pdf", Data: []byte("world")},
	)
	if job.Status != StatusQueued || job.Kind != KindCompare {
		t.Errorf("unexpected job state %q/%q", job.Status, job.Kind)
	}
	if job.Filename != "questions.pdf" {
		t.Errorf("expected filename of first input, got %q", job.Filename)
	}
	if job.ContentHash != ContentHashHex([]byte("hello world")) {
		t.Errorf("expected hash over all inputs, got %q", job.ContentHash)
	}
	if len(job.ID) != 26 {
		t.Errorf("expected 26-char job id, got %q", job.ID)
	}
	if len(job.Inputs()) != 2 {
		t.Errorf("expected 2 inputs, got %d", len(job.Inputs()))
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob(KindConvert, Input{Filename: "a.txt"})

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing a.txt"},
		{StatusProcessing, "processing a.txt"},
		{StatusEncoding, "encoding"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_FinishStoresResult(t *testing.T) {
	job := NewJob(KindConvert, Input{Filename: "a.txt", Data: []byte("x")})
	if _, ok := job.Result(); ok {
		t.Fatal("expected no result before completion")
	}
	job.Finish(Result{ContentType: ContentTypeStructured, Body: []byte("out")})

	res, ok := job.Result()
	if !ok || string(res.Body) != "out" {
		t.Errorf("expected stored result, got %+v (%v)", res, ok)
	}
	if job.Status != StatusCompleted {
		t.Errorf("expected %q, got %q", StatusCompleted, job.Status)
	}
	if job.Inputs() != nil {
		t.Error("expected inputs to be released")
	}
}

func TestJob_Fail(t *testing.T) {
	job := NewJob(KindConvert, Input{Filename: "a.txt"})
	job.Fail("parsing", errors.New("bad file"))

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "parsing" {
		t.Errorf("unexpected state %q/%q", snap.Status, snap.Phase)
	}
	if len(snap.Progress.Errors) != 1 || snap.Progress.Errors[0] != "bad file" {
		t.Errorf("unexpected errors %q", snap.Progress.Errors)
	}
}

func TestJob_Progress(t *testing.T) {
	job := NewJob(KindConvert)
	job.AddTotalPages(3)
	job.IncrPagesProcessed()
	job.IncrPagesProcessed()
	job.AddSummary(Summary{PagesSkipped: 1, Warnings: []string{"w1"}})

	snap := job.Snapshot()
	if snap.Progress.TotalPages != 3 || snap.Progress.PagesProcessed != 2 || snap.Progress.PagesSkipped != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if len(snap.Progress.Warnings) != 1 || snap.Progress.Warnings[0] != "w1" {
		t.Errorf("unexpected warnings %q", snap.Progress.Warnings)
	}
}

func TestJob_SnapshotSlicesNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil || snap.Progress.Warnings == nil {
		t.Error("expected non-nil slices in snapshot")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job left, got %d", store.Len())
	}
}

func TestNewJobID_SortsByCreation(t *testing.T) {
	seen := make(map[string]bool)
	prev := ""
	for range 100 {
		id := NewJobID()
		if len(id) != 26 {
			t.Fatalf("expected 26 chars, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		if id <= prev {
			t.Errorf("expected %q to sort after %q", id, prev)
		}
		seen[id] = true
		prev = id
	}
}

func TestEncodeULID(t *testing.T) {
	var zero [16]byte
	if got := encodeULID(zero); got != "00000000000000000000000000" {
		t.Errorf("expected all zeros, got %q", got)
	}
	var ones [16]byte
	for i := range ones {
		ones[i] = 0xff
	}
	if got := encodeULID(ones); got != "7ZZZZZZZZZZZZZZZZZZZZZZZZZ" {
		t.Errorf("expected max ulid, got %q", got)
	}
}
