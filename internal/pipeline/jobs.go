package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobKind selects what a job produces.
type JobKind string

const (
	KindConvert JobKind = "convert" // Document to structured text
	KindCompare JobKind = "compare" // Questions document against answers document
)

// JobStatus represents the state of a job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusProcessing JobStatus = "processing"
	StatusMatching   JobStatus = "matching"
	StatusEncoding   JobStatus = "encoding"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Input is one uploaded file.
type Input struct {
	Filename string
	Data     []byte
}

// Result is the finished output of a job.
type Result struct {
	ContentType string
	Body        []byte
}

// Job tracks the state of a single conversion or comparison.
type Job struct {
	mu sync.Mutex

	ID   string  `json:"job_id"`
	Kind JobKind `json:"kind"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	inputs []Input
	result *Result
	errors []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalPages     int      `json:"total_pages"`
	PagesProcessed int      `json:"pages_processed"`
	PagesSkipped   int      `json:"pages_skipped"`
	Warnings       []string `json:"warnings"`
	Errors         []string `json:"errors"`
}

// NewJob creates a queued job over the given inputs. A compare job takes
// the questions file first and the answers file second.
func NewJob(kind JobKind, inputs ...Input) *Job {
	now := time.Now()
	job := &Job{
		ID:        NewJobID(),
		Kind:      kind,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		inputs:    inputs,
	}
	if len(inputs) > 0 {
		job.Filename = inputs[0].Filename
		var all []byte
		for _, in := range inputs {
			all = append(all, in.Data...)
		}
		job.ContentHash = ContentHashHex(all)
	}
	return job
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of stored jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// AddTotalPages adds n pages to the expected total.
func (j *Job) AddTotalPages(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalPages += n
	j.UpdatedAt = time.Now()
}

// IncrPagesProcessed atomically increments pages processed.
func (j *Job) IncrPagesProcessed() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.PagesProcessed++
	j.UpdatedAt = time.Now()
}

// AddSummary records the skipped pages and warnings of a processing run.
func (j *Job) AddSummary(s Summary) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.PagesSkipped += s.PagesSkipped
	j.Progress.Warnings = append(j.Progress.Warnings, s.Warnings...)
	j.UpdatedAt = time.Now()
}

// Inputs returns the uploaded files.
func (j *Job) Inputs() []Input {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inputs
}

// Finish stores the result, releases the inputs and marks the job completed.
func (j *Job) Finish(r Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = &r
	j.inputs = nil
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Fail records err and marks the job failed in phase.
func (j *Job) Fail(phase string, err error) {
	j.AddError(err.Error())
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inputs = nil
	j.Status = StatusFailed
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Result returns the job output once it has completed.
func (j *Job) Result() (Result, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.result == nil {
		return Result{}, false
	}
	return *j.result, true
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Kind        JobKind   `json:"kind"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	warnings := append([]string{}, j.Progress.Warnings...)
	return JobSnapshot{
		ID:          j.ID,
		Kind:        j.Kind,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		ContentHash: j.ContentHash,
		Progress: Progress{
			TotalPages:     j.Progress.TotalPages,
			PagesProcessed: j.Progress.PagesProcessed,
			PagesSkipped:   j.Progress.PagesSkipped,
			Warnings:       warnings,
			Errors:         errs,
		},
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
