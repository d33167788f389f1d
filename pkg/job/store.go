package job

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/verdictlabs/verdict/pkg/eval"
)

var (
	// ErrNotFound is returned when a job id is unknown to the store.
	ErrNotFound = errors.New("job not found")

	// ErrAlreadyTerminal is returned by mutations against a job that has
	// reached a terminal state. It guards against late writes from a
	// runner whose job was cancelled or failed underneath it.
	ErrAlreadyTerminal = errors.New("job already in a terminal state")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// record pairs a job with its own lock so mutations on distinct jobs never
// contend. The store's map lock only guards membership.
type record struct {
	mu  sync.Mutex
	job Job
}

// Store is the authoritative in-memory registry of jobs.
type Store struct {
	mu          sync.RWMutex
	jobs        map[string]*record
	maxPageSize int
	now         func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMaxPageSize bounds the page size accepted by List.
func WithMaxPageSize(n int) StoreOption {
	return func(s *Store) { s.maxPageSize = n }
}

// WithClock replaces the store's time source, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty job store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		jobs:        make(map[string]*record),
		maxPageSize: MaxPageSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts a new pending job and returns a copy of it. The id is a
// UUIDv7 so lexicographic order follows creation order.
func (s *Store) Create(name string, tags []string, meta Metadata) (*Job, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}

	if name == "" {
		name = "evaluation-" + id.String()[:8]
	}

	now := s.now()
	j := Job{
		ID:        id.String(),
		Name:      name,
		Tags:      append([]string(nil), tags...),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  meta,
	}

	s.mu.Lock()
	s.jobs[j.ID] = &record{job: j}
	s.mu.Unlock()

	out := j
	return &out, nil
}

// Get returns a copy of the job with the given id.
func (s *Store) Get(id string) (*Job, error) {
	s.mu.RLock()
	rec, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	rec.mu.Lock()
	out := rec.job
	rec.mu.Unlock()
	return &out, nil
}

// Page is one page of a job listing.
type Page struct {
	Jobs       []*Job
	TotalCount int
	Page       int
	PageSize   int
}

// List returns jobs filtered by status and tag, newest first. page is
// 1-indexed; pageSize is clamped to the configured maximum.
func (s *Store) List(page, pageSize int, status Status, tag string) *Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	s.mu.RLock()
	all := make([]*Job, 0, len(s.jobs))
	for _, rec := range s.jobs {
		rec.mu.Lock()
		j := rec.job
		rec.mu.Unlock()

		if status != "" && j.Status != status {
			continue
		}
		if tag != "" && !j.HasTag(tag) {
			continue
		}
		all = append(all, &j)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, k int) bool {
		if !all[i].CreatedAt.Equal(all[k].CreatedAt) {
			return all[i].CreatedAt.After(all[k].CreatedAt)
		}
		// UUIDv7 ids are time-ordered, so this keeps creation order
		// stable when timestamps collide.
		return all[i].ID > all[k].ID
	})

	total := len(all)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &Page{
		Jobs:       all[start:end],
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}
}

// mutate runs fn against the job's record under its lock. Terminal jobs
// reject mutation with ErrAlreadyTerminal.
func (s *Store) mutate(id string, fn func(j *Job)) error {
	s.mu.RLock()
	rec, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.job.Status.Terminal() {
		return ErrAlreadyTerminal
	}
	fn(&rec.job)
	rec.job.UpdatedAt = s.now()
	return nil
}

// UpdateStatus moves the job to the given non-terminal-guarded status.
func (s *Store) UpdateStatus(id string, status Status) error {
	return s.mutate(id, func(j *Job) {
		j.Status = status
	})
}

// UpdateProgress advances the job's progress. Completed is monotonic and
// Total is fixed once set; regressions are ignored rather than applied.
func (s *Store) UpdateProgress(id string, completed, total int, message string) error {
	return s.mutate(id, func(j *Job) {
		if j.Progress.Total == 0 && total > 0 {
			j.Progress.Total = total
		}
		if completed > j.Progress.Completed {
			if j.Progress.Total > 0 && completed > j.Progress.Total {
				completed = j.Progress.Total
			}
			j.Progress.Completed = completed
		}
		j.Progress.Message = message
	})
}

// Complete finalizes the job with its results and summary.
func (s *Store) Complete(id string, results []*eval.Result, summary *eval.Summary) error {
	return s.mutate(id, func(j *Job) {
		j.Status = StatusCompleted
		j.Results = results
		j.Summary = summary
		j.Progress.Completed = j.Progress.Total
		j.Progress.Message = "Completed"
	})
}

// Fail finalizes the job with a failure reason.
func (s *Store) Fail(id string, errMsg string) error {
	return s.mutate(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = errMsg
		j.Progress.Message = "Failed"
	})
}

// Cancel transitions a pending or running job to cancelled. It returns
// false for terminal or unknown jobs.
func (s *Store) Cancel(id string) bool {
	err := s.mutate(id, func(j *Job) {
		j.Status = StatusCancelled
		j.Progress.Message = "Cancelled"
	})
	return err == nil
}

// Delete removes a job of any status. Returns false when the id is
// unknown.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

// Cleanup deletes terminal jobs whose last update is older than maxAge and
// returns the number removed. Pending and running jobs are never swept.
func (s *Store) Cleanup(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.jobs {
		rec.mu.Lock()
		sweep := rec.job.Status.Terminal() && rec.job.UpdatedAt.Before(cutoff)
		rec.mu.Unlock()

		if sweep {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// Stats summarizes the store's contents.
type Stats struct {
	TotalJobs      int            `json:"total_jobs"`
	CountsByStatus map[Status]int `json:"counts_by_status"`
}

// Stats returns job counts per status.
func (s *Store) Stats() Stats {
	counts := make(map[Status]int, len(Statuses()))
	for _, st := range Statuses() {
		counts[st] = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.jobs {
		rec.mu.Lock()
		counts[rec.job.Status]++
		rec.mu.Unlock()
	}

	return Stats{TotalJobs: len(s.jobs), CountsByStatus: counts}
}
