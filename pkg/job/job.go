// Package job tracks asynchronous evaluation work. A Job moves through a
// small state machine (pending -> running -> completed|failed, with
// cancellation from pending or running) and is owned exclusively by the
// Store; the Runner mutates jobs only through Store operations.
package job

import (
	"time"

	"github.com/verdictlabs/verdict/pkg/eval"
)

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled}
}

// JobType identifies how a job was submitted.
const (
	TypeSingle  = "single"
	TypeBulk    = "bulk"
	TypeDataset = "dataset"
)

// Progress reports how far a running job has come. Completed never
// decreases within a run and never exceeds Total once Total is known.
type Progress struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Message   string `json:"message,omitempty"`
}

// Metadata carries submission context. It is set at creation and read-only
// afterwards.
type Metadata struct {
	Owner          string `json:"owner,omitempty"`
	JobType        string `json:"job_type,omitempty"`
	SourceFileName string `json:"source_file_name,omitempty"`
	DatasetName    string `json:"dataset_name,omitempty"`
	TestCaseCount  int    `json:"test_case_count,omitempty"`
}

// Job is one accepted unit of asynchronous evaluation work.
type Job struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Tags      []string       `json:"tags,omitempty"`
	Status    Status         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Progress  Progress       `json:"progress"`
	Metadata  Metadata       `json:"metadata"`
	Results   []*eval.Result `json:"results,omitempty"`
	Summary   *eval.Summary  `json:"summary,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// HasTag reports whether the job carries the given tag.
func (j *Job) HasTag(tag string) bool {
	for _, t := range j.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
