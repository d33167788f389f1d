// Package vart stores evaluation artifacts (uploaded dataset files and
// completed-job result exports) in S3-compatible object storage. The
// server works without it; when unconfigured, uploads are simply not
// retained.
package vart

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when an artifact key does not exist.
var ErrNotFound = errors.New("vart: artifact not found")

// Artifact describes a stored object.
type Artifact struct {
	Key          string            `json:"key"`
	Bucket       string            `json:"bucket"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type"`
	LastModified time.Time         `json:"last_modified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Store is the artifact storage interface.
type Store interface {
	// Upload stores the reader's content under key.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string, metadata map[string]string) (*Artifact, error)

	// Download retrieves an artifact by key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// PresignedURL generates a time-limited download URL for an artifact.
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// DeletePrefix removes every artifact under the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// EnsureBucket creates the backing bucket if it does not exist.
	EnsureBucket(ctx context.Context) error
}

// JobPrefix is the storage prefix holding all artifacts of one job.
func JobPrefix(jobID string) string {
	return "jobs/" + jobID + "/"
}

// DatasetKey is the storage key for a job's uploaded dataset file.
func DatasetKey(jobID, filename string) string {
	return JobPrefix(jobID) + "dataset/" + filename
}

// ResultsKey is the storage key for a job's exported results.
func ResultsKey(jobID string) string {
	return JobPrefix(jobID) + "results.json"
}
