package schemas

import (
	"time"

	"github.com/verdictlabs/verdict/pkg/eval"
	"github.com/verdictlabs/verdict/pkg/job"
)

// JobView is the wire representation of a job.
type JobView struct {
	ID        string         `json:"id" doc:"Job identifier"`
	Name      string         `json:"name" doc:"Job name"`
	Tags      []string       `json:"tags,omitempty" doc:"Labels attached at submission"`
	Status    string         `json:"status" doc:"Lifecycle state" enum:"pending,running,completed,failed,cancelled"`
	CreatedAt string         `json:"created_at" doc:"Submission time (RFC 3339)"`
	UpdatedAt string         `json:"updated_at" doc:"Last transition time (RFC 3339)"`
	Progress  job.Progress   `json:"progress" doc:"Completion progress"`
	Metadata  job.Metadata   `json:"metadata" doc:"Submission context"`
	Results   []*eval.Result `json:"results,omitempty" doc:"Per-case results, present once completed"`
	Summary   *eval.Summary  `json:"summary,omitempty" doc:"Aggregate statistics, present once completed"`
	Error     string         `json:"error,omitempty" doc:"Failure detail, present when failed"`
}

// ToJobView flattens a job for the API, rendering timestamps as RFC 3339.
func ToJobView(j *job.Job) JobView {
	return JobView{
		ID:        j.ID,
		Name:      j.Name,
		Tags:      j.Tags,
		Status:    string(j.Status),
		CreatedAt: j.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.UTC().Format(time.RFC3339),
		Progress:  j.Progress,
		Metadata:  j.Metadata,
		Results:   j.Results,
		Summary:   j.Summary,
		Error:     j.Error,
	}
}

type JobResponse struct {
	Body JobView
}

type JobListResponse struct {
	Body struct {
		Jobs       []JobView `json:"jobs" doc:"Jobs on this page, newest first"`
		TotalCount int       `json:"total_count" doc:"Jobs matching the filter across all pages"`
		Page       int       `json:"page" doc:"Current page number"`
		PageSize   int       `json:"page_size" doc:"Jobs per page"`
	}
}

type MessageResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

type JobStatsResponse struct {
	Body struct {
		TotalJobs      int            `json:"total_jobs" doc:"Jobs currently held in the store"`
		CountsByStatus map[string]int `json:"counts_by_status" doc:"Job count per lifecycle state"`
	}
}

type CleanupResponse struct {
	Body struct {
		RemovedCount int `json:"removed_count" doc:"Terminal jobs removed"`
		MaxAgeDays   int `json:"max_age_days" doc:"Retention window applied"`
	}
}
