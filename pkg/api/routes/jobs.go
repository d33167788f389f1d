package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/verdictlabs/verdict/pkg/api/schemas"
	"github.com/verdictlabs/verdict/pkg/api/services"
	"github.com/verdictlabs/verdict/pkg/job"
	"github.com/verdictlabs/verdict/pkg/vart"
	"github.com/verdictlabs/verdict/pkg/vauth"
)

type ListJobsInput struct {
	Page     int    `query:"page" default:"1" minimum:"1" doc:"Page number"`
	PageSize int    `query:"pageSize" default:"20" minimum:"1" maximum:"100" doc:"Jobs per page"`
	Status   string `query:"status" required:"false" enum:"pending,running,completed,failed,cancelled" doc:"Filter by lifecycle state"`
	Tag      string `query:"tag" required:"false" doc:"Filter by tag"`
}

type JobIDInput struct {
	JobID string `path:"jobId" doc:"Job ID"`
}

type CleanupInput struct {
	MaxAgeDays int `query:"maxAgeDays" default:"7" minimum:"1" maximum:"365" doc:"Remove terminal jobs older than this many days"`
}

// RegisterJobs registers job inspection and lifecycle routes.
func RegisterJobs(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/jobs",
		Summary:     "List jobs",
		Description: "Lists jobs newest first, optionally filtered by status or tag",
		Tags:        []string{TagJobs.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *ListJobsInput) (*schemas.JobListResponse, error) {
		if _, err := principalOr401(svcs, ctx); err != nil {
			return nil, err
		}

		page := svcs.Jobs.List(input.Page, input.PageSize, job.Status(input.Status), input.Tag)

		resp := &schemas.JobListResponse{}
		resp.Body.Jobs = make([]schemas.JobView, 0, len(page.Jobs))
		for _, j := range page.Jobs {
			resp.Body.Jobs = append(resp.Body.Jobs, schemas.ToJobView(j))
		}
		resp.Body.TotalCount = page.TotalCount
		resp.Body.Page = page.Page
		resp.Body.PageSize = page.PageSize
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/jobs/{jobId}",
		Summary:     "Get a job",
		Description: "Retrieves a job's status, progress, and results once available",
		Tags:        []string{TagJobs.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *JobIDInput) (*schemas.JobResponse, error) {
		if _, err := principalOr401(svcs, ctx); err != nil {
			return nil, err
		}

		j, err := svcs.Jobs.Get(input.JobID)
		if err != nil {
			return nil, huma.Error404NotFound(fmt.Sprintf("job %s not found", input.JobID))
		}

		return &schemas.JobResponse{Body: schemas.ToJobView(j)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-job",
		Method:      http.MethodPost,
		Path:        "/jobs/{jobId}/cancel",
		Summary:     "Cancel a job",
		Description: "Requests cancellation of a pending or running job",
		Tags:        []string{TagJobs.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *JobIDInput) (*schemas.MessageResponse, error) {
		if _, err := principalOr401(svcs, ctx); err != nil {
			return nil, err
		}

		if !svcs.Jobs.Cancel(input.JobID) {
			return nil, huma.Error400BadRequest(fmt.Sprintf("job %s not found or cannot be cancelled", input.JobID))
		}

		resp := &schemas.MessageResponse{}
		resp.Body.Message = fmt.Sprintf("job %s cancelled", input.JobID)
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-job",
		Method:      http.MethodDelete,
		Path:        "/jobs/{jobId}",
		Summary:     "Delete a job",
		Description: "Removes a job record and any archived artifacts",
		Tags:        []string{TagJobs.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *JobIDInput) (*schemas.MessageResponse, error) {
		if _, err := principalOr401(svcs, ctx); err != nil {
			return nil, err
		}

		if !svcs.Jobs.Delete(input.JobID) {
			return nil, huma.Error404NotFound(fmt.Sprintf("job %s not found", input.JobID))
		}

		if svcs.Artifacts != nil {
			if err := svcs.Artifacts.DeletePrefix(ctx, vart.JobPrefix(input.JobID)); err != nil {
				svcs.Log.Warn("failed to delete job artifacts", "job_id", input.JobID, "error", err)
			}
		}

		resp := &schemas.MessageResponse{}
		resp.Body.Message = fmt.Sprintf("job %s deleted", input.JobID)
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "job-stats",
		Method:      http.MethodGet,
		Path:        "/jobs/stats/summary",
		Summary:     "Job statistics",
		Description: "Counts jobs in the store per lifecycle state",
		Tags:        []string{TagJobs.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *struct{}) (*schemas.JobStatsResponse, error) {
		if _, err := principalOr401(svcs, ctx); err != nil {
			return nil, err
		}

		stats := svcs.Jobs.Stats()

		resp := &schemas.JobStatsResponse{}
		resp.Body.TotalJobs = stats.TotalJobs
		resp.Body.CountsByStatus = make(map[string]int, len(stats.CountsByStatus))
		for status, n := range stats.CountsByStatus {
			resp.Body.CountsByStatus[string(status)] = n
		}
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cleanup-jobs",
		Method:      http.MethodPost,
		Path:        "/jobs/cleanup",
		Summary:     "Clean up old jobs",
		Description: "Removes terminal jobs older than the retention window. Requires the admin scope.",
		Tags:        []string{TagJobs.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *CleanupInput) (*schemas.CleanupResponse, error) {
		p, err := principalOr401(svcs, ctx)
		if err != nil {
			return nil, err
		}
		if !p.HasScope(vauth.ScopeAdmin) {
			return nil, huma.Error403Forbidden("admin scope required")
		}

		removed := svcs.Jobs.Cleanup(time.Duration(input.MaxAgeDays) * 24 * time.Hour)

		resp := &schemas.CleanupResponse{}
		resp.Body.RemovedCount = removed
		resp.Body.MaxAgeDays = input.MaxAgeDays
		return resp, nil
	})
}
