package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/verdictlabs/verdict/pkg/api/schemas"
	"github.com/verdictlabs/verdict/pkg/api/services"
	"github.com/verdictlabs/verdict/pkg/dataset"
	"github.com/verdictlabs/verdict/pkg/job"
	"github.com/verdictlabs/verdict/pkg/vart"
)

// DatasetFormData is the multipart payload for dataset evaluation.
type DatasetFormData struct {
	File huma.FormFile `form:"file" required:"true" doc:"Dataset file (.csv, .json, or .jsonl)"`
}

// DatasetUploadInput carries the multipart body plus the scalar form fields
// read from RawBody.Form.
type DatasetUploadInput struct {
	RawBody huma.MultipartFormFiles[DatasetFormData]
}

// RegisterEvaluation registers synchronous and asynchronous evaluation routes.
func RegisterEvaluation(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "evaluate",
		Method:      http.MethodPost,
		Path:        "/evaluate",
		Summary:     "Evaluate a single test case",
		Description: "Scores one test case against the requested metrics and waits for the result",
		Tags:        []string{TagEvaluation.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *schemas.EvaluateRequest) (*schemas.EvaluateResponse, error) {
		if _, err := principalOr401(svcs, ctx); err != nil {
			return nil, err
		}

		result, err := svcs.Evaluator.EvaluateOne(ctx, input.Body.TestCase, input.Body.Metrics)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("evaluation failed: %v", err))
		}

		resp := &schemas.EvaluateResponse{}
		resp.Body.Result = result
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "evaluate-bulk",
		Method:      http.MethodPost,
		Path:        "/evaluate/bulk",
		Summary:     "Evaluate test cases in bulk",
		Description: "Scores a batch of test cases with bounded concurrency and waits for all results",
		Tags:        []string{TagEvaluation.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *schemas.BulkEvaluateRequest) (*schemas.BulkEvaluateResponse, error) {
		if _, err := principalOr401(svcs, ctx); err != nil {
			return nil, err
		}

		maxConcurrent := input.Body.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = svcs.Config.DefaultMaxConcurrent
		}

		results, summary, err := svcs.Evaluator.EvaluateBatch(ctx, input.Body.TestCases, input.Body.Metrics, maxConcurrent)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("evaluation failed: %v", err))
		}

		resp := &schemas.BulkEvaluateResponse{}
		resp.Body.Results = results
		resp.Body.Summary = summary
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "evaluate-async",
		Method:      http.MethodPost,
		Path:        "/evaluate/async",
		Summary:     "Submit a single evaluation job",
		Description: "Accepts one test case for background evaluation and returns a job ID to poll",
		Tags:        []string{TagEvaluation.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *schemas.AsyncEvaluateRequest) (*schemas.JobAccepted, error) {
		p, err := principalOr401(svcs, ctx)
		if err != nil {
			return nil, err
		}

		j, err := svcs.Jobs.Create(input.Body.JobName, input.Body.Tags, job.Metadata{
			Owner:         p.Username,
			JobType:       job.TypeSingle,
			TestCaseCount: 1,
		})
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to create job: %v", err))
		}

		svcs.Runner.StartSingle(j.ID, input.Body.TestCase, input.Body.Metrics)

		return jobAccepted(j), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "evaluate-async-bulk",
		Method:      http.MethodPost,
		Path:        "/evaluate/async/bulk",
		Summary:     "Submit a bulk evaluation job",
		Description: "Accepts a batch of test cases for background evaluation and returns a job ID to poll",
		Tags:        []string{TagEvaluation.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *schemas.AsyncBulkEvaluateRequest) (*schemas.JobAccepted, error) {
		p, err := principalOr401(svcs, ctx)
		if err != nil {
			return nil, err
		}

		j, err := svcs.Jobs.Create(input.Body.JobName, input.Body.Tags, job.Metadata{
			Owner:         p.Username,
			JobType:       job.TypeBulk,
			TestCaseCount: len(input.Body.TestCases),
		})
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to create job: %v", err))
		}

		maxConcurrent := input.Body.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = svcs.Config.DefaultMaxConcurrent
		}

		svcs.Runner.StartBulk(j.ID, input.Body.TestCases, input.Body.Metrics, maxConcurrent)

		return jobAccepted(j), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "evaluate-dataset",
		Method:      http.MethodPost,
		Path:        "/evaluate/dataset",
		Summary:     "Submit a dataset evaluation job",
		Description: "Accepts a CSV, JSON, or JSONL dataset upload for background evaluation",
		Tags:        []string{TagEvaluation.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *DatasetUploadInput) (*schemas.JobAccepted, error) {
		p, err := principalOr401(svcs, ctx)
		if err != nil {
			return nil, err
		}

		form := input.RawBody.Form
		headers := form.File["file"]
		if len(headers) == 0 {
			return nil, huma.Error400BadRequest("file is required")
		}
		fh := headers[0]

		if fh.Size > svcs.Config.MaxFileSize {
			return nil, huma.NewError(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds maximum size of %d bytes", svcs.Config.MaxFileSize))
		}

		f, err := fh.Open()
		if err != nil {
			return nil, huma.Error400BadRequest(fmt.Sprintf("failed to read file: %v", err))
		}
		defer f.Close()

		content, err := io.ReadAll(io.LimitReader(f, svcs.Config.MaxFileSize+1))
		if err != nil {
			return nil, huma.Error400BadRequest(fmt.Sprintf("failed to read file: %v", err))
		}
		if int64(len(content)) > svcs.Config.MaxFileSize {
			return nil, huma.NewError(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds maximum size of %d bytes", svcs.Config.MaxFileSize))
		}

		metrics := formList(form.Value["metrics"])
		if len(metrics) == 0 {
			return nil, huma.Error400BadRequest("at least one metric is required")
		}

		opts := dataset.Options{Format: formValue(form.Value["file_format"])}
		if opts.Format == "" || opts.Format == dataset.FormatAuto {
			detected, err := dataset.DetectFormat(fh.Filename)
			if err != nil {
				return nil, huma.Error400BadRequest(err.Error())
			}
			opts.Format = detected
		}

		if raw := formValue(form.Value["column_mapping"]); raw != "" {
			if err := json.Unmarshal([]byte(raw), &opts.ColumnMapping); err != nil {
				return nil, huma.Error400BadRequest(fmt.Sprintf("column_mapping must be a JSON object: %v", err))
			}
		}

		maxConcurrent := svcs.Config.DefaultMaxConcurrent
		if raw := formValue(form.Value["max_concurrent"]); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				return nil, huma.Error400BadRequest("max_concurrent must be a positive integer")
			}
			maxConcurrent = n
		}

		datasetName := formValue(form.Value["dataset_name"])
		if datasetName == "" {
			datasetName = strings.TrimSuffix(fh.Filename, "."+opts.Format)
		}

		j, err := svcs.Jobs.Create(formValue(form.Value["job_name"]), formList(form.Value["tags"]), job.Metadata{
			Owner:          p.Username,
			JobType:        job.TypeDataset,
			SourceFileName: fh.Filename,
			DatasetName:    datasetName,
		})
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to create job: %v", err))
		}

		if svcs.Artifacts != nil {
			key := vart.DatasetKey(j.ID, fh.Filename)
			meta := map[string]string{"job_id": j.ID, "uploaded_by": p.Username}
			if _, err := svcs.Artifacts.Upload(ctx, key, bytes.NewReader(content), fh.Header.Get("Content-Type"), meta); err != nil {
				svcs.Log.Warn("failed to archive dataset upload", "job_id", j.ID, "error", err)
			}
		}

		svcs.Runner.StartDataset(j.ID, content, fh.Filename, opts, metrics, maxConcurrent)

		return jobAccepted(j), nil
	})
}

func jobAccepted(j *job.Job) *schemas.JobAccepted {
	resp := &schemas.JobAccepted{}
	resp.Body.JobID = j.ID
	resp.Body.Status = string(j.Status)
	resp.Body.CreatedAt = schemas.ToJobView(j).CreatedAt
	return resp
}

// formValue returns the first non-empty value for a form field.
func formValue(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// formList flattens repeated and comma-separated form values into one list.
func formList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
