package schemas

import (
	"github.com/verdictlabs/verdict/pkg/eval"
)

// EvaluateRequest evaluates a single test case synchronously.
type EvaluateRequest struct {
	Body struct {
		TestCase eval.TestCase `json:"test_case" doc:"Test case to evaluate"`
		Metrics  []string      `json:"metrics" minItems:"1" doc:"Metric names to score"`
	}
}

type EvaluateResponse struct {
	Body struct {
		Result *eval.Result `json:"result" doc:"Per-metric scores for the test case"`
	}
}

// BulkEvaluateRequest evaluates a batch of test cases synchronously.
type BulkEvaluateRequest struct {
	Body struct {
		TestCases     []eval.TestCase `json:"test_cases" minItems:"1" doc:"Test cases to evaluate"`
		Metrics       []string        `json:"metrics" minItems:"1" doc:"Metric names to score"`
		MaxConcurrent int             `json:"max_concurrent,omitempty" minimum:"0" maximum:"50" doc:"Concurrency limit; 0 uses the server default"`
	}
}

type BulkEvaluateResponse struct {
	Body struct {
		Results []*eval.Result `json:"results" doc:"Per-case results in input order"`
		Summary *eval.Summary  `json:"summary" doc:"Aggregate statistics"`
	}
}

// AsyncEvaluateRequest submits a single test case as a background job.
type AsyncEvaluateRequest struct {
	Body struct {
		TestCase eval.TestCase `json:"test_case" doc:"Test case to evaluate"`
		Metrics  []string      `json:"metrics" minItems:"1" doc:"Metric names to score"`
		JobName  string        `json:"job_name,omitempty" doc:"Human-readable job name"`
		Tags     []string      `json:"tags,omitempty" doc:"Labels for later filtering"`
	}
}

// AsyncBulkEvaluateRequest submits a batch of test cases as a background job.
type AsyncBulkEvaluateRequest struct {
	Body struct {
		TestCases     []eval.TestCase `json:"test_cases" minItems:"1" doc:"Test cases to evaluate"`
		Metrics       []string        `json:"metrics" minItems:"1" doc:"Metric names to score"`
		MaxConcurrent int             `json:"max_concurrent,omitempty" minimum:"0" maximum:"50" doc:"Concurrency limit; 0 uses the server default"`
		JobName       string          `json:"job_name,omitempty" doc:"Human-readable job name"`
		Tags          []string        `json:"tags,omitempty" doc:"Labels for later filtering"`
	}
}

// JobAccepted acknowledges a submitted background job.
type JobAccepted struct {
	Body struct {
		JobID     string `json:"job_id" doc:"Identifier for polling job status"`
		Status    string `json:"status" doc:"Initial job status" example:"pending"`
		CreatedAt string `json:"created_at" doc:"Submission time (RFC 3339)"`
	}
}
