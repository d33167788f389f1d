// Package eval scores LLM outputs against named metrics. The rest of the
// system treats the Evaluator as an opaque capability: a metric that does
// not pass is a normal result, an error return means the scoring
// infrastructure itself failed (unknown metric, malformed test case,
// unreachable judge).
package eval

import "context"

// TestCase is a single LLM interaction to score.
type TestCase struct {
	Input            string   `json:"input"`
	ActualOutput     string   `json:"actual_output"`
	ExpectedOutput   string   `json:"expected_output,omitempty"`
	Context          []string `json:"context,omitempty"`
	RetrievalContext []string `json:"retrieval_context,omitempty"`
}

// MetricResult is the outcome of one metric on one test case.
type MetricResult struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	Success   bool    `json:"success"`
	Reason    string  `json:"reason,omitempty"`
}

// Result is the outcome of evaluating one test case.
type Result struct {
	Input          string         `json:"input"`
	ActualOutput   string         `json:"actual_output"`
	OverallSuccess bool           `json:"overall_success"`
	Metrics        []MetricResult `json:"metrics"`
	ExecutionTime  float64        `json:"execution_time"`
}

// Summary aggregates a batch of results.
type Summary struct {
	TotalTestCases      int     `json:"total_test_cases"`
	SuccessfulTestCases int     `json:"successful_test_cases"`
	FailedTestCases     int     `json:"failed_test_cases"`
	SuccessRate         float64 `json:"success_rate"`
	TotalExecutionTime  float64 `json:"total_execution_time"`
}

// Health reports whether the evaluator is usable.
type Health struct {
	Available        bool
	JudgeConfigured  bool
	SupportedMetrics []string
}

// Evaluator scores test cases against named metrics. EvaluateBatch bounds
// its internal concurrency by maxConcurrent and returns results in input
// order regardless of completion order.
type Evaluator interface {
	EvaluateOne(ctx context.Context, tc TestCase, metrics []string) (*Result, error)
	EvaluateBatch(ctx context.Context, tcs []TestCase, metrics []string, maxConcurrent int) ([]*Result, *Summary, error)
	SupportedMetrics() []string
	Health(ctx context.Context) Health
}

// Summarize computes aggregate statistics over results. extraTime is added
// to the summed per-case execution time (e.g. batch overhead). An empty
// result set yields a zero success rate, not a division by zero.
func Summarize(results []*Result, extraTime float64) *Summary {
	s := &Summary{
		TotalTestCases:     len(results),
		TotalExecutionTime: extraTime,
	}
	for _, r := range results {
		if r.OverallSuccess {
			s.SuccessfulTestCases++
		} else {
			s.FailedTestCases++
		}
		s.TotalExecutionTime += r.ExecutionTime
	}
	if s.TotalTestCases > 0 {
		s.SuccessRate = float64(s.SuccessfulTestCases) / float64(s.TotalTestCases)
	}
	return s
}
