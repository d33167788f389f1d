package eval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Metric names accepted by the heuristic evaluator.
const (
	MetricExactMatch        = "exact_match"
	MetricContains          = "contains"
	MetricAnswerRelevancy   = "answer_relevancy"
	MetricFaithfulness      = "faithfulness"
	MetricContextualRecall  = "contextual_recall"
	MetricAnswerCorrectness = "answer_correctness"
)

const defaultThreshold = 0.5

// thresholds overrides the default pass threshold per metric.
var thresholds = map[string]float64{
	MetricExactMatch: 1.0,
	MetricContains:   1.0,
}

// HeuristicEvaluator scores test cases with deterministic lexical metrics.
// When a Judge is attached, answer_correctness is delegated to it instead
// of the local token-overlap fallback.
type HeuristicEvaluator struct {
	judge *Judge
}

// NewHeuristicEvaluator creates an evaluator. judge may be nil.
func NewHeuristicEvaluator(judge *Judge) *HeuristicEvaluator {
	return &HeuristicEvaluator{judge: judge}
}

func (e *HeuristicEvaluator) SupportedMetrics() []string {
	return []string{
		MetricExactMatch,
		MetricContains,
		MetricAnswerRelevancy,
		MetricFaithfulness,
		MetricContextualRecall,
		MetricAnswerCorrectness,
	}
}

func (e *HeuristicEvaluator) Health(ctx context.Context) Health {
	return Health{
		Available:        true,
		JudgeConfigured:  e.judge != nil,
		SupportedMetrics: e.SupportedMetrics(),
	}
}

func (e *HeuristicEvaluator) EvaluateOne(ctx context.Context, tc TestCase, metrics []string) (*Result, error) {
	if err := validate(tc, metrics); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{
		Input:          tc.Input,
		ActualOutput:   tc.ActualOutput,
		OverallSuccess: true,
	}

	for _, name := range metrics {
		score, reason, err := e.score(ctx, name, tc)
		if err != nil {
			return nil, err
		}

		threshold := defaultThreshold
		if t, ok := thresholds[name]; ok {
			threshold = t
		}

		mr := MetricResult{
			Name:      name,
			Score:     score,
			Threshold: threshold,
			Success:   score >= threshold,
			Reason:    reason,
		}
		if !mr.Success {
			result.OverallSuccess = false
		}
		result.Metrics = append(result.Metrics, mr)
	}

	result.ExecutionTime = time.Since(start).Seconds()
	return result, nil
}

func (e *HeuristicEvaluator) EvaluateBatch(ctx context.Context, tcs []TestCase, metrics []string, maxConcurrent int) ([]*Result, *Summary, error) {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	results := make([]*Result, len(tcs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, tc := range tcs {
		g.Go(func() error {
			r, err := e.EvaluateOne(gctx, tc, metrics)
			if err != nil {
				return fmt.Errorf("test case %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return results, Summarize(results, 0), nil
}

func (e *HeuristicEvaluator) score(ctx context.Context, metric string, tc TestCase) (float64, string, error) {
	switch metric {
	case MetricExactMatch:
		if strings.TrimSpace(tc.ActualOutput) == strings.TrimSpace(tc.ExpectedOutput) {
			return 1, "actual output matches expected output exactly", nil
		}
		return 0, "actual output differs from expected output", nil

	case MetricContains:
		if tc.ExpectedOutput == "" {
			return 0, "", fmt.Errorf("metric %s requires expected_output", metric)
		}
		if strings.Contains(strings.ToLower(tc.ActualOutput), strings.ToLower(strings.TrimSpace(tc.ExpectedOutput))) {
			return 1, "expected output found in actual output", nil
		}
		return 0, "expected output not found in actual output", nil

	case MetricAnswerRelevancy:
		score := overlap(tokenize(tc.ActualOutput), tokenize(tc.Input))
		return score, fmt.Sprintf("%.0f%% of the answer relates to the input", score*100), nil

	case MetricFaithfulness:
		if len(tc.RetrievalContext) == 0 {
			return 0, "", fmt.Errorf("metric %s requires retrieval_context", metric)
		}
		score := overlap(tokenize(tc.ActualOutput), tokenize(strings.Join(tc.RetrievalContext, " ")))
		return score, fmt.Sprintf("%.0f%% of the answer is grounded in the retrieval context", score*100), nil

	case MetricContextualRecall:
		if tc.ExpectedOutput == "" || len(tc.RetrievalContext) == 0 {
			return 0, "", fmt.Errorf("metric %s requires expected_output and retrieval_context", metric)
		}
		score := overlap(tokenize(tc.ExpectedOutput), tokenize(strings.Join(tc.RetrievalContext, " ")))
		return score, fmt.Sprintf("%.0f%% of the expected output is recoverable from the retrieval context", score*100), nil

	case MetricAnswerCorrectness:
		if tc.ExpectedOutput == "" {
			return 0, "", fmt.Errorf("metric %s requires expected_output", metric)
		}
		if e.judge != nil {
			return e.judge.Score(ctx, tc.Input, tc.ExpectedOutput, tc.ActualOutput)
		}
		score := f1(tokenize(tc.ActualOutput), tokenize(tc.ExpectedOutput))
		return score, fmt.Sprintf("token F1 against expected output is %.2f", score), nil

	default:
		return 0, "", fmt.Errorf("unsupported metric: %s", metric)
	}
}

func validate(tc TestCase, metrics []string) error {
	if strings.TrimSpace(tc.Input) == "" {
		return fmt.Errorf("malformed test case: input is empty")
	}
	if strings.TrimSpace(tc.ActualOutput) == "" {
		return fmt.Errorf("malformed test case: actual_output is empty")
	}
	if len(metrics) == 0 {
		return fmt.Errorf("no metrics specified")
	}
	return nil
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]{}")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// overlap returns the fraction of tokens in a that also occur in b.
func overlap(a, b []string) float64 {
	if len(a) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(b))
	for _, t := range b {
		set[t] = struct{}{}
	}
	hits := 0
	for _, t := range a {
		if _, ok := set[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(a))
}

// f1 is the harmonic mean of token precision and recall.
func f1(actual, expected []string) float64 {
	precision := overlap(actual, expected)
	recall := overlap(expected, actual)
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

var _ Evaluator = (*HeuristicEvaluator)(nil)
