package job

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/verdictlabs/verdict/pkg/dataset"
	"github.com/verdictlabs/verdict/pkg/eval"
	"github.com/verdictlabs/verdict/pkg/vart"
	"github.com/verdictlabs/verdict/pkg/vlog"
)

// MaxBatchSize caps how many test cases a single chunk may contain, so a
// long bulk job produces intermediate progress and bounded evaluator
// fan-out regardless of the requested concurrency.
const MaxBatchSize = 10

// ParseFunc converts dataset file bytes into test cases.
type ParseFunc func(content []byte, filename string, opts dataset.Options) ([]eval.TestCase, error)

// Runner drives jobs through their lifecycle. Work is dispatched onto a
// spawned goroutine; the caller never waits on it and observes completion
// only through the Store.
//
// Results computed for chunks before a failing chunk are discarded: a
// failed job carries only its error message. Callers resubmit rather than
// resume.
type Runner struct {
	store     *Store
	evaluator eval.Evaluator
	parse     ParseFunc
	artifacts vart.Store
	log       *vlog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithParser replaces the dataset parser.
func WithParser(parse ParseFunc) RunnerOption {
	return func(r *Runner) { r.parse = parse }
}

// WithArtifacts attaches an artifact store; completed jobs export their
// results to it.
func WithArtifacts(store vart.Store) RunnerOption {
	return func(r *Runner) { r.artifacts = store }
}

// WithLogger sets the runner's logger.
func WithLogger(log *vlog.Logger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

// NewRunner creates a Runner writing through the given store.
func NewRunner(store *Store, evaluator eval.Evaluator, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:     store,
		evaluator: evaluator,
		parse: func(content []byte, filename string, opts dataset.Options) ([]eval.TestCase, error) {
			return dataset.Parse(content, filename, opts)
		},
		log: vlog.NewDefault(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartSingle dispatches evaluation of one test case.
func (r *Runner) StartSingle(id string, tc eval.TestCase, metrics []string) {
	r.dispatch(id, func(ctx context.Context) {
		r.runBulk(ctx, id, []eval.TestCase{tc}, metrics, 1)
	})
}

// StartBulk dispatches evaluation of a set of test cases.
func (r *Runner) StartBulk(id string, tcs []eval.TestCase, metrics []string, maxConcurrent int) {
	r.dispatch(id, func(ctx context.Context) {
		r.runBulk(ctx, id, tcs, metrics, maxConcurrent)
	})
}

// StartDataset dispatches parsing and evaluation of an uploaded dataset.
func (r *Runner) StartDataset(id string, content []byte, filename string, opts dataset.Options, metrics []string, maxConcurrent int) {
	r.dispatch(id, func(ctx context.Context) {
		r.runDataset(ctx, id, content, filename, opts, metrics, maxConcurrent)
	})
}

// dispatch runs the task detached from the submitting request. A panic in
// the task marks the job failed instead of taking the process down.
func (r *Runner) dispatch(id string, task func(ctx context.Context)) {
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("job task panicked", "job_id", id, "panic", p)
				_ = r.store.Fail(id, fmt.Sprintf("internal error: %v", p))
			}
		}()
		task(context.Background())
	}()
}

func (r *Runner) batchSize(maxConcurrent int) int {
	bs := maxConcurrent
	if bs < 1 || bs > MaxBatchSize {
		bs = MaxBatchSize
	}
	return bs
}

// cancelled re-reads the job before each chunk. A job observed in any
// state other than running (cancelled, deleted, failed elsewhere) stops
// the run without writing a terminal state of its own.
func (r *Runner) cancelled(id string) bool {
	cur, err := r.store.Get(id)
	return err != nil || cur.Status != StatusRunning
}

func (r *Runner) runBulk(ctx context.Context, id string, tcs []eval.TestCase, metrics []string, maxConcurrent int) {
	if err := r.store.UpdateStatus(id, StatusRunning); err != nil {
		// Cancelled before dispatch got here.
		return
	}

	total := len(tcs)
	_ = r.store.UpdateProgress(id, 0, total, "Starting evaluation...")

	bs := r.batchSize(maxConcurrent)
	var results []*eval.Result

	for i := 0; i < total; i += bs {
		if r.cancelled(id) {
			r.log.Info("job stopped before chunk", "job_id", id)
			return
		}

		end := i + bs
		if end > total {
			end = total
		}

		chunk, _, err := r.evaluator.EvaluateBatch(ctx, tcs[i:end], metrics, bs)
		if err != nil {
			r.log.Warn("evaluation chunk failed", "job_id", id, "error", err)
			_ = r.store.Fail(id, err.Error())
			return
		}
		results = append(results, chunk...)

		_ = r.store.UpdateProgress(id, end, total, fmt.Sprintf("Processed %d/%d test cases", end, total))
	}

	summary := eval.Summarize(results, 0)
	if err := r.store.Complete(id, results, summary); err != nil {
		// Late completion of a job cancelled mid-flight; the terminal
		// guard already holds, nothing to write.
		return
	}
	r.exportResults(ctx, id, results, summary)
}

// runDataset parses the uploaded file, then evaluates. Progress is a
// percentage: parsing covers 0-10, evaluation 10-90, finalization the
// rest.
func (r *Runner) runDataset(ctx context.Context, id string, content []byte, filename string, opts dataset.Options, metrics []string, maxConcurrent int) {
	if err := r.store.UpdateStatus(id, StatusRunning); err != nil {
		return
	}

	_ = r.store.UpdateProgress(id, 0, 100, "Processing dataset file...")

	tcs, err := r.parse(content, filename, opts)
	if err != nil {
		r.log.Warn("dataset parse failed", "job_id", id, "file", filename, "error", err)
		_ = r.store.Fail(id, err.Error())
		return
	}

	total := len(tcs)
	_ = r.store.UpdateProgress(id, 10, 100, fmt.Sprintf("Parsed %d test cases. Starting evaluation...", total))

	bs := r.batchSize(maxConcurrent)
	var results []*eval.Result

	for i := 0; i < total; i += bs {
		if r.cancelled(id) {
			return
		}

		end := i + bs
		if end > total {
			end = total
		}

		chunk, _, err := r.evaluator.EvaluateBatch(ctx, tcs[i:end], metrics, bs)
		if err != nil {
			_ = r.store.Fail(id, err.Error())
			return
		}
		results = append(results, chunk...)

		pct := 10 + 80*end/total
		_ = r.store.UpdateProgress(id, pct, 100, fmt.Sprintf("Processed %d/%d test cases", end, total))
	}

	_ = r.store.UpdateProgress(id, 90, 100, "Finalizing results...")

	summary := eval.Summarize(results, 0)
	if err := r.store.Complete(id, results, summary); err != nil {
		return
	}
	r.exportResults(ctx, id, results, summary)
}

// exportResults uploads a JSON export of a completed job's results to the
// artifact store. Export failure never affects the job itself.
func (r *Runner) exportResults(ctx context.Context, id string, results []*eval.Result, summary *eval.Summary) {
	if r.artifacts == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"job_id":  id,
		"results": results,
		"summary": summary,
	})
	if err != nil {
		r.log.Warn("results export encode failed", "job_id", id, "error", err)
		return
	}

	if _, err := r.artifacts.Upload(ctx, vart.ResultsKey(id), bytes.NewReader(payload), "application/json", map[string]string{"job_id": id}); err != nil {
		r.log.Warn("results export upload failed", "job_id", id, "error", err)
	}
}
