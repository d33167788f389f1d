package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"

	"github.com/verdictlabs/verdict/pkg/api/config"
	"github.com/verdictlabs/verdict/pkg/api/services"
	"github.com/verdictlabs/verdict/pkg/api/services/auth"
	"github.com/verdictlabs/verdict/pkg/api/services/iam"
	"github.com/verdictlabs/verdict/pkg/dataset"
	"github.com/verdictlabs/verdict/pkg/eval"
	"github.com/verdictlabs/verdict/pkg/job"
	"github.com/verdictlabs/verdict/pkg/kv"
	"github.com/verdictlabs/verdict/pkg/vlog"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testAPIKey = "vk-test-key"
)

func testConfig() *config.EnvConfig {
	return &config.EnvConfig{
		Port:                 "8000",
		Environment:          "test",
		AuthSecret:           testSecret,
		AccessTokenTTL:       3600,
		AuthUsers:            "alice:wonderland:user|admin,bob:builder:user",
		APIKeys:              testAPIKey,
		APIKeyScopes:         "user",
		MaxFileSize:          1 << 20,
		DefaultMaxConcurrent: 5,
		MaxPageSize:          100,
	}
}

func newTestAPI(t *testing.T, cfg *config.EnvConfig) (humatest.TestAPI, *services.Services) {
	t.Helper()

	logger := vlog.NewDefault()
	evaluator := eval.NewHeuristicEvaluator(nil)
	jobs := job.NewStore(job.WithMaxPageSize(cfg.MaxPageSize))
	runner := job.NewRunner(jobs, evaluator,
		job.WithParser(dataset.Parse),
		job.WithLogger(logger),
	)

	authSvc, err := auth.NewService(cfg, kv.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	svcs := &services.Services{
		Config:    cfg,
		Auth:      authSvc,
		IAM:       iam.NewIAMService(authSvc, logger),
		Evaluator: evaluator,
		Jobs:      jobs,
		Runner:    runner,
		KV:        kv.NewMemoryStore(),
		Log:       logger,
	}

	_, api := humatest.New(t)
	RegisterAPI(api, svcs)
	return api, svcs
}

func apiKeyHeader() string {
	return "X-API-Key: " + testAPIKey
}

func login(t *testing.T, api humatest.TestAPI, username, password string) string {
	t.Helper()
	resp := api.Post("/auth/login", map[string]any{
		"username": username,
		"password": password,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return body.AccessToken
}

func waitForStatus(t *testing.T, jobs *job.Store, id string, want job.Status) *job.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := jobs.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if j.Status == want {
			return j
		}
		if j.Status.Terminal() {
			t.Fatalf("job %s reached %s, want %s (error: %s)", id, j.Status, want, j.Error)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach %s in time", id, want)
	return nil
}

func TestLogin(t *testing.T) {
	api, _ := newTestAPI(t, testConfig())

	token := login(t, api, "alice", "wonderland")
	if token == "" {
		t.Fatal("expected non-empty access token")
	}

	resp := api.Post("/auth/login", map[string]any{
		"username": "alice",
		"password": "queen-of-hearts",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password returned %d, want 401", resp.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	api, _ := newTestAPI(t, testConfig())

	if resp := api.Get("/jobs"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated /jobs returned %d, want 401", resp.Code)
	}

	if resp := api.Get("/jobs", "X-API-Key: wrong"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad api key returned %d, want 401", resp.Code)
	}

	if resp := api.Get("/jobs", apiKeyHeader()); resp.Code != http.StatusOK {
		t.Fatalf("api key /jobs returned %d, want 200", resp.Code)
	}

	token := login(t, api, "bob", "builder")
	if resp := api.Get("/jobs", "Authorization: Bearer "+token); resp.Code != http.StatusOK {
		t.Fatalf("bearer /jobs returned %d, want 200", resp.Code)
	}
}

func TestGetMe(t *testing.T) {
	api, _ := newTestAPI(t, testConfig())
	token := login(t, api, "alice", "wonderland")

	resp := api.Get("/auth/me", "Authorization: Bearer "+token)
	if resp.Code != http.StatusOK {
		t.Fatalf("/auth/me returned %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		User struct {
			Username   string   `json:"username"`
			Scopes     []string `json:"scopes"`
			AuthMethod string   `json:"auth_method"`
		} `json:"user"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User.Username != "alice" || body.User.AuthMethod != auth.AuthMethodJWT {
		t.Fatalf("unexpected principal: %+v", body.User)
	}
	if len(body.User.Scopes) != 2 {
		t.Fatalf("expected 2 scopes, got %v", body.User.Scopes)
	}
}

func TestEvaluateSync(t *testing.T) {
	api, _ := newTestAPI(t, testConfig())

	resp := api.Post("/evaluate", apiKeyHeader(), map[string]any{
		"test_case": map[string]any{
			"input":           "What is 2+2?",
			"actual_output":   "4",
			"expected_output": "4",
		},
		"metrics": []string{eval.MetricExactMatch},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("/evaluate returned %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Result struct {
			OverallSuccess bool `json:"overall_success"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Result.OverallSuccess {
		t.Fatal("expected exact match to succeed")
	}
}

func TestEvaluateSyncUnsupportedMetric(t *testing.T) {
	api, _ := newTestAPI(t, testConfig())

	resp := api.Post("/evaluate", apiKeyHeader(), map[string]any{
		"test_case": map[string]any{
			"input":         "q",
			"actual_output": "a",
		},
		"metrics": []string{"no-such-metric"},
	})
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("unsupported metric returned %d, want 500", resp.Code)
	}
}

func TestAsyncBulkLifecycle(t *testing.T) {
	api, svcs := newTestAPI(t, testConfig())
	token := login(t, api, "alice", "wonderland")
	authz := "Authorization: Bearer " + token

	cases := make([]map[string]any, 0, 12)
	for i := 0; i < 12; i++ {
		cases = append(cases, map[string]any{
			"input":           fmt.Sprintf("q%d", i),
			"actual_output":   "yes",
			"expected_output": "yes",
		})
	}

	resp := api.Post("/evaluate/async/bulk", authz, map[string]any{
		"test_cases": cases,
		"metrics":    []string{eval.MetricExactMatch},
		"job_name":   "bulk-run",
		"tags":       []string{"nightly"},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("/evaluate/async/bulk returned %d: %s", resp.Code, resp.Body.String())
	}

	var accepted struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted.JobID == "" || accepted.Status != string(job.StatusPending) {
		t.Fatalf("unexpected acceptance: %+v", accepted)
	}

	waitForStatus(t, svcs.Jobs, accepted.JobID, job.StatusCompleted)

	get := api.Get("/jobs/"+accepted.JobID, authz)
	if get.Code != http.StatusOK {
		t.Fatalf("GET /jobs/{id} returned %d", get.Code)
	}
	var view struct {
		Status   string `json:"status"`
		Name     string `json:"name"`
		Progress struct {
			Completed int `json:"completed"`
			Total     int `json:"total"`
		} `json:"progress"`
		Summary *struct {
			TotalTestCases int     `json:"total_test_cases"`
			SuccessRate    float64 `json:"success_rate"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(get.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Status != string(job.StatusCompleted) || view.Name != "bulk-run" {
		t.Fatalf("unexpected job view: %+v", view)
	}
	if view.Progress.Completed != 12 || view.Progress.Total != 12 {
		t.Fatalf("unexpected progress: %+v", view.Progress)
	}
	if view.Summary == nil || view.Summary.TotalTestCases != 12 || view.Summary.SuccessRate != 1.0 {
		t.Fatalf("unexpected summary: %+v", view.Summary)
	}

	list := api.Get("/jobs?tag=nightly", authz)
	if list.Code != http.StatusOK {
		t.Fatalf("GET /jobs returned %d", list.Code)
	}
	var page struct {
		Jobs       []json.RawMessage `json:"jobs"`
		TotalCount int               `json:"total_count"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.TotalCount != 1 || len(page.Jobs) != 1 {
		t.Fatalf("expected one tagged job, got %d", page.TotalCount)
	}
}

func TestJobNotFound(t *testing.T) {
	api, _ := newTestAPI(t, testConfig())

	resp := api.Get("/jobs/does-not-exist", apiKeyHeader())
	if resp.Code != http.StatusNotFound {
		t.Fatalf("missing job returned %d, want 404", resp.Code)
	}

	del := api.Delete("/jobs/does-not-exist", apiKeyHeader())
	if del.Code != http.StatusNotFound {
		t.Fatalf("delete missing job returned %d, want 404", del.Code)
	}
}

func TestCancelTerminalJob(t *testing.T) {
	api, svcs := newTestAPI(t, testConfig())

	j, err := svcs.Jobs.Create("done", nil, job.Metadata{JobType: job.TypeSingle})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svcs.Jobs.Complete(j.ID, nil, nil); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	resp := api.Post("/jobs/"+j.ID+"/cancel", apiKeyHeader())
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("cancel of completed job returned %d, want 400", resp.Code)
	}
}

func TestCleanupRequiresAdmin(t *testing.T) {
	api, _ := newTestAPI(t, testConfig())

	bobToken := login(t, api, "bob", "builder")
	resp := api.Post("/jobs/cleanup?maxAgeDays=7", "Authorization: Bearer "+bobToken)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("non-admin cleanup returned %d, want 403", resp.Code)
	}

	aliceToken := login(t, api, "alice", "wonderland")
	resp = api.Post("/jobs/cleanup?maxAgeDays=7", "Authorization: Bearer "+aliceToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("admin cleanup returned %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		RemovedCount int `json:"removed_count"`
		MaxAgeDays   int `json:"max_age_days"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RemovedCount != 0 || body.MaxAgeDays != 7 {
		t.Fatalf("unexpected cleanup response: %+v", body)
	}
}

func datasetForm(t *testing.T, filename, content string, fields map[string]string) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%s): %v", k, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return "Content-Type: " + w.FormDataContentType(), &buf
}

func TestDatasetUpload(t *testing.T) {
	api, svcs := newTestAPI(t, testConfig())

	csv := "input,actual_output,expected_output\n" +
		"What is 2+2?,4,4\n" +
		"Capital of France?,Paris,Paris\n"
	contentType, body := datasetForm(t, "smoke.csv", csv, map[string]string{
		"metrics":      eval.MetricExactMatch,
		"dataset_name": "smoke",
	})

	resp := api.Post("/evaluate/dataset", apiKeyHeader(), contentType, body)
	if resp.Code != http.StatusOK {
		t.Fatalf("/evaluate/dataset returned %d: %s", resp.Code, resp.Body.String())
	}

	var accepted struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}

	j := waitForStatus(t, svcs.Jobs, accepted.JobID, job.StatusCompleted)
	if j.Metadata.DatasetName != "smoke" || j.Metadata.SourceFileName != "smoke.csv" {
		t.Fatalf("unexpected metadata: %+v", j.Metadata)
	}
	if j.Progress.Completed != 100 || j.Progress.Total != 100 {
		t.Fatalf("unexpected progress: %+v", j.Progress)
	}
	if len(j.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(j.Results))
	}
}

func TestDatasetUploadRejectsOversizedFile(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFileSize = 64
	api, svcs := newTestAPI(t, cfg)

	contentType, body := datasetForm(t, "big.csv", strings.Repeat("x", 256), map[string]string{
		"metrics": eval.MetricExactMatch,
	})

	resp := api.Post("/evaluate/dataset", apiKeyHeader(), contentType, body)
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized upload returned %d, want 413", resp.Code)
	}

	// No orphan job may be left behind by a rejected upload.
	if stats := svcs.Jobs.Stats(); stats.TotalJobs != 0 {
		t.Fatalf("expected no jobs after rejected upload, found %d", stats.TotalJobs)
	}
}

func TestDatasetUploadUnknownFormat(t *testing.T) {
	api, _ := newTestAPI(t, testConfig())

	contentType, body := datasetForm(t, "data.parquet", "xxxx", map[string]string{
		"metrics": eval.MetricExactMatch,
	})

	resp := api.Post("/evaluate/dataset", apiKeyHeader(), contentType, body)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unknown format returned %d, want 400", resp.Code)
	}
}

func TestMiddlewareUsesConfiguredLogger(t *testing.T) {
	cfg := testConfig()
	var buf bytes.Buffer
	logger := vlog.New(vlog.ParseLevel("warn"), &buf, false)

	evaluator := eval.NewHeuristicEvaluator(nil)
	jobs := job.NewStore(job.WithMaxPageSize(cfg.MaxPageSize))
	authSvc, err := auth.NewService(cfg, kv.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	svcs := &services.Services{
		Config:    cfg,
		Auth:      authSvc,
		IAM:       iam.NewIAMService(authSvc, logger),
		Evaluator: evaluator,
		Jobs:      jobs,
		Runner:    job.NewRunner(jobs, evaluator, job.WithLogger(logger)),
		KV:        kv.NewMemoryStore(),
		Log:       logger,
	}

	_, api := humatest.New(t)
	RegisterAPI(api, svcs)

	if resp := api.Get("/jobs", "Authorization: Bearer garbage"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token returned %d, want 401", resp.Code)
	}
	if !strings.Contains(buf.String(), "invalid token") {
		t.Fatalf("expected invalid-token warning on the configured logger, got %q", buf.String())
	}
}

// downKV reports every ping as failed. Only Ping is ever called on it.
type downKV struct{ kv.Store }

func (downKV) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthDegradedWhenKvUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.ValkeyAddr = "valkey:6379"
	api, svcs := newTestAPI(t, cfg)
	svcs.KV = downKV{}

	resp := api.Get("/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("/health returned %d", resp.Code)
	}
	var body struct {
		Status       string   `json:"status"`
		KvConfigured bool     `json:"kv_configured"`
		KvAvailable  *bool    `json:"kv_available"`
		Errors       []string `json:"errors"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "degraded" {
		t.Fatalf("expected degraded status, got %q", body.Status)
	}
	if !body.KvConfigured || body.KvAvailable == nil || *body.KvAvailable {
		t.Fatalf("expected kv configured and unavailable, got %+v", body)
	}
	if len(body.Errors) == 0 {
		t.Fatal("expected an error entry for the unreachable kv store")
	}

	// The authenticated check classifies the same way.
	detailed := api.Get("/health/detailed", apiKeyHeader())
	if detailed.Code != http.StatusOK {
		t.Fatalf("/health/detailed returned %d", detailed.Code)
	}
	var detail struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(detailed.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.Status != "degraded" {
		t.Fatalf("expected degraded detailed status, got %q", detail.Status)
	}
}

func TestInfoIsPublic(t *testing.T) {
	api, _ := newTestAPI(t, testConfig())

	resp := api.Get("/info")
	if resp.Code != http.StatusOK {
		t.Fatalf("unauthenticated /info returned %d, want 200", resp.Code)
	}
	var body struct {
		Service          string   `json:"service"`
		SupportedMetrics []string `json:"supported_metrics"`
		MaxFileSize      int64    `json:"max_file_size"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Service != "verdict" || len(body.SupportedMetrics) == 0 {
		t.Fatalf("unexpected info payload: %+v", body)
	}
	if body.MaxFileSize != 1<<20 {
		t.Fatalf("expected configured max file size, got %d", body.MaxFileSize)
	}
}

func TestHealthIsPublic(t *testing.T) {
	api, _ := newTestAPI(t, testConfig())

	resp := api.Get("/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("/health returned %d", resp.Code)
	}
	var body struct {
		Status             string   `json:"status"`
		EvaluatorAvailable bool     `json:"evaluator_available"`
		SupportedMetrics   []string `json:"supported_metrics"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" || !body.EvaluatorAvailable {
		t.Fatalf("unexpected health: %+v", body)
	}
	if len(body.SupportedMetrics) == 0 {
		t.Fatal("expected supported metrics")
	}

	detailed := api.Get("/health/detailed")
	if detailed.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated /health/detailed returned %d, want 401", detailed.Code)
	}
}

func TestValidateToken(t *testing.T) {
	api, _ := newTestAPI(t, testConfig())
	token := login(t, api, "bob", "builder")

	resp := api.Post("/auth/validate-token", "Authorization: Bearer "+token)
	if resp.Code != http.StatusOK {
		t.Fatalf("/auth/validate-token returned %d", resp.Code)
	}

	bad := api.Post("/auth/validate-token", "Authorization: Bearer not-a-token")
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token returned %d, want 401", bad.Code)
	}
}
