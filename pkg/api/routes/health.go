package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	vapi "github.com/verdictlabs/verdict/pkg/api"
	"github.com/verdictlabs/verdict/pkg/api/schemas"
	"github.com/verdictlabs/verdict/pkg/api/services"
)

// kvStatus pings the configured kv backend. available is nil when no
// external store is configured.
func kvStatus(ctx context.Context, svcs *services.Services) (configured bool, available *bool, errMsg string) {
	if svcs.Config.ValkeyAddr == "" {
		return false, nil, ""
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	ok := svcs.KV.Ping(pingCtx) == nil
	if !ok {
		return true, &ok, fmt.Sprintf("kv store %s unreachable", svcs.Config.ValkeyAddr)
	}
	return true, &ok, ""
}

// RegisterHealth registers liveness routes. The basic check is public so
// load balancers can probe it; the detailed check requires authentication.
func RegisterHealth(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Service health",
		Description: "Reports evaluator availability and dependency status. Unhealthy when the evaluator is down, degraded when a configured dependency is unreachable.",
		Tags:        []string{TagHealth.String()},
	}, func(ctx context.Context, input *struct{}) (*schemas.HealthResponse, error) {
		h := svcs.Evaluator.Health(ctx)

		resp := &schemas.HealthResponse{}
		resp.Body.Status = "healthy"
		resp.Body.Version = vapi.Version
		resp.Body.Timestamp = time.Now().UTC().Format(time.RFC3339)
		resp.Body.EvaluatorAvailable = h.Available
		resp.Body.JudgeConfigured = h.JudgeConfigured
		resp.Body.SupportedMetrics = h.SupportedMetrics

		if !h.Available {
			resp.Body.Status = "unhealthy"
			resp.Body.Errors = append(resp.Body.Errors, "evaluator unavailable")
		}

		configured, available, errMsg := kvStatus(ctx, svcs)
		resp.Body.KvConfigured = configured
		resp.Body.KvAvailable = available
		if errMsg != "" {
			if resp.Body.Status == "healthy" {
				resp.Body.Status = "degraded"
			}
			resp.Body.Errors = append(resp.Body.Errors, errMsg)
		}

		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "health-detailed",
		Method:      http.MethodGet,
		Path:        "/health/detailed",
		Summary:     "Detailed service health",
		Description: "Includes dependency checks for the key-value and artifact stores",
		Tags:        []string{TagHealth.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *struct{}) (*schemas.DetailedHealthResponse, error) {
		if _, err := principalOr401(svcs, ctx); err != nil {
			return nil, err
		}

		h := svcs.Evaluator.Health(ctx)

		resp := &schemas.DetailedHealthResponse{}
		resp.Body.Status = "healthy"
		resp.Body.Version = vapi.Version
		resp.Body.Timestamp = time.Now().UTC().Format(time.RFC3339)
		resp.Body.EvaluatorAvailable = h.Available
		resp.Body.JudgeConfigured = h.JudgeConfigured
		resp.Body.SupportedMetrics = h.SupportedMetrics
		resp.Body.ArtifactsConfigured = svcs.Artifacts != nil

		if !h.Available {
			resp.Body.Status = "unhealthy"
			resp.Body.Errors = append(resp.Body.Errors, "evaluator unavailable")
		}

		configured, available, errMsg := kvStatus(ctx, svcs)
		resp.Body.KvConfigured = configured
		resp.Body.KvAvailable = available
		if errMsg != "" {
			if resp.Body.Status == "healthy" {
				resp.Body.Status = "degraded"
			}
			resp.Body.Errors = append(resp.Body.Errors, errMsg)
		}

		return resp, nil
	})
}
