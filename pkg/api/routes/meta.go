package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	vapi "github.com/verdictlabs/verdict/pkg/api"
	"github.com/verdictlabs/verdict/pkg/api/schemas"
	"github.com/verdictlabs/verdict/pkg/api/services"
)

const serviceName = "verdict"

// RegisterMeta registers the service description routes.
func RegisterMeta(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "root",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Service banner",
		Tags:        []string{TagMeta.String()},
	}, func(ctx context.Context, input *struct{}) (*schemas.RootResponse, error) {
		resp := &schemas.RootResponse{}
		resp.Body.Service = serviceName
		resp.Body.Version = vapi.Version
		resp.Body.Docs = "/docs"
		if p := svcs.IAM.Get(ctx); p != nil {
			resp.Body.Authenticated = true
			resp.Body.Username = p.Username
		}
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-info",
		Method:      http.MethodGet,
		Path:        "/info",
		Summary:     "Service capabilities",
		Description: "Describes supported metrics and request limits",
		Tags:        []string{TagMeta.String()},
	}, func(ctx context.Context, input *struct{}) (*schemas.InfoResponse, error) {
		resp := &schemas.InfoResponse{}
		resp.Body.Service = serviceName
		resp.Body.Version = vapi.Version
		resp.Body.Environment = svcs.Config.Environment
		resp.Body.SupportedMetrics = svcs.Evaluator.SupportedMetrics()
		resp.Body.MaxFileSize = svcs.Config.MaxFileSize
		resp.Body.DefaultMaxConcurrent = svcs.Config.DefaultMaxConcurrent
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-metrics",
		Method:      http.MethodGet,
		Path:        "/metrics",
		Summary:     "Supported metrics",
		Description: "Lists the metric names the evaluator can score",
		Tags:        []string{TagMeta.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *struct{}) (*schemas.MetricsResponse, error) {
		if _, err := principalOr401(svcs, ctx); err != nil {
			return nil, err
		}

		h := svcs.Evaluator.Health(ctx)

		resp := &schemas.MetricsResponse{}
		resp.Body.SupportedMetrics = h.SupportedMetrics
		resp.Body.JudgeConfigured = h.JudgeConfigured
		return resp, nil
	})
}
