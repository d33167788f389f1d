package routes

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/verdictlabs/verdict/pkg/api/services"
	"github.com/verdictlabs/verdict/pkg/api/services/auth"
)

// RegisterAPI wires the IAM middleware and every route group onto the API.
// A nil-service registration is allowed for OpenAPI generation; handlers
// are never invoked in that mode.
func RegisterAPI(api huma.API, svcs *services.Services) {
	if svcs != nil && svcs.IAM != nil {
		api.UseMiddleware(svcs.IAM.Middleware())
	}

	RegisterMeta(api, svcs)
	RegisterHealth(api, svcs)
	RegisterAuth(api, svcs)
	RegisterEvaluation(api, svcs)
	RegisterJobs(api, svcs)
}

// principalOr401 returns the request's principal or a 401 when the request
// carried no valid credentials.
func principalOr401(svcs *services.Services, ctx context.Context) (*auth.Principal, error) {
	p := svcs.IAM.Get(ctx)
	if p == nil {
		return nil, huma.Error401Unauthorized("Authentication required")
	}
	return p, nil
}
