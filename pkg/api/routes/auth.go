package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/verdictlabs/verdict/pkg/api/schemas"
	"github.com/verdictlabs/verdict/pkg/api/services"
	"github.com/verdictlabs/verdict/pkg/api/services/auth"
)

// RegisterAuth registers credential exchange and introspection routes.
func RegisterAuth(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange credentials for an access token",
		Tags:        []string{TagAuth.String()},
	}, func(ctx context.Context, input *schemas.LoginRequest) (*schemas.LoginResponse, error) {
		token, err := svcs.Auth.Login(ctx, input.Body.Username, input.Body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return nil, huma.Error401Unauthorized("invalid username or password")
			}
			return nil, huma.Error500InternalServerError("failed to issue token")
		}

		resp := &schemas.LoginResponse{}
		resp.Body.AccessToken = token
		resp.Body.TokenType = "bearer"
		resp.Body.ExpiresIn = svcs.Auth.AccessTokenTTL()
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Get current principal",
		Description: "Retrieves information about the currently authenticated principal",
		Tags:        []string{TagAuth.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *struct{}) (*schemas.MeResponse, error) {
		p, err := principalOr401(svcs, ctx)
		if err != nil {
			return nil, err
		}

		resp := &schemas.MeResponse{}
		resp.Body.User = toUser(p)
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "validate-token",
		Method:      http.MethodPost,
		Path:        "/auth/validate-token",
		Summary:     "Validate the presented credentials",
		Description: "Confirms the bearer token or API key on the request is valid and returns its principal",
		Tags:        []string{TagAuth.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *struct{}) (*schemas.ValidateTokenResponse, error) {
		p, err := principalOr401(svcs, ctx)
		if err != nil {
			return nil, err
		}

		resp := &schemas.ValidateTokenResponse{}
		resp.Body.Valid = true
		resp.Body.User = toUser(p)
		return resp, nil
	})
}

func toUser(p *auth.Principal) schemas.User {
	return schemas.User{
		ID:         p.ID,
		Username:   p.Username,
		Scopes:     p.Scopes,
		AuthMethod: p.AuthMethod,
	}
}
