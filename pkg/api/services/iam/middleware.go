package iam

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Middleware resolves the Authorization or X-API-Key header into a
// principal. Requests with missing or invalid credentials pass through
// without one; handlers decide whether authentication is required.
func (s *IAMService) Middleware() func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if authHeader := ctx.Header("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				if p, err := s.auth.ValidateToken(ctx.Context(), parts[1]); err == nil {
					s.log.Debug("authenticated user", "username", p.Username, "method", p.AuthMethod)
					ctx = huma.WithValue(ctx, principalKey, p)
				} else {
					s.log.Warn("invalid token", "error", err)
				}
			}
		} else if key := ctx.Header("X-API-Key"); key != "" {
			if p, ok := s.auth.ResolveAPIKey(key); ok {
				ctx = huma.WithValue(ctx, principalKey, p)
			} else {
				s.log.Warn("unknown api key")
			}
		}

		next(ctx)
	}
}
