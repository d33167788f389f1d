// Package iam attaches the authenticated principal to the request context
// and exposes lookups for route handlers.
package iam

import (
	"context"

	"github.com/verdictlabs/verdict/pkg/api/services/auth"
	"github.com/verdictlabs/verdict/pkg/vlog"
)

type contextKey string

const principalKey contextKey = "principal"

type IAMService struct {
	auth *auth.Service
	log  *vlog.Logger
}

func NewIAMService(authSvc *auth.Service, logger *vlog.Logger) *IAMService {
	if logger == nil {
		logger = vlog.NewDefault()
	}
	return &IAMService{auth: authSvc, log: logger}
}

// Get returns the principal attached by the middleware, or nil when the
// request was unauthenticated.
func (s *IAMService) Get(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalKey).(*auth.Principal)
	return p
}
