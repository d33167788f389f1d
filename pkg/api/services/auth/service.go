// Package auth resolves credentials into principals. Two credential kinds
// are supported: username/password pairs exchanged for short-lived JWTs at
// /auth/login, and static API keys presented on every request via the
// X-API-Key header.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/verdictlabs/verdict/pkg/api/config"
	"github.com/verdictlabs/verdict/pkg/kv"
	"github.com/verdictlabs/verdict/pkg/vauth"
)

const (
	AuthMethodJWT    = "jwt"
	AuthMethodAPIKey = "api_key"

	// kvPrefixToken tracks issued token IDs so tokens can be revoked by
	// deleting the key before expiry.
	kvPrefixToken = "auth:token:"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID         string
	Username   string
	Scopes     []string
	AuthMethod string
}

func (p *Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type userEntry struct {
	secret string
	scopes []string
}

// Service validates credentials and mints access tokens. User and API key
// material comes from the environment; there is no user database.
type Service struct {
	cfg          *config.EnvConfig
	secret       []byte
	users        map[string]userEntry
	apiKeys      map[string]struct{}
	apiKeyScopes []string
	kv           kv.Store
	tokenTTL     time.Duration
}

func NewService(cfg *config.EnvConfig, kvStore kv.Store) (*Service, error) {
	svc := &Service{
		cfg:          cfg,
		secret:       []byte(cfg.AuthSecret),
		users:        make(map[string]userEntry),
		apiKeys:      make(map[string]struct{}),
		apiKeyScopes: splitScopes(cfg.APIKeyScopes),
		kv:           kvStore,
		tokenTTL:     time.Duration(cfg.AccessTokenTTL) * time.Second,
	}

	for _, entry := range config.SplitList(cfg.AuthUsers) {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, errors.New("malformed AUTH_USERS entry: want username:secret:scope|scope")
		}
		svc.users[parts[0]] = userEntry{secret: parts[1], scopes: splitScopes(parts[2])}
	}

	for _, key := range config.SplitList(cfg.APIKeys) {
		svc.apiKeys[key] = struct{}{}
	}

	return svc, nil
}

func (s *Service) AccessTokenTTL() int {
	return s.cfg.AccessTokenTTL
}

// Login verifies a username/password pair and returns a signed access token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	entry, ok := s.users[username]
	if !ok || !verifySecret(entry.secret, password) {
		return "", ErrInvalidCredentials
	}

	token, jti, err := vauth.Sign(s.secret, username, entry.scopes, s.tokenTTL)
	if err != nil {
		return "", err
	}

	if s.kv != nil {
		if err := s.kv.Set(ctx, kvPrefixToken+jti, []byte(username), s.tokenTTL); err != nil {
			return "", err
		}
	}

	return token, nil
}

// ValidateToken checks a bearer token's signature and claims and, when a KV
// store is attached, that the token has not been revoked.
func (s *Service) ValidateToken(ctx context.Context, token string) (*Principal, error) {
	claims, err := vauth.Verify(s.secret, token)
	if err != nil {
		return nil, err
	}

	if s.kv != nil {
		if _, err := s.kv.Get(ctx, kvPrefixToken+claims.ID); err != nil {
			if errors.Is(err, kv.ErrNotFound) {
				return nil, vauth.ErrInvalidToken
			}
			return nil, err
		}
	}

	return &Principal{
		ID:         claims.Subject,
		Username:   claims.Subject,
		Scopes:     claims.Scopes,
		AuthMethod: AuthMethodJWT,
	}, nil
}

// ResolveAPIKey maps a static API key to its synthetic principal.
func (s *Service) ResolveAPIKey(key string) (*Principal, bool) {
	if _, ok := s.apiKeys[key]; !ok {
		return nil, false
	}
	return &Principal{
		ID:         "api-key",
		Username:   "api-key",
		Scopes:     s.apiKeyScopes,
		AuthMethod: AuthMethodAPIKey,
	}, true
}

// verifySecret accepts bcrypt hashes or plaintext secrets. Plaintext is
// compared in constant time.
func verifySecret(stored, given string) bool {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func splitScopes(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, "|") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
