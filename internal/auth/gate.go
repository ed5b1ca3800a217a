package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

var (
	ErrNoToken                 = errors.New("token is missing")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)

// Verifier is the part of TokenService the gate depends on.
type Verifier interface {
	Verify(raw string) (Principal, error)
}

// Gate validates bearer tokens and enforces role membership before a handler runs.
type Gate struct {
	tokens Verifier
	logger *zap.SugaredLogger
}

func NewGate(tokens Verifier, logger *zap.SugaredLogger) *Gate {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Gate{tokens: tokens, logger: logger}
}

// Authorize resolves the principal for an Authorization header value and
// checks it against roles. An empty roles list admits any authenticated role.
func (g *Gate) Authorize(header string, roles ...Role) (Principal, error) {
	raw, ok := bearerToken(header)
	if !ok {
		return Principal{}, ErrNoToken
	}
	p, err := g.tokens.Verify(raw)
	if err != nil {
		return Principal{}, err
	}
	if len(roles) == 0 {
		return p, nil
	}
	for _, r := range roles {
		if p.Role == r {
			return p, nil
		}
	}
	return p, ErrInsufficientPermissions
}

// Require returns middleware admitting only principals holding one of roles.
func (g *Gate) Require(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := g.Authorize(r.Header.Get("Authorization"), roles...)
			if err != nil {
				g.deny(w, r, err, roles)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireFunc is Require for a single handler func.
func (g *Gate) RequireFunc(h http.HandlerFunc, roles ...Role) http.Handler {
	return g.Require(roles...)(h)
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, err error, roles []Role) {
	g.logger.Debugw("request denied", "path", r.URL.Path, "err", err)
	switch {
	case errors.Is(err, ErrNoToken):
		utilities.WriteError(w, http.StatusUnauthorized, "NO_TOKEN", "Token is missing", nil)
	case errors.Is(err, ErrTokenExpired):
		utilities.WriteError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", nil)
	case errors.Is(err, ErrInsufficientPermissions):
		utilities.WriteError(w, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS",
			"Access restricted to roles: "+joinRoles(roles), map[string]any{"allowed_roles": roles})
	default:
		utilities.WriteError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid", nil)
	}
}

// bearerToken extracts the credential from an Authorization header. The
// "Bearer" scheme is optional; a header that carries no credential at all
// reports false.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) > 0 && strings.EqualFold(parts[0], "bearer") {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

func joinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
