package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/config"
	"github.com/apc-foundation/exam-pipeline/internal/store"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

var (
	ErrMissingCredentials = errors.New("Unauthorized")
	ErrAdminRequired      = errors.New("Admin access required")
)

// Guard decides who may trigger or inspect pipeline runs. The shared secret is accepted
// as a bearer token; any other bearer token is treated as a session token whose user must
// hold the admin role in the profiles table.
type Guard struct {
	secret    string
	adminRole string
	sessions  SessionAuthenticator
	profiles  store.Profile
}

func NewGuard(authConfig config.Auth, sessions SessionAuthenticator, s store.Store) *Guard {
	return &Guard{
		secret:    authConfig.CronSecret,
		adminRole: authConfig.AdminRole,
		sessions:  sessions,
		profiles:  s.Profile(),
	}
}

// SecretOnly lets through callers holding the shared secret.
func (g *Guard) SecretOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.hasSecret(r) {
			unauthorized(w, r, http.StatusUnauthorized, ErrMissingCredentials)
			return
		}
		ctx := NewCallerContext(r.Context(), Caller{Kind: CallerSecret})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SecretOrAdmin lets through callers holding the shared secret or an admin session.
func (g *Guard) SecretOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.hasSecret(r) {
			ctx := NewCallerContext(r.Context(), Caller{Kind: CallerSecret})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token := bearerToken(r)
		if token == "" {
			unauthorized(w, r, http.StatusUnauthorized, ErrMissingCredentials)
			return
		}

		user, err := g.sessions.Authenticate(token)
		if err != nil {
			unauthorized(w, r, http.StatusUnauthorized, ErrMissingCredentials)
			return
		}

		profile, err := g.profiles.Get(r.Context(), user.ID)
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			unauthorized(w, r, http.StatusForbidden, ErrAdminRequired)
			return
		case err != nil:
			zap.S().Named("auth").Errorw("failed to read profile", "error", err, "user_id", user.ID)
			unauthorized(w, r, http.StatusInternalServerError, errors.New("failed to read profile"))
			return
		case profile.Role != g.adminRole:
			unauthorized(w, r, http.StatusForbidden, ErrAdminRequired)
			return
		}

		ctx := NewCallerContext(r.Context(), Caller{Kind: CallerAdmin, User: &user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Guard) hasSecret(r *http.Request) bool {
	if g.secret == "" {
		return false
	}
	token := bearerToken(r)
	return subtle.ConstantTimeCompare([]byte(token), []byte(g.secret)) == 1
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}

func unauthorized(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, api.ErrorResponse{Error: err.Error()})
}
