package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	user "github.com/dmehra2102/storefront/internal/user/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

type ctxKey struct{}

// UserFinder loads the account a token was issued for.
type UserFinder interface {
	Get(ctx context.Context, id string) (user.User, error)
}

type Middleware struct {
	log    *slog.Logger
	tokens *Tokens
	users  UserFinder
}

func NewMiddleware(log *slog.Logger, tokens *Tokens, users UserFinder) *Middleware {
	return &Middleware{log: log, tokens: tokens, users: users}
}

// Authenticated requires a Bearer token that resolves to an existing user and
// stores that user in the request context.
func (m *Middleware) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearer(r.Header.Get("Authorization"))
		if !ok {
			httpx.Error(w, r, m.log, apperr.Unauthorized("not authorized, no token"))
			return
		}
		id, err := m.tokens.Verify(raw)
		if err != nil {
			m.log.DebugContext(r.Context(), "token rejected", "err", err)
			httpx.Error(w, r, m.log, apperr.Unauthorized("not authorized, token failed"))
			return
		}
		u, err := m.users.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				httpx.Error(w, r, m.log, apperr.Unauthorized("not authorized, user not found"))
				return
			}
			httpx.Error(w, r, m.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireAdmin must run after Authenticated.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFrom(r.Context())
		if !ok {
			httpx.Error(w, r, m.log, apperr.Unauthorized("not authorized"))
			return
		}
		if !u.IsAdmin() {
			httpx.Error(w, r, m.log, apperr.Forbidden("not authorized as an admin"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, u user.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFrom(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(user.User)
	return u, ok
}

// SubjectOf returns the authenticated user id, or "anonymous".
func SubjectOf(r *http.Request) string {
	if u, ok := UserFrom(r.Context()); ok {
		return u.ID
	}
	return "anonymous"
}

func bearer(h string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
