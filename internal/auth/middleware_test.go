package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	user "github.com/dmehra2102/storefront/internal/user/domain"
)

type fakeUsers map[string]user.User

func (f fakeUsers) Get(_ context.Context, id string) (user.User, error) {
	u, ok := f[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func setup(t *testing.T) (*Middleware, *Tokens) {
	t.Helper()
	tokens := NewTokens("s3cret", time.Hour)
	users := fakeUsers{
		"c1": {ID: "c1", Role: user.RoleCustomer},
		"a1": {ID: "a1", Role: user.RoleAdmin},
	}
	return NewMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)), tokens, users), tokens
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFrom(r.Context())
		_, _ = w.Write([]byte(u.ID))
	})
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestAuthenticated(t *testing.T) {
	m, tokens := setup(t)
	h := m.Authenticated(echoUser())

	good, err := tokens.Issue(user.User{ID: "c1"})
	require.NoError(t, err)
	ghost, err := tokens.Issue(user.User{ID: "deleted"})
	require.NoError(t, err)

	rec := serve(h, good)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", rec.Body.String())

	rec = serve(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "not authorized, no token", message(t, rec))

	rec = serve(h, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, ghost)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	m, tokens := setup(t)
	h := m.Authenticated(m.RequireAdmin(echoUser()))

	customer, err := tokens.Issue(user.User{ID: "c1"})
	require.NoError(t, err)
	admin, err := tokens.Issue(user.User{ID: "a1"})
	require.NoError(t, err)

	rec := serve(h, customer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not authorized as an admin", message(t, rec))

	rec = serve(h, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", rec.Body.String())
}

func TestRequireAdminUsesStoredRole(t *testing.T) {
	m, tokens := setup(t)
	h := m.Authenticated(m.RequireAdmin(echoUser()))

	// c1 is a customer in the store even though the token claims admin.
	forged, err := tokens.Issue(user.User{ID: "c1", Role: user.RoleAdmin})
	require.NoError(t, err)

	rec := serve(h, forged)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBearer(t *testing.T) {
	tok, ok := bearer("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = bearer("Basic abc")
	assert.False(t, ok)
	_, ok = bearer("Bearer ")
	assert.False(t, ok)
}

func TestSubjectOf(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "anonymous", SubjectOf(req))

	req = req.WithContext(WithUser(req.Context(), user.User{ID: "u9"}))
	assert.Equal(t, "u9", SubjectOf(req))
}
