package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	user "github.com/dmehra2102/storefront/internal/user/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)

	raw, err := tokens.Issue(user.User{ID: "u1", Role: user.RoleAdmin})
	require.NoError(t, err)

	id, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
}

func TestTokensRejectWrongSecret(t *testing.T) {
	raw, err := NewTokens("one", time.Hour).Issue(user.User{ID: "u1"})
	require.NoError(t, err)

	_, err = NewTokens("two", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestTokensRejectExpired(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	tokens.now = func() time.Time { return issued }
	raw, err := tokens.Issue(user.User{ID: "u1"})
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokensRejectOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("s3cret", time.Hour).Verify(raw)
	assert.Error(t, err)
}

func TestTokensRejectGarbage(t *testing.T) {
	_, err := NewTokens("s3cret", time.Hour).Verify("not-a-token")
	assert.Error(t, err)
}

func TestPasswords(t *testing.T) {
	p := NewPasswords(4)

	hash, err := p.Hash("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	ok, err := p.Match(hash, "hunter22")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Match(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	long := strings.Repeat("x", 80)
	_, err = p.Hash(long)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	ok, err = p.Match(hash, long)
	require.NoError(t, err)
	assert.False(t, ok)
}
