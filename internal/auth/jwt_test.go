package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	a := NewJWTAuthenticator("test-secret", "vitrine", "vitrine", 4*time.Hour)
	s := Session{ID: "m-1", Name: "Ana Souza", Email: "ana@loja.com", Role: "ADMIN"}

	token, exp, err := a.GenerateToken(s)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(4*time.Hour), exp, time.Minute)

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, s, claims.Session())
}

func TestValidateRejectsExpired(t *testing.T) {
	a := NewJWTAuthenticator("test-secret", "vitrine", "vitrine", time.Hour)
	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := a.GenerateToken(Session{ID: "m-1"})
	require.NoError(t, err)

	a.now = time.Now
	_, err = a.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	a := NewJWTAuthenticator("test-secret", "vitrine", "vitrine", time.Hour)

	other := NewJWTAuthenticator("other-secret", "vitrine", "vitrine", time.Hour)
	token, _, err := other.GenerateToken(Session{ID: "m-1"})
	require.NoError(t, err)
	_, err = a.ValidateToken(token)
	assert.Error(t, err)

	wrongIss := NewJWTAuthenticator("test-secret", "vitrine", "someone-else", time.Hour)
	token, _, err = wrongIss.GenerateToken(Session{ID: "m-1"})
	require.NoError(t, err)
	_, err = a.ValidateToken(token)
	assert.Error(t, err)

	_, err = a.ValidateToken("not-a-token")
	assert.Error(t, err)
}
