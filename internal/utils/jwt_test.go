package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/washly/station-backend/internal/access"
)

func TestNewAccessTokenCarriesClaims(t *testing.T) {
	cl := access.Claims{
		ID:       42,
		Username: "owner42",
		Email:    "owner42@example.com",
		Role:     access.RoleStationOwner,
		IsActive: true,
	}
	tok, err := NewAccessToken("test-secret", cl, 15)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), tok.Exp, 5*time.Second)

	parsed, err := jwt.Parse(tok.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	mc, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "owner42", mc["sub"])
	assert.Equal(t, float64(42), mc["uid"])
	assert.Equal(t, "owner42@example.com", mc["email"])
	assert.Equal(t, string(access.RoleStationOwner), mc["role"])
	assert.Equal(t, true, mc["active"])
}

func TestNewAccessTokenWrongSecretRejected(t *testing.T) {
	cl := access.Claims{ID: 1, Username: "u", Role: access.RoleSuperAdmin, IsActive: true}
	tok, err := NewAccessToken("secret-a", cl, 5)
	require.NoError(t, err)

	_, err = jwt.Parse(tok.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("secret-b"), nil
	})
	assert.Error(t, err)
}

func TestCheckPasswordStrength(t *testing.T) {
	assert.ErrorIs(t, CheckPasswordStrength("short"), ErrPasswordTooShort)
	assert.NoError(t, CheckPasswordStrength("longenough"))
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "hunter2hunter2"))
	assert.False(t, VerifyPassword(hash, "wrong-password"))
}
