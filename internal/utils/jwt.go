package utils // helpers for token creation and password handling

import (
	"time" // expiration arithmetic

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens

	"github.com/washly/station-backend/internal/access" // claims value type
)

// AccessToken is a signed HS256 JWT together with its expiry. The token
// embeds the full identity claims so that no database lookup is needed to
// authorize a request.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken signs a token for the given claims. The subject is the
// username; id, email, role and the active flag travel as custom claims.
// ttlMin controls the token lifetime in minutes.
func NewAccessToken(secret string, cl access.Claims, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":    cl.Username,
		"uid":    cl.ID,
		"email":  cl.Email,
		"role":   string(cl.Role),
		"active": cl.IsActive,
		"exp":    exp.Unix(),
		"iat":    now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
