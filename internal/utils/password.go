package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the minimum accepted password length for every account
// type, matching the validation applied on registration and edit.
const MinPasswordLen = 8

// ErrPasswordTooShort is returned by CheckPasswordStrength.
var ErrPasswordTooShort = errors.New("password must contain at least 8 characters")

// CheckPasswordStrength validates a plaintext password before hashing.
func CheckPasswordStrength(plain string) error {
	if len(plain) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}

// HashPassword returns the bcrypt hash of plain using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
