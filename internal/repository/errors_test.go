package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapDuplicate(t *testing.T) {
	mysqlErr := func(msg string) error {
		return errors.New("Error 1062 (23000): " + msg)
	}

	t.Run("username index maps to username conflict", func(t *testing.T) {
		err := mapDuplicate(mysqlErr("Duplicate entry 'bob' for key 'users.uq_users_username'"))
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("email index maps to email conflict", func(t *testing.T) {
		err := mapDuplicate(mysqlErr("Duplicate entry 'bob@example.com' for key 'users.uq_users_email'"))
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("duplicated value never decides the index", func(t *testing.T) {
		// The value carries the word "username" but the violated index is the
		// email one; the mapping must follow the index name, not the value.
		err := mapDuplicate(mysqlErr("Duplicate entry 'username@example.com' for key 'users.uq_users_email'"))
		assert.ErrorIs(t, err, ErrEmailTaken)

		err = mapDuplicate(mysqlErr("Duplicate entry 'email.lover' for key 'users.uq_users_username'"))
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		sentinel := errors.New("connection reset")
		assert.Same(t, sentinel, mapDuplicate(sentinel))
		foreign := mysqlErr("Duplicate entry '1-2' for key 'offer_benefits.PRIMARY'")
		assert.Same(t, foreign, mapDuplicate(foreign))
	})
}

func TestDuplicateKeyOn(t *testing.T) {
	err := errors.New("Error 1062 (23000): Duplicate entry 'x' for key 'users.uq_users_email'")
	assert.True(t, duplicateKeyOn(err, "uq_users_email"))
	assert.False(t, duplicateKeyOn(err, "uq_users_username"))
	assert.False(t, duplicateKeyOn(errors.New("Error 1452 (23000): foreign key fails"), "uq_users_email"))
	assert.False(t, duplicateKeyOn(nil, "uq_users_email"))
}
