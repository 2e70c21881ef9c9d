package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "lokal/pkg/domain-errors"
)

func TestNewUser(t *testing.T) {
	now := time.Now()

	t.Run("trims and assigns an id", func(t *testing.T) {
		u, err := NewUser(" admin ", "admin@test.com", "hash", now)
		require.NoError(t, err)
		assert.Equal(t, "admin", u.Username)
		assert.NotEqual(t, uuid.Nil, u.ID)
		assert.Equal(t, now, u.CreatedAt)
	})

	for name, args := range map[string][3]string{
		"blank username": {" ", "a@b.c", "hash"},
		"invalid email":  {"admin", "admin", "hash"},
		"no password":    {"admin", "a@b.c", ""},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewUser(args[0], args[1], args[2], now)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestSessionExpiry(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now}
	assert.True(t, s.IsExpired(now))
	assert.False(t, s.IsExpired(now.Add(-time.Second)))
}
