package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/appctx"
)

func TestUserValidate(t *testing.T) {
	user := NewUser("Budi", "budi@example.com", "hash", appctx.RoleStaff)
	assert.NoError(t, user.Validate())

	user.Role = "superuser"
	err := user.Validate()
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidInput))

	user.Role = appctx.RoleAdmin
	user.Email = ""
	assert.Error(t, user.Validate())
}

func TestUserLockout(t *testing.T) {
	user := NewUser("Budi", "budi@example.com", "hash", appctx.RoleStaff)
	assert.NoError(t, user.CanLogin())

	for i := 0; i < 4; i++ {
		user.RecordFailedLogin(5, 15*time.Minute)
	}
	assert.False(t, user.IsLocked())
	assert.NoError(t, user.CanLogin())

	// Fifth failure trips the lock.
	user.RecordFailedLogin(5, 15*time.Minute)
	assert.True(t, user.IsLocked())

	err := user.CanLogin()
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	user.RecordSuccessfulLogin()
	assert.False(t, user.IsLocked())
	assert.Equal(t, 0, user.FailedLoginAttempts)
	assert.NotNil(t, user.LastLoginAt)
}

func TestUserCanLogin_Disabled(t *testing.T) {
	user := NewUser("Budi", "budi@example.com", "hash", appctx.RoleStaff)
	user.IsActive = false

	err := user.CanLogin()
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestRefreshTokenIsValid(t *testing.T) {
	token := &RefreshToken{ExpiresAt: time.Now().Add(time.Hour)}
	assert.True(t, token.IsValid())

	expired := &RefreshToken{ExpiresAt: time.Now().Add(-time.Hour)}
	assert.False(t, expired.IsValid())

	now := time.Now()
	revoked := &RefreshToken{ExpiresAt: time.Now().Add(time.Hour), RevokedAt: &now}
	assert.False(t, revoked.IsValid())
}
