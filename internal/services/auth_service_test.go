package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogtalent/dispatch/internal/config"
	"github.com/ogtalent/dispatch/internal/models"
)

func setupAuth(t *testing.T) *AuthService {
	t.Helper()
	cfg := config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour}
	return NewAuthService(setupTestDB(t), cfg)
}

func TestAuthService_Register(t *testing.T) {
	svc := setupAuth(t)

	admin, err := svc.Register("admin@example.com", "password123", "Admin User")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Role, "first user is the admin")
	assert.NotEmpty(t, admin.PasswordHash)
	assert.NotEqual(t, "password123", admin.PasswordHash)

	user, err := svc.Register("user@example.com", "password123", "Regular User")
	require.NoError(t, err)
	assert.Equal(t, "user", user.Role)

	_, err = svc.Register("user@example.com", "other", "Dup")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestAuthService_LoginAndValidate(t *testing.T) {
	svc := setupAuth(t)

	_, err := svc.Register("test@example.com", "password123", "Test User")
	require.NoError(t, err)

	token, err := svc.Login("test@example.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)

	_, err = svc.ValidateToken(token + "x")
	assert.Error(t, err)
}

func TestAuthService_LoginFailuresLockAccount(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour}
	db := setupTestDB(t)
	svc := NewAuthService(db, cfg)

	_, err := svc.Register("test@example.com", "password123", "Test User")
	require.NoError(t, err)

	for i := 0; i < maxFailedLogins; i++ {
		_, err = svc.Login("test@example.com", "wrongpassword")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	var user models.User
	require.NoError(t, db.Where("email = ?", "test@example.com").First(&user).Error)
	assert.Equal(t, maxFailedLogins, user.FailedLoginAttempts)
	require.NotNil(t, user.LockedUntil)
	assert.True(t, user.LockedUntil.After(time.Now()))

	_, err = svc.Login("test@example.com", "password123")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestAuthService_LoginUnknownUser(t *testing.T) {
	svc := setupAuth(t)

	_, err := svc.Login("ghost@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_ChangePassword(t *testing.T) {
	svc := setupAuth(t)

	user, err := svc.Register("test@example.com", "password123", "Test User")
	require.NoError(t, err)

	err = svc.ChangePassword(user.UUID, "wrong", "newpassword1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(user.UUID, "password123", "newpassword1"))

	_, err = svc.Login("test@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login("test@example.com", "newpassword1")
	assert.NoError(t, err)
}

func TestAuthService_SuccessResetsFailureCount(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour}
	db := setupTestDB(t)
	svc := NewAuthService(db, cfg)

	_, err := svc.Register("test@example.com", "password123", "Test User")
	require.NoError(t, err)

	_, err = svc.Login("test@example.com", "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("test@example.com", "password123")
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.Where("email = ?", "test@example.com").First(&user).Error)
	assert.Equal(t, 0, user.FailedLoginAttempts)
	assert.NotNil(t, user.LastLogin)
}
