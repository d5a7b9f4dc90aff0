package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vitalstack/formula-backend/internal/database"
)

func setupAuthTest(t *testing.T) *AuthService {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return NewAuthService(db, "test-secret")
}

func TestRegisterAndLogin(t *testing.T) {
	svc := setupAuthTest(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "Jamie", "jamie@example.com", "s3cret-pass", "jamie")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "jamie", claims.Username)

	loginToken, err := svc.Login(ctx, "jamie@example.com", "s3cret-pass")
	require.NoError(t, err)

	loginClaims, err := svc.ValidateToken(loginToken)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, loginClaims.UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := setupAuthTest(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Jamie", "jamie@example.com", "s3cret-pass", "jamie")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Other", "jamie@example.com", "different", "other")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := setupAuthTest(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Jamie", "jamie@example.com", "s3cret-pass", "jamie")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "jamie@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := setupAuthTest(t)

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	svc := setupAuthTest(t)
	other := setupAuthTest(t)
	// Same DB shape, different secret
	other.jwtSecret = "other-secret"

	token, err := other.Register(context.Background(), "Jamie", "jamie@example.com", "s3cret-pass", "jamie")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
