package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brstocks/mercado/internal/common"
	"github.com/brstocks/mercado/internal/models"
	"github.com/brstocks/mercado/internal/storage/users"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := users.NewStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := common.AuthConfig{JWTSecret: "test-secret", TokenExpiry: "1h"}
	return NewService(store, cfg, common.NewSilentLogger())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, &models.RegisterRequest{
		Email:    "Ana@Example.com",
		Name:     "Ana",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "ana@example.com", reg.User.Email, "email is lowercased")

	login, err := svc.Login(ctx, &models.LoginRequest{
		Email:    "ana@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
	assert.False(t, login.User.LastLoginAt.IsZero())
}

func TestRegister_ShortPassword(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register(context.Background(), &models.RegisterRequest{
		Email:    "a@b.com",
		Password: "short",
	})

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "password", verr.Field)
}

func TestRegister_InvalidEmail(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register(context.Background(), &models.RegisterRequest{
		Email:    "not-an-email",
		Password: "long-enough",
	})

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.RegisterRequest{Email: "dup@b.com", Password: "long-enough"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &models.RegisterRequest{Email: "dup@b.com", Password: "long-enough"})
	assert.Error(t, err)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.RegisterRequest{Email: "a@b.com", Password: "long-enough"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "a@b.com", Password: "wrong-password"})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Login(context.Background(), &models.LoginRequest{Email: "ghost@b.com", Password: "whatever-long"})
	assert.Error(t, err)
}

func TestValidateToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, &models.RegisterRequest{Email: "a@b.com", Password: "long-enough"})
	require.NoError(t, err)

	user, err := svc.ValidateToken(ctx, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, user.ID)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ValidateToken(context.Background(), "not.a.token")
	assert.Error(t, err)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, &models.RegisterRequest{Email: "a@b.com", Password: "long-enough"})
	require.NoError(t, err)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   reg.User.ID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, signed)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, &models.RegisterRequest{Email: "a@b.com", Password: "long-enough"})
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   reg.User.ID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, signed)
	assert.Error(t, err)
}
