// Package auth implements account registration, login and bearer-token
// validation.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/brstocks/mercado/internal/common"
	"github.com/brstocks/mercado/internal/interfaces"
	"github.com/brstocks/mercado/internal/models"
)

const (
	tokenIssuer       = "mercado"
	minPasswordLength = 8
)

// Service implements the AuthService interface
type Service struct {
	store       interfaces.UserStore
	jwtSecret   []byte
	tokenExpiry time.Duration
	logger      *common.Logger
}

// NewService creates an auth service
func NewService(store interfaces.UserStore, cfg common.AuthConfig, logger *common.Logger) *Service {
	return &Service{
		store:       store,
		jwtSecret:   []byte(cfg.JWTSecret),
		tokenExpiry: cfg.GetTokenExpiry(),
		logger:      logger,
	}
}

// Register creates an account and returns a signed token
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, models.NewValidationError("email", "a valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, models.NewValidationError("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, models.NewValidationError("email", "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User registered")
	return s.issueToken(user)
}

// Login verifies credentials and returns a signed token
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, models.NewValidationError("credentials", "invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.NewValidationError("credentials", "invalid email or password")
	}

	user.LastLoginAt = time.Now()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		// last-login bookkeeping must not block a login
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to record last login")
	}

	return s.issueToken(user)
}

// ValidateToken parses a bearer token and resolves its account
func (s *Service) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token claims")
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("token subject not found: %w", err)
	}
	return user, nil
}

func (s *Service) issueToken(user *models.User) (*models.AuthResponse, error) {
	expiresAt := time.Now().Add(s.tokenExpiry)
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &models.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// Ensure Service implements AuthService
var _ interfaces.AuthService = (*Service)(nil)
