// Package users provides BadgerHold-based account storage.
package users

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/timshannon/badgerhold/v4"

	"github.com/brstocks/mercado/internal/common"
	"github.com/brstocks/mercado/internal/interfaces"
	"github.com/brstocks/mercado/internal/models"
)

// Store wraps a BadgerHold database holding accounts.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore creates a user store at the given directory path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("User store opened")

	return &Store{db: db, logger: logger}, nil
}

// CreateUser inserts a new account. Email uniqueness is enforced.
func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	if err := s.db.Insert(user.ID, user); err != nil {
		if err == badgerhold.ErrKeyExists || err == badgerhold.ErrUniqueExists {
			return fmt.Errorf("user already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail looks up an account by email (case-insensitive).
func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.FindOne(&user, badgerhold.Where("Email").Eq(strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// GetUserByID looks up an account by ID.
func (s *Store) GetUserByID(_ context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.Get(id, &user)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdateUser persists changes to an existing account.
func (s *Store) UpdateUser(_ context.Context, user *models.User) error {
	if err := s.db.Update(user.ID, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure Store implements UserStore
var _ interfaces.UserStore = (*Store)(nil)
