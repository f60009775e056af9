package interfaces

import (
	"context"

	"github.com/brstocks/mercado/internal/models"
)

// UserStore persists accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	Close() error
}

// CatalogStore persists the local B3 symbol catalog
type CatalogStore interface {
	Upsert(ctx context.Context, symbols []models.CatalogSymbol) error
	Get(ctx context.Context, symbol string) (*models.CatalogSymbol, error)
	Search(ctx context.Context, query string, limit int) ([]models.CatalogSymbol, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
