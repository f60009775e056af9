// Package catalog provides BadgerHold-based storage for the local B3
// symbol catalog. The catalog backs search relevance, ticker validation
// fallback and suggestion generation when the upstream provider is
// unavailable.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/timshannon/badgerhold/v4"

	"github.com/brstocks/mercado/internal/common"
	"github.com/brstocks/mercado/internal/interfaces"
	"github.com/brstocks/mercado/internal/models"
)

// Store wraps a BadgerHold database holding catalog symbols.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore creates a catalog store at the given directory path.
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

	logger.Debug().Str("path", path).Msg("Catalog store opened")

	return &Store{db: db, logger: logger}, nil
}

// Upsert stores or replaces the given symbols.
func (s *Store) Upsert(_ context.Context, symbols []models.CatalogSymbol) error {
	for i := range symbols {
		sym := symbols[i]
		sym.Symbol = strings.ToUpper(sym.Symbol)
		if err := s.db.Upsert(sym.Symbol, &sym); err != nil {
			return fmt.Errorf("failed to upsert symbol %s: %w", sym.Symbol, err)
		}
	}
	return nil
}

// Get looks up a single catalog symbol.
func (s *Store) Get(_ context.Context, symbol string) (*models.CatalogSymbol, error) {
	var sym models.CatalogSymbol
	err := s.db.Get(strings.ToUpper(symbol), &sym)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("symbol %s not in catalog", symbol)
		}
		return nil, fmt.Errorf("failed to get symbol %s: %w", symbol, err)
	}
	return &sym, nil
}

// Search returns catalog symbols matching the query, best match first.
// Exact ticker matches outrank prefix matches, which outrank name hits.
func (s *Store) Search(_ context.Context, query string, limit int) ([]models.CatalogSymbol, error) {
	if limit <= 0 {
		limit = 10
	}

	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	var all []models.CatalogSymbol
	if err := s.db.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to scan catalog: %w", err)
	}

	type scored struct {
		sym   models.CatalogSymbol
		score float64
	}
	var hits []scored
	for _, sym := range all {
		ticker := strings.ToUpper(sym.Symbol)
		base := strings.TrimSuffix(ticker, ".SA")
		name := strings.ToUpper(sym.Name)

		var score float64
		switch {
		case ticker == q || base == q:
			score = 1.0
		case strings.HasPrefix(ticker, q) || strings.HasPrefix(base, q):
			score = 0.8
		case strings.Contains(name, q):
			score = 0.5
		default:
			continue
		}
		hits = append(hits, scored{sym: sym, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].sym.Symbol < hits[j].sym.Symbol
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]models.CatalogSymbol, len(hits))
	for i, h := range hits {
		results[i] = h.sym
	}
	return results, nil
}

// Count returns the number of catalog entries.
func (s *Store) Count(_ context.Context) (int, error) {
	n, err := s.db.Count(&models.CatalogSymbol{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count catalog: %w", err)
	}
	return int(n), nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure Store implements CatalogStore
var _ interfaces.CatalogStore = (*Store)(nil)
