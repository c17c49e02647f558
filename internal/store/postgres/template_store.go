package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// TemplateStore implements the read-only catalog registry. Rows are written
// by the catalog import pipeline, which is outside this engine.
type TemplateStore struct {
	pool *pgxpool.Pool
}

// NewTemplateStore creates a new TemplateStore backed by the given pool.
func NewTemplateStore(pool *pgxpool.Pool) *TemplateStore {
	return &TemplateStore{pool: pool}
}

// GetByID returns a card template or domain.ErrNotFound.
func (s *TemplateStore) GetByID(ctx context.Context, id string) (domain.CardTemplate, error) {
	var t domain.CardTemplate
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, artist, tier, template_cap FROM card_templates WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.Artist, &t.Tier, &t.TemplateCap)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CardTemplate{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.CardTemplate{}, fmt.Errorf("postgres: get template %s: %w", id, err)
	}
	return t, nil
}

// Compile-time interface check.
var _ domain.TemplateStore = (*TemplateStore)(nil)
