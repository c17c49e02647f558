package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// CardStore implements domain.CardStore using PostgreSQL.
type CardStore struct {
	pool *pgxpool.Pool
}

// NewCardStore creates a new CardStore backed by the given pool.
func NewCardStore(pool *pgxpool.Pool) *CardStore {
	return &CardStore{pool: pool}
}

const cardSelectCols = `id, owner_id, template_id, tier, serial, epoch,
	provenance, provenance_id, created_at`

func scanCard(row pgx.Row) (domain.Card, error) {
	var c domain.Card
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.TemplateID, &c.Tier, &c.Serial, &c.Epoch,
		&c.Provenance, &c.ProvenanceID, &c.CreatedAt,
	)
	return c, err
}

// Create inserts a freshly minted card. Cards only come into existence after
// a successful supply ledger admission.
func (s *CardStore) Create(ctx context.Context, c domain.Card) error {
	const query = `
		INSERT INTO cards (
			id, owner_id, template_id, tier, serial, epoch,
			provenance, provenance_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		c.ID, c.OwnerID, c.TemplateID, c.Tier, c.Serial, c.Epoch,
		c.Provenance, c.ProvenanceID, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create card: %w", err)
	}
	return nil
}

// GetByID returns a single card or domain.ErrNotFound.
func (s *CardStore) GetByID(ctx context.Context, id string) (domain.Card, error) {
	query := `SELECT ` + cardSelectCols + ` FROM cards WHERE id = $1`
	c, err := scanCard(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Card{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Card{}, fmt.Errorf("postgres: get card %s: %w", id, err)
	}
	return c, nil
}

// ListByOwner returns a player's collection, newest first.
func (s *CardStore) ListByOwner(ctx context.Context, ownerID string, opts domain.ListOpts) ([]domain.Card, error) {
	query := `SELECT ` + cardSelectCols + ` FROM cards WHERE owner_id = $1 ORDER BY created_at DESC`
	args := []any{ownerID}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list cards by owner: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// Destroy deletes a card at its owner's request. The owner guard rejects
// destruction of a card that already changed hands.
func (s *CardStore) Destroy(ctx context.Context, id, ownerID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM cards WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("postgres: destroy card %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: destroy card %s by %s: %w", id, ownerID, domain.ErrCardNotOwned)
	}
	return nil
}

// Compile-time interface check.
var _ domain.CardStore = (*CardStore)(nil)
