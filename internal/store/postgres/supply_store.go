package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// SupplyStore implements domain.SupplyStore using PostgreSQL. Each TryMint is
// one transaction: the global (epoch, tier) row is locked, checked, and
// incremented, and for per-template capped tiers the (epoch, template, tier)
// row is checked and incremented inside the same transaction. A template
// rejection rolls the global increment back with the transaction, so the two
// counters never drift.
type SupplyStore struct {
	pool *pgxpool.Pool
}

// NewSupplyStore creates a new SupplyStore backed by the given pool.
func NewSupplyStore(pool *pgxpool.Pool) *SupplyStore {
	return &SupplyStore{pool: pool}
}

// TryMint admits or refuses one unit against the request's caps. Under
// concurrent contention for the last unit the row lock serializes callers
// and exactly one receives Allowed.
func (s *SupplyStore) TryMint(ctx context.Context, req domain.MintRequest) (domain.MintDecision, error) {
	denied := func(reason domain.DenyReason, minted int64) domain.MintDecision {
		return domain.MintDecision{
			Allowed:      false,
			Reason:       reason,
			GlobalMinted: minted,
			GlobalCap:    req.GlobalCap,
		}
	}

	var decision domain.MintDecision

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return decision, fmt.Errorf("postgres: begin mint tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	globalMinted, err := lockCounter(ctx, tx, req.Epoch, req.Tier, "", req.GlobalCap)
	if err != nil {
		return decision, err
	}
	if globalMinted >= req.GlobalCap {
		// Denied is a routine outcome; the rolled-back tx leaves no trace.
		return denied(domain.DenyCapReached, globalMinted), nil
	}

	if err := incrementCounter(ctx, tx, req.Epoch, req.Tier, ""); err != nil {
		return decision, err
	}
	globalMinted++

	serial := globalMinted
	if req.TemplateCap > 0 && req.TemplateID != "" {
		tmplMinted, err := lockCounter(ctx, tx, req.Epoch, req.Tier, req.TemplateID, req.TemplateCap)
		if err != nil {
			return decision, err
		}
		if tmplMinted >= req.TemplateCap {
			// Rolling back also undoes the global increment: all-or-nothing.
			return denied(domain.DenyTemplateCapReached, globalMinted-1), nil
		}
		if err := incrementCounter(ctx, tx, req.Epoch, req.Tier, req.TemplateID); err != nil {
			return decision, err
		}
		serial = tmplMinted + 1
	}

	if err := tx.Commit(ctx); err != nil {
		return decision, fmt.Errorf("postgres: commit mint tx: %w", err)
	}

	return domain.MintDecision{
		Allowed:      true,
		Serial:       serial,
		GlobalMinted: globalMinted,
		GlobalCap:    req.GlobalCap,
	}, nil
}

// lockCounter returns the minted count for a ledger row, creating the row at
// zero on first use, holding a row lock for the rest of the transaction.
// The stored cap follows the caller's current cap so a raised cap admits
// further mints; it never drops below minted, which the row constraint
// forbids. The caller's cap stays authoritative for the admission check.
func lockCounter(ctx context.Context, tx pgx.Tx, epoch string, tier domain.Tier, templateID string, rowCap int64) (int64, error) {
	const insert = `
		INSERT INTO supply_counts (epoch, tier, template_id, minted, cap)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (epoch, tier, template_id)
		DO UPDATE SET cap = GREATEST(EXCLUDED.cap, supply_counts.minted)`
	if _, err := tx.Exec(ctx, insert, epoch, tier, templateID, rowCap); err != nil {
		return 0, fmt.Errorf("postgres: seed supply row (%s,%s,%s): %w", epoch, tier, templateID, err)
	}

	var minted int64
	err := tx.QueryRow(ctx,
		`SELECT minted FROM supply_counts
		 WHERE epoch = $1 AND tier = $2 AND template_id = $3 FOR UPDATE`,
		epoch, tier, templateID,
	).Scan(&minted)
	if err != nil {
		return 0, fmt.Errorf("postgres: lock supply row (%s,%s,%s): %w", epoch, tier, templateID, err)
	}
	return minted, nil
}

func incrementCounter(ctx context.Context, tx pgx.Tx, epoch string, tier domain.Tier, templateID string) error {
	_, err := tx.Exec(ctx,
		`UPDATE supply_counts SET minted = minted + 1
		 WHERE epoch = $1 AND tier = $2 AND template_id = $3`,
		epoch, tier, templateID,
	)
	if err != nil {
		return fmt.Errorf("postgres: increment supply row (%s,%s,%s): %w", epoch, tier, templateID, err)
	}
	return nil
}

// Counts returns every ledger row for the epoch, global rows first.
func (s *SupplyStore) Counts(ctx context.Context, epoch string) ([]domain.SupplyCount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT epoch, tier, template_id, minted, cap FROM supply_counts
		 WHERE epoch = $1 ORDER BY template_id, tier`,
		epoch,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list supply counts: %w", err)
	}
	defer rows.Close()

	var counts []domain.SupplyCount
	for rows.Next() {
		var c domain.SupplyCount
		if err := rows.Scan(&c.Epoch, &c.Tier, &c.TemplateID, &c.Minted, &c.Cap); err != nil {
			return nil, fmt.Errorf("postgres: scan supply count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list supply counts rows: %w", err)
	}
	return counts, nil
}

// Compile-time interface check.
var _ domain.SupplyStore = (*SupplyStore)(nil)
