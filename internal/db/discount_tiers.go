package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// DiscountTierMinQuantityKey is the unique constraint on min_quantity.
const DiscountTierMinQuantityKey = "discount_tiers_min_quantity_key"

const tierColumns = `id, min_quantity, percent_off::text, active, position, created_at, updated_at`

func scanTier(row pgx.Row) (DiscountTier, error) {
	var t DiscountTier
	err := row.Scan(&t.ID, &t.MinQuantity, &t.PercentOff, &t.Active, &t.Position, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// ListDiscountTiers returns every tier, highest minimum first.
func (q *Queries) ListDiscountTiers(ctx context.Context) ([]DiscountTier, error) {
	rows, err := q.db.Query(ctx, `SELECT `+tierColumns+` FROM discount_tiers ORDER BY min_quantity DESC, position, id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (DiscountTier, error) { return scanTier(r) })
}

// GetDiscountTier loads one tier.
func (q *Queries) GetDiscountTier(ctx context.Context, id pgtype.UUID) (DiscountTier, error) {
	t, err := scanTier(q.db.QueryRow(ctx, `SELECT `+tierColumns+` FROM discount_tiers WHERE id = $1`, id))
	return t, notFound(err)
}

// DiscountTierParams carries writable tier columns.
type DiscountTierParams struct {
	MinQuantity int32
	PercentOff  string
	Active      bool
	Position    int32
}

// CreateDiscountTier inserts a tier.
func (q *Queries) CreateDiscountTier(ctx context.Context, arg DiscountTierParams) (DiscountTier, error) {
	return scanTier(q.db.QueryRow(ctx, `INSERT INTO discount_tiers (min_quantity, percent_off, active, position)
VALUES ($1, $2::text::numeric, $3, $4)
RETURNING `+tierColumns, arg.MinQuantity, arg.PercentOff, arg.Active, arg.Position))
}

// UpdateDiscountTier replaces the writable columns of a tier.
func (q *Queries) UpdateDiscountTier(ctx context.Context, id pgtype.UUID, arg DiscountTierParams) (DiscountTier, error) {
	t, err := scanTier(q.db.QueryRow(ctx, `UPDATE discount_tiers
SET min_quantity = $2, percent_off = $3::text::numeric, active = $4, position = $5, updated_at = now()
WHERE id = $1
RETURNING `+tierColumns, id, arg.MinQuantity, arg.PercentOff, arg.Active, arg.Position))
	return t, notFound(err)
}

// DeleteDiscountTier removes a tier.
func (q *Queries) DeleteDiscountTier(ctx context.Context, id pgtype.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM discount_tiers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
