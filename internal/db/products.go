package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `p.id, p.category_id, c.name, p.name, p.description, p.price, p.image, p.images,
	p.weight_kg::text, p.stock, p.hidden, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.CategoryName, &p.Name, &p.Description, &p.Price, &p.Image,
		&p.Images, &p.WeightKg, &p.Stock, &p.Hidden, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetProduct loads one product by id.
func (q *Queries) GetProduct(ctx context.Context, id pgtype.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+`
FROM products p LEFT JOIN categories c ON c.id = p.category_id
WHERE p.id = $1`, id)
	p, err := scanProduct(row)
	return p, notFound(err)
}

// ListProductsParams filters the public product listing.
type ListProductsParams struct {
	CategoryID    pgtype.UUID
	IncludeHidden bool
	Limit         int32
	Offset        int32
}

// ListProducts returns a page of products, newest first.
func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, `SELECT `+productColumns+`
FROM products p LEFT JOIN categories c ON c.id = p.category_id
WHERE ($1::uuid IS NULL OR p.category_id = $1)
  AND ($2 OR NOT p.hidden)
ORDER BY p.created_at DESC, p.id
LIMIT $3 OFFSET $4`, arg.CategoryID, arg.IncludeHidden, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (Product, error) { return scanProduct(r) })
}

// CountProducts counts the rows ListProducts pages over.
func (q *Queries) CountProducts(ctx context.Context, arg ListProductsParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM products p
WHERE ($1::uuid IS NULL OR p.category_id = $1) AND ($2 OR NOT p.hidden)`, arg.CategoryID, arg.IncludeHidden).Scan(&n)
	return n, err
}

// ListProductsByIDs loads the given products; missing ids are skipped.
func (q *Queries) ListProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, `SELECT `+productColumns+`
FROM products p LEFT JOIN categories c ON c.id = p.category_id
WHERE p.id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (Product, error) { return scanProduct(r) })
}
