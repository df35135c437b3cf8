package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countProducts = `-- name: CountProducts :one
SELECT COUNT(*) FROM products p
WHERE ($1::text IS NULL OR p.name ILIKE '%' || $1::text || '%')
  AND ($2::text IS NULL OR p.category = $2::text)
`

type CountProductsParams struct {
	Q        interface{} `json:"q"`
	Category interface{} `json:"category"`
}

func (q *Queries) CountProducts(ctx context.Context, arg CountProductsParams) (int64, error) {
	row := q.db.QueryRow(ctx, countProducts, arg.Q, arg.Category)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listProducts = `-- name: ListProducts :many
SELECT p.id, p.name, p.category, p.unit,
       MIN(pc.current_price) FILTER (WHERE pc.in_stock) AS min_price,
       MAX(pc.current_price) FILTER (WHERE pc.in_stock) AS max_price,
       COUNT(pc.id) FILTER (WHERE pc.in_stock) AS vendor_count
FROM products p
LEFT JOIN (product_catalog pc JOIN vendors v ON v.id = pc.vendor_id AND v.status = 'active')
       ON pc.product_id = p.id
WHERE ($1::text IS NULL OR p.name ILIKE '%' || $1::text || '%')
  AND ($2::text IS NULL OR p.category = $2::text)
GROUP BY p.id
ORDER BY p.name ASC
OFFSET $3 LIMIT $4
`

type ListProductsParams struct {
	Q           interface{} `json:"q"`
	Category    interface{} `json:"category"`
	OffsetValue int32       `json:"offset_value"`
	LimitValue  int32       `json:"limit_value"`
}

type ListProductsRow struct {
	ID          pgtype.UUID `json:"id"`
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Unit        string      `json:"unit"`
	MinPrice    pgtype.Int8 `json:"min_price"`
	MaxPrice    pgtype.Int8 `json:"max_price"`
	VendorCount int64       `json:"vendor_count"`
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]ListProductsRow, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.Q, arg.Category, arg.OffsetValue, arg.LimitValue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListProductsRow
	for rows.Next() {
		var i ListProductsRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Category,
			&i.Unit,
			&i.MinPrice,
			&i.MaxPrice,
			&i.VendorCount,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getProductByID = `-- name: GetProductByID :one
SELECT id, name, normalized_name, category, unit, typical_shelf_life_days, created_at
FROM products WHERE id = $1
`

func (q *Queries) GetProductByID(ctx context.Context, id pgtype.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProductByID, id)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.NormalizedName,
		&i.Category,
		&i.Unit,
		&i.TypicalShelfLifeDays,
		&i.CreatedAt,
	)
	return i, err
}

const listCategories = `-- name: ListCategories :many
SELECT category, COUNT(*) AS product_count FROM products GROUP BY category ORDER BY category ASC
`

type ListCategoriesRow struct {
	Category     string `json:"category"`
	ProductCount int64  `json:"product_count"`
}

func (q *Queries) ListCategories(ctx context.Context) ([]ListCategoriesRow, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListCategoriesRow
	for rows.Next() {
		var i ListCategoriesRow
		if err := rows.Scan(&i.Category, &i.ProductCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertProduct = `-- name: UpsertProduct :one
INSERT INTO products (name, normalized_name, category, unit, typical_shelf_life_days)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (normalized_name) DO UPDATE SET
    name = EXCLUDED.name,
    category = EXCLUDED.category,
    unit = EXCLUDED.unit,
    typical_shelf_life_days = EXCLUDED.typical_shelf_life_days
RETURNING id, name, normalized_name, category, unit, typical_shelf_life_days, created_at
`

type UpsertProductParams struct {
	Name                 string      `json:"name"`
	NormalizedName       string      `json:"normalized_name"`
	Category             string      `json:"category"`
	Unit                 string      `json:"unit"`
	TypicalShelfLifeDays pgtype.Int4 `json:"typical_shelf_life_days"`
}

func (q *Queries) UpsertProduct(ctx context.Context, arg UpsertProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, upsertProduct,
		arg.Name,
		arg.NormalizedName,
		arg.Category,
		arg.Unit,
		arg.TypicalShelfLifeDays,
	)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.NormalizedName,
		&i.Category,
		&i.Unit,
		&i.TypicalShelfLifeDays,
		&i.CreatedAt,
	)
	return i, err
}
