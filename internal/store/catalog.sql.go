package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listQuotesByProduct = `-- name: ListQuotesByProduct :many
SELECT v.id AS vendor_id, v.slug AS vendor_slug, v.name AS vendor_name,
       pc.current_price, pc.mrp, pc.in_stock, pc.updated_at
FROM product_catalog pc
JOIN vendors v ON v.id = pc.vendor_id
WHERE pc.product_id = $1 AND v.status = 'active'
ORDER BY v.priority ASC, v.slug ASC
`

type ListQuotesByProductRow struct {
	VendorID     pgtype.UUID        `json:"vendor_id"`
	VendorSlug   string             `json:"vendor_slug"`
	VendorName   string             `json:"vendor_name"`
	CurrentPrice int64              `json:"current_price"`
	Mrp          pgtype.Int8        `json:"mrp"`
	InStock      bool               `json:"in_stock"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) ListQuotesByProduct(ctx context.Context, productID pgtype.UUID) ([]ListQuotesByProductRow, error) {
	rows, err := q.db.Query(ctx, listQuotesByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListQuotesByProductRow
	for rows.Next() {
		var i ListQuotesByProductRow
		if err := rows.Scan(
			&i.VendorID,
			&i.VendorSlug,
			&i.VendorName,
			&i.CurrentPrice,
			&i.Mrp,
			&i.InStock,
			&i.UpdatedAt,
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

const listQuotesForProducts = `-- name: ListQuotesForProducts :many
SELECT pc.product_id, v.id AS vendor_id, v.slug AS vendor_slug, pc.current_price, pc.in_stock
FROM product_catalog pc
JOIN vendors v ON v.id = pc.vendor_id
WHERE pc.product_id = ANY($1::uuid[]) AND v.status = 'active'
ORDER BY pc.product_id, v.priority ASC
`

type ListQuotesForProductsRow struct {
	ProductID    pgtype.UUID `json:"product_id"`
	VendorID     pgtype.UUID `json:"vendor_id"`
	VendorSlug   string      `json:"vendor_slug"`
	CurrentPrice int64       `json:"current_price"`
	InStock      bool        `json:"in_stock"`
}

func (q *Queries) ListQuotesForProducts(ctx context.Context, productIds []pgtype.UUID) ([]ListQuotesForProductsRow, error) {
	rows, err := q.db.Query(ctx, listQuotesForProducts, productIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListQuotesForProductsRow
	for rows.Next() {
		var i ListQuotesForProductsRow
		if err := rows.Scan(
			&i.ProductID,
			&i.VendorID,
			&i.VendorSlug,
			&i.CurrentPrice,
			&i.InStock,
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

const upsertQuote = `-- name: UpsertQuote :exec
INSERT INTO product_catalog (product_id, vendor_id, current_price, mrp, in_stock, product_url, price_selector)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (product_id, vendor_id) DO UPDATE SET
    current_price = EXCLUDED.current_price,
    mrp = EXCLUDED.mrp,
    in_stock = EXCLUDED.in_stock,
    product_url = EXCLUDED.product_url,
    price_selector = EXCLUDED.price_selector,
    updated_at = now()
`

type UpsertQuoteParams struct {
	ProductID     pgtype.UUID `json:"product_id"`
	VendorID      pgtype.UUID `json:"vendor_id"`
	CurrentPrice  int64       `json:"current_price"`
	Mrp           pgtype.Int8 `json:"mrp"`
	InStock       bool        `json:"in_stock"`
	ProductUrl    pgtype.Text `json:"product_url"`
	PriceSelector pgtype.Text `json:"price_selector"`
}

func (q *Queries) UpsertQuote(ctx context.Context, arg UpsertQuoteParams) error {
	_, err := q.db.Exec(ctx, upsertQuote,
		arg.ProductID,
		arg.VendorID,
		arg.CurrentPrice,
		arg.Mrp,
		arg.InStock,
		arg.ProductUrl,
		arg.PriceSelector,
	)
	return err
}

const listRefreshableQuotes = `-- name: ListRefreshableQuotes :many
SELECT id, product_id, vendor_id, current_price, mrp, in_stock, product_url, price_selector, updated_at
FROM product_catalog
WHERE vendor_id = $1 AND product_url IS NOT NULL
ORDER BY updated_at ASC
`

func (q *Queries) ListRefreshableQuotes(ctx context.Context, vendorID pgtype.UUID) ([]ProductCatalog, error) {
	rows, err := q.db.Query(ctx, listRefreshableQuotes, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProductCatalog
	for rows.Next() {
		var i ProductCatalog
		if err := rows.Scan(
			&i.ID,
			&i.ProductID,
			&i.VendorID,
			&i.CurrentPrice,
			&i.Mrp,
			&i.InStock,
			&i.ProductUrl,
			&i.PriceSelector,
			&i.UpdatedAt,
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

const updateQuotePrice = `-- name: UpdateQuotePrice :exec
UPDATE product_catalog SET current_price = $2, in_stock = TRUE, updated_at = now() WHERE id = $1
`

func (q *Queries) UpdateQuotePrice(ctx context.Context, id pgtype.UUID, price int64) error {
	_, err := q.db.Exec(ctx, updateQuotePrice, id, price)
	return err
}

const markQuoteUnavailable = `-- name: MarkQuoteUnavailable :exec
UPDATE product_catalog SET in_stock = FALSE, updated_at = now() WHERE id = $1
`

func (q *Queries) MarkQuoteUnavailable(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, markQuoteUnavailable, id)
	return err
}
