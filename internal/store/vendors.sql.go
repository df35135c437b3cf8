package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const vendorColumns = `id, slug, name, status, website_url, delivery_fee, free_delivery_threshold, min_order_value, priority, created_at`

func scanVendor(row interface{ Scan(...any) error }) (Vendor, error) {
	var i Vendor
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.Name,
		&i.Status,
		&i.WebsiteUrl,
		&i.DeliveryFee,
		&i.FreeDeliveryThreshold,
		&i.MinOrderValue,
		&i.Priority,
		&i.CreatedAt,
	)
	return i, err
}

const listActiveVendors = `-- name: ListActiveVendors :many
SELECT ` + vendorColumns + ` FROM vendors
WHERE status = 'active'
ORDER BY priority ASC, slug ASC
`

func (q *Queries) ListActiveVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := q.db.Query(ctx, listActiveVendors)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Vendor
	for rows.Next() {
		i, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getVendorBySlug = `-- name: GetVendorBySlug :one
SELECT ` + vendorColumns + ` FROM vendors WHERE slug = $1
`

func (q *Queries) GetVendorBySlug(ctx context.Context, slug string) (Vendor, error) {
	return scanVendor(q.db.QueryRow(ctx, getVendorBySlug, slug))
}

const upsertVendor = `-- name: UpsertVendor :one
INSERT INTO vendors (slug, name, status, website_url, delivery_fee, free_delivery_threshold, min_order_value, priority)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (slug) DO UPDATE SET
    name = EXCLUDED.name,
    status = EXCLUDED.status,
    website_url = EXCLUDED.website_url,
    delivery_fee = EXCLUDED.delivery_fee,
    free_delivery_threshold = EXCLUDED.free_delivery_threshold,
    min_order_value = EXCLUDED.min_order_value,
    priority = EXCLUDED.priority
RETURNING ` + vendorColumns + `
`

type UpsertVendorParams struct {
	Slug                  string      `json:"slug"`
	Name                  string      `json:"name"`
	Status                string      `json:"status"`
	WebsiteUrl            pgtype.Text `json:"website_url"`
	DeliveryFee           int64       `json:"delivery_fee"`
	FreeDeliveryThreshold int64       `json:"free_delivery_threshold"`
	MinOrderValue         int64       `json:"min_order_value"`
	Priority              int32       `json:"priority"`
}

func (q *Queries) UpsertVendor(ctx context.Context, arg UpsertVendorParams) (Vendor, error) {
	row := q.db.QueryRow(ctx, upsertVendor,
		arg.Slug,
		arg.Name,
		arg.Status,
		arg.WebsiteUrl,
		arg.DeliveryFee,
		arg.FreeDeliveryThreshold,
		arg.MinOrderValue,
		arg.Priority,
	)
	return scanVendor(row)
}
