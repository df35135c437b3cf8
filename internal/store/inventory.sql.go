package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const inventoryRowColumns = `ii.id, ii.user_id, ii.product_id, p.name AS product_name, p.category,
       ii.quantity, ii.pack_quantity, ii.unit, ii.expiry_date, ii.location, ii.updated_at`

type InventoryRow struct {
	ID           pgtype.UUID        `json:"id"`
	UserID       pgtype.UUID        `json:"user_id"`
	ProductID    pgtype.UUID        `json:"product_id"`
	ProductName  string             `json:"product_name"`
	Category     string             `json:"category"`
	Quantity     float64            `json:"quantity"`
	PackQuantity float64            `json:"pack_quantity"`
	Unit         string             `json:"unit"`
	ExpiryDate   pgtype.Date        `json:"expiry_date"`
	Location     pgtype.Text        `json:"location"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

func scanInventoryRow(row interface{ Scan(...any) error }) (InventoryRow, error) {
	var i InventoryRow
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ProductID,
		&i.ProductName,
		&i.Category,
		&i.Quantity,
		&i.PackQuantity,
		&i.Unit,
		&i.ExpiryDate,
		&i.Location,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) queryInventory(ctx context.Context, sql string, args ...interface{}) ([]InventoryRow, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InventoryRow
	for rows.Next() {
		i, err := scanInventoryRow(rows)
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

const listInventoryItems = `-- name: ListInventoryItems :many
SELECT ` + inventoryRowColumns + `
FROM inventory_items ii
JOIN products p ON p.id = ii.product_id
WHERE ii.user_id = $1
ORDER BY ii.expiry_date ASC NULLS LAST, p.name ASC
`

func (q *Queries) ListInventoryItems(ctx context.Context, userID pgtype.UUID) ([]InventoryRow, error) {
	return q.queryInventory(ctx, listInventoryItems, userID)
}

const listExpiringInventory = `-- name: ListExpiringInventory :many
SELECT ` + inventoryRowColumns + `
FROM inventory_items ii
JOIN products p ON p.id = ii.product_id
WHERE ii.expiry_date IS NOT NULL AND ii.expiry_date <= $1 AND ii.quantity > 0
ORDER BY ii.expiry_date ASC
`

// ListExpiringInventory returns stocked items of every household expiring on or before the date.
func (q *Queries) ListExpiringInventory(ctx context.Context, before pgtype.Date) ([]InventoryRow, error) {
	return q.queryInventory(ctx, listExpiringInventory, before)
}

const getInventoryItem = `-- name: GetInventoryItem :one
SELECT ` + inventoryRowColumns + `
FROM inventory_items ii
JOIN products p ON p.id = ii.product_id
WHERE ii.id = $1 AND ii.user_id = $2
`

func (q *Queries) GetInventoryItem(ctx context.Context, id, userID pgtype.UUID) (InventoryRow, error) {
	return scanInventoryRow(q.db.QueryRow(ctx, getInventoryItem, id, userID))
}

const createInventoryItem = `-- name: CreateInventoryItem :one
INSERT INTO inventory_items (user_id, product_id, quantity, pack_quantity, unit, expiry_date, location)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`

type CreateInventoryItemParams struct {
	UserID       pgtype.UUID `json:"user_id"`
	ProductID    pgtype.UUID `json:"product_id"`
	Quantity     float64     `json:"quantity"`
	PackQuantity float64     `json:"pack_quantity"`
	Unit         string      `json:"unit"`
	ExpiryDate   pgtype.Date `json:"expiry_date"`
	Location     pgtype.Text `json:"location"`
}

func (q *Queries) CreateInventoryItem(ctx context.Context, arg CreateInventoryItemParams) (pgtype.UUID, error) {
	row := q.db.QueryRow(ctx, createInventoryItem,
		arg.UserID,
		arg.ProductID,
		arg.Quantity,
		arg.PackQuantity,
		arg.Unit,
		arg.ExpiryDate,
		arg.Location,
	)
	var id pgtype.UUID
	err := row.Scan(&id)
	return id, err
}

const updateInventoryItem = `-- name: UpdateInventoryItem :execrows
UPDATE inventory_items
SET quantity = COALESCE($3::double precision, quantity),
    expiry_date = CASE WHEN $4::boolean THEN $5::date ELSE expiry_date END,
    location = COALESCE($6::text, location),
    updated_at = now()
WHERE id = $1 AND user_id = $2
`

type UpdateInventoryItemParams struct {
	ID         pgtype.UUID   `json:"id"`
	UserID     pgtype.UUID   `json:"user_id"`
	Quantity   pgtype.Float8 `json:"quantity"`
	SetExpiry  bool          `json:"set_expiry"`
	ExpiryDate pgtype.Date   `json:"expiry_date"`
	Location   pgtype.Text   `json:"location"`
}

func (q *Queries) UpdateInventoryItem(ctx context.Context, arg UpdateInventoryItemParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateInventoryItem,
		arg.ID,
		arg.UserID,
		arg.Quantity,
		arg.SetExpiry,
		arg.ExpiryDate,
		arg.Location,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteInventoryItem = `-- name: DeleteInventoryItem :execrows
DELETE FROM inventory_items WHERE id = $1 AND user_id = $2
`

func (q *Queries) DeleteInventoryItem(ctx context.Context, id, userID pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteInventoryItem, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
