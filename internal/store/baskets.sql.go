package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const basketColumns = `id, user_id, status, version, created_at, updated_at`

func scanBasket(row interface{ Scan(...any) error }) (Basket, error) {
	var i Basket
	err := row.Scan(&i.ID, &i.UserID, &i.Status, &i.Version, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getActiveBasket = `-- name: GetActiveBasket :one
SELECT ` + basketColumns + ` FROM baskets WHERE user_id = $1 AND status = 'active'
`

func (q *Queries) GetActiveBasket(ctx context.Context, userID pgtype.UUID) (Basket, error) {
	return scanBasket(q.db.QueryRow(ctx, getActiveBasket, userID))
}

const ensureActiveBasket = `-- name: EnsureActiveBasket :one
INSERT INTO baskets (user_id) VALUES ($1)
ON CONFLICT (user_id) WHERE status = 'active' DO UPDATE SET updated_at = baskets.updated_at
RETURNING ` + basketColumns + `
`

// EnsureActiveBasket returns the user's active basket, creating it on first use.
func (q *Queries) EnsureActiveBasket(ctx context.Context, userID pgtype.UUID) (Basket, error) {
	return scanBasket(q.db.QueryRow(ctx, ensureActiveBasket, userID))
}

const bumpBasketVersion = `-- name: BumpBasketVersion :one
UPDATE baskets SET version = version + 1, updated_at = now() WHERE id = $1 RETURNING version
`

func (q *Queries) BumpBasketVersion(ctx context.Context, id pgtype.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, bumpBasketVersion, id)
	var version int64
	err := row.Scan(&version)
	return version, err
}

const setBasketStatus = `-- name: SetBasketStatus :exec
UPDATE baskets SET status = $2, updated_at = now() WHERE id = $1
`

func (q *Queries) SetBasketStatus(ctx context.Context, id pgtype.UUID, status string) error {
	_, err := q.db.Exec(ctx, setBasketStatus, id, status)
	return err
}

const listBasketItems = `-- name: ListBasketItems :many
SELECT bi.id, bi.product_id, p.name AS product_name, p.category, p.unit, bi.quantity, bi.checked
FROM basket_items bi
JOIN products p ON p.id = bi.product_id
WHERE bi.basket_id = $1
  AND ($2::text IS NULL OR p.category = $2::text)
ORDER BY bi.created_at ASC, bi.id ASC
`

type ListBasketItemsParams struct {
	BasketID pgtype.UUID `json:"basket_id"`
	Category interface{} `json:"category"`
}

type ListBasketItemsRow struct {
	ID          pgtype.UUID `json:"id"`
	ProductID   pgtype.UUID `json:"product_id"`
	ProductName string      `json:"product_name"`
	Category    string      `json:"category"`
	Unit        string      `json:"unit"`
	Quantity    int32       `json:"quantity"`
	Checked     bool        `json:"checked"`
}

func (q *Queries) ListBasketItems(ctx context.Context, arg ListBasketItemsParams) ([]ListBasketItemsRow, error) {
	rows, err := q.db.Query(ctx, listBasketItems, arg.BasketID, arg.Category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListBasketItemsRow
	for rows.Next() {
		var i ListBasketItemsRow
		if err := rows.Scan(
			&i.ID,
			&i.ProductID,
			&i.ProductName,
			&i.Category,
			&i.Unit,
			&i.Quantity,
			&i.Checked,
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

const addBasketItem = `-- name: AddBasketItem :one
INSERT INTO basket_items (basket_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (basket_id, product_id) DO UPDATE SET quantity = basket_items.quantity + EXCLUDED.quantity
RETURNING id, basket_id, product_id, quantity, checked, created_at
`

type AddBasketItemParams struct {
	BasketID  pgtype.UUID `json:"basket_id"`
	ProductID pgtype.UUID `json:"product_id"`
	Quantity  int32       `json:"quantity"`
}

func (q *Queries) AddBasketItem(ctx context.Context, arg AddBasketItemParams) (BasketItem, error) {
	row := q.db.QueryRow(ctx, addBasketItem, arg.BasketID, arg.ProductID, arg.Quantity)
	var i BasketItem
	err := row.Scan(&i.ID, &i.BasketID, &i.ProductID, &i.Quantity, &i.Checked, &i.CreatedAt)
	return i, err
}

const updateBasketItem = `-- name: UpdateBasketItem :one
UPDATE basket_items
SET quantity = COALESCE($3::int, quantity),
    checked = COALESCE($4::boolean, checked)
WHERE id = $1 AND basket_id = $2
RETURNING id, basket_id, product_id, quantity, checked, created_at
`

type UpdateBasketItemParams struct {
	ID       pgtype.UUID `json:"id"`
	BasketID pgtype.UUID `json:"basket_id"`
	Quantity pgtype.Int4 `json:"quantity"`
	Checked  pgtype.Bool `json:"checked"`
}

func (q *Queries) UpdateBasketItem(ctx context.Context, arg UpdateBasketItemParams) (BasketItem, error) {
	row := q.db.QueryRow(ctx, updateBasketItem, arg.ID, arg.BasketID, arg.Quantity, arg.Checked)
	var i BasketItem
	err := row.Scan(&i.ID, &i.BasketID, &i.ProductID, &i.Quantity, &i.Checked, &i.CreatedAt)
	return i, err
}

const deleteBasketItem = `-- name: DeleteBasketItem :execrows
DELETE FROM basket_items WHERE id = $1 AND basket_id = $2
`

func (q *Queries) DeleteBasketItem(ctx context.Context, id, basketID pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteBasketItem, id, basketID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
