package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, order_number, status, mode, subtotal, delivery_fee, tax, total, savings, is_auto_order, placed_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.OrderNumber,
		&i.Status,
		&i.Mode,
		&i.Subtotal,
		&i.DeliveryFee,
		&i.Tax,
		&i.Total,
		&i.Savings,
		&i.IsAutoOrder,
		&i.PlacedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (user_id, order_number, mode, subtotal, delivery_fee, tax, total, savings, is_auto_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns + `
`

type CreateOrderParams struct {
	UserID      pgtype.UUID `json:"user_id"`
	OrderNumber string      `json:"order_number"`
	Mode        string      `json:"mode"`
	Subtotal    int64       `json:"subtotal"`
	DeliveryFee int64       `json:"delivery_fee"`
	Tax         int64       `json:"tax"`
	Total       int64       `json:"total"`
	Savings     int64       `json:"savings"`
	IsAutoOrder bool        `json:"is_auto_order"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.OrderNumber,
		arg.Mode,
		arg.Subtotal,
		arg.DeliveryFee,
		arg.Tax,
		arg.Total,
		arg.Savings,
		arg.IsAutoOrder,
	)
	return scanOrder(row)
}

const createOrderItem = `-- name: CreateOrderItem :exec
INSERT INTO order_items (order_id, vendor_id, product_id, quantity, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6)
`

type CreateOrderItemParams struct {
	OrderID    pgtype.UUID `json:"order_id"`
	VendorID   pgtype.UUID `json:"vendor_id"`
	ProductID  pgtype.UUID `json:"product_id"`
	Quantity   int32       `json:"quantity"`
	UnitPrice  int64       `json:"unit_price"`
	TotalPrice int64       `json:"total_price"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) error {
	_, err := q.db.Exec(ctx, createOrderItem,
		arg.OrderID,
		arg.VendorID,
		arg.ProductID,
		arg.Quantity,
		arg.UnitPrice,
		arg.TotalPrice,
	)
	return err
}

const countOrdersForUser = `-- name: CountOrdersForUser :one
SELECT COUNT(*) FROM orders WHERE user_id = $1 AND ($2::text IS NULL OR status = $2::text)
`

func (q *Queries) CountOrdersForUser(ctx context.Context, userID pgtype.UUID, status interface{}) (int64, error) {
	row := q.db.QueryRow(ctx, countOrdersForUser, userID, status)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listOrdersForUser = `-- name: ListOrdersForUser :many
SELECT ` + orderColumns + ` FROM orders
WHERE user_id = $1 AND ($2::text IS NULL OR status = $2::text)
ORDER BY placed_at DESC
LIMIT $3 OFFSET $4
`

type ListOrdersForUserParams struct {
	UserID pgtype.UUID `json:"user_id"`
	Status interface{} `json:"status"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListOrdersForUser(ctx context.Context, arg ListOrdersForUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersForUser, arg.UserID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
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

const getOrderForUser = `-- name: GetOrderForUser :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2
`

func (q *Queries) GetOrderForUser(ctx context.Context, id, userID pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUser, id, userID))
}

const listOrderItems = `-- name: ListOrderItems :many
SELECT oi.id, oi.product_id, p.name AS product_name, v.slug AS vendor_slug, v.name AS vendor_name,
       oi.quantity, oi.unit_price, oi.total_price
FROM order_items oi
JOIN products p ON p.id = oi.product_id
JOIN vendors v ON v.id = oi.vendor_id
WHERE oi.order_id = $1
ORDER BY v.priority ASC, p.name ASC
`

type ListOrderItemsRow struct {
	ID          pgtype.UUID `json:"id"`
	ProductID   pgtype.UUID `json:"product_id"`
	ProductName string      `json:"product_name"`
	VendorSlug  string      `json:"vendor_slug"`
	VendorName  string      `json:"vendor_name"`
	Quantity    int32       `json:"quantity"`
	UnitPrice   int64       `json:"unit_price"`
	TotalPrice  int64       `json:"total_price"`
}

func (q *Queries) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]ListOrderItemsRow, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrderItemsRow
	for rows.Next() {
		var i ListOrderItemsRow
		if err := rows.Scan(
			&i.ID,
			&i.ProductID,
			&i.ProductName,
			&i.VendorSlug,
			&i.VendorName,
			&i.Quantity,
			&i.UnitPrice,
			&i.TotalPrice,
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

const updateOrderStatus = `-- name: UpdateOrderStatus :exec
UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
`

func (q *Queries) UpdateOrderStatus(ctx context.Context, id pgtype.UUID, status string) error {
	_, err := q.db.Exec(ctx, updateOrderStatus, id, status)
	return err
}
