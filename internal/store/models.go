package store

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           pgtype.UUID        `json:"id"`
	Email        string             `json:"email"`
	Name         string             `json:"name"`
	PasswordHash string             `json:"password_hash"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

type Vendor struct {
	ID                    pgtype.UUID        `json:"id"`
	Slug                  string             `json:"slug"`
	Name                  string             `json:"name"`
	Status                string             `json:"status"`
	WebsiteUrl            pgtype.Text        `json:"website_url"`
	DeliveryFee           int64              `json:"delivery_fee"`
	FreeDeliveryThreshold int64              `json:"free_delivery_threshold"`
	MinOrderValue         int64              `json:"min_order_value"`
	Priority              int32              `json:"priority"`
	CreatedAt             pgtype.Timestamptz `json:"created_at"`
}

type Product struct {
	ID                   pgtype.UUID        `json:"id"`
	Name                 string             `json:"name"`
	NormalizedName       string             `json:"normalized_name"`
	Category             string             `json:"category"`
	Unit                 string             `json:"unit"`
	TypicalShelfLifeDays pgtype.Int4        `json:"typical_shelf_life_days"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
}

type ProductCatalog struct {
	ID            pgtype.UUID        `json:"id"`
	ProductID     pgtype.UUID        `json:"product_id"`
	VendorID      pgtype.UUID        `json:"vendor_id"`
	CurrentPrice  int64              `json:"current_price"`
	Mrp           pgtype.Int8        `json:"mrp"`
	InStock       bool               `json:"in_stock"`
	ProductUrl    pgtype.Text        `json:"product_url"`
	PriceSelector pgtype.Text        `json:"price_selector"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
}

type Basket struct {
	ID        pgtype.UUID        `json:"id"`
	UserID    pgtype.UUID        `json:"user_id"`
	Status    string             `json:"status"`
	Version   int64              `json:"version"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type BasketItem struct {
	ID        pgtype.UUID        `json:"id"`
	BasketID  pgtype.UUID        `json:"basket_id"`
	ProductID pgtype.UUID        `json:"product_id"`
	Quantity  int32              `json:"quantity"`
	Checked   bool               `json:"checked"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type InventoryItem struct {
	ID           pgtype.UUID        `json:"id"`
	UserID       pgtype.UUID        `json:"user_id"`
	ProductID    pgtype.UUID        `json:"product_id"`
	Quantity     float64            `json:"quantity"`
	PackQuantity float64            `json:"pack_quantity"`
	Unit         string             `json:"unit"`
	ExpiryDate   pgtype.Date        `json:"expiry_date"`
	Location     pgtype.Text        `json:"location"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

type Order struct {
	ID          pgtype.UUID        `json:"id"`
	UserID      pgtype.UUID        `json:"user_id"`
	OrderNumber string             `json:"order_number"`
	Status      string             `json:"status"`
	Mode        string             `json:"mode"`
	Subtotal    int64              `json:"subtotal"`
	DeliveryFee int64              `json:"delivery_fee"`
	Tax         int64              `json:"tax"`
	Total       int64              `json:"total"`
	Savings     int64              `json:"savings"`
	IsAutoOrder bool               `json:"is_auto_order"`
	PlacedAt    pgtype.Timestamptz `json:"placed_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type OrderItem struct {
	ID         pgtype.UUID `json:"id"`
	OrderID    pgtype.UUID `json:"order_id"`
	VendorID   pgtype.UUID `json:"vendor_id"`
	ProductID  pgtype.UUID `json:"product_id"`
	Quantity   int32       `json:"quantity"`
	UnitPrice  int64       `json:"unit_price"`
	TotalPrice int64       `json:"total_price"`
}
