package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is a customer's staging area. One per user, created on first add.
type Cart struct {
	ID        string     `json:"cart_id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string     `json:"user_id" gorm:"uniqueIndex;type:varchar(36);not null"`
	Items     []CartItem `json:"items,omitempty" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is a single (product, quantity) line. Product is unique per cart.
type CartItem struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CartID    string    `json:"cart_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_items_cart_product"`
	ProductID string    `json:"product_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_items_cart_product"`
	Quantity  int       `json:"quantity" gorm:"not null;check:chk_cart_items_quantity,quantity > 0"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// CartLine is a cart item joined with the product's current state.
type CartLine struct {
	ProductID     string          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
}
