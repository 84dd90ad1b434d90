package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the store.
type Product struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name          string          `json:"name" gorm:"type:varchar(100);not null"`
	Description   string          `json:"description" gorm:"type:varchar(500)"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	StockQuantity int             `json:"stock_quantity" gorm:"not null;default:0;check:chk_products_stock,stock_quantity >= 0"`
	IsActive      bool            `json:"is_active" gorm:"not null"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
