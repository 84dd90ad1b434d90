package repositories

import (
	"context"
	"fmt"
	"time"

	"shoppingmall/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleLine is one order item of an order, flattened for aggregation.
type SaleLine struct {
	OrderID   string
	CreatedAt time.Time
	Quantity  int
	UnitPrice decimal.Decimal
}

// ReportRepository runs read-only aggregate queries for the back office.
type ReportRepository interface {
	TopProductSales(ctx context.Context, limit int) ([]models.ProductSales, error)
	SaleLines(ctx context.Context, status models.OrderStatus) ([]SaleLine, error)
	LowStock(ctx context.Context, threshold int) ([]models.InventoryStatus, error)
}

type GORMReportRepository struct {
	db *gorm.DB
}

func NewGORMReportRepository(db *gorm.DB) *GORMReportRepository {
	return &GORMReportRepository{db: db}
}

// TopProductSales ranks products by units sold. Cancelled orders are excluded.
func (r *GORMReportRepository) TopProductSales(ctx context.Context, limit int) ([]models.ProductSales, error) {
	out := make([]models.ProductSales, 0)
	err := r.db.WithContext(ctx).
		Table("products AS p").
		Select(`p.id AS product_id, p.name AS product_name, p.price,
			COALESCE(SUM(oi.quantity), 0) AS total_sales,
			COALESCE(SUM(oi.quantity * oi.unit_price), 0) AS total_revenue`).
		Joins(`LEFT JOIN order_items AS oi ON oi.product_id = p.id
			AND oi.order_id IN (SELECT id FROM orders WHERE status <> ?)`, models.OrderStatusCancelled).
		Group("p.id, p.name, p.price").
		Order("total_sales DESC, p.name").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query product sales: %w", err)
	}
	return out, nil
}

// SaleLines returns every item of the orders in the given status, oldest first.
func (r *GORMReportRepository) SaleLines(ctx context.Context, status models.OrderStatus) ([]SaleLine, error) {
	out := make([]SaleLine, 0)
	err := r.db.WithContext(ctx).
		Table("orders AS o").
		Select("o.id AS order_id, o.created_at, oi.quantity, oi.unit_price").
		Joins("JOIN order_items AS oi ON oi.order_id = o.id").
		Where("o.status = ?", status).
		Order("o.created_at, o.id").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query sale lines: %w", err)
	}
	return out, nil
}

// LowStock lists active products whose stock is below threshold, lowest
// first. Units sold exclude cancelled orders.
func (r *GORMReportRepository) LowStock(ctx context.Context, threshold int) ([]models.InventoryStatus, error) {
	out := make([]models.InventoryStatus, 0)
	err := r.db.WithContext(ctx).
		Table("products AS p").
		Select("p.id AS product_id, p.name AS product_name, p.stock_quantity, COALESCE(SUM(oi.quantity), 0) AS total_sold").
		Joins(`LEFT JOIN order_items AS oi ON oi.product_id = p.id
			AND oi.order_id IN (SELECT id FROM orders WHERE status <> ?)`, models.OrderStatusCancelled).
		Where("p.is_active = ? AND p.stock_quantity < ?", true, threshold).
		Group("p.id, p.name, p.stock_quantity").
		Order("p.stock_quantity ASC, p.name").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory status: %w", err)
	}
	return out, nil
}
