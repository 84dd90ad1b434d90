package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"shoppingmall/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRow is the locked view of a product used by checkout.
type StockRow struct {
	ProductID     string
	Name          string
	Price         decimal.Decimal
	StockQuantity int
	IsActive      bool
}

// InventoryLedger is the authoritative stock count. Every method must run
// inside Store.Transaction: reads take row locks that are held until commit,
// and writes are only safe while those locks are held.
type InventoryLedger interface {
	// LockAndRead write-locks the given products and returns their current
	// price and stock. Locks are taken in ascending id order so overlapping
	// checkouts queue instead of deadlocking. Missing ids are absent from the
	// result.
	LockAndRead(ctx context.Context, productIDs []string) (map[string]StockRow, error)
	// LockOne write-locks a single product for an administrative edit.
	LockOne(ctx context.Context, productID string) (*models.Product, error)
	// Decrement lowers stock by amount if enough is left and returns the
	// number of rows changed (0 or 1).
	Decrement(ctx context.Context, productID string, amount int) (int64, error)
	// Restore puts amount back into stock and returns the rows changed.
	Restore(ctx context.Context, productID string, amount int) (int64, error)
}

// GORMInventoryLedger implements InventoryLedger with SELECT ... FOR UPDATE.
type GORMInventoryLedger struct {
	db *gorm.DB
}

func NewGORMInventoryLedger(db *gorm.DB) *GORMInventoryLedger {
	return &GORMInventoryLedger{db: db}
}

func (l *GORMInventoryLedger) LockAndRead(ctx context.Context, productIDs []string) (map[string]StockRow, error) {
	if !inTransaction(l.db) {
		return nil, ErrNoTransaction
	}
	ids := uniqueSorted(productIDs)
	rows := make(map[string]StockRow, len(ids))
	if len(ids) == 0 {
		return rows, nil
	}

	var products []models.Product
	err := l.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	for _, p := range products {
		rows[p.ID] = StockRow{
			ProductID:     p.ID,
			Name:          p.Name,
			Price:         p.Price,
			StockQuantity: p.StockQuantity,
			IsActive:      p.IsActive,
		}
	}
	return rows, nil
}

func (l *GORMInventoryLedger) LockOne(ctx context.Context, productID string) (*models.Product, error) {
	if !inTransaction(l.db) {
		return nil, ErrNoTransaction
	}
	var product models.Product
	err := l.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock product %s: %w", productID, err)
	}
	return &product, nil
}

func (l *GORMInventoryLedger) Decrement(ctx context.Context, productID string, amount int) (int64, error) {
	if !inTransaction(l.db) {
		return 0, ErrNoTransaction
	}
	res := l.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, amount).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity - ?", amount),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to decrement stock of %s: %w", productID, res.Error)
	}
	return res.RowsAffected, nil
}

func (l *GORMInventoryLedger) Restore(ctx context.Context, productID string, amount int) (int64, error) {
	if !inTransaction(l.db) {
		return 0, ErrNoTransaction
	}
	res := l.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity + ?", amount),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to restore stock of %s: %w", productID, res.Error)
	}
	return res.RowsAffected, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
