package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shoppingmall/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

func (r *GORMCartRepository) GetByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	return r.getByUserID(r.db.WithContext(ctx), userID)
}

func (r *GORMCartRepository) GetByUserIDForUpdate(ctx context.Context, userID string) (*models.Cart, error) {
	return r.getByUserID(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *GORMCartRepository) getByUserID(q *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	if err := q.First(&cart, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

// GetOrCreate returns the user's cart, creating it on first use. Two
// concurrent first adds both land on the same row thanks to the unique
// index on user_id.
func (r *GORMCartRepository) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	cart := models.Cart{ID: uuid.New().String(), UserID: userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&cart).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create cart for user %s: %w", userID, err)
	}
	return r.GetByUserID(ctx, userID)
}

func (r *GORMCartRepository) GetItem(ctx context.Context, cartID, productID string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).First(&item, "cart_id = ? AND product_id = ?", cartID, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart item %s/%s: %w", cartID, productID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return &item, nil
}

func (r *GORMCartRepository) UpsertItem(ctx context.Context, cartID, productID string, quantity int) error {
	item := models.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(&item).Error
	if err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return nil
}

func (r *GORMCartRepository) UpdateItemQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	res := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to update cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart item %s/%s: %w", cartID, productID, ErrNotFound)
	}
	return nil
}

func (r *GORMCartRepository) RemoveItem(ctx context.Context, cartID, productID string) error {
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// Clear deletes every line of the cart and reports how many were removed.
func (r *GORMCartRepository) Clear(ctx context.Context, cartID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear cart %s: %w", cartID, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GORMCartRepository) ListItems(ctx context.Context, cartID string) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	return items, nil
}

func (r *GORMCartRepository) ListLines(ctx context.Context, cartID string) ([]models.CartLine, error) {
	lines := make([]models.CartLine, 0)
	err := r.db.WithContext(ctx).
		Table("cart_items AS ci").
		Select("ci.product_id, ci.quantity, p.name, p.price, p.stock_quantity, p.is_active").
		Joins("JOIN products AS p ON p.id = ci.product_id").
		Where("ci.cart_id = ?", cartID).
		Order("ci.id").
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}
	return lines, nil
}
