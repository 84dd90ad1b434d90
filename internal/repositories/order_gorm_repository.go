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

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	q := r.db.WithContext(ctx)
	if err := q.Omit(clause.Associations).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	if len(order.Items) > 0 {
		if err := q.Create(&order.Items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
	}
	return nil
}

func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.get(ctx, r.db.WithContext(ctx), id)
}

func (r *GORMOrderRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return r.get(ctx, r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GORMOrderRepository) get(ctx context.Context, q *gorm.DB, id string) (*models.Order, error) {
	var order models.Order
	if err := q.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Order("id").Find(&order.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to load items of order %s: %w", id, err)
	}
	return &order, nil
}

func (r *GORMOrderRepository) GetDetail(ctx context.Context, id, userID string) (*models.OrderDetail, error) {
	q := r.db.WithContext(ctx)

	var head models.OrderSummary
	hq := q.Table("orders AS o").
		Select("o.id AS order_id, o.user_id, u.username, o.total_amount, o.status, o.created_at").
		Joins("LEFT JOIN users AS u ON u.id = o.user_id").
		Where("o.id = ?", id)
	if userID != "" {
		hq = hq.Where("o.user_id = ?", userID)
	}
	res := hq.Limit(1).Scan(&head)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to get order detail %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}

	lines := make([]models.OrderLineDetail, 0)
	err := q.Table("order_items AS oi").
		Select("oi.product_id, p.name AS product_name, oi.quantity, oi.unit_price").
		Joins("LEFT JOIN products AS p ON p.id = oi.product_id").
		Where("oi.order_id = ?", id).
		Order("oi.id").
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get items of order %s: %w", id, err)
	}
	for i := range lines {
		lines[i].Subtotal = models.OrderItem{Quantity: lines[i].Quantity, UnitPrice: lines[i].UnitPrice}.Subtotal()
	}

	return &models.OrderDetail{
		OrderID:     head.OrderID,
		UserID:      head.UserID,
		Username:    head.Username,
		TotalAmount: head.TotalAmount,
		Status:      head.Status,
		CreatedAt:   head.CreatedAt,
		Items:       lines,
	}, nil
}

func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.OrderSummary, error) {
	q := r.db.WithContext(ctx).Table("orders AS o").
		Select("o.id AS order_id, o.user_id, u.username, o.total_amount, o.status, o.created_at, COUNT(oi.id) AS item_count").
		Joins("LEFT JOIN users AS u ON u.id = o.user_id").
		Joins("LEFT JOIN order_items AS oi ON oi.order_id = o.id").
		Group("o.id, o.user_id, u.username, o.total_amount, o.status, o.created_at").
		Order("o.created_at, o.id")
	if filter.OrderID != "" {
		q = q.Where("o.id = ?", filter.OrderID)
	}
	if filter.UserID != "" {
		q = q.Where("o.user_id = ?", filter.UserID)
	}
	if filter.UsernameLike != "" {
		q = q.Where("u.username LIKE ?", "%"+filter.UsernameLike+"%")
	}

	orders := make([]models.OrderSummary, 0)
	if err := q.Scan(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update status of order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	return nil
}
