package repositories

import (
	"context"

	"shoppingmall/internal/models"
)

// OrderFilter narrows List. Empty fields are ignored.
type OrderFilter struct {
	OrderID      string
	UserID       string
	UsernameLike string
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create inserts the order and all of its items.
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// GetByIDForUpdate locks the order row and loads its items.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Order, error)
	// GetDetail returns an order with usernames and product names. A
	// non-empty userID restricts the lookup to that user's orders.
	GetDetail(ctx context.Context, id, userID string) (*models.OrderDetail, error)
	List(ctx context.Context, filter OrderFilter) ([]models.OrderSummary, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
}
