package repositories

import (
	"context"

	"shoppingmall/internal/models"
)

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Cart, error)
	// GetByUserIDForUpdate locks the cart row until the transaction ends.
	GetByUserIDForUpdate(ctx context.Context, userID string) (*models.Cart, error)
	GetOrCreate(ctx context.Context, userID string) (*models.Cart, error)
	GetItem(ctx context.Context, cartID, productID string) (*models.CartItem, error)
	// UpsertItem sets the quantity of a line, inserting it when absent.
	UpsertItem(ctx context.Context, cartID, productID string, quantity int) error
	UpdateItemQuantity(ctx context.Context, cartID, productID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) (int64, error)
	ListItems(ctx context.Context, cartID string) ([]models.CartItem, error)
	// ListLines returns the lines joined with current product data.
	ListLines(ctx context.Context, cartID string) ([]models.CartLine, error)
}
