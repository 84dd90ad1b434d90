package services

import (
	"errors"
	"fmt"
)

// Business outcomes of cart and order operations. Handlers map them to
// HTTP status codes; everything else is an unexpected failure.
var (
	ErrCartNotFound       = errors.New("cart not found")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrStockUpdateFailed  = errors.New("stock update failed")
	ErrTransactionTimeout = errors.New("system busy, please retry")

	ErrProductNotFound   = errors.New("product not found")
	ErrCartLineNotFound  = errors.New("product is not in the cart")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("order status cannot be changed")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
)

// InsufficientStockError names the product that cannot cover the request.
// errors.Is(err, ErrInsufficientStock) holds for it.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (requested: %d, available: %d)", e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
