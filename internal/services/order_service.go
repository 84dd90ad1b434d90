package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"shoppingmall/internal/cache"
	"shoppingmall/internal/models"
	"shoppingmall/internal/repositories"
	"shoppingmall/pkg/rabbitmq"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventPublisher delivers order events to the message broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// CheckoutResult is what a successful checkout returns to the customer.
type CheckoutResult struct {
	OrderID     string          `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderOptions tunes OrderService. Zero values fall back to defaults.
type OrderOptions struct {
	Location             *time.Location
	CheckoutTimeout      time.Duration
	RestoreStockOnCancel bool
	Now                  func() time.Time
}

// OrderService turns carts into orders and manages their lifecycle.
type OrderService struct {
	store           *repositories.Store
	cartCache       cache.CartCache
	events          EventPublisher
	loc             *time.Location
	checkoutTimeout time.Duration
	restoreOnCancel bool
	now             func() time.Time
}

// NewOrderService creates a new OrderService. cartCache and events may be nil.
func NewOrderService(store *repositories.Store, cartCache cache.CartCache, events EventPublisher, opts OrderOptions) *OrderService {
	if cartCache == nil {
		cartCache = cache.Noop{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.CheckoutTimeout <= 0 {
		opts.CheckoutTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &OrderService{
		store:           store,
		cartCache:       cartCache,
		events:          events,
		loc:             opts.Location,
		checkoutTimeout: opts.CheckoutTimeout,
		restoreOnCancel: opts.RestoreStockOnCancel,
		now:             opts.Now,
	}
}

// CreateOrder checks out the customer's cart. Validation, order insert,
// stock decrement and cart clearing commit together or not at all.
func (s *OrderService) CreateOrder(ctx context.Context, userID string) (*CheckoutResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.checkoutTimeout)
	defer cancel()

	var order *models.Order
	err := s.store.Transaction(txCtx, func(tx *repositories.Store) error {
		var err error
		order, err = s.checkout(txCtx, tx, userID)
		return err
	})
	if err != nil {
		return nil, s.txError("checkout for user "+userID, err)
	}

	if err := s.cartCache.Invalidate(context.WithoutCancel(ctx), userID); err != nil {
		log.Printf("Warning: failed to invalidate cart cache for user %s: %v", userID, err)
	}
	s.publish(rabbitmq.RoutingKeyOrderCreated, order)

	return &CheckoutResult{OrderID: order.ID, TotalAmount: order.TotalAmount}, nil
}

func (s *OrderService) checkout(ctx context.Context, tx *repositories.Store, userID string) (*models.Order, error) {
	// Locking the cart row makes two checkouts of the same cart run one
	// after the other; the second then finds the cart empty.
	cart, err := tx.Carts().GetByUserIDForUpdate(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}

	items, err := tx.Carts().ListItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	productIDs := make([]string, len(items))
	for i, item := range items {
		productIDs[i] = item.ProductID
	}
	stock, err := tx.Inventory().LockAndRead(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		row, ok := stock[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s no longer exists", ErrStockUpdateFailed, item.ProductID)
		}
		if !row.IsActive || item.Quantity > row.StockQuantity {
			available := row.StockQuantity
			if !row.IsActive {
				available = 0
			}
			return nil, &InsufficientStockError{
				ProductID:   row.ProductID,
				ProductName: row.Name,
				Requested:   item.Quantity,
				Available:   available,
			}
		}
		line := models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: row.Price,
		}
		total = total.Add(line.Subtotal())
		orderItems = append(orderItems, line)
	}

	now := s.now().In(s.loc)
	order := &models.Order{
		ID:          uuid.New().String(),
		UserID:      userID,
		TotalAmount: total,
		Status:      models.OrderStatusPending,
		Items:       orderItems,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.Orders().Create(ctx, order); err != nil {
		return nil, err
	}

	for _, item := range orderItems {
		n, err := tx.Inventory().Decrement(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: product %s", ErrStockUpdateFailed, item.ProductID)
		}
	}

	if _, err := tx.Carts().Clear(ctx, cart.ID); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns every order, oldest first.
func (s *OrderService) ListOrders(ctx context.Context) ([]models.OrderSummary, error) {
	return s.store.Orders().List(ctx, repositories.OrderFilter{})
}

// ListMemberOrders returns the orders placed by userID.
func (s *OrderService) ListMemberOrders(ctx context.Context, userID string) ([]models.OrderSummary, error) {
	return s.store.Orders().List(ctx, repositories.OrderFilter{UserID: userID})
}

// GetMemberOrder returns an order only if it belongs to userID.
func (s *OrderService) GetMemberOrder(ctx context.Context, userID, orderID string) (*models.OrderDetail, error) {
	return s.detail(ctx, orderID, userID)
}

// GetOrder returns any order.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.OrderDetail, error) {
	return s.detail(ctx, orderID, "")
}

func (s *OrderService) detail(ctx context.Context, orderID, userID string) (*models.OrderDetail, error) {
	d, err := s.store.Orders().GetDetail(ctx, orderID, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return d, err
}

// SearchOrders matches an exact order id and/or a username substring.
func (s *OrderService) SearchOrders(ctx context.Context, orderID, username string) ([]models.OrderSummary, error) {
	orders, err := s.store.Orders().List(ctx, repositories.OrderFilter{
		OrderID:      orderID,
		UsernameLike: username,
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return orders, nil
}

// UpdateOrderStatus moves a pending order to completed or cancelled.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	return s.transition(ctx, orderID, "", status)
}

// CancelOrder lets a member cancel one of their own pending orders.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	return s.transition(ctx, orderID, userID, models.OrderStatusCancelled)
}

func (s *OrderService) transition(ctx context.Context, orderID, ownerID string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	txCtx, cancel := context.WithTimeout(ctx, s.checkoutTimeout)
	defer cancel()

	var order *models.Order
	err := s.store.Transaction(txCtx, func(tx *repositories.Store) error {
		var err error
		order, err = tx.Orders().GetByIDForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if ownerID != "" && order.UserID != ownerID {
			return ErrOrderNotFound
		}
		if order.Status != models.OrderStatusPending || status == models.OrderStatusPending {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, status)
		}

		if status == models.OrderStatusCancelled && s.restoreOnCancel {
			if err := restoreStock(txCtx, tx, order.Items); err != nil {
				return err
			}
		}
		if err := tx.Orders().UpdateStatus(txCtx, orderID, status); err != nil {
			return err
		}
		order.Status = status
		return nil
	})
	if err != nil {
		return nil, s.txError("status change of order "+orderID, err)
	}

	if status == models.OrderStatusCancelled {
		s.publish(rabbitmq.RoutingKeyOrderCancelled, order)
	}
	return order, nil
}

// restoreStock returns the quantities of a cancelled order to inventory
// under the same product locks checkout takes.
func restoreStock(ctx context.Context, tx *repositories.Store, items []models.OrderItem) error {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	if _, err := tx.Inventory().LockAndRead(ctx, ids); err != nil {
		return err
	}
	for _, item := range items {
		n, err := tx.Inventory().Restore(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: product %s", ErrStockUpdateFailed, item.ProductID)
		}
	}
	return nil
}

// txError classifies a failed transaction. Business errors pass through;
// lock waits and deadline hits become ErrTransactionTimeout; the rest are
// logged and returned as is.
func (s *OrderService) txError(op string, err error) error {
	switch {
	case errors.Is(err, ErrCartNotFound),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrInvalidTransition):
		return err
	case repositories.IsBusy(err):
		log.Printf("%s aborted, database busy: %v", op, err)
		return ErrTransactionTimeout
	default:
		log.Printf("%s failed: %v", op, err)
		return err
	}
}

func (s *OrderService) publish(routingKey string, order *models.Order) {
	if s.events == nil {
		log.Printf("RabbitMQ client is not initialized. Skipping %s for order %s.", routingKey, order.ID)
		return
	}
	body, err := json.Marshal(rabbitmq.OrderEvent{
		Event:       routingKey,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount.StringFixed(2),
		ItemCount:   len(order.Items),
		OccurredAt:  s.now().In(s.loc),
	})
	if err != nil {
		log.Printf("Failed to marshal %s event for order %s: %v", routingKey, order.ID, err)
		return
	}
	if err := s.events.Publish(routingKey, body); err != nil {
		log.Printf("Warning: failed to publish %s for order %s: %v", routingKey, order.ID, err)
	}
}
