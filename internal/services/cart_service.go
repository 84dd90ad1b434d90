package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"shoppingmall/internal/cache"
	"shoppingmall/internal/models"
	"shoppingmall/internal/repositories"

	"golang.org/x/sync/singleflight"
)

// CartService manages the customer's cart. Stock checks here are advisory:
// checkout re-checks every line under row locks.
type CartService struct {
	store *repositories.Store
	cache cache.CartCache
	sfg   singleflight.Group // collapses concurrent cache misses per user and generation
}

func NewCartService(store *repositories.Store, cartCache cache.CartCache) *CartService {
	if cartCache == nil {
		cartCache = cache.Noop{}
	}
	return &CartService{store: store, cache: cartCache}
}

// AddLine adds qty units of a product, creating the cart on first use.
func (s *CartService) AddLine(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	product, err := s.activeProduct(ctx, productID)
	if err != nil {
		return err
	}

	cart, err := s.store.Carts().GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	want := qty
	item, err := s.store.Carts().GetItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		want += item.Quantity
	case !errors.Is(err, repositories.ErrNotFound):
		return err
	}
	if want > product.StockQuantity {
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   want,
			Available:   product.StockQuantity,
		}
	}

	if err := s.store.Carts().UpsertItem(ctx, cart.ID, productID, want); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// UpdateLineQuantity replaces the quantity of an existing line.
func (s *CartService) UpdateLineQuantity(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	cart, err := s.cart(ctx, userID)
	if err != nil {
		return err
	}
	product, err := s.activeProduct(ctx, productID)
	if err != nil {
		return err
	}
	if qty > product.StockQuantity {
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   qty,
			Available:   product.StockQuantity,
		}
	}

	if err := s.store.Carts().UpdateItemQuantity(ctx, cart.ID, productID, qty); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrCartLineNotFound
		}
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// RemoveLine drops a product from the cart. Removing from a missing cart
// or removing an absent line succeeds.
func (s *CartService) RemoveLine(ctx context.Context, userID, productID string) error {
	cart, err := s.cart(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.store.Carts().RemoveItem(ctx, cart.ID, productID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	cart, err := s.cart(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.store.Carts().Clear(ctx, cart.ID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// listLinesTimeout bounds a cart load shared by collapsed ListLines calls.
const listLinesTimeout = 5 * time.Second

// ListLines returns the cart with current product data. A customer without
// a cart gets an empty list. Only the entries come from the cache; product
// name, price and stock are always read from the database.
func (s *CartService) ListLines(ctx context.Context, userID string) ([]models.CartLine, error) {
	entries, gen, err := s.cache.Get(ctx, userID)
	switch {
	case err == nil:
		return s.joinProducts(ctx, entries)
	case errors.Is(err, cache.ErrCacheMiss):
	case errors.Is(err, cache.ErrCacheDisabled):
		return s.loadLines(ctx, userID)
	default:
		log.Printf("cart cache get error: %v", err)
		return s.loadLines(ctx, userID)
	}

	// Collapsed callers share one load, so it must not fail because the
	// first caller went away.
	key := fmt.Sprintf("%s:%d", userID, gen)
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listLinesTimeout)
		defer cancel()

		lines, err := s.loadLines(loadCtx, userID)
		if err != nil {
			return nil, err
		}
		entries := make([]cache.CartEntry, len(lines))
		for i, l := range lines {
			entries[i] = cache.CartEntry{ProductID: l.ProductID, Quantity: l.Quantity}
		}
		if err := s.cache.Set(loadCtx, userID, gen, entries); err != nil {
			log.Printf("cart cache set error: %v", err)
		}
		return lines, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.CartLine), nil
}

func (s *CartService) loadLines(ctx context.Context, userID string) ([]models.CartLine, error) {
	cart, err := s.cart(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return []models.CartLine{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.store.Carts().ListLines(ctx, cart.ID)
}

// joinProducts turns cached entries into lines with live product data.
func (s *CartService) joinProducts(ctx context.Context, entries []cache.CartEntry) ([]models.CartLine, error) {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ProductID
	}
	products, err := s.store.Products().GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]models.CartLine, 0, len(entries))
	for _, e := range entries {
		p, ok := products[e.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, models.CartLine{
			ProductID:     e.ProductID,
			Quantity:      e.Quantity,
			Name:          p.Name,
			Price:         p.Price,
			StockQuantity: p.StockQuantity,
			IsActive:      p.IsActive,
		})
	}
	return lines, nil
}

func (s *CartService) cart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.store.Carts().GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrCartNotFound
	}
	return cart, err
}

func (s *CartService) activeProduct(ctx context.Context, productID string) (*models.Product, error) {
	product, err := s.store.Products().GetByID(ctx, productID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// invalidate runs after the write has committed, so it must not be skipped
// when the caller's context is already done.
func (s *CartService) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(context.WithoutCancel(ctx), userID); err != nil {
		log.Printf("cart cache delete error: %v", err)
	}
}
