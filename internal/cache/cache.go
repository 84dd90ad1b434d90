package cache

import (
	"context"
	"errors"
)

// CartEntry is what the customer put in the cart. Product name, price and
// stock are never cached; readers join them from the database.
type CartEntry struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartCache stores cart entries per user under a generation number.
// Invalidate starts a new generation, so an entry written for an older
// generation is never served again.
type CartCache interface {
	// Get returns the entries of the current generation and that generation.
	// On a miss it returns ErrCacheMiss with the current generation, which
	// the caller hands back to Set after loading from the database.
	Get(ctx context.Context, userID string) ([]CartEntry, int64, error)
	Set(ctx context.Context, userID string, generation int64, entries []CartEntry) error
	Invalidate(ctx context.Context, userID string) error
}

var (
	ErrCacheMiss     = errors.New("cache miss")
	ErrCacheDisabled = errors.New("cache disabled")
)

// Noop is used when no Redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]CartEntry, int64, error) {
	return nil, 0, ErrCacheDisabled
}
func (Noop) Set(context.Context, string, int64, []CartEntry) error { return nil }
func (Noop) Invalidate(context.Context, string) error               { return nil }
