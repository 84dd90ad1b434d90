package services_test

import (
	"context"
	"sync"
	"testing"

	"shoppingmall/internal/database"
	"shoppingmall/internal/models"
	"shoppingmall/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) (*gorm.DB, *repositories.Store) {
	t.Helper()
	db, err := database.OpenInMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return db, repositories.NewStore(db, 0)
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		Role:     models.RoleMember,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:            uuid.NewString(),
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// seedCartLine writes a cart line directly, skipping the advisory stock
// check so tests can build carts that exceed stock.
func seedCartLine(t *testing.T, store *repositories.Store, userID, productID string, qty int) {
	t.Helper()
	ctx := context.Background()
	cart, err := store.Carts().GetOrCreate(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, store.Carts().UpsertItem(ctx, cart.ID, productID, qty))
}

func stockOf(t *testing.T, db *gorm.DB, productID string) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, "id = ?", productID).Error)
	return p.StockQuantity
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func cartLineCount(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var n int64
	err := db.Table("cart_items AS ci").
		Joins("JOIN carts AS c ON c.id = ci.cart_id").
		Where("c.user_id = ?", userID).
		Count(&n).Error
	require.NoError(t, err)
	return n
}

type publishedEvent struct {
	RoutingKey string
	Body       []byte
}

// recordingPublisher stands in for the RabbitMQ client.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{RoutingKey: routingKey, Body: body})
	return p.err
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.RoutingKey
	}
	return out
}
