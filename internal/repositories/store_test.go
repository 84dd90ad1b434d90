package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"shoppingmall/internal/database"
	"shoppingmall/internal/models"
	"shoppingmall/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newStore(t *testing.T) (*gorm.DB, *repositories.Store) {
	t.Helper()
	db, err := database.OpenInMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return db, repositories.NewStore(db, 0)
}

func addProduct(t *testing.T, store *repositories.Store, name string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.NewFromInt(10), StockQuantity: stock, IsActive: true}
	require.NoError(t, store.Products().Create(context.Background(), p))
	return p
}

func TestInventoryLedger_RequiresTransaction(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()

	_, err := store.Inventory().LockAndRead(ctx, []string{"a"})
	assert.ErrorIs(t, err, repositories.ErrNoTransaction)
	_, err = store.Inventory().LockOne(ctx, "a")
	assert.ErrorIs(t, err, repositories.ErrNoTransaction)
	_, err = store.Inventory().Decrement(ctx, "a", 1)
	assert.ErrorIs(t, err, repositories.ErrNoTransaction)
	_, err = store.Inventory().Restore(ctx, "a", 1)
	assert.ErrorIs(t, err, repositories.ErrNoTransaction)
}

func TestInventoryLedger_LockAndRead(t *testing.T) {
	_, store := newStore(t)
	a := addProduct(t, store, "A", 3)
	b := addProduct(t, store, "B", 0)

	err := store.Transaction(context.Background(), func(tx *repositories.Store) error {
		rows, err := tx.Inventory().LockAndRead(context.Background(), []string{b.ID, a.ID, a.ID, "missing"})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
		assert.Equal(t, 3, rows[a.ID].StockQuantity)
		assert.Equal(t, "B", rows[b.ID].Name)
		_, ok := rows["missing"]
		assert.False(t, ok)

		empty, err := tx.Inventory().LockAndRead(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
		return nil
	})
	require.NoError(t, err)
}

func TestInventoryLedger_DecrementIsConditional(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()
	p := addProduct(t, store, "A", 2)

	err := store.Transaction(ctx, func(tx *repositories.Store) error {
		n, err := tx.Inventory().Decrement(ctx, p.ID, 3)
		require.NoError(t, err)
		assert.Zero(t, n, "never below zero")

		n, err = tx.Inventory().Decrement(ctx, p.ID, 2)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = tx.Inventory().Restore(ctx, p.ID, 5)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = tx.Inventory().Decrement(ctx, "missing", 1)
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	})
	require.NoError(t, err)

	got, err := store.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()
	p := addProduct(t, store, "A", 4)

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := tx.Inventory().Decrement(ctx, p.ID, 4); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.StockQuantity)
}

func TestIsBusy(t *testing.T) {
	assert.False(t, repositories.IsBusy(nil))
	assert.False(t, repositories.IsBusy(errors.New("syntax error")))
	assert.True(t, repositories.IsBusy(context.DeadlineExceeded))
	assert.True(t, repositories.IsBusy(fmt.Errorf("begin: %w", context.DeadlineExceeded)))
	assert.True(t, repositories.IsBusy(&pgconn.PgError{Code: "55P03"}))
	assert.True(t, repositories.IsBusy(fmt.Errorf("lock: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, repositories.IsBusy(&pgconn.PgError{Code: "23505"}))
	assert.True(t, repositories.IsBusy(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.False(t, repositories.IsBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}))
}

func TestProductStockCannotGoNegative(t *testing.T) {
	db, store := newStore(t)
	p := addProduct(t, store, "A", 1)

	err := db.Model(&models.Product{}).Where("id = ?", p.ID).Update("stock_quantity", -1).Error
	assert.Error(t, err)
}
