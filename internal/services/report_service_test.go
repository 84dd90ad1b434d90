package services_test

import (
	"context"
	"testing"
	"time"

	"shoppingmall/internal/models"
	"shoppingmall/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportService(t *testing.T) {
	db, store := newTestDB(t)
	ctx := context.Background()

	clock := time.Date(2024, 3, 10, 12, 0, 0, 0, taipei)
	orders := services.NewOrderService(store, nil, nil, services.OrderOptions{
		Location:             taipei,
		RestoreStockOnCancel: true,
		Now:                  func() time.Time { return clock },
	})
	reports := services.NewReportService(store, taipei)

	pen := seedProduct(t, db, "Pen", "2.50", 100)
	ink := seedProduct(t, db, "Ink", "6", 8)
	seedProduct(t, db, "Paper", "1", 3)

	_, feb := placeOrder(t, db, store, orders, "ann", pen, 4) // completed in Feb
	clock = time.Date(2024, 3, 1, 0, 30, 0, 0, taipei)        // still Feb in UTC
	_, mar1 := placeOrder(t, db, store, orders, "ben", ink, 2)
	_, mar2 := placeOrder(t, db, store, orders, "cat", pen, 1)
	_, gone := placeOrder(t, db, store, orders, "dan", ink, 3)
	placeOrder(t, db, store, orders, "eve", pen, 10) // stays pending

	// move the first order back into February
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", feb).
		Update("created_at", time.Date(2024, 2, 20, 9, 0, 0, 0, taipei)).Error)
	for _, id := range []string{feb, mar1, mar2} {
		_, err := orders.UpdateOrderStatus(ctx, id, models.OrderStatusCompleted)
		require.NoError(t, err)
	}
	_, err := orders.UpdateOrderStatus(ctx, gone, models.OrderStatusCancelled)
	require.NoError(t, err)

	t.Run("top product sales", func(t *testing.T) {
		top, err := reports.TopProductSales(ctx, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "Pen", top[0].ProductName)
		assert.Equal(t, 15, top[0].TotalSales) // 4 + 1 + 10 pending
		assert.Equal(t, "37.50", top[0].TotalRevenue.StringFixed(2))
		assert.Equal(t, "Ink", top[1].ProductName)
		assert.Equal(t, 2, top[1].TotalSales, "cancelled orders do not count")
	})

	t.Run("monthly sales", func(t *testing.T) {
		months, err := reports.MonthlySales(ctx, 0)
		require.NoError(t, err)
		require.Len(t, months, 2)

		assert.Equal(t, "2024-02", months[0].Month)
		assert.Equal(t, 1, months[0].TotalOrders)
		assert.Equal(t, 4, months[0].TotalUnitsSold)
		assert.Equal(t, "10.00", months[0].TotalRevenue.StringFixed(2))

		assert.Equal(t, "2024-03", months[1].Month)
		assert.Equal(t, 2, months[1].TotalOrders)
		assert.Equal(t, 3, months[1].TotalUnitsSold)
		assert.Equal(t, "14.50", months[1].TotalRevenue.StringFixed(2))
	})

	t.Run("inventory status", func(t *testing.T) {
		low, err := reports.InventoryStatus(ctx, 10)
		require.NoError(t, err)
		require.Len(t, low, 2)
		assert.Equal(t, "Paper", low[0].ProductName)
		assert.Equal(t, 3, low[0].StockQuantity)
		assert.Equal(t, "Ink", low[1].ProductName)
		assert.Equal(t, 6, low[1].StockQuantity) // 8 - 2, the cancelled 3 went back
		assert.Zero(t, low[0].TotalSold)
		assert.Equal(t, 2, low[1].TotalSold, "cancelled orders do not count")
	})
}
