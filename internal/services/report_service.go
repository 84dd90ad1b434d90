package services

import (
	"context"
	"sort"
	"time"

	"shoppingmall/internal/models"
	"shoppingmall/internal/repositories"

	"github.com/shopspring/decimal"
)

// ReportService builds the back-office sales charts.
type ReportService struct {
	store *repositories.Store
	loc   *time.Location
	now   func() time.Time
}

func NewReportService(store *repositories.Store, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{store: store, loc: loc, now: time.Now}
}

// TopProductSales ranks products by units sold, excluding cancelled orders.
func (s *ReportService) TopProductSales(ctx context.Context, limit int) ([]models.ProductSales, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.store.Reports().TopProductSales(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].TotalRevenue = rows[i].TotalRevenue.Round(2)
	}
	return rows, nil
}

// MonthlySales totals completed orders per calendar month of the store's
// timezone. months > 0 keeps only the most recent months, counted back
// from the current one.
func (s *ReportService) MonthlySales(ctx context.Context, months int) ([]models.MonthlySales, error) {
	lines, err := s.store.Reports().SaleLines(ctx, models.OrderStatusCompleted)
	if err != nil {
		return nil, err
	}

	cutoff := ""
	if months > 0 {
		now := s.now().In(s.loc)
		cutoff = time.Date(now.Year(), now.Month()-time.Month(months-1), 1, 0, 0, 0, 0, s.loc).Format("2006-01")
	}

	byMonth := make(map[string]*models.MonthlySales)
	seen := make(map[string]struct{})
	for _, l := range lines {
		month := l.CreatedAt.In(s.loc).Format("2006-01")
		if month < cutoff {
			continue
		}
		m, ok := byMonth[month]
		if !ok {
			m = &models.MonthlySales{Month: month, TotalRevenue: decimal.Zero}
			byMonth[month] = m
		}
		if _, dup := seen[l.OrderID]; !dup {
			seen[l.OrderID] = struct{}{}
			m.TotalOrders++
		}
		m.TotalUnitsSold += l.Quantity
		m.TotalRevenue = m.TotalRevenue.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	out := make([]models.MonthlySales, 0, len(byMonth))
	for _, m := range byMonth {
		m.TotalRevenue = m.TotalRevenue.Round(2)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// InventoryStatus lists active products with fewer than threshold units.
func (s *ReportService) InventoryStatus(ctx context.Context, threshold int) ([]models.InventoryStatus, error) {
	if threshold <= 0 {
		threshold = 10
	}
	return s.store.Reports().LowStock(ctx, threshold)
}
