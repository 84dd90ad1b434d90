package models

import "github.com/shopspring/decimal"

type ProductSales struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Price        decimal.Decimal `json:"price"`
	TotalSales   int             `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type MonthlySales struct {
	Month          string          `json:"month"` // YYYY-MM
	TotalOrders    int             `json:"total_orders"`
	TotalUnitsSold int             `json:"total_units_sold"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
}

type InventoryStatus struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	StockQuantity int    `json:"stock_quantity"`
	TotalSold     int    `json:"total_sold"`
}
