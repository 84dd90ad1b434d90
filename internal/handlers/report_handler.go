package handlers

import (
	"shoppingmall/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ReportHandler serves the back-office charts.
type ReportHandler struct {
	service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) RegisterRoutes(router fiber.Router) {
	reports := router.Group("/reports")
	reports.Get("/product-sales", h.HandleProductSales)
	reports.Get("/monthly-sales", h.HandleMonthlySales)
	reports.Get("/inventory-status", h.HandleInventoryStatus)
}

// HandleProductSales takes ?limit= (default 10).
func (h *ReportHandler) HandleProductSales(c *fiber.Ctx) error {
	rows, err := h.service.TopProductSales(c.UserContext(), c.QueryInt("limit", 10))
	if err != nil {
		return respondError(c, "building product sales report", err)
	}
	return ok(c, fiber.StatusOK, rows)
}

// HandleMonthlySales takes ?months= (default 12, 0 for all history).
func (h *ReportHandler) HandleMonthlySales(c *fiber.Ctx) error {
	rows, err := h.service.MonthlySales(c.UserContext(), c.QueryInt("months", 12))
	if err != nil {
		return respondError(c, "building monthly sales report", err)
	}
	return ok(c, fiber.StatusOK, rows)
}

// HandleInventoryStatus takes ?threshold= (default 10).
func (h *ReportHandler) HandleInventoryStatus(c *fiber.Ctx) error {
	rows, err := h.service.InventoryStatus(c.UserContext(), c.QueryInt("threshold", 10))
	if err != nil {
		return respondError(c, "building inventory report", err)
	}
	return ok(c, fiber.StatusOK, rows)
}
