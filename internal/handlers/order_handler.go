package handlers

import (
	"shoppingmall/internal/middleware"
	"shoppingmall/internal/models"
	"shoppingmall/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{service: service, validate: newValidator()}
}

// RegisterRoutes registers the member order routes. router must already be
// authenticated.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/", h.HandleCreateOrder)
	router.Get("/mine", h.HandleGetMyOrders)
	router.Get("/:id", h.HandleGetMyOrder)
	router.Put("/:id/cancel", h.HandleCancelOrder)
}

// RegisterAdminRoutes registers the back-office order routes.
func (h *OrderHandler) RegisterAdminRoutes(router fiber.Router) {
	orders := router.Group("/orders")
	orders.Get("/", h.HandleGetOrders)
	orders.Get("/search", h.HandleSearchOrders)
	orders.Get("/:id", h.HandleGetOrder)
	orders.Put("/:id/status", h.HandleUpdateOrderStatus)
}

// HandleCreateOrder checks out the caller's cart. The request has no body.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	result, err := h.service.CreateOrder(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, "creating order", err)
	}
	return ok(c, fiber.StatusOK, result)
}

func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListMemberOrders(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, "listing member orders", err)
	}
	return ok(c, fiber.StatusOK, orders)
}

func (h *OrderHandler) HandleGetMyOrder(c *fiber.Ctx) error {
	order, err := h.service.GetMemberOrder(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, "getting member order", err)
	}
	return ok(c, fiber.StatusOK, order)
}

func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	order, err := h.service.CancelOrder(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, "cancelling order", err)
	}
	return ok(c, fiber.StatusOK, order)
}

func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext())
	if err != nil {
		return respondError(c, "listing orders", err)
	}
	return ok(c, fiber.StatusOK, orders)
}

// HandleSearchOrders accepts order_id and/or username query parameters.
func (h *OrderHandler) HandleSearchOrders(c *fiber.Ctx) error {
	orderID := c.Query("order_id")
	username := c.Query("username")
	if orderID == "" && username == "" {
		return fail(c, fiber.StatusBadRequest, "order_id or username is required")
	}
	orders, err := h.service.SearchOrders(c.UserContext(), orderID, username)
	if err != nil {
		return respondError(c, "searching orders", err)
	}
	return ok(c, fiber.StatusOK, orders)
}

func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "getting order", err)
	}
	return ok(c, fiber.StatusOK, order)
}

// StatusRequest is the body of a status change.
type StatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if valid, err := parseAndValidate(c, h.validate, &req); !valid {
		return err
	}
	order, err := h.service.UpdateOrderStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return respondError(c, "updating order status", err)
	}
	return ok(c, fiber.StatusOK, order)
}
