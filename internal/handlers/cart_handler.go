package handlers

import (
	"shoppingmall/internal/middleware"
	"shoppingmall/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler exposes the caller's own cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{service: service, validate: newValidator()}
}

// RegisterRoutes registers the cart routes. router must already be
// authenticated.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/items", h.HandleListItems)
	router.Post("/add", h.HandleAdd)
	router.Put("/update", h.HandleUpdate)
	router.Delete("/remove/:productId", h.HandleRemove)
	router.Delete("/clear", h.HandleClear)
}

// CartLineRequest is the body of add and update.
type CartLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

func (h *CartHandler) HandleListItems(c *fiber.Ctx) error {
	lines, err := h.service.ListLines(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, "listing cart", err)
	}
	return ok(c, fiber.StatusOK, lines)
}

func (h *CartHandler) HandleAdd(c *fiber.Ctx) error {
	var req CartLineRequest
	if valid, err := parseAndValidate(c, h.validate, &req); !valid {
		return err
	}
	if err := h.service.AddLine(c.UserContext(), middleware.UserID(c), req.ProductID, req.Quantity); err != nil {
		return respondError(c, "adding to cart", err)
	}
	return ok(c, fiber.StatusOK, req)
}

func (h *CartHandler) HandleUpdate(c *fiber.Ctx) error {
	var req CartLineRequest
	if valid, err := parseAndValidate(c, h.validate, &req); !valid {
		return err
	}
	if err := h.service.UpdateLineQuantity(c.UserContext(), middleware.UserID(c), req.ProductID, req.Quantity); err != nil {
		return respondError(c, "updating cart", err)
	}
	return ok(c, fiber.StatusOK, req)
}

func (h *CartHandler) HandleRemove(c *fiber.Ctx) error {
	productID := c.Params("productId")
	if err := h.service.RemoveLine(c.UserContext(), middleware.UserID(c), productID); err != nil {
		return respondError(c, "removing from cart", err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{"product_id": productID})
}

func (h *CartHandler) HandleClear(c *fiber.Ctx) error {
	if err := h.service.Clear(c.UserContext(), middleware.UserID(c)); err != nil {
		return respondError(c, "clearing cart", err)
	}
	return ok(c, fiber.StatusOK, nil)
}
