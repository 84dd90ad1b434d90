package handlers

import (
	"shoppingmall/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler serves the storefront catalog and the employee product editor.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{service: service, validate: newValidator()}
}

// RegisterRoutes registers the catalog on router. Reads are public; writes
// run behind guards.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, guards ...fiber.Handler) {
	router.Get("/", h.HandleGetProducts)
	router.Get("/:id", h.HandleGetProductByID)
	router.Post("/", guarded(guards, h.HandleCreateProduct)...)
	router.Put("/:id", guarded(guards, h.HandleUpdateProduct)...)
	router.Delete("/:id", guarded(guards, h.HandleDeleteProduct)...)
}

func guarded(guards []fiber.Handler, h fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(guards)+1)
	out = append(out, guards...)
	return append(out, h)
}

// RegisterAdminRoutes registers the back-office listing, which includes
// inactive products.
func (h *ProductHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Get("/products", h.HandleGetAllProducts)
}

func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext(), true)
	if err != nil {
		return respondError(c, "getting products", err)
	}
	return ok(c, fiber.StatusOK, products)
}

func (h *ProductHandler) HandleGetAllProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext(), false)
	if err != nil {
		return respondError(c, "getting products", err)
	}
	return ok(c, fiber.StatusOK, products)
}

// HandleGetProductByID hides inactive products from the storefront.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "getting product", err)
	}
	if !product.IsActive {
		return respondError(c, "getting product", services.ErrProductNotFound)
	}
	return ok(c, fiber.StatusOK, product)
}

func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var in services.ProductInput
	if valid, err := parseAndValidate(c, h.validate, &in); !valid {
		return err
	}
	product, err := h.service.CreateProduct(c.UserContext(), in)
	if err != nil {
		return respondError(c, "creating product", err)
	}
	return ok(c, fiber.StatusCreated, product)
}

func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var in services.ProductInput
	if valid, err := parseAndValidate(c, h.validate, &in); !valid {
		return err
	}
	id := c.Params("id")
	product, err := h.service.UpdateProduct(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, "updating product "+id, err)
	}
	return ok(c, fiber.StatusOK, product)
}

func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteProduct(c.UserContext(), id); err != nil {
		return respondError(c, "deleting product "+id, err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{"product_id": id, "is_active": false})
}
