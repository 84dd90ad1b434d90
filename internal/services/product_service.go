package services

import (
	"context"
	"errors"
	"log"

	"shoppingmall/internal/models"
	"shoppingmall/internal/repositories"

	"github.com/shopspring/decimal"
)

// ProductInput carries the editable fields of a product.
type ProductInput struct {
	Name          string          `json:"name" validate:"required,max=100"`
	Description   string          `json:"description" validate:"max=500"`
	Price         decimal.Decimal `json:"price" validate:"gte=0"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
	IsActive      *bool           `json:"is_active"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	store *repositories.Store
}

// NewProductService creates a new ProductService.
func NewProductService(store *repositories.Store) *ProductService {
	return &ProductService{store: store}
}

// GetAllProducts lists the catalog. The storefront passes activeOnly.
func (s *ProductService) GetAllProducts(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	return s.store.Products().GetAll(ctx, activeOnly)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.store.Products().GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

// CreateProduct adds a product. New products are active unless the input
// says otherwise.
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	product := &models.Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		IsActive:      in.IsActive == nil || *in.IsActive,
	}
	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct overwrites price, stock and description while holding the
// product's row lock, so it queues behind any checkout touching the product.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	var product *models.Product
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		var err error
		product, err = tx.Inventory().LockOne(ctx, id)
		if err != nil {
			return err
		}
		product.Name = in.Name
		product.Description = in.Description
		product.Price = in.Price
		product.StockQuantity = in.StockQuantity
		if in.IsActive != nil {
			product.IsActive = *in.IsActive
		}
		return tx.Products().Update(ctx, product)
	})
	if err != nil {
		return nil, productTxError(id, err)
	}
	return product, nil
}

// DeleteProduct deactivates a product. Order history keeps referring to it.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := tx.Inventory().LockOne(ctx, id); err != nil {
			return err
		}
		return tx.Products().Deactivate(ctx, id)
	})
	if err != nil {
		return productTxError(id, err)
	}
	return nil
}

func productTxError(id string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return ErrProductNotFound
	case repositories.IsBusy(err):
		log.Printf("edit of product %s aborted, database busy: %v", id, err)
		return ErrTransactionTimeout
	default:
		return err
	}
}
