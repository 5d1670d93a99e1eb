package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OptionalID carries a weak reference in a write. Set distinguishes an
// absent field from an explicit null (Set with a nil ID).
type OptionalID struct {
	Set bool
	ID  *uuid.UUID
}

// ProductInput holds the product fields of a write; nil fields are left as they are
type ProductInput struct {
	Name               *string
	Description        *string
	Stock              *int
	Price              *decimal.Decimal
	Image              *string
	Brand              OptionalID
	Category           OptionalID
	Attributes         *domain.Attributes
	SKU                *string
	DiscountPercentage *float64
}

// ProductView is a product with its brand and category resolved
type ProductView struct {
	Product  *domain.Product
	Brand    *domain.Brand
	Category *domain.Category
}

// ProductService defines the interface for product business logic
type ProductService interface {
	Create(ctx context.Context, input ProductInput) (*ProductView, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductView, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]*ProductView, error)
	Update(ctx context.Context, id uuid.UUID, input ProductInput) (*ProductView, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RemoveFromStock(ctx context.Context, id uuid.UUID, quantity int) (*ProductView, error)
}

type productService struct {
	repos repository.Repositories
	tx    repository.TxManager
	now   func() time.Time
}

// NewProductService creates a new instance of ProductService
func NewProductService(repos repository.Repositories, tx repository.TxManager) ProductService {
	return &productService{
		repos: repos,
		tx:    tx,
		now:   time.Now,
	}
}

// Create validates and stores a new product
func (s *productService) Create(ctx context.Context, input ProductInput) (*ProductView, error) {
	if input.Price == nil {
		return nil, domain.NewValidationError("price", "This field is required")
	}

	product := &domain.Product{Attributes: domain.Attributes{}}
	if err := s.apply(ctx, s.repos, product, input); err != nil {
		return nil, err
	}

	now := s.timestamp(time.Time{})
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.repos.Products.Create(ctx, product); err != nil {
		return nil, s.translateWriteError(err)
	}

	return s.view(ctx, product, nil)
}

// Get retrieves a product with its references expanded
func (s *productService) Get(ctx context.Context, id uuid.UUID) (*ProductView, error) {
	product, err := s.repos.Products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.view(ctx, product, nil)
}

// List retrieves products matching the filter with their references expanded
func (s *productService) List(ctx context.Context, filter repository.ProductFilter) ([]*ProductView, error) {
	products, err := s.repos.Products.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	cache := newReferenceCache()
	views := make([]*ProductView, 0, len(products))
	for _, product := range products {
		view, err := s.view(ctx, product, cache)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	return views, nil
}

// Update applies the input to an existing product and stores it. The row is
// locked from the read to the write so a concurrent stock decrement is not
// overwritten with the stock that was read.
func (s *productService) Update(ctx context.Context, id uuid.UUID, input ProductInput) (*ProductView, error) {
	var product *domain.Product
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		product, err = repos.Products.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if err := s.apply(ctx, repos, product, input); err != nil {
			return err
		}
		product.UpdatedAt = s.timestamp(product.UpdatedAt)

		if err := repos.Products.Update(ctx, product); err != nil {
			return s.translateWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.view(ctx, product, nil)
}

// Delete removes the product's reviews and then the product, in one transaction
func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Products.FindByID(ctx, id); err != nil {
			return err
		}

		if _, err := repos.Reviews.DeleteByProduct(ctx, id); err != nil {
			return &IntegrityCleanupError{Entity: "product", ID: id, Err: err}
		}

		return repos.Products.Delete(ctx, id)
	})
}

// RemoveFromStock decrements stock by quantity. The store performs the check
// and the write atomically.
func (s *productService) RemoveFromStock(ctx context.Context, id uuid.UUID, quantity int) (*ProductView, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.repos.Products.DecrementStock(ctx, id, quantity, s.timestamp(time.Time{}))
	if err != nil {
		return nil, err
	}

	return s.view(ctx, product, nil)
}

// apply copies the set fields of input onto product, resolves references and
// validates the result
func (s *productService) apply(ctx context.Context, repos repository.Repositories, product *domain.Product, input ProductInput) error {
	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Image != nil {
		product.Image = *input.Image
	}
	if input.SKU != nil {
		product.SKU = *input.SKU
	}
	if input.DiscountPercentage != nil {
		product.DiscountPercentage = *input.DiscountPercentage
	}
	if input.Attributes != nil {
		product.Attributes = append(domain.Attributes{}, (*input.Attributes)...)
	}
	product.NormalizePrice()

	var errs domain.ValidationErrors
	if input.Brand.Set {
		if err := resolveBrand(ctx, repos, input.Brand.ID); err != nil {
			if !errors.As(err, &errs) {
				return err
			}
		}
		product.BrandID = input.Brand.ID
	}
	if input.Category.Set {
		if err := resolveCategory(ctx, repos, input.Category.ID); err != nil {
			var catErrs domain.ValidationErrors
			if !errors.As(err, &catErrs) {
				return err
			}
			errs = append(errs, catErrs...)
		}
		product.CategoryID = input.Category.ID
	}

	if err := product.Validate(); err != nil {
		var fieldErrs domain.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		errs = append(errs, fieldErrs...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func resolveBrand(ctx context.Context, repos repository.Repositories, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := repos.Brands.FindByID(ctx, *id); err != nil {
		return missingReference("brand", err)
	}
	return nil
}

func resolveCategory(ctx context.Context, repos repository.Repositories, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := repos.Categories.FindByID(ctx, *id); err != nil {
		return missingReference("category", err)
	}
	return nil
}

// timestamp returns the current time at store precision, strictly after prev
func (s *productService) timestamp(prev time.Time) time.Time {
	now := s.now().UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func (s *productService) translateWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateSKU):
		return domain.NewValidationError("sku", "product with this sku already exists.")
	case errors.Is(err, repository.ErrInvalidReference):
		return domain.NewValidationError("non_field_errors", relatedObjectMissing)
	default:
		return fmt.Errorf("failed to save product: %w", err)
	}
}

type referenceCache struct {
	brands     map[uuid.UUID]*domain.Brand
	categories map[uuid.UUID]*domain.Category
}

func newReferenceCache() *referenceCache {
	return &referenceCache{
		brands:     make(map[uuid.UUID]*domain.Brand),
		categories: make(map[uuid.UUID]*domain.Category),
	}
}

// view expands the product's brand and category. A reference whose target
// has vanished renders as absent.
func (s *productService) view(ctx context.Context, product *domain.Product, cache *referenceCache) (*ProductView, error) {
	if cache == nil {
		cache = newReferenceCache()
	}
	view := &ProductView{Product: product}

	if product.BrandID != nil {
		brand, ok := cache.brands[*product.BrandID]
		if !ok {
			var err error
			brand, err = s.repos.Brands.FindByID(ctx, *product.BrandID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("failed to load product brand: %w", err)
			}
			cache.brands[*product.BrandID] = brand
		}
		view.Brand = brand
	}

	if product.CategoryID != nil {
		category, ok := cache.categories[*product.CategoryID]
		if !ok {
			var err error
			category, err = s.repos.Categories.FindByID(ctx, *product.CategoryID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("failed to load product category: %w", err)
			}
			cache.categories[*product.CategoryID] = category
		}
		view.Category = category
	}

	return view, nil
}
