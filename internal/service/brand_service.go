package service

import (
	"context"
	"fmt"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository"

	"github.com/google/uuid"
)

// BrandService defines the interface for brand business logic
type BrandService interface {
	Create(ctx context.Context, name string) (*domain.Brand, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Brand, error)
	List(ctx context.Context) ([]*domain.Brand, error)
	Update(ctx context.Context, id uuid.UUID, name *string) (*domain.Brand, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type brandService struct {
	repos repository.Repositories
	tx    repository.TxManager
}

// NewBrandService creates a new instance of BrandService
func NewBrandService(repos repository.Repositories, tx repository.TxManager) BrandService {
	return &brandService{repos: repos, tx: tx}
}

func (s *brandService) Create(ctx context.Context, name string) (*domain.Brand, error) {
	brand := &domain.Brand{Name: name}
	if err := brand.Validate(); err != nil {
		return nil, err
	}

	if err := s.repos.Brands.Create(ctx, brand); err != nil {
		return nil, fmt.Errorf("failed to create brand: %w", err)
	}

	return brand, nil
}

func (s *brandService) Get(ctx context.Context, id uuid.UUID) (*domain.Brand, error) {
	return s.repos.Brands.FindByID(ctx, id)
}

func (s *brandService) List(ctx context.Context) ([]*domain.Brand, error) {
	return s.repos.Brands.List(ctx)
}

func (s *brandService) Update(ctx context.Context, id uuid.UUID, name *string) (*domain.Brand, error) {
	brand, err := s.repos.Brands.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != nil {
		brand.Name = *name
	}
	if err := brand.Validate(); err != nil {
		return nil, err
	}

	if err := s.repos.Brands.Update(ctx, brand); err != nil {
		return nil, err
	}

	return brand, nil
}

// Delete unsets the brand on every referencing product and removes it,
// all in one transaction.
func (s *brandService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Brands.FindByID(ctx, id); err != nil {
			return err
		}

		if _, err := repos.Products.ClearBrand(ctx, id); err != nil {
			return &IntegrityCleanupError{Entity: "brand", ID: id, Err: err}
		}

		return repos.Brands.Delete(ctx, id)
	})
}
