package service

import (
	"context"
	"fmt"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository"

	"github.com/google/uuid"
)

// CategoryService defines the interface for category business logic
type CategoryService interface {
	Create(ctx context.Context, name string) (*domain.Category, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
	Update(ctx context.Context, id uuid.UUID, name *string) (*domain.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryService struct {
	repos repository.Repositories
	tx    repository.TxManager
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(repos repository.Repositories, tx repository.TxManager) CategoryService {
	return &categoryService{repos: repos, tx: tx}
}

func (s *categoryService) Create(ctx context.Context, name string) (*domain.Category, error) {
	category := &domain.Category{Name: name}
	if err := category.Validate(); err != nil {
		return nil, err
	}

	if err := s.repos.Categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return category, nil
}

func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.repos.Categories.FindByID(ctx, id)
}

func (s *categoryService) List(ctx context.Context) ([]*domain.Category, error) {
	return s.repos.Categories.List(ctx)
}

func (s *categoryService) Update(ctx context.Context, id uuid.UUID, name *string) (*domain.Category, error) {
	category, err := s.repos.Categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != nil {
		category.Name = *name
	}
	if err := category.Validate(); err != nil {
		return nil, err
	}

	if err := s.repos.Categories.Update(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// Delete unsets the category on every referencing product and removes it,
// all in one transaction.
func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Categories.FindByID(ctx, id); err != nil {
			return err
		}

		if _, err := repos.Products.ClearCategory(ctx, id); err != nil {
			return &IntegrityCleanupError{Entity: "category", ID: id, Err: err}
		}

		return repos.Categories.Delete(ctx, id)
	})
}
