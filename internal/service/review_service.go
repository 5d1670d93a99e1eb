package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository"

	"github.com/google/uuid"
)

// ReviewInput holds the review fields of a write; nil fields are left as they are
type ReviewInput struct {
	ProductID    *uuid.UUID
	CustomerName *string
	Rating       *float64
	Comment      *string
	Date         *time.Time
}

// ReviewService defines the interface for customer review business logic
type ReviewService interface {
	Create(ctx context.Context, input ReviewInput) (*domain.CustomerReview, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.CustomerReview, error)
	List(ctx context.Context, filter repository.ReviewFilter) ([]*domain.CustomerReview, error)
	Update(ctx context.Context, id uuid.UUID, input ReviewInput) (*domain.CustomerReview, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type reviewService struct {
	repos repository.Repositories
	now   func() time.Time
}

// NewReviewService creates a new instance of ReviewService
func NewReviewService(repos repository.Repositories) ReviewService {
	return &reviewService{
		repos: repos,
		now:   time.Now,
	}
}

// Create stores a new review. The date defaults to the current time.
func (s *reviewService) Create(ctx context.Context, input ReviewInput) (*domain.CustomerReview, error) {
	review := &domain.CustomerReview{
		Date: s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.apply(ctx, review, input); err != nil {
		return nil, err
	}

	if err := s.repos.Reviews.Create(ctx, review); err != nil {
		return nil, translateReviewWriteError(err)
	}

	return review, nil
}

func (s *reviewService) Get(ctx context.Context, id uuid.UUID) (*domain.CustomerReview, error) {
	return s.repos.Reviews.FindByID(ctx, id)
}

func (s *reviewService) List(ctx context.Context, filter repository.ReviewFilter) ([]*domain.CustomerReview, error) {
	return s.repos.Reviews.List(ctx, filter)
}

func (s *reviewService) Update(ctx context.Context, id uuid.UUID, input ReviewInput) (*domain.CustomerReview, error) {
	review, err := s.repos.Reviews.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, review, input); err != nil {
		return nil, err
	}

	if err := s.repos.Reviews.Update(ctx, review); err != nil {
		return nil, translateReviewWriteError(err)
	}

	return review, nil
}

func (s *reviewService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repos.Reviews.Delete(ctx, id)
}

func (s *reviewService) apply(ctx context.Context, review *domain.CustomerReview, input ReviewInput) error {
	var errs domain.ValidationErrors

	if input.ProductID != nil {
		if _, err := s.repos.Products.FindByID(ctx, *input.ProductID); err != nil {
			if err := missingReference("product", err); !errors.As(err, &errs) {
				return err
			}
		}
		review.ProductID = *input.ProductID
	}
	if input.CustomerName != nil {
		review.CustomerName = *input.CustomerName
	}
	if input.Rating != nil {
		review.Rating = *input.Rating
	}
	if input.Comment != nil {
		review.Comment = *input.Comment
	}
	if input.Date != nil {
		review.Date = input.Date.UTC().Truncate(time.Microsecond)
	}

	if err := review.Validate(); err != nil {
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

func translateReviewWriteError(err error) error {
	if errors.Is(err, repository.ErrInvalidReference) {
		return domain.NewValidationError("product", relatedObjectMissing)
	}
	return fmt.Errorf("failed to save review: %w", err)
}
