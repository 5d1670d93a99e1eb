package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"catalog-api/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrReviewNotFound = fmt.Errorf("review %w", ErrNotFound)
)

const reviewColumns = `id, product_id, customer_name, rating, comment, date`

// ReviewFilter narrows a review listing
type ReviewFilter struct {
	ProductID *uuid.UUID
}

// ReviewRepository defines the interface for customer review data access
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.CustomerReview) error
	Update(ctx context.Context, review *domain.CustomerReview) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.CustomerReview, error)
	List(ctx context.Context, filter ReviewFilter) ([]*domain.CustomerReview, error)
	DeleteByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
}

type reviewRepository struct {
	db DBTX
}

// NewReviewRepository creates a new instance of ReviewRepository
func NewReviewRepository(db DBTX) ReviewRepository {
	return &reviewRepository{db: db}
}

func scanReview(row rowScanner) (*domain.CustomerReview, error) {
	review := &domain.CustomerReview{}
	err := row.Scan(
		&review.ID,
		&review.ProductID,
		&review.CustomerName,
		&review.Rating,
		&review.Comment,
		&review.Date,
	)
	if err != nil {
		return nil, err
	}
	return review, nil
}

// Create inserts a new review, assigning its ID when unset
func (r *reviewRepository) Create(ctx context.Context, review *domain.CustomerReview) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}

	query := `
		INSERT INTO customer_reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		review.ID,
		review.ProductID,
		review.CustomerName,
		review.Rating,
		review.Comment,
		review.Date,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to create review: %w", ErrInvalidReference)
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

// Update overwrites every mutable column of an existing review
func (r *reviewRepository) Update(ctx context.Context, review *domain.CustomerReview) error {
	query := `
		UPDATE customer_reviews
		SET product_id = $2, customer_name = $3, rating = $4, comment = $5, date = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		review.ID,
		review.ProductID,
		review.CustomerName,
		review.Rating,
		review.Comment,
		review.Date,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to update review: %w", ErrInvalidReference)
		}
		return fmt.Errorf("failed to update review: %w", err)
	}

	return checkRowsAffected(result, ErrReviewNotFound)
}

// Delete removes a review
func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customer_reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	return checkRowsAffected(result, ErrReviewNotFound)
}

// FindByID retrieves a review by ID
func (r *reviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.CustomerReview, error) {
	query := `SELECT ` + reviewColumns + ` FROM customer_reviews WHERE id = $1`

	review, err := scanReview(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to find review by ID: %w", err)
	}

	return review, nil
}

// List retrieves reviews, newest first
func (r *reviewRepository) List(ctx context.Context, filter ReviewFilter) ([]*domain.CustomerReview, error) {
	query := `SELECT ` + reviewColumns + ` FROM customer_reviews`
	args := []any{}

	if filter.ProductID != nil {
		query += ` WHERE product_id = $1`
		args = append(args, *filter.ProductID)
	}
	query += ` ORDER BY date DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*domain.CustomerReview{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}

// DeleteByProduct removes every review of the given product
func (r *reviewRepository) DeleteByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customer_reviews WHERE product_id = $1`, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete product reviews: %w", err)
	}
	return result.RowsAffected()
}
