package domain

import (
	"time"

	"github.com/google/uuid"
)

// CustomerReview represents a customer's review of a product
type CustomerReview struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ProductID    uuid.UUID `json:"product" db:"product_id" validate:"required"`
	CustomerName string    `json:"customer_name" db:"customer_name" validate:"required"`
	Rating       float64   `json:"rating" db:"rating" validate:"gte=1,lte=5"`
	Comment      string    `json:"comment" db:"comment"`
	Date         time.Time `json:"date" db:"date"`
}

// Validate checks the review invariants
func (r *CustomerReview) Validate() error {
	return ValidateStruct(r)
}
