package transport

import (
	"bytes"
	"encoding/json"
	"time"

	"catalog-api/internal/domain"
	"catalog-api/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var jsonNull = []byte("null")

// NamedRequest is the payload for categories and brands
type NamedRequest struct {
	Name *string `json:"name" validate:"required"`
}

// ProductRequest is the payload for product writes. Brand, category and
// price stay raw so that absent, null and malformed values can be told apart.
type ProductRequest struct {
	Name               *string            `json:"name" validate:"required"`
	Description        *string            `json:"description"`
	Stock              *int               `json:"stock"`
	Price              json.RawMessage    `json:"price" validate:"required"`
	Image              *string            `json:"image" validate:"required"`
	Brand              json.RawMessage    `json:"brand"`
	Category           json.RawMessage    `json:"category"`
	Attributes         *domain.Attributes `json:"attributes"`
	SKU                *string            `json:"sku" validate:"required"`
	DiscountPercentage *float64           `json:"discount_percentage"`
}

// toInput converts the request into a service write. A full write resets
// every absent optional field except attributes to its default.
func (req *ProductRequest) toInput(full bool) (service.ProductInput, error) {
	var errs domain.ValidationErrors
	input := service.ProductInput{
		Name:               req.Name,
		Description:        req.Description,
		Stock:              req.Stock,
		Image:              req.Image,
		Attributes:         req.Attributes,
		SKU:                req.SKU,
		DiscountPercentage: req.DiscountPercentage,
	}

	price, fieldErrs := parsePrice(req.Price)
	errs = append(errs, fieldErrs...)
	input.Price = price

	brand, fieldErrs := parseOptionalID("brand", req.Brand)
	errs = append(errs, fieldErrs...)
	input.Brand = brand

	category, fieldErrs := parseOptionalID("category", req.Category)
	errs = append(errs, fieldErrs...)
	input.Category = category

	if len(errs) > 0 {
		return service.ProductInput{}, errs
	}

	if full {
		if input.Description == nil {
			input.Description = new(string)
		}
		if input.Stock == nil {
			input.Stock = new(int)
		}
		if input.DiscountPercentage == nil {
			input.DiscountPercentage = new(float64)
		}
		input.Brand.Set = true
		input.Category.Set = true
	}

	return input, nil
}

func parsePrice(raw json.RawMessage) (*decimal.Decimal, domain.ValidationErrors) {
	if len(raw) == 0 {
		return nil, nil
	}
	if bytes.Equal(raw, jsonNull) {
		return nil, domain.NewValidationError("price", "This field may not be null")
	}

	var price decimal.Decimal
	if err := price.UnmarshalJSON(raw); err != nil || !domain.PriceRepresentable(price) {
		return nil, domain.NewValidationError("price", "A valid number is required")
	}
	return &price, nil
}

func parseOptionalID(field string, raw json.RawMessage) (service.OptionalID, domain.ValidationErrors) {
	if len(raw) == 0 {
		return service.OptionalID{}, nil
	}
	if bytes.Equal(raw, jsonNull) {
		return service.OptionalID{Set: true}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return service.OptionalID{}, domain.NewValidationError(field, "Incorrect type. Expected an identifier")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return service.OptionalID{}, domain.NewValidationError(field, "Related object does not exist")
	}
	return service.OptionalID{Set: true, ID: &id}, nil
}

// StockRequest is the payload of the remove_from_stock action
type StockRequest struct {
	Quantity int `json:"quantity"`
}

// ReviewRequest is the payload for review writes
type ReviewRequest struct {
	Product      *string    `json:"product" validate:"required"`
	CustomerName *string    `json:"customer_name" validate:"required"`
	Rating       *float64   `json:"rating" validate:"required"`
	Comment      *string    `json:"comment"`
	Date         *time.Time `json:"date"`
}

func (req *ReviewRequest) toInput(full bool) (service.ReviewInput, error) {
	input := service.ReviewInput{
		CustomerName: req.CustomerName,
		Rating:       req.Rating,
		Comment:      req.Comment,
		Date:         req.Date,
	}

	if req.Product != nil {
		id, err := uuid.Parse(*req.Product)
		if err != nil {
			return service.ReviewInput{}, domain.NewValidationError("product", "Related object does not exist")
		}
		input.ProductID = &id
	}

	if full && input.Comment == nil {
		input.Comment = new(string)
	}

	return input, nil
}

// RefResponse is the embedded form of a category or brand
type RefResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func categoryResponse(c *domain.Category) RefResponse {
	return RefResponse{ID: c.ID.String(), Name: c.Name}
}

func brandResponse(b *domain.Brand) RefResponse {
	return RefResponse{ID: b.ID.String(), Name: b.Name}
}

// ProductResponse is the read representation of a product. Brand and
// category are null when the product has none.
type ProductResponse struct {
	ID                 string                    `json:"id"`
	Name               string                    `json:"name"`
	Description        string                    `json:"description"`
	Stock              int                       `json:"stock"`
	Available          bool                      `json:"available"`
	Price              string                    `json:"price"`
	DiscountedPrice    string                    `json:"discounted_price"`
	Image              string                    `json:"image"`
	Brand              *RefResponse              `json:"brand"`
	Category           *RefResponse              `json:"category"`
	Attributes         []domain.ProductAttribute `json:"attributes"`
	SKU                string                    `json:"sku"`
	DiscountPercentage float64                   `json:"discount_percentage"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

func productResponse(view *service.ProductView) ProductResponse {
	p := view.Product

	attributes := []domain.ProductAttribute(p.Attributes)
	if attributes == nil {
		attributes = []domain.ProductAttribute{}
	}

	resp := ProductResponse{
		ID:                 p.ID.String(),
		Name:               p.Name,
		Description:        p.Description,
		Stock:              p.Stock,
		Available:          p.Available(),
		Price:              p.Price.StringFixed(domain.PricePlaces),
		DiscountedPrice:    p.DiscountedPrice().StringFixed(domain.PricePlaces),
		Image:              p.Image,
		Attributes:         attributes,
		SKU:                p.SKU,
		DiscountPercentage: p.DiscountPercentage,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if view.Brand != nil {
		ref := brandResponse(view.Brand)
		resp.Brand = &ref
	}
	if view.Category != nil {
		ref := categoryResponse(view.Category)
		resp.Category = &ref
	}
	return resp
}

// ReviewResponse is the read representation of a review. Product is the
// identifier of the reviewed product.
type ReviewResponse struct {
	ID           string    `json:"id"`
	Product      string    `json:"product"`
	CustomerName string    `json:"customer_name"`
	Rating       float64   `json:"rating"`
	Comment      string    `json:"comment"`
	Date         time.Time `json:"date"`
}

func reviewResponse(r *domain.CustomerReview) ReviewResponse {
	return ReviewResponse{
		ID:           r.ID.String(),
		Product:      r.ProductID.String(),
		CustomerName: r.CustomerName,
		Rating:       r.Rating,
		Comment:      r.Comment,
		Date:         r.Date,
	}
}
