package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricePlaces is the number of decimal places a price is stored with
const PricePlaces = 2

// Price magnitude limits. priceMaxScale bounds the fractional digits a price
// may be written with before it is rounded.
const (
	priceMaxIntegerDigits   = 10
	priceMaxScale           = 30
	priceMaxCoefficientBits = 160
)

// MaxPrice is the largest price the products.price column can hold
var MaxPrice = decimal.RequireFromString("9999999999.99")

// PriceRepresentable reports whether d is small enough in magnitude and
// precision to be rounded and compared without building huge intermediates.
// It only inspects the exponent and the coefficient length.
func PriceRepresentable(d decimal.Decimal) bool {
	exp := int(d.Exponent())
	if exp > priceMaxIntegerDigits || exp < -priceMaxScale {
		return false
	}
	if d.Coefficient().BitLen() > priceMaxCoefficientBits {
		return false
	}
	return d.NumDigits()+exp <= priceMaxIntegerDigits+1
}

// Category represents a product category
type Category struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name" validate:"required,max=255"`
}

// Validate checks the category invariants
func (c *Category) Validate() error {
	return ValidateStruct(c)
}

// Brand represents a product brand
type Brand struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name" validate:"required,max=255"`
}

// Validate checks the brand invariants
func (b *Brand) Validate() error {
	return ValidateStruct(b)
}

// ProductAttribute is a key/value pair owned by a product
type ProductAttribute struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// Attributes is the ordered attribute sequence of a product. It is persisted
// inline with the product as a JSON array.
type Attributes []ProductAttribute

// Value implements driver.Valuer
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner
func (a *Attributes) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*a = Attributes{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported attributes column type")
	}

	attrs := Attributes{}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return fmt.Errorf("failed to unmarshal attributes: %w", err)
	}
	*a = attrs
	return nil
}

// Product represents a product in the catalog. Brand and category are weak
// references: a nil ID means the product has none.
type Product struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	Name               string          `json:"name" db:"name" validate:"required,max=255"`
	Description        string          `json:"description" db:"description"`
	Stock              int             `json:"stock" db:"stock" validate:"gte=0"`
	Price              decimal.Decimal `json:"price" db:"price"`
	Image              string          `json:"image" db:"image" validate:"required,url"`
	BrandID            *uuid.UUID      `json:"brand" db:"brand_id"`
	CategoryID         *uuid.UUID      `json:"category" db:"category_id"`
	Attributes         Attributes      `json:"attributes" db:"attributes" validate:"dive"`
	SKU                string          `json:"sku" db:"sku" validate:"required,max=100"`
	DiscountPercentage float64         `json:"discount_percentage" db:"discount_percentage" validate:"gte=0,lte=100"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// Available reports whether the product has stock left
func (p *Product) Available() bool {
	return p.Stock > 0
}

// DiscountedPrice returns the price after applying the discount percentage
func (p *Product) DiscountedPrice() decimal.Decimal {
	if p.DiscountPercentage > 0 {
		factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(p.DiscountPercentage).Div(decimal.NewFromInt(100)))
		return p.Price.Mul(factor)
	}
	return p.Price
}

// NormalizePrice rounds the price to the stored precision. A price that is
// not representable is left for Validate to reject.
func (p *Product) NormalizePrice() {
	if !PriceRepresentable(p.Price) {
		return
	}
	p.Price = p.Price.Round(PricePlaces)
}

// Validate checks the product invariants
func (p *Product) Validate() error {
	var errs ValidationErrors
	if err := ValidateStruct(p); err != nil {
		if !errors.As(err, &errs) {
			return err
		}
	}

	switch {
	case !PriceRepresentable(p.Price):
		errs = append(errs, ValidationError{Field: "price", Message: "A valid number is required"})
	case p.Price.IsNegative():
		errs = append(errs, ValidationError{Field: "price", Message: "Ensure this value is greater than or equal to 0"})
	case p.Price.GreaterThan(MaxPrice):
		errs = append(errs, ValidationError{Field: "price", Message: "Ensure this value is less than or equal to " + MaxPrice.StringFixed(PricePlaces)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
