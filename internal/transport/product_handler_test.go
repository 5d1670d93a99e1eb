package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProductWithoutReferences(t *testing.T) {
	api := newTestAPI(t)

	product := api.createProduct(map[string]any{"stock": 3})

	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "19.99", product.Price)
	assert.Equal(t, "19.99", product.DiscountedPrice)
	assert.True(t, product.Available)
	assert.Nil(t, product.Brand)
	assert.Nil(t, product.Category)
	assert.Empty(t, product.Attributes)
	assert.Equal(t, product.CreatedAt, product.UpdatedAt)
}

func TestCreateProductExpandsReferences(t *testing.T) {
	api := newTestAPI(t)
	brand := api.createNamed("brands", "Acme")
	category := api.createNamed("categories", "Books")

	product := api.createProduct(map[string]any{
		"brand":               brand.ID,
		"category":            category.ID,
		"price":               100,
		"discount_percentage": 15,
		"attributes":          []map[string]string{{"key": "color", "value": "red"}},
	})

	require.NotNil(t, product.Brand)
	require.NotNil(t, product.Category)
	assert.Equal(t, brand, *product.Brand)
	assert.Equal(t, category, *product.Category)
	assert.Equal(t, "100.00", product.Price)
	assert.Equal(t, "85.00", product.DiscountedPrice)
	assert.False(t, product.Available)
	require.Len(t, product.Attributes, 1)
	assert.Equal(t, "color", product.Attributes[0].Key)
}

func TestCreateProductValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{
			name:  "missing name",
			body:  map[string]any{"price": "1.00", "image": "https://cdn.example.com/a.png", "sku": "X"},
			field: "name",
		},
		{
			name:  "null price",
			body:  map[string]any{"name": "A", "price": nil, "image": "https://cdn.example.com/a.png", "sku": "X"},
			field: "price",
		},
		{
			name:  "non numeric price",
			body:  map[string]any{"name": "A", "price": "cheap", "image": "https://cdn.example.com/a.png", "sku": "X"},
			field: "price",
		},
		{
			name:  "negative stock",
			body:  map[string]any{"name": "A", "price": "1.00", "image": "https://cdn.example.com/a.png", "sku": "X", "stock": -1},
			field: "stock",
		},
		{
			name:  "invalid image url",
			body:  map[string]any{"name": "A", "price": "1.00", "image": "not a url", "sku": "X"},
			field: "image",
		},
		{
			name:  "discount over 100",
			body:  map[string]any{"name": "A", "price": "1.00", "image": "https://cdn.example.com/a.png", "sku": "X", "discount_percentage": 120},
			field: "discount_percentage",
		},
		{
			name:  "unknown brand",
			body:  map[string]any{"name": "A", "price": "1.00", "image": "https://cdn.example.com/a.png", "sku": "X", "brand": uuid.NewString()},
			field: "brand",
		},
		{
			name:  "malformed category",
			body:  map[string]any{"name": "A", "price": "1.00", "image": "https://cdn.example.com/a.png", "sku": "X", "category": "books"},
			field: "category",
		},
		{
			name:  "stock of the wrong type",
			body:  map[string]any{"name": "A", "price": "1.00", "image": "https://cdn.example.com/a.png", "sku": "X", "stock": "many"},
			field: "stock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.requireFieldError(api.do(http.MethodPost, "/api/v1/products", tt.body), tt.field)
		})
	}
}

func TestCreateProductPriceOutOfRange(t *testing.T) {
	tests := []struct {
		name    string
		price   any
		message string
	}{
		{"huge exponent string", "1e100000000", "A valid number is required"},
		{"huge exponent number", json.RawMessage(`1e100000000`), "A valid number is required"},
		{"tiny exponent", "1e-100000000", "A valid number is required"},
		{"above column range", "12345678901.00", "Ensure this value is less than or equal to 9999999999.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)

			done := make(chan *httptest.ResponseRecorder, 1)
			go func() {
				done <- api.rawDo(http.MethodPost, "/api/v1/products", map[string]any{
					"name":  "Widget",
					"price": tt.price,
					"image": "https://cdn.example.com/widget.png",
					"sku":   "BIG",
				})
			}()

			var w *httptest.ResponseRecorder
			select {
			case w = <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("request did not complete")
			}

			body := api.requireError(w, http.StatusBadRequest, "validation failed")
			require.Len(t, body.Error.Details.ValidationErrors, 1)
			assert.Equal(t, "price", body.Error.Details.ValidationErrors[0].Field)
			assert.Equal(t, tt.message, body.Error.Details.ValidationErrors[0].Message)
		})
	}

	t.Run("patch", func(t *testing.T) {
		api := newTestAPI(t)
		product := api.createProduct(nil)

		w := api.do(http.MethodPatch, "/api/v1/products/"+product.ID, map[string]any{"price": "9e99999999"})
		api.requireFieldError(w, "price")

		var current ProductResponse
		api.decode(api.do(http.MethodGet, "/api/v1/products/"+product.ID, nil), http.StatusOK, &current)
		assert.Equal(t, "19.99", current.Price)
	})
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	api := newTestAPI(t)
	api.createProduct(map[string]any{"sku": "DUP"})

	w := api.do(http.MethodPost, "/api/v1/products", map[string]any{
		"name":  "Other",
		"price": "5.00",
		"image": "https://cdn.example.com/other.png",
		"sku":   "DUP",
	})
	api.requireFieldError(w, "sku")
}

func TestCreateProductMalformedBody(t *testing.T) {
	api := newTestAPI(t)
	api.requireError(api.do(http.MethodPost, "/api/v1/products", `{"name":`), http.StatusBadRequest, "invalid request body")
}

func TestGetProductNotFound(t *testing.T) {
	api := newTestAPI(t)

	api.requireError(api.do(http.MethodGet, "/api/v1/products/"+uuid.NewString(), nil), http.StatusNotFound, "product not found")
	api.requireError(api.do(http.MethodGet, "/api/v1/products/not-a-uuid", nil), http.StatusNotFound, "product not found")
}

func TestListProductsFilters(t *testing.T) {
	api := newTestAPI(t)
	acme := api.createNamed("brands", "Acme")
	books := api.createNamed("categories", "Books")

	api.createProduct(map[string]any{"sku": "A", "brand": acme.ID})
	api.createProduct(map[string]any{"sku": "B", "category": books.ID})
	api.createProduct(map[string]any{"sku": "C"})

	var all []ProductResponse
	api.decode(api.do(http.MethodGet, "/api/v1/products", nil), http.StatusOK, &all)
	assert.Len(t, all, 3)

	var byBrand []ProductResponse
	api.decode(api.do(http.MethodGet, "/api/v1/products?brand="+acme.ID, nil), http.StatusOK, &byBrand)
	require.Len(t, byBrand, 1)
	assert.Equal(t, "A", byBrand[0].SKU)

	var byCategory []ProductResponse
	api.decode(api.do(http.MethodGet, "/api/v1/products?category="+books.ID, nil), http.StatusOK, &byCategory)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "B", byCategory[0].SKU)

	api.requireFieldError(api.do(http.MethodGet, "/api/v1/products?brand=acme", nil), "brand")
}

func TestReplaceAndPatchProduct(t *testing.T) {
	api := newTestAPI(t)
	brand := api.createNamed("brands", "Acme")
	product := api.createProduct(map[string]any{
		"description": "Original",
		"stock":       9,
		"brand":       brand.ID,
	})
	path := "/api/v1/products/" + product.ID

	var patched ProductResponse
	api.decode(api.do(http.MethodPatch, path, map[string]any{"name": "Renamed"}), http.StatusOK, &patched)
	assert.Equal(t, "Renamed", patched.Name)
	assert.Equal(t, "Original", patched.Description)
	assert.Equal(t, 9, patched.Stock)
	require.NotNil(t, patched.Brand)
	assert.True(t, patched.UpdatedAt.After(product.UpdatedAt))

	// a full replacement drops the optional fields that were left out
	var replaced ProductResponse
	api.decode(api.do(http.MethodPut, path, map[string]any{
		"name":  "Replaced",
		"price": "7.50",
		"image": "https://cdn.example.com/replaced.png",
		"sku":   "A1",
	}), http.StatusOK, &replaced)
	assert.Equal(t, "Replaced", replaced.Name)
	assert.Equal(t, "", replaced.Description)
	assert.Equal(t, 0, replaced.Stock)
	assert.Nil(t, replaced.Brand)
	assert.Equal(t, "7.50", replaced.Price)

	api.requireFieldError(api.do(http.MethodPut, path, map[string]any{"name": "Only a name"}), "sku")
	api.requireError(api.do(http.MethodPatch, "/api/v1/products/"+uuid.NewString(), map[string]any{"name": "x"}), http.StatusNotFound, "product not found")
}

func TestRemoveFromStockScenario(t *testing.T) {
	api := newTestAPI(t)
	product := api.createProduct(map[string]any{"stock": 10})
	path := "/api/v1/products/" + product.ID + "/remove_from_stock"

	var updated ProductResponse
	api.decode(api.do(http.MethodPatch, path, map[string]any{"quantity": 3}), http.StatusOK, &updated)
	assert.Equal(t, 7, updated.Stock)

	api.requireError(api.do(http.MethodPatch, path, map[string]any{"quantity": 20}), http.StatusBadRequest, "Insufficient stock")
	api.requireError(api.do(http.MethodPatch, path, map[string]any{"quantity": 0}), http.StatusBadRequest, "Quantity must be greater than 0")
	api.requireError(api.do(http.MethodPatch, path, map[string]any{}), http.StatusBadRequest, "Quantity must be greater than 0")

	var current ProductResponse
	api.decode(api.do(http.MethodGet, "/api/v1/products/"+product.ID, nil), http.StatusOK, &current)
	assert.Equal(t, 7, current.Stock)

	missing := "/api/v1/products/" + uuid.NewString() + "/remove_from_stock"
	api.requireError(api.do(http.MethodPatch, missing, map[string]any{"quantity": 1}), http.StatusNotFound, "product not found")
}

func TestDeleteProductRemovesReviews(t *testing.T) {
	api := newTestAPI(t)
	product := api.createProduct(nil)

	var review ReviewResponse
	api.decode(api.do(http.MethodPost, "/api/v1/reviews", map[string]any{
		"product":       product.ID,
		"customer_name": "Sam",
		"rating":        4,
	}), http.StatusCreated, &review)

	w := api.do(http.MethodDelete, "/api/v1/products/"+product.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	api.requireError(api.do(http.MethodGet, "/api/v1/reviews/"+review.ID, nil), http.StatusNotFound, "review not found")
	api.requireError(api.do(http.MethodDelete, "/api/v1/products/"+product.ID, nil), http.StatusNotFound, "product not found")
}

func TestDiscountedPriceRenderingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	api := newTestAPI(t)
	seq := 0

	properties.Property("discounted price is the price reduced by the percentage", prop.ForAll(
		func(cents int64, discount int) bool {
			seq++
			price := decimal.New(cents, -2)
			body := map[string]any{
				"name":                "Widget",
				"price":               price.String(),
				"image":               "https://cdn.example.com/widget.png",
				"sku":                 "P" + decimal.NewFromInt(int64(seq)).String(),
				"discount_percentage": discount,
			}

			w := api.do(http.MethodPost, "/api/v1/products", body)
			if w.Code != http.StatusCreated {
				return false
			}
			var product ProductResponse
			api.decode(w, http.StatusCreated, &product)

			factor := decimal.NewFromInt(int64(100 - discount)).Div(decimal.NewFromInt(100))
			expected := price.Mul(factor).StringFixed(2)
			return product.Price == price.StringFixed(2) && product.DiscountedPrice == expected
		},
		gen.Int64Range(0, 1_000_000),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
