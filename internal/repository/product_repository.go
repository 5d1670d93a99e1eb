package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-api/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = fmt.Errorf("product %w", ErrNotFound)
	ErrDuplicateSKU      = errors.New("product with this sku already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidReference  = errors.New("referenced record does not exist")
)

const (
	productColumns = `id, name, description, stock, price, image, brand_id, category_id,
		attributes, sku, discount_percentage, created_at, updated_at`

	productSKUConstraint = "products_sku_key"
)

// ProductFilter narrows a product listing by reference equality
type ProductFilter struct {
	BrandID    *uuid.UUID
	CategoryID *uuid.UUID
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int, at time.Time) (*domain.Product, error)
	ClearBrand(ctx context.Context, brandID uuid.UUID) (int64, error)
	ClearCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

type productRepository struct {
	db DBTX
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		product    = &domain.Product{}
		brandID    uuid.NullUUID
		categoryID uuid.NullUUID
	)

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Stock,
		&product.Price,
		&product.Image,
		&brandID,
		&categoryID,
		&product.Attributes,
		&product.SKU,
		&product.DiscountPercentage,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if brandID.Valid {
		product.BrandID = &brandID.UUID
	}
	if categoryID.Valid {
		product.CategoryID = &categoryID.UUID
	}

	return product, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func translateProductWriteError(op string, err error) error {
	if isUniqueViolation(err, productSKUConstraint) {
		return ErrDuplicateSKU
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("failed to %s product: %w", op, ErrInvalidReference)
	}
	return fmt.Errorf("failed to %s product: %w", op, err)
}

// Create inserts a new product, assigning its ID when unset
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Stock,
		product.Price,
		product.Image,
		nullUUID(product.BrandID),
		nullUUID(product.CategoryID),
		product.Attributes,
		product.SKU,
		product.DiscountPercentage,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return translateProductWriteError("create", err)
	}

	return nil
}

// Update overwrites every mutable column of an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, stock = $4, price = $5, image = $6,
		    brand_id = $7, category_id = $8, attributes = $9, sku = $10,
		    discount_percentage = $11, updated_at = $12
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Stock,
		product.Price,
		product.Image,
		nullUUID(product.BrandID),
		nullUUID(product.CategoryID),
		product.Attributes,
		product.SKU,
		product.DiscountPercentage,
		product.UpdatedAt,
	)
	if err != nil {
		return translateProductWriteError("update", err)
	}

	return checkRowsAffected(result, ErrProductNotFound)
}

// Delete removes a product. Its reviews must already be gone.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return checkRowsAffected(result, ErrProductNotFound)
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.findByID(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// FindByIDForUpdate retrieves a product and locks its row until the
// surrounding transaction ends. Concurrent writers to the row, stock
// decrements included, wait for it.
func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.findByID(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *productRepository) findByID(ctx context.Context, query string, id uuid.UUID) (*domain.Product, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves products matching the filter, oldest first
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.BrandID != nil {
		args = append(args, *filter.BrandID)
		conditions = append(conditions, fmt.Sprintf("brand_id = $%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY created_at ASC, id ASC
	`, productColumns, whereClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// DecrementStock atomically removes quantity units from stock. The row is only
// touched when enough stock is left, so concurrent callers cannot drive it
// below zero. updated_at always moves forward, even if at is not after it.
func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int, at time.Time) (*domain.Product, error) {
	query := `
		UPDATE products
		SET stock = stock - $2,
		    updated_at = GREATEST($3, updated_at + INTERVAL '1 microsecond')
		WHERE id = $1 AND stock >= $2
		RETURNING ` + productColumns

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id, quantity, at))
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check product existence: %w", err)
	}
	if !exists {
		return nil, ErrProductNotFound
	}

	return nil, ErrInsufficientStock
}

// ClearBrand unsets the brand on every product referencing it
func (r *productRepository) ClearBrand(ctx context.Context, brandID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE products SET brand_id = NULL WHERE brand_id = $1`, brandID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear product brand: %w", err)
	}
	return result.RowsAffected()
}

// ClearCategory unsets the category on every product referencing it
func (r *productRepository) ClearCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE products SET category_id = NULL WHERE category_id = $1`, categoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear product category: %w", err)
	}
	return result.RowsAffected()
}
