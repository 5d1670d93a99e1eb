// Package memory provides an in-process implementation of the catalog
// repositories. It enforces the same key and reference constraints as the
// PostgreSQL schema and is used to exercise the service and transport layers
// without a database.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository"

	"github.com/google/uuid"
)

// ErrStillReferenced mirrors a foreign key violation on delete
var ErrStillReferenced = errors.New("record is still referenced")

type state struct {
	categories map[uuid.UUID]domain.Category
	brands     map[uuid.UUID]domain.Brand
	products   map[uuid.UUID]domain.Product
	reviews    map[uuid.UUID]domain.CustomerReview
}

func newState() state {
	return state{
		categories: make(map[uuid.UUID]domain.Category),
		brands:     make(map[uuid.UUID]domain.Brand),
		products:   make(map[uuid.UUID]domain.Product),
		reviews:    make(map[uuid.UUID]domain.CustomerReview),
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.brands {
		c.brands[k] = v
	}
	for k, v := range s.products {
		c.products[k] = copyProduct(v)
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	return c
}

// Store holds every catalog record in memory
type Store struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	txDone   *sync.Cond
	txActive bool
	data     state
}

// NewStore creates an empty store
func NewStore() *Store {
	s := &Store{data: newState()}
	s.txDone = sync.NewCond(&s.mu)
	return s
}

// Repositories returns the catalog repositories backed by the store
func (s *Store) Repositories() repository.Repositories {
	return s.repositories(false)
}

func (s *Store) repositories(tx bool) repository.Repositories {
	return repository.Repositories{
		Categories: &categoryRepository{store: s, tx: tx},
		Brands:     &brandRepository{store: s, tx: tx},
		Products:   &productRepository{store: s, tx: tx},
		Reviews:    &reviewRepository{store: s, tx: tx},
	}
}

// WithinTx runs fn with transactions serialized against each other. Writes
// made outside the transaction wait until it has finished, which stands in
// for the row locks a database would take. When fn fails, every change it
// made is discarded.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.txActive = true
	s.mu.Unlock()

	committed := false
	defer func() {
		s.mu.Lock()
		if !committed {
			s.data = snapshot
		}
		s.txActive = false
		s.txDone.Broadcast()
		s.mu.Unlock()
	}()

	if err := fn(s.repositories(true)); err != nil {
		return err
	}

	committed = true
	return nil
}

// lockWrite takes the store lock for a write. Writes from outside a
// transaction wait for the running one to finish.
func (s *Store) lockWrite(inTx bool) {
	s.mu.Lock()
	for !inTx && s.txActive {
		s.txDone.Wait()
	}
}

func copyProduct(p domain.Product) domain.Product {
	if p.Attributes != nil {
		p.Attributes = append(domain.Attributes{}, p.Attributes...)
	} else {
		p.Attributes = domain.Attributes{}
	}
	if p.BrandID != nil {
		id := *p.BrandID
		p.BrandID = &id
	}
	if p.CategoryID != nil {
		id := *p.CategoryID
		p.CategoryID = &id
	}
	return p
}

type categoryRepository struct {
	store *Store
	tx    bool
}

func (r *categoryRepository) Create(_ context.Context, category *domain.Category) error {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	if _, ok := r.store.data.categories[category.ID]; ok {
		return fmt.Errorf("failed to create category: duplicate id %s", category.ID)
	}
	r.store.data.categories[category.ID] = *category
	return nil
}

func (r *categoryRepository) Update(_ context.Context, category *domain.Category) error {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.categories[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	r.store.data.categories[category.ID] = *category
	return nil
}

func (r *categoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	for _, p := range r.store.data.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			return fmt.Errorf("failed to delete category: %w", ErrStillReferenced)
		}
	}
	delete(r.store.data.categories, id)
	return nil
}

func (r *categoryRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	category, ok := r.store.data.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return &category, nil
}

func (r *categoryRepository) List(_ context.Context) ([]*domain.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	categories := make([]*domain.Category, 0, len(r.store.data.categories))
	for _, c := range r.store.data.categories {
		c := c
		categories = append(categories, &c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Name != categories[j].Name {
			return categories[i].Name < categories[j].Name
		}
		return categories[i].ID.String() < categories[j].ID.String()
	})
	return categories, nil
}

type brandRepository struct {
	store *Store
	tx    bool
}

func (r *brandRepository) Create(_ context.Context, brand *domain.Brand) error {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	if brand.ID == uuid.Nil {
		brand.ID = uuid.New()
	}
	if _, ok := r.store.data.brands[brand.ID]; ok {
		return fmt.Errorf("failed to create brand: duplicate id %s", brand.ID)
	}
	r.store.data.brands[brand.ID] = *brand
	return nil
}

func (r *brandRepository) Update(_ context.Context, brand *domain.Brand) error {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.brands[brand.ID]; !ok {
		return repository.ErrBrandNotFound
	}
	r.store.data.brands[brand.ID] = *brand
	return nil
}

func (r *brandRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.brands[id]; !ok {
		return repository.ErrBrandNotFound
	}
	for _, p := range r.store.data.products {
		if p.BrandID != nil && *p.BrandID == id {
			return fmt.Errorf("failed to delete brand: %w", ErrStillReferenced)
		}
	}
	delete(r.store.data.brands, id)
	return nil
}

func (r *brandRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Brand, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	brand, ok := r.store.data.brands[id]
	if !ok {
		return nil, repository.ErrBrandNotFound
	}
	return &brand, nil
}

func (r *brandRepository) List(_ context.Context) ([]*domain.Brand, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	brands := make([]*domain.Brand, 0, len(r.store.data.brands))
	for _, b := range r.store.data.brands {
		b := b
		brands = append(brands, &b)
	}
	sort.Slice(brands, func(i, j int) bool {
		if brands[i].Name != brands[j].Name {
			return brands[i].Name < brands[j].Name
		}
		return brands[i].ID.String() < brands[j].ID.String()
	})
	return brands, nil
}

type productRepository struct {
	store *Store
	tx    bool
}

// checkProduct enforces the sku key and the reference constraints. Callers
// hold the store lock.
func (r *productRepository) checkProduct(product *domain.Product) error {
	for id, p := range r.store.data.products {
		if id != product.ID && p.SKU == product.SKU {
			return repository.ErrDuplicateSKU
		}
	}
	if product.BrandID != nil {
		if _, ok := r.store.data.brands[*product.BrandID]; !ok {
			return repository.ErrInvalidReference
		}
	}
	if product.CategoryID != nil {
		if _, ok := r.store.data.categories[*product.CategoryID]; !ok {
			return repository.ErrInvalidReference
		}
	}
	if product.Stock < 0 {
		return fmt.Errorf("stock must not be negative")
	}
	return nil
}

func (r *productRepository) Create(_ context.Context, product *domain.Product) error {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if _, ok := r.store.data.products[product.ID]; ok {
		return fmt.Errorf("failed to create product: duplicate id %s", product.ID)
	}
	if err := r.checkProduct(product); err != nil {
		return err
	}
	r.store.data.products[product.ID] = copyProduct(*product)
	return nil
}

func (r *productRepository) Update(_ context.Context, product *domain.Product) error {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	existing, ok := r.store.data.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	if err := r.checkProduct(product); err != nil {
		return err
	}

	stored := copyProduct(*product)
	stored.CreatedAt = existing.CreatedAt
	r.store.data.products[product.ID] = stored
	return nil
}

func (r *productRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	for _, review := range r.store.data.reviews {
		if review.ProductID == id {
			return fmt.Errorf("failed to delete product: %w", ErrStillReferenced)
		}
	}
	delete(r.store.data.products, id)
	return nil
}

func (r *productRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	product, ok := r.store.data.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	p := copyProduct(product)
	return &p, nil
}

// FindByIDForUpdate reads like FindByID. Inside a transaction the row is
// already protected, since outside writers wait for the transaction to end.
func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *productRepository) List(_ context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	products := []*domain.Product{}
	for _, product := range r.store.data.products {
		if filter.BrandID != nil && (product.BrandID == nil || *product.BrandID != *filter.BrandID) {
			continue
		}
		if filter.CategoryID != nil && (product.CategoryID == nil || *product.CategoryID != *filter.CategoryID) {
			continue
		}
		p := copyProduct(product)
		products = append(products, &p)
	}
	sort.Slice(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.Before(products[j].CreatedAt)
		}
		return products[i].ID.String() < products[j].ID.String()
	})
	return products, nil
}

func (r *productRepository) DecrementStock(_ context.Context, id uuid.UUID, quantity int, at time.Time) (*domain.Product, error) {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	product, ok := r.store.data.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if product.Stock < quantity {
		return nil, repository.ErrInsufficientStock
	}

	product.Stock -= quantity
	if at.After(product.UpdatedAt) {
		product.UpdatedAt = at
	} else {
		product.UpdatedAt = product.UpdatedAt.Add(time.Microsecond)
	}
	r.store.data.products[id] = product

	p := copyProduct(product)
	return &p, nil
}

func (r *productRepository) ClearBrand(_ context.Context, brandID uuid.UUID) (int64, error) {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	var n int64
	for id, product := range r.store.data.products {
		if product.BrandID != nil && *product.BrandID == brandID {
			product.BrandID = nil
			r.store.data.products[id] = product
			n++
		}
	}
	return n, nil
}

func (r *productRepository) ClearCategory(_ context.Context, categoryID uuid.UUID) (int64, error) {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	var n int64
	for id, product := range r.store.data.products {
		if product.CategoryID != nil && *product.CategoryID == categoryID {
			product.CategoryID = nil
			r.store.data.products[id] = product
			n++
		}
	}
	return n, nil
}

type reviewRepository struct {
	store *Store
	tx    bool
}

func (r *reviewRepository) Create(_ context.Context, review *domain.CustomerReview) error {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	if _, ok := r.store.data.products[review.ProductID]; !ok {
		return fmt.Errorf("failed to create review: %w", repository.ErrInvalidReference)
	}
	r.store.data.reviews[review.ID] = *review
	return nil
}

func (r *reviewRepository) Update(_ context.Context, review *domain.CustomerReview) error {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.reviews[review.ID]; !ok {
		return repository.ErrReviewNotFound
	}
	if _, ok := r.store.data.products[review.ProductID]; !ok {
		return fmt.Errorf("failed to update review: %w", repository.ErrInvalidReference)
	}
	r.store.data.reviews[review.ID] = *review
	return nil
}

func (r *reviewRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.reviews[id]; !ok {
		return repository.ErrReviewNotFound
	}
	delete(r.store.data.reviews, id)
	return nil
}

func (r *reviewRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.CustomerReview, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	review, ok := r.store.data.reviews[id]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	return &review, nil
}

func (r *reviewRepository) List(_ context.Context, filter repository.ReviewFilter) ([]*domain.CustomerReview, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	reviews := []*domain.CustomerReview{}
	for _, review := range r.store.data.reviews {
		if filter.ProductID != nil && review.ProductID != *filter.ProductID {
			continue
		}
		review := review
		reviews = append(reviews, &review)
	}
	sort.Slice(reviews, func(i, j int) bool {
		if !reviews[i].Date.Equal(reviews[j].Date) {
			return reviews[i].Date.After(reviews[j].Date)
		}
		return reviews[i].ID.String() < reviews[j].ID.String()
	})
	return reviews, nil
}

func (r *reviewRepository) DeleteByProduct(_ context.Context, productID uuid.UUID) (int64, error) {
	r.store.lockWrite(r.tx)
	defer r.store.mu.Unlock()

	var n int64
	for id, review := range r.store.data.reviews {
		if review.ProductID == productID {
			delete(r.store.data.reviews, id)
			n++
		}
	}
	return n, nil
}
