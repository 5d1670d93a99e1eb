package transport

import (
	"context"
	"net/http"

	"catalog-api/internal/domain"
	"catalog-api/internal/middleware"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// namedService is the shape shared by the category and brand services
type namedService[T any] interface {
	Create(ctx context.Context, name string) (*T, error)
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	List(ctx context.Context) ([]*T, error)
	Update(ctx context.Context, id uuid.UUID, name *string) (*T, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NamedHandler serves a collection of records that only carry a name.
// Deleting one clears it from every product that references it.
type NamedHandler[T any] struct {
	entity   string
	svc      namedService[T]
	notFound error
	render   func(*T) RefResponse
	logger   *zap.Logger
}

// NewCategoryHandler creates the handler for /categories
func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *NamedHandler[domain.Category] {
	return &NamedHandler[domain.Category]{
		entity:   "categories",
		svc:      categoryService,
		notFound: repository.ErrCategoryNotFound,
		render:   categoryResponse,
		logger:   logger,
	}
}

// NewBrandHandler creates the handler for /brands
func NewBrandHandler(brandService service.BrandService, logger *zap.Logger) *NamedHandler[domain.Brand] {
	return &NamedHandler[domain.Brand]{
		entity:   "brands",
		svc:      brandService,
		notFound: repository.ErrBrandNotFound,
		render:   brandResponse,
		logger:   logger,
	}
}

// RegisterRoutes registers the collection routes
func (h *NamedHandler[T]) RegisterRoutes(r chi.Router) {
	r.Route("/"+h.entity, func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Replace)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

func (h *NamedHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resp := make([]RefResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, h.render(record))
	}
	middleware.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *NamedHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	var req NamedRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	record, err := h.svc.Create(r.Context(), *req.Name)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resp := h.render(record)
	h.logger.Info("Record created", zap.String("collection", h.entity), zap.String("id", resp.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *NamedHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, h.notFound)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	record, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.render(record))
}

// Replace handles PUT, where the name is required
func (h *NamedHandler[T]) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

// Update handles PATCH
func (h *NamedHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

func (h *NamedHandler[T]) update(w http.ResponseWriter, r *http.Request, full bool) {
	id, err := pathID(r, h.notFound)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req NamedRequest
	if full {
		err = middleware.DecodeAndValidate(w, r, &req)
	} else {
		err = middleware.DecodeJSON(w, r, &req)
	}
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	record, err := h.svc.Update(r.Context(), id, req.Name)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.render(record))
}

func (h *NamedHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, h.notFound)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Record deleted", zap.String("collection", h.entity), zap.String("id", id.String()))
	middleware.RespondNoContent(w)
}
