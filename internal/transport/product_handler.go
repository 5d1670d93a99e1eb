package transport

import (
	"net/http"

	"catalog-api/internal/middleware"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Replace)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
			r.Patch("/remove_from_stock", h.RemoveFromStock)
		})
	})
}

// List handles GET /products with optional brand and category filters
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter repository.ProductFilter
	var err error

	if filter.BrandID, err = queryID(r, "brand"); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if filter.CategoryID, err = queryID(r, "category"); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	views, err := h.productService.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resp := make([]ProductResponse, 0, len(views))
	for _, view := range views {
		resp = append(resp, productResponse(view))
	}
	middleware.RespondWithJSON(w, http.StatusOK, resp)
}

// Create handles POST /products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))
		respondError(w, r, h.logger, err)
		return
	}

	input, err := req.toInput(false)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	view, err := h.productService.Create(r.Context(), input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", view.Product.ID.String()),
		zap.String("sku", view.Product.SKU),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, productResponse(view))
}

// Get handles GET /products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, repository.ErrProductNotFound)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	view, err := h.productService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, productResponse(view))
}

// Replace handles PUT /products/{id}
func (h *ProductHandler) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

// Update handles PATCH /products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

func (h *ProductHandler) update(w http.ResponseWriter, r *http.Request, full bool) {
	id, err := pathID(r, repository.ErrProductNotFound)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req ProductRequest
	if full {
		err = middleware.DecodeAndValidate(w, r, &req)
	} else {
		err = middleware.DecodeJSON(w, r, &req)
	}
	if err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))
		respondError(w, r, h.logger, err)
		return
	}

	input, err := req.toInput(full)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	view, err := h.productService.Update(r.Context(), id, input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, productResponse(view))
}

// Delete handles DELETE /products/{id}, removing its reviews as well
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, repository.ErrProductNotFound)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	middleware.RespondNoContent(w)
}

// RemoveFromStock handles PATCH /products/{id}/remove_from_stock
func (h *ProductHandler) RemoveFromStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, repository.ErrProductNotFound)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req StockRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	view, err := h.productService.RemoveFromStock(r.Context(), id, req.Quantity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Stock removed",
		zap.String("product_id", id.String()),
		zap.Int("quantity", req.Quantity),
		zap.Int("stock", view.Product.Stock),
	)
	middleware.RespondWithJSON(w, http.StatusOK, productResponse(view))
}
