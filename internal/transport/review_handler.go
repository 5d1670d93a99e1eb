package transport

import (
	"net/http"

	"catalog-api/internal/middleware"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReviewHandler handles HTTP requests for customer review operations
type ReviewHandler struct {
	reviewService service.ReviewService
	logger        *zap.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviewService service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger,
	}
}

// RegisterRoutes registers all review routes
func (h *ReviewHandler) RegisterRoutes(r chi.Router) {
	r.Route("/reviews", func(r chi.Router) {
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

// List handles GET /reviews, optionally narrowed to one product
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	productID, err := queryID(r, "product")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	reviews, err := h.reviewService.List(r.Context(), repository.ReviewFilter{ProductID: productID})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resp := make([]ReviewResponse, 0, len(reviews))
	for _, review := range reviews {
		resp = append(resp, reviewResponse(review))
	}
	middleware.RespondWithJSON(w, http.StatusOK, resp)
}

// Create handles POST /reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		h.logger.Debug("Review validation failed", zap.Error(err))
		respondError(w, r, h.logger, err)
		return
	}

	input, err := req.toInput(false)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	review, err := h.reviewService.Create(r.Context(), input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Review created",
		zap.String("review_id", review.ID.String()),
		zap.String("product_id", review.ProductID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, reviewResponse(review))
}

// Get handles GET /reviews/{id}
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, repository.ErrReviewNotFound)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	review, err := h.reviewService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, reviewResponse(review))
}

// Replace handles PUT /reviews/{id}
func (h *ReviewHandler) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

// Update handles PATCH /reviews/{id}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

func (h *ReviewHandler) update(w http.ResponseWriter, r *http.Request, full bool) {
	id, err := pathID(r, repository.ErrReviewNotFound)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req ReviewRequest
	if full {
		err = middleware.DecodeAndValidate(w, r, &req)
	} else {
		err = middleware.DecodeJSON(w, r, &req)
	}
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	input, err := req.toInput(full)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	review, err := h.reviewService.Update(r.Context(), id, input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, reviewResponse(review))
}

// Delete handles DELETE /reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, repository.ErrReviewNotFound)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.reviewService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondNoContent(w)
}
