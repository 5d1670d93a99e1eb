package transport

import (
	"errors"
	"net/http"

	"catalog-api/internal/domain"
	"catalog-api/internal/middleware"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var notFoundErrors = []error{
	repository.ErrProductNotFound,
	repository.ErrCategoryNotFound,
	repository.ErrBrandNotFound,
	repository.ErrReviewNotFound,
}

// respondError maps a service error onto the response it stands for.
// Anything unrecognised is logged and answered with a 500.
func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var validationErrs domain.ValidationErrors

	switch {
	case errors.As(err, &validationErrs):
		middleware.RespondWithValidationErrors(w, validationErrs)
	case errors.Is(err, middleware.ErrMalformedBody):
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
	case errors.Is(err, service.ErrInvalidQuantity):
		middleware.RespondWithError(w, http.StatusBadRequest, "Quantity must be greater than 0")
	case errors.Is(err, service.ErrInsufficientStock):
		middleware.RespondWithError(w, http.StatusBadRequest, "Insufficient stock")
	case errors.Is(err, repository.ErrNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, service.ErrIntegrityCleanup):
		logger.Error("Referential cleanup failed",
			zap.Error(err),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to clean up related records")
	default:
		logger.Error("Request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func notFoundMessage(err error) string {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "not found"
}

// pathID reads the {id} route parameter. A malformed identifier cannot name
// a stored record, so it is reported as notFound.
func pathID(r *http.Request, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

// queryID reads an optional identifier filter from the query string
func queryID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "Must be a valid UUID")
	}
	return &id, nil
}
