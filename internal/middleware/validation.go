package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"catalog-api/internal/domain"

	"go.uber.org/zap"
)

// MaxBodyBytes bounds the size of a decoded request body
const MaxBodyBytes = 1 << 20

// ErrMalformedBody is returned when a request body is not a JSON object
var ErrMalformedBody = errors.New("malformed request body")

// DecodeAndValidate decodes a JSON request body into v and validates it.
// Constraint violations come back as domain.ValidationErrors.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, v any) error {
	if err := DecodeJSON(w, r, v); err != nil {
		return err
	}
	return domain.ValidateStruct(v)
}

// DecodeJSON decodes a single JSON value from the request body into v
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return domain.NewValidationError(typeErr.Field, "Invalid value")
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", ErrMalformedBody)
		default:
			var fieldErrs domain.ValidationErrors
			if errors.As(err, &fieldErrs) {
				return fieldErrs
			}
			return fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrMalformedBody)
	}
	return nil
}

// ValidationMiddleware rejects writes whose body is declared as something other than JSON
func ValidationMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(contentType)
			if err != nil || mediaType != "application/json" {
				logger.Debug("Unsupported request content type",
					zap.String("content_type", contentType),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusUnsupportedMediaType, "request body must be application/json")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
