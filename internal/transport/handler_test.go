package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository/memory"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testAPI struct {
	t      *testing.T
	router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := memory.NewStore()
	repos := store.Repositories()
	logger := zap.NewNop()

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		NewCategoryHandler(service.NewCategoryService(repos, store), logger).RegisterRoutes(r)
		NewBrandHandler(service.NewBrandService(repos, store), logger).RegisterRoutes(r)
		NewProductHandler(service.NewProductService(repos, store), logger).RegisterRoutes(r)
		NewReviewHandler(service.NewReviewService(repos), logger).RegisterRoutes(r)
	})

	return &testAPI{t: t, router: router}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	return a.rawDo(method, path, body)
}

// rawDo serves the request without touching t, so it may run on any goroutine
func (a *testAPI) rawDo(method, path string, body any) *httptest.ResponseRecorder {
	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	default:
		raw, _ = json.Marshal(b) // test bodies are plain maps
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// decode asserts the status and unmarshals the body into dst
func (a *testAPI) decode(w *httptest.ResponseRecorder, status int, dst any) {
	a.t.Helper()

	require.Equal(a.t, status, w.Code, "body: %s", w.Body.String())
	if dst != nil {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), dst))
	}
}

func (a *testAPI) createNamed(collection, name string) RefResponse {
	a.t.Helper()

	var ref RefResponse
	a.decode(a.do(http.MethodPost, "/api/v1/"+collection, map[string]any{"name": name}), http.StatusCreated, &ref)
	return ref
}

func (a *testAPI) createProduct(fields map[string]any) ProductResponse {
	a.t.Helper()

	body := map[string]any{
		"name":  "Widget",
		"price": "19.99",
		"image": "https://cdn.example.com/widget.png",
		"sku":   "A1",
	}
	for k, v := range fields {
		body[k] = v
	}

	var product ProductResponse
	a.decode(a.do(http.MethodPost, "/api/v1/products", body), http.StatusCreated, &product)
	return product
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			ValidationErrors []domain.ValidationError `json:"validation_errors"`
		} `json:"details"`
	} `json:"error"`
}

func (a *testAPI) requireError(w *httptest.ResponseRecorder, status int, message string) errorBody {
	a.t.Helper()

	var body errorBody
	a.decode(w, status, &body)
	if message != "" {
		require.Equal(a.t, message, body.Error.Message)
	}
	return body
}

func (a *testAPI) requireFieldError(w *httptest.ResponseRecorder, field string) {
	a.t.Helper()

	body := a.requireError(w, http.StatusBadRequest, "validation failed")
	for _, fe := range body.Error.Details.ValidationErrors {
		if fe.Field == field {
			return
		}
	}
	a.t.Fatalf("expected a validation error on %q, got %+v", field, body.Error.Details.ValidationErrors)
}
