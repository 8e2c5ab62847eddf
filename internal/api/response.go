package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"shop-catalog-service/internal/store"
)

// ErrorResponse defines the structure for JSON error responses.
// Fields carries per-field validation messages keyed by JSON field name.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

const (
	msgNotFound         = "Not found."
	msgValidationFailed = "Validation failed."
)

func (h *HTTPHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, ErrorResponse{Error: message})
}

func (h *HTTPHandler) respondWithFieldErrors(w http.ResponseWriter, fields map[string][]string) {
	h.respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgValidationFailed, Fields: fields})
}

func (h *HTTPHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.log.Error(err, "failed to encode JSON response")
		}
	}
}

// respondWithStoreError maps store sentinels to statuses. fallback is the
// message sent with a 500.
func (h *HTTPHandler) respondWithStoreError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrCategoryNotFound),
		errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, store.ErrArticleNotFound):
		h.respondWithError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, store.ErrCategoryNameExists):
		h.respondWithFieldErrors(w, map[string][]string{"name": {msgCategoryNameTaken}})
	default:
		h.log.Error(err, fallback)
		h.respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *HTTPHandler) notFound(w http.ResponseWriter, _ *http.Request) {
	h.respondWithError(w, http.StatusNotFound, msgNotFound)
}

var routedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// methodNotAllowed answers 405 with the methods routes accepts for the path
// in the Allow header.
func (h *HTTPHandler) methodNotAllowed(routes chi.Routes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allowed := make([]string, 0, len(routedMethods))
		for _, method := range routedMethods {
			if routes.Match(chi.NewRouteContext(), method, r.URL.Path) {
				allowed = append(allowed, method)
			}
		}
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		h.respondWithError(w, http.StatusMethodNotAllowed, `Method "`+r.Method+`" not allowed.`)
	}
}
