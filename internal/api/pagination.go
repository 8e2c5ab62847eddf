package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"shop-catalog-service/internal/store"
)

const msgInvalidPage = "Invalid page."

// PageResponse is the envelope of every list endpoint.
type PageResponse struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []any   `json:"results"`
}

func parsePage(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}

func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// pageURL rebuilds the request URL pointing at page. Page 1 drops the
// parameter entirely.
func pageURL(r *http.Request, page int) *string {
	q := r.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Scheme: requestScheme(r), Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	s := u.String()
	return &s
}

type listFunc[T any] func(ctx context.Context, params store.ListParams) ([]T, int, error)

type pageRenderFunc[T any] func(ctx context.Context, items []T) ([]any, error)

// servePage runs one paginated list query and writes the envelope. params
// carries the filters; paging fields are filled in here.
func servePage[T any](h *HTTPHandler, w http.ResponseWriter, r *http.Request, params store.ListParams, list listFunc[T], render pageRenderFunc[T], resource string) {
	page, ok := parsePage(r)
	if !ok {
		h.respondWithError(w, http.StatusNotFound, msgInvalidPage)
		return
	}
	params.Limit = h.pageSize
	params.Offset = (page - 1) * h.pageSize

	items, total, err := list(r.Context(), params)
	if err != nil {
		h.respondWithStoreError(w, err, "Failed to retrieve "+resource)
		return
	}

	lastPage := (total + h.pageSize - 1) / h.pageSize
	if page > max(lastPage, 1) {
		h.respondWithError(w, http.StatusNotFound, msgInvalidPage)
		return
	}

	results, err := render(r.Context(), items)
	if err != nil {
		h.respondWithStoreError(w, err, "Failed to render "+resource)
		return
	}

	resp := PageResponse{Count: total, Results: results}
	if page < lastPage {
		resp.Next = pageURL(r, page+1)
	}
	if page > 1 {
		resp.Previous = pageURL(r, page-1)
	}
	h.respondWithJSON(w, http.StatusOK, resp)
}
