package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"shop-catalog-service/internal/auth"
	"shop-catalog-service/internal/domain"
	"shop-catalog-service/internal/logger"
	"shop-catalog-service/internal/store"
)

const defaultPageSize = 100

// Options tunes the catalog behaviour of the HTTP handler.
type Options struct {
	PageSize int
	Cascade  domain.CascadePolicy
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	categoryStore store.CategoryStorer
	productStore  store.ProductStorer
	articleStore  store.ArticleStorer
	renderer      *Renderer
	tokens        *auth.TokenManager
	validate      *validator.Validate
	sanitizer     *bluemonday.Policy
	log           logger.Logger
	pageSize      int
	cascade       domain.CascadePolicy
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(
	cs store.CategoryStorer,
	ps store.ProductStorer,
	as store.ArticleStorer,
	renderer *Renderer,
	tokens *auth.TokenManager,
	log logger.Logger,
	opts Options,
) *HTTPHandler {
	if log == nil {
		log = logger.Nop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	return &HTTPHandler{
		categoryStore: cs,
		productStore:  ps,
		articleStore:  as,
		renderer:      renderer,
		tokens:        tokens,
		validate:      newValidator(),
		sanitizer:     newSanitizer(),
		log:           log,
		pageSize:      opts.PageSize,
		cascade:       opts.Cascade,
	}
}

// --- Request helpers ---

// idParam parses the {id} path segment. Anything but a positive integer is a 404.
func (h *HTTPHandler) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.notFound(w, r)
		return 0, false
	}
	return id, true
}

// parentFilter reads an optional integer query parameter such as category_id.
func (h *HTTPHandler) parentFilter(w http.ResponseWriter, r *http.Request, name string) (*int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.respondWithFieldErrors(w, map[string][]string{name: {"A valid integer is required."}})
		return nil, false
	}
	return &id, true
}

type getFunc[T any] func(ctx context.Context, id int64) (*T, error)

type renderFunc[T any] func(ctx context.Context, item T) (any, error)

// serveOne loads a single entity by the {id} path segment and renders it.
func serveOne[T any](h *HTTPHandler, w http.ResponseWriter, r *http.Request, get getFunc[T], render renderFunc[T], resource string) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	item, err := get(r.Context(), id)
	if err != nil {
		h.respondWithStoreError(w, err, "Failed to retrieve "+resource)
		return
	}
	body, err := render(r.Context(), *item)
	if err != nil {
		h.respondWithStoreError(w, err, "Failed to render "+resource)
		return
	}
	h.respondWithJSON(w, http.StatusOK, body)
}

func (h *HTTPHandler) renderCategory(op Operation) renderFunc[domain.Category] {
	return func(ctx context.Context, c domain.Category) (any, error) { return h.renderer.Category(ctx, op, c) }
}

func (h *HTTPHandler) renderProduct(op Operation) renderFunc[domain.Product] {
	return func(ctx context.Context, p domain.Product) (any, error) { return h.renderer.Product(ctx, op, p) }
}

func (h *HTTPHandler) renderArticle(op Operation) renderFunc[domain.Article] {
	return func(ctx context.Context, a domain.Article) (any, error) { return h.renderer.Article(ctx, op, a) }
}

func (h *HTTPHandler) renderCategories(op Operation) pageRenderFunc[domain.Category] {
	return func(ctx context.Context, cs []domain.Category) ([]any, error) { return h.renderer.Categories(ctx, op, cs) }
}

func (h *HTTPHandler) renderProducts(op Operation) pageRenderFunc[domain.Product] {
	return func(ctx context.Context, ps []domain.Product) ([]any, error) { return h.renderer.Products(ctx, op, ps) }
}

func (h *HTTPHandler) renderArticles(op Operation) pageRenderFunc[domain.Article] {
	return func(ctx context.Context, as []domain.Article) ([]any, error) { return h.renderer.Articles(ctx, op, as) }
}

// --- Category Handlers ---

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	servePage(h, w, r, store.ListParams{ActiveOnly: true}, h.categoryStore.ListCategories, h.renderCategories(OpList), "categories")
}

func (h *HTTPHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	serveOne(h, w, r, h.categoryStore.GetCategoryByID, h.renderCategory(OpDetail), "category")
}

// DisableCategory deactivates the category and its products in one transaction.
func (h *HTTPHandler) DisableCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.categoryStore.DisableCategory(r.Context(), id, h.cascade); err != nil {
		h.respondWithStoreError(w, err, "Failed to disable category")
		return
	}
	h.auditLog(r, map[string]interface{}{"category_id": id, "cascade_articles": h.cascade.Articles}).Info("category disabled")
	w.WriteHeader(http.StatusOK)
}

// --- Product Handlers ---

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.parentFilter(w, r, "category_id")
	if !ok {
		return
	}
	params := store.ListParams{ActiveOnly: true, ParentID: categoryID}
	servePage(h, w, r, params, h.productStore.ListProducts, h.renderProducts(OpList), "products")
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	serveOne(h, w, r, h.productStore.GetProductByID, h.renderProduct(OpDetail), "product")
}

func (h *HTTPHandler) DisableProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.productStore.DisableProduct(r.Context(), id, h.cascade); err != nil {
		h.respondWithStoreError(w, err, "Failed to disable product")
		return
	}
	h.auditLog(r, map[string]interface{}{"product_id": id, "cascade_articles": h.cascade.Articles}).Info("product disabled")
	w.WriteHeader(http.StatusOK)
}

// --- Article Handlers ---

func (h *HTTPHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.parentFilter(w, r, "product_id")
	if !ok {
		return
	}
	params := store.ListParams{ActiveOnly: true, ParentID: productID}
	servePage(h, w, r, params, h.articleStore.ListArticles, h.renderArticles(OpList), "articles")
}

func (h *HTTPHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	serveOne(h, w, r, h.articleStore.GetArticleByID, h.renderArticle(OpDetail), "article")
}

// auditLog returns a logger tagged with the acting identity.
func (h *HTTPHandler) auditLog(r *http.Request, fields map[string]interface{}) logger.Logger {
	if id, ok := IdentityFromContext(r.Context()); ok {
		fields["actor"] = id.Subject
	}
	return h.log.With(fields)
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service. Public resources
// only answer GET; anything else gets a 405.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	// Set before Route so the sub-routers inherit them.
	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.methodNotAllowed(r))

	r.Route("/api", func(r chi.Router) {
		r.Route("/category", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetCategory)
				r.With(h.RequireAdminOrStaff).Post("/disable/", h.DisableCategory)
			})
		})

		r.Route("/product", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetProduct)
				r.With(h.RequireAdminOrStaff).Post("/disable/", h.DisableProduct)
			})
		})

		r.Route("/article", func(r chi.Router) {
			r.Get("/", h.ListArticles)
			r.Get("/{id}/", h.GetArticle)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireAdminOrStaff)
			h.registerAdminRoutes(r)
		})
	})
}
