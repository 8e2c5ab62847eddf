package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shop-catalog-service/internal/domain"
	"shop-catalog-service/internal/store"
)

// registerAdminRoutes mounts full CRUD for every resource. The caller has
// already applied RequireAdminOrStaff. Admin listings are not filtered by
// the active flag.
func (h *HTTPHandler) registerAdminRoutes(r chi.Router) {
	r.Route("/category", func(r chi.Router) {
		r.Get("/", h.AdminListCategories)
		r.Post("/", h.AdminCreateCategory)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.AdminGetCategory)
			r.Put("/", h.AdminUpdateCategory(false))
			r.Patch("/", h.AdminUpdateCategory(true))
			r.Delete("/", h.AdminDeleteCategory)
		})
	})

	r.Route("/product", func(r chi.Router) {
		r.Get("/", h.AdminListProducts)
		r.Post("/", h.AdminCreateProduct)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.AdminGetProduct)
			r.Put("/", h.AdminUpdateProduct(false))
			r.Patch("/", h.AdminUpdateProduct(true))
			r.Delete("/", h.AdminDeleteProduct)
		})
	})

	r.Route("/article", func(r chi.Router) {
		r.Get("/", h.AdminListArticles)
		r.Post("/", h.AdminCreateArticle)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.AdminGetArticle)
			r.Put("/", h.AdminUpdateArticle(false))
			r.Patch("/", h.AdminUpdateArticle(true))
			r.Delete("/", h.AdminDeleteArticle)
		})
	})
}

func (h *HTTPHandler) respondWithPayloadError(w http.ResponseWriter, err error) {
	h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
}

// --- Category ---

func (h *HTTPHandler) AdminListCategories(w http.ResponseWriter, r *http.Request) {
	servePage(h, w, r, store.ListParams{}, h.categoryStore.ListCategories, h.renderCategories(OpAdmin), "categories")
}

func (h *HTTPHandler) AdminGetCategory(w http.ResponseWriter, r *http.Request) {
	serveOne(h, w, r, h.categoryStore.GetCategoryByID, h.renderCategory(OpAdmin), "category")
}

func (h *HTTPHandler) AdminCreateCategory(w http.ResponseWriter, r *http.Request) {
	input := CategoryInput{Active: true}
	if err := decodeInput(r, &input); err != nil {
		h.respondWithPayloadError(w, err)
		return
	}

	errs, err := h.validateCategory(r.Context(), 0, &input)
	if err != nil {
		h.respondWithStoreError(w, err, "Failed to create category")
		return
	}
	if len(errs) > 0 {
		h.respondWithFieldErrors(w, errs)
		return
	}

	created, err := h.categoryStore.CreateCategory(r.Context(), &domain.Category{
		Name:        input.Name,
		Description: input.Description,
		Active:      input.Active,
	})
	if err != nil {
		h.respondWithStoreError(w, err, "Failed to create category")
		return
	}
	h.auditLog(r, map[string]interface{}{"category_id": created.ID}).Info("category created")

	body, err := h.renderer.Category(r.Context(), OpAdmin, *created)
	if err != nil {
		h.respondWithStoreError(w, err, "Failed to render category")
		return
	}
	h.respondWithJSON(w, http.StatusCreated, body)
}

// AdminUpdateCategory serves PUT and, with partial set, PATCH. Fields missing
// from a PATCH keep their stored values; a PUT only keeps the active flag.
func (h *HTTPHandler) AdminUpdateCategory(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.idParam(w, r)
		if !ok {
			return
		}
		existing, err := h.categoryStore.GetCategoryByID(r.Context(), id)
		if err != nil {
			h.respondWithStoreError(w, err, "Failed to retrieve category")
			return
		}

		input := CategoryInput{Active: existing.Active}
		if partial {
			input.Name = existing.Name
			input.Description = existing.Description
		}
		if err := decodeInput(r, &input); err != nil {
			h.respondWithPayloadError(w, err)
			return
		}

		errs, err := h.validateCategory(r.Context(), id, &input)
		if err != nil {
			h.respondWithStoreError(w, err, "Failed to update category")
			return
		}
		if len(errs) > 0 {
			h.respondWithFieldErrors(w, errs)
			return
		}

		updated, err := h.categoryStore.UpdateCategory(r.Context(), &domain.Category{
			ID:          id,
			Name:        input.Name,
			Description: input.Description,
			Active:      input.Active,
		})
		if err != nil {
			h.respondWithStoreError(w, err, "Failed to update category")
			return
		}

		body, err := h.renderer.Category(r.Context(), OpAdmin, *updated)
		if err != nil {
			h.respondWithStoreError(w, err, "Failed to render category")
			return
		}
		h.respondWithJSON(w, http.StatusOK, body)
	}
}

func (h *HTTPHandler) AdminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.categoryStore.DeleteCategory(r.Context(), id); err != nil {
		h.respondWithStoreError(w, err, "Failed to delete category")
		return
	}
	h.auditLog(r, map[string]interface{}{"category_id": id}).Info("category deleted")
	w.WriteHeader(http.StatusNoContent)
}

// --- Product ---

func (h *HTTPHandler) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.parentFilter(w, r, "category_id")
	if !ok {
		return
	}
	servePage(h, w, r, store.ListParams{ParentID: categoryID}, h.productStore.ListProducts, h.renderProducts(OpAdmin), "products")
}

func (h *HTTPHandler) AdminGetProduct(w http.ResponseWriter, r *http.Request) {
	serveOne(h, w, r, h.productStore.GetProductByID, h.renderProduct(OpAdmin), "product")
}

func (h *HTTPHandler) AdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	input := ProductInput{Active: true}
	if err := decodeInput(r, &input); err != nil {
		h.respondWithPayloadError(w, err)
		return
	}

	errs, err := h.validateProduct(r.Context(), &input)
	if err != nil {
		h.respondWithStoreError(w, err, "Failed to create product")
		return
	}
	if len(errs) > 0 {
		h.respondWithFieldErrors(w, errs)
		return
	}

	created, err := h.productStore.CreateProduct(r.Context(), input.toProduct(0))
	if err != nil {
		h.respondWithProductWriteError(w, err, input.CategoryID, "Failed to create product")
		return
	}
	h.auditLog(r, map[string]interface{}{"product_id": created.ID}).Info("product created")

	body, err := h.renderer.Product(r.Context(), OpAdmin, *created)
	if err != nil {
		h.respondWithStoreError(w, err, "Failed to render product")
		return
	}
	h.respondWithJSON(w, http.StatusCreated, body)
}

func (h *HTTPHandler) AdminUpdateProduct(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.idParam(w, r)
		if !ok {
			return
		}
		existing, err := h.productStore.GetProductByID(r.Context(), id)
		if err != nil {
			h.respondWithStoreError(w, err, "Failed to retrieve product")
			return
		}

		input := ProductInput{Active: existing.Active}
		if partial {
			input.Name = existing.Name
			input.Description = existing.Description
			input.CategoryID = existing.CategoryID
			input.Barcode = existing.Barcode
		}
		if err := decodeInput(r, &input); err != nil {
			h.respondWithPayloadError(w, err)
			return
		}

		errs, err := h.validateProduct(r.Context(), &input)
		if err != nil {
			h.respondWithStoreError(w, err, "Failed to update product")
			return
		}
		if len(errs) > 0 {
			h.respondWithFieldErrors(w, errs)
			return
		}

		updated, err := h.productStore.UpdateProduct(r.Context(), input.toProduct(id))
		if err != nil {
			h.respondWithProductWriteError(w, err, input.CategoryID, "Failed to update product")
			return
		}

		body, err := h.renderer.Product(r.Context(), OpAdmin, *updated)
		if err != nil {
			h.respondWithStoreError(w, err, "Failed to render product")
			return
		}
		h.respondWithJSON(w, http.StatusOK, body)
	}
}

func (h *HTTPHandler) AdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.productStore.DeleteProduct(r.Context(), id); err != nil {
		h.respondWithStoreError(w, err, "Failed to delete product")
		return
	}
	h.auditLog(r, map[string]interface{}{"product_id": id}).Info("product deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (in ProductInput) toProduct(id int64) *domain.Product {
	return &domain.Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Active:      in.Active,
		CategoryID:  in.CategoryID,
		Barcode:     in.Barcode,
	}
}

// respondWithProductWriteError reports a category deleted between validation
// and the write as a field error instead of a 404.
func (h *HTTPHandler) respondWithProductWriteError(w http.ResponseWriter, err error, categoryID int64, fallback string) {
	if errors.Is(err, store.ErrCategoryNotFound) {
		h.respondWithFieldErrors(w, map[string][]string{"category_id": {msgUnknownPK(categoryID)}})
		return
	}
	h.respondWithStoreError(w, err, fallback)
}

// --- Article ---

func (h *HTTPHandler) AdminListArticles(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.parentFilter(w, r, "product_id")
	if !ok {
		return
	}
	servePage(h, w, r, store.ListParams{ParentID: productID}, h.articleStore.ListArticles, h.renderArticles(OpAdmin), "articles")
}

func (h *HTTPHandler) AdminGetArticle(w http.ResponseWriter, r *http.Request) {
	serveOne(h, w, r, h.articleStore.GetArticleByID, h.renderArticle(OpAdmin), "article")
}

func (h *HTTPHandler) AdminCreateArticle(w http.ResponseWriter, r *http.Request) {
	input := ArticleInput{Active: true}
	if err := decodeInput(r, &input); err != nil {
		h.respondWithPayloadError(w, err)
		return
	}

	errs, err := h.validateArticle(r.Context(), &input, true)
	if err != nil {
		h.respondWithStoreError(w, err, "Failed to create article")
		return
	}
	if len(errs) > 0 {
		h.respondWithFieldErrors(w, errs)
		return
	}

	created, err := h.articleStore.CreateArticle(r.Context(), input.toArticle(0))
	if err != nil {
		h.respondWithArticleWriteError(w, err, input.ProductID, "Failed to create article")
		return
	}
	h.auditLog(r, map[string]interface{}{"article_id": created.ID}).Info("article created")

	body, err := h.renderer.Article(r.Context(), OpAdmin, *created)
	if err != nil {
		h.respondWithStoreError(w, err, "Failed to render article")
		return
	}
	h.respondWithJSON(w, http.StatusCreated, body)
}

func (h *HTTPHandler) AdminUpdateArticle(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.idParam(w, r)
		if !ok {
			return
		}
		existing, err := h.articleStore.GetArticleByID(r.Context(), id)
		if err != nil {
			h.respondWithStoreError(w, err, "Failed to retrieve article")
			return
		}

		input := ArticleInput{Active: existing.Active}
		if partial {
			price := existing.Price
			input.Name = existing.Name
			input.Description = existing.Description
			input.Price = &price
			input.ProductID = existing.ProductID
		}
		if err := decodeInput(r, &input); err != nil {
			h.respondWithPayloadError(w, err)
			return
		}

		errs, err := h.validateArticle(r.Context(), &input, input.ProductID != existing.ProductID)
		if err != nil {
			h.respondWithStoreError(w, err, "Failed to update article")
			return
		}
		if len(errs) > 0 {
			h.respondWithFieldErrors(w, errs)
			return
		}

		updated, err := h.articleStore.UpdateArticle(r.Context(), input.toArticle(id))
		if err != nil {
			h.respondWithArticleWriteError(w, err, input.ProductID, "Failed to update article")
			return
		}

		body, err := h.renderer.Article(r.Context(), OpAdmin, *updated)
		if err != nil {
			h.respondWithStoreError(w, err, "Failed to render article")
			return
		}
		h.respondWithJSON(w, http.StatusOK, body)
	}
}

func (h *HTTPHandler) AdminDeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.articleStore.DeleteArticle(r.Context(), id); err != nil {
		h.respondWithStoreError(w, err, "Failed to delete article")
		return
	}
	h.auditLog(r, map[string]interface{}{"article_id": id}).Info("article deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (in ArticleInput) toArticle(id int64) *domain.Article {
	a := &domain.Article{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Active:      in.Active,
		ProductID:   in.ProductID,
	}
	if in.Price != nil {
		a.Price = *in.Price
	}
	return a
}

func (h *HTTPHandler) respondWithArticleWriteError(w http.ResponseWriter, err error, productID int64, fallback string) {
	if errors.Is(err, store.ErrProductNotFound) {
		h.respondWithFieldErrors(w, map[string][]string{"product_id": {msgUnknownPK(productID)}})
		return
	}
	h.respondWithStoreError(w, err, fallback)
}
