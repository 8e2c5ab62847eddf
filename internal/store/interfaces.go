package store

import (
	"context"

	"shop-catalog-service/internal/domain"
)

// ListParams holds the filtering and pagination options shared by every list query.
type ListParams struct {
	// Limit <= 0 returns every matching row.
	Limit  int
	Offset int
	// ActiveOnly restricts results to rows with active = true. Public reads set it;
	// admin listings leave it false.
	ActiveOnly bool
	// ParentID narrows products by category_id and articles by product_id.
	// Ignored for categories.
	ParentID *int64
}

// CategoryStorer defines the database operations for categories.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*domain.Category, error)
	ListCategories(ctx context.Context, params ListParams) ([]domain.Category, int, error) // Returns categories and total count for pagination
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	// DisableCategory marks the category inactive and cascades to its products
	// (and their articles when policy.Articles is set) in a single transaction.
	DisableCategory(ctx context.Context, id int64, policy domain.CascadePolicy) error
}

// ProductStorer defines the database operations for products.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, params ListParams) ([]domain.Product, int, error)
	UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	DisableProduct(ctx context.Context, id int64, policy domain.CascadePolicy) error
}

// ArticleStorer defines the database operations for articles.
type ArticleStorer interface {
	CreateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error)
	GetArticleByID(ctx context.Context, id int64) (*domain.Article, error)
	ListArticles(ctx context.Context, params ListParams) ([]domain.Article, int, error)
	UpdateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error)
	DeleteArticle(ctx context.Context, id int64) error
}
