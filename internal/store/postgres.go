package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"shop-catalog-service/internal/domain"
)

// Predefined errors for store operations
var (
	ErrCategoryNotFound   = errors.New("store: category not found")
	ErrCategoryNameExists = errors.New("store: category name already exists")
	ErrProductNotFound    = errors.New("store: product not found")
	ErrArticleNotFound    = errors.New("store: article not found")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

const (
	categoryColumns = "id, name, description, active, created_at, updated_at"
	productColumns  = "id, name, description, active, category_id, barcode, created_at, updated_at"
	articleColumns  = "id, name, description, active, price, product_id, created_at, updated_at"
)

// PostgresStore implements the CategoryStorer, ProductStorer and ArticleStorer interfaces using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner, c *domain.Category) error {
	return row.Scan(&c.ID, &c.Name, &c.Description, &c.Active, &c.CreatedAt, &c.UpdatedAt)
}

func scanProduct(row rowScanner, p *domain.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Description, &p.Active, &p.CategoryID, &p.Barcode, &p.CreatedAt, &p.UpdatedAt)
}

func scanArticle(row rowScanner, a *domain.Article) error {
	return row.Scan(&a.ID, &a.Name, &a.Description, &a.Active, &a.Price, &a.ProductID, &a.CreatedAt, &a.UpdatedAt)
}

func isPQError(err error, code string) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == code {
		return pqErr, true
	}
	return nil, false
}

// mapCategoryWriteError translates constraint violations raised by category writes.
func mapCategoryWriteError(op string, err error) error {
	if pqErr, ok := isPQError(err, pqUniqueViolation); ok {
		if strings.Contains(pqErr.Constraint, "categories_name_key") || strings.Contains(pqErr.Detail, "Key (name)") {
			return ErrCategoryNameExists
		}
	}
	return fmt.Errorf("store: %s failed to scan row: %w", op, err)
}

// listWhere builds the WHERE clause for list queries. parentColumn is empty when
// the resource has no parent filter.
func listWhere(params ListParams, parentColumn string) (string, []any) {
	var clauses []string
	var args []any
	if params.ActiveOnly {
		clauses = append(clauses, "active = TRUE")
	}
	if params.ParentID != nil && parentColumn != "" {
		args = append(args, *params.ParentID)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", parentColumn, len(args)))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// listQueries returns the count and page queries for table along with their arguments.
func listQueries(table, columns, parentColumn string, params ListParams) (string, string, []any, []any) {
	where, args := listWhere(params, parentColumn)
	countQuery := "SELECT COUNT(*) FROM " + table + where
	pageQuery := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id ASC LIMIT $%d OFFSET $%d",
		columns, table, where, len(args)+1, len(args)+2)
	var limit any = params.Limit
	if params.Limit <= 0 {
		limit = nil // LIMIT NULL returns every row
	}
	pageArgs := append(append([]any{}, args...), limit, params.Offset)
	return countQuery, pageQuery, args, pageArgs
}

// --- CategoryStorer Implementation ---

func (s *PostgresStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		INSERT INTO shop.categories (name, description, active)
		VALUES ($1, $2, $3)
		RETURNING ` + categoryColumns + `;`
	var created domain.Category
	if err := scanCategory(s.db.QueryRowContext(ctx, query, category.Name, category.Description, category.Active), &created); err != nil {
		return nil, mapCategoryWriteError("CreateCategory", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM shop.categories WHERE id = $1;`
	var category domain.Category
	if err := scanCategory(s.db.QueryRowContext(ctx, query, id), &category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to scan row: %w", err)
	}
	return &category, nil
}

// GetCategoryByName looks a category up by its exact name. Used for the
// uniqueness check before writes so the caller can report a field error.
func (s *PostgresStore) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM shop.categories WHERE name = $1;`
	var category domain.Category
	if err := scanCategory(s.db.QueryRowContext(ctx, query, name), &category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByName failed to scan row: %w", err)
	}
	return &category, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context, params ListParams) ([]domain.Category, int, error) {
	countQuery, pageQuery, countArgs, pageArgs := listQueries("shop.categories", categoryColumns, "", params)

	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories failed to count categories: %w", err)
	}
	if totalCount == 0 {
		return []domain.Category{}, 0, nil
	}

	rows, err := s.db.QueryContext(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, max(params.Limit, 0))
	for rows.Next() {
		var c domain.Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, 0, fmt.Errorf("store: ListCategories failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories iteration error: %w", err)
	}
	return categories, totalCount, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		UPDATE shop.categories
		SET name = $1, description = $2, active = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
		RETURNING ` + categoryColumns + `;`
	var updated domain.Category
	err := scanCategory(s.db.QueryRowContext(ctx, query, category.Name, category.Description, category.Active, category.ID), &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, mapCategoryWriteError("UpdateCategory", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "DeleteCategory", `DELETE FROM shop.categories WHERE id = $1;`, id, ErrCategoryNotFound)
}

// DisableCategory flips the category and its products to inactive atomically.
// Rows that are already inactive keep their updated_at.
func (s *PostgresStore) DisableCategory(ctx context.Context, id int64, policy domain.CascadePolicy) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: DisableCategory failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE shop.categories
		SET active = FALSE, updated_at = CASE WHEN active THEN CURRENT_TIMESTAMP ELSE updated_at END
		WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("store: DisableCategory failed to update category: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DisableCategory failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}

	if policy.Articles {
		if _, err := tx.ExecContext(ctx, `
		UPDATE shop.articles
		SET active = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE active AND product_id IN (SELECT id FROM shop.products WHERE category_id = $1);`, id); err != nil {
			return fmt.Errorf("store: DisableCategory failed to update articles: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE shop.products
		SET active = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE active AND category_id = $1;`, id); err != nil {
		return fmt.Errorf("store: DisableCategory failed to update products: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: DisableCategory failed to commit: %w", err)
	}
	return nil
}

// --- ProductStorer Implementation ---

func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		INSERT INTO shop.products (name, description, active, category_id, barcode)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + productColumns + `;`
	var created domain.Product
	err := scanProduct(s.db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Active, product.CategoryID, product.Barcode,
	), &created)
	if err != nil {
		if _, ok := isPQError(err, pqForeignKeyViolation); ok {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: CreateProduct failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM shop.products WHERE id = $1;`
	var product domain.Product
	if err := scanProduct(s.db.QueryRowContext(ctx, query, id), &product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}
	return &product, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, params ListParams) ([]domain.Product, int, error) {
	countQuery, pageQuery, countArgs, pageArgs := listQueries("shop.products", productColumns, "category_id", params)

	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to count products: %w", err)
	}
	if totalCount == 0 {
		return []domain.Product{}, 0, nil
	}

	rows, err := s.db.QueryContext(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, max(params.Limit, 0))
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, 0, fmt.Errorf("store: ListProducts failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts iteration error: %w", err)
	}
	return products, totalCount, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		UPDATE shop.products
		SET name = $1, description = $2, active = $3, category_id = $4, barcode = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING ` + productColumns + `;`
	var updated domain.Product
	err := scanProduct(s.db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Active, product.CategoryID, product.Barcode, product.ID,
	), &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		if _, ok := isPQError(err, pqForeignKeyViolation); ok {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: UpdateProduct failed to scan row: %w", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "DeleteProduct", `DELETE FROM shop.products WHERE id = $1;`, id, ErrProductNotFound)
}

func (s *PostgresStore) DisableProduct(ctx context.Context, id int64, policy domain.CascadePolicy) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: DisableProduct failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE shop.products
		SET active = FALSE, updated_at = CASE WHEN active THEN CURRENT_TIMESTAMP ELSE updated_at END
		WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("store: DisableProduct failed to update product: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DisableProduct failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	if policy.Articles {
		if _, err := tx.ExecContext(ctx, `
		UPDATE shop.articles
		SET active = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE active AND product_id = $1;`, id); err != nil {
			return fmt.Errorf("store: DisableProduct failed to update articles: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: DisableProduct failed to commit: %w", err)
	}
	return nil
}

// --- ArticleStorer Implementation ---

func (s *PostgresStore) CreateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	query := `
		INSERT INTO shop.articles (name, description, active, price, product_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + articleColumns + `;`
	var created domain.Article
	err := scanArticle(s.db.QueryRowContext(ctx, query,
		article.Name, article.Description, article.Active, article.Price, article.ProductID,
	), &created)
	if err != nil {
		if _, ok := isPQError(err, pqForeignKeyViolation); ok {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: CreateArticle failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetArticleByID(ctx context.Context, id int64) (*domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM shop.articles WHERE id = $1;`
	var article domain.Article
	if err := scanArticle(s.db.QueryRowContext(ctx, query, id), &article); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArticleNotFound
		}
		return nil, fmt.Errorf("store: GetArticleByID failed to scan row: %w", err)
	}
	return &article, nil
}

func (s *PostgresStore) ListArticles(ctx context.Context, params ListParams) ([]domain.Article, int, error) {
	countQuery, pageQuery, countArgs, pageArgs := listQueries("shop.articles", articleColumns, "product_id", params)

	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListArticles failed to count articles: %w", err)
	}
	if totalCount == 0 {
		return []domain.Article{}, 0, nil
	}

	rows, err := s.db.QueryContext(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListArticles failed to query articles: %w", err)
	}
	defer rows.Close()

	articles := make([]domain.Article, 0, max(params.Limit, 0))
	for rows.Next() {
		var a domain.Article
		if err := scanArticle(rows, &a); err != nil {
			return nil, 0, fmt.Errorf("store: ListArticles failed to scan article row: %w", err)
		}
		articles = append(articles, a)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListArticles iteration error: %w", err)
	}
	return articles, totalCount, nil
}

func (s *PostgresStore) UpdateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	query := `
		UPDATE shop.articles
		SET name = $1, description = $2, active = $3, price = $4, product_id = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING ` + articleColumns + `;`
	var updated domain.Article
	err := scanArticle(s.db.QueryRowContext(ctx, query,
		article.Name, article.Description, article.Active, article.Price, article.ProductID, article.ID,
	), &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArticleNotFound
		}
		if _, ok := isPQError(err, pqForeignKeyViolation); ok {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: UpdateArticle failed to scan row: %w", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteArticle(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "DeleteArticle", `DELETE FROM shop.articles WHERE id = $1;`, id, ErrArticleNotFound)
}

func (s *PostgresStore) deleteByID(ctx context.Context, op, query string, id int64, notFound error) error {
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: %s failed to execute delete: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: %s failed to get rows affected: %w", op, err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
