package api

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"shop-catalog-service/internal/domain"
	"shop-catalog-service/internal/ecoscore"
	"shop-catalog-service/internal/store"
)

// TimestampLayout is the wire format of date_created and date_updated.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func formatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Operation selects which schema a resource is rendered with.
type Operation int

const (
	OpList Operation = iota
	OpDetail
	OpAdmin
)

func (op Operation) String() string {
	switch op {
	case OpList:
		return "list"
	case OpDetail:
		return "detail"
	case OpAdmin:
		return "admin"
	}
	return fmt.Sprintf("operation(%d)", int(op))
}

type CategoryListSchema struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DateCreated string `json:"date_created"`
	DateUpdated string `json:"date_updated"`
}

type CategoryDetailSchema struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Products    []ProductDetailSchema `json:"products"`
	DateCreated string                `json:"date_created"`
	DateUpdated string                `json:"date_updated"`
}

type ProductListSchema struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Ecoscore    *string `json:"ecoscore"`
	DateCreated string  `json:"date_created"`
	DateUpdated string  `json:"date_updated"`
}

type ProductDetailSchema struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Ecoscore    *string         `json:"ecoscore"`
	CategoryID  int64           `json:"category_id"`
	Articles    []ArticleSchema `json:"articles"`
	DateCreated string          `json:"date_created"`
	DateUpdated string          `json:"date_updated"`
}

// ArticleSchema is shared by the article list, the article detail and the
// rows nested in a product detail.
type ArticleSchema struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ProductID   int64  `json:"product_id"`
	DateCreated string `json:"date_created"`
	DateUpdated string `json:"date_updated"`
}

type AdminCategorySchema struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
	DateCreated string `json:"date_created"`
	DateUpdated string `json:"date_updated"`
}

type AdminProductSchema struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Active      bool    `json:"active"`
	CategoryID  int64   `json:"category_id"`
	Barcode     *string `json:"barcode"`
	DateCreated string  `json:"date_created"`
	DateUpdated string  `json:"date_updated"`
}

type AdminArticleSchema struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
	Price       string `json:"price"`
	ProductID   int64  `json:"product_id"`
	DateCreated string `json:"date_created"`
	DateUpdated string `json:"date_updated"`
}

const (
	defaultEnrichBudget  = 3 * time.Second
	defaultEnrichWorkers = 8
)

// EnrichOptions bounds the eco-score lookups of a single render call.
type EnrichOptions struct {
	// Budget is the deadline shared by every lookup of the call.
	Budget time.Duration
	// Workers caps the lookups in flight at once.
	Workers int
}

// Renderer maps (resource, operation) to a fixed schema. Detail schemas pull
// their active children from the stores, one query per nested collection.
type Renderer struct {
	productStore store.ProductStorer
	articleStore store.ArticleStorer
	enricher     ecoscore.Enricher
	enrich       EnrichOptions
}

// NewRenderer creates a Renderer. A nil enricher renders every ecoscore as null.
func NewRenderer(ps store.ProductStorer, as store.ArticleStorer, enricher ecoscore.Enricher, opts EnrichOptions) *Renderer {
	if enricher == nil {
		enricher = ecoscore.Disabled{}
	}
	if opts.Budget <= 0 {
		opts.Budget = defaultEnrichBudget
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultEnrichWorkers
	}
	return &Renderer{productStore: ps, articleStore: as, enricher: enricher, enrich: opts}
}

func (rd *Renderer) Category(ctx context.Context, op Operation, c domain.Category) (any, error) {
	switch op {
	case OpList:
		return CategoryListSchema{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			DateCreated: formatTimestamp(c.CreatedAt),
			DateUpdated: formatTimestamp(c.UpdatedAt),
		}, nil
	case OpDetail:
		return rd.categoryDetail(ctx, c)
	case OpAdmin:
		return AdminCategorySchema{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Active:      c.Active,
			DateCreated: formatTimestamp(c.CreatedAt),
			DateUpdated: formatTimestamp(c.UpdatedAt),
		}, nil
	}
	return nil, fmt.Errorf("api: no category schema for %s", op)
}

func (rd *Renderer) Categories(ctx context.Context, op Operation, categories []domain.Category) ([]any, error) {
	return renderEach(ctx, op, categories, rd.Category)
}

func (rd *Renderer) Product(ctx context.Context, op Operation, p domain.Product) (any, error) {
	out, err := rd.Products(ctx, op, []domain.Product{p})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Products renders a batch of products. The eco-scores of the batch are
// resolved together under one deadline.
func (rd *Renderer) Products(ctx context.Context, op Operation, products []domain.Product) ([]any, error) {
	var grades []*string
	switch op {
	case OpList, OpDetail:
		grades = rd.ecoscores(ctx, products)
	case OpAdmin:
	default:
		return nil, fmt.Errorf("api: no product schema for %s", op)
	}

	out := make([]any, 0, len(products))
	for i, p := range products {
		switch op {
		case OpList:
			out = append(out, ProductListSchema{
				ID:          p.ID,
				Name:        p.Name,
				Ecoscore:    grades[i],
				DateCreated: formatTimestamp(p.CreatedAt),
				DateUpdated: formatTimestamp(p.UpdatedAt),
			})
		case OpDetail:
			detail, err := rd.productDetail(ctx, p, grades[i])
			if err != nil {
				return nil, err
			}
			out = append(out, detail)
		case OpAdmin:
			out = append(out, AdminProductSchema{
				ID:          p.ID,
				Name:        p.Name,
				Description: p.Description,
				Active:      p.Active,
				CategoryID:  p.CategoryID,
				Barcode:     p.Barcode,
				DateCreated: formatTimestamp(p.CreatedAt),
				DateUpdated: formatTimestamp(p.UpdatedAt),
			})
		}
	}
	return out, nil
}

// ecoscores looks up the grade of every product, at most enrich.Workers at a
// time. All lookups share one deadline: once it passes, the ones still
// queued return nil straight away.
func (rd *Renderer) ecoscores(ctx context.Context, products []domain.Product) []*string {
	grades := make([]*string, len(products))
	if len(products) == 0 {
		return grades
	}
	ctx, cancel := context.WithTimeout(ctx, rd.enrich.Budget)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(rd.enrich.Workers)
	for i, p := range products {
		i, p := i, p
		g.Go(func() error {
			grades[i] = rd.enricher.EcoScore(ctx, p)
			return nil
		})
	}
	_ = g.Wait() // EcoScore never fails
	return grades
}

func (rd *Renderer) Article(_ context.Context, op Operation, a domain.Article) (any, error) {
	switch op {
	case OpList, OpDetail:
		return articleRow(a), nil
	case OpAdmin:
		return AdminArticleSchema{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Active:      a.Active,
			Price:       formatPrice(a.Price),
			ProductID:   a.ProductID,
			DateCreated: formatTimestamp(a.CreatedAt),
			DateUpdated: formatTimestamp(a.UpdatedAt),
		}, nil
	}
	return nil, fmt.Errorf("api: no article schema for %s", op)
}

func (rd *Renderer) Articles(ctx context.Context, op Operation, articles []domain.Article) ([]any, error) {
	return renderEach(ctx, op, articles, rd.Article)
}

func renderEach[T any](ctx context.Context, op Operation, items []T, render func(context.Context, Operation, T) (any, error)) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		rendered, err := render(ctx, op, item)
		if err != nil {
			return nil, err
		}
		out = append(out, rendered)
	}
	return out, nil
}

func articleRow(a domain.Article) ArticleSchema {
	return ArticleSchema{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Price:       formatPrice(a.Price),
		ProductID:   a.ProductID,
		DateCreated: formatTimestamp(a.CreatedAt),
		DateUpdated: formatTimestamp(a.UpdatedAt),
	}
}

func (rd *Renderer) categoryDetail(ctx context.Context, c domain.Category) (CategoryDetailSchema, error) {
	products, _, err := rd.productStore.ListProducts(ctx, store.ListParams{ActiveOnly: true, ParentID: &c.ID})
	if err != nil {
		return CategoryDetailSchema{}, fmt.Errorf("api: products of category %d: %w", c.ID, err)
	}

	grades := rd.ecoscores(ctx, products)
	nested := make([]ProductDetailSchema, 0, len(products))
	for i, p := range products {
		detail, err := rd.productDetail(ctx, p, grades[i])
		if err != nil {
			return CategoryDetailSchema{}, err
		}
		nested = append(nested, detail)
	}

	return CategoryDetailSchema{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Products:    nested,
		DateCreated: formatTimestamp(c.CreatedAt),
		DateUpdated: formatTimestamp(c.UpdatedAt),
	}, nil
}

func (rd *Renderer) productDetail(ctx context.Context, p domain.Product, grade *string) (ProductDetailSchema, error) {
	articles, _, err := rd.articleStore.ListArticles(ctx, store.ListParams{ActiveOnly: true, ParentID: &p.ID})
	if err != nil {
		return ProductDetailSchema{}, fmt.Errorf("api: articles of product %d: %w", p.ID, err)
	}

	rows := make([]ArticleSchema, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, articleRow(a))
	}

	return ProductDetailSchema{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Ecoscore:    grade,
		CategoryID:  p.CategoryID,
		Articles:    rows,
		DateCreated: formatTimestamp(p.CreatedAt),
		DateUpdated: formatTimestamp(p.UpdatedAt),
	}, nil
}
