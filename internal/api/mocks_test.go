package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shop-catalog-service/internal/auth"
	"shop-catalog-service/internal/domain"
	"shop-catalog-service/internal/ecoscore"
	"shop-catalog-service/internal/store"
)

// MockCategoryStorer is a mock implementation of store.CategoryStorer
type MockCategoryStorer struct {
	mock.Mock
}

func (m *MockCategoryStorer) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) ListCategories(ctx context.Context, params store.ListParams) ([]domain.Category, int, error) {
	args := m.Called(ctx, params)
	var categories []domain.Category
	if arg0 := args.Get(0); arg0 != nil {
		categories = arg0.([]domain.Category)
	}
	return categories, args.Int(1), args.Error(2)
}

func (m *MockCategoryStorer) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) DeleteCategory(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCategoryStorer) DisableCategory(ctx context.Context, id int64, policy domain.CascadePolicy) error {
	args := m.Called(ctx, id, policy)
	return args.Error(0)
}

// MockProductStorer is a mock implementation of store.ProductStorer
type MockProductStorer struct {
	mock.Mock
}

func (m *MockProductStorer) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) ListProducts(ctx context.Context, params store.ListParams) ([]domain.Product, int, error) {
	args := m.Called(ctx, params)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Int(1), args.Error(2)
}

func (m *MockProductStorer) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) DeleteProduct(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductStorer) DisableProduct(ctx context.Context, id int64, policy domain.CascadePolicy) error {
	args := m.Called(ctx, id, policy)
	return args.Error(0)
}

// MockArticleStorer is a mock implementation of store.ArticleStorer
type MockArticleStorer struct {
	mock.Mock
}

func (m *MockArticleStorer) CreateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	args := m.Called(ctx, article)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Article), args.Error(1)
}

func (m *MockArticleStorer) GetArticleByID(ctx context.Context, id int64) (*domain.Article, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Article), args.Error(1)
}

func (m *MockArticleStorer) ListArticles(ctx context.Context, params store.ListParams) ([]domain.Article, int, error) {
	args := m.Called(ctx, params)
	var articles []domain.Article
	if arg0 := args.Get(0); arg0 != nil {
		articles = arg0.([]domain.Article)
	}
	return articles, args.Int(1), args.Error(2)
}

func (m *MockArticleStorer) UpdateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	args := m.Called(ctx, article)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Article), args.Error(1)
}

func (m *MockArticleStorer) DeleteArticle(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// stubEnricher returns a fixed grade for every product.
type stubEnricher struct {
	grade *string
}

func (s stubEnricher) EcoScore(context.Context, domain.Product) *string {
	return s.grade
}

// blockingEnricher simulates an upstream that never answers: every lookup
// waits for its context to end and yields no grade.
type blockingEnricher struct {
	calls atomic.Int32
}

func (b *blockingEnricher) EcoScore(ctx context.Context, _ domain.Product) *string {
	b.calls.Add(1)
	<-ctx.Done()
	return nil
}

const testJWTSecret = "test-secret"

// fixedTime renders as 2024-05-17T09:30:00.123456Z.
var fixedTime = time.Date(2024, 5, 17, 9, 30, 0, 123456000, time.UTC)

const fixedTimeString = "2024-05-17T09:30:00.123456Z"

type testEnv struct {
	server     *httptest.Server
	categories *MockCategoryStorer
	products   *MockProductStorer
	articles   *MockArticleStorer
	tokens     *auth.TokenManager
}

// Helper for setting up tests with a chi router and handler
func setupTestChiServer(t *testing.T, enricher ecoscore.Enricher, opts Options) *testEnv {
	t.Helper()
	return setupEnrichedTestServer(t, enricher, opts, EnrichOptions{})
}

func setupEnrichedTestServer(t *testing.T, enricher ecoscore.Enricher, opts Options, limits EnrichOptions) *testEnv {
	t.Helper()
	env := &testEnv{
		categories: new(MockCategoryStorer),
		products:   new(MockProductStorer),
		articles:   new(MockArticleStorer),
		tokens:     auth.NewTokenManager(testJWTSecret, time.Hour),
	}
	renderer := NewRenderer(env.products, env.articles, enricher, limits)
	handler := NewHTTPHandler(env.categories, env.products, env.articles, renderer, env.tokens, nil, opts)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) assertExpectations(t *testing.T) {
	e.categories.AssertExpectations(t)
	e.products.AssertExpectations(t)
	e.articles.AssertExpectations(t)
}

func (e *testEnv) token(t *testing.T, superuser, staff bool) string {
	t.Helper()
	token, err := e.tokens.Issue("tester", superuser, staff)
	require.NoError(t, err)
	return token
}

func (e *testEnv) adminToken(t *testing.T) string {
	return e.token(t, true, false)
}

// do sends a request with an optional JSON body and bearer token.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decodeBody[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

// PtrTo returns a pointer to v.
func PtrTo[T any](v T) *T {
	return &v
}
