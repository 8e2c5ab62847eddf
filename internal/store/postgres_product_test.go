package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"shop-catalog-service/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productRowColumns = []string{"id", "name", "description", "active", "category_id", "barcode", "created_at", "updated_at"}

func TestPostgresStore_CreateProduct(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	barcode := "3229820787015"
	toCreate := &domain.Product{Name: "Abricot", Description: "Juteux et gorgé de soleil", Active: true, CategoryID: 1, Barcode: &barcode}

	query := regexp.QuoteMeta(`
		INSERT INTO shop.products (name, description, active, category_id, barcode)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, description, active, category_id, barcode, created_at, updated_at;
	`)
	mock.ExpectQuery(query).
		WithArgs(toCreate.Name, toCreate.Description, true, int64(1), barcode).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(int64(10), toCreate.Name, toCreate.Description, true, int64(1), barcode, now, now))

	created, err := store.CreateProduct(context.Background(), toCreate)

	require.NoError(t, err)
	assert.Equal(t, int64(10), created.ID)
	require.NotNil(t, created.Barcode)
	assert.Equal(t, barcode, *created.Barcode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateProduct_UnknownCategory(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO shop.products`)).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "products_category_id_fkey"})

	_, err := store.CreateProduct(context.Background(), &domain.Product{Name: "Abricot", CategoryID: 404})

	assert.True(t, errors.Is(err, ErrCategoryNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProductByID_NullBarcode(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, description, active, category_id, barcode, created_at, updated_at FROM shop.products WHERE id = $1;`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(productRowColumns).AddRow(int64(3), "Orange", "", false, int64(1), nil, now, now))

	product, err := store.GetProductByID(context.Background(), 3)

	require.NoError(t, err)
	assert.Nil(t, product.Barcode)
	assert.False(t, product.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProductByID_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM shop.products WHERE id = $1;`)).WillReturnError(sql.ErrNoRows)

	_, err := store.GetProductByID(context.Background(), 3)

	assert.True(t, errors.Is(err, ErrProductNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProducts_FilterByCategory(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	categoryID := int64(1)
	params := ListParams{Limit: 100, Offset: 0, ActiveOnly: true, ParentID: &categoryID}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM shop.products WHERE active = TRUE AND category_id = $1`)).
		WithArgs(categoryID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM shop.products WHERE active = TRUE AND category_id = $1 ORDER BY id ASC LIMIT $2 OFFSET $3`)).
		WithArgs(categoryID, 100, 0).
		WillReturnRows(sqlmock.NewRows(productRowColumns).AddRow(int64(10), "Abricot", "", true, categoryID, nil, now, now))

	products, total, err := store.ListProducts(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.Equal(t, "Abricot", products[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateProduct_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE shop.products SET name = $1`)).WillReturnError(sql.ErrNoRows)

	_, err := store.UpdateProduct(context.Background(), &domain.Product{ID: 8, Name: "Tomate", CategoryID: 1})

	assert.True(t, errors.Is(err, ErrProductNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteProduct_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM shop.products WHERE id = $1;`)).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteProduct(context.Background(), 8)

	assert.True(t, errors.Is(err, ErrProductNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DisableProduct(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE shop.products SET active = FALSE`)).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.DisableProduct(context.Background(), 10, domain.CascadePolicy{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DisableProduct_WithArticles(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE shop.products SET active = FALSE`)).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE shop.articles SET active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE active AND product_id = $1;`)).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, store.DisableProduct(context.Background(), 10, domain.CascadePolicy{Articles: true}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DisableProduct_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE shop.products SET active = FALSE`)).
		WithArgs(int64(77)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.DisableProduct(context.Background(), 77, domain.CascadePolicy{})

	assert.True(t, errors.Is(err, ErrProductNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}
