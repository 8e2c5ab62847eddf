package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MinArticlePrice is the lowest price an article may carry.
var MinArticlePrice = decimal.NewFromInt(1)

// Category is the top-level grouping of products.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"date_created"`
	UpdatedAt   time.Time `json:"date_updated"`
}

// Product is a sellable item belonging to exactly one category.
// Barcode is the key used for the eco-score lookup; nil when unknown.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CategoryID  int64     `json:"category_id"`
	Barcode     *string   `json:"barcode,omitempty"`
	CreatedAt   time.Time `json:"date_created"`
	UpdatedAt   time.Time `json:"date_updated"`
}

// Article is a priced variant of a product.
type Article struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Active      bool            `json:"active"`
	Price       decimal.Decimal `json:"price"`
	ProductID   int64           `json:"product_id"`
	CreatedAt   time.Time       `json:"date_created"`
	UpdatedAt   time.Time       `json:"date_updated"`
}

// CascadePolicy controls how far a disable action propagates.
type CascadePolicy struct {
	// Articles extends the cascade to the articles of every product disabled.
	Articles bool
}
