package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"shop-catalog-service/internal/domain"
	"shop-catalog-service/internal/store"
)

const (
	msgRequired             = "This field is required."
	msgCategoryNameTaken    = "category with this name already exists."
	msgNameNotInDescription = "The category name must appear in its description."
	msgPriceFloor           = "Ensure this value is greater than or equal to 1."
	msgPriceDigits          = "Ensure that there are no more than 6 digits in total and no more than 2 decimal places."
	msgInactiveProduct      = "Articles can only be added to an active product."
)

// maxArticlePrice is the first value that no longer fits NUMERIC(6,2).
var maxArticlePrice = decimal.NewFromInt(10000)

func msgUnknownPK(id int64) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}

// CategoryInput is the write payload of the admin category endpoints.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// ProductInput is the write payload of the admin product endpoints.
type ProductInput struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description"`
	Active      bool    `json:"active"`
	CategoryID  int64   `json:"category_id" validate:"required,gt=0"`
	Barcode     *string `json:"barcode" validate:"omitempty,number,max=32"`
}

// ArticleInput is the write payload of the admin article endpoints.
type ArticleInput struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description"`
	Active      bool             `json:"active"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	ProductID   int64            `json:"product_id" validate:"required,gt=0"`
}

// fieldErrors collects validation messages per JSON field.
type fieldErrors map[string][]string

func (fe fieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

func (fe fieldErrors) has(field string) bool {
	return len(fe[field]) > 0
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// structErrors runs the tag rules on input and converts failures into field messages.
func (h *HTTPHandler) structErrors(input any) fieldErrors {
	errs := fieldErrors{}
	err := h.validate.Struct(input)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.add("non_field_errors", err.Error())
		return errs
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			errs.add(fe.Field(), msgRequired)
		case "gt":
			errs.add(fe.Field(), fmt.Sprintf("Ensure this value is greater than %s.", fe.Param()))
		case "max":
			errs.add(fe.Field(), fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param()))
		case "number":
			errs.add(fe.Field(), "Enter a valid barcode.")
		default:
			errs.add(fe.Field(), fmt.Sprintf("Failed on the '%s' rule.", fe.Tag()))
		}
	}
	return errs
}

// clean strips markup from free text. StrictPolicy escapes what it keeps, so
// entities are decoded back to plain text before storage.
func (h *HTTPHandler) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(h.sanitizer.Sanitize(s)))
}

func newSanitizer() *bluemonday.Policy {
	return bluemonday.StrictPolicy()
}

// decodeInput decodes the request body on top of dst, so fields absent from
// the payload keep the values dst already holds.
func decodeInput(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// validateCategory cleans in and checks the shape, uniqueness and SEO rules.
// selfID is the category being updated, or 0 on create.
func (h *HTTPHandler) validateCategory(ctx context.Context, selfID int64, in *CategoryInput) (fieldErrors, error) {
	in.Name = h.clean(in.Name)
	in.Description = h.clean(in.Description)

	errs := h.structErrors(in)
	if errs.has("name") {
		return errs, nil
	}

	existing, err := h.categoryStore.GetCategoryByName(ctx, in.Name)
	switch {
	case err == nil && existing.ID != selfID:
		errs.add("name", msgCategoryNameTaken)
	case err != nil && !errors.Is(err, store.ErrCategoryNotFound):
		return nil, err
	}

	if !strings.Contains(strings.ToLower(in.Description), strings.ToLower(in.Name)) {
		errs.add("description", msgNameNotInDescription)
	}
	return errs, nil
}

// validateProduct cleans in and checks that the referenced category exists.
func (h *HTTPHandler) validateProduct(ctx context.Context, in *ProductInput) (fieldErrors, error) {
	in.Name = h.clean(in.Name)
	in.Description = h.clean(in.Description)
	if in.Barcode != nil {
		trimmed := strings.TrimSpace(*in.Barcode)
		in.Barcode = &trimmed
		if trimmed == "" {
			in.Barcode = nil
		}
	}

	errs := h.structErrors(in)
	if errs.has("category_id") {
		return errs, nil
	}

	if _, err := h.categoryStore.GetCategoryByID(ctx, in.CategoryID); err != nil {
		if !errors.Is(err, store.ErrCategoryNotFound) {
			return nil, err
		}
		errs.add("category_id", msgUnknownPK(in.CategoryID))
	}
	return errs, nil
}

// validateArticle cleans in and checks the price floor and the product.
// checkActive is set when the article is being attached to a product, i.e.
// on create or when product_id changes.
func (h *HTTPHandler) validateArticle(ctx context.Context, in *ArticleInput, checkActive bool) (fieldErrors, error) {
	in.Name = h.clean(in.Name)
	in.Description = h.clean(in.Description)

	errs := h.structErrors(in)

	if in.Price != nil {
		switch {
		case in.Price.LessThan(domain.MinArticlePrice):
			errs.add("price", msgPriceFloor)
		case !in.Price.LessThan(maxArticlePrice) || !in.Price.Equal(in.Price.Round(2)):
			errs.add("price", msgPriceDigits)
		}
	}

	if errs.has("product_id") {
		return errs, nil
	}

	product, err := h.productStore.GetProductByID(ctx, in.ProductID)
	switch {
	case errors.Is(err, store.ErrProductNotFound):
		errs.add("product_id", msgUnknownPK(in.ProductID))
	case err != nil:
		return nil, err
	case checkActive && !product.Active:
		errs.add("product_id", msgInactiveProduct)
	}
	return errs, nil
}
