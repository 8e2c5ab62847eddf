package ecoscore

import (
	"context"
	"time"

	"shop-catalog-service/internal/domain"
	"shop-catalog-service/internal/logger"
)

// Enricher resolves the eco-score of a product. It never fails: any problem
// yields nil, which the API renders as null.
type Enricher interface {
	EcoScore(ctx context.Context, product domain.Product) *string
}

// GradeFetcher is the remote lookup used by Service.
type GradeFetcher interface {
	Grade(ctx context.Context, barcode string) (string, error)
}

// Service combines the remote client and the local cache.
type Service struct {
	fetcher        GradeFetcher
	cache          *Cache
	ttl            time.Duration
	defaultBarcode string
	log            logger.Logger
}

// NewService creates a Service. cache may be nil, in which case every lookup
// goes to the fetcher.
func NewService(fetcher GradeFetcher, cache *Cache, ttl time.Duration, defaultBarcode string, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		fetcher:        fetcher,
		cache:          cache,
		ttl:            ttl,
		defaultBarcode: defaultBarcode,
		log:            log,
	}
}

// EcoScore returns the grade for product, or nil when it has no lookup key,
// the product has no grade upstream, or the lookup fails.
func (s *Service) EcoScore(ctx context.Context, product domain.Product) *string {
	barcode := s.defaultBarcode
	if product.Barcode != nil && *product.Barcode != "" {
		barcode = *product.Barcode
	}
	if barcode == "" {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	log := s.log.With(map[string]interface{}{"product_id": product.ID, "barcode": barcode})

	if s.cache != nil {
		grade, found, err := s.cache.Get(ctx, barcode)
		if err != nil {
			log.Error(err, "eco-score cache read failed")
		} else if found {
			return gradePtr(grade)
		}
	}

	grade, err := s.fetcher.Grade(ctx, barcode)
	if err != nil {
		log.Warn("eco-score lookup failed: " + err.Error())
		return nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, barcode, grade, s.ttl); err != nil {
			log.Error(err, "eco-score cache write failed")
		}
	}
	return gradePtr(grade)
}

func gradePtr(grade string) *string {
	if grade == "" {
		return nil
	}
	return &grade
}

// Disabled is an Enricher that never performs a lookup.
type Disabled struct{}

// EcoScore always returns nil.
func (Disabled) EcoScore(context.Context, domain.Product) *string { return nil }
