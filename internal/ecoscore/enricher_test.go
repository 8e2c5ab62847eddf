package ecoscore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-catalog-service/internal/domain"
)

type fakeFetcher struct {
	grade string
	err   error
	calls []string
}

func (f *fakeFetcher) Grade(_ context.Context, barcode string) (string, error) {
	f.calls = append(f.calls, barcode)
	return f.grade, f.err
}

func strPtr(s string) *string { return &s }

func TestService_EcoScore_UsesBarcodeAndCaches(t *testing.T) {
	fetcher := &fakeFetcher{grade: "b"}
	svc := NewService(fetcher, newTestCache(t), time.Hour, "", nil)
	product := domain.Product{ID: 1, Barcode: strPtr("5449000000996")}

	first := svc.EcoScore(context.Background(), product)
	second := svc.EcoScore(context.Background(), product)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, "b", *first)
	assert.Equal(t, "b", *second)
	assert.Equal(t, []string{"5449000000996"}, fetcher.calls)
}

func TestService_EcoScore_FallsBackToDefaultBarcode(t *testing.T) {
	fetcher := &fakeFetcher{grade: "e"}
	svc := NewService(fetcher, nil, time.Hour, "3017620422003", nil)

	got := svc.EcoScore(context.Background(), domain.Product{ID: 2})

	require.NotNil(t, got)
	assert.Equal(t, "e", *got)
	assert.Equal(t, []string{"3017620422003"}, fetcher.calls)
}

func TestService_EcoScore_NoKeyNoCall(t *testing.T) {
	fetcher := &fakeFetcher{grade: "a"}
	svc := NewService(fetcher, nil, time.Hour, "", nil)

	assert.Nil(t, svc.EcoScore(context.Background(), domain.Product{ID: 3}))
	assert.Empty(t, fetcher.calls)
}

func TestService_EcoScore_FailureIsNull(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	c := newTestCache(t)
	svc := NewService(fetcher, c, time.Hour, "", nil)
	product := domain.Product{ID: 4, Barcode: strPtr("42")}

	assert.Nil(t, svc.EcoScore(context.Background(), product))

	_, found, err := c.Get(context.Background(), "42")
	require.NoError(t, err)
	assert.False(t, found, "failed lookups must not be cached")
}

func TestService_EcoScore_MissingGradeIsNull(t *testing.T) {
	svc := NewService(&fakeFetcher{}, nil, time.Hour, "", nil)

	assert.Nil(t, svc.EcoScore(context.Background(), domain.Product{ID: 5, Barcode: strPtr("7")}))
}

func TestDisabled_EcoScore(t *testing.T) {
	assert.Nil(t, Disabled{}.EcoScore(context.Background(), domain.Product{Barcode: strPtr("1")}))
}

func TestService_EcoScore_ExpiredContextSkipsLookup(t *testing.T) {
	fetcher := &fakeFetcher{grade: "a"}
	svc := NewService(fetcher, nil, time.Hour, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Nil(t, svc.EcoScore(ctx, domain.Product{ID: 1, Barcode: strPtr("3017620422003")}))
	assert.Empty(t, fetcher.calls)
}
