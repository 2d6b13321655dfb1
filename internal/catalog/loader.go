package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/sync/singleflight"

	"github.com/bayala/bayala-stock/internal/platform/remote"
)

// Fetcher is the subset of the remote client used by the loader.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, query url.Values, dest any) error
}

// Loader fetches the catalog once per screen load, preferring the cache.
type Loader struct {
	fetcher Fetcher
	cache   *Cache
	logger  *slog.Logger
	group   singleflight.Group
}

// NewLoader wires the loader dependencies.
func NewLoader(fetcher Fetcher, cache *Cache, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetcher: fetcher, cache: cache, logger: logger}
}

// Load returns the cached catalog or fetches it from the remote service.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	products, ok, err := l.cache.Load(ctx)
	if err != nil {
		l.logger.Warn("catalog cache read failed", slog.Any("error", err))
	}
	if ok {
		return New(products), nil
	}
	return l.Refresh(ctx)
}

// Refresh bypasses the cache, fetches the product list and writes it back.
// Concurrent callers share one remote request.
func (l *Loader) Refresh(ctx context.Context) (*Catalog, error) {
	resultChan := l.group.DoChan("products", func() (interface{}, error) {
		return l.fetch(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return New(res.Val.([]Product)), nil
	}
}

func (l *Loader) fetch(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := l.fetcher.GetJSON(ctx, remote.PathProducts, nil, &products); err != nil {
		return nil, fmt.Errorf("catalog: load products: %w", err)
	}
	if err := l.cache.Store(ctx, products); err != nil {
		l.logger.Warn("catalog cache write failed", slog.Any("error", err))
	}
	l.logger.Info("catalog loaded", slog.Int("products", len(products)))
	return products, nil
}
