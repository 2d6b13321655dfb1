package catalog

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayala/bayala-stock/internal/platform/remote"
)

type stubFetcher struct {
	calls    atomic.Int32
	products []Product
	err      error
	delay    time.Duration
}

func (s *stubFetcher) GetJSON(ctx context.Context, path string, query url.Values, dest any) error {
	s.calls.Add(1)
	if path != remote.PathProducts {
		return errors.New("unexpected path " + path)
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return s.err
	}
	out := dest.(*[]Product)
	*out = append([]Product(nil), s.products...)
	return nil
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestLoadCachesProducts(t *testing.T) {
	cache, mr := newTestCache(t)
	fetcher := &stubFetcher{products: sampleProducts()}
	loader := NewLoader(fetcher, cache, nil)

	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Len())
	assert.True(t, mr.Exists(cacheKey))

	second, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, second.Len())
	assert.Equal(t, int32(1), fetcher.calls.Load())

	p, ok := second.Product(1)
	require.True(t, ok)
	assert.True(t, p.RentalPrice.Valid)
	assert.Equal(t, "60", p.RentalPrice.Decimal.String())
}

func TestRefreshBypassesCache(t *testing.T) {
	cache, _ := newTestCache(t)
	fetcher := &stubFetcher{products: sampleProducts()}
	loader := NewLoader(fetcher, cache, nil)

	_, err := loader.Load(context.Background())
	require.NoError(t, err)
	fetcher.products = fetcher.products[:1]

	refreshed, err := loader.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.Len())

	cached, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Len())
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	fetcher := &stubFetcher{products: sampleProducts(), delay: 100 * time.Millisecond}
	loader := NewLoader(fetcher, NewCache(nil, 0), nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := loader.Load(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 3, c.Len())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestLoadPropagatesRemoteError(t *testing.T) {
	fetcher := &stubFetcher{err: remote.ErrUnauthorized}
	loader := NewLoader(fetcher, nil, nil)

	_, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, remote.ErrUnauthorized)
}
