// Package stock checks requested quantities against available stock before
// a draft is submitted.
package stock

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/bayala/bayala-stock/internal/platform/remote"
)

// Query looks up the available quantity of a single product.
type Query interface {
	Available(ctx context.Context, productID int64) (int, error)
}

// Fetcher is the subset of the remote client used by Client.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, query url.Values, dest any) error
}

// Client queries GET /stock/available.
type Client struct {
	fetcher Fetcher
}

// NewClient creates a new stock client.
func NewClient(fetcher Fetcher) *Client {
	return &Client{fetcher: fetcher}
}

type availabilityResponse struct {
	QuantityAvailable *int `json:"quantityAvailable"`
}

// Available returns the available quantity. A missing field counts as zero.
func (c *Client) Available(ctx context.Context, productID int64) (int, error) {
	var resp availabilityResponse
	query := url.Values{"productId": {strconv.FormatInt(productID, 10)}}
	if err := c.fetcher.GetJSON(ctx, remote.PathStockAvailable, query, &resp); err != nil {
		return 0, fmt.Errorf("stock: available for product %d: %w", productID, err)
	}
	if resp.QuantityAvailable == nil {
		return 0, nil
	}
	return *resp.QuantityAvailable, nil
}
