// Package remote is the JSON-over-HTTP client for the stock and order service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Endpoints consumed from the remote service.
const (
	PathProducts       = "/products-lite"
	PathStockAvailable = "/stock/available"
	PathOrders         = "/orders"
	PathQuotations     = "/quotations"
)

// Listing filters accepted by PathOrders and PathQuotations. Both bounds are
// inclusive calendar days.
const (
	ParamFrom  = "from"
	ParamTo    = "to"
	DateLayout = "2006-01-02"
)

// DateRange encodes a day range as listing query parameters. Zero bounds
// are left out.
func DateRange(from, to time.Time) url.Values {
	q := url.Values{}
	if !from.IsZero() {
		q.Set(ParamFrom, from.Format(DateLayout))
	}
	if !to.IsZero() {
		q.Set(ParamTo, to.Format(DateLayout))
	}
	return q
}

// ErrUnauthorized signals a 401 from the remote service. Handling it (re-login)
// belongs to the auth collaborator.
var ErrUnauthorized = errors.New("remote: credential rejected")

const maxErrorBody = 64 << 10

// StatusError is returned for every non-2xx response other than 401.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %s %s returned status %d", e.Method, e.Path, e.Status)
}

// ServerFault reports whether the failure is on the server side (5xx).
func (e *StatusError) ServerFault() bool {
	return e.Status >= http.StatusInternalServerError
}

// Authorizer attaches the bearer credential to outgoing requests.
type Authorizer interface {
	Authorize(r *http.Request) error
}

// Client wraps interactions with the remote service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       Authorizer
}

// NewClient constructs a client. A zero timeout falls back to 15s so no
// request can hang forever.
func NewClient(baseURL string, timeout time.Duration, auth Authorizer) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		auth: auth,
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// GetJSON issues a GET and decodes the JSON response into dest.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dest any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, dest)
}

// PostJSON encodes body, issues a POST and decodes the JSON response into dest.
func (c *Client) PostJSON(ctx context.Context, path string, body, dest any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, dest)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return fmt.Errorf("remote: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		if err := c.auth.Authorize(req); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: raw}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("remote: decode %s %s: %w", method, path, err)
	}
	return nil
}
