package invoice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayala/bayala-stock/internal/platform/remote"
	"github.com/bayala/bayala-stock/internal/sales/lineitems"
	"github.com/bayala/bayala-stock/internal/sales/orders"
	"github.com/bayala/bayala-stock/internal/sales/pricing"
)

type stubFetcher struct {
	path  string
	query url.Values
	body  string
}

func (s *stubFetcher) GetJSON(_ context.Context, path string, query url.Values, dest any) error {
	s.path = path
	s.query = query
	return json.Unmarshal([]byte(s.body), dest)
}

const quotationDetail = `{
	"id": 12,
	"number": "COT-0012",
	"createdAt": "2024-03-20T10:00:00Z",
	"client": {"name": "Ana Macuácua", "taxId": "400549109"},
	"total": 301.6,
	"lineItems": [
		{"quantity": 2, "type": "sale", "product": {"id": 1, "name": "Cadeira", "salePrice": 100, "rentalPrice": 60}},
		{"quantity": 1, "type": "aluguer", "product": {"id": 2, "name": "Mesa", "salePrice": "250.00", "rentalPrice": "60"}}
	]
}`

func newProjector(t *testing.T, f Fetcher) *Projector {
	t.Helper()
	p, err := NewProjector(f, Options{Locale: "en", Currency: "MZN"}, nil)
	require.NoError(t, err)
	return p
}

func TestProjectQuotationRecomputesTotals(t *testing.T) {
	f := &stubFetcher{body: quotationDetail}
	doc, err := newProjector(t, f).Project(context.Background(), orders.Quotation, "12")
	require.NoError(t, err)

	assert.Equal(t, "/quotations/12", f.path)
	assert.Equal(t, "12", doc.ID)
	assert.Equal(t, "COT-0012", doc.Number)
	assert.True(t, doc.Totals.Subtotal.Equal(decimal.NewFromInt(260)))
	assert.True(t, doc.Totals.Tax.Equal(decimal.RequireFromString("41.6")))
	assert.True(t, doc.Totals.Total.Equal(decimal.RequireFromString("301.6")))
	assert.False(t, doc.TotalMismatch)
	assert.Equal(t, TaxLabel, doc.TaxLabel)

	require.Len(t, doc.Lines, 2)
	assert.Equal(t, "Mesa", doc.Lines[1].Name)
	assert.Equal(t, lineitems.TypeRental, doc.Lines[1].Type)
	assert.True(t, doc.Lines[1].UnitPrice.Equal(decimal.NewFromInt(60)))
	assert.True(t, strings.HasSuffix(doc.Lines[0].LineTotalText, " MZN"))
	assert.True(t, strings.HasSuffix(doc.Formatted.Total, " MZN"))
}

func TestProjectQuotationValidity(t *testing.T) {
	doc, err := newProjector(t, &stubFetcher{body: quotationDetail}).Project(context.Background(), orders.Quotation, "12")
	require.NoError(t, err)

	require.NotNil(t, doc.ValidUntil)
	assert.Equal(t, time.Date(2024, 4, 4, 10, 0, 0, 0, time.UTC), *doc.ValidUntil)
}

func TestProjectTransactionHasNoValidity(t *testing.T) {
	body := `{"id": "T-1", "createdAt": "2024-03-20", "paymentType": "MPESA", "client": {"name": "Ana"}, "lineItems": []}`
	doc, err := newProjector(t, &stubFetcher{body: body}).Project(context.Background(), orders.Transaction, "T-1")
	require.NoError(t, err)

	assert.Nil(t, doc.ValidUntil)
	assert.Equal(t, orders.PaymentMPesa, doc.PaymentType)
	assert.True(t, doc.Totals.Total.IsZero())
}

func TestProjectFlagsStoredTotalMismatch(t *testing.T) {
	body := `{"id": 3, "total": "999.00", "lineItems": [{"quantity": 3, "type": "sale", "product": {"name": "Cadeira", "salePrice": 100}}]}`
	doc, err := newProjector(t, &stubFetcher{body: body}).Project(context.Background(), orders.Transaction, "3")
	require.NoError(t, err)

	assert.True(t, doc.TotalMismatch)
	assert.True(t, doc.Totals.Total.Equal(decimal.NewFromInt(348)))
}

func TestProjectMissingSnapshotAndPrice(t *testing.T) {
	body := `{"id": 4, "lineItems": [
		{"quantity": 2, "type": "sale"},
		{"quantity": 1, "type": "rental", "product": {"name": "Cadeira", "salePrice": 100}}
	]}`
	doc, err := newProjector(t, &stubFetcher{body: body}).Project(context.Background(), orders.Transaction, "4")
	require.NoError(t, err)

	require.Len(t, doc.Lines, 2)
	assert.Equal(t, "Produto", doc.Lines[0].Name)
	assert.True(t, doc.Lines[0].UnitPrice.IsZero())
	assert.True(t, doc.Lines[1].PriceMissing)
	assert.True(t, doc.Totals.Total.IsZero())
}

func TestProjectTotalsAlwaysIncludeTax(t *testing.T) {
	body := `{"id": 5, "lineItems": [
		{"quantity": 3, "type": "sale", "product": {"salePrice": "19.99"}},
		{"quantity": 7, "type": "rental", "product": {"rentalPrice": "3.33"}}
	]}`
	doc, err := newProjector(t, &stubFetcher{body: body}).Project(context.Background(), orders.Transaction, "5")
	require.NoError(t, err)

	expected := pricing.FromSubtotal(doc.Totals.Subtotal)
	assert.True(t, doc.Totals.Total.Equal(expected.Total))
	assert.True(t, doc.Totals.Total.Equal(doc.Totals.Subtotal.Add(doc.Totals.Subtotal.Mul(pricing.TaxRate()))))
}

func TestProjectNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := newProjector(t, remote.NewClient(srv.URL, time.Second, nil))
	_, err := p.Project(context.Background(), orders.Transaction, "99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewProjectorRejectsBadLocale(t *testing.T) {
	_, err := NewProjector(&stubFetcher{}, Options{Locale: "not a locale!"}, nil)
	assert.Error(t, err)
}
