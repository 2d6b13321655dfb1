// Package invoice renders persisted orders and quotations. Amounts are
// recomputed from the stored product snapshots with the pricing package,
// never taken from the server's stored total.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/bayala/bayala-stock/internal/catalog"
	"github.com/bayala/bayala-stock/internal/platform/remote"
	"github.com/bayala/bayala-stock/internal/sales/lineitems"
	"github.com/bayala/bayala-stock/internal/sales/orders"
	"github.com/bayala/bayala-stock/internal/sales/pricing"
)

// TaxLabel is printed next to the tax amount.
const TaxLabel = "IVA (16%)"

// ErrNotFound is returned when the remote service has no such document.
var ErrNotFound = errors.New("invoice: document not found")

// Fetcher is the subset of the remote client used by the projector.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, query url.Values, dest any) error
}

// Options configures amount formatting.
type Options struct {
	Locale   string
	Currency string
}

// Projector fetches persisted documents and derives their amounts.
type Projector struct {
	fetcher  Fetcher
	printer  *message.Printer
	currency string
	logger   *slog.Logger
}

// NewProjector builds a projector. An empty locale means Portuguese and an
// empty currency means MZN.
func NewProjector(fetcher Fetcher, opts Options, logger *slog.Logger) (*Projector, error) {
	if opts.Locale == "" {
		opts.Locale = "pt"
	}
	if opts.Currency == "" {
		opts.Currency = "MZN"
	}
	tag, err := language.Parse(opts.Locale)
	if err != nil {
		return nil, fmt.Errorf("invoice: parse locale %q: %w", opts.Locale, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{
		fetcher:  fetcher,
		printer:  message.NewPrinter(tag),
		currency: opts.Currency,
		logger:   logger,
	}, nil
}

// Line is one rendered line.
type Line struct {
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	Type          lineitems.Type  `json:"type"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
	PriceMissing  bool            `json:"priceMissing,omitempty"`
	UnitPriceText string          `json:"unitPriceText"`
	LineTotalText string          `json:"lineTotalText"`
}

// FormattedTotals are the totals as display strings.
type FormattedTotals struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// Document is a rendered order or quotation.
type Document struct {
	Mode          orders.Kind         `json:"mode"`
	ID            string              `json:"id"`
	Number        string              `json:"number,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	ValidUntil    *time.Time          `json:"validUntil,omitempty"`
	Client        orders.ClientInfo   `json:"client"`
	PaymentType   orders.PaymentType  `json:"paymentType,omitempty"`
	Lines         []Line              `json:"lines"`
	Totals        pricing.Totals      `json:"totals"`
	Formatted     FormattedTotals     `json:"formatted"`
	TaxLabel      string              `json:"taxLabel"`
	Currency      string              `json:"currency"`
	ServerTotal   decimal.NullDecimal `json:"serverTotal"`
	TotalMismatch bool                `json:"totalMismatch,omitempty"`
}

type detailResponse struct {
	ID          orders.ID           `json:"id"`
	Number      string              `json:"number"`
	CreatedAt   string              `json:"createdAt"`
	Client      orders.ClientInfo   `json:"client"`
	PaymentType string              `json:"paymentType"`
	Total       decimal.NullDecimal `json:"total"`
	LineItems   []detailLine        `json:"lineItems"`
}

type detailLine struct {
	Quantity int              `json:"quantity"`
	Type     string           `json:"type"`
	Product  *catalog.Product `json:"product"`
}

// Project fetches the document id of the given mode and renders it.
func (p *Projector) Project(ctx context.Context, mode orders.Mode, id string) (*Document, error) {
	var detail detailResponse
	if err := p.fetcher.GetJSON(ctx, mode.DetailURL(id), nil, &detail); err != nil {
		var statusErr *remote.StatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("invoice: fetch %s %s: %w", mode.Kind, id, err)
	}
	if detail.ID == "" {
		detail.ID = orders.ID(id)
	}
	doc := p.build(mode, detail)
	if doc.TotalMismatch {
		p.logger.Warn("stored total differs from recomputed total",
			slog.String("mode", string(mode.Kind)),
			slog.String("order_id", doc.ID),
			slog.String("stored", doc.ServerTotal.Decimal.String()),
			slog.String("computed", doc.Totals.Total.String()))
	}
	return doc, nil
}

// snapshots resolves the synthetic ids assigned to each line's product
// snapshot. Lines may carry different snapshots of the same product.
type snapshots []catalog.Product

func (s snapshots) Product(id int64) (catalog.Product, bool) {
	if id < 1 || id > int64(len(s)) {
		return catalog.Product{}, false
	}
	return s[id-1], true
}

func (p *Projector) build(mode orders.Mode, detail detailResponse) *Document {
	snaps := make(snapshots, 0, len(detail.LineItems))
	items := make([]lineitems.LineItem, len(detail.LineItems))
	names := make([]string, len(detail.LineItems))
	for i, dl := range detail.LineItems {
		t, err := lineitems.ParseType(dl.Type)
		if err != nil {
			t = lineitems.Type(dl.Type)
		}
		item := lineitems.LineItem{Slot: lineitems.Unresolved(""), Quantity: dl.Quantity, Type: t}
		names[i] = "Produto"
		if dl.Product != nil {
			snaps = append(snaps, *dl.Product)
			item.Slot = lineitems.Resolved(int64(len(snaps)))
			if dl.Product.Name != "" {
				names[i] = dl.Product.Name
			}
		}
		items[i] = item
	}

	priced := pricing.Lines(items, snaps)
	totals := pricing.Sum(priced)

	doc := &Document{
		Mode:        mode.Kind,
		ID:          string(detail.ID),
		Number:      detail.Number,
		CreatedAt:   parseTimestamp(detail.CreatedAt),
		Client:      detail.Client.Normalize(),
		PaymentType: orders.PaymentType(strings.ToLower(detail.PaymentType)),
		Lines:       make([]Line, len(priced)),
		Totals:      totals,
		TaxLabel:    TaxLabel,
		Currency:    p.currency,
		ServerTotal: detail.Total,
		Formatted: FormattedTotals{
			Subtotal: p.Amount(totals.Subtotal),
			Tax:      p.Amount(totals.Tax),
			Total:    p.Amount(totals.Total),
		},
	}
	if until := mode.ValidUntil(doc.CreatedAt); !until.IsZero() {
		doc.ValidUntil = &until
	}
	if detail.Total.Valid {
		doc.TotalMismatch = !detail.Total.Decimal.Round(2).Equal(totals.Total.Round(2))
	}
	for i, pl := range priced {
		doc.Lines[i] = Line{
			Name:          names[i],
			Quantity:      pl.Item.Quantity,
			Type:          pl.Item.Type,
			UnitPrice:     pl.UnitPrice,
			LineTotal:     pl.LineTotal,
			PriceMissing:  pl.PriceMissing,
			UnitPriceText: p.Amount(pl.UnitPrice),
			LineTotalText: p.Amount(pl.LineTotal),
		}
	}
	return doc
}

// Amount formats d with two decimals in the projector's locale followed by
// the currency code.
func (p *Projector) Amount(d decimal.Decimal) string {
	f := d.Round(2).InexactFloat64()
	return p.printer.Sprint(number.Decimal(f, number.Scale(2))) + " " + p.currency
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
