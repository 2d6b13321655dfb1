package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bayala/bayala-stock/internal/platform/remote"
	"github.com/bayala/bayala-stock/internal/sales/lineitems"
	"github.com/bayala/bayala-stock/internal/sales/orders"
)

// ErrInvalidRange is returned when a listing's From day falls after its To day.
var ErrInvalidRange = errors.New("invoice: from date is after to date")

// Filter narrows a listing to documents created between From and To, both
// inclusive days. A zero bound is open.
type Filter struct {
	From time.Time
	To   time.Time
}

// Validate rejects inverted ranges.
func (f Filter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return ErrInvalidRange
	}
	return nil
}

// ItemSummary is a line as shown in a listing row.
type ItemSummary struct {
	Name     string         `json:"name"`
	Quantity int            `json:"quantity"`
	Type     lineitems.Type `json:"type"`
}

// Summary is one row of an order or quotation listing. Total is recomputed
// from the row's line items and stays null when the service sent none.
type Summary struct {
	Mode          orders.Kind         `json:"mode"`
	ID            string              `json:"id"`
	Number        string              `json:"number,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	ValidUntil    *time.Time          `json:"validUntil,omitempty"`
	ClientName    string              `json:"clientName"`
	PaymentType   orders.PaymentType  `json:"paymentType,omitempty"`
	Items         []ItemSummary       `json:"items"`
	Total         decimal.NullDecimal `json:"total"`
	TotalText     string              `json:"totalText,omitempty"`
	ServerTotal   decimal.NullDecimal `json:"serverTotal"`
	TotalMismatch bool                `json:"totalMismatch,omitempty"`
	InvoicePath   string              `json:"invoicePath"`
}

// Quotation rows carry a flat client name instead of the client object.
type listRow struct {
	detailResponse
	ClientName string `json:"clientName"`
}

// List fetches the documents of mode matching f, in the service's order.
func (p *Projector) List(ctx context.Context, mode orders.Mode, f Filter) ([]Summary, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var rows []listRow
	if err := p.fetcher.GetJSON(ctx, mode.Endpoint, remote.DateRange(f.From, f.To), &rows); err != nil {
		return nil, fmt.Errorf("invoice: list %s: %w", mode.Kind, err)
	}

	out := make([]Summary, 0, len(rows))
	mismatched := 0
	for _, row := range rows {
		doc := p.build(mode, row.detailResponse)
		s := Summary{
			Mode:        doc.Mode,
			ID:          doc.ID,
			Number:      doc.Number,
			CreatedAt:   doc.CreatedAt,
			ValidUntil:  doc.ValidUntil,
			ClientName:  doc.Client.Name,
			PaymentType: doc.PaymentType,
			Items:       make([]ItemSummary, len(doc.Lines)),
			ServerTotal: doc.ServerTotal,
			InvoicePath: mode.InvoicePath(doc.ID),
		}
		if s.ClientName == "" {
			s.ClientName = row.ClientName
		}
		for i, l := range doc.Lines {
			s.Items[i] = ItemSummary{Name: l.Name, Quantity: l.Quantity, Type: l.Type}
		}
		if len(doc.Lines) > 0 {
			s.Total = decimal.NewNullDecimal(doc.Totals.Total)
			s.TotalText = doc.Formatted.Total
			s.TotalMismatch = doc.TotalMismatch
		}
		if s.TotalMismatch {
			mismatched++
		}
		out = append(out, s)
	}
	if mismatched > 0 {
		p.logger.Warn("stored totals differ from recomputed totals",
			slog.String("mode", string(mode.Kind)),
			slog.Int("documents", mismatched))
	}
	return out, nil
}
