package draft

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bayala/bayala-stock/internal/sales/lineitems"
	"github.com/bayala/bayala-stock/internal/sales/orders"
	"github.com/bayala/bayala-stock/internal/sales/pricing"
	"github.com/bayala/bayala-stock/internal/stock"
)

// LineView is a priced line as shown to the user.
type LineView struct {
	Index        int             `json:"index"`
	ProductID    *int64          `json:"productId"`
	ProductName  string          `json:"productName,omitempty"`
	Search       string          `json:"search,omitempty"`
	Quantity     int             `json:"quantity"`
	Type         lineitems.Type  `json:"type"`
	Complete     bool            `json:"complete"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
	PriceMissing bool            `json:"priceMissing,omitempty"`
}

// View is a consistent snapshot of a draft.
type View struct {
	ID           uuid.UUID          `json:"id"`
	Mode         orders.Kind        `json:"mode"`
	State        State              `json:"state"`
	Client       orders.ClientInfo  `json:"client"`
	PaymentType  orders.PaymentType `json:"paymentType,omitempty"`
	ValidityDays int                `json:"validityDays,omitempty"`
	Lines        []LineView         `json:"lines"`
	Totals       pricing.Totals     `json:"totals"`
	Shortfalls   []stock.Shortfall  `json:"shortfalls,omitempty"`
	Error        string             `json:"error,omitempty"`
	Issues       []orders.Issue     `json:"issues,omitempty"`
	Receipt      *orders.Receipt    `json:"receipt,omitempty"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// View prices the draft against its catalog snapshot.
func (d *Draft) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()

	priced := pricing.Lines(d.lines.Items(), d.catalog)
	v := View{
		ID:           d.id,
		Mode:         d.mode.Kind,
		State:        d.state,
		Client:       d.client,
		PaymentType:  d.payment,
		ValidityDays: d.mode.ValidityDays,
		Lines:        make([]LineView, len(priced)),
		Totals:       pricing.Sum(priced),
		Shortfalls:   append([]stock.Shortfall(nil), d.shortfalls...),
		UpdatedAt:    d.touched,
	}
	if d.receipt != nil {
		r := *d.receipt
		v.Receipt = &r
	}
	if d.err != nil {
		v.Error = d.err.Error()
		var verr *orders.ValidationError
		if errors.As(d.err, &verr) {
			v.Issues = verr.Issues
		}
	}
	for i, pl := range priced {
		lv := LineView{
			Index:        i,
			Search:       pl.Item.Slot.SearchText(),
			Quantity:     pl.Item.Quantity,
			Type:         pl.Item.Type,
			Complete:     pl.Item.Complete(),
			UnitPrice:    pl.UnitPrice,
			LineTotal:    pl.LineTotal,
			PriceMissing: pl.PriceMissing,
		}
		if id, ok := pl.Item.Slot.ProductID(); ok {
			lv.ProductID = &id
			if p, ok := d.catalog.Product(id); ok {
				lv.ProductName = p.Name
			}
		}
		v.Lines[i] = lv
	}
	return v
}
