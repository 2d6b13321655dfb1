// Package orders turns a complete draft into a submission for the remote
// order service and maps the outcome back into the error taxonomy callers
// render.
package orders

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/bayala/bayala-stock/internal/platform/remote"
)

// Kind distinguishes binding transactions from quotations.
type Kind string

const (
	KindTransaction Kind = "transaction"
	KindQuotation   Kind = "quotation"
)

// ErrUnknownMode is returned by ModeFor for an unrecognised mode name.
var ErrUnknownMode = errors.New("unknown order mode")

// QuotationValidityDays is how long a quotation stays valid after creation.
const QuotationValidityDays = 15

// Mode configures the single order builder for one kind of document.
type Mode struct {
	Kind            Kind
	Endpoint        string
	DetailPath      string
	RequiresPayment bool
	StockCheck      bool
	ValidityDays    int
}

var (
	Transaction = Mode{
		Kind:            KindTransaction,
		Endpoint:        remote.PathOrders,
		DetailPath:      remote.PathOrders,
		RequiresPayment: true,
		StockCheck:      true,
	}
	Quotation = Mode{
		Kind:         KindQuotation,
		Endpoint:     remote.PathQuotations,
		DetailPath:   remote.PathQuotations,
		ValidityDays: QuotationValidityDays,
	}
)

// ModeFor resolves a mode by name. Portuguese names used by the shop are
// accepted as aliases.
func ModeFor(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(KindTransaction), "transactions", "transaccao", "transaccoes", "order", "orders":
		return Transaction, nil
	case string(KindQuotation), "quotations", "cotacao", "cotacoes":
		return Quotation, nil
	default:
		return Mode{}, ErrUnknownMode
	}
}

// DetailURL is the remote path holding the persisted document.
func (m Mode) DetailURL(id string) string {
	return m.DetailPath + "/" + url.PathEscape(id)
}

// InvoicePath is the local path rendering the persisted document.
func (m Mode) InvoicePath(id string) string {
	return "/invoices/" + string(m.Kind) + "/" + url.PathEscape(id)
}

// ValidUntil returns the end of the validity window, or the zero time for
// modes without one.
func (m Mode) ValidUntil(created time.Time) time.Time {
	if m.ValidityDays <= 0 || created.IsZero() {
		return time.Time{}
	}
	return created.AddDate(0, 0, m.ValidityDays)
}
