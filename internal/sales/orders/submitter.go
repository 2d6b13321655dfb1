package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bayala/bayala-stock/internal/sales/lineitems"
)

// Poster is the subset of the remote client used for submissions.
type Poster interface {
	PostJSON(ctx context.Context, path string, body, dest any) error
}

// Order is the submission payload.
type Order struct {
	Client       ClientInfo  `json:"client"`
	PaymentType  PaymentType `json:"paymentType,omitempty"`
	ValidityDays int         `json:"validityDays,omitempty"`
	LineItems    []OrderLine `json:"lineItems"`
}

// OrderLine is one submitted line item.
type OrderLine struct {
	ProductID int64          `json:"productId"`
	Quantity  int            `json:"quantity"`
	Type      lineitems.Type `json:"type"`
}

// Receipt is returned for an accepted submission.
type Receipt struct {
	OrderID     string `json:"orderId"`
	Mode        Kind   `json:"mode"`
	InvoicePath string `json:"invoicePath"`
}

// BuildOrder validates the draft contents and assembles the payload.
func BuildOrder(mode Mode, client ClientInfo, payment PaymentType, items []lineitems.LineItem) (Order, error) {
	if err := Validate(mode, client, payment, items); err != nil {
		return Order{}, err
	}
	order := Order{
		Client:    client.Normalize(),
		LineItems: make([]OrderLine, 0, len(items)),
	}
	if mode.RequiresPayment {
		order.PaymentType = payment
	}
	if mode.ValidityDays > 0 {
		order.ValidityDays = mode.ValidityDays
	}
	for _, item := range items {
		id, _ := item.Slot.ProductID()
		order.LineItems = append(order.LineItems, OrderLine{ProductID: id, Quantity: item.Quantity, Type: item.Type})
	}
	return order, nil
}

// Submitter posts orders. It never retries; that is the caller's decision.
type Submitter struct {
	poster  Poster
	timeout time.Duration
	logger  *slog.Logger
}

// NewSubmitter constructs a submitter. A zero timeout leaves the deadline to
// the caller's context and the transport.
func NewSubmitter(poster Poster, timeout time.Duration, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{poster: poster, timeout: timeout, logger: logger}
}

type createdResponse struct {
	ID ID `json:"id"`
}

// ID is a remote document identifier. It decodes from a JSON number or string.
type ID string

func (o *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*o = ID(strconv.FormatInt(i, 10))
		return nil
	}
	*o = ID(n.String())
	return nil
}

// Submit validates and sends one submission. Errors are a *ValidationError
// (nothing was sent), a *StockConflictError, a *TransportError, or the
// credential errors of the remote client and session.
func (s *Submitter) Submit(ctx context.Context, mode Mode, client ClientInfo, payment PaymentType, items []lineitems.LineItem) (Receipt, error) {
	order, err := BuildOrder(mode, client, payment, items)
	if err != nil {
		return Receipt{}, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	op := "submit " + string(mode.Kind)
	var resp createdResponse
	if err := s.poster.PostJSON(ctx, mode.Endpoint, order, &resp); err != nil {
		classified := Classify(op, err)
		s.logger.Warn("order submission failed",
			slog.String("mode", string(mode.Kind)),
			slog.Int("lines", len(order.LineItems)),
			slog.Any("error", classified))
		return Receipt{}, classified
	}
	if resp.ID == "" {
		return Receipt{}, &TransportError{Op: op, Status: http.StatusOK, Err: ErrMissingOrderID}
	}

	id := string(resp.ID)
	s.logger.Info("order submitted",
		slog.String("mode", string(mode.Kind)),
		slog.String("order_id", id),
		slog.Int("lines", len(order.LineItems)))
	return Receipt{OrderID: id, Mode: mode.Kind, InvoicePath: mode.InvoicePath(id)}, nil
}
