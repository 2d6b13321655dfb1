// Package draft holds the mutable, unsubmitted state of one order or
// quotation and drives it through validation and submission.
package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bayala/bayala-stock/internal/catalog"
	"github.com/bayala/bayala-stock/internal/platform/remote"
	"github.com/bayala/bayala-stock/internal/sales/lineitems"
	"github.com/bayala/bayala-stock/internal/sales/orders"
	"github.com/bayala/bayala-stock/internal/sales/pricing"
	"github.com/bayala/bayala-stock/internal/session"
	"github.com/bayala/bayala-stock/internal/stock"
)

// State is a draft's position in the order-building lifecycle.
type State string

const (
	StateIncomplete      State = "draft_incomplete"
	StateReady           State = "draft_ready"
	StateValidating      State = "validating"
	StateShortfall       State = "draft_shortfall"
	StateSubmitting      State = "submitting"
	StateSubmitted       State = "submitted"
	StateSubmissionError State = "draft_submission_error"
)

// Busy reports whether a check or submission is in flight.
func (s State) Busy() bool {
	return s == StateValidating || s == StateSubmitting
}

// Draft errors.
var (
	ErrDraftBusy      = errors.New("draft is being validated or submitted")
	ErrDraftClosed    = errors.New("draft was already submitted")
	ErrUnknownProduct = errors.New("product is not in the catalog")
	// ErrPaymentNotAccepted is returned when setting a payment on a quotation.
	ErrPaymentNotAccepted = errors.New("payment type not accepted")
)

// Outcome labels a submission attempt for the journal and metrics.
type Outcome string

const (
	OutcomeSubmitted      Outcome = "submitted"
	OutcomeValidation     Outcome = "validation_error"
	OutcomeShortfall      Outcome = "shortfall"
	OutcomeStockConflict  Outcome = "stock_conflict"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeUnauthorized   Outcome = "unauthorized"
	OutcomeFailed         Outcome = "failed"
)

// OutcomeOf maps a Submit error to its outcome label.
func OutcomeOf(err error) Outcome {
	var (
		verr      *orders.ValidationError
		shortfall *stock.ShortfallError
		conflict  *orders.StockConflictError
		terr      *orders.TransportError
	)
	switch {
	case err == nil:
		return OutcomeSubmitted
	case errors.As(err, &verr):
		return OutcomeValidation
	case errors.As(err, &shortfall):
		return OutcomeShortfall
	case errors.As(err, &conflict):
		return OutcomeStockConflict
	case errors.Is(err, remote.ErrUnauthorized), errors.Is(err, session.ErrNoCredential):
		return OutcomeUnauthorized
	case errors.As(err, &terr):
		return OutcomeTransportError
	default:
		return OutcomeFailed
	}
}

// Attempt is one submission attempt as seen by a Recorder.
type Attempt struct {
	DraftID   uuid.UUID
	Mode      orders.Kind
	Outcome   Outcome
	OrderID   string
	Detail    string
	Client    orders.ClientInfo
	Lines     []orders.OrderLine
	Totals    pricing.Totals
	StartedAt time.Time
	Duration  time.Duration
}

// Recorder persists submission attempts.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}

// StockChecker is the advisory pre-submission stock check.
type StockChecker interface {
	Check(ctx context.Context, requests []stock.Request) ([]stock.Shortfall, error)
}

// Submitter sends a complete draft to the remote service.
type Submitter interface {
	Submit(ctx context.Context, mode orders.Mode, client orders.ClientInfo, payment orders.PaymentType, items []lineitems.LineItem) (orders.Receipt, error)
}

// Deps are the collaborators shared by every draft.
type Deps struct {
	Stock     StockChecker
	Submitter Submitter
	Recorder  Recorder
	Observe   func(mode orders.Kind, outcome Outcome, elapsed time.Duration)
	Logger    *slog.Logger
	Now       func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Draft is safe for concurrent use. Network calls run without holding the
// lock; the Validating and Submitting states keep other callers out.
type Draft struct {
	mu sync.Mutex

	id      uuid.UUID
	mode    orders.Mode
	deps    *Deps
	catalog *catalog.Catalog

	client     orders.ClientInfo
	payment    orders.PaymentType
	lines      *lineitems.Set
	state      State
	shortfalls []stock.Shortfall
	err        error
	receipt    *orders.Receipt
	touched    time.Time
}

func newDraft(id uuid.UUID, mode orders.Mode, cat *catalog.Catalog, deps *Deps) *Draft {
	d := &Draft{
		id:      id,
		mode:    mode,
		deps:    deps,
		catalog: cat,
		lines:   lineitems.NewSet(),
		touched: deps.now(),
	}
	if mode.RequiresPayment {
		d.payment = orders.DefaultPaymentType
	}
	d.lines.Add()
	d.state = d.editState()
	return d
}

// ID returns the draft identifier.
func (d *Draft) ID() uuid.UUID { return d.id }

// Mode returns the draft's mode.
func (d *Draft) Mode() orders.Mode { return d.mode }

// State returns the current state.
func (d *Draft) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Draft) lastTouched() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.touched
}

func (d *Draft) editState() State {
	if d.lines.Complete() && d.client.Normalize().Name != "" {
		return StateReady
	}
	return StateIncomplete
}

// mutate applies fn under the lock and returns the draft to an editable
// state with any attached result cleared.
func (d *Draft) mutate(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.state == StateSubmitted:
		return ErrDraftClosed
	case d.state.Busy():
		return ErrDraftBusy
	}
	if err := fn(); err != nil {
		return err
	}
	d.shortfalls = nil
	d.err = nil
	d.state = d.editState()
	d.touched = d.deps.now()
	return nil
}

// SetClient replaces the client details.
func (d *Draft) SetClient(c orders.ClientInfo) error {
	return d.mutate(func() error {
		d.client = c
		return nil
	})
}

// SetPayment sets the payment type. Quotations carry none.
func (d *Draft) SetPayment(p orders.PaymentType) error {
	return d.mutate(func() error {
		if !d.mode.RequiresPayment {
			return fmt.Errorf("%s: %w", d.mode.Kind, ErrPaymentNotAccepted)
		}
		if !p.Valid() {
			return orders.ErrUnknownPaymentType
		}
		d.payment = p
		return nil
	})
}

// AddLine appends an empty line and returns its index.
func (d *Draft) AddLine() (int, error) {
	var index int
	err := d.mutate(func() error {
		index = d.lines.Add()
		return nil
	})
	return index, err
}

// RemoveLine deletes the line at index.
func (d *Draft) RemoveLine(index int) error {
	return d.mutate(func() error {
		return d.lines.Remove(index)
	})
}

// SetProduct resolves the line at index to a catalog product.
func (d *Draft) SetProduct(index int, productID int64) error {
	return d.mutate(func() error {
		if _, ok := d.catalog.Product(productID); !ok {
			return fmt.Errorf("product %d: %w", productID, ErrUnknownProduct)
		}
		return d.lines.SetProduct(index, productID)
	})
}

// SetSearch puts the line at index back into search mode.
func (d *Draft) SetSearch(index int, text string) error {
	return d.mutate(func() error {
		return d.lines.SetSearch(index, text)
	})
}

// SetQuantity stores n as given; values below one fail at validation.
func (d *Draft) SetQuantity(index, n int) error {
	return d.mutate(func() error {
		return d.lines.SetQuantity(index, n)
	})
}

// SetType switches the line between sale and rental.
func (d *Draft) SetType(index int, t lineitems.Type) error {
	return d.mutate(func() error {
		return d.lines.SetType(index, t)
	})
}

type submission struct {
	client  orders.ClientInfo
	payment orders.PaymentType
	items   []lineitems.LineItem
}

// begin checks the draft can start a check or submission, validates it and
// moves it into next. A validation failure leaves the draft editable.
func (d *Draft) begin(next State) (submission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.state == StateSubmitted:
		return submission{}, ErrDraftClosed
	case d.state.Busy():
		return submission{}, ErrDraftBusy
	}
	sub := submission{client: d.client, payment: d.payment, items: d.lines.Items()}
	if err := orders.Validate(d.mode, sub.client, sub.payment, sub.items); err != nil {
		d.shortfalls = nil
		d.err = err
		d.state = d.editState()
		return sub, err
	}
	d.shortfalls = nil
	d.err = nil
	d.state = next
	return sub, nil
}

func (d *Draft) stockRequests(items []lineitems.LineItem) []stock.Request {
	reqs := make([]stock.Request, 0, len(items))
	for _, item := range items {
		id, _ := item.Slot.ProductID()
		req := stock.Request{ProductID: id, Quantity: item.Quantity}
		if p, ok := d.catalog.Product(id); ok {
			req.NameHint = p.Name
		}
		reqs = append(reqs, req)
	}
	return reqs
}

func (d *Draft) checkStock(ctx context.Context, items []lineitems.LineItem) error {
	if !d.mode.StockCheck || d.deps.Stock == nil {
		return nil
	}
	shortfalls, err := d.deps.Stock.Check(ctx, d.stockRequests(items))
	if errors.Is(err, stock.ErrIncompleteInput) {
		return fmt.Errorf("check stock: %w", err)
	}
	if err != nil {
		return orders.Classify("check stock", err)
	}
	if len(shortfalls) > 0 {
		return &stock.ShortfallError{Shortfalls: shortfalls}
	}
	return nil
}

// finish applies the outcome of a check or submission. A failed check that
// sent nothing returns the draft to editing with the error attached; a
// failed submission leaves it in StateSubmissionError.
func (d *Draft) finish(err error, success State, sent bool, receipt *orders.Receipt) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touched = d.deps.now()
	var (
		shortfall *stock.ShortfallError
		conflict  *orders.StockConflictError
	)
	switch {
	case err == nil:
		d.state = success
		d.receipt = receipt
	case errors.As(err, &shortfall):
		d.state = StateShortfall
		d.shortfalls = shortfall.Shortfalls
		d.err = err
	case errors.As(err, &conflict):
		d.state = StateSubmissionError
		d.shortfalls = conflict.Shortfalls
		d.err = err
	case !sent:
		d.state = d.editState()
		d.err = err
	default:
		d.state = StateSubmissionError
		d.err = err
	}
}

// Validate runs client-side validation and, for modes with a stock check,
// the advisory stock check. It returns the shortfalls found, if any.
func (d *Draft) Validate(ctx context.Context) ([]stock.Shortfall, error) {
	sub, err := d.begin(StateValidating)
	if err != nil {
		return nil, err
	}
	err = d.checkStock(ctx, sub.items)
	d.finish(err, StateReady, false, nil)

	var shortfall *stock.ShortfallError
	if errors.As(err, &shortfall) {
		return shortfall.Shortfalls, nil
	}
	return nil, err
}

// Submit validates, checks stock when the mode requires it and sends the
// draft exactly once. A failed submission leaves the draft unchanged and
// resubmittable. Concurrent calls get ErrDraftBusy.
func (d *Draft) Submit(ctx context.Context) (orders.Receipt, error) {
	start := d.deps.now()
	sub, err := d.begin(StateValidating)
	if err != nil {
		if !errors.Is(err, ErrDraftBusy) && !errors.Is(err, ErrDraftClosed) {
			d.observe(ctx, start, sub, err, orders.Receipt{})
		}
		return orders.Receipt{}, err
	}

	if err := d.checkStock(ctx, sub.items); err != nil {
		d.finish(err, StateReady, true, nil)
		d.observe(ctx, start, sub, err, orders.Receipt{})
		return orders.Receipt{}, err
	}

	d.mu.Lock()
	d.state = StateSubmitting
	d.mu.Unlock()

	receipt, err := d.deps.Submitter.Submit(ctx, d.mode, sub.client, sub.payment, sub.items)
	if err != nil {
		d.finish(err, StateSubmitted, true, nil)
	} else {
		d.finish(nil, StateSubmitted, true, &receipt)
	}
	d.observe(ctx, start, sub, err, receipt)
	return receipt, err
}

func (d *Draft) observe(ctx context.Context, start time.Time, sub submission, err error, receipt orders.Receipt) {
	outcome := OutcomeOf(err)
	elapsed := d.deps.now().Sub(start)
	logger := d.deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		slog.String("draft_id", d.id.String()),
		slog.String("mode", string(d.mode.Kind)),
		slog.String("outcome", string(outcome)),
	}
	if err != nil {
		logger.Info("draft submission rejected", append(attrs, slog.Any("error", err))...)
	} else {
		logger.Info("draft submitted", append(attrs, slog.String("order_id", receipt.OrderID))...)
	}

	if d.deps.Observe != nil {
		d.deps.Observe(d.mode.Kind, outcome, elapsed)
	}
	if d.deps.Recorder == nil {
		return
	}
	attempt := Attempt{
		DraftID:   d.id,
		Mode:      d.mode.Kind,
		Outcome:   outcome,
		OrderID:   receipt.OrderID,
		Client:    sub.client.Normalize(),
		Lines:     orderLines(sub.items),
		Totals:    pricing.ComputeTotals(sub.items, d.catalog),
		StartedAt: start,
		Duration:  elapsed,
	}
	if err != nil {
		attempt.Detail = err.Error()
	}
	if rerr := d.deps.Recorder.Record(context.WithoutCancel(ctx), attempt); rerr != nil {
		logger.Error("record submission attempt", slog.String("draft_id", d.id.String()), slog.Any("error", rerr))
	}
}

func orderLines(items []lineitems.LineItem) []orders.OrderLine {
	out := make([]orders.OrderLine, 0, len(items))
	for _, item := range items {
		id, _ := item.Slot.ProductID()
		out = append(out, orders.OrderLine{ProductID: id, Quantity: item.Quantity, Type: item.Type})
	}
	return out
}
