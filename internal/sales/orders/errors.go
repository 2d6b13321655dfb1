package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bayala/bayala-stock/internal/platform/remote"
	"github.com/bayala/bayala-stock/internal/session"
	"github.com/bayala/bayala-stock/internal/stock"
)

// ErrMissingOrderID means the remote service accepted a submission without
// returning an identifier.
var ErrMissingOrderID = errors.New("response carried no order id")

// StockConflictError is the remote service rejecting a submission because
// stock ran out after the advisory check. Message carries the server's own
// wording when it sent no structured shortfalls.
type StockConflictError struct {
	Shortfalls []stock.Shortfall
	Message    string
}

func (e *StockConflictError) Error() string {
	if len(e.Shortfalls) > 0 {
		return "stock conflict: " + (&stock.ShortfallError{Shortfalls: e.Shortfalls}).Error()
	}
	if e.Message != "" {
		return "stock conflict: " + e.Message
	}
	return "stock conflict"
}

// TransportError is a network or server failure. Nothing is assumed to have
// been committed; Status is zero when no response arrived.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether resubmitting the same draft may succeed.
func (e *TransportError) Retryable() bool {
	return e.Status == 0 || e.Status >= http.StatusInternalServerError
}

type conflictBody struct {
	Shortfalls []stock.Shortfall `json:"shortfalls"`
	Stock      json.RawMessage   `json:"stock"`
	Detail     string            `json:"detail"`
	Message    string            `json:"message"`
}

// Classify maps a remote failure into the submission taxonomy. Credential
// problems pass through untouched.
func Classify(op string, err error) error {
	if errors.Is(err, remote.ErrUnauthorized) || errors.Is(err, session.ErrNoCredential) {
		return err
	}
	var statusErr *remote.StatusError
	if !errors.As(err, &statusErr) {
		return &TransportError{Op: op, Err: err}
	}
	if conflict := parseConflict(statusErr); conflict != nil {
		return conflict
	}
	return &TransportError{Op: op, Status: statusErr.Status, Err: err}
}

func parseConflict(se *remote.StatusError) *StockConflictError {
	if se.ServerFault() {
		return nil
	}
	var body conflictBody
	decoded := json.Unmarshal(se.Body, &body) == nil

	if decoded && len(body.Shortfalls) > 0 {
		return &StockConflictError{Shortfalls: body.Shortfalls, Message: firstNonEmpty(body.Detail, body.Message)}
	}
	if decoded {
		if msg := stockMessage(body.Stock); msg != "" {
			return &StockConflictError{Message: msg}
		}
	}
	if se.Status == http.StatusConflict {
		msg := ""
		if decoded {
			msg = firstNonEmpty(body.Detail, body.Message)
		}
		return &StockConflictError{Message: msg}
	}
	return nil
}

// stockMessage reads the {"stock": "..."} or {"stock": ["...", ...]} form.
func stockMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return strings.TrimSpace(strings.Join(many, "; "))
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
