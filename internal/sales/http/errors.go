package saleshttp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bayala/bayala-stock/internal/platform/httpx"
	"github.com/bayala/bayala-stock/internal/platform/remote"
	"github.com/bayala/bayala-stock/internal/sales/draft"
	"github.com/bayala/bayala-stock/internal/sales/invoice"
	"github.com/bayala/bayala-stock/internal/sales/lineitems"
	"github.com/bayala/bayala-stock/internal/sales/orders"
	"github.com/bayala/bayala-stock/internal/session"
	"github.com/bayala/bayala-stock/internal/stock"
)

// tag marks err with the httpx sentinel that selects its response status.
func tag(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}

func badRequest(w http.ResponseWriter, err error) {
	httpx.RespondError(w, tag(httpx.ErrValidation, err))
}

// writeError maps the order builder error taxonomy onto problem responses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr      *orders.ValidationError
		shortfall *stock.ShortfallError
		conflict  *orders.StockConflictError
		terr      *orders.TransportError
	)
	switch {
	case errors.As(err, &verr):
		httpx.RespondErrorWith(w, tag(httpx.ErrValidation, err), map[string]any{"issues": verr.Issues})
	case errors.As(err, &shortfall):
		httpx.RespondErrorWith(w, tag(httpx.ErrConflict, err), map[string]any{"shortfalls": shortfall.Shortfalls})
	case errors.As(err, &conflict):
		httpx.RespondErrorWith(w, tag(httpx.ErrConflict, err), map[string]any{"shortfalls": conflict.Shortfalls})
	case errors.Is(err, remote.ErrUnauthorized), errors.Is(err, session.ErrNoCredential):
		httpx.RespondError(w, tag(httpx.ErrUnauthorized, err))
	case errors.As(err, &terr):
		h.logger.Warn("remote call failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", terr.Status),
			slog.Any("error", err))
		httpx.RespondErrorWith(w, tag(httpx.ErrUpstream, err), map[string]any{"retryable": terr.Retryable()})
	case errors.Is(err, draft.ErrDraftBusy):
		httpx.RespondError(w, tag(httpx.ErrLocked, err))
	case errors.Is(err, draft.ErrDraftClosed):
		httpx.RespondError(w, tag(httpx.ErrGone, err))
	case errors.Is(err, draft.ErrNotFound), errors.Is(err, invoice.ErrNotFound), errors.Is(err, lineitems.ErrIndexOutOfRange):
		httpx.RespondError(w, tag(httpx.ErrNotFound, err))
	case errors.Is(err, draft.ErrUnknownProduct), errors.Is(err, draft.ErrPaymentNotAccepted),
		errors.Is(err, orders.ErrUnknownPaymentType), errors.Is(err, lineitems.ErrUnknownType),
		errors.Is(err, invoice.ErrInvalidRange):
		badRequest(w, err)
	default:
		h.logger.Error("sales request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
