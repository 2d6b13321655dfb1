// Package saleshttp exposes the order builder over JSON.
package saleshttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bayala/bayala-stock/internal/catalog"
	"github.com/bayala/bayala-stock/internal/platform/httpx"
	"github.com/bayala/bayala-stock/internal/platform/remote"
	"github.com/bayala/bayala-stock/internal/sales/draft"
	"github.com/bayala/bayala-stock/internal/sales/invoice"
	"github.com/bayala/bayala-stock/internal/sales/lineitems"
	"github.com/bayala/bayala-stock/internal/sales/orders"
	"github.com/bayala/bayala-stock/internal/stock"
)

// Sessions manages the shared bearer credential.
type Sessions interface {
	Begin(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	Token() (string, bool)
}

// CatalogLoader provides product snapshots.
type CatalogLoader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
	Refresh(ctx context.Context) (*catalog.Catalog, error)
}

// DraftStore keeps open drafts.
type DraftStore interface {
	Create(ctx context.Context, mode orders.Mode) (*draft.Draft, error)
	Get(id uuid.UUID) (*draft.Draft, error)
	Delete(id uuid.UUID) error
}

// InvoiceProjector renders persisted documents.
type InvoiceProjector interface {
	Project(ctx context.Context, mode orders.Mode, id string) (*invoice.Document, error)
	List(ctx context.Context, mode orders.Mode, f invoice.Filter) ([]invoice.Summary, error)
}

// WarmupEnqueuer schedules a background catalog refresh.
type WarmupEnqueuer interface {
	EnqueueCatalogWarmup(ctx context.Context, reason string) error
}

// Deps groups the handler collaborators. Warmup and CatalogSize are optional.
type Deps struct {
	Sessions    Sessions
	Catalog     CatalogLoader
	Drafts      DraftStore
	Invoices    InvoiceProjector
	Warmup      WarmupEnqueuer
	CatalogSize func(n int)
	Logger      *slog.Logger
}

// Handler serves the session, catalog, draft and invoice endpoints.
type Handler struct {
	deps   Deps
	logger *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{deps: deps, logger: logger}
}

type beginSessionRequest struct {
	Token string `json:"token"`
}

func (h *Handler) handleBeginSession(w http.ResponseWriter, r *http.Request) {
	var req beginSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.deps.Sessions.Begin(r.Context(), req.Token); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.deps.Warmup != nil {
		if err := h.deps.Warmup.EnqueueCatalogWarmup(r.Context(), "session"); err != nil {
			h.logger.Warn("enqueue catalog warmup", slog.Any("error", err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Sessions.Clear(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type productsResponse struct {
	Products []catalog.Product `json:"products"`
}

func (h *Handler) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	limit := catalog.DefaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			badRequest(w, fmt.Errorf("limit %q must be a positive integer", raw))
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}
	cat, err := h.deps.Catalog.Load(r.Context())
	if err != nil {
		h.writeError(w, r, orders.Classify("load catalog", err))
		return
	}
	h.observeCatalog(cat)
	products := cat.Search(r.URL.Query().Get("q"), limit)
	if products == nil {
		products = []catalog.Product{}
	}
	httpx.JSON(w, http.StatusOK, productsResponse{Products: products})
}

func (h *Handler) handleRefreshCatalog(w http.ResponseWriter, r *http.Request) {
	cat, err := h.deps.Catalog.Refresh(r.Context())
	if err != nil {
		h.writeError(w, r, orders.Classify("refresh catalog", err))
		return
	}
	h.observeCatalog(cat)
	httpx.JSON(w, http.StatusOK, map[string]int{"products": cat.Len()})
}

func (h *Handler) observeCatalog(cat *catalog.Catalog) {
	if h.deps.CatalogSize != nil {
		h.deps.CatalogSize(cat.Len())
	}
}

type createDraftRequest struct {
	Mode string `json:"mode"`
}

func (h *Handler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	mode, err := orders.ModeFor(req.Mode)
	if err != nil {
		badRequest(w, err)
		return
	}
	d, err := h.deps.Drafts.Create(r.Context(), mode)
	if err != nil {
		h.writeError(w, r, orders.Classify("load catalog", err))
		return
	}
	httpx.JSON(w, http.StatusCreated, d.View())
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, d.View())
}

func (h *Handler) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, draft.ErrNotFound)
		return
	}
	if err := h.deps.Drafts.Delete(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetClient(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	var req orders.ClientInfo
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	h.mutated(w, r, d, d.SetClient(req))
}

type paymentRequest struct {
	PaymentType string `json:"paymentType"`
}

func (h *Handler) handleSetPayment(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	payment, err := orders.ParsePaymentType(req.PaymentType)
	if err != nil {
		badRequest(w, err)
		return
	}
	h.mutated(w, r, d, d.SetPayment(payment))
}

func (h *Handler) handleAddLine(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	if _, err := d.AddLine(); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d.View())
}

type lineRequest struct {
	ProductID *int64  `json:"productId"`
	Search    *string `json:"search"`
	Quantity  *int    `json:"quantity"`
	Type      *string `json:"type"`
}

func (h *Handler) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	index, ok := h.lineIndex(w, r)
	if !ok {
		return
	}
	var req lineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.ProductID != nil && req.Search != nil {
		badRequest(w, errors.New("productId and search are mutually exclusive"))
		return
	}
	var lineType lineitems.Type
	if req.Type != nil {
		parsed, err := lineitems.ParseType(*req.Type)
		if err != nil {
			badRequest(w, err)
			return
		}
		lineType = parsed
	}

	var err error
	switch {
	case req.ProductID != nil:
		err = d.SetProduct(index, *req.ProductID)
	case req.Search != nil:
		err = d.SetSearch(index, *req.Search)
	}
	if err == nil && req.Quantity != nil {
		err = d.SetQuantity(index, *req.Quantity)
	}
	if err == nil && req.Type != nil {
		err = d.SetType(index, lineType)
	}
	h.mutated(w, r, d, err)
}

func (h *Handler) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	index, ok := h.lineIndex(w, r)
	if !ok {
		return
	}
	h.mutated(w, r, d, d.RemoveLine(index))
}

type validateResponse struct {
	OK         bool              `json:"ok"`
	Shortfalls []stock.Shortfall `json:"shortfalls"`
	Draft      draft.View        `json:"draft"`
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	shortfalls, err := d.Validate(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if shortfalls == nil {
		shortfalls = []stock.Shortfall{}
	}
	httpx.JSON(w, http.StatusOK, validateResponse{
		OK:         len(shortfalls) == 0,
		Shortfalls: shortfalls,
		Draft:      d.View(),
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	receipt, err := d.Submit(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleInvoice(w http.ResponseWriter, r *http.Request) {
	mode, err := orders.ModeFor(chi.URLParam(r, "mode"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	doc, err := h.deps.Invoices.Project(r.Context(), mode, id)
	if err != nil {
		if !errors.Is(err, invoice.ErrNotFound) {
			err = orders.Classify("fetch invoice", err)
		}
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

type listResponse struct {
	Documents []invoice.Summary `json:"documents"`
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	h.listDocuments(w, r, orders.Transaction)
}

func (h *Handler) handleListQuotations(w http.ResponseWriter, r *http.Request) {
	h.listDocuments(w, r, orders.Quotation)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request, mode orders.Mode) {
	q := r.URL.Query()
	var (
		filter invoice.Filter
		err    error
	)
	if filter.From, err = queryDate(q.Get(remote.ParamFrom), q.Get("data_inicio")); err != nil {
		badRequest(w, fmt.Errorf("from: %w", err))
		return
	}
	if filter.To, err = queryDate(q.Get(remote.ParamTo), q.Get("data_fim")); err != nil {
		badRequest(w, fmt.Errorf("to: %w", err))
		return
	}

	docs, err := h.deps.Invoices.List(r.Context(), mode, filter)
	if err != nil {
		if !errors.Is(err, invoice.ErrInvalidRange) {
			err = orders.Classify("list "+string(mode.Kind), err)
		}
		h.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []invoice.Summary{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Documents: docs})
}

// queryDate parses the first non-empty value as a calendar day.
func queryDate(values ...string) (time.Time, error) {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return time.Parse(remote.DateLayout, v)
		}
	}
	return time.Time{}, nil
}

func (h *Handler) loadDraft(w http.ResponseWriter, r *http.Request) (*draft.Draft, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, draft.ErrNotFound)
		return nil, false
	}
	d, err := h.deps.Drafts.Get(id)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return d, true
}

func (h *Handler) lineIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		h.writeError(w, r, lineitems.ErrIndexOutOfRange)
		return 0, false
	}
	return index, true
}

// mutated answers an edit with the updated draft view.
func (h *Handler) mutated(w http.ResponseWriter, r *http.Request, d *draft.Draft, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d.View())
}
