package saleshttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/bayala/bayala-stock/internal/platform/httpx"
)

// MountRoutes registers the order builder endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	// Validation and submission fan out to the remote service.
	limiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "")
		}),
	)

	r.Post("/session", h.handleBeginSession)
	r.Delete("/session", h.handleEndSession)

	r.Get("/catalog/products", h.handleSearchProducts)
	r.Post("/catalog/refresh", h.handleRefreshCatalog)

	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", h.handleCreateDraft)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetDraft)
			r.Delete("/", h.handleDeleteDraft)
			r.Put("/client", h.handleSetClient)
			r.Put("/payment", h.handleSetPayment)
			r.Post("/lines", h.handleAddLine)
			r.Patch("/lines/{index}", h.handleUpdateLine)
			r.Delete("/lines/{index}", h.handleRemoveLine)
			r.Group(func(gr chi.Router) {
				gr.Use(limiter)
				gr.Post("/validate", h.handleValidate)
				gr.Post("/submit", h.handleSubmit)
			})
		})
	})

	r.Get("/orders", h.handleListOrders)
	r.Get("/quotations", h.handleListQuotations)
	r.Get("/invoices/{mode}/{id}", h.handleInvoice)
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
