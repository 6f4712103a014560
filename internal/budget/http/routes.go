package budgethttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers budget endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	exportLimiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/", h.handleGetView)
	r.Put("/assignments", h.handleUpsertAssignment)
	r.Get("/ready-to-assign", h.handleReadyToAssign)
	r.Post("/ready-to-assign/reconcile", h.handleReconcile)
	r.Get("/priorities", h.handleListPriorities)
	r.Put("/priorities", h.handlePutPriority)
	r.Delete("/priorities", h.handleDeletePriority)
	r.Group(func(gr chi.Router) {
		gr.Use(exportLimiter)
		gr.Get("/export.csv", h.handleExportCSV)
	})
}
