package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	budgethttp "github.com/hearthledger/hearthledger/internal/budget/http"
	"github.com/hearthledger/hearthledger/internal/category"
	"github.com/hearthledger/hearthledger/internal/household"
	"github.com/hearthledger/hearthledger/internal/ledger"
	"github.com/hearthledger/hearthledger/internal/observability"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	BudgetHandler    *budgethttp.Handler
	LedgerHandler    *ledger.Handler
	CategoryHandler  *category.Handler
	HouseholdHandler *household.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Hearthledger defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.BudgetHandler != nil {
		r.Route("/budget", params.BudgetHandler.MountRoutes)
	}
	if params.LedgerHandler != nil {
		r.Route("/ledger", params.LedgerHandler.MountRoutes)
	}
	if params.CategoryHandler != nil {
		r.Route("/categories", params.CategoryHandler.MountRoutes)
	}
	if params.HouseholdHandler != nil {
		r.Route("/households", params.HouseholdHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
