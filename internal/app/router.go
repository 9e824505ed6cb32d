package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aoiro-ledger/aoiro-ledger/internal/assets"
	"github.com/aoiro-ledger/aoiro-ledger/internal/closing"
	"github.com/aoiro-ledger/aoiro-ledger/internal/inventory"
	"github.com/aoiro-ledger/aoiro-ledger/internal/ledger"
	"github.com/aoiro-ledger/aoiro-ledger/internal/reports"
	"github.com/aoiro-ledger/aoiro-ledger/internal/settings"
	"github.com/aoiro-ledger/aoiro-ledger/jobs"
	"github.com/aoiro-ledger/aoiro-ledger/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	LedgerHandler    *ledger.Handler
	AssetsHandler    *assets.Handler
	InventoryHandler *inventory.Handler
	SettingsHandler  *settings.Handler
	ReportsHandler   *reports.Handler
	ClosingHandler   *closing.Handler
	PDFHandler       *report.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(api chi.Router) {
		params.LedgerHandler.MountRoutes(api)
		params.AssetsHandler.MountRoutes(api)
		params.InventoryHandler.MountRoutes(api)
		params.SettingsHandler.MountRoutes(api)
		params.ReportsHandler.MountRoutes(api)
		params.ClosingHandler.MountRoutes(api)
		if params.PDFHandler != nil {
			api.Route("/pdf", func(pr chi.Router) {
				params.PDFHandler.MountRoutes(pr)
			})
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", func(jr chi.Router) {
			params.JobHandler.MountRoutes(jr)
		})
	}

	return r
}
