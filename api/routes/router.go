package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dpo-global/issuance-backend/api/controllers"
	"github.com/dpo-global/issuance-backend/api/middleware"
	"github.com/dpo-global/issuance-backend/pkg/config"
	"github.com/dpo-global/issuance-backend/pkg/db"
	"github.com/dpo-global/issuance-backend/pkg/logger"
	"github.com/dpo-global/issuance-backend/pkg/redis"
)

// NewRouter wires the ingestion API: ledger event submission, reconciliation
// trigger + report, and the dependency-aware health endpoint.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	dispatcher controllers.EventDispatcher,
	reconciliationService controllers.ReconciliationService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Get("/health", controllers.Health(cfg, logg, dbP, redisP))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ledger/events", controllers.IngestLedgerEvent(dispatcher, logg))

		r.Route("/reconciliation", func(r chi.Router) {
			r.Post("/runs", controllers.TriggerReconciliationRun(reconciliationService, logg))
			r.Get("/report", controllers.ReconciliationReport(reconciliationService, logg))
		})
	})

	return r
}
