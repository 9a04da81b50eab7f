package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YuniorRivera/remesas-haiti-backend/api/controllers"
	webhookcontrollers "github.com/YuniorRivera/remesas-haiti-backend/api/controllers/webhooks"
	"github.com/YuniorRivera/remesas-haiti-backend/api/middleware"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/events"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/transactions"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/config"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/logger"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DBPinger        db.Pinger
	RedisPinger     redis.Pinger
	Reconciliations controllers.ReconciliationService
	Payouts         webhookcontrollers.PayoutService
	PayoutGuard     interface {
		CheckAndMark(ctx context.Context, referenceCode, status string) (bool, error)
		Release(ctx context.Context, referenceCode, status string)
	}
	TransactionRepo transactions.Repository
	Events          events.Service
	Metrics         prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DBPinger, deps.RedisPinger, logg))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payout", webhookcontrollers.Payout(deps.Payouts, deps.PayoutGuard, cfg.PayoutWebhook.SigningSecret, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.MemberRoleAdmin), logg))

		r.Route("/reconciliations", func(r chi.Router) {
			r.Post("/", controllers.CreateReconciliation(deps.Reconciliations, logg))
			r.Get("/", controllers.ListReconciliations(deps.Reconciliations, logg))
			r.Get("/{reconciliationId}", controllers.GetReconciliation(deps.Reconciliations, logg))
			r.Post("/{reconciliationId}/force", controllers.ForceReconciliation(deps.Reconciliations, logg))
		})

		r.Get("/transactions/{referenceCode}", controllers.AdminTransactionByReference(deps.TransactionRepo, deps.Events, logg))
	})

	return r
}
