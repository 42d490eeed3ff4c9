package api

import (
	"net/http"

	"github.com/ayo6706/fcy-position/internal/api/handler"
	"github.com/ayo6706/fcy-position/internal/api/middleware"
	"github.com/ayo6706/fcy-position/internal/api/spec"
	"github.com/ayo6706/fcy-position/internal/config"
	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/idempotency"
	"github.com/ayo6706/fcy-position/internal/observability"
	"github.com/ayo6706/fcy-position/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Services bundles the engine services the HTTP surface exposes.
type Services struct {
	Ledger        *service.LedgerService
	Transactions  *service.TransactionService
	Positions     *service.PositionService
	Capital       *service.CapitalService
	Rates         *service.ExchangeRateService
	Correspondent *service.CorrespondentService
	Alerts        *service.AlertService
}

type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        handler.Pinger
	redis     redis.Cmdable
	idemStore *idempotency.Store
	svcs      Services
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db handler.Pinger, redis redis.Cmdable, idemStore *idempotency.Store, svcs Services) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{cfg: cfg, logger: logger, db: db, redis: redis, idemStore: idemStore, svcs: svcs}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	health := handler.NewHealthHandler(api.db, api.redis)
	balances := handler.NewBalanceHandler(api.svcs.Ledger)
	txns := handler.NewTransactionHandler(api.svcs.Transactions)
	positions := handler.NewPositionHandler(api.svcs.Positions)
	capital := handler.NewCapitalHandler(api.svcs.Capital)
	rates := handler.NewRateHandler(api.svcs.Rates)
	banks := handler.NewCorrespondentHandler(api.svcs.Correspondent)
	alerts := handler.NewAlertHandler(api.svcs.Alerts)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Get("/health/live", health.Live)
		r.Get("/health/ready", health.Ready)
		r.Method(http.MethodGet, "/metrics", observability.Handler())
		r.Get("/openapi.yaml", spec.OpenAPIHandler())
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	})

	// Protected routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))
		r.Use(middleware.IdempotencyMiddleware(api.idemStore, api.logger))

		r.Route("/balances", func(r chi.Router) {
			r.Post("/", balances.Create)
			r.Get("/", balances.List)
			r.Get("/{id}", balances.Get)
			r.Put("/{id}", balances.Update)
			r.Delete("/{id}", balances.Delete)
			r.Post("/{id}/submit", balances.Submit)
			r.Post("/{id}/authorize", balances.Authorize)
			r.Post("/{id}/reject", balances.Reject)
			r.Post("/{id}/reopen", balances.Reopen)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", txns.Create)
			r.Get("/", txns.List)
			r.Get("/{id}", txns.Get)
			r.Post("/{id}/submit", txns.Submit)
			r.Post("/{id}/authorize", txns.Authorize)
			r.Post("/{id}/reject", txns.Reject)
			r.Post("/{id}/reopen", txns.Reopen)
		})

		r.Get("/positions", positions.Position)
		r.Get("/positions/totals", positions.Totals)

		r.Get("/capital", capital.ForDate)
		r.Get("/capital/history", capital.History)
		r.Put("/capital", capital.Upsert)

		r.With(middleware.RequireAnyRole(domain.RoleAuthorizer, domain.RoleAdmin)).Post("/rates", rates.Record)
		r.Get("/rates/mid", rates.Mid)

		r.Route("/correspondents", func(r chi.Router) {
			r.Post("/", banks.CreateBank)
			r.Get("/", banks.ListBanks)
			r.Get("/limits", banks.Limits)
			r.Post("/limits/check", banks.Sweep)
			r.Get("/cash-cover", banks.CashCover)
			r.Put("/{id}/limits", banks.UpdateLimits)
			r.Post("/{id}/balances", banks.AddBalance)
		})

		r.Get("/alerts", alerts.Active)
		r.Post("/alerts/{id}/resolve", alerts.Resolve)
	})

	return r
}
