package httpapi

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ledgerforge/ledgerd/internal/auth"
	"github.com/ledgerforge/ledgerd/internal/logger"
)

// Config wires together everything the router needs to build routes
// (spec.md §6's HTTP surface rooted at /api).
type Config struct {
	Handlers          *Handlers
	Logger            *logger.Logger
	Verifier          *auth.Verifier
	AllowedOrigins    []string
	RateLimiter       *RateLimiter
}

// New builds the chi router. Every /api route runs behind Auth and the
// organization-keyed RateLimiter; individual routes additionally guard
// on the scope required for their resource and verb.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(Recovery(cfg.Logger))
	r.Use(RequestLogger(cfg.Logger))
	r.Use(CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))

	r.Get("/health", Health)
	r.Get("/health/live", Health)

	h := cfg.Handlers
	r.Route("/api", func(r chi.Router) {
		r.Use(Auth(cfg.Verifier))
		r.Use(cfg.RateLimiter.Middleware)

		r.Route("/ledgers", func(r chi.Router) {
			r.With(RequireScope("ledger:account:write")).Post("/", h.CreateLedger)
			r.With(RequireScope("ledger:account:read")).Get("/", h.ListLedgers)

			r.Route("/{ledgerId}", func(r chi.Router) {
				r.With(RequireScope("ledger:account:read")).Get("/", h.GetLedger)
				r.With(RequireScope("ledger:account:delete")).Delete("/", h.DeleteLedger)

				r.Route("/accounts", func(r chi.Router) {
					r.With(RequireScope("ledger:account:write")).Post("/", h.CreateAccount)
					r.With(RequireScope("ledger:account:read")).Get("/", h.ListAccounts)

					r.Route("/{accountId}", func(r chi.Router) {
						r.With(RequireScope("ledger:account:read")).Get("/", h.GetAccount)
						r.With(RequireScope("ledger:account:delete")).Delete("/", h.DeleteAccount)

						r.Route("/monitors", func(r chi.Router) {
							r.With(RequireScope("ledger:account:read")).Get("/", h.ListMonitorsByAccount)
						})
						r.Route("/statements", func(r chi.Router) {
							r.With(RequireScope("ledger:account:write")).Post("/", h.GenerateStatement)
							r.With(RequireScope("ledger:account:read")).Get("/", h.ListStatementsByAccount)
						})
					})
				})

				r.Route("/transactions", func(r chi.Router) {
					r.With(RequireScope("ledger:transaction:write")).Post("/", h.CreateTransaction)
					r.With(RequireScope("ledger:transaction:read")).Get("/", h.ListTransactions)

					r.Route("/{transactionId}", func(r chi.Router) {
						r.With(RequireScope("ledger:transaction:read")).Get("/", h.GetTransaction)
						r.With(RequireScope("ledger:transaction:delete")).Delete("/", h.DeleteTransaction)
						r.With(RequireScope("ledger:transaction:write")).Post("/post", h.PostTransaction)
					})
				})

				r.Route("/settlements", func(r chi.Router) {
					r.With(RequireScope("ledger:account:settlement:write")).Post("/", h.CreateSettlement)
					r.With(RequireScope("ledger:account:settlement:read")).Get("/", h.ListSettlements)

					r.Route("/{settlementId}", func(r chi.Router) {
						r.With(RequireScope("ledger:account:settlement:read")).Get("/", h.GetSettlement)
						r.With(RequireScope("ledger:account:settlement:write")).Post("/entries", h.AddSettlementEntries)
						r.With(RequireScope("ledger:account:settlement:write")).Delete("/entries", h.RemoveSettlementEntries)
						r.With(RequireScope("ledger:account:settlement:write")).Post("/{status}", h.TransitionSettlement)
					})
				})
			})
		})

		r.Route("/monitors", func(r chi.Router) {
			r.With(RequireScope("ledger:account:write")).Post("/", h.CreateMonitor)
			r.Route("/{monitorId}", func(r chi.Router) {
				r.With(RequireScope("ledger:account:read")).Get("/", h.GetMonitor)
				r.With(RequireScope("ledger:account:delete")).Delete("/", h.DeleteMonitor)
			})
		})

		r.Route("/statements/{statementId}", func(r chi.Router) {
			r.With(RequireScope("ledger:account:read")).Get("/", h.GetStatement)
		})
	})

	return r
}
