// Package http serves the JSON API for accounts, ledger entries and
// scheduled obligations.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finance/internal/auth"
	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/middleware/security"
	"finance/internal/middleware/trace"
	"finance/internal/observability"
	"finance/internal/services"
)

// ObligationManager is the lifecycle API the scheduled routes drive.
type ObligationManager interface {
	Create(ctx context.Context, userID int64, in services.ObligationInput) (core.Obligation, error)
	Edit(ctx context.Context, userID, id int64, in services.ObligationInput) (core.Obligation, error)
	Delete(ctx context.Context, userID, id int64) (core.Obligation, error)
	Get(ctx context.Context, userID, id int64) (core.Obligation, error)
	List(ctx context.Context, userID int64) ([]core.Obligation, error)
	Pay(ctx context.Context, userID, id int64, in services.PaymentInput) (services.PayResult, error)
}

// Ledger records accounts, categories and direct entries.
type Ledger interface {
	CreateAccount(ctx context.Context, userID int64, name, description string) (core.Account, error)
	GetAccount(ctx context.Context, userID, id int64) (core.Account, error)
	CreateCategory(ctx context.Context, userID int64, name string, typ core.CategoryType) (core.Category, error)
	ListCategories(ctx context.Context, userID int64, typ core.CategoryType) ([]core.Category, error)
	RecordTransaction(ctx context.Context, userID int64, tx core.Transaction) (core.Transaction, error)
	RecordTransfer(ctx context.Context, userID int64, tr core.Transfer) (core.Transfer, error)
	GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id int64, patch services.TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
	GetTransfer(ctx context.Context, userID, id int64) (core.Transfer, error)
	UpdateTransfer(ctx context.Context, userID, id int64, patch services.TransferPatch) (core.Transfer, error)
	DeleteTransfer(ctx context.Context, userID, id int64) (core.Transfer, error)
}

// Balances projects balances and feeds from the ledger.
type Balances interface {
	AccountBalance(ctx context.Context, accountID, userID int64) (core.Money, error)
	Accounts(ctx context.Context, userID int64) ([]services.AccountWithBalance, error)
	Feed(ctx context.Context, accountID, userID int64) ([]core.FeedEntry, error)
}

// Options configures NewServer. Gatherer may be nil to disable /metrics.
type Options struct {
	Obligations ObligationManager
	Ledger      Ledger
	Balances    Balances
	Verifier    *auth.Verifier
	Metrics     *observability.Metrics
	Gatherer    prometheus.Gatherer
	Ready       func(ctx context.Context) error
	RateLimit   ratelimit.Config
	ClientIP    *security.ClientIP
}

type Server struct {
	http.Server
	obligations ObligationManager
	ledger      Ledger
	balances    Balances
	ready       func(ctx context.Context) error
	rateLimiter *ratelimit.Limiter
	logger      *applog.Logger
}

func NewServer(addr string, opts Options) *Server {
	clientIP := opts.ClientIP
	if clientIP == nil {
		clientIP, _ = security.NewClientIP()
	}
	s := &Server{
		obligations: opts.Obligations,
		ledger:      opts.Ledger,
		balances:    opts.Balances,
		ready:       opts.Ready,
		rateLimiter: ratelimit.NewLimiter(opts.RateLimit),
		logger:      applog.New(applog.Config{Component: applog.ComponentHTTP, Handler: slog.Default().Handler()}),
	}

	r := chi.NewRouter()
	r.Use(trace.NewMiddleware(s.logger, clientIP.Extract, opts.Metrics).Middleware)
	r.Use(chimw.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware(clientIP.Extract, ratelimit.ReadOnly, tooManyRequests))
		r.Use(opts.Verifier.Middleware(unauthorized))

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleCreateAccount)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAccount)
				r.Get("/balance", s.handleAccountBalance)
				r.Get("/feed", s.handleAccountFeed)
				r.Post("/transactions", s.handleRecordTransaction)
			})
		})
		r.Route("/transactions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetTransaction)
			r.Patch("/", s.handleUpdateTransaction)
			r.Delete("/", s.handleDeleteTransaction)
		})
		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", s.handleRecordTransfer)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetTransfer)
				r.Patch("/", s.handleUpdateTransfer)
				r.Delete("/", s.handleDeleteTransfer)
			})
		})

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleCreateCategory)

		r.Route("/scheduled", func(r chi.Router) {
			r.Get("/", s.handleListScheduled)
			r.Post("/", s.handleCreateScheduled)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetScheduled)
				r.Patch("/", s.handleEditScheduled)
				r.Delete("/", s.handleDeleteScheduled)
				r.Post("/pay", s.handlePayScheduled)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops accepting requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// userID returns the id stored by the auth middleware, which guards every
// route calling it.
func userID(r *http.Request) int64 {
	id, _ := auth.UserFromContext(r.Context())
	return id
}
