// Package http exposes the ledger's write and read contracts as a JSON API.
// Identity is supplied by the excluded auth collaborator: the X-User-ID
// header is taken as an opaque partition key and never validated here.
package http

import (
	"net/http"
	"time"

	"divvy/internal/ledger"
	applog "divvy/internal/log"
	"divvy/internal/middleware/ratelimit"
	"divvy/internal/middleware/trace"
	"divvy/internal/notify"
	"divvy/internal/services"
)

type Server struct {
	ledger    *services.Ledger
	recurring *services.RecurringProcessor
	store     ledger.Store
	notifier  *notify.Notifier
	window    int // recent-transaction window feeding the net worth series
}

// NewHandler builds the routed API handler. window bounds how many recent
// transactions feed chart reconstruction; rateLimit is the per-user write
// budget per minute.
func NewHandler(svc *services.Ledger, recurring *services.RecurringProcessor, notifier *notify.Notifier, window, rateLimit int, logger *applog.Logger) http.Handler {
	s := &Server{
		ledger:    svc,
		recurring: recurring,
		store:     svc.Store(),
		notifier:  notifier,
		window:    window,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("POST /api/profile", s.handleCreateProfile)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/salary", s.handleAddSalary)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)

	mux.HandleFunc("GET /api/recurring", s.handleListTemplates)
	mux.HandleFunc("POST /api/recurring", s.handleCreateTemplate)
	mux.HandleFunc("POST /api/recurring/run", s.handleRunRecurring)

	mux.HandleFunc("GET /api/stats", s.handleGetStats)
	mux.HandleFunc("GET /api/networth/series", s.handleNetWorthSeries)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	var handler http.Handler = mux
	handler = ratelimit.NewLimiter(rateLimit).Middleware(handler)
	if logger != nil {
		handler = applog.Middleware(logger)(handler)
	}
	handler = trace.Middleware(handler)
	return handler
}

// NewServer wraps the API handler in an http.Server with sane timeouts.
func NewServer(addr string, svc *services.Ledger, recurring *services.RecurringProcessor, notifier *notify.Notifier, window, rateLimit int, logger *applog.Logger) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        NewHandler(svc, recurring, notifier, window, rateLimit, logger),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   0, // the events stream holds its connection open
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
}
