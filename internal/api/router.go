package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	Logger *slog.Logger
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
}

// NewRouter constructs a chi router with all API endpoints registered.
func NewRouter(svc WalletService, opts RouterOptions) http.Handler {
	h := NewHandler(svc, opts.Logger)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", headerIdempotencyKey},
		ExposedHeaders: []string{headerReplayed, "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/", health)
	r.Get("/health", health)
	r.Get("/healthz", health)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.CreateHolderHandler)

		r.Route("/{userId}", func(r chi.Router) {
			r.Post("/credit", h.CreditHandler)
			r.Post("/debit", h.DebitHandler)
			r.Get("/balance", h.GetBalanceHandler)
			r.Get("/transactions", h.HistoryHandler)
			r.Get("/audit", h.AuditHandler)
		})
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
