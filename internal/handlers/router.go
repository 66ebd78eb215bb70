package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/siocraft/finance-tracker-api/internal/auth"
	"github.com/siocraft/finance-tracker-api/internal/config"
	mW "github.com/siocraft/finance-tracker-api/internal/middleware"
)

const requestTimeout = 60 * time.Second

type RouterConfig struct {
	Transactions *TransactionHandler
	Verifier     auth.Verifier
	CORS         config.CORSConfig
	RateLimit    config.RateLimitConfig
	Log          logrus.FieldLogger
}

// NewRouter wires middleware, public routes and the authenticated /api/v1 group
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(chimw.RealIP)
	r.Use(mW.RequestID)
	r.Use(mW.RequestLogger(cfg.Log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mW.RequestIDHeader},
		ExposedHeaders:   []string{mW.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	if cfg.RateLimit.RPS > 0 {
		r.Use(NewRateLimitMiddleware(cfg.RateLimit, cfg.Log))
	}

	r.Get("/health", Health)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mW.AuthMiddleware(cfg.Verifier, cfg.Log))

		r.Get("/transactions", cfg.Transactions.ListTransactions)
		r.Post("/transactions", cfg.Transactions.CreateTransaction)
		r.Get("/transactions/{id}", cfg.Transactions.GetTransaction)
		r.Put("/transactions/{id}", cfg.Transactions.UpdateTransaction)
		r.Delete("/transactions/{id}", cfg.Transactions.DeleteTransaction)
	})

	return r
}

func NewRateLimitMiddleware(cfg config.RateLimitConfig, log logrus.FieldLogger) func(http.Handler) http.Handler {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return mW.NewRateLimiter(cfg.RPS, burst, log).Middleware
}
