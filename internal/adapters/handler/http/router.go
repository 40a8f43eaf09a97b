package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/vncsmyrnk/accounts/docs"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	RateLimiter    *RateLimiter
	Health         Pinger
	Logger         *zap.Logger
}

func NewHandler(
	authHandler *AuthHandler,
	userHandler *UserHandler,
	entityHandler *EntityHandler,
	codec ports.TokenCodec,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("API running!"))
	})
	r.Get("/healthz", healthz(cfg.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	authenticate := Authenticate(codec)

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.With(authenticate).Post("/logout-all", authHandler.LogoutAll)
		})

		r.With(authenticate).Get("/me", userHandler.GetMe)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.Register)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.With(RequireAdmin).Get("/", userHandler.List)
				r.Get("/{id}", userHandler.Get)
				r.Put("/{id}", userHandler.Update)
				r.Delete("/{id}", userHandler.Delete)
				r.With(RequireAdmin).Post("/{id}/sessions/revoke", userHandler.RevokeSessions)
			})
		})

		r.Route("/entities", func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/{id}", entityHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/", entityHandler.List)
				r.Post("/", entityHandler.Create)
				r.Put("/{id}", entityHandler.Update)
				r.Delete("/{id}", entityHandler.Delete)
			})
		})
	})

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(r)
}

func healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
