package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/querychat/querychat/internal/auth"
	"github.com/querychat/querychat/internal/chat"
	"github.com/querychat/querychat/internal/config"
	"github.com/querychat/querychat/internal/observability"
	"github.com/querychat/querychat/internal/storage"
	"github.com/querychat/querychat/internal/telemetry"
)

type ReadinessCheck func(ctx context.Context) error

var routes = []string{
	"/v1/health",
	"/v1/ready",
	"/v1/metrics",
	"/v1/models",
	"/v1/chat/completions",
	visualizationsRoute,
}

// ChatHandler answers one chat turn.
type ChatHandler interface {
	Handle(ctx context.Context, req chat.Request) (chat.Response, error)
}

type Dependencies struct {
	Logger    *slog.Logger
	Readiness ReadinessCheck
	// Authenticate returns the auth middleware for a scope. Required when
	// cfg.Auth.Required is set.
	Authenticate      func(scope string) func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Chat              ChatHandler
	// Store serves persisted chart images. Nil disables the visualization
	// routes.
	Store storage.ObjectStore
	// Now and NewID default to time.Now and a random UUID.
	Now   func() time.Time
	NewID func() string
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	deps = withDefaults(deps)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), deps.DependencyTimeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	models := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleListModels(cfg, deps, w, r)
	})
	completions := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleChatCompletions(deps, w, r)
	})
	mux.Handle("GET /v1/models", protect(cfg, deps, auth.ScopeModels, models))
	mux.Handle("POST /v1/chat/completions", protect(cfg, deps, auth.ScopeChat, completions))

	getVisualization := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetVisualization(deps, w, r)
	})
	deleteVisualization := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleDeleteVisualization(deps, w, r)
	})
	mux.Handle("GET "+visualizationsRoute+"{key...}", protect(cfg, deps, auth.ScopeChat, getVisualization))
	mux.Handle("DELETE "+visualizationsRoute+"{key...}", protect(cfg, deps, auth.ScopeChat, deleteVisualization))

	middlewares := []func(http.Handler) http.Handler{
		CORSMiddleware(cfg.HTTP.CORSAllowedOrigins),
		telemetry.Middleware,
		observability.TraceMiddleware,
		observability.MetricsMiddleware(routes...),
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func protect(cfg config.Config, deps Dependencies, scope string, next http.Handler) http.Handler {
	if !cfg.Auth.Required {
		return next
	}
	if deps.Authenticate == nil {
		if deps.Logger != nil {
			deps.Logger.Error("auth required but auth middleware missing")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusInternalServerError, "auth middleware is required by configuration")
		})
	}
	return deps.Authenticate(scope)(next)
}

func withDefaults(deps Dependencies) Dependencies {
	if deps.DependencyTimeout <= 0 {
		deps.DependencyTimeout = 2 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = newID
	}
	return deps
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckPing adapts a dependency with a Ping method to a ReadinessCheck.
func CheckPing(name string, p Pinger) ReadinessCheck {
	return func(ctx context.Context) error {
		if p == nil {
			return errors.New(name + " is not configured")
		}
		if err := p.Ping(ctx); err != nil {
			return errors.New(name + ": " + err.Error())
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError emits {"error": message}. Messages are passed through unredacted.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
