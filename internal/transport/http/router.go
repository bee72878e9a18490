// Package httptransport is the operator HTTP surface. It delegates to the
// domain services without embedding business logic.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"healthnet/internal/platform/metrics"
	platformmw "healthnet/internal/platform/middleware"
	"healthnet/pkg/platform/httputil"
	"healthnet/pkg/platform/middleware/admin"
	"healthnet/pkg/platform/middleware/auth"
	request "healthnet/pkg/platform/middleware/request"
	"healthnet/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Handler   *Handler
	Validator auth.JWTValidator
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	// Checks are run by /healthz, keyed by dependency name.
	Checks map[string]HealthCheck
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(requesttime.Middleware)
	r.Use(platformmw.Observe(logger, cfg.Metrics))

	r.Get("/healthz", healthz(cfg.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAuth(cfg.Validator, logger))
		r.Use(admin.RequireAdmin(logger))
		cfg.Handler.Register(r)
	})
	return r
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
