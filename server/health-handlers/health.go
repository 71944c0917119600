// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coffeeshop/drinks/internal/config"
	"github.com/coffeeshop/drinks/internal/httputil"
	"github.com/coffeeshop/drinks/internal/logger"
	"github.com/coffeeshop/drinks/internal/svrlib"
	"github.com/go-chi/chi/v5"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthRouter struct {
	*svrlib.Router
	store Pinger
}

// RegisterRoutes registers all health check routes on the given mux
func RegisterRoutes(mux chi.Router, baseRoute string, cfg *config.Config, store Pinger) {
	router := &HealthRouter{Router: svrlib.NewRouter(mux, baseRoute, cfg), store: store}
	mux.Get(router.Path("/healthz"), router.HealthzHandler)
	mux.Get(router.Path("/readyz"), router.ReadyzHandler)
}

// HealthzHandler responds to /healthz requests for health checks
func (rt *HealthRouter) HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "ok")
}

// ReadyzHandler reports 503 until the drinks store answers a ping.
func (rt *HealthRouter) ReadyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := rt.store.Ping(ctx); err != nil {
		logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
		httputil.WriteFailure(w, http.StatusServiceUnavailable, "")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "ready")
}
