// Package server assembles the drinks API and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/coffeeshop/drinks/internal/auth"
	"github.com/coffeeshop/drinks/internal/config"
	"github.com/coffeeshop/drinks/internal/db"
	"github.com/coffeeshop/drinks/internal/httputil"
	"github.com/coffeeshop/drinks/internal/logger"
	"github.com/coffeeshop/drinks/internal/middleware"
	"github.com/coffeeshop/drinks/internal/repository"
	"github.com/coffeeshop/drinks/internal/repository/redisrepo"
	"github.com/coffeeshop/drinks/server/app"
	dotwellknown "github.com/coffeeshop/drinks/server/dot-well-known-handlers"
	health "github.com/coffeeshop/drinks/server/health-handlers"
	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

// Start serves the API until SIGINT or SIGTERM, then drains in-flight requests.
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	drinks, closer, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()

	guard, err := NewGuard(ctx, cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           NewHandler(cfg, drinks, guard),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", srv.Addr, "env", cfg.AppEnv, "store", cfg.Store)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// OpenStore connects the configured drinks backend. The returned closer
// releases its connections.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.DrinkRepository, io.Closer, error) {
	switch cfg.Store {
	case config.StoreRedis:
		store, err := redisrepo.NewFromEnv(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis store: %w", err)
		}
		return store, store, nil
	default:
		dbService, err := db.NewService(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewDrinkRepository(dbService), dbService, nil
	}
}

// AuthConfig maps application settings onto the authorization pipeline.
func AuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Issuer:       cfg.Issuer(),
		Audience:     cfg.APIAudience,
		Algorithms:   cfg.Algorithms,
		JWKSURL:      cfg.KeySetURL(),
		FetchTimeout: cfg.JWKSTimeout,
		CacheTTL:     cfg.JWKSCacheTTL,
	}
}

// NewGuard builds the request guard, resolving the JWKS location through
// OpenID discovery when enabled.
func NewGuard(ctx context.Context, cfg *config.Config) (*auth.Guard, error) {
	ac := AuthConfig(cfg)
	client := &http.Client{Timeout: ac.FetchTimeout}

	if cfg.JWKSDiscovery && cfg.JWKSURL == "" {
		jwksURL, err := auth.DiscoverJWKSURL(ctx, ac.Issuer, client)
		if err != nil {
			return nil, err
		}
		logger.Info("Discovered signing keys", "jwks_url", jwksURL)
		ac.JWKSURL = jwksURL
	}

	return auth.NewGuard(ctx, ac, auth.WithHTTPClient(client))
}

// NewHandler builds the full HTTP handler: every route plus the shared middleware.
func NewHandler(cfg *config.Config, drinks repository.DrinkRepository, guard *auth.Guard) http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteError(w, req, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteError(w, req, http.StatusMethodNotAllowed)
	})

	health.RegisterRoutes(r, "", cfg, drinks)
	dotwellknown.RegisterRoutes(r, "/.well-known", cfg, app.Permissions())
	app.RegisterRoutes(r, "/", cfg, drinks, guard)

	return middleware.NewChain(
		middleware.RequestContext,
		middleware.RequestLogger,
		middleware.Recoverer,
	).Append(middleware.CORS(cfg.CORSAllowedOrigin)).Then(r)
}
