// Package auth authorizes requests carrying bearer access tokens. It extracts the
// token, verifies it against the issuer's published key set and checks that a
// required permission was granted before a protected operation runs.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/coffeeshop/drinks/internal/httputil"
	"github.com/coffeeshop/drinks/internal/logger"
)

// ProtectedFunc is an operation gated by a permission. It receives the verified
// claims ahead of the regular handler arguments.
type ProtectedFunc func(claims *Claims, w http.ResponseWriter, r *http.Request)

// ErrorRenderer writes an authorization failure to the client.
type ErrorRenderer func(w http.ResponseWriter, r *http.Request, err *Error)

// Guard composes header extraction, token verification and the permission check.
// It is safe for concurrent use.
type Guard struct {
	verifier *Verifier
	render   ErrorRenderer
}

type guardOptions struct {
	keys   KeySetFetcher
	client *http.Client
	render ErrorRenderer
}

// GuardOption customizes NewGuard.
type GuardOption func(*guardOptions)

// WithKeySetFetcher overrides how signing keys are obtained.
func WithKeySetFetcher(f KeySetFetcher) GuardOption {
	return func(o *guardOptions) { o.keys = f }
}

// WithHTTPClient sets the client used for JWKS requests. Its Timeout is left untouched.
func WithHTTPClient(c *http.Client) GuardOption {
	return func(o *guardOptions) { o.client = c }
}

// WithErrorRenderer replaces the default JSON error body.
func WithErrorRenderer(r ErrorRenderer) GuardOption {
	return func(o *guardOptions) { o.render = r }
}

// NewGuard builds a Guard from cfg. ctx bounds the lifetime of the optional key cache.
func NewGuard(ctx context.Context, cfg Config, opts ...GuardOption) (*Guard, error) {
	o := guardOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.keys == nil {
		client := o.client
		if client == nil {
			timeout := cfg.FetchTimeout
			if timeout <= 0 {
				timeout = DefaultFetchTimeout
			}
			client = &http.Client{Timeout: timeout}
		}
		if cfg.JWKSURL == "" {
			return nil, errors.New("jwks url is required")
		}
		if cfg.CacheTTL > 0 {
			cached, err := NewCachingKeySetFetcher(ctx, cfg.JWKSURL, cfg.CacheTTL, client)
			if err != nil {
				return nil, err
			}
			o.keys = cached
		} else {
			o.keys = NewHTTPKeySetFetcher(cfg.JWKSURL, client)
		}
	}
	if o.render == nil {
		o.render = RenderError
	}

	v, err := NewVerifier(cfg, o.keys)
	if err != nil {
		return nil, err
	}
	return &Guard{verifier: v, render: o.render}, nil
}

// Authorize runs the full pipeline for one request and stops at the first failure.
func (g *Guard) Authorize(ctx context.Context, h http.Header, permission string) (*Claims, error) {
	token, err := TokenFromHeader(h)
	if err != nil {
		logger.DebugContext(ctx, "Authorization rejected", "stage", "header", "error", err)
		return nil, err
	}

	claims, err := g.verifier.Verify(ctx, token)
	if err != nil {
		logger.DebugContext(ctx, "Authorization rejected", "stage", "verify", "error", err)
		return nil, err
	}

	if err := CheckPermission(permission, claims); err != nil {
		logger.DebugContext(ctx, "Authorization rejected", "stage", "permission", "permission", permission, "sub", claims.Subject())
		return nil, err
	}

	logger.DebugContext(ctx, "Authorization granted", "permission", permission, "sub", claims.Subject())
	return claims, nil
}

// Require wraps op so it only runs once the request holds permission.
func (g *Guard) Require(permission string, op ProtectedFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.Authorize(r.Context(), r.Header, permission)
		if err != nil {
			g.render(w, r, AsError(err))
			return
		}
		ctx := logger.WithSubject(withClaims(r.Context(), claims), claims.Subject())
		op(claims, w, r.WithContext(ctx))
	})
}

// Middleware is Require for handlers that read claims from the context.
func (g *Guard) Middleware(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.Require(permission, func(_ *Claims, w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
		})
	}
}

type claimsKey struct{}

func withClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims stored by Require or Middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// RenderError writes {"success": false, "error": status, "message": description}.
func RenderError(w http.ResponseWriter, r *http.Request, err *Error) {
	logger.WarnContext(r.Context(), "Request not authorized", "code", err.Code, "status", err.StatusCode, "error", err)
	httputil.WriteFailure(w, err.StatusCode, err.Description)
}
