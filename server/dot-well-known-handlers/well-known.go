// Package dotwellknown publishes discovery documents under /.well-known.
package dotwellknown

import (
	"net/http"

	"github.com/coffeeshop/drinks/internal/config"
	"github.com/coffeeshop/drinks/internal/httputil"
	"github.com/go-chi/chi/v5"
)

const protectedResourceFilename = "oauth-protected-resource"

type WellKnownRouter struct {
	baseRoute string
	cfg       *config.Config
	scopes    []string
}

// ProtectedResourceMetadata tells clients which issuer mints tokens for this
// API and which permissions it understands.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers,omitempty"`
	JWKSURI                string   `json:"jwks_uri,omitempty"`
	ScopesSupported        []string `json:"scopes_supported"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
	SigningAlgorithms      []string `json:"resource_signing_alg_values_supported,omitempty"`
}

// RegisterRoutes registers the /.well-known routes on the given mux. scopes are
// the permission strings the API checks.
func RegisterRoutes(mux chi.Router, baseRoute string, cfg *config.Config, scopes []string) {
	router := &WellKnownRouter{
		baseRoute: baseRoute,
		cfg:       cfg,
		scopes:    scopes,
	}

	mux.Get(baseRoute+"/"+protectedResourceFilename, router.ProtectedResourceHandler)
}

// ProtectedResourceHandler serves the OAuth protected resource metadata.
func (router *WellKnownRouter) ProtectedResourceHandler(w http.ResponseWriter, _ *http.Request) {
	metadata := ProtectedResourceMetadata{
		Resource:               router.cfg.APIAudience,
		ScopesSupported:        append([]string(nil), router.scopes...),
		BearerMethodsSupported: []string{"header"},
		SigningAlgorithms:      router.cfg.Algorithms,
	}
	if router.cfg.Auth0Domain != "" {
		metadata.AuthorizationServers = []string{router.cfg.Issuer()}
	}
	if router.cfg.Auth0Domain != "" || router.cfg.JWKSURL != "" {
		metadata.JWKSURI = router.cfg.KeySetURL()
	}
	httputil.WriteSuccess(w, metadata)
}
