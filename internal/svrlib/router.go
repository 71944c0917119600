// Package svrlib provides common server routing utilities
package svrlib

import (
	"github.com/coffeeshop/drinks/internal/config"
	"github.com/go-chi/chi/v5"
)

// Router bundles the chi router with the configuration route groups need.
type Router struct {
	Config    *config.Config
	Mux       chi.Router
	BaseRoute string
}

// NewRouter creates a new Router with the given mux, base route, and configuration
func NewRouter(mux chi.Router, baseRoute string, cfg *config.Config) *Router {
	return &Router{cfg, mux, baseRoute}
}

// Path joins the base route with p.
func (r *Router) Path(p string) string {
	if r.BaseRoute == "" || r.BaseRoute == "/" {
		return p
	}
	return r.BaseRoute + p
}
