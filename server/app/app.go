// Package app provides the drinks API handlers
package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/coffeeshop/drinks/internal/auth"
	"github.com/coffeeshop/drinks/internal/config"
	"github.com/coffeeshop/drinks/internal/httputil"
	"github.com/coffeeshop/drinks/internal/logger"
	"github.com/coffeeshop/drinks/internal/middleware"
	"github.com/coffeeshop/drinks/internal/repository"
	"github.com/coffeeshop/drinks/internal/svrlib"
	"github.com/coffeeshop/drinks/internal/validation"
	"github.com/go-chi/chi/v5"
)

// Permissions checked by the drinks routes.
const (
	PermGetDrinksDetail = "get:drinks-detail"
	PermPostDrinks      = "post:drinks"
	PermPatchDrinks     = "patch:drinks"
	PermDeleteDrinks    = "delete:drinks"
)

const maxBodyBytes = 1 << 20

// Permissions lists every permission the API understands.
func Permissions() []string {
	return []string{PermGetDrinksDetail, PermPostDrinks, PermPatchDrinks, PermDeleteDrinks}
}

// Router handles the drinks routes
type Router struct {
	*svrlib.Router
	drinks repository.DrinkRepository
	guard  *auth.Guard
}

type drinksResponse struct {
	Success bool `json:"success"`
	Drinks  any  `json:"drinks"`
}

type deleteResponse struct {
	Success bool  `json:"success"`
	Delete  int64 `json:"delete"`
}

// RegisterRoutes registers the drinks routes and returns a Router
func RegisterRoutes(mux chi.Router, baseRoute string, cfg *config.Config, drinks repository.DrinkRepository, guard *auth.Guard) *Router {
	router := &Router{
		Router: svrlib.NewRouter(mux, baseRoute, cfg),
		drinks: drinks,
		guard:  guard,
	}

	mux.Get(router.Path("/drinks"), router.ListDrinks)
	mux.Method(http.MethodGet, router.Path("/drinks-detail"), guard.Require(PermGetDrinksDetail, router.ListDrinksDetail))

	// Authorization runs before the body is inspected.
	mux.With(guard.Middleware(PermPostDrinks), middleware.RequireJSON).
		Post(router.Path("/drinks"), router.CreateDrink)
	mux.With(guard.Middleware(PermPatchDrinks), middleware.RequireJSON).
		Patch(router.Path("/drinks/{id}"), router.UpdateDrink)
	mux.Method(http.MethodDelete, router.Path("/drinks/{id}"), guard.Require(PermDeleteDrinks, router.DeleteDrink))

	return router
}

// ListDrinks serves the short representation of every drink without authorization.
func (r *Router) ListDrinks(w http.ResponseWriter, req *http.Request) {
	drinks, err := r.drinks.List(req.Context())
	if err != nil {
		httputil.WriteInternalError(w, req, err)
		return
	}

	short := make([]repository.ShortDrink, len(drinks))
	for i, d := range drinks {
		short[i] = d.Short()
	}
	httputil.WriteSuccess(w, drinksResponse{Success: true, Drinks: short})
}

// ListDrinksDetail serves the long representation of every drink.
func (r *Router) ListDrinksDetail(claims *auth.Claims, w http.ResponseWriter, req *http.Request) {
	drinks, err := r.drinks.List(req.Context())
	if err != nil {
		httputil.WriteInternalError(w, req, err)
		return
	}

	logger.DebugContext(req.Context(), "Listing drink details", "count", len(drinks), "sub", claims.Subject())
	httputil.WriteSuccess(w, drinksResponse{Success: true, Drinks: longForm(drinks...)})
}

// CreateDrink stores a new drink from the JSON body.
func (r *Router) CreateDrink(w http.ResponseWriter, req *http.Request) {
	var in repository.DrinkInput
	if !decodeBody(w, req, &in) {
		return
	}

	d, err := r.drinks.Create(req.Context(), in)
	if err != nil {
		writeRepoError(w, req, err)
		return
	}

	logger.InfoContext(req.Context(), "Drink created", "id", d.ID, "title", d.Title)
	httputil.WriteSuccess(w, drinksResponse{Success: true, Drinks: longForm(d)})
}

// UpdateDrink applies a partial update to the drink named in the path.
func (r *Router) UpdateDrink(w http.ResponseWriter, req *http.Request) {
	id, ok := drinkID(w, req)
	if !ok {
		return
	}

	var patch repository.DrinkPatch
	if !decodeBody(w, req, &patch) {
		return
	}

	d, err := r.drinks.Update(req.Context(), id, patch)
	if err != nil {
		writeRepoError(w, req, err, "id", id)
		return
	}

	logger.InfoContext(req.Context(), "Drink updated", "id", d.ID)
	httputil.WriteSuccess(w, drinksResponse{Success: true, Drinks: longForm(d)})
}

// DeleteDrink removes the drink named in the path.
func (r *Router) DeleteDrink(claims *auth.Claims, w http.ResponseWriter, req *http.Request) {
	id, ok := drinkID(w, req)
	if !ok {
		return
	}

	if err := r.drinks.Delete(req.Context(), id); err != nil {
		writeRepoError(w, req, err, "id", id)
		return
	}

	logger.InfoContext(req.Context(), "Drink deleted", "id", id, "sub", claims.Subject())
	httputil.WriteSuccess(w, deleteResponse{Success: true, Delete: id})
}

func longForm(drinks ...*repository.Drink) []repository.Drink {
	out := make([]repository.Drink, len(drinks))
	for i, d := range drinks {
		out[i] = d.Long()
	}
	return out
}

// drinkID parses the {id} path parameter. Anything but a positive integer is a 404.
func drinkID(w http.ResponseWriter, req *http.Request) (int64, bool) {
	raw := chi.URLParam(req, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, req, http.StatusNotFound, "id", raw)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, req *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		httputil.WriteError(w, req, http.StatusUnprocessableEntity, "error", err)
		return false
	}
	return true
}

func writeRepoError(w http.ResponseWriter, req *http.Request, err error, logFields ...any) {
	var details validation.Errors
	switch {
	case errors.Is(err, repository.ErrDrinkNotFound):
		httputil.WriteError(w, req, http.StatusNotFound, logFields...)
	case errors.Is(err, repository.ErrInvalidInput) && errors.As(err, &details):
		httputil.WriteValidationError(w, req, details)
	case errors.Is(err, repository.ErrInvalidInput), errors.Is(err, repository.ErrDuplicateTitle):
		httputil.WriteError(w, req, http.StatusUnprocessableEntity, append(logFields, "error", err)...)
	default:
		httputil.WriteInternalError(w, req, err, logFields...)
	}
}
