package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coffeeshop/drinks/internal/auth"
	"github.com/coffeeshop/drinks/internal/auth/authtest"
	"github.com/coffeeshop/drinks/internal/config"
	"github.com/coffeeshop/drinks/internal/repository"
	"github.com/coffeeshop/drinks/internal/testutil"
	"github.com/go-chi/chi/v5"
)

type testAPI struct {
	handler http.Handler
	issuer  *authtest.Issuer
	drinks  repository.DrinkRepository
}

// newTestAPI wires the drinks routes to an in-memory database and a local issuer.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	issuer := authtest.NewIssuer(t)
	guard, err := auth.NewGuard(context.Background(), auth.Config{
		Issuer:   issuer.URL(),
		Audience: issuer.Audience,
		JWKSURL:  issuer.JWKSURL(),
	})
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	drinks := repository.NewDrinkRepository(testutil.TestDatabase(t))
	if err := drinks.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, "/", &config.Config{AppEnv: config.EnvTest}, drinks, guard)

	return &testAPI{handler: r, issuer: issuer, drinks: drinks}
}

// do sends a request; token may be empty and body may be nil.
func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool               `json:"success"`
	Error   int                `json:"error"`
	Message string             `json:"message"`
	Drinks  []repository.Drink `json:"drinks"`
	Delete  int64              `json:"delete"`
	Details []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return env
}
