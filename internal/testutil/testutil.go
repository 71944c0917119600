// Package testutil provides shared fixtures for package tests
package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coffeeshop/drinks/internal/config"
	"github.com/coffeeshop/drinks/internal/db"
)

// TestDatabase creates an in-memory SQLite database with the drinks schema
func TestDatabase(t *testing.T) *db.Service {
	t.Helper()

	cfg := &config.Config{
		DatabaseURL: ":memory:",
		AppEnv:      config.EnvTest,
	}

	dbService, err := db.NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		if err := dbService.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})

	return dbService
}

// TestServer creates a test HTTP server around handler
func TestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

// CreateTestDrink inserts a drink row directly, bypassing validation
func CreateTestDrink(t *testing.T, dbService *db.Service, title, recipeJSON string) db.Drink {
	t.Helper()

	row, err := dbService.Queries().CreateDrink(context.Background(), db.CreateDrinkParams{
		Title:  title,
		Recipe: recipeJSON,
	})
	if err != nil {
		t.Fatalf("Failed to create test drink: %v", err)
	}

	return row
}
