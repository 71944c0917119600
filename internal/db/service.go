package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coffeeshop/drinks/internal/config"
	"github.com/coffeeshop/drinks/internal/logger"
)

// Service wraps the database connection and provides methods for database operations
type Service struct {
	db      *sql.DB
	queries *Queries
	driver  DatabaseDriver
}

// NewService opens the configured database and makes sure the schema exists.
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	dbConfig := NewDatabaseConfig(cfg.DatabaseURL, cfg.AppEnv)
	db, err := OpenDatabase(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := CreateSchema(ctx, db, dbConfig.Driver); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("Database service initialized", "driver", string(dbConfig.Driver))

	return &Service{
		db:      db,
		queries: New(db, dbConfig.Driver),
		driver:  dbConfig.Driver,
	}, nil
}

// Close closes the database connection
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Queries returns the queries bound to the connection pool
func (s *Service) Queries() *Queries {
	return s.queries
}

// DB returns the underlying database connection
func (s *Service) DB() *sql.DB {
	return s.db
}

// Driver returns the database driver type
func (s *Service) Driver() DatabaseDriver {
	return s.driver
}

// Ping checks that the database is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx executes a function within a database transaction
func (s *Service) WithTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(s.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// ResetDrinks drops and recreates the drinks table, then inserts seed rows.
// All of it happens in one transaction.
func (s *Service) ResetDrinks(ctx context.Context, seed []CreateDrinkParams) error {
	return s.WithTx(ctx, func(q *Queries) error {
		if err := DropSchema(ctx, q.db); err != nil {
			return err
		}
		if err := CreateSchema(ctx, q.db, s.driver); err != nil {
			return err
		}
		for _, d := range seed {
			if _, err := q.CreateDrink(ctx, d); err != nil {
				return fmt.Errorf("failed to seed drink %q: %w", d.Title, err)
			}
		}
		return nil
	})
}
