package db

import (
	"context"
	"fmt"
)

func drinksTable(driver DatabaseDriver) string {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == PostgreSQL {
		id = "SERIAL PRIMARY KEY"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS drinks (
	id %s,
	title VARCHAR(80) NOT NULL UNIQUE,
	recipe TEXT NOT NULL
)`, id)
}

// CreateSchema creates the drinks table if it does not exist.
func CreateSchema(ctx context.Context, db DBTX, driver DatabaseDriver) error {
	if _, err := db.ExecContext(ctx, drinksTable(driver)); err != nil {
		return fmt.Errorf("failed to create drinks table: %w", err)
	}
	return nil
}

// DropSchema removes the drinks table.
func DropSchema(ctx context.Context, db DBTX) error {
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS drinks"); err != nil {
		return fmt.Errorf("failed to drop drinks table: %w", err)
	}
	return nil
}
