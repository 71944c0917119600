package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// New returns Queries bound to db, rendering placeholders for driver.
func New(db DBTX, driver DatabaseDriver) *Queries {
	return &Queries{db: db, driver: driver}
}

// Queries runs the drinks statements against a connection or transaction.
type Queries struct {
	db     DBTX
	driver DatabaseDriver
}

// WithTx returns a copy of q that runs inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, driver: q.driver}
}
