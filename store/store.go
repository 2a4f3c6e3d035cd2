// Package store holds the SQL for every entity. Functions take a Querier so callers
// decide whether they run on the pool or inside a transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflicts with an existing record")
	ErrReference = errors.New("references a record that does not exist")
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// translate maps driver errors onto the package sentinels, keeping the original
// error in the chain.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s: %w: %v", op, ErrReference, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// mustAffect turns a zero-row UPDATE or DELETE into ErrNotFound.
func mustAffect(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return translate(op, err)
	}
	if n < 1 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func lastID(op string, res sql.Result) (int, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, translate(op, err)
	}
	return int(id), nil
}
