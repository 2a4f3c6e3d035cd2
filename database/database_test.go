package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAppliesMigrations(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := Version(db)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 1, version)

	// running again is a no-op
	require.NoError(t, Migrate(db))
}

func TestForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO question (survey_id, text, question_type) VALUES (999, 'orphan', 'text')`)
	assert.Error(t, err)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO survey (title, start_date, end_date)
			VALUES ('rolled back', datetime('now'), datetime('now'))`)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM survey`).Scan(&n))
	assert.Zero(t, n)
}

func TestWithTxCommits(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO survey (title, start_date, end_date)
			VALUES ('kept', datetime('now'), datetime('now'))`)
		return err
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM survey`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:a.sqlite?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", dsn("a.sqlite"))
	assert.Equal(t, "file:a.sqlite?mode=ro&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", dsn("file:a.sqlite?mode=ro"))
}
