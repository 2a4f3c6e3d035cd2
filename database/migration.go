package database

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var dbMigrations embed.FS

func migrateDB(db *sql.DB) error {
	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}

	err = migrator.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		// db already up to date
		break
	case err != nil:
		return err
	}
	return nil
}

// Version reports the schema version currently applied.
func Version(db *sql.DB) (version uint, dirty bool, err error) {
	migrator, err := newMigrator(db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return
}

// Migrate applies every pending migration. Open already does this; the CLI exposes it
// so schema upgrades can run ahead of a deploy.
func Migrate(db *sql.DB) error {
	return migrateDB(db)
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(dbMigrations, "migrations")
	if err != nil {
		return nil, err
	}

	dst, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, err
	}

	return migrate.NewWithInstance("iofs", src, "sqlite3", dst)
}
