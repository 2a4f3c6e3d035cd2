package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the SQLite file at url and brings its schema up to date.
func Open(url string) (db *sql.DB, err error) {
	db, err = sql.Open("sqlite3", dsn(url))
	if err != nil {
		return
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	err = migrateDB(db)
	if err != nil {
		db.Close()
		return
	}

	return
}

// dsn applies per-connection pragmas: a PRAGMA executed once on the pool only
// reaches a single connection.
func dsn(url string) string {
	opts := "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if strings.Contains(url, "?") {
		return url + "&" + opts
	}
	return "file:" + strings.TrimPrefix(url, "file:") + "?" + opts
}
