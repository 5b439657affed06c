// Package db owns the database connection and the small dialect layer that
// lets the same discovery queries run against MySQL (live Drupal) and SQLite
// (snapshots, tests).
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Config holds everything needed to reach the Drupal database.
type Config struct {
	Driver   string // "mysql" (default) or "sqlite"
	Host     string
	Database string
	User     string
	Password string
}

// DB wraps the connection with the dialect it was opened under and a memoized
// table-existence check.
type DB struct {
	*sql.DB
	dialect Dialect

	mu     sync.Mutex
	tables map[string]bool
}

func (c Config) dsn() (driver, dsn string, err error) {
	switch c.Driver {
	case "", "mysql":
		host := c.Host
		if host == "" {
			host = "localhost"
		}
		if !strings.Contains(host, ":") {
			host += ":3306"
		}
		return "mysql", fmt.Sprintf("%s:%s@tcp(%s)/%s", c.User, c.Password, host, c.Database), nil
	case "sqlite":
		return "sqlite", c.Database, nil
	default:
		return "", "", fmt.Errorf("unsupported driver: %q", c.Driver)
	}
}

// Open connects and verifies the connection. The ping retries with
// exponential backoff so a briefly unavailable server does not abort an
// export before it starts. Failure here is fatal for the run.
func Open(cfg Config) (*DB, error) {
	driver, dsn, err := cfg.dsn()
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 15 * time.Second
	if err := backoff.Retry(sqlDB.Ping, backoff.WithMaxRetries(bo, 5)); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database %q: %w", cfg.Database, err)
	}

	var d Dialect
	if driver == "mysql" {
		d = MySQLDialect{}
	} else {
		d = SQLiteDialect{}
	}

	return &DB{DB: sqlDB, dialect: d, tables: make(map[string]bool)}, nil
}

// Dialect returns the schema-introspection dialect for this connection.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// HasTable reports whether a table exists, memoized for the run.
func (db *DB) HasTable(name string) bool {
	db.mu.Lock()
	exists, ok := db.tables[name]
	db.mu.Unlock()
	if ok {
		return exists
	}

	names, err := db.dialect.ListTables(db.DB, name)
	exists = err == nil && len(names) > 0

	db.mu.Lock()
	db.tables[name] = exists
	db.mu.Unlock()
	return exists
}
