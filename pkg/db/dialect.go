package db

import (
	"database/sql"
	"fmt"
)

// Querier is the single capability the exporter needs from the database.
type Querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Dialect abstracts the schema-introspection queries that differ between
// MySQL and SQLite. Everything else uses portable ? placeholders.
type Dialect interface {
	// ListTables returns table names matching a SQL LIKE pattern, sorted.
	ListTables(q Querier, pattern string) ([]string, error)
	// ListColumns returns a table's column names in definition order.
	ListColumns(q Querier, table string) ([]string, error)
}

type MySQLDialect struct{}

func (MySQLDialect) ListTables(q Querier, pattern string) ([]string, error) {
	rows, err := q.Query(`
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name LIKE ?
		ORDER BY table_name`, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return scanStrings(rows)
}

func (MySQLDialect) ListColumns(q Querier, table string) ([]string, error) {
	rows, err := q.Query(`
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	return scanStrings(rows)
}

type SQLiteDialect struct{}

func (SQLiteDialect) ListTables(q Querier, pattern string) ([]string, error) {
	rows, err := q.Query(`
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name LIKE ?
		ORDER BY name`, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return scanStrings(rows)
}

func (SQLiteDialect) ListColumns(q Querier, table string) ([]string, error) {
	rows, err := q.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
