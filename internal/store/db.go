// Package store implements persistence for profiles and their audit trail on
// top of database/sql. PostgreSQL backs production deployments; SQLite backs
// embedded mode and tests. All mutation queries are written with ?
// placeholders and rebound for the active driver.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite3"
)

// DB wraps a sql.DB together with the driver it was opened with.
type DB struct {
	*sql.DB
	driver string
}

// Open connects to the database named by databaseURL. URLs with a
// postgres:// or postgresql:// scheme use the PostgreSQL driver; everything
// else is treated as a SQLite DSN.
func Open(databaseURL string) (*DB, error) {
	driver := driverSQLite
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		driver = driverPostgres
	}

	sqlDB, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	// An in-memory SQLite database exists per connection; a single
	// connection keeps the pool coherent.
	if driver == driverSQLite && strings.Contains(databaseURL, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	return &DB{DB: sqlDB, driver: driver}, nil
}

// Driver reports which sql driver backs the connection.
func (db *DB) Driver() string {
	return db.driver
}

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	email VARCHAR(100) UNIQUE NOT NULL,
	password_hash VARCHAR(100) NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE TABLE IF NOT EXISTS user_audit (
	id SERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL,
	version INTEGER NOT NULL,
	name VARCHAR(100) NOT NULL,
	email VARCHAR(100) NOT NULL,
	action VARCHAR(50) NOT NULL,
	changed_at TIMESTAMP WITH TIME ZONE NOT NULL,
	changed_by VARCHAR(100)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_user_audit_user_id_version
	ON user_audit (user_id, version);
`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS user_audit (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	version INTEGER NOT NULL,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	action TEXT NOT NULL,
	changed_at TIMESTAMP NOT NULL,
	changed_by TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_user_audit_user_id_version
	ON user_audit (user_id, version);
`

// Migrate bootstraps both tables and the (user_id, version) unique index.
// The index doubles as the race detector for concurrent version assignment:
// audit rows intentionally carry no foreign key, so history survives deletion
// of the live row.
func (db *DB) Migrate(ctx context.Context) error {
	schema := schemaSQLite
	if db.driver == driverPostgres {
		schema = schemaPostgres
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// rebind converts ? placeholders to the $N form PostgreSQL expects. SQLite
// accepts ? natively.
func (db *DB) rebind(query string) string {
	if db.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// queryer is satisfied by both *sql.DB and *sql.Tx so stores run against
// whichever the context carries.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction bound to the context, or the bare pool.
func (db *DB) conn(ctx context.Context) queryer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db.DB
}

// isUniqueViolation classifies driver-specific unique constraint failures.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
