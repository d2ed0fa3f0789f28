package storage

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps a sql.DB for the analysis store.
type DB struct {
	conn   *sql.DB
	driver string
}

// Open opens (or creates) the SQLite database at the given path and applies the schema.
func Open(path string) (*DB, error) {
	return OpenDriver(DriverSQLite, path)
}

// OpenDriver opens a store on the given driver. For sqlite dsn is a file
// path (or ":memory:"); for postgres it is a connection URL.
func OpenDriver(driver, dsn string) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		if dsn != ":memory:" {
			pragmas += "&_pragma=journal_mode(WAL)"
		}
		conn, err = sql.Open("sqlite", fmt.Sprintf("file:%s?%s", dsn, pragmas))
		if err == nil {
			// One connection keeps ":memory:" databases shared and serializes writers.
			conn.SetMaxOpenConns(1)
		}
	case DriverPostgres:
		if strings.TrimSpace(dsn) == "" {
			dsn = "postgres://localhost:5432/fgframes?sslmode=disable"
		}
		conn, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.applySchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

func (db *DB) applySchema() error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Driver returns the driver name the store was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// rebind rewrites "?" placeholders to "$n" for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) exec(query string, args ...any) (sql.Result, error) {
	return db.conn.Exec(db.rebind(query), args...)
}

func (db *DB) query(query string, args ...any) (*sql.Rows, error) {
	return db.conn.Query(db.rebind(query), args...)
}

func (db *DB) queryRow(query string, args ...any) *sql.Row {
	return db.conn.QueryRow(db.rebind(query), args...)
}
