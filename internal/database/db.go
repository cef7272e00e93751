package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no analysis has the requested ID
var ErrNotFound = errors.New("analysis not found")

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) driver() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// DB represents the database connection
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// New opens the database named by source. A postgres:// URL or a key=value
// DSN with host= connects to Postgres; anything else is a SQLite file path,
// created if needed. ":memory:" opens a private in-memory SQLite database.
// Queries are traced through otelsql.
func New(source string) (*DB, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("database path is required")
	}

	d, dataSource := dialectSQLite, sqliteDSN(source)
	if isPostgresDSN(source) {
		d, dataSource = dialectPostgres, source
	}

	conn, err := otelsql.Open(d.driver(), dataSource,
		otelsql.WithAttributes(attribute.String("db.system", d.driver())),
		otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d == dialectSQLite {
		// SQLite allows a single writer; one connection also keeps an
		// in-memory database from splitting into several.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn, dialect: d}, nil
}

// isPostgresDSN reports whether source is a lib/pq connection string
func isPostgresDSN(source string) bool {
	lower := strings.ToLower(strings.TrimSpace(source))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return true
	}
	for _, field := range strings.Fields(lower) {
		if strings.HasPrefix(field, "host=") {
			return true
		}
	}
	return false
}

func sqliteDSN(path string) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + pragmas + "&_pragma=journal_mode(WAL)"
}

// rebind rewrites ? placeholders as $1, $2... for Postgres. Queries in this
// package never contain a literal question mark.
func (db *DB) rebind(query string) string {
	if db.dialect != dialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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

// Driver returns the database/sql driver name in use
func (db *DB) Driver() string {
	return db.dialect.driver()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}
