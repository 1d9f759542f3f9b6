package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const documentsTable = "permgate_documents"

// SQLBackend stores documents as YAML text rows keyed by name. Each Save is a
// single upsert statement, which the database applies atomically.
type SQLBackend struct {
	db      *sql.DB
	dialect string
	owned   bool
}

// OpenSQLBackend opens a database with the given driver and creates the
// documents table when missing. The driver must be registered by the caller.
func OpenSQLBackend(ctx context.Context, driver, dsn string) (*SQLBackend, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	b := NewSQLBackend(db, driver)
	b.owned = true

	if err := b.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// NewSQLBackend wraps an open database. dialect is "postgres" or "sqlite3".
func NewSQLBackend(db *sql.DB, dialect string) *SQLBackend {
	return &SQLBackend{db: db, dialect: dialect}
}

// EnsureSchema creates the documents table if it does not exist
func (b *SQLBackend) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS ` + documentsTable + ` (
		name TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	if _, err := b.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s table: %w", documentsTable, err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres
func (b *SQLBackend) rebind(query string) string {
	if b.dialect != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Name implements Backend.Name
func (b *SQLBackend) Name() string { return "sql:" + b.dialect }

// Load implements Backend.Load
func (b *SQLBackend) Load(ctx context.Context, name string, out any) (bool, error) {
	query := b.rebind(`SELECT body FROM ` + documentsTable + ` WHERE name = ?`)

	var body string
	err := b.db.QueryRowContext(ctx, query, name).Scan(&body)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query document %s: %w", name, err)
	}

	found, err := decode([]byte(body), out)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return found, nil
}

// Save implements Backend.Save
func (b *SQLBackend) Save(ctx context.Context, name string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}

	query := b.rebind(`INSERT INTO ` + documentsTable + ` (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`)

	if _, err := b.db.ExecContext(ctx, query, name, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store document %s: %w", name, err)
	}
	return nil
}

// Close closes the database if the backend opened it
func (b *SQLBackend) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}
