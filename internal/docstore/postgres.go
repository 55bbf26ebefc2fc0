package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	// Registers the "postgres" driver.
	_ "github.com/lib/pq"

	"github.com/mesa-rpg/mesa/internal/session"
)

// PostgresBackend stores the document as a single jsonb row. The document is
// opaque to the database: the schema models "one session state", not the
// entities inside it.
type PostgresBackend struct {
	db *sql.DB
}

// postgresSchema creates the session_document table. id is fixed to 1; the
// table never holds more than one row.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS session_document (
	id         integer PRIMARY KEY CHECK (id = 1),
	doc        jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// NewPostgresBackend opens a connection pool and ensures the schema exists.
func NewPostgresBackend(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresBackend{db: db}, nil
}

// Close releases the connection pool.
func (p *PostgresBackend) Close() error {
	return p.db.Close()
}

// Load reads the single document row.
func (p *PostgresBackend) Load(ctx context.Context) (*session.Document, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT doc FROM session_document WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoDocument
		}
		return nil, fmt.Errorf("select document: %w", err)
	}

	var doc session.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// Save upserts the single document row.
func (p *PostgresBackend) Save(ctx context.Context, doc *session.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO session_document (id, doc, updated_at) VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		data)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}
