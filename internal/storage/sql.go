package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Dialect is the database/sql driver name. sqlx derives the placeholder
// style from it.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// SQL keeps values in a local_storage table. Postgres and SQLite share the
// same schema and upsert statement; only the placeholders differ.
type SQL struct {
	db      *sqlx.DB
	dialect Dialect
	tracer  trace.Tracer
}

// NewSQL creates the local_storage table if needed and returns a store on db.
func NewSQL(ctx context.Context, db *sql.DB, dialect Dialect) (*SQL, error) {
	switch dialect {
	case Postgres, SQLite:
	default:
		return nil, fmt.Errorf("sql storage: unsupported dialect %q", dialect)
	}

	s := &SQL{
		db:      sqlx.NewDb(db, string(dialect)),
		dialect: dialect,
		tracer:  otel.Tracer("libranexus/storage"),
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQL) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS local_storage (
			item_key   TEXT PRIMARY KEY,
			item_value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create local_storage table: %w", err)
	}
	return nil
}

func (s *SQL) Read(ctx context.Context, key string) (string, bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.read",
		trace.WithAttributes(
			attribute.String("storage.dialect", string(s.dialect)),
			attribute.String("storage.key", key),
		),
	)
	defer span.End()

	var value string
	err := s.db.GetContext(ctx, &value, s.db.Rebind(`
		SELECT item_value
		FROM local_storage
		WHERE item_key = ?
	`), key)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetAttributes(attribute.Bool("storage.hit", false))
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("query %q: %w", key, err)
	}

	span.SetAttributes(attribute.Bool("storage.hit", true))
	return value, true, nil
}

func (s *SQL) Write(ctx context.Context, key, value string) error {
	ctx, span := s.tracer.Start(ctx, "storage.write",
		trace.WithAttributes(
			attribute.String("storage.dialect", string(s.dialect)),
			attribute.String("storage.key", key),
			attribute.Int("storage.size", len(value)),
		),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO local_storage (item_key, item_value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (item_key) DO UPDATE
		SET item_value = excluded.item_value,
		    updated_at = excluded.updated_at
	`), key, value)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("upsert %q: %w", key, err)
	}
	return nil
}

func (s *SQL) Remove(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "storage.remove",
		trace.WithAttributes(
			attribute.String("storage.dialect", string(s.dialect)),
			attribute.String("storage.key", key),
		),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM local_storage WHERE item_key = ?`), key)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQL) Close() error {
	return s.db.Close()
}
