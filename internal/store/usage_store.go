package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dunamismax/imagetools/internal/domain"
	_ "github.com/lib/pq"
)

// UsageStore persists per-request usage records.
type UsageStore interface {
	Record(ctx context.Context, entry domain.UsageLog) error
}

const usageSchemaSQL = `
CREATE TABLE IF NOT EXISTS usage_log (
	id BIGSERIAL PRIMARY KEY,
	request_id TEXT NOT NULL,
	tool TEXT NOT NULL,
	tier TEXT NOT NULL DEFAULT '',
	status INTEGER NOT NULL,
	files INTEGER NOT NULL DEFAULT 1,
	input_bytes BIGINT NOT NULL DEFAULT 0,
	output_bytes BIGINT NOT NULL DEFAULT 0,
	pixels_processed BIGINT NOT NULL DEFAULT 0,
	compute_time_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS usage_log_tool_created_at_idx ON usage_log (tool, created_at);
`

type PostgresUsageStore struct {
	db *sql.DB
}

func NewPostgresUsageStore(ctx context.Context, dsn string) (*PostgresUsageStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresUsageStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresUsageStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, usageSchemaSQL); err != nil {
		return fmt.Errorf("ensure usage schema: %w", err)
	}
	return nil
}

func (s *PostgresUsageStore) Close() error {
	return s.db.Close()
}

func (s *PostgresUsageStore) Record(ctx context.Context, entry domain.UsageLog) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO usage_log (request_id, tool, tier, status, files, input_bytes, output_bytes, pixels_processed, compute_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.RequestID,
		entry.Tool,
		entry.Tier,
		entry.Status,
		entry.Files,
		entry.InputBytes,
		entry.OutputBytes,
		entry.PixelsProcessed,
		entry.ComputeTimeMS,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}
