package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// MigrateUp creates the schema. Chunk records live in a JSONB column on
// the session row so chunk acceptance and session state change in one
// compare-and-swap write.
func (d *Database) MigrateUp(ctx context.Context, schema string) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS {schema}`,
		`CREATE TABLE IF NOT EXISTS {schema}.upload_sessions (
    id                 UUID PRIMARY KEY,
    tenant_id          TEXT NOT NULL,
    target_file_id     UUID NOT NULL,
    original_filename  TEXT NOT NULL,
    expected_size      BIGINT NOT NULL,
    expected_mime_type TEXT NOT NULL DEFAULT '',
    expected_checksum  TEXT NOT NULL DEFAULT '',
    upload_type        VARCHAR(20) NOT NULL,
    storage_provider   VARCHAR(50) NOT NULL,
    storage_key        TEXT NOT NULL,
    storage_upload_id  TEXT NOT NULL DEFAULT '',
    chunk_size         BIGINT NOT NULL,
    status             VARCHAR(20) NOT NULL,
    uploaded_size      BIGINT NOT NULL DEFAULT 0,
    total_chunks       INT NOT NULL DEFAULT 0,
    chunks             JSONB NOT NULL DEFAULT '{}',
    created_at         TIMESTAMPTZ NOT NULL,
    started_at         TIMESTAMPTZ,
    completed_at       TIMESTAMPTZ,
    expires_at         TIMESTAMPTZ NOT NULL,
    retry_count        INT NOT NULL DEFAULT 0,
    max_retries        INT NOT NULL DEFAULT 3,
    failure_reason     TEXT NOT NULL DEFAULT '',
    version            BIGINT NOT NULL DEFAULT 1
)`,
		`CREATE TABLE IF NOT EXISTS {schema}.files (
    id                UUID PRIMARY KEY,
    tenant_id         TEXT NOT NULL,
    original_filename TEXT NOT NULL,
    size_bytes        BIGINT NOT NULL,
    mime_type         TEXT NOT NULL DEFAULT '',
    checksum          TEXT NOT NULL DEFAULT '',
    storage_key       TEXT NOT NULL UNIQUE,
    status            VARCHAR(20) NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL,
    updated_at        TIMESTAMPTZ NOT NULL
)`,
		// The sweeper scans for overdue non-terminal sessions.
		`CREATE INDEX IF NOT EXISTS idx_upload_sessions_expires_at
    ON {schema}.upload_sessions(expires_at)
    WHERE status IN ('initialized', 'in_progress', 'failed')`,
		`CREATE INDEX IF NOT EXISTS idx_upload_sessions_tenant_id ON {schema}.upload_sessions(tenant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_files_tenant_id ON {schema}.files(tenant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_files_created_at ON {schema}.files(created_at DESC)`,
	}

	// Postgres DDL is transactional; a half-applied schema never commits.
	return RunWithTx(ctx, d.Pool, func(tx pgx.Tx) error {
		repo, err := NewRepository(tx, schema)
		if err != nil {
			return err
		}
		for _, stmt := range statements {
			if _, err := repo.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
		}
		return nil
	})
}

// MigrateDown drops the schema. All data is lost.
func (d *Database) MigrateDown(ctx context.Context, schema string) error {
	statements := []string{
		`DROP TABLE IF EXISTS {schema}.upload_sessions`,
		`DROP TABLE IF EXISTS {schema}.files`,
	}
	return RunWithTx(ctx, d.Pool, func(tx pgx.Tx) error {
		repo, err := NewRepository(tx, schema)
		if err != nil {
			return err
		}
		for _, stmt := range statements {
			if _, err := repo.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
		}
		return nil
	})
}
