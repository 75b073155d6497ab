// Package repository persists upload sessions and file metadata in
// PostgreSQL. Session updates are guarded by an optimistic version
// check so concurrent chunk writers cannot silently overwrite each
// other's progress.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/filedepot/filedepot/internal/domain/file"
	"github.com/filedepot/filedepot/internal/upload"
)

// DB executes the repositories' SQL. Queries are written with a
// {schema} placeholder, so production wiring passes the schema-scoped
// database.Repository; a bare pool or pgx.Tx works only for
// placeholder-free SQL.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type SessionRepository struct {
	db DB
}

func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id::text, tenant_id, target_file_id::text, original_filename,
	expected_size, expected_mime_type, expected_checksum, upload_type,
	storage_provider, storage_key, storage_upload_id, chunk_size, status,
	uploaded_size, total_chunks, chunks, created_at, started_at,
	completed_at, expires_at, retry_count, max_retries, failure_reason, version`

func (r *SessionRepository) Create(ctx context.Context, s *upload.Session) error {
	chunks, err := json.Marshal(s.Chunks)
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO {schema}.upload_sessions (
			id, tenant_id, target_file_id, original_filename,
			expected_size, expected_mime_type, expected_checksum, upload_type,
			storage_provider, storage_key, storage_upload_id, chunk_size, status,
			uploaded_size, total_chunks, chunks, created_at, started_at,
			completed_at, expires_at, retry_count, max_retries, failure_reason, version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)`,
		s.ID.String(), s.TenantID, s.TargetFileID.String(), s.OriginalFilename,
		s.ExpectedSize, s.ExpectedMimeType.String(), s.ExpectedChecksum.String(), string(s.UploadType),
		s.StorageProvider, s.StorageKey.String(), s.StorageUploadID, s.ChunkSize, string(s.Status),
		s.UploadedSize, s.TotalChunks, chunks, s.CreatedAt, s.StartedAt,
		s.CompletedAt, s.ExpiresAt, s.RetryCount, s.MaxRetries, s.FailureReason, s.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id file.UploadSessionID) (*upload.Session, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM {schema}.upload_sessions WHERE id = $1`,
		id.String(),
	)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, upload.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return session, nil
}

// Update writes the session back with a compare-and-swap on version.
// On success the in-memory version advances to match the row.
func (r *SessionRepository) Update(ctx context.Context, s *upload.Session) error {
	chunks, err := json.Marshal(s.Chunks)
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE {schema}.upload_sessions SET
			storage_upload_id = $1,
			status = $2,
			uploaded_size = $3,
			chunks = $4,
			started_at = $5,
			completed_at = $6,
			retry_count = $7,
			failure_reason = $8,
			expires_at = $9,
			version = version + 1
		WHERE id = $10 AND version = $11`,
		s.StorageUploadID, string(s.Status), s.UploadedSize, chunks,
		s.StartedAt, s.CompletedAt, s.RetryCount, s.FailureReason,
		s.ExpiresAt, s.ID.String(), s.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM {schema}.upload_sessions WHERE id = $1)`,
			s.ID.String(),
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check session %s: %w", s.ID, err)
		}
		if !exists {
			return upload.ErrSessionNotFound
		}
		return upload.ErrVersionConflict
	}
	s.Version++
	return nil
}

// ListOverdue returns non-terminal sessions whose deadline has passed;
// the cleanup sweeper marks and empties them.
func (r *SessionRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*upload.Session, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+sessionColumns+` FROM {schema}.upload_sessions
		 WHERE expires_at < $1 AND status IN ('initialized', 'in_progress', 'failed')
		 ORDER BY expires_at LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*upload.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overdue session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read overdue sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes a terminal session row. The sweeper calls it after the
// chunk objects are gone.
func (r *SessionRepository) Delete(ctx context.Context, id file.UploadSessionID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM {schema}.upload_sessions WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return upload.ErrSessionNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (*upload.Session, error) {
	var (
		s              upload.Session
		idText         string
		targetFileText string
		mimeText       string
		checksumText   string
		uploadType     string
		storageKeyText string
		status         string
		chunksJSON     []byte
	)

	err := row.Scan(
		&idText, &s.TenantID, &targetFileText, &s.OriginalFilename,
		&s.ExpectedSize, &mimeText, &checksumText, &uploadType,
		&s.StorageProvider, &storageKeyText, &s.StorageUploadID, &s.ChunkSize, &status,
		&s.UploadedSize, &s.TotalChunks, &chunksJSON, &s.CreatedAt, &s.StartedAt,
		&s.CompletedAt, &s.ExpiresAt, &s.RetryCount, &s.MaxRetries, &s.FailureReason, &s.Version,
	)
	if err != nil {
		return nil, err
	}

	if s.ID, err = file.ParseUploadSessionID(idText); err != nil {
		return nil, err
	}
	if s.TargetFileID, err = file.ParseFileID(targetFileText); err != nil {
		return nil, err
	}
	if mimeText != "" {
		if s.ExpectedMimeType, err = file.NewMimeType(mimeText); err != nil {
			return nil, err
		}
	}
	if checksumText != "" {
		if s.ExpectedChecksum, err = file.NewChecksum(checksumText); err != nil {
			return nil, err
		}
	}
	if s.StorageKey, err = file.NewStorageKey(storageKeyText); err != nil {
		return nil, err
	}
	s.UploadType = upload.Type(uploadType)
	s.Status = upload.Status(status)

	s.Chunks = make(map[int]upload.ChunkInfo)
	if len(chunksJSON) > 0 {
		if err := json.Unmarshal(chunksJSON, &s.Chunks); err != nil {
			return nil, fmt.Errorf("failed to decode chunks: %w", err)
		}
	}
	return &s, nil
}
