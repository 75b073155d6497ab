package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/filedepot/filedepot/internal/domain/file"
	"github.com/filedepot/filedepot/internal/pagination"
)

var ErrFileNotFound = errors.New("file not found")

type FileRepository struct {
	db        DB
	paginator *pagination.Paginator[file.Metadata]
}

func NewFileRepository(db DB, cache pagination.CountCache, config pagination.Config) *FileRepository {
	if config.IndexHint == "" {
		// Listings filter on tenant_id; see the files migrations.
		config.IndexHint = "idx_files_tenant_id"
	}
	return &FileRepository{
		db:        db,
		paginator: pagination.NewPaginator[file.Metadata](db, cache, config),
	}
}

const fileColumns = `id::text, tenant_id, original_filename, size_bytes,
	mime_type, checksum, storage_key, status, created_at, updated_at`

func (r *FileRepository) Save(ctx context.Context, meta *file.Metadata) error {
	now := time.Now().UTC()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO {schema}.files (
			id, tenant_id, original_filename, size_bytes,
			mime_type, checksum, storage_key, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		meta.ID.String(), meta.TenantID, meta.OriginalFilename, meta.Size.Bytes(),
		meta.MimeType.String(), meta.Checksum.String(), meta.StorageKey.String(),
		meta.Status, meta.CreatedAt, meta.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save file %s: %w", meta.ID, err)
	}
	return nil
}

func (r *FileRepository) Get(ctx context.Context, id file.FileID) (*file.Metadata, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM {schema}.files WHERE id = $1`,
		id.String(),
	)
	meta, err := mapFileRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to load file %s: %w", id, err)
	}
	return &meta, nil
}

func (r *FileRepository) Delete(ctx context.Context, id file.FileID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM {schema}.files WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

// List pages a tenant's files by offset. The count behind Total goes
// through the paginator's cache and lazy-count heuristics.
func (r *FileRepository) List(ctx context.Context, tenantID string, req pagination.OffsetRequest) (*pagination.OffsetResponse[file.Metadata], error) {
	if len(req.SortFields()) == 0 {
		sortField, err := pagination.NewSortField("created_at", pagination.Desc)
		if err != nil {
			return nil, err
		}
		req = req.WithSortFields(sortField)
	}

	return r.paginator.FindPaginated(ctx, req,
		`SELECT `+fileColumns+` FROM {schema}.files WHERE tenant_id = $1`,
		`SELECT COUNT(*) FROM {schema}.files WHERE tenant_id = $1`,
		[]any{tenantID},
		collectFileRow,
	)
}

// ListAfter pages a tenant's files by cursor on the v7 id, which is
// creation ordered.
func (r *FileRepository) ListAfter(ctx context.Context, tenantID string, req pagination.CursorRequest) (*pagination.CursorResponse[file.Metadata], error) {
	return r.paginator.FindCursorPaginated(ctx, req,
		`SELECT `+fileColumns+` FROM {schema}.files WHERE tenant_id = $1`,
		"id",
		[]any{tenantID},
		collectFileRow,
		func(item file.Metadata) any { return item.ID.String() },
	)
}

// InvalidateCounts drops cached totals for the files table after bulk
// writes.
func (r *FileRepository) InvalidateCounts() int {
	return r.paginator.ClearCountCache("FROM {schema}.files")
}

func collectFileRow(row pgx.CollectableRow) (file.Metadata, error) {
	return mapFileRow(row)
}

func mapFileRow(row pgx.Row) (file.Metadata, error) {
	var (
		meta         file.Metadata
		idText       string
		sizeBytes    int64
		mimeText     string
		checksumText string
		keyText      string
	)

	err := row.Scan(
		&idText, &meta.TenantID, &meta.OriginalFilename, &sizeBytes,
		&mimeText, &checksumText, &keyText, &meta.Status,
		&meta.CreatedAt, &meta.UpdatedAt,
	)
	if err != nil {
		return file.Metadata{}, err
	}

	if meta.ID, err = file.ParseFileID(idText); err != nil {
		return file.Metadata{}, err
	}
	if meta.Size, err = file.NewSize(sizeBytes); err != nil {
		return file.Metadata{}, err
	}
	if mimeText != "" {
		if meta.MimeType, err = file.NewMimeType(mimeText); err != nil {
			return file.Metadata{}, err
		}
	}
	if checksumText != "" {
		if meta.Checksum, err = file.NewChecksum(checksumText); err != nil {
			return file.Metadata{}, err
		}
	}
	if meta.StorageKey, err = file.NewStorageKey(keyText); err != nil {
		return file.Metadata{}, err
	}
	return meta, nil
}
