package database

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueryer struct {
	lastSQL string
}

func (r *recordingQueryer) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	r.lastSQL = sql
	return nil, nil
}

func (r *recordingQueryer) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	r.lastSQL = sql
	return nil
}

func (r *recordingQueryer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.lastSQL = sql
	return pgconn.CommandTag{}, nil
}

func TestNewRepository_ValidatesSchema(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		wantErr bool
	}{
		{"public", "public", false},
		{"tenant schema", "tenant_acme", false},
		{"leading underscore", "_internal", false},
		{"empty", "", true},
		{"leading digit", "1tenant", true},
		{"quoted injection", `public"; DROP TABLE files; --`, true},
		{"dotted", "public.files", true},
		{"hyphen", "tenant-a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRepository(&recordingQueryer{}, tt.schema)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRepository_SubstitutesSchema(t *testing.T) {
	q := &recordingQueryer{}
	repo, err := NewRepository(q, "tenant_acme")
	require.NoError(t, err)

	ctx := context.Background()

	_, _ = repo.Exec(ctx, `DELETE FROM {schema}.files WHERE id = $1`, "x")
	assert.Equal(t, `DELETE FROM tenant_acme.files WHERE id = $1`, q.lastSQL)

	_ = repo.QueryRow(ctx, `SELECT COUNT(*) FROM {schema}.files`)
	assert.Equal(t, `SELECT COUNT(*) FROM tenant_acme.files`, q.lastSQL)

	_, _ = repo.Query(ctx, `SELECT id FROM {schema}.upload_sessions JOIN {schema}.files USING (id)`)
	assert.Equal(t, `SELECT id FROM tenant_acme.upload_sessions JOIN tenant_acme.files USING (id)`, q.lastSQL)
}

func TestRepository_PassesThroughPlainSQL(t *testing.T) {
	q := &recordingQueryer{}
	repo, err := NewRepository(q, "public")
	require.NoError(t, err)

	_, _ = repo.Exec(context.Background(), `SELECT 1`)
	assert.Equal(t, `SELECT 1`, q.lastSQL)
	assert.Equal(t, "public", repo.Schema())
}
