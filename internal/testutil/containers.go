package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/testcontainers/testcontainers-go"
	miniocontainer "github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/filedepot/filedepot/internal/database"
	"github.com/filedepot/filedepot/internal/storage"
)

type TestContainers struct {
	PostgresContainer *postgres.PostgresContainer
	MinioContainer    *miniocontainer.MinioContainer
	Database          *database.Database
	Repo              *database.Repository
	BlobStore         *storage.MinIOStore
	Cleanup           func()
}

func SetupTestContainers(t *testing.T) *TestContainers {
	t.Helper()

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("filedepot_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := database.NewDatabase(ctx, connStr)
	if err != nil {
		pgContainer.Terminate(ctx)
		t.Fatalf("Failed to initialize database: %v", err)
	}

	if err := db.MigrateUp(ctx, "public"); err != nil {
		db.Close()
		pgContainer.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	repo, err := database.NewRepository(db.Pool, "public")
	if err != nil {
		db.Close()
		pgContainer.Terminate(ctx)
		t.Fatalf("Failed to build schema repository: %v", err)
	}

	minioContainer, err := miniocontainer.Run(ctx,
		"minio/minio:latest",
		miniocontainer.WithUsername("minioadmin"),
		miniocontainer.WithPassword("minioadmin"),
	)
	if err != nil {
		db.Close()
		pgContainer.Terminate(ctx)
		t.Fatalf("Failed to start minio container: %v", err)
	}

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	if err != nil {
		db.Close()
		pgContainer.Terminate(ctx)
		minioContainer.Terminate(ctx)
		t.Fatalf("Failed to get minio endpoint: %v", err)
	}

	blobs, err := storage.NewMinIOStore(ctx, storage.Config{
		Endpoint:  minioEndpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		UseSSL:    false,
		Bucket:    "filedepot-test",
	})
	if err != nil {
		db.Close()
		pgContainer.Terminate(ctx)
		minioContainer.Terminate(ctx)
		t.Fatalf("Failed to initialize MinIO store: %v", err)
	}

	cleanup := func() {
		CleanDatabase(ctx, db)
		db.Close()
		pgContainer.Terminate(ctx)
		minioContainer.Terminate(ctx)
	}

	return &TestContainers{
		PostgresContainer: pgContainer,
		MinioContainer:    minioContainer,
		Database:          db,
		Repo:              repo,
		BlobStore:         blobs,
		Cleanup:           cleanup,
	}
}

func CleanDatabase(ctx context.Context, db *database.Database) {
	db.Pool.Exec(ctx, "TRUNCATE TABLE upload_sessions CASCADE")
	db.Pool.Exec(ctx, "TRUNCATE TABLE files CASCADE")
}

func CleanBucket(ctx context.Context, client *minio.Client, bucket string) {
	objectsCh := client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Recursive: true,
	})
	for object := range objectsCh {
		if object.Err != nil {
			continue
		}
		client.RemoveObject(ctx, bucket, object.Key, minio.RemoveObjectOptions{})
	}
}
