// Package storage implements the blob store on MinIO. Chunks are
// written under the session's key prefix and combined server-side into
// the final object at completion.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/filedepot/filedepot/internal/crypto"
	"github.com/filedepot/filedepot/internal/domain/file"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type MinIOStore struct {
	client *minio.Client
	core   *minio.Core
	bucket string
}

// NewMinIOStore connects to MinIO and ensures the bucket exists.
func NewMinIOStore(ctx context.Context, config Config) (*MinIOStore, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		slog.Info("minio bucket created successfully",
			slog.String("bucket_name", config.Bucket),
		)
	}

	return &MinIOStore{
		client: client,
		core:   &minio.Core{Client: client},
		bucket: config.Bucket,
	}, nil
}

// CreateMultipartUpload opens a provider-side multipart upload and
// returns its upload ID for bookkeeping on the session.
func (m *MinIOStore) CreateMultipartUpload(ctx context.Context, dest file.StorageKey, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	uploadID, err := m.core.NewMultipartUpload(ctx, m.bucket, dest.String(),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to create multipart upload for %s: %w", dest, err)
	}
	return uploadID, nil
}

func (m *MinIOStore) AbortMultipartUpload(ctx context.Context, dest file.StorageKey, uploadID string) error {
	if err := m.core.AbortMultipartUpload(ctx, m.bucket, dest.String(), uploadID); err != nil {
		return fmt.Errorf("failed to abort multipart upload %s: %w", uploadID, err)
	}
	return nil
}

// chunkObjectName places chunk n under the session prefix. Zero padding
// keeps listings in chunk order.
func chunkObjectName(prefix file.StorageKey, number int) string {
	return fmt.Sprintf("%s/%06d.part", prefix, number)
}

func (m *MinIOStore) UploadChunk(ctx context.Context, prefix file.StorageKey, number int, data []byte) (string, error) {
	info, err := m.client.PutObject(ctx, m.bucket, chunkObjectName(prefix, number),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("failed to upload chunk %d: %w", number, err)
	}
	return info.ETag, nil
}

// AssembleChunks combines the chunk objects into one object at dest
// using server-side compose; chunk bytes never travel through this
// process.
func (m *MinIOStore) AssembleChunks(ctx context.Context, prefix file.StorageKey, chunks []int, dest file.StorageKey) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to assemble under %s", prefix)
	}

	sources := make([]minio.CopySrcOptions, len(chunks))
	for i, n := range chunks {
		sources[i] = minio.CopySrcOptions{
			Bucket: m.bucket,
			Object: chunkObjectName(prefix, n),
		}
	}
	destination := minio.CopyDestOptions{
		Bucket: m.bucket,
		Object: dest.String(),
	}

	if _, err := m.client.ComposeObject(ctx, destination, sources...); err != nil {
		return fmt.Errorf("failed to assemble %d chunks into %s: %w", len(chunks), dest, err)
	}
	return nil
}

// RemoveChunks deletes the chunk objects of a session. The feeder and
// the error drain run concurrently so neither side blocks the other.
func (m *MinIOStore) RemoveChunks(ctx context.Context, prefix file.StorageKey, chunks []int) error {
	objects := make(chan minio.ObjectInfo)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(objects)
		for _, n := range chunks {
			select {
			case objects <- minio.ObjectInfo{Key: chunkObjectName(prefix, n)}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	g.Go(func() error {
		for removeErr := range m.client.RemoveObjects(ctx, m.bucket, objects, minio.RemoveObjectsOptions{}) {
			if removeErr.Err != nil {
				return fmt.Errorf("failed to remove chunk object %s: %w", removeErr.ObjectName, removeErr.Err)
			}
		}
		return nil
	})
	return g.Wait()
}

func (m *MinIOStore) DeleteObject(ctx context.Context, key file.StorageKey) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key.String(), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// ObjectChecksum streams the object through the given hash algorithm.
func (m *MinIOStore) ObjectChecksum(ctx context.Context, key file.StorageKey, algorithm string) (file.Checksum, error) {
	object, err := m.client.GetObject(ctx, m.bucket, key.String(), minio.GetObjectOptions{})
	if err != nil {
		return file.Checksum{}, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	defer object.Close()

	sum, err := crypto.HashReader(algorithm, object)
	if err != nil {
		return file.Checksum{}, fmt.Errorf("failed to hash object %s: %w", key, err)
	}
	return sum, nil
}

// StreamObject returns the object body; the caller closes it. The virus
// scanner and the download handler both read through this.
func (m *MinIOStore) StreamObject(ctx context.Context, key file.StorageKey) (io.ReadCloser, error) {
	object, err := m.client.GetObject(ctx, m.bucket, key.String(), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", key, err)
	}
	return object, nil
}

// StreamRange returns the byte range [start, end] of the object.
func (m *MinIOStore) StreamRange(ctx context.Context, key file.StorageKey, start, end int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end); err != nil {
		return nil, fmt.Errorf("invalid range %d-%d: %w", start, end, err)
	}
	object, err := m.client.GetObject(ctx, m.bucket, key.String(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", key, err)
	}
	return object, nil
}

// MoveObject copies src to dest server-side and removes src.
func (m *MinIOStore) MoveObject(ctx context.Context, src, dest file.StorageKey) error {
	_, err := m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: m.bucket, Object: dest.String()},
		minio.CopySrcOptions{Bucket: m.bucket, Object: src.String()},
	)
	if err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dest, err)
	}
	return m.DeleteObject(ctx, src)
}

// StatObject reports size and ETag without reading the body.
func (m *MinIOStore) StatObject(ctx context.Context, key file.StorageKey) (minio.ObjectInfo, error) {
	info, err := m.client.StatObject(ctx, m.bucket, key.String(), minio.StatObjectOptions{})
	if err != nil {
		return minio.ObjectInfo{}, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return info, nil
}
