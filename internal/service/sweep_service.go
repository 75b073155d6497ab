// Package service holds background maintenance jobs.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/filedepot/filedepot/internal/domain/file"
	"github.com/filedepot/filedepot/internal/upload"
)

// SessionSweepStore is the repository slice the sweeper needs.
type SessionSweepStore interface {
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*upload.Session, error)
	Update(ctx context.Context, s *upload.Session) error
	Delete(ctx context.Context, id file.UploadSessionID) error
}

// ChunkRemover releases a session's chunk objects.
type ChunkRemover interface {
	RemoveChunks(ctx context.Context, prefix file.StorageKey, chunks []int) error
}

// SweepService expires overdue upload sessions and releases their chunk
// storage. Sessions are expired lazily on access as well; the sweeper
// catches the ones nobody touches again.
type SweepService struct {
	sessions  SessionSweepStore
	blobs     ChunkRemover
	batchSize int
}

func NewSweepService(sessions SessionSweepStore, blobs ChunkRemover, batchSize int) *SweepService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &SweepService{
		sessions:  sessions,
		blobs:     blobs,
		batchSize: batchSize,
	}
}

// SweepExpiredSessions marks overdue sessions expired and removes their
// chunk objects. A session whose chunks cannot be removed keeps its row
// so the next sweep retries.
func (s *SweepService) SweepExpiredSessions(ctx context.Context) (int, error) {
	overdue, err := s.sessions.ListOverdue(ctx, time.Now(), s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue sessions: %w", err)
	}
	if len(overdue) == 0 {
		return 0, nil
	}

	swept := 0
	for _, session := range overdue {
		if err := session.MarkExpired(); err != nil {
			continue
		}
		if err := s.sessions.Update(ctx, session); err != nil {
			// A concurrent writer beat us to the row; pick the session
			// up again on the next pass.
			slog.Warn("failed to mark session expired",
				slog.String("session_id", session.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}

		if chunks := session.CompletedChunks(); len(chunks) > 0 {
			if err := s.blobs.RemoveChunks(ctx, session.StorageKey, chunks); err != nil {
				slog.Error("failed to remove chunks of expired session",
					slog.String("session_id", session.ID.String()),
					slog.String("error", err.Error()),
				)
				continue
			}
		}
		swept++
	}
	return swept, nil
}
