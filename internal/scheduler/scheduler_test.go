package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/filedepot/filedepot/internal/domain/file"
	"github.com/filedepot/filedepot/internal/service"
	"github.com/filedepot/filedepot/internal/upload"
)

type countingSweepStore struct {
	listCalls atomic.Int32
}

func (c *countingSweepStore) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*upload.Session, error) {
	c.listCalls.Add(1)
	return nil, nil
}

func (c *countingSweepStore) Update(ctx context.Context, s *upload.Session) error { return nil }

func (c *countingSweepStore) Delete(ctx context.Context, id file.UploadSessionID) error { return nil }

type noopChunkRemover struct{}

func (noopChunkRemover) RemoveChunks(ctx context.Context, prefix file.StorageKey, chunks []int) error {
	return nil
}

func TestScheduler_New(t *testing.T) {
	scheduler := New(nil, 5*time.Minute)

	assert.NotNil(t, scheduler)
	assert.Equal(t, 5*time.Minute, scheduler.interval)
}

func TestScheduler_RunsImmediatelyThenAtInterval(t *testing.T) {
	store := &countingSweepStore{}
	sweeper := service.NewSweepService(store, noopChunkRemover{}, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := New(sweeper, 50*time.Millisecond)
	scheduler.Start(ctx)

	time.Sleep(180 * time.Millisecond)
	cancel()

	// One immediate run plus roughly three ticks.
	count := store.listCalls.Load()
	assert.GreaterOrEqual(t, count, int32(3))
	assert.LessOrEqual(t, count, int32(5))
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	store := &countingSweepStore{}
	sweeper := service.NewSweepService(store, noopChunkRemover{}, 10)

	ctx, cancel := context.WithCancel(context.Background())

	scheduler := New(sweeper, 20*time.Millisecond)
	scheduler.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(30 * time.Millisecond)

	settled := store.listCalls.Load()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, settled, store.listCalls.Load(), "no sweeps after cancellation")
}

func TestScheduler_IntervalConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
	}{
		{"1 minute", 1 * time.Minute},
		{"5 minutes", 5 * time.Minute},
		{"1 hour", 1 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := New(nil, tt.interval)
			assert.Equal(t, tt.interval, scheduler.interval)
		})
	}
}
