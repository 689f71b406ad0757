package async

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernblick/lernblick/internal/analysis"
)

type countingProcessor struct {
	n atomic.Int64
}

func (c *countingProcessor) ProcessUpload(_ context.Context, _ uuid.UUID) (*analysis.MergedAnalysis, error) {
	c.n.Add(1)
	return &analysis.MergedAnalysis{}, nil
}

func TestQueueProcessesAndDrainsOnShutdown(t *testing.T) {
	proc := &countingProcessor{}
	q := NewProcessorQueue(proc, slog.Default(), WithWorkers(2), WithQueueSize(16))

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{
			UploadID:    uuid.New(),
			SubmittedAt: time.Now(),
			TraceID:     uuid.New().String(),
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Equal(t, int64(10), proc.n.Load())
}

func TestQueueEnqueueAfterShutdownIsNoop(t *testing.T) {
	proc := &countingProcessor{}
	q := NewProcessorQueue(proc, slog.Default(), WithWorkers(1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	require.NoError(t, q.Enqueue(context.Background(), Job{UploadID: uuid.New()}))
	assert.Equal(t, int64(0), proc.n.Load())
}
