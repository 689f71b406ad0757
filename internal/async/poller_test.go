package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	batches [][]uuid.UUID
	err     error
	calls   int
}

func (f *fakeSource) ClaimPending(_ context.Context, _ int32) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

type collectingQueue struct {
	mu   sync.Mutex
	jobs []Job
}

func (c *collectingQueue) Enqueue(_ context.Context, job Job) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs = append(c.jobs, job)
	return nil
}

func (c *collectingQueue) Shutdown(context.Context) {}

func (c *collectingQueue) snapshot() []Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Job(nil), c.jobs...)
}

func TestPollerEnqueuesClaimedUploads(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	src := &fakeSource{batches: [][]uuid.UUID{{a, b}}}
	q := &collectingQueue{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewPoller(src, q, slog.Default(), WithPollInterval(10*time.Millisecond)).Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(q.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	jobs := q.snapshot()
	assert.Equal(t, a, jobs[0].UploadID)
	assert.Equal(t, b, jobs[1].UploadID)
	assert.NotEmpty(t, jobs[0].TraceID)
	assert.False(t, jobs[0].SubmittedAt.IsZero())
}

func TestPollerSurvivesClaimErrors(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	q := &collectingQueue{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewPoller(src, q, slog.Default(), WithPollInterval(5*time.Millisecond)).Run(ctx)
	}()

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls >= 3
	}, time.Second, 2*time.Millisecond)
	cancel()
	<-done

	assert.Empty(t, q.snapshot())
}
