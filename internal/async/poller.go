package async

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// PendingSource claims uploads waiting for analysis. Claiming must be
// atomic so two pollers never hand the same upload to two workers.
type PendingSource interface {
	ClaimPending(ctx context.Context, limit int32) ([]uuid.UUID, error)
}

// Poller periodically claims uploaded rows and feeds them to the queue.
// It is the daemon's job producer: uploads land in the table with status
// uploaded, and the poller moves them onto the worker pool.
type Poller struct {
	src      PendingSource
	queue    Queue
	logger   *slog.Logger
	interval time.Duration
	batch    int32
}

type PollerOption func(*Poller)

func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithBatchSize(n int32) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.batch = n
		}
	}
}

func NewPoller(src PendingSource, queue Queue, logger *slog.Logger, opts ...PollerOption) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		src:      src,
		queue:    queue,
		logger:   logger,
		interval: 5 * time.Second,
		batch:    32,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run polls until the context is cancelled. Claim errors are logged and the
// next tick retries; they never stop the loop.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("poller started", "interval", p.interval.String(), "batch", p.batch)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.pollOnce(ctx)
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	ids, err := p.src.ClaimPending(ctx, p.batch)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("claiming pending uploads failed", "error", err)
		}
		return
	}
	for _, id := range ids {
		if err := p.queue.Enqueue(ctx, Job{
			UploadID:    id,
			SubmittedAt: time.Now(),
			TraceID:     uuid.New().String(),
		}); err != nil {
			p.logger.Error("enqueue failed for upload", "upload_id", id, "error", err)
		}
	}
	if len(ids) > 0 {
		p.logger.Info("claimed pending uploads", "count", len(ids))
	}
}
