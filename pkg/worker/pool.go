// Package worker provides a bounded goroutine pool for background tasks
// (transfer execution, host deployments). All asynchronous work in the
// control plane goes through a Pool so concurrency stays bounded and
// panics are recovered.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/bennyz/qarax/pkg/log"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned when submitting to a released pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a context-aware task function.
type Task func(ctx context.Context)

type Pool struct {
	pool   *ants.Pool
	logger *log.Logger

	// lifecycle context for detached tasks; cancelled on Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

func NewPool(size int, logger *log.Logger) (*Pool, error) {
	ctx, cancel := context.WithCancel(context.Background())

	p, err := ants.NewPool(size,
		ants.WithPanicHandler(func(v interface{}) {
			logger.Error("worker panic recovered", zap.Any("panic", v), zap.Stack("stack"))
		}),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Pool{pool: p, logger: logger, ctx: ctx, cancel: cancel}, nil
}

// Submit runs task with the caller's context. Returns ctx.Err() if the
// context is already done.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return p.pool.Submit(func() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		task(ctx)
	})
}

// SubmitDetached runs task with the pool's lifecycle context, so it
// survives request cancellation but still honors shutdown.
func (p *Pool) SubmitDetached(task Task) error {
	return p.pool.Submit(func() {
		select {
		case <-p.ctx.Done():
			return
		default:
		}
		task(p.ctx)
	})
}

func (p *Pool) Running() int {
	return p.pool.Running()
}

// Shutdown cancels detached tasks and waits for running ones, bounded.
func (p *Pool) Shutdown() {
	p.cancel()
	if err := p.pool.ReleaseTimeout(30 * time.Second); err != nil {
		p.logger.Warn("worker pool shutdown timeout", zap.Error(err))
	}
}
