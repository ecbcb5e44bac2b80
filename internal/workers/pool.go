package workers

import (
	"context"
	"log/slog"
	"sync"

	"github.com/obaidsafi51/GigStream-sub003/internal/metrics"
)

// Job is one unit of background work, usually a closed-over claim cycle.
type Job func(ctx context.Context)

// Pool is the bounded executor behind the fast-ack path. Capacity is fixed at
// construction: a full queue makes Submit return false and the caller falls
// back to processing synchronously, so load shedding is explicit rather than
// an unbounded goroutine pile-up.
type Pool struct {
	queue   chan Job
	workers int
	logger  *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 8
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		queue:   make(chan Job, queueSize),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the worker goroutines. The pool's own context is detached
// from any request: an accepted job outlives the webhook that queued it.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.run(ctx, i)
		}
		p.logger.Info("worker pool started", "workers", p.workers, "queueSize", cap(p.queue))
	})
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// Drain what was already accepted before exiting.
			for {
				select {
				case job := <-p.queue:
					metrics.BackgroundQueueDepth.Dec()
					p.invoke(context.Background(), id, job)
				default:
					return
				}
			}
		case job := <-p.queue:
			metrics.BackgroundQueueDepth.Dec()
			p.invoke(ctx, id, job)
		}
	}
}

func (p *Pool) invoke(ctx context.Context, id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker panic recovered", "worker", id, "panic", r)
		}
	}()
	job(ctx)
}

// Submit enqueues a job without blocking. Returns false when the queue is
// saturated; the caller decides what degraded mode looks like.
func (p *Pool) Submit(job Job) bool {
	select {
	case p.queue <- job:
		metrics.BackgroundQueueDepth.Inc()
		return true
	default:
		return false
	}
}

// Shutdown stops accepting context-driven work and waits for the workers to
// drain jobs that were already accepted.
func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
		p.logger.Info("worker pool stopped")
	})
}
