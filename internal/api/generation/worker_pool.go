package generation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/trip"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Task is one queued generation attempt. The task owns the trip lease and
// releases it when it finishes.
type Task struct {
	ID      string
	TripID  uuid.UUID
	Attempt int
	Lease   *trip.Lease
	// SpanContext links the background run to the request that queued it.
	SpanContext trace.SpanContext
}

// TaskID returns a fresh task identifier.
func TaskID() string {
	id, err := nanoid.New(16)
	if err != nil {
		return "gen_" + uuid.NewString()
	}
	return "gen_" + id
}

// Runner executes a task to completion.
type Runner interface {
	Run(ctx context.Context, task Task)
}

// WorkerPool runs tasks on a fixed number of goroutines fed by a bounded queue.
// Submissions never block: a full queue is reported to the caller.
type WorkerPool struct {
	runner  Runner
	workers int
	queue   chan Task
	logger  *slog.Logger

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

func NewWorkerPool(runner Runner, workers, queueSize int, logger *slog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &WorkerPool{
		runner:  runner,
		workers: workers,
		queue:   make(chan Task, queueSize),
		logger:  logger.With(slog.String("component", "generation_pool")),
	}
}

// Start launches the workers. Tasks run on ctx with its cancellation removed,
// so in-flight work is never cut short.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	base := context.WithoutCancel(ctx)
	for i := range p.workers {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			for task := range p.queue {
				p.logger.Debug("Running generation task", slog.Int("worker", worker), slog.String("task", task.ID),
					slog.String("tripID", task.TripID.String()))
				p.runner.Run(base, task)
			}
		}(i)
	}
	p.logger.Info("Generation workers started", slog.Int("workers", p.workers), slog.Int("queue", cap(p.queue)))
}

// Submit queues a task without blocking.
func (p *WorkerPool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return fmt.Errorf("%w: workers are shutting down", types.ErrQueueUnavailable)
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return fmt.Errorf("%w: %d tasks already waiting", types.ErrQueueUnavailable, len(p.queue))
	}
}

// Stop refuses new tasks and waits for queued and running ones to finish.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Generation workers stopped")
}
