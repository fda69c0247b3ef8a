// Package worker drains the match queue into the open rating period.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/okian/glicko/internal/domain/model"
	"github.com/okian/glicko/pkg/logger"
	"github.com/okian/glicko/pkg/metrics"
)

// Recorder records a match in the open rating period.
type Recorder interface {
	Record(ctx context.Context, m model.Match) error
}

// Queue defines how workers receive matches.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Match
}

// InMemoryWorker reads matches off the queue and hands them to a Recorder.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	name     string
	logger   logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		recorder: recorder,
		name:     "worker",
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run processes matches until ctx is cancelled or the queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	matches := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-matches:
			if !ok {
				return
			}
			if err := w.process(ctx, m); err != nil {
				w.logger.Warn(ctx, "match not recorded", logger.String("matchID", m.ID), logger.Error(err))
			}
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, m model.Match) error { //nolint:gocritic // hugeParam
	if err := w.recorder.Record(ctx, m); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "record_error")
		return fmt.Errorf("record match %s: %w", m.ID, err)
	}
	metrics.RecordMatchRecorded()
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	wg      sync.WaitGroup
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers; values below one default
// to the number of CPUs.
func NewPool(workerCount int, queue Queue, recorder Recorder, log logger.Logger) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	if log == nil {
		log = logger.Get()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		logger:  log.Named("worker-pool"),
	}
	for i := range p.workers {
		name := "worker-" + strconv.Itoa(i)
		p.workers[i] = NewInMemoryWorker(queue, recorder, WithName(name), WithLogger(log.Named(name)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned or ctx expires. Workers return
// once their context is cancelled or the queue is closed and drained.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
