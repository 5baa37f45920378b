package core

/*
iocx — fast tool in Go for extracting network indicators from text artifacts
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"
	"golang.org/x/time/rate"

	"github.com/x-stp/iocx/internal/metrics"
)

// WorkItem is a unit of work: one file to scan. Items are pooled via sync.Pool.
type WorkItem struct {
	Index int    // Position of the file in the scan plan.
	Path  string // Used for sharding work across workers.
	Ctx   context.Context

	// Callback performs the work. Complete always runs afterwards with the
	// callback's error, ErrWorkerPanic if it panicked, or ErrWorkerShutdown if the
	// scheduler stopped before the item ran.
	Callback func(item *WorkItem) error
	Complete func(item *WorkItem, err error)
}

// SchedulerConfig holds the worker pool parameters.
type SchedulerConfig struct {
	Workers    int     // <= 0 selects runtime.NumCPU().
	QueueSize  int     // <= 0 selects DefaultQueueSize.
	RateLimit  float64 // Submissions per second; 0 is unlimited.
	PinWorkers bool    // Bind each worker to a CPU core (Linux only).
}

// Scheduler manages a pool of worker goroutines and dispatches WorkItems to them
// based on a hash of the file path.
type Scheduler struct {
	numWorkers   int
	workers      []*worker
	ctx          context.Context
	cancel       context.CancelFunc
	shutdown     atomic.Bool
	submitMu     sync.RWMutex // held shared by submitters, exclusively by Shutdown
	workItemPool sync.Pool
	activeWork   sync.WaitGroup
	running      sync.WaitGroup
	limiter      *rate.Limiter // nil when unlimited
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

// worker encapsulates a single worker goroutine and its queue.
type worker struct {
	id          int
	label       string
	cpuAffinity int
	pin         bool
	queue       chan *WorkItem
	scheduler   *Scheduler
	ctx         context.Context
}

// NewScheduler creates and starts the scheduler and its worker pool.
func NewScheduler(parentCtx context.Context, cfg SchedulerConfig, logger zerolog.Logger) (*Scheduler, error) {
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("invalid rate limit %v", cfg.RateLimit)
	}
	numWorkers := cfg.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > MaxWorkers {
		numWorkers = MaxWorkers
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	sctx, cancel := context.WithCancel(parentCtx)
	s := &Scheduler{
		numWorkers: numWorkers,
		workers:    make([]*worker, numWorkers),
		ctx:        sctx,
		cancel:     cancel,
		workItemPool: sync.Pool{
			New: func() interface{} {
				return &WorkItem{}
			},
		},
		logger:  logger.With().Str("component", "scheduler").Logger(),
		metrics: metrics.GetMetrics(),
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	for i := 0; i < numWorkers; i++ {
		w := &worker{
			id:          i,
			label:       metrics.WorkerLabel(i),
			cpuAffinity: i % runtime.NumCPU(),
			pin:         cfg.PinWorkers,
			queue:       make(chan *WorkItem, queueSize),
			scheduler:   s,
			ctx:         sctx,
		}
		s.workers[i] = w
		s.running.Add(1)
		go w.run()
	}

	s.logger.Debug().
		Int("workers", numWorkers).
		Int("queue_size", queueSize).
		Float64("rate_limit", cfg.RateLimit).
		Bool("pinned", cfg.PinWorkers).
		Msg("Scheduler initialized")
	return s, nil
}

// NumWorkers returns the size of the pool.
func (s *Scheduler) NumWorkers() int { return s.numWorkers }

// run is the processing loop of one worker goroutine.
func (w *worker) run() {
	defer w.scheduler.running.Done()
	if w.pin {
		if err := setAffinity(w.cpuAffinity); err != nil {
			w.scheduler.logger.Warn().Err(err).
				Int("worker", w.id).
				Int("cpu", w.cpuAffinity).
				Msg("Failed to set CPU affinity")
		}
	}

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case item := <-w.queue:
			if item == nil {
				continue
			}
			w.process(item)
		}
	}
}

func (w *worker) process(item *WorkItem) {
	m := w.scheduler.metrics
	m.WorkerBusy.WithLabelValues(w.label).Set(1)
	defer m.WorkerBusy.WithLabelValues(w.label).Set(0)

	err := w.call(item)
	if item.Complete != nil {
		item.Complete(item, err)
	}
	m.WorkerProcessed.WithLabelValues(w.label).Inc()
	w.scheduler.release(item)
}

// call runs the callback, converting a panic into ErrWorkerPanic.
func (w *worker) call(item *WorkItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.scheduler.metrics.WorkerPanics.WithLabelValues(w.label).Inc()
			w.scheduler.logger.Error().
				Int("worker", w.id).
				Str("path", item.Path).
				Interface("panic", r).
				Msg("Panic recovered in worker")
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
	}()
	return item.Callback(item)
}

// drain completes every queued item with ErrWorkerShutdown so waiters are released.
func (w *worker) drain() {
	for {
		select {
		case item := <-w.queue:
			if item == nil {
				continue
			}
			if item.Complete != nil {
				item.Complete(item, ErrWorkerShutdown)
			}
			w.scheduler.release(item)
		default:
			return
		}
	}
}

func (s *Scheduler) release(item *WorkItem) {
	item.Callback = nil
	item.Complete = nil
	item.Ctx = nil
	item.Path = ""
	item.Index = 0
	s.workItemPool.Put(item)
	s.activeWork.Done()
}

// Pace blocks until the rate limiter admits one more submission.
// It returns immediately when no rate limit is configured.
func (s *Scheduler) Pace(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	start := time.Now()
	err := s.limiter.Wait(ctx)
	s.metrics.SubmitRateLimitDelay.Observe(time.Since(start).Seconds())
	return err
}

// SubmitWork routes a file to a worker queue chosen by hashing its path. The send is
// non-blocking: a full queue returns an error wrapping ErrQueueFull.
func (s *Scheduler) SubmitWork(ctx context.Context, index int, path string,
	callback func(item *WorkItem) error, complete func(item *WorkItem, err error)) error {
	s.submitMu.RLock()
	defer s.submitMu.RUnlock()
	if s.shutdown.Load() || s.ctx.Err() != nil {
		return ErrWorkerShutdown
	}
	shardIndex := int(xxh3.HashString(path) % uint64(s.numWorkers))
	targetWorker := s.workers[shardIndex]

	item := s.workItemPool.Get().(*WorkItem)
	item.Index = index
	item.Path = path
	item.Ctx = ctx
	item.Callback = callback
	item.Complete = complete
	s.activeWork.Add(1)

	select {
	case targetWorker.queue <- item:
		return nil
	default:
		item.Callback = nil
		item.Complete = nil
		item.Ctx = nil
		s.workItemPool.Put(item)
		s.activeWork.Done()
		s.metrics.QueueBackpressureHit.WithLabelValues(targetWorker.label).Inc()
		return fmt.Errorf("worker %d for %s: %w", targetWorker.id, path, ErrQueueFull)
	}
}

// Wait blocks until every submitted item has completed.
func (s *Scheduler) Wait() {
	s.activeWork.Wait()
}

// Shutdown stops the workers. Items still queued complete with ErrWorkerShutdown.
// It returns once every worker goroutine has exited.
func (s *Scheduler) Shutdown() {
	s.submitMu.Lock()
	first := s.shutdown.CompareAndSwap(false, true)
	s.submitMu.Unlock()

	if first {
		s.logger.Debug().Msg("Scheduler shutting down")
		s.cancel()
	}
	s.running.Wait()
	for _, w := range s.workers {
		w.drain()
	}
}
