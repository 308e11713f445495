package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/timgluz/nrwatch/metric"
)

var (
	ErrUnknownKind     = errors.New("unknown job kind")
	ErrInvalidInterval = errors.New("job interval must be positive")
	ErrStopped         = errors.New("scheduler is stopped")
)

// Run is one execution of a recurring job.
type Run[T any] struct {
	ID        string
	Kind      string
	Key       string
	Data      T
	Scheduled time.Time

	// job that queued the run; a replaced job keeps its own stats
	job *job[T]
}

type Handler[T any] func(ctx context.Context, run Run[T]) error

type JobInfo struct {
	Kind     string        `json:"kind"`
	Key      string        `json:"key"`
	Interval time.Duration `json:"interval"`
	NextRun  time.Time     `json:"nextRun"`
	LastRun  time.Time     `json:"lastRun,omitzero"`
	Runs     uint64        `json:"runs"`
	Failures uint64        `json:"failures"`
}

type job[T any] struct {
	kind     string
	key      string
	interval time.Duration
	data     T
	stop     chan struct{}

	nextRun  time.Time
	lastRun  time.Time
	runs     uint64
	failures uint64
}

// Scheduler runs recurring jobs keyed by a caller-chosen key. Every job has
// its own ticker; due runs are queued and served by a fixed worker pool.
type Scheduler[T any] struct {
	mu       sync.Mutex
	handlers map[string]Handler[T]
	jobs     map[string]*job[T]

	queue      chan Run[T]
	workers    int
	runTimeout time.Duration
	immediate  bool

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
	wg      sync.WaitGroup

	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec

	logger *slog.Logger
}

func New[T any](config Config, registry *metric.Registry, logger *slog.Logger) *Scheduler[T] {
	config.ApplyDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler[T]{
		handlers:   make(map[string]Handler[T]),
		jobs:       make(map[string]*job[T]),
		queue:      make(chan Run[T], config.QueueSize),
		workers:    config.Workers,
		runTimeout: config.Timeout(),
		immediate:  config.Immediate(),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}

	if registry != nil {
		s.runsTotal = registry.GetOrCreateCounterVec("scheduler_runs_total", "Scheduled job runs by kind and result", []string{"kind", "result"})
		s.runDuration = registry.GetOrCreateHistogramVec("scheduler_run_duration_seconds", "Duration of scheduled job runs", prometheus.DefBuckets, []string{"kind"})
	}

	return s
}

// Define registers the handler for a job kind.
func (s *Scheduler[T]) Define(kind string, handler Handler[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[kind] = handler
}

// Every schedules kind to run for key at interval. A job already registered
// under key is replaced.
func (s *Scheduler[T]) Every(interval time.Duration, kind, key string, data T) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}

	if _, ok := s.handlers[kind]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	if existing, ok := s.jobs[key]; ok {
		close(existing.stop)
	}

	j := &job[T]{
		kind:     kind,
		key:      key,
		interval: interval,
		data:     data,
		stop:     make(chan struct{}),
		nextRun:  time.Now().Add(interval),
	}
	if s.immediate {
		j.nextRun = time.Now()
	}
	s.jobs[key] = j

	if s.started {
		s.startTicker(j)
	}

	s.logger.Debug("Scheduled job", "kind", kind, "key", key, "interval", interval)
	return nil
}

func (s *Scheduler[T]) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[key]
	if !ok {
		return false
	}

	close(j.stop)
	delete(s.jobs, key)
	return true
}

func (s *Scheduler[T]) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, JobInfo{
			Kind:     j.kind,
			Key:      j.key,
			Interval: j.interval,
			NextRun:  j.nextRun,
			LastRun:  j.lastRun,
			Runs:     j.runs,
			Failures: j.failures,
		})
	}

	sort.Slice(jobs, func(i, k int) bool { return jobs[i].Key < jobs[k].Key })
	return jobs
}

// Start launches the worker pool and the tickers of jobs registered so far.
func (s *Scheduler[T]) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	for _, j := range s.jobs {
		s.startTicker(j)
	}

	s.logger.Info("Scheduler started", "workers", s.workers, "jobs", len(s.jobs))
}

// Stop cancels in-flight runs and waits for workers and tickers to exit.
func (s *Scheduler[T]) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.cancel()
	for key, j := range s.jobs {
		close(j.stop)
		delete(s.jobs, key)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// startTicker must be called with s.mu held.
func (s *Scheduler[T]) startTicker(j *job[T]) {
	s.wg.Add(1)
	go s.runTicker(j)
}

func (s *Scheduler[T]) runTicker(j *job[T]) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	if s.immediate && !s.enqueue(j, time.Now()) {
		return
	}

	for {
		select {
		case tick := <-ticker.C:
			if !s.enqueue(j, tick) {
				return
			}
		case <-j.stop:
			return
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler[T]) enqueue(j *job[T], at time.Time) bool {
	s.mu.Lock()
	j.nextRun = at.Add(j.interval)
	s.mu.Unlock()

	run := Run[T]{
		ID:        uuid.NewString(),
		Kind:      j.kind,
		Key:       j.key,
		Data:      j.data,
		Scheduled: at,
		job:       j,
	}

	select {
	case s.queue <- run:
		return true
	case <-j.stop:
		return false
	case <-s.ctx.Done():
		return false
	}
}

func (s *Scheduler[T]) worker() {
	defer s.wg.Done()

	for {
		select {
		case run := <-s.queue:
			s.execute(run)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler[T]) execute(run Run[T]) {
	s.mu.Lock()
	handler, ok := s.handlers[run.Kind]
	s.mu.Unlock()
	if !ok {
		s.logger.Error("No handler for job kind", "kind", run.Kind, "key", run.Key)
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()

	start := time.Now()
	panicked, err := s.invoke(ctx, handler, run)
	elapsed := time.Since(start)

	result := "ok"
	switch {
	case panicked:
		result = "panic"
		s.logger.Error("Job panicked", "kind", run.Kind, "key", run.Key, "runID", run.ID, "error", err)
	case err != nil:
		result = "error"
		s.logger.Warn("Job failed", "kind", run.Kind, "key", run.Key, "runID", run.ID, "error", err)
	default:
		s.logger.Debug("Job completed", "kind", run.Kind, "key", run.Key, "runID", run.ID, "duration", elapsed)
	}

	if j := run.job; j != nil {
		s.mu.Lock()
		j.lastRun = start
		j.runs++
		if err != nil {
			j.failures++
		}
		s.mu.Unlock()
	}

	if s.runsTotal != nil {
		s.runsTotal.WithLabelValues(run.Kind, result).Inc()
		s.runDuration.WithLabelValues(run.Kind).Observe(elapsed.Seconds())
	}
}

func (s *Scheduler[T]) invoke(ctx context.Context, handler Handler[T], run Run[T]) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			panicked = true
		}
	}()

	return false, handler(ctx, run)
}
