package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/timgluz/nrwatch/metric"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(t *testing.T, immediate bool) (*Scheduler[string], *metric.Registry) {
	t.Helper()

	registry := metric.NewRegistry("test", discardLogger())
	s := New[string](Config{Workers: 2, ImmediateFirstRun: &immediate}, registry, discardLogger())
	t.Cleanup(s.Stop)
	return s, registry
}

func waitFor(t *testing.T, ch <-chan string) string {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for job run")
		return ""
	}
}

func TestEveryRunsImmediatelyWithData(t *testing.T) {
	s, _ := newTestScheduler(t, true)

	got := make(chan string, 4)
	s.Define("echo", func(ctx context.Context, run Run[string]) error {
		if run.ID == "" {
			t.Errorf("run id must be set")
		}
		got <- run.Data
		return nil
	})
	s.Start()

	if err := s.Every(time.Hour, "echo", "k1", "payload"); err != nil {
		t.Fatalf("Every returned error: %v", err)
	}

	if v := waitFor(t, got); v != "payload" {
		t.Fatalf("unexpected payload %q", v)
	}
}

func TestEveryTicksRepeatedly(t *testing.T) {
	s, _ := newTestScheduler(t, false)

	var runs atomic.Int32
	done := make(chan string, 1)
	s.Define("tick", func(ctx context.Context, run Run[string]) error {
		if runs.Add(1) == 3 {
			done <- run.Key
		}
		return nil
	})

	if err := s.Every(10*time.Millisecond, "tick", "k", ""); err != nil {
		t.Fatalf("Every returned error: %v", err)
	}
	s.Start()

	if key := waitFor(t, done); key != "k" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestEveryReplacesJobWithSameKey(t *testing.T) {
	s, _ := newTestScheduler(t, false)
	s.Define("noop", func(ctx context.Context, run Run[string]) error { return nil })

	if err := s.Every(time.Hour, "noop", "42", "first"); err != nil {
		t.Fatalf("Every returned error: %v", err)
	}
	if err := s.Every(2*time.Hour, "noop", "42", "second"); err != nil {
		t.Fatalf("Every returned error: %v", err)
	}

	jobs := s.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}
	if jobs[0].Interval != 2*time.Hour {
		t.Errorf("expected the replacing descriptor, got interval %v", jobs[0].Interval)
	}
}

func TestReplacedJobRunIsNotCountedOnReplacement(t *testing.T) {
	s, registry := newTestScheduler(t, true)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string, 1)
	s.Define("slow", func(ctx context.Context, run Run[string]) error {
		if run.Data == "old" {
			close(started)
			<-release
			return errors.New("old run failed")
		}
		done <- run.Data
		return nil
	})
	s.Start()

	if err := s.Every(time.Hour, "slow", "42", "old"); err != nil {
		t.Fatalf("Every returned error: %v", err)
	}
	<-started

	if err := s.Every(time.Hour, "slow", "42", "new"); err != nil {
		t.Fatalf("Every returned error: %v", err)
	}
	waitFor(t, done)
	close(release)

	runs := registry.GetOrCreateCounterVec("scheduler_runs_total", "", []string{"kind", "result"})
	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(runs.WithLabelValues("slow", "error")) < 1 || testutil.ToFloat64(runs.WithLabelValues("slow", "ok")) < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("runs did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}

	jobs := s.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}
	if jobs[0].Runs != 1 || jobs[0].Failures != 0 {
		t.Errorf("expected only the replacing run to be counted, got runs=%d failures=%d", jobs[0].Runs, jobs[0].Failures)
	}
}

func TestEveryRejectsUnknownKindAndBadInterval(t *testing.T) {
	s, _ := newTestScheduler(t, false)

	if err := s.Every(time.Minute, "missing", "k", ""); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}

	s.Define("noop", func(ctx context.Context, run Run[string]) error { return nil })
	if err := s.Every(0, "noop", "k", ""); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestPanicIsRecoveredAndCounted(t *testing.T) {
	s, registry := newTestScheduler(t, true)

	after := make(chan string, 1)
	s.Define("boom", func(ctx context.Context, run Run[string]) error {
		panic("kaboom")
	})
	s.Define("fine", func(ctx context.Context, run Run[string]) error {
		after <- run.Key
		return nil
	})
	s.Start()

	if err := s.Every(time.Hour, "boom", "a", ""); err != nil {
		t.Fatalf("Every returned error: %v", err)
	}

	runs := registry.GetOrCreateCounterVec("scheduler_runs_total", "", []string{"kind", "result"})
	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(runs.WithLabelValues("boom", "panic")) < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("panic was not counted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// workers survive the panic
	if err := s.Every(time.Hour, "fine", "b", ""); err != nil {
		t.Fatalf("Every returned error: %v", err)
	}
	waitFor(t, after)

	for _, job := range s.Jobs() {
		if job.Key == "a" && job.Failures != 1 {
			t.Errorf("expected one failure for panicking job, got %d", job.Failures)
		}
	}
}

func TestCancelAndStop(t *testing.T) {
	s, _ := newTestScheduler(t, false)
	s.Define("noop", func(ctx context.Context, run Run[string]) error { return nil })
	s.Start()

	if err := s.Every(time.Hour, "noop", "k", ""); err != nil {
		t.Fatalf("Every returned error: %v", err)
	}
	if !s.Cancel("k") {
		t.Fatalf("expected Cancel to remove the job")
	}
	if s.Cancel("k") {
		t.Fatalf("second Cancel must report false")
	}

	s.Stop()
	if err := s.Every(time.Hour, "noop", "k", ""); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after Stop, got %v", err)
	}
}
