package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/timgluz/nrwatch/registry"
	"github.com/timgluz/nrwatch/scheduler"
)

func TestScheduledPollsRunAlongsideAdminWrites(t *testing.T) {
	ctx := context.Background()

	store, err := registry.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	reg := registry.New(store, discardLogger())
	t.Cleanup(func() { _ = reg.Close() })

	source := &fakeSource{apdex: map[string]float64{}, rates: map[string]float64{}}
	for i := 1; i <= 20; i++ {
		id := fmt.Sprint(i)
		source.entities = append(source.entities, Entity{ID: id, Name: "app-" + id})
		source.apdex[id] = 0.1
		source.rates[id] = 50
	}

	sink := &recordingSink{}
	m, metrics := newTestMonitor(source, reg, sink)

	immediate := true
	sched := scheduler.New[PollJobData](scheduler.Config{Workers: 4, ImmediateFirstRun: &immediate}, metrics, discardLogger())
	sched.Define(JobKind, m.HandleRun)
	t.Cleanup(sched.Stop)

	if _, err := Bootstrap(ctx, source, reg, sched, 5*time.Millisecond, discardLogger()); err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	sched.Start()

	var wg sync.WaitGroup
	writeErrs := make(chan error, 4)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				entity := source.entities[(w*7+i)%len(source.entities)]

				var err error
				if i%2 == 0 {
					err = reg.Disable(ctx, entity.ID)
				} else {
					err = reg.Enable(ctx, registry.Record{ID: entity.ID, Name: entity.Name})
				}
				if err != nil {
					writeErrs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(writeErrs)
	for err := range writeErrs {
		t.Fatalf("admin write failed: %v", err)
	}

	runs := metrics.GetOrCreateCounterVec("scheduler_runs_total", "", []string{"kind", "result"})
	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(runs.WithLabelValues(JobKind, "ok")) < 40 {
		if time.Now().After(deadline) {
			t.Fatalf("scheduled polls did not run while admin writes were in flight")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// runs still in flight at Stop see a cancelled context
	failed := testutil.ToFloat64(runs.WithLabelValues(JobKind, "error"))
	sched.Stop()

	if failed != 0 {
		t.Errorf("expected no failed polls, got %v", failed)
	}

	// jobs keep their entity after a disable; the next run must not alert
	for _, entity := range source.entities {
		if err := reg.Disable(ctx, entity.ID); err != nil {
			t.Fatalf("disable failed: %v", err)
		}
	}

	sink.mu.Lock()
	before := len(sink.messages)
	sink.mu.Unlock()

	for _, entity := range source.entities {
		run := scheduler.Run[PollJobData]{ID: "stale-" + entity.ID, Kind: JobKind, Key: entity.ID, Data: PollJobData{Entity: entity}}
		if err := m.HandleRun(ctx, run); err != nil {
			t.Fatalf("HandleRun returned error: %v", err)
		}
	}

	sink.mu.Lock()
	after := len(sink.messages)
	sink.mu.Unlock()
	if after != before {
		t.Errorf("disabled applications sent %d alerts", after-before)
	}
}
