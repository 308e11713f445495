package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/timgluz/nrwatch/registry"
)

const (
	DefaultInterval        = 15 * time.Minute
	bootstrapEnableWorkers = 8
)

type JobScheduler interface {
	Every(interval time.Duration, kind, key string, data PollJobData) error
}

type BootstrapResult struct {
	Entities []Entity
	// Seeded is set when the registry was empty and every entity got enabled.
	Seeded bool
}

// Bootstrap registers one poll job per entity of the source. When no entity
// is enabled yet, all of them are enabled first. Nothing is scheduled if
// listing or seeding fails.
func Bootstrap(ctx context.Context, source Source, enablement Enablement, jobs JobScheduler, interval time.Duration, logger *slog.Logger) (BootstrapResult, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	entities, err := source.ListEntities(ctx)
	if err != nil {
		return BootstrapResult{}, &ProviderError{Op: "list", Err: err}
	}

	enabled, err := enablement.ListEnabled(ctx)
	if err != nil {
		return BootstrapResult{}, err
	}

	result := BootstrapResult{Entities: entities}
	if len(enabled) == 0 && len(entities) > 0 {
		logger.Info("No applications enabled, enabling all", "count", len(entities))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(bootstrapEnableWorkers)
		for _, entity := range entities {
			g.Go(func() error {
				return enablement.Enable(gctx, registry.Record{ID: entity.ID, Name: entity.Name})
			})
		}
		if err := g.Wait(); err != nil {
			return BootstrapResult{}, fmt.Errorf("enable all applications: %w", err)
		}
		result.Seeded = true
	}

	for _, entity := range entities {
		if err := jobs.Every(interval, JobKind, entity.ID, PollJobData{Entity: entity}); err != nil {
			return result, fmt.Errorf("schedule %s: %w", entity.ID, err)
		}
	}

	logger.Info("Scheduled application polls", "count", len(entities), "interval", interval, "seeded", result.Seeded)
	return result, nil
}
