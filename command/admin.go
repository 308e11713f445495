package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/timgluz/nrwatch/monitor"
	"github.com/timgluz/nrwatch/registry"
)

const (
	ReplyFailed    = "Operation failed :("
	ReplyEmptyList = "No New Relic applications found."
)

type Enablement interface {
	IsEnabled(ctx context.Context, id string) (bool, error)
	Enable(ctx context.Context, record registry.Record) error
	Disable(ctx context.Context, id string) error
}

// Admin implements the list, enable and disable operations. Every method
// returns a reply for the caller; the error is set only for provider or
// registry faults, in which case the reply is ReplyFailed.
type Admin struct {
	source     monitor.Source
	enablement Enablement
	logger     *slog.Logger
}

func NewAdmin(source monitor.Source, enablement Enablement, logger *slog.Logger) *Admin {
	return &Admin{
		source:     source,
		enablement: enablement,
		logger:     logger,
	}
}

func (a *Admin) List(ctx context.Context) (string, error) {
	entities, err := a.source.ListEntities(ctx)
	if err != nil {
		return a.failed("list", err)
	}

	if len(entities) == 0 {
		return ReplyEmptyList, nil
	}

	lines := make([]string, 0, len(entities))
	for i, entity := range entities {
		enabled, err := a.enablement.IsEnabled(ctx, entity.ID)
		if err != nil {
			return a.failed("list", err)
		}

		status := "Disabled"
		if enabled {
			status = "Enabled"
		}
		lines = append(lines, fmt.Sprintf("%d. %s – %s", i, entity.Name, status))
	}

	return strings.Join(lines, "\n"), nil
}

func (a *Admin) Enable(ctx context.Context, selector Selector) (string, error) {
	entity, reply, err := a.resolve(ctx, "enable", selector)
	if reply != "" {
		return reply, err
	}

	if err := a.enablement.Enable(ctx, registry.Record{ID: entity.ID, Name: entity.Name}); err != nil {
		return a.failed("enable", err)
	}

	return fmt.Sprintf("Enabled *%s*.", entity.Name), nil
}

func (a *Admin) Disable(ctx context.Context, selector Selector) (string, error) {
	entity, reply, err := a.resolve(ctx, "disable", selector)
	if reply != "" {
		return reply, err
	}

	if err := a.enablement.Disable(ctx, entity.ID); err != nil {
		return a.failed("disable", err)
	}

	return fmt.Sprintf("Disabled *%s*.", entity.Name), nil
}

// resolve returns a non-empty reply when the command cannot go on.
func (a *Admin) resolve(ctx context.Context, op string, selector Selector) (monitor.Entity, string, error) {
	entities, err := a.source.ListEntities(ctx)
	if err != nil {
		reply, err := a.failed(op, err)
		return monitor.Entity{}, reply, err
	}

	entity, err := selector.Resolve(entities)
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		a.logger.Debug("Application not found", "op", op, "selector", selector.String())
		return monitor.Entity{}, NotFoundReply(selector), nil
	}

	return entity, "", nil
}

func (a *Admin) failed(op string, err error) (string, error) {
	a.logger.Error("Admin command failed", "op", op, "error", err)
	return ReplyFailed, err
}

func NotFoundReply(selector Selector) string {
	return fmt.Sprintf("Application *%s* not found.", selector.String())
}
