package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var ErrNotFound = errors.New("record not found")

// Record marks an application as monitored. The presence of a record is the
// enablement flag; Name is kept for display only.
type Record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Store is the backing store contract. Save is an upsert and Remove of an
// absent id is not an error.
type Store interface {
	FindOne(ctx context.Context, id string) (Record, error)
	FindAll(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, record Record) error
	Remove(ctx context.Context, id string) error
	Close() error
}

// Error wraps a store failure with the registry operation that hit it.
type Error struct {
	Op  string
	ID  string
	Err error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("registry %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("registry %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Registry struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger,
	}
}

func (r *Registry) IsEnabled(ctx context.Context, id string) (bool, error) {
	_, err := r.store.FindOne(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &Error{Op: "find", ID: id, Err: err}
	}

	return true, nil
}

func (r *Registry) ListEnabled(ctx context.Context) ([]Record, error) {
	records, err := r.store.FindAll(ctx)
	if err != nil {
		return nil, &Error{Op: "list", Err: err}
	}

	return records, nil
}

func (r *Registry) Enable(ctx context.Context, record Record) error {
	if err := r.store.Save(ctx, record); err != nil {
		return &Error{Op: "enable", ID: record.ID, Err: err}
	}

	r.logger.Info("Enabled application", "appID", record.ID, "appName", record.Name)
	return nil
}

func (r *Registry) Disable(ctx context.Context, id string) error {
	if err := r.store.Remove(ctx, id); err != nil {
		return &Error{Op: "disable", ID: id, Err: err}
	}

	r.logger.Info("Disabled application", "appID", id)
	return nil
}

func (r *Registry) Close() error {
	return r.store.Close()
}
