package registry

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createAppsTable = `CREATE TABLE IF NOT EXISTS newrelic_apps (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, createAppsTable); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) FindOne(ctx context.Context, id string) (Record, error) {
	var record Record
	row := s.pool.QueryRow(ctx, `SELECT id, name FROM newrelic_apps WHERE id=$1`, id)
	if err := row.Scan(&record.ID, &record.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}

	return record, nil
}

func (s *PostgresStore) FindAll(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM newrelic_apps ORDER BY id`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var record Record
		err := row.Scan(&record.ID, &record.Name)
		return record, err
	})
}

func (s *PostgresStore) Save(ctx context.Context, record Record) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO newrelic_apps (id, name, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()`, record.ID, record.Name)
	return err
}

func (s *PostgresStore) Remove(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM newrelic_apps WHERE id=$1`, id)
	return err
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
