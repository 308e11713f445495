package registry

import (
	"context"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps all records in one hash: field id, value name.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(ctx context.Context, dsn, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return newRedisStoreWithClient(rdb, prefix), nil
}

func newRedisStoreWithClient(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, key: prefix + ":apps"}
}

func (s *RedisStore) FindOne(ctx context.Context, id string) (Record, error) {
	name, err := s.rdb.HGet(ctx, s.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	return Record{ID: id, Name: name}, nil
}

func (s *RedisStore) FindAll(ctx context.Context) ([]Record, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(fields))
	for id, name := range fields {
		records = append(records, Record{ID: id, Name: name})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	return records, nil
}

func (s *RedisStore) Save(ctx context.Context, record Record) error {
	return s.rdb.HSet(ctx, s.key, record.ID, record.Name).Err()
}

func (s *RedisStore) Remove(ctx context.Context, id string) error {
	return s.rdb.HDel(ctx, s.key, id).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
