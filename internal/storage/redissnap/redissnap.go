package redissnap

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/dispatchly/fleetsync/internal/models"
)

// Store держит снапшоты тенантов в redis: один JSON-блоб на ключ.
// Быстрый вариант персистентности для dev/небольших стендов; durable
// вариант — pgsnap.
type Store struct {
	c *redis.Client
}

func New(addr string) *Store {
	return &Store{
		c: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
	}
}

func (s *Store) Load(ctx context.Context, key string) (*models.Snapshot, bool, error) {
	b, err := s.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get snapshot")
	}
	var snap models.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		// битый блоб равносилен отсутствию: вызывающий уйдёт на дефолты
		return nil, false, errors.Wrap(err, "unmarshal snapshot")
	}
	return &snap, true, nil
}

// Keys перечисляет ключи сохранённых снапшотов по префиксу (обход тенантов
// worker'ом).
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.c.Scan(ctx, 0, prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "redis scan snapshot keys")
	}
	return keys, nil
}

func (s *Store) Save(ctx context.Context, key string, snap *models.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	if err := s.c.Set(ctx, key, b, 0).Err(); err != nil {
		return errors.Wrap(err, "redis set snapshot")
	}
	return nil
}
