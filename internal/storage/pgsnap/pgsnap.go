package pgsnap

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/dispatchly/fleetsync/internal/models"
)

// Storage — durable-вариант адаптера снапшотов: JSONB-блоб на ключ тенанта.
type Storage struct {
	db *pgxpool.Pool
}

func New(connString string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	s := &Storage{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *Storage) Load(ctx context.Context, key string) (*models.Snapshot, bool, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT state FROM snapshots WHERE key = $1`, key).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "select snapshot")
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, errors.Wrap(err, "unmarshal snapshot")
	}
	return &snap, true, nil
}

// Keys перечисляет ключи сохранённых снапшотов по префиксу (обход тенантов
// worker'ом).
func (s *Storage) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT key FROM snapshots WHERE key LIKE $1 || ':%' ORDER BY key`, prefix)
	if err != nil {
		return nil, errors.Wrap(err, "select snapshot keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Wrap(err, "scan snapshot key")
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Storage) Save(ctx context.Context, key string, snap *models.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO snapshots (key, state, saved_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET state = EXCLUDED.state, saved_at = EXCLUDED.saved_at`,
		key, raw, snap.SavedAt)
	if err != nil {
		return errors.Wrap(err, "upsert snapshot")
	}
	return nil
}
