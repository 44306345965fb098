// Package postgres keeps every collection in one JSONB table.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/geocoder89/eventform/internal/docstore"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects, pings and migrates.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 5

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return New(pool), nil
}

const selectDocs = `SELECT id, data, created_at FROM documents WHERE collection = $1`

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	return s.query(ctx, selectDocs+` ORDER BY seq ASC`, collection)
}

// Containment lets the planner use the jsonb_path_ops GIN index. For the scalar
// values Where is called with it is plain equality.
const whereDocs = selectDocs + ` AND data @> jsonb_build_object($2::text, $3::jsonb) ORDER BY seq ASC`

func (s *Store) Where(ctx context.Context, collection, field string, value any) ([]docstore.Document, error) {
	if err := docstore.CheckField(field); err != nil {
		return nil, err
	}

	want, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	return s.query(ctx, whereDocs, collection, field, string(want))
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]docstore.Document, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]docstore.Document, 0)

	for rows.Next() {
		var d docstore.Document
		var data []byte

		if err := rows.Scan(&d.ID, &data, &d.CreatedAt); err != nil {
			return nil, err
		}

		d.Data = data
		out = append(out, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var d docstore.Document
	var data []byte

	err := s.pool.QueryRow(ctx, selectDocs+` AND id = $2`, collection, id).Scan(&d.ID, &data, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, err
	}

	d.Data = data
	return d, nil
}

func (s *Store) Insert(ctx context.Context, collection string, data any) (string, error) {
	b, err := docstore.MarshalObject(data)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data, created_at) VALUES ($1, $2, $3::jsonb, $4)`,
		collection, id, string(b), time.Now().UTC())
	if err != nil {
		return "", err
	}

	return id, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	b, err := json.Marshal(patch)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET data = data || $3::jsonb WHERE collection = $1 AND id = $2`,
		collection, id, string(b))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
