// Package sqlite stores documents as JSON text and filters with the JSON1 functions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/geocoder89/eventform/internal/docstore"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL CHECK (json_valid(data)),
	created_at TEXT NOT NULL,
	UNIQUE (collection, id)
);
`

type Store struct {
	db *sql.DB
}

// Open accepts any modernc DSN, ":memory:" included.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one connection: no "database is locked" and ":memory:" stays a single database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return &Store{db: db}, nil
}

const selectDocs = `SELECT id, data, created_at FROM documents WHERE collection = ?`

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	return s.query(ctx, selectDocs+` ORDER BY seq`, collection)
}

func (s *Store) Where(ctx context.Context, collection, field string, value any) ([]docstore.Document, error) {
	if err := docstore.CheckField(field); err != nil {
		return nil, err
	}

	want, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	return s.query(ctx,
		selectDocs+` AND json_extract(data, ?) = json_extract(?, '$') ORDER BY seq`,
		collection, "$."+field, string(want))
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]docstore.Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]docstore.Document, 0)
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (docstore.Document, error) {
	var d docstore.Document
	var data, created string

	if err := r.Scan(&d.ID, &data, &created); err != nil {
		return docstore.Document{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("parse created_at of %s: %w", d.ID, err)
	}

	d.Data = json.RawMessage(data)
	d.CreatedAt = t
	return d, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	d, err := scan(s.db.QueryRowContext(ctx, selectDocs+` AND id = ?`, collection, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, err
	}
	return d, nil
}

func (s *Store) Insert(ctx context.Context, collection string, data any) (string, error) {
	b, err := docstore.MarshalObject(data)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at) VALUES (?, ?, ?, ?)`,
		collection, id, string(b), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", err
	}
	return id, nil
}

// Update sets each patch key with json_set, so nested objects are replaced whole
// rather than merged the way json_patch would.
func (s *Store) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		if err := docstore.CheckField(k); err != nil {
			return err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	expr := "data"
	args := make([]any, 0, 2*len(keys)+2)
	if len(keys) > 0 {
		var b strings.Builder
		b.WriteString("json_set(data")
		for _, k := range keys {
			v, err := json.Marshal(patch[k])
			if err != nil {
				return err
			}
			b.WriteString(", ?, json(?)")
			args = append(args, "$."+k, string(v))
		}
		b.WriteString(")")
		expr = b.String()
	}
	args = append(args, collection, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET data = `+expr+` WHERE collection = ? AND id = ?`, args...)
	if err != nil {
		return err
	}
	return affected(res)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
