// Package surreal maps each collection onto a SurrealDB table. Records carry the
// document fields at the top level plus two bookkeeping fields, _seq and _created.
package surreal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/geocoder89/eventform/internal/docstore"
	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

const (
	seqKey     = "_seq"
	createdKey = "_created"
)

var ErrQuery = errors.New("surreal query failed")

type Config struct {
	Host      string
	Port      string
	User      string
	Password  string
	Namespace string
	Database  string
}

type Store struct {
	db  *surrealdb.DB
	now func() time.Time
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	endpoint := fmt.Sprintf("ws://%s:%s", cfg.Host, cfg.Port)

	db, err := surrealdb.FromEndpointURLString(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", endpoint, err)
	}

	_, err = db.SignIn(ctx, &surrealdb.Auth{
		Username: cfg.User,
		Password: cfg.Password,
	})
	if err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("signin failed: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("use failed: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) query(ctx context.Context, q string, vars map[string]any) ([]map[string]any, error) {
	results, err := surrealdb.Query[[]map[string]any](ctx, s.db, q, vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}

	r := (*results)[0]
	if r.Status != "OK" {
		if r.Error != nil {
			return nil, fmt.Errorf("%w: %s", ErrQuery, r.Error.Message)
		}
		return nil, fmt.Errorf("%w: status %s", ErrQuery, r.Status)
	}
	return r.Result, nil
}

func (s *Store) list(ctx context.Context, q string, vars map[string]any) ([]docstore.Document, error) {
	records, err := s.query(ctx, q, vars)
	if err != nil {
		return nil, err
	}

	out := make([]docstore.Document, 0, len(records))
	for _, rec := range records {
		d, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	return s.list(ctx,
		`SELECT * FROM type::table($tb) ORDER BY _seq ASC`,
		map[string]any{"tb": collection})
}

func (s *Store) Where(ctx context.Context, collection, field string, value any) ([]docstore.Document, error) {
	if err := docstore.CheckField(field); err != nil {
		return nil, err
	}

	return s.list(ctx,
		`SELECT * FROM type::table($tb) WHERE type::field($field) = $value ORDER BY _seq ASC`,
		map[string]any{"tb": collection, "field": field, "value": value})
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	docs, err := s.list(ctx,
		`SELECT * FROM type::thing($tb, $id)`,
		map[string]any{"tb": collection, "id": id})
	if err != nil {
		return docstore.Document{}, err
	}
	if len(docs) == 0 {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docs[0], nil
}

func (s *Store) Insert(ctx context.Context, collection string, data any) (string, error) {
	content, err := docstore.ToMap(data)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	content[seqKey] = now.UnixNano()
	content[createdKey] = now.Format(time.RFC3339Nano)
	delete(content, "id")

	id := uuid.NewString()

	_, err = s.query(ctx,
		`CREATE type::thing($tb, $id) CONTENT $data RETURN NONE`,
		map[string]any{"tb": collection, "id": id, "data": content})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	fields, err := docstore.ToMap(patch)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "id" || k == seqKey || k == createdKey {
			continue
		}
		if err := docstore.CheckField(k); err != nil {
			return err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// SET replaces each top-level value; MERGE would recurse into nested objects
	vars := map[string]any{"tb": collection, "id": id}
	sets := make([]string, 0, len(keys))
	for i, k := range keys {
		name := fmt.Sprintf("v%d", i)
		sets = append(sets, k+" = $"+name)
		vars[name] = fields[k]
	}

	q := `UPDATE type::thing($tb, $id)`
	if len(sets) > 0 {
		q += ` SET ` + strings.Join(sets, ", ")
	}

	// UPDATE never creates a record, so nothing back means nothing matched
	out, err := s.query(ctx, q+` RETURN AFTER`, vars)
	if err != nil {
		return err
	}
	if len(out) == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	out, err := s.query(ctx,
		`DELETE type::thing($tb, $id) RETURN BEFORE`,
		map[string]any{"tb": collection, "id": id})
	if err != nil {
		return err
	}
	if len(out) == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.db.Version(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrQuery, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

// decodeRecord splits a raw record into id, bookkeeping and document body.
func decodeRecord(rec map[string]any) (docstore.Document, error) {
	var d docstore.Document

	d.ID = recordKey(rec["id"])
	d.CreatedAt = parseTime(rec[createdKey])

	body := make(map[string]any, len(rec))
	for k, v := range rec {
		switch k {
		case "id", seqKey, createdKey:
			continue
		}
		body[k] = v
	}

	b, err := json.Marshal(body)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("encode record %s: %w", d.ID, err)
	}
	d.Data = b

	return d, nil
}

// recordKey returns the key part of a record id, dropping the table prefix.
func recordKey(id any) string {
	switch v := id.(type) {
	case models.RecordID:
		return fmt.Sprint(v.ID)
	case *models.RecordID:
		if v != nil {
			return fmt.Sprint(v.ID)
		}
	case string:
		if _, key, ok := strings.Cut(v, ":"); ok {
			return strings.Trim(key, "⟨⟩`")
		}
		return v
	}
	return ""
}

func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case models.CustomDateTime:
		return t.Time
	case *models.CustomDateTime:
		if t != nil {
			return t.Time
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
