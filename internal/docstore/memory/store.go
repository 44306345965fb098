package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/geocoder89/eventform/internal/docstore"
	"github.com/google/uuid"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	now         func() time.Time
}

type collection struct {
	order []string
	items map[string]docstore.Document
}

func New() *Store {
	return &Store{
		collections: make(map[string]*collection),
		now:         time.Now,
	}
}

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{items: make(map[string]docstore.Document)}
		s.collections[name] = c
	}
	return c
}

func (s *Store) List(_ context.Context, name string) ([]docstore.Document, error) {
	return s.filter(name, func(docstore.Document) bool { return true }), nil
}

func (s *Store) Where(_ context.Context, name, field string, value any) ([]docstore.Document, error) {
	if err := docstore.CheckField(field); err != nil {
		return nil, err
	}

	want, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	return s.filter(name, func(d docstore.Document) bool {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(d.Data, &m); err != nil {
			return false
		}
		got, ok := m[field]
		if !ok {
			return false
		}
		return jsonEqual(got, want)
	}), nil
}

func (s *Store) filter(name string, keep func(docstore.Document) bool) []docstore.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return []docstore.Document{}
	}

	out := make([]docstore.Document, 0, len(c.order))
	for _, id := range c.order {
		d := c.items[id]
		if keep(d) {
			out = append(out, clone(d))
		}
	}
	return out
}

func (s *Store) Get(_ context.Context, name, id string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	d, ok := c.items[id]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return clone(d), nil
}

func (s *Store) Insert(_ context.Context, name string, data any) (string, error) {
	b, err := docstore.MarshalObject(data)
	if err != nil {
		return "", err
	}

	d := docstore.Document{
		ID:        uuid.NewString(),
		Data:      b,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	c := s.coll(name)
	c.items[d.ID] = d
	c.order = append(c.order, d.ID)
	s.mu.Unlock()

	return d.ID, nil
}

func (s *Store) Update(_ context.Context, name, id string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return docstore.ErrNotFound
	}
	d, ok := c.items[id]
	if !ok {
		return docstore.ErrNotFound
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(d.Data, &m); err != nil {
		return err
	}
	for k, v := range patch {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		m[k] = b
	}

	merged, err := json.Marshal(m)
	if err != nil {
		return err
	}
	d.Data = merged
	c.items[id] = d

	return nil
}

func (s *Store) Delete(_ context.Context, name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return docstore.ErrNotFound
	}
	if _, ok := c.items[id]; !ok {
		return docstore.ErrNotFound
	}

	delete(c.items, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func clone(d docstore.Document) docstore.Document {
	d.Data = append(json.RawMessage(nil), d.Data...)
	return d
}

// jsonEqual compares two encoded values structurally, so 1 and 1.0 match.
func jsonEqual(a, b []byte) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var x, y any
	if json.Unmarshal(a, &x) != nil || json.Unmarshal(b, &y) != nil {
		return false
	}
	xb, _ := json.Marshal(x)
	yb, _ := json.Marshal(y)
	return bytes.Equal(xb, yb)
}
