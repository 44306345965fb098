// Package docstoretest holds the behaviour every docstore driver must share.
package docstoretest

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/eventform/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	Name   string   `json:"name"`
	Team   string   `json:"team"`
	Active bool     `json:"active"`
	Tags   []string `json:"tags,omitempty"`
}

// Run exercises a fresh store returned by open. The store is closed at the end.
func Run(t *testing.T, open func(t *testing.T) docstore.Store) {
	t.Helper()

	t.Run("insert and get", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		id, err := s.Insert(ctx, "people", person{Name: "Ana", Team: "red", Active: true})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		doc, err := s.Get(ctx, "people", id)
		require.NoError(t, err)
		assert.Equal(t, id, doc.ID)
		assert.WithinDuration(t, time.Now(), doc.CreatedAt, time.Minute)

		var got person
		require.NoError(t, doc.Decode(&got))
		assert.Equal(t, person{Name: "Ana", Team: "red", Active: true}, got)
	})

	t.Run("get missing", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		_, err := s.Get(context.Background(), "people", "nope")
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("insert rejects non objects", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		_, err := s.Insert(context.Background(), "people", []int{1, 2})
		assert.Error(t, err)
	})

	t.Run("list keeps insertion order", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		var ids []string
		for _, n := range []string{"c", "a", "b"} {
			id, err := s.Insert(ctx, "people", person{Name: n})
			require.NoError(t, err)
			ids = append(ids, id)
		}
		_, err := s.Insert(ctx, "other", person{Name: "x"})
		require.NoError(t, err)

		docs, err := s.List(ctx, "people")
		require.NoError(t, err)
		require.Len(t, docs, 3)
		for i, d := range docs {
			assert.Equal(t, ids[i], d.ID)
		}

		empty, err := s.List(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("where matches by equality", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		for _, p := range []person{
			{Name: "a", Team: "red", Active: true},
			{Name: "b", Team: "blue", Active: false},
			{Name: "c", Team: "red", Active: false},
		} {
			_, err := s.Insert(ctx, "people", p)
			require.NoError(t, err)
		}

		red, err := s.Where(ctx, "people", "team", "red")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, names(t, red))

		active, err := s.Where(ctx, "people", "active", true)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, names(t, active))

		none, err := s.Where(ctx, "people", "team", "green")
		require.NoError(t, err)
		assert.Empty(t, none)

		_, err = s.Where(ctx, "people", "team'; drop", "x")
		assert.ErrorIs(t, err, docstore.ErrInvalidField)
	})

	t.Run("update merges top level", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		id, err := s.Insert(ctx, "people", person{Name: "Ana", Team: "red", Active: true, Tags: []string{"x", "y"}})
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, "people", id, map[string]any{"active": false, "tags": []string{"z"}}))

		doc, err := s.Get(ctx, "people", id)
		require.NoError(t, err)

		var got person
		require.NoError(t, doc.Decode(&got))
		assert.Equal(t, person{Name: "Ana", Team: "red", Active: false, Tags: []string{"z"}}, got)

		err = s.Update(ctx, "people", "nope", map[string]any{"active": true})
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("update replaces nested values whole", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		id, err := s.Insert(ctx, "people", map[string]any{
			"name": "Ana",
			"meta": map[string]any{"shirt": "M", "diet": "vegan"},
		})
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, "people", id, map[string]any{"meta": map[string]any{"shirt": "L"}}))

		doc, err := s.Get(ctx, "people", id)
		require.NoError(t, err)

		var got struct {
			Name string            `json:"name"`
			Meta map[string]string `json:"meta"`
		}
		require.NoError(t, doc.Decode(&got))
		assert.Equal(t, "Ana", got.Name)
		assert.Equal(t, map[string]string{"shirt": "L"}, got.Meta)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		ctx := context.Background()

		id, err := s.Insert(ctx, "people", person{Name: "Ana"})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "people", id))

		_, err = s.Get(ctx, "people", id)
		assert.ErrorIs(t, err, docstore.ErrNotFound)

		assert.ErrorIs(t, s.Delete(ctx, "people", id), docstore.ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		assert.NoError(t, s.Ping(context.Background()))
	})
}

func names(t *testing.T, docs []docstore.Document) []string {
	t.Helper()
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		var p person
		require.NoError(t, d.Decode(&p))
		out = append(out, p.Name)
	}
	return out
}
