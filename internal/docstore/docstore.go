// Package docstore is the narrow document database contract the app persists
// through: named collections of JSON documents with list, equality filter, get,
// insert, top-level merge update and delete. Retrieval order is insertion order.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

const (
	Events        = "events"
	Registrations = "registrations"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidField = errors.New("invalid document field name")
)

// Document is a stored JSON object. The id lives beside the data, never inside it.
type Document struct {
	ID        string
	Data      json.RawMessage
	CreatedAt time.Time
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

type Store interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Where(ctx context.Context, collection, field string, value any) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	// Insert stores data (anything that marshals to a JSON object) and returns the new id.
	Insert(ctx context.Context, collection string, data any) (string, error)
	// Update merges patch into the top level of the document, last write wins.
	// A patch value replaces the stored value whole, nested objects included.
	Update(ctx context.Context, collection, id string, patch map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
	Close() error
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CheckField guards field names that drivers splice into query paths.
func CheckField(field string) error {
	if !fieldName.MatchString(field) {
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	return nil
}

// MarshalObject encodes data and makes sure the result is a JSON object.
func MarshalObject(data any) (json.RawMessage, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if len(b) == 0 || b[0] != '{' {
		return nil, fmt.Errorf("encode document: %T is not a JSON object", data)
	}
	return b, nil
}

// ToMap round trips data through JSON so drivers can work on plain maps.
func ToMap(data any) (map[string]any, error) {
	b, err := MarshalObject(data)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return m, nil
}
