// Package fieldset edits the registration field list of a single event.
//
// Editor values are immutable snapshots: every edit returns a new Editor and
// leaves the receiver untouched, so a draft can be swapped atomically by the
// Drafts registry.
package fieldset

import (
	"errors"
	"strconv"
	"time"

	"github.com/geocoder89/eventform/internal/domain/field"
)

const (
	customFieldLabel  = "Custom Field"
	customFieldPrefix = "field_"
)

var (
	ErrIndexOutOfRange = errors.New("field index out of range")
	ErrLastField       = errors.New("an event must keep at least one field")
)

type Editor struct {
	eventID string
	fields  []field.Schema
}

func NewEditor(eventID string, fields []field.Schema) Editor {
	return Editor{eventID: eventID, fields: field.Clone(fields)}
}

func (e Editor) EventID() string { return e.eventID }

func (e Editor) Len() int { return len(e.fields) }

// Fields returns a copy of the current list.
func (e Editor) Fields() []field.Schema {
	out := field.Clone(e.fields)
	if out == nil {
		out = []field.Schema{}
	}
	return out
}

// Add appends an optional text field named after the current time.
func (e Editor) Add(now time.Time) Editor {
	base := customFieldPrefix + strconv.FormatInt(now.UnixMilli(), 10)
	name := base

	for n := 2; field.Index(e.fields, name) >= 0; n++ {
		name = base + "_" + strconv.Itoa(n)
	}

	next := make([]field.Schema, len(e.fields), len(e.fields)+1)
	copy(next, e.fields)
	next = append(next, field.Schema{
		Name:     name,
		Label:    customFieldLabel,
		Required: false,
		Type:     field.TypeText,
	})

	return Editor{eventID: e.eventID, fields: next}
}

// Update replaces the field at i. The new name must not collide with any other field.
func (e Editor) Update(i int, s field.Schema) (Editor, error) {
	if i < 0 || i >= len(e.fields) {
		return e, ErrIndexOutOfRange
	}
	if err := s.Validate(); err != nil {
		return e, err
	}
	if j := field.Index(e.fields, s.Name); j >= 0 && j != i {
		return e, field.ErrDuplicateName
	}

	next := field.Clone(e.fields)
	next[i] = s

	return Editor{eventID: e.eventID, fields: next}, nil
}

func (e Editor) Delete(i int) (Editor, error) {
	if i < 0 || i >= len(e.fields) {
		return e, ErrIndexOutOfRange
	}
	if len(e.fields) <= 1 {
		return e, ErrLastField
	}

	next := make([]field.Schema, 0, len(e.fields)-1)
	next = append(next, e.fields[:i]...)
	next = append(next, e.fields[i+1:]...)

	return Editor{eventID: e.eventID, fields: next}, nil
}
