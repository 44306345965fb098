// Package repo maps the domain records onto docstore collections.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/eventform/internal/docstore"
	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/domain/field"
	"github.com/geocoder89/eventform/internal/observability"
)

// eventDoc is the stored shape. Date stays a string so hand-written documents
// holding a bare YYYY-MM-DD still load, and a missing isActive means active.
type eventDoc struct {
	Name      string         `json:"name"`
	Date      string         `json:"date"`
	Location  string         `json:"location"`
	Template  string         `json:"template,omitempty"`
	Fields    []field.Schema `json:"fields,omitempty"`
	IsActive  *bool          `json:"isActive,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type EventsRepo struct {
	store docstore.Store
	prom  *observability.Prom
}

func NewEventsRepo(store docstore.Store, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{store: store, prom: prom}
}

func (r *EventsRepo) Create(ctx context.Context, e event.Event) (event.Event, error) {
	active := e.IsActive
	doc := eventDoc{
		Name:      e.Name,
		Date:      e.Date.UTC().Format(time.RFC3339),
		Location:  e.Location,
		Template:  e.Template,
		Fields:    e.Fields,
		IsActive:  &active,
		CreatedAt: e.CreatedAt,
	}

	var id string
	err := r.prom.ObserveStore("events.create", func() error {
		var err error
		id, err = r.store.Insert(ctx, docstore.Events, doc)
		return err
	})
	if err != nil {
		return event.Event{}, err
	}

	e.ID = id
	return e, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	var d docstore.Document
	err := r.prom.ObserveStore("events.get", func() error {
		var err error
		d, err = r.store.Get(ctx, docstore.Events, id)
		return err
	})
	if err != nil {
		return event.Event{}, mapNotFound(err, event.ErrNotFound)
	}

	return decodeEvent(d)
}

// List returns every event in retrieval order.
func (r *EventsRepo) List(ctx context.Context) ([]event.Event, error) {
	var docs []docstore.Document
	err := r.prom.ObserveStore("events.list", func() error {
		var err error
		docs, err = r.store.List(ctx, docstore.Events)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]event.Event, 0, len(docs))
	for _, d := range docs {
		e, err := decodeEvent(d)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ListActive filters after decoding since documents without the flag count as active.
func (r *EventsRepo) ListActive(ctx context.Context) ([]event.Event, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]event.Event, 0, len(all))
	for _, e := range all {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *EventsRepo) UpdateFields(ctx context.Context, id string, fields []field.Schema) error {
	if err := field.ValidateList(fields); err != nil {
		return err
	}

	err := r.prom.ObserveStore("events.update_fields", func() error {
		return r.store.Update(ctx, docstore.Events, id, map[string]any{"fields": fields})
	})
	return mapNotFound(err, event.ErrNotFound)
}

func (r *EventsRepo) SetActive(ctx context.Context, id string, active bool) error {
	err := r.prom.ObserveStore("events.set_active", func() error {
		return r.store.Update(ctx, docstore.Events, id, map[string]any{"isActive": active})
	})
	return mapNotFound(err, event.ErrNotFound)
}

// Delete removes the event document only. Its registrations stay behind.
func (r *EventsRepo) Delete(ctx context.Context, id string) error {
	err := r.prom.ObserveStore("events.delete", func() error {
		return r.store.Delete(ctx, docstore.Events, id)
	})
	return mapNotFound(err, event.ErrNotFound)
}

func decodeEvent(d docstore.Document) (event.Event, error) {
	var doc eventDoc
	if err := d.Decode(&doc); err != nil {
		return event.Event{}, err
	}

	e := event.Event{
		ID:        d.ID,
		Name:      doc.Name,
		Location:  doc.Location,
		Template:  doc.Template,
		Fields:    doc.Fields,
		IsActive:  doc.IsActive == nil || *doc.IsActive,
		CreatedAt: doc.CreatedAt,
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = d.CreatedAt
	}

	// an unreadable date is shown as unknown rather than hiding the event
	if t, err := event.ParseDate(doc.Date); err == nil {
		e.Date = t
	}

	return e.WithDefaults(), nil
}

func mapNotFound(err, notFound error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return notFound
	}
	return err
}
