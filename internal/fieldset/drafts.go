package fieldset

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/domain/field"
)

type EventsStore interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
	UpdateFields(ctx context.Context, id string, fields []field.Schema) error
}

// Drafts keeps the unsaved field list of every event being edited, keyed by event id.
type Drafts struct {
	mu     sync.Mutex
	store  EventsStore
	drafts map[string]Editor
	now    func() time.Time
}

func NewDrafts(store EventsStore) *Drafts {
	return &Drafts{
		store:  store,
		drafts: make(map[string]Editor),
		now:    time.Now,
	}
}

// Get returns the draft for eventID, loading it from the stored event on first use.
func (d *Drafts) Get(ctx context.Context, eventID string) (Editor, error) {
	d.mu.Lock()
	ed, ok := d.drafts[eventID]
	d.mu.Unlock()

	if ok {
		return ed, nil
	}

	loaded, err := d.load(ctx, eventID)
	if err != nil {
		return Editor{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// someone may have started editing while we were loading
	if ed, ok := d.drafts[eventID]; ok {
		return ed, nil
	}
	d.drafts[eventID] = loaded

	return loaded, nil
}

// Reset throws away unsaved edits and reloads the stored list.
func (d *Drafts) Reset(ctx context.Context, eventID string) (Editor, error) {
	loaded, err := d.load(ctx, eventID)
	if err != nil {
		return Editor{}, err
	}

	d.mu.Lock()
	d.drafts[eventID] = loaded
	d.mu.Unlock()

	return loaded, nil
}

func (d *Drafts) Forget(eventID string) {
	d.mu.Lock()
	delete(d.drafts, eventID)
	d.mu.Unlock()
}

func (d *Drafts) Add(ctx context.Context, eventID string) (Editor, error) {
	return d.apply(ctx, eventID, func(ed Editor) (Editor, error) {
		return ed.Add(d.now()), nil
	})
}

func (d *Drafts) Update(ctx context.Context, eventID string, i int, s field.Schema) (Editor, error) {
	return d.apply(ctx, eventID, func(ed Editor) (Editor, error) {
		return ed.Update(i, s)
	})
}

func (d *Drafts) Delete(ctx context.Context, eventID string, i int) (Editor, error) {
	return d.apply(ctx, eventID, func(ed Editor) (Editor, error) {
		return ed.Delete(i)
	})
}

// Save writes the draft as the event's field list in a single update.
func (d *Drafts) Save(ctx context.Context, eventID string) (Editor, error) {
	ed, err := d.Get(ctx, eventID)
	if err != nil {
		return Editor{}, err
	}

	fields := ed.Fields()

	if err := field.ValidateList(fields); err != nil {
		return ed, err
	}

	if err := d.store.UpdateFields(ctx, eventID, fields); err != nil {
		return ed, err
	}

	return ed, nil
}

func (d *Drafts) apply(ctx context.Context, eventID string, edit func(Editor) (Editor, error)) (Editor, error) {
	// make sure a draft exists before taking the lock for the edit
	if _, err := d.Get(ctx, eventID); err != nil {
		return Editor{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cur, ok := d.drafts[eventID]
	if !ok {
		// forgotten between Get and here, the event was deleted
		return Editor{}, event.ErrNotFound
	}

	next, err := edit(cur)
	if err != nil {
		return cur, err
	}

	d.drafts[eventID] = next

	return next, nil
}

func (d *Drafts) load(ctx context.Context, eventID string) (Editor, error) {
	e, err := d.store.GetByID(ctx, eventID)
	if err != nil {
		return Editor{}, err
	}
	e = e.WithDefaults()

	return NewEditor(eventID, e.Fields), nil
}
