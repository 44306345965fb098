package repo

import (
	"context"
	"time"

	"github.com/geocoder89/eventform/internal/docstore"
	"github.com/geocoder89/eventform/internal/domain/registration"
	"github.com/geocoder89/eventform/internal/observability"
)

type registrationDoc struct {
	EventID   string                `json:"eventId"`
	IsGroup   bool                  `json:"isGroup"`
	GroupSize int                   `json:"groupSize"`
	People    []registration.Person `json:"people"`
	Timestamp time.Time             `json:"timestamp"`
}

type RegistrationsRepo struct {
	store docstore.Store
	prom  *observability.Prom
}

func NewRegistrationsRepo(store docstore.Store, prom *observability.Prom) *RegistrationsRepo {
	return &RegistrationsRepo{store: store, prom: prom}
}

// Create inserts once. There is no retry and no duplicate guard.
func (r *RegistrationsRepo) Create(ctx context.Context, reg registration.Registration) (registration.Registration, error) {
	doc := registrationDoc{
		EventID:   reg.EventID,
		IsGroup:   reg.IsGroup,
		GroupSize: reg.GroupSize,
		People:    reg.People,
		Timestamp: reg.Timestamp,
	}

	var id string
	err := r.prom.ObserveStore("registrations.create", func() error {
		var err error
		id, err = r.store.Insert(ctx, docstore.Registrations, doc)
		return err
	})
	if err != nil {
		return registration.Registration{}, err
	}

	reg.ID = id
	return reg, nil
}

// ListByEvent returns the event's registrations in retrieval order.
func (r *RegistrationsRepo) ListByEvent(ctx context.Context, eventID string) ([]registration.Registration, error) {
	var docs []docstore.Document
	err := r.prom.ObserveStore("registrations.list_by_event", func() error {
		var err error
		docs, err = r.store.Where(ctx, docstore.Registrations, "eventId", eventID)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]registration.Registration, 0, len(docs))
	for _, d := range docs {
		var doc registrationDoc
		if err := d.Decode(&doc); err != nil {
			return nil, err
		}

		out = append(out, registration.Registration{
			ID:        d.ID,
			EventID:   doc.EventID,
			IsGroup:   doc.IsGroup,
			GroupSize: doc.GroupSize,
			People:    doc.People,
			Timestamp: doc.Timestamp,
		})
	}
	return out, nil
}

// CountByEvent counts attendees and registrations for the admin list.
func (r *RegistrationsRepo) CountByEvent(ctx context.Context, eventID string) (registrations, attendees int, err error) {
	regs, err := r.ListByEvent(ctx, eventID)
	if err != nil {
		return 0, 0, err
	}
	return len(regs), len(registration.Attendees(regs)), nil
}
