// Package exports produces attendee exports: the composed event message plus a
// CSV of every attendee, optionally uploaded to object storage.
package exports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/domain/registration"
	"github.com/geocoder89/eventform/internal/jobs"
	"github.com/geocoder89/eventform/internal/message"
	"github.com/geocoder89/eventform/internal/storage"
)

type EventsReader interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
}

type RegistrationsReader interface {
	ListByEvent(ctx context.Context, eventID string) ([]registration.Registration, error)
}

// ObjectStore is satisfied by *storage.S3.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Exporter runs export_attendees jobs for the worker.
type Exporter struct {
	events   EventsReader
	regs     RegistrationsReader
	composer message.Composer
	objects  ObjectStore
}

// NewExporter builds an exporter; objects may be nil, in which case the CSV
// only lives in the job result.
func NewExporter(events EventsReader, regs RegistrationsReader, composer message.Composer, objects ObjectStore) *Exporter {
	return &Exporter{events: events, regs: regs, composer: composer, objects: objects}
}

func (x *Exporter) Handle(ctx context.Context, j jobs.Job) (json.RawMessage, error) {
	decoded, err := jobs.DecodePayload(j)
	if err != nil {
		return nil, jobs.Permanent(err)
	}
	p, ok := decoded.(jobs.ExportAttendeesPayload)
	if !ok {
		return nil, jobs.Permanent(jobs.ErrPayloadTypeMismatch)
	}

	res, err := x.Export(ctx, p.EventID, j.ID)
	if err != nil {
		return nil, err
	}

	return json.Marshal(res)
}

// Export builds the result for one event. A missing event is permanent.
func (x *Exporter) Export(ctx context.Context, eventID, jobID string) (jobs.ExportResult, error) {
	e, err := x.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			return jobs.ExportResult{}, jobs.Permanent(err)
		}
		return jobs.ExportResult{}, fmt.Errorf("load event: %w", err)
	}

	regs, err := x.regs.ListByEvent(ctx, eventID)
	if err != nil {
		return jobs.ExportResult{}, fmt.Errorf("load registrations: %w", err)
	}

	var buf bytes.Buffer
	if err := message.ExportCSV(&buf, e, regs); err != nil {
		return jobs.ExportResult{}, fmt.Errorf("write csv: %w", err)
	}

	res := jobs.ExportResult{
		EventName:     e.Name,
		Registrations: len(regs),
		Attendees:     len(registration.Attendees(regs)),
		Message:       x.composer.Compose(e, regs),
		CSV:           buf.String(),
	}

	if x.objects != nil && jobID != "" {
		key := storage.ExportKey(e.ID, jobID)

		putCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		url, err := x.objects.Put(putCtx, key, "text/csv; charset=utf-8", buf.Bytes())
		if err != nil {
			return jobs.ExportResult{}, err
		}
		res.ObjectKey = key
		res.DownloadURL = url
	}

	return res, nil
}
