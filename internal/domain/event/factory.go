package event

import (
	"strings"
	"time"

	"github.com/geocoder89/eventform/internal/domain/field"
)

// NewFromCreateRequest builds an active event carrying the default field set.
// The ID is assigned by the store on insert.
func NewFromCreateRequest(req CreateEventRequest, now time.Time) (Event, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Event{}, ErrNameRequired
	}

	date, err := ParseDate(req.Date)
	if err != nil {
		return Event{}, err
	}

	template := req.Template
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}

	return Event{
		Name:      name,
		Date:      date,
		Location:  strings.TrimSpace(req.Location),
		Template:  template,
		Fields:    field.Defaults(),
		IsActive:  true,
		CreatedAt: now.UTC(),
	}, nil
}
