package event

import (
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/eventform/internal/domain/field"
)

const DefaultTemplate = "🎉 You're invited to \"{eventName}\" on {eventDate} at {location}!\n\nConfirmed attendees:\n{attendeeList}\n\nSee you there!"

type Event struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Date      time.Time      `json:"date"`
	Location  string         `json:"location"`
	Template  string         `json:"template"`
	Fields    []field.Schema `json:"fields"`
	IsActive  bool           `json:"isActive"`
	CreatedAt time.Time      `json:"createdAt"`
}

var (
	ErrNotFound     = errors.New("event not found")
	ErrNameRequired = errors.New("event name is required")
	ErrInvalidDate  = errors.New("event date must be YYYY-MM-DD or RFC 3339")
)

type CreateEventRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Date     string `json:"date" binding:"required"`
	Location string `json:"location" binding:"omitempty,max=200"`
	Template string `json:"template" binding:"omitempty,max=5000"`
}

// pointer so a missing flag is a bind error instead of a silent false
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// ParseDate accepts the bare calendar date the admin form sends as well as a full timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// WithDefaults fills what older documents may be missing.
func (e Event) WithDefaults() Event {
	if len(e.Fields) == 0 {
		e.Fields = field.Defaults()
	}
	if e.Template == "" {
		e.Template = DefaultTemplate
	}
	return e
}
