package form

import (
	"fmt"

	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/domain/field"
	"github.com/geocoder89/eventform/internal/domain/registration"
)

// FromSubmission replays a submitted payload through a fresh model. The group
// size is checked before any slot is allocated. Keys that are not part of the
// event's schema are dropped.
func FromSubmission(e event.Event, req registration.CreateRegistrationRequest) (*Model, error) {
	m := ForEvent(e)

	if req.IsGroup {
		if req.GroupSize < registration.MinGroupSize || req.GroupSize > registration.MaxGroupSize {
			return nil, registration.ErrGroupSize
		}
		m.SetGroup(true)
		m.SetGroupSize(req.GroupSize)
	}

	if len(req.People) != m.SlotCount() {
		return nil, &ValidationError{Fields: []FieldError{{
			Path:    "people",
			Rule:    "len",
			Message: fmt.Sprintf("must contain exactly %d attendee(s)", m.SlotCount()),
		}}}
	}

	fields := m.event.Fields

	for i, answers := range req.People {
		for name, v := range answers {
			if field.Index(fields, name) < 0 {
				continue
			}
			if err := m.Set(i, name, v); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}
