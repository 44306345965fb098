package registration

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	MinGroupSize     = 2
	MaxGroupSize     = 10
	DefaultGroupSize = 2
)

// Person is one attendee's answers keyed by field name.
type Person map[string]any

type Registration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	IsGroup   bool      `json:"isGroup"`
	GroupSize int       `json:"groupSize"`
	People    []Person  `json:"people"`
	Timestamp time.Time `json:"timestamp"`
}

var (
	ErrNotFound  = errors.New("registration not found")
	ErrGroupSize = fmt.Errorf("group size must be between %d and %d", MinGroupSize, MaxGroupSize)
)

// CreateRegistrationRequest is the public form payload. EventID comes from the URL.
type CreateRegistrationRequest struct {
	EventID   string           `json:"-"`
	IsGroup   bool             `json:"isGroup"`
	GroupSize int              `json:"groupSize"`
	People    []map[string]any `json:"people" binding:"required"`
}

// keys that belong to the registration itself and never to a person
var recordKeys = map[string]struct{}{
	"eventId":   {},
	"isGroup":   {},
	"groupSize": {},
	"timestamp": {},
}

func IsRecordKey(k string) bool {
	_, ok := recordKeys[k]
	return ok
}

// Name returns the attendee's display name, empty when absent.
func (p Person) Name() string {
	v, ok := p["name"]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return strings.TrimSpace(s)
}

func (p Person) Clone() Person {
	out := make(Person, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Attendees flattens people across registrations, keeping retrieval order.
func Attendees(regs []Registration) []Person {
	var out []Person
	for _, r := range regs {
		out = append(out, r.People...)
	}
	return out
}
