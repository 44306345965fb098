// Package form turns an event's field schema into the registration form a
// browser renders and checks what comes back.
//
// A Model tracks the group toggle, the group size and one slot of answers per
// attendee. The slot count follows the group size: growing appends empty slots,
// shrinking drops the trailing ones, and slots below the new size keep their
// answers. Sizes outside [2,10] are accepted while editing and only rejected by
// Validate/Submit; the slot count itself never grows past MaxGroupSize.
package form

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/domain/field"
	"github.com/geocoder89/eventform/internal/domain/registration"
)

var (
	ErrNoEvent      = errors.New("an event must be selected")
	ErrUnknownField = errors.New("field is not part of the event form")
	ErrSlotRange    = errors.New("attendee slot out of range")
)

type Model struct {
	event     *event.Event
	isGroup   bool
	groupSize int
	slots     []registration.Person
}

func New() *Model {
	return &Model{
		groupSize: registration.DefaultGroupSize,
		slots:     []registration.Person{{}},
	}
}

// ForEvent is New followed by Select.
func ForEvent(e event.Event) *Model {
	m := New()
	m.Select(e)
	return m
}

// Select binds the model to an event. Entered answers are kept.
func (m *Model) Select(e event.Event) {
	e = e.WithDefaults()
	m.event = &e
}

func (m *Model) Event() (event.Event, bool) {
	if m.event == nil {
		return event.Event{}, false
	}
	return *m.event, true
}

func (m *Model) IsGroup() bool { return m.isGroup }

func (m *Model) GroupSize() int { return m.groupSize }

func (m *Model) SlotCount() int { return len(m.slots) }

// SetGroup flips the group toggle. Turning it on expands to the default size,
// turning it off collapses to a single slot and resets the size.
func (m *Model) SetGroup(on bool) {
	if on == m.isGroup {
		return
	}
	m.isGroup = on
	m.groupSize = registration.DefaultGroupSize

	if on {
		m.resize(m.groupSize)
		return
	}
	m.resize(1)
}

// SetGroupSize changes the size while grouped; ignored for individual registrations.
func (m *Model) SetGroupSize(n int) {
	if !m.isGroup {
		return
	}
	m.groupSize = n
	m.resize(n)
}

func (m *Model) resize(n int) {
	if n < 0 {
		n = 0
	}
	if n > registration.MaxGroupSize {
		n = registration.MaxGroupSize
	}
	if n <= len(m.slots) {
		for i := n; i < len(m.slots); i++ {
			m.slots[i] = nil
		}
		m.slots = m.slots[:n]
		return
	}
	for len(m.slots) < n {
		m.slots = append(m.slots, registration.Person{})
	}
}

// Set records one answer. Blank values clear the answer.
func (m *Model) Set(slot int, name string, value any) error {
	if m.event == nil {
		return ErrNoEvent
	}
	if slot < 0 || slot >= len(m.slots) {
		return ErrSlotRange
	}
	if field.Index(m.event.Fields, name) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	if field.IsBlank(value) {
		delete(m.slots[slot], name)
		return nil
	}
	m.slots[slot][name] = value

	return nil
}

// Slot returns a copy of the answers in slot i.
func (m *Model) Slot(i int) registration.Person {
	if i < 0 || i >= len(m.slots) {
		return nil
	}
	return m.slots[i].Clone()
}

type SlotPlan struct {
	Index  int        `json:"index"`
	Title  string     `json:"title"`
	Inputs []InputDef `json:"inputs"`
}

type InputDef struct {
	Name      string     `json:"name"`
	Label     string     `json:"label"`
	Type      field.Type `json:"type"`
	InputType string     `json:"inputType"`
	Required  bool       `json:"required"`
	Value     any        `json:"value,omitempty"`
}

type Plan struct {
	EventID      string     `json:"eventId"`
	IsGroup      bool       `json:"isGroup"`
	GroupSize    int        `json:"groupSize"`
	MinGroupSize int        `json:"minGroupSize"`
	MaxGroupSize int        `json:"maxGroupSize"`
	Slots        []SlotPlan `json:"slots"`
}

// Plan describes what to render: one block per slot, each exposing the full schema.
func (m *Model) Plan() (Plan, error) {
	if m.event == nil {
		return Plan{}, ErrNoEvent
	}

	p := Plan{
		EventID:      m.event.ID,
		IsGroup:      m.isGroup,
		GroupSize:    m.submittedSize(),
		MinGroupSize: registration.MinGroupSize,
		MaxGroupSize: registration.MaxGroupSize,
		Slots:        make([]SlotPlan, 0, len(m.slots)),
	}

	for i, slot := range m.slots {
		sp := SlotPlan{
			Index:  i,
			Title:  fmt.Sprintf("Person %d", i+1),
			Inputs: make([]InputDef, 0, len(m.event.Fields)),
		}
		for _, f := range m.event.Fields {
			label := f.Label
			if f.Required {
				label += " *"
			}
			sp.Inputs = append(sp.Inputs, InputDef{
				Name:      f.Name,
				Label:     label,
				Type:      f.Type,
				InputType: f.InputType(),
				Required:  f.Required,
				Value:     slot[f.Name],
			})
		}
		p.Slots = append(p.Slots, sp)
	}

	return p, nil
}

func (m *Model) submittedSize() int {
	if !m.isGroup {
		return 1
	}
	return m.groupSize
}

// FieldError is one failed check, Path is a JSON style path such as people[1].age.
type FieldError struct {
	Path    string
	Rule    string
	Message string
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Path+" "+f.Message)
	}
	return "invalid registration: " + strings.Join(parts, "; ")
}

// validate checks the whole form and returns the people in stored form.
func (m *Model) validate() ([]registration.Person, error) {
	if m.event == nil {
		return nil, ErrNoEvent
	}
	if m.isGroup && (m.groupSize < registration.MinGroupSize || m.groupSize > registration.MaxGroupSize) {
		return nil, registration.ErrGroupSize
	}

	var errs []FieldError
	people := make([]registration.Person, 0, len(m.slots))

	for i, slot := range m.slots {
		p := registration.Person{}

		for _, f := range m.event.Fields {
			path := fmt.Sprintf("people[%d].%s", i, f.Name)
			v, ok := slot[f.Name]

			if !ok || field.IsBlank(v) {
				if f.Required {
					errs = append(errs, FieldError{Path: path, Rule: "required", Message: "is required"})
				}
				continue
			}

			norm, err := f.CheckValue(v)
			if err != nil {
				errs = append(errs, FieldError{Path: path, Rule: field.Rule(err), Message: err.Error()})
				continue
			}
			p[f.Name] = norm
		}

		people = append(people, p)
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return people, nil
}

func (m *Model) Validate() error {
	_, err := m.validate()
	return err
}

// Submit validates and produces the registration to persist.
func (m *Model) Submit(now time.Time) (registration.Registration, error) {
	people, err := m.validate()
	if err != nil {
		return registration.Registration{}, err
	}

	return registration.Registration{
		EventID:   m.event.ID,
		IsGroup:   m.isGroup,
		GroupSize: m.submittedSize(),
		People:    people,
		Timestamp: now.UTC(),
	}, nil
}

// Reset returns the model to an empty individual registration for the same event.
func (m *Model) Reset() {
	m.isGroup = false
	m.groupSize = registration.DefaultGroupSize
	m.slots = []registration.Person{{}}
}
