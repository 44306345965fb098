// Package message renders an event's invitation template with its attendee list.
package message

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/domain/registration"
)

const (
	NoRegistrations = "No registrations yet."
	UnknownLocation = "TBD"
	UnknownDate     = "TBD"
	MissingName     = "—"

	DateLayout = "Monday, January 2, 2006"
)

const (
	phEventName    = "{eventName}"
	phEventDate    = "{eventDate}"
	phLocation     = "{location}"
	phAttendeeList = "{attendeeList}"
)

type Composer struct {
	// Location is the zone event dates are shown in. Nil means UTC.
	Location *time.Location
}

var defaultComposer = Composer{}

// Compose renders with UTC dates.
func Compose(e event.Event, regs []registration.Registration) string {
	return defaultComposer.Compose(e, regs)
}

// Compose fills each placeholder once, at its first occurrence. Placeholders missing
// from the template are skipped.
func (c Composer) Compose(e event.Event, regs []registration.Registration) string {
	e = e.WithDefaults()

	out := e.Template
	out = strings.Replace(out, phEventName, e.Name, 1)
	out = strings.Replace(out, phEventDate, c.FormatDate(e.Date), 1)
	out = strings.Replace(out, phLocation, locationOrTBD(e.Location), 1)
	out = strings.Replace(out, phAttendeeList, AttendeeList(e, regs), 1)

	return out
}

// FormatDate prints t as a long date in c.Location; the zero time is an unknown date.
func (c Composer) FormatDate(t time.Time) string {
	if t.IsZero() {
		return UnknownDate
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

func locationOrTBD(s string) string {
	if strings.TrimSpace(s) == "" {
		return UnknownLocation
	}
	return s
}

// AttendeeList is the numbered, newline separated list that replaces {attendeeList}.
func AttendeeList(e event.Event, regs []registration.Registration) string {
	people := registration.Attendees(regs)
	if len(people) == 0 {
		return NoRegistrations
	}

	lines := make([]string, 0, len(people))
	for i, p := range people {
		lines = append(lines, attendeeLine(i, p, e))
	}
	return strings.Join(lines, "\n")
}

func attendeeLine(i int, p registration.Person, e event.Event) string {
	name := p.Name()
	if name == "" {
		name = MissingName
	}

	line := strconv.Itoa(i+1) + ". " + name

	keys := detailKeys(p, e)
	if len(keys) == 0 {
		return line
	}

	details := make([]string, 0, len(keys))
	for _, k := range keys {
		details = append(details, k+": "+FormatValue(p[k]))
	}
	return line + " (" + strings.Join(details, ", ") + ")"
}

// detailKeys lists the attendee's attributes in schema order, then any leftovers sorted.
func detailKeys(p registration.Person, e event.Event) []string {
	skip := func(k string) bool {
		return k == "name" || registration.IsRecordKey(k)
	}

	keys := make([]string, 0, len(p))
	seen := make(map[string]struct{}, len(p))

	for _, f := range e.Fields {
		if _, ok := p[f.Name]; !ok || skip(f.Name) {
			continue
		}
		keys = append(keys, f.Name)
		seen[f.Name] = struct{}{}
	}

	var rest []string
	for k := range p {
		if _, ok := seen[k]; ok || skip(k) {
			continue
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)

	return append(keys, rest...)
}

// FormatValue prints a stored attribute the way a person would type it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
