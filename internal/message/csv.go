package message

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/domain/registration"
)

// ExportCSV writes one row per attendee, columns in schema order under their
// labels. Attributes no longer in the schema follow, named by key in key order.
func ExportCSV(w io.Writer, e event.Event, regs []registration.Registration) error {
	e = e.WithDefaults()
	people := registration.Attendees(regs)
	extra := extraKeys(people, e)

	cw := csv.NewWriter(w)

	header := make([]string, 0, len(e.Fields)+len(extra)+1)
	header = append(header, "#")
	for _, f := range e.Fields {
		header = append(header, f.Label)
	}
	header = append(header, extra...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, p := range people {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(i+1))
		for _, f := range e.Fields {
			row = append(row, FormatValue(p[f.Name]))
		}
		for _, k := range extra {
			row = append(row, FormatValue(p[k]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func extraKeys(people []registration.Person, e event.Event) []string {
	seen := make(map[string]struct{}, len(e.Fields))
	for _, f := range e.Fields {
		seen[f.Name] = struct{}{}
	}

	var keys []string
	for _, p := range people {
		for k := range p {
			if _, ok := seen[k]; ok || registration.IsRecordKey(k) {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	return keys
}
