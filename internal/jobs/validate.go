package jobs

import (
	"strings"
	"time"
)

type nowFunc func() time.Time

// ValidatePayload performs minimal validation on decoded payloads.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	switch t {
	case JobExportAttendees:
		var p ExportAttendeesPayload
		switch v := payload.(type) {
		case ExportAttendeesPayload:
			p = v
		case *ExportAttendeesPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if strings.TrimSpace(p.EventID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
