package jobs

type JobType string

const (
	// JobExportAttendees renders an event's composed message and attendee CSV.
	JobExportAttendees JobType = "export_attendees"
)

func (t JobType) IsValid() bool {
	switch t {
	case JobExportAttendees:
		return true
	default:
		return false
	}
}
