package jobs

import (
	"encoding/json"
	"fmt"
)

func EncodePayload(t JobType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case JobExportAttendees:
		_, ok := payload.(ExportAttendeesPayload)

		if !ok {
			_, ok2 := payload.(*ExportAttendeesPayload)

			if !ok2 {
				return nil, ErrPayloadTypeMismatch
			}
		}
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals job.Payload into the correct typed payload struct.
func DecodePayload(j Job) (any, error) {
	if !j.Type.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch j.Type {
	case JobExportAttendees:
		var p ExportAttendeesPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}

// NewExportJob validates and encodes the payload in one step.
func NewExportJob(p ExportAttendeesPayload, now nowFunc) (Job, error) {
	if err := ValidatePayload(JobExportAttendees, p); err != nil {
		return Job{}, err
	}

	b, err := EncodePayload(JobExportAttendees, p)
	if err != nil {
		return Job{}, err
	}

	return NewJob(JobExportAttendees, b, now())
}
