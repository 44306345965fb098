package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxAttempts = 3

// Job is one unit of asynchronous work. The whole struct is the status record
// clients poll, so it carries its own result and last error.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      JobStatus       `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	RunAt       time.Time       `json:"runAt"`
	LastError   *string         `json:"lastError,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// NewJob creates a pending job with defaults.
func NewJob(t JobType, payloadJSON []byte, now time.Time) (Job, error) {
	if !t.IsValid() {
		return Job{}, ErrInvalidJobType
	}

	now = now.UTC()

	return Job{
		ID:          uuid.NewString(),
		Type:        t,
		Payload:     payloadJSON,
		Status:      JobPending,
		MaxAttempts: DefaultMaxAttempts,
		RunAt:       now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (j *Job) Start(now time.Time) {
	j.Status = JobProcessing
	j.Attempts++
	j.UpdatedAt = now.UTC()
}

func (j *Job) Succeed(result json.RawMessage, now time.Time) {
	j.Status = JobSucceeded
	j.Result = result
	j.LastError = nil
	j.UpdatedAt = now.UTC()
}

// Fail records err and reports whether the job should run again at RunAt.
func (j *Job) Fail(err error, now time.Time, backoff time.Duration, permanent bool) bool {
	msg := err.Error()
	j.LastError = &msg
	j.UpdatedAt = now.UTC()

	if permanent || j.Attempts >= j.MaxAttempts {
		j.Status = JobFailed
		return false
	}

	j.Status = JobRetrying
	j.RunAt = now.UTC().Add(backoff)
	return true
}
