package jobs

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobRetrying   JobStatus = "retrying"
	JobSucceeded  JobStatus = "succeeded"
	JobFailed     JobStatus = "failed"
)

func (s JobStatus) IsValid() bool {
	switch s {
	case JobPending, JobProcessing, JobRetrying, JobSucceeded, JobFailed:
		return true
	default:
		return false
	}
}

// IsTerminal is true once the worker will never touch the job again.
func (s JobStatus) IsTerminal() bool {
	return s == JobSucceeded || s == JobFailed
}
