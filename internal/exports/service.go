package exports

import (
	"context"
	"time"

	"github.com/geocoder89/eventform/internal/jobs"
)

type JobQueue interface {
	Enqueue(ctx context.Context, j jobs.Job) error
	Get(ctx context.Context, id string) (jobs.Job, error)
}

// Service is the API side of exports: it checks the event and queues the job.
type Service struct {
	events EventsReader
	queue  JobQueue
	now    func() time.Time
}

func NewService(events EventsReader, queue JobQueue) *Service {
	return &Service{events: events, queue: queue, now: time.Now}
}

func (s *Service) Request(ctx context.Context, eventID, requestID string) (jobs.Job, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return jobs.Job{}, err
	}

	j, err := jobs.NewExportJob(jobs.ExportAttendeesPayload{EventID: eventID, RequestID: requestID}, s.now)
	if err != nil {
		return jobs.Job{}, err
	}

	if err := s.queue.Enqueue(ctx, j); err != nil {
		return jobs.Job{}, err
	}

	return j, nil
}

func (s *Service) Status(ctx context.Context, jobID string) (jobs.Job, error) {
	return s.queue.Get(ctx, jobID)
}
