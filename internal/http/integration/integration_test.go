package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/eventform/internal/cache"
	"github.com/geocoder89/eventform/internal/config"
	"github.com/geocoder89/eventform/internal/docstore/memory"
	"github.com/geocoder89/eventform/internal/exports"
	"github.com/geocoder89/eventform/internal/fieldset"
	apphttp "github.com/geocoder89/eventform/internal/http"
	"github.com/geocoder89/eventform/internal/http/handlers"
	"github.com/geocoder89/eventform/internal/jobs"
	"github.com/geocoder89/eventform/internal/message"
	"github.com/geocoder89/eventform/internal/observability"
	"github.com/geocoder89/eventform/internal/queue/worker"
	"github.com/geocoder89/eventform/internal/repo"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memQueue stands in for the redis queue in both the API and the worker.
type memQueue struct {
	mu    sync.Mutex
	ready []string
	jobs  map[string]jobs.Job
}

func newMemQueue() *memQueue { return &memQueue{jobs: map[string]jobs.Job{}} }

func (q *memQueue) Enqueue(_ context.Context, j jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[j.ID] = j
	q.ready = append(q.ready, j.ID)
	return nil
}

func (q *memQueue) Schedule(ctx context.Context, j jobs.Job) error { return q.Enqueue(ctx, j) }

func (q *memQueue) PromoteDue(context.Context, time.Time) (int, error) { return 0, nil }

func (q *memQueue) Save(_ context.Context, j jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[j.ID] = j
	return nil
}

func (q *memQueue) Get(_ context.Context, id string) (jobs.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return jobs.Job{}, jobs.ErrJobNotFound
	}
	return j, nil
}

func (q *memQueue) Dequeue(_ context.Context, _ time.Duration) (jobs.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ready) == 0 {
		return jobs.Job{}, jobs.ErrNoJob
	}
	id := q.ready[0]
	q.ready = q.ready[1:]
	return q.jobs[id], nil
}

type app struct {
	router *gin.Engine
	worker *worker.Worker
}

func setupApp(t *testing.T) app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Env:                "test",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		EventsCacheTTL:     time.Minute,
		RegisterRateLimit:  100,
		MessageTimezone:    "UTC",
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)
	store := memory.New()

	events := repo.NewEventsRepo(store, prom)
	regs := repo.NewRegistrationsRepo(store, prom)
	queue := newMemQueue()

	router := apphttp.NewRouter(apphttp.Deps{
		Config:        cfg,
		Events:        events,
		Registrations: regs,
		Drafts:        fieldset.NewDrafts(events),
		Exports:       exports.NewService(events, queue),
		Cache:         cache.New(cfg.EventsCacheTTL),
		Prom:          prom,
		Gatherer:      reg,
		Ready:         map[string]handlers.Pinger{"store": store},
	})

	exporter := exports.NewExporter(events, regs, message.Composer{}, nil)
	w := worker.New(worker.Config{PollInterval: 10 * time.Millisecond, WorkerID: "it"}, queue, exporter, prom)

	return app{router: router, worker: w}
}

func (a app) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type eventBody struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
	Fields   []struct {
		Name string `json:"name"`
	} `json:"fields"`
}

func TestRegistrationFlow(t *testing.T) {
	a := setupApp(t)

	// admin creates an event with the default fields
	w := a.do(t, http.MethodPost, "/admin/events", map[string]any{
		"name": "Launch", "date": "2025-03-01", "location": "HQ",
		"template": "{eventName} on {eventDate} at {location}:\n{attendeeList}",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ev := decode[eventBody](t, w)
	require.Len(t, ev.Fields, 5)

	// admin trims the form down to name + age
	base := "/admin/events/" + ev.ID + "/fields"
	for i := 0; i < 3; i++ {
		w = a.do(t, http.MethodDelete, base+"/2", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = a.do(t, http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the public list sees the event with the saved schema
	w = a.do(t, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Items []eventBody `json:"items"`
	}](t, w)
	require.Len(t, list.Items, 1)
	assert.Len(t, list.Items[0].Fields, 2)

	// an invalid group registration is rejected and nothing is stored
	w = a.do(t, http.MethodPost, "/events/"+ev.ID+"/registrations", map[string]any{
		"isGroup": true, "groupSize": 12,
		"people": []map[string]any{{"name": "Ana", "age": 30}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/events/"+ev.ID+"/registrations", map[string]any{
		"isGroup": false,
		"people":  []map[string]any{{"name": "Ana", "age": "30"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/events/"+ev.ID+"/registrations", map[string]any{
		"isGroup": true, "groupSize": 2,
		"people": []map[string]any{{"name": "Bo", "age": 41}, {"name": "Cy", "age": 9}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// admin list carries the counts
	w = a.do(t, http.MethodGet, "/admin/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[struct {
		Items []struct {
			Registrations int `json:"registrations"`
			Attendees     int `json:"attendees"`
		} `json:"items"`
	}](t, w)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, 2, summary.Items[0].Registrations)
	assert.Equal(t, 3, summary.Items[0].Attendees)

	// the composed message
	w = a.do(t, http.MethodGet, "/admin/events/"+ev.ID+"/message", nil)
	require.Equal(t, http.StatusOK, w.Code)
	msg := decode[struct {
		Message string `json:"message"`
	}](t, w)
	assert.Equal(t, "Launch on Saturday, March 1, 2025 at HQ:\n1. Ana (age: 30)\n2. Bo (age: 41)\n3. Cy (age: 9)", msg.Message)

	// closing the event hides it from the public surface
	w = a.do(t, http.MethodPatch, "/admin/events/"+ev.ID, map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodGet, "/events", nil)
	list = decode[struct {
		Items []eventBody `json:"items"`
	}](t, w)
	assert.Empty(t, list.Items)

	w = a.do(t, http.MethodPost, "/events/"+ev.ID+"/registrations", map[string]any{
		"people": []map[string]any{{"name": "Late", "age": 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// deleting the event leaves its registrations behind
	w = a.do(t, http.MethodDelete, "/admin/events/"+ev.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(t, http.MethodGet, "/admin/events/"+ev.ID+"/registrations", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportPipeline(t *testing.T) {
	a := setupApp(t)

	w := a.do(t, http.MethodPost, "/admin/events", map[string]any{"name": "Launch", "date": "2025-03-01"})
	require.Equal(t, http.StatusCreated, w.Code)
	ev := decode[eventBody](t, w)

	person := map[string]any{"name": "Ana", "age": 30, "mobile": "555", "location": "Lagos", "occupation": "Dev"}
	w = a.do(t, http.MethodPost, "/events/"+ev.ID+"/registrations", map[string]any{
		"people": []map[string]any{person},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/admin/events/"+ev.ID+"/exports", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	accepted := decode[struct {
		JobID string `json:"jobId"`
	}](t, w)

	took, err := a.worker.ProcessOne(context.Background())
	require.NoError(t, err)
	require.True(t, took)

	w = a.do(t, http.MethodGet, "/admin/exports/"+accepted.JobID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	j := decode[jobs.Job](t, w)
	require.Equal(t, jobs.JobSucceeded, j.Status, w.Body.String())

	var res jobs.ExportResult
	require.NoError(t, json.Unmarshal(j.Result, &res))
	assert.Equal(t, 1, res.Attendees)
	assert.Contains(t, res.Message, "1. Ana (age: 30, mobile: 555, location: Lagos, occupation: Dev)")
	assert.Contains(t, res.CSV, "Ana")
}

func TestHealthAndMetrics(t *testing.T) {
	a := setupApp(t)

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/readyz", nil).Code)

	a.do(t, http.MethodGet, "/events", nil)

	w := a.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "eventform_http_requests_total")
}
