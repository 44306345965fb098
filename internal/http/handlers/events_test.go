package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/geocoder89/eventform/internal/cache"
	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/domain/field"
	"github.com/geocoder89/eventform/internal/form"
	"github.com/geocoder89/eventform/internal/http/handlers"
	"github.com/geocoder89/eventform/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeEvent(id string) event.Event {
	return event.Event{
		ID:       id,
		Name:     "Launch",
		Date:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Location: "HQ",
		Template: event.DefaultTemplate,
		Fields: []field.Schema{
			{Name: "name", Label: "Full Name", Required: true, Type: field.TypeText},
			{Name: "age", Label: "Age", Required: true, Type: field.TypeNumber},
			{Name: "email", Label: "Email", Required: false, Type: field.TypeEmail},
		},
		IsActive: true,
	}
}

func newEventsRouter(repo *fakeEventsRepo) *gin.Engine {
	h := handlers.NewEventsHandler(repo, cache.New(time.Minute), observability.NewTestProm())

	r := gin.New()
	r.GET("/events", h.ListActive)
	r.GET("/events/:id", h.GetActive)
	r.GET("/events/:id/form", h.FormPlan)
	return r
}

func TestListActiveEvents(t *testing.T) {
	id := newUUID()
	repo := &fakeEventsRepo{
		listActiveFn: func(ctx context.Context) ([]event.Event, error) {
			return []event.Event{activeEvent(id)}, nil
		},
	}
	r := newEventsRouter(repo)

	w := doRequest(r, http.MethodGet, "/events", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var body struct {
		Items []event.Event `json:"items"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, id, body.Items[0].ID)

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	// second request is served from the cache and honours If-None-Match
	w = doRequest(r, http.MethodGet, "/events", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Equal(t, 1, repo.listActiveCalls)
}

func TestListActiveEvents_StoreError(t *testing.T) {
	repo := &fakeEventsRepo{
		listActiveFn: func(ctx context.Context) ([]event.Event, error) {
			return nil, errors.New("db down")
		},
	}

	w := doRequest(newEventsRouter(repo), http.MethodGet, "/events", "")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if code := decodeError(t, w).Error.Code; code != "internal_error" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestGetActiveEvent(t *testing.T) {
	id := newUUID()

	tests := []struct {
		name           string
		id             string
		getFn          func(ctx context.Context, id string) (event.Event, error)
		wantStatusCode int
		wantCode       string
	}{
		{
			name:           "success",
			id:             id,
			getFn:          func(ctx context.Context, id string) (event.Event, error) { return activeEvent(id), nil },
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "invalid id",
			id:             "not-a-uuid",
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "invalid_id",
		},
		{
			name:           "not found",
			id:             id,
			getFn:          func(ctx context.Context, id string) (event.Event, error) { return event.Event{}, event.ErrNotFound },
			wantStatusCode: http.StatusNotFound,
			wantCode:       "not_found",
		},
		{
			name: "inactive is hidden",
			id:   id,
			getFn: func(ctx context.Context, id string) (event.Event, error) {
				e := activeEvent(id)
				e.IsActive = false
				return e, nil
			},
			wantStatusCode: http.StatusNotFound,
			wantCode:       "not_found",
		},
		{
			name:           "store error",
			id:             id,
			getFn:          func(ctx context.Context, id string) (event.Event, error) { return event.Event{}, errors.New("boom") },
			wantStatusCode: http.StatusInternalServerError,
			wantCode:       "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEventsRouter(&fakeEventsRepo{getFn: tt.getFn})

			w := doRequest(r, http.MethodGet, "/events/"+tt.id, "")

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Error.Code)
			}
		})
	}
}

func TestFormPlan(t *testing.T) {
	id := newUUID()
	repo := &fakeEventsRepo{
		getFn: func(ctx context.Context, id string) (event.Event, error) { return activeEvent(id), nil },
	}
	r := newEventsRouter(repo)

	tests := []struct {
		name           string
		query          string
		wantStatusCode int
		wantSlots      int
		wantGroupSize  int
	}{
		{name: "individual", query: "", wantStatusCode: http.StatusOK, wantSlots: 1, wantGroupSize: 1},
		{name: "group default size", query: "?group=true", wantStatusCode: http.StatusOK, wantSlots: 2, wantGroupSize: 2},
		{name: "group of four", query: "?group=true&size=4", wantStatusCode: http.StatusOK, wantSlots: 4, wantGroupSize: 4},
		{name: "size ignored when individual", query: "?size=4", wantStatusCode: http.StatusOK, wantSlots: 1, wantGroupSize: 1},
		{name: "size too large", query: "?group=true&size=12", wantStatusCode: http.StatusBadRequest},
		{name: "size far too large", query: "?group=true&size=2000000000", wantStatusCode: http.StatusBadRequest},
		{name: "size negative", query: "?group=true&size=-3", wantStatusCode: http.StatusBadRequest},
		{name: "size not a number", query: "?group=true&size=abc", wantStatusCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodGet, "/events/"+id+"/form"+tt.query, "")

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
			if tt.wantStatusCode != http.StatusOK {
				return
			}

			var plan form.Plan
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
			assert.Len(t, plan.Slots, tt.wantSlots)
			assert.Equal(t, tt.wantGroupSize, plan.GroupSize)
			assert.Equal(t, "Full Name *", plan.Slots[0].Inputs[0].Label)
			assert.Equal(t, "email", plan.Slots[0].Inputs[2].InputType)
		})
	}
}

func TestFormPlan_GroupSizeErrorNamesField(t *testing.T) {
	id := newUUID()
	repo := &fakeEventsRepo{
		getFn: func(ctx context.Context, id string) (event.Event, error) { return activeEvent(id), nil },
	}

	w := doRequest(newEventsRouter(repo), http.MethodGet, "/events/"+id+"/form?group=1&size=1", "")

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	require.Len(t, resp.Error.Details.Fields, 1)
	assert.Equal(t, "groupSize", resp.Error.Details.Fields[0].Field)
	assert.Equal(t, "2-10", resp.Error.Details.Fields[0].Param)
}
