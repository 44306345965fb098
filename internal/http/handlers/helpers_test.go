package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/domain/registration"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

func newUUID() string {
	return uuid.NewString()
}

// fakeEventsRepo satisfies every events interface the handlers declare.
type fakeEventsRepo struct {
	createFn     func(ctx context.Context, e event.Event) (event.Event, error)
	getFn        func(ctx context.Context, id string) (event.Event, error)
	listFn       func(ctx context.Context) ([]event.Event, error)
	listActiveFn func(ctx context.Context) ([]event.Event, error)
	setActiveFn  func(ctx context.Context, id string, active bool) error
	deleteFn     func(ctx context.Context, id string) error

	listActiveCalls int
}

func (f *fakeEventsRepo) Create(ctx context.Context, e event.Event) (event.Event, error) {
	if f.createFn != nil {
		return f.createFn(ctx, e)
	}
	return e, nil
}

func (f *fakeEventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return event.Event{}, event.ErrNotFound
}

func (f *fakeEventsRepo) List(ctx context.Context) ([]event.Event, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeEventsRepo) ListActive(ctx context.Context) ([]event.Event, error) {
	f.listActiveCalls++
	if f.listActiveFn != nil {
		return f.listActiveFn(ctx)
	}
	return nil, nil
}

func (f *fakeEventsRepo) SetActive(ctx context.Context, id string, active bool) error {
	if f.setActiveFn != nil {
		return f.setActiveFn(ctx, id, active)
	}
	return nil
}

func (f *fakeEventsRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

type fakeRegistrationsRepo struct {
	createFn      func(ctx context.Context, reg registration.Registration) (registration.Registration, error)
	listByEventFn func(ctx context.Context, eventID string) ([]registration.Registration, error)
	countFn       func(ctx context.Context, eventID string) (int, int, error)

	createCalls int
}

func (f *fakeRegistrationsRepo) Create(ctx context.Context, reg registration.Registration) (registration.Registration, error) {
	f.createCalls++
	if f.createFn != nil {
		return f.createFn(ctx, reg)
	}
	reg.ID = newUUID()
	return reg, nil
}

func (f *fakeRegistrationsRepo) ListByEvent(ctx context.Context, eventID string) ([]registration.Registration, error) {
	if f.listByEventFn != nil {
		return f.listByEventFn(ctx, eventID)
	}
	return nil, nil
}

func (f *fakeRegistrationsRepo) CountByEvent(ctx context.Context, eventID string) (int, int, error) {
	if f.countFn != nil {
		return f.countFn(ctx, eventID)
	}
	return 0, 0, nil
}

// small helper function which returns the gin engine to mount one handler per test
func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func doRequest(r http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string `json:"json"`
			Field  string `json:"field"`
			Fields []struct {
				Field   string `json:"field"`
				Rule    string `json:"rule"`
				Param   string `json:"param"`
				Message string `json:"message"`
			} `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}
	return resp
}
