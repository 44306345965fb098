package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/eventform/internal/cache"
	"github.com/geocoder89/eventform/internal/config"
	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/domain/registration"
	"github.com/geocoder89/eventform/internal/form"
	"github.com/geocoder89/eventform/internal/observability"
	"github.com/geocoder89/eventform/internal/utils"
	"github.com/gin-gonic/gin"
)

type EventsReader interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
	ListActive(ctx context.Context) ([]event.Event, error)
}

// EventsHandler is the public, read only side of events.
type EventsHandler struct {
	repo  EventsReader
	cache *cache.Cache
	prom  *observability.Prom
}

func NewEventsHandler(repo EventsReader, c *cache.Cache, prom *observability.Prom) *EventsHandler {
	return &EventsHandler{repo: repo, cache: c, prom: prom}
}

func (h *EventsHandler) ListActive(ctx *gin.Context) {
	key := utils.ActiveEventsCacheKey()

	if v, ok := h.cache.Get(key); ok {
		if cached, ok := v.(CachedJSON); ok {
			h.prom.CacheHit("events", true)
			RespondCachedJSON(ctx, http.StatusOK, cached)
			return
		}
	}
	h.prom.CacheHit("events", false)

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	events, err := h.repo.ListActive(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	cached, err := NewCachedJSON(gin.H{
		"items": events,
		"count": len(events),
	})
	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	h.cache.Set(key, cached)
	RespondCachedJSON(ctx, http.StatusOK, cached)
}

func (h *EventsHandler) GetActive(ctx *gin.Context) {
	e, ok := h.loadActive(ctx)
	if !ok {
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, e)
}

// FormPlan describes the registration form; ?group=true&size=N previews a group.
func (h *EventsHandler) FormPlan(ctx *gin.Context) {
	e, ok := h.loadActive(ctx)
	if !ok {
		return
	}

	m := form.ForEvent(e)

	if group, _ := strconv.ParseBool(ctx.Query("group")); group {
		m.SetGroup(true)

		if raw := ctx.Query("size"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				RespondBadRequest(ctx, "Invalid group size", gin.H{"fields": []FieldError{{
					Field: "size", Rule: "number", Message: "must be a whole number",
				}}})
				return
			}
			if n < registration.MinGroupSize || n > registration.MaxGroupSize {
				RespondFormError(ctx, registration.ErrGroupSize)
				return
			}
			m.SetGroupSize(n)
		}
	}

	plan, err := m.Plan()
	if err != nil {
		RespondInternal(ctx, "Could not build form")
		return
	}

	ctx.JSON(http.StatusOK, plan)
}

// loadActive answers 400/404/500 itself and reports whether it did not.
func (h *EventsHandler) loadActive(ctx *gin.Context) (event.Event, bool) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondInvalidID(ctx, "event")
		return event.Event{}, false
	}

	key := utils.EventCacheKey(id)
	if v, ok := h.cache.Get(key); ok {
		if e, ok := v.(event.Event); ok {
			h.prom.CacheHit("event", true)
			return e, true
		}
	}
	h.prom.CacheHit("event", false)

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return event.Event{}, false
		}
		RespondInternal(ctx, "Could not fetch event")
		return event.Event{}, false
	}

	if !e.IsActive {
		RespondNotFound(ctx, "Event not found")
		return event.Event{}, false
	}

	h.cache.Set(key, e)
	return e, true
}
