package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/eventform/internal/cache"
	"github.com/geocoder89/eventform/internal/config"
	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/domain/registration"
	"github.com/geocoder89/eventform/internal/message"
	"github.com/geocoder89/eventform/internal/utils"
	"github.com/gin-gonic/gin"
)

type EventsAdmin interface {
	Create(ctx context.Context, e event.Event) (event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	List(ctx context.Context) ([]event.Event, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type RegistrationsReader interface {
	ListByEvent(ctx context.Context, eventID string) ([]registration.Registration, error)
	CountByEvent(ctx context.Context, eventID string) (registrations, attendees int, err error)
}

// DraftForgetter drops unsaved field edits of a deleted event.
type DraftForgetter interface {
	Forget(eventID string)
}

type AdminEventsHandler struct {
	events   EventsAdmin
	regs     RegistrationsReader
	drafts   DraftForgetter
	cache    *cache.Cache
	composer message.Composer
	now      func() time.Time
}

func NewAdminEventsHandler(events EventsAdmin, regs RegistrationsReader, drafts DraftForgetter, c *cache.Cache, composer message.Composer) *AdminEventsHandler {
	return &AdminEventsHandler{
		events:   events,
		regs:     regs,
		drafts:   drafts,
		cache:    c,
		composer: composer,
		now:      time.Now,
	}
}

// EventSummary is an event as the admin list shows it.
type EventSummary struct {
	event.Event
	Registrations int `json:"registrations"`
	Attendees     int `json:"attendees"`
}

func (h *AdminEventsHandler) CreateEvent(ctx *gin.Context) {
	var req event.CreateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	e, err := event.NewFromCreateRequest(req, h.now())
	if err != nil {
		switch {
		case errors.Is(err, event.ErrNameRequired):
			RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
				Field: "name", Rule: "required", Message: validationMessage("required", ""),
			}}})
		case errors.Is(err, event.ErrInvalidDate):
			RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
				Field: "date", Rule: "date", Message: err.Error(),
			}}})
		default:
			RespondInternal(ctx, "Could not create event")
		}
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	created, err := h.events.Create(cctx, e)
	if err != nil {
		RespondInternal(ctx, "Could not create event")
		return
	}

	h.cache.InvalidateEvent(created.ID)

	ctx.JSON(http.StatusCreated, created)
}

func (h *AdminEventsHandler) ListEvents(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	events, err := h.events.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	items := make([]EventSummary, 0, len(events))
	for _, e := range events {
		regs, people, err := h.regs.CountByEvent(cctx, e.ID)
		if err != nil {
			RespondInternal(ctx, "Could not list events")
			return
		}
		items = append(items, EventSummary{Event: e, Registrations: regs, Attendees: people})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *AdminEventsHandler) GetEvent(ctx *gin.Context) {
	e, ok := h.load(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, e)
}

// SetActive is how an event is closed to new registrations.
func (h *AdminEventsHandler) SetActive(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondInvalidID(ctx, "event")
		return
	}

	var req event.SetActiveRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := h.events.SetActive(cctx, id, *req.IsActive); err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not update event")
		return
	}

	h.cache.InvalidateEvent(id)

	e, err := h.events.GetByID(cctx, id)
	if err != nil {
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	ctx.JSON(http.StatusOK, e)
}

// DeleteEvent removes the event document only; its registrations stay.
func (h *AdminEventsHandler) DeleteEvent(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondInvalidID(ctx, "event")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := h.events.Delete(cctx, id); err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not delete event")
		return
	}

	h.drafts.Forget(id)
	h.cache.InvalidateEvent(id)

	ctx.Status(http.StatusNoContent)
}

func (h *AdminEventsHandler) ListRegistrations(ctx *gin.Context) {
	e, ok := h.load(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	regs, err := h.regs.ListByEvent(cctx, e.ID)
	if err != nil {
		RespondInternal(ctx, "Could not list registrations")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"eventId":       e.ID,
		"count":         len(regs),
		"registrations": regs,
	})
}

// Message serves the composed invitation. Accept: text/plain gets the bare text
// ready to paste.
func (h *AdminEventsHandler) Message(ctx *gin.Context) {
	e, ok := h.load(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	regs, err := h.regs.ListByEvent(cctx, e.ID)
	if err != nil {
		RespondInternal(ctx, "Could not compose message")
		return
	}

	msg := h.composer.Compose(e, regs)

	if ctx.NegotiateFormat(gin.MIMEJSON, gin.MIMEPlain) == gin.MIMEPlain {
		ctx.String(http.StatusOK, msg)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"eventId":   e.ID,
		"message":   msg,
		"attendees": len(registration.Attendees(regs)),
	})
}

func (h *AdminEventsHandler) load(ctx *gin.Context) (event.Event, bool) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondInvalidID(ctx, "event")
		return event.Event{}, false
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.events.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return event.Event{}, false
		}
		RespondInternal(ctx, "Could not fetch event")
		return event.Event{}, false
	}

	return e, true
}
