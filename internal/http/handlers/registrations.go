package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/eventform/internal/config"
	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/domain/registration"
	"github.com/geocoder89/eventform/internal/form"
	"github.com/geocoder89/eventform/internal/observability"
	"github.com/geocoder89/eventform/internal/utils"
	"github.com/gin-gonic/gin"
)

type RegistrationCreator interface {
	Create(ctx context.Context, reg registration.Registration) (registration.Registration, error)
}

type RegistrationHandler struct {
	events EventsReader
	repo   RegistrationCreator
	prom   *observability.Prom
	now    func() time.Time
}

func NewRegistrationHandler(events EventsReader, repo RegistrationCreator, prom *observability.Prom) *RegistrationHandler {
	return &RegistrationHandler{events: events, repo: repo, prom: prom, now: time.Now}
}

// Register validates the whole form and stores it as one registration. Nothing is
// written when any attendee fails validation.
func (h *RegistrationHandler) Register(ctx *gin.Context) {
	eventID := ctx.Param("id")

	if !utils.IsUUID(eventID) {
		RespondInvalidID(ctx, "event")
		return
	}

	var req registration.CreateRegistrationRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// force URL param as the source of truth
	req.EventID = eventID

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.events.GetByID(cctx, eventID)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not register for event")
		return
	}

	if !e.IsActive {
		RespondNotFound(ctx, "Event not found")
		return
	}

	m, err := form.FromSubmission(e, req)
	if err != nil {
		if RespondFormError(ctx, err) {
			return
		}
		RespondInternal(ctx, "Could not register for event")
		return
	}

	reg, err := m.Submit(h.now())
	if err != nil {
		if RespondFormError(ctx, err) {
			return
		}
		RespondInternal(ctx, "Could not register for event")
		return
	}

	saved, err := h.repo.Create(cctx, reg)
	if err != nil {
		slog.ErrorContext(ctx.Request.Context(), "registration save failed",
			"event_id", eventID,
			"request_id", requestIDFrom(ctx),
			"err", err,
		)
		RespondInternal(ctx, "Could not save registration")
		return
	}

	h.prom.RegistrationAccepted(saved.IsGroup)

	ctx.JSON(http.StatusCreated, saved)
}
