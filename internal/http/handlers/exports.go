package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/eventform/internal/config"
	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/jobs"
	"github.com/geocoder89/eventform/internal/utils"
	"github.com/gin-gonic/gin"
)

type ExportRequester interface {
	Request(ctx context.Context, eventID, requestID string) (jobs.Job, error)
	Status(ctx context.Context, jobID string) (jobs.Job, error)
}

type ExportsHandler struct {
	svc ExportRequester
}

func NewExportsHandler(svc ExportRequester) *ExportsHandler {
	return &ExportsHandler{svc: svc}
}

func (h *ExportsHandler) Enqueue(ctx *gin.Context) {
	eventID := ctx.Param("id")

	if !utils.IsUUID(eventID) {
		RespondInvalidID(ctx, "event")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	j, err := h.svc.Request(cctx, eventID, requestIDFrom(ctx))
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		slog.Error("export enqueue failed", "event_id", eventID, "err", err)
		RespondUnavailable(ctx, "Could not queue export")
		return
	}

	ctx.Header("Location", "/admin/exports/"+j.ID)
	ctx.JSON(http.StatusAccepted, gin.H{
		"jobId":  j.ID,
		"status": j.Status,
	})
}

func (h *ExportsHandler) Status(ctx *gin.Context) {
	jobID := ctx.Param("jobId")

	if !utils.IsUUID(jobID) {
		RespondInvalidID(ctx, "job")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	j, err := h.svc.Status(cctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			RespondNotFound(ctx, "Export not found")
			return
		}
		RespondInternal(ctx, "Could not fetch export")
		return
	}

	ctx.JSON(http.StatusOK, j)
}
