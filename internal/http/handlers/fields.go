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
	"github.com/geocoder89/eventform/internal/domain/field"
	"github.com/geocoder89/eventform/internal/fieldset"
	"github.com/geocoder89/eventform/internal/utils"
	"github.com/gin-gonic/gin"
)

type FieldDrafts interface {
	Get(ctx context.Context, eventID string) (fieldset.Editor, error)
	Add(ctx context.Context, eventID string) (fieldset.Editor, error)
	Update(ctx context.Context, eventID string, i int, s field.Schema) (fieldset.Editor, error)
	Delete(ctx context.Context, eventID string, i int) (fieldset.Editor, error)
	Reset(ctx context.Context, eventID string) (fieldset.Editor, error)
	Save(ctx context.Context, eventID string) (fieldset.Editor, error)
}

// FieldsHandler exposes the per-event field draft. Edits stay server side until save.
type FieldsHandler struct {
	drafts FieldDrafts
	cache  *cache.Cache
}

func NewFieldsHandler(drafts FieldDrafts, c *cache.Cache) *FieldsHandler {
	return &FieldsHandler{drafts: drafts, cache: c}
}

func (h *FieldsHandler) Get(ctx *gin.Context) {
	h.run(ctx, func(cctx context.Context, id string) (fieldset.Editor, error) {
		return h.drafts.Get(cctx, id)
	})
}

func (h *FieldsHandler) Add(ctx *gin.Context) {
	h.runStatus(ctx, http.StatusCreated, func(cctx context.Context, id string) (fieldset.Editor, error) {
		return h.drafts.Add(cctx, id)
	})
}

func (h *FieldsHandler) Update(ctx *gin.Context) {
	i, ok := fieldIndex(ctx)
	if !ok {
		return
	}

	var s field.Schema
	if !BindJSON(ctx, &s) {
		return
	}

	h.run(ctx, func(cctx context.Context, id string) (fieldset.Editor, error) {
		return h.drafts.Update(cctx, id, i, s)
	})
}

func (h *FieldsHandler) Delete(ctx *gin.Context) {
	i, ok := fieldIndex(ctx)
	if !ok {
		return
	}

	h.run(ctx, func(cctx context.Context, id string) (fieldset.Editor, error) {
		return h.drafts.Delete(cctx, id, i)
	})
}

func (h *FieldsHandler) Reset(ctx *gin.Context) {
	h.run(ctx, func(cctx context.Context, id string) (fieldset.Editor, error) {
		return h.drafts.Reset(cctx, id)
	})
}

func (h *FieldsHandler) Save(ctx *gin.Context) {
	h.run(ctx, func(cctx context.Context, id string) (fieldset.Editor, error) {
		ed, err := h.drafts.Save(cctx, id)
		if err == nil {
			h.cache.InvalidateEvent(id)
		}
		return ed, err
	})
}

func (h *FieldsHandler) run(ctx *gin.Context, op func(context.Context, string) (fieldset.Editor, error)) {
	h.runStatus(ctx, http.StatusOK, op)
}

func (h *FieldsHandler) runStatus(ctx *gin.Context, status int, op func(context.Context, string) (fieldset.Editor, error)) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondInvalidID(ctx, "event")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	ed, err := op(cctx, id)
	if err != nil {
		respondFieldsError(ctx, err)
		return
	}

	ctx.JSON(status, gin.H{
		"eventId": ed.EventID(),
		"fields":  ed.Fields(),
	})
}

func fieldIndex(ctx *gin.Context) (int, bool) {
	i, err := strconv.Atoi(ctx.Param("index"))
	if err != nil || i < 0 {
		RespondBadRequest(ctx, "Invalid field index", gin.H{"fields": []FieldError{{
			Field: "index", Rule: "min", Param: "0", Message: "must be a non-negative whole number",
		}}})
		return 0, false
	}
	return i, true
}

func respondFieldsError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, event.ErrNotFound):
		RespondNotFound(ctx, "Event not found")
	case errors.Is(err, fieldset.ErrIndexOutOfRange):
		RespondNotFound(ctx, "Field not found")
	case errors.Is(err, fieldset.ErrLastField):
		RespondUnprocessable(ctx, "last_field", err.Error())
	case errors.Is(err, field.ErrDuplicateName):
		RespondUnprocessable(ctx, "duplicate_name", err.Error())
	case errors.Is(err, field.ErrEmptyName), errors.Is(err, field.ErrInvalidType), errors.Is(err, field.ErrNoFields):
		RespondUnprocessable(ctx, "invalid_fields", err.Error())
	default:
		RespondInternal(ctx, "Could not update fields")
	}
}
