package handler

import (
	"log/slog"
	"net/http"

	"github.com/cardshow/cardshow/internal/ctxkeys"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/render"
	"github.com/cardshow/cardshow/internal/service"
	"github.com/cardshow/cardshow/internal/validation"
)

const maxSyncDrafts = 100

type CardHandler struct {
	cardService *service.CardService
}

func NewCardHandler(cardService *service.CardService) *CardHandler {
	return &CardHandler{cardService: cardService}
}

func cardFilter(r *http.Request) model.CardFilter {
	q := r.URL.Query()
	return model.CardFilter{
		Rarity: q.Get("rarity"),
		Tag:    q.Get("tag"),
		Sort:   q.Get("sort"),
		Limit:  queryInt(r, "limit", 24),
		Offset: queryInt(r, "offset", 0),
	}
}

func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CardInput
	if !decodeJSON(w, r, &in) {
		return
	}

	card, err := h.cardService.Create(r.Context(), ctxkeys.UserID(r.Context()), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, card)
}

// Get serves public cards to anyone and private ones to their owner.
func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	card, err := h.cardService.Get(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, card)
}

func (h *CardHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cardService.ListMine(ctxkeys.UserID(r.Context()), cardFilter(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"cards": cards})
}

func (h *CardHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cardService.ListPublic(cardFilter(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"cards": cards})
}

func (h *CardHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.CardInput
	if !decodeJSON(w, r, &in) {
		return
	}

	card, err := h.cardService.Update(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, card)
}

func (h *CardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.cardService.Delete(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.NoContent(w)
}

func (h *CardHandler) UpdateEffects(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Effects model.Effects `json:"effects"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	card, err := h.cardService.UpdateEffects(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"), req.Effects)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, card)
}

func (h *CardHandler) Presets(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, map[string]any{"presets": service.EffectPresets})
}

// UploadImage accepts multipart field "image".
func (h *CardHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, validation.ImageConstraints.MaxSize+(1<<20))
	file, header, err := r.FormFile("image")
	if err != nil {
		render.Error(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer func() {
		closeErr := file.Close()
		if closeErr != nil {
			slog.Error("failed to close file", "error", closeErr)
		}
	}()

	card, err := h.cardService.UploadImage(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"), file, header.Filename, header.Size)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, card)
}

func (h *CardHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	views, err := h.cardService.RecordView(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]int64{"view_count": views})
}

func (h *CardHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	card, err := h.cardService.Duplicate(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, card)
}

// Sync reconciles cards saved offline. Each draft gets its own result, so the
// response is 200 even when some drafts conflict or fail.
func (h *CardHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Drafts []service.SyncDraft `json:"drafts"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Drafts) > maxSyncDrafts {
		render.Error(w, http.StatusBadRequest, "too many drafts in one sync")
		return
	}

	results := h.cardService.Sync(r.Context(), ctxkeys.UserID(r.Context()), req.Drafts)
	render.JSON(w, http.StatusOK, map[string]any{"results": results})
}
