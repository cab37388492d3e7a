package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cardshow/cardshow/internal/ctxkeys"
	"github.com/cardshow/cardshow/internal/render"
	"github.com/cardshow/cardshow/internal/service"
)

type PSDHandler struct {
	psdService *service.PSDService
	maxBytes   int64
}

func NewPSDHandler(psdService *service.PSDService, maxBytes int64) *PSDHandler {
	return &PSDHandler{psdService: psdService, maxBytes: maxBytes}
}

// Import streams the "file" part of a multipart body straight into the
// decoder instead of buffering the whole form.
func (h *PSDHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+(1<<20))
	mr, err := r.MultipartReader()
	if err != nil {
		render.Error(w, http.StatusBadRequest, "multipart body required")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			render.Error(w, http.StatusBadRequest, "psd file is required")
			return
		}
		if err != nil {
			render.Error(w, http.StatusBadRequest, "failed to read upload")
			return
		}
		if part.FormName() != "file" {
			continue
		}

		imp, err := h.psdService.Import(r.Context(), ctxkeys.UserID(r.Context()), part, part.FileName())
		closeErr := part.Close()
		if closeErr != nil {
			slog.Debug("failed to close multipart part", "error", closeErr)
		}
		if err != nil {
			respondError(w, r, err)
			return
		}
		render.JSON(w, http.StatusCreated, imp)
		return
	}
}

func (h *PSDHandler) List(w http.ResponseWriter, r *http.Request) {
	imports, err := h.psdService.List(ctxkeys.UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"imports": imports})
}

func (h *PSDHandler) Get(w http.ResponseWriter, r *http.Request) {
	imp, err := h.psdService.Get(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, imp)
}

// CreateCard turns an import into a draft card, optionally limited to layer_ids.
func (h *PSDHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string   `json:"title"`
		LayerIDs []string `json:"layer_ids"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	card, err := h.psdService.CreateCard(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"), req.LayerIDs, req.Title)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, card)
}
