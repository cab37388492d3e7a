package handler

import (
	"net/http"

	"github.com/cardshow/cardshow/internal/ctxkeys"
	"github.com/cardshow/cardshow/internal/render"
	"github.com/cardshow/cardshow/internal/service"
)

type SocialHandler struct {
	socialService *service.SocialService
}

func NewSocialHandler(socialService *service.SocialService) *SocialHandler {
	return &SocialHandler{socialService: socialService}
}

// Memories

func (h *SocialHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var in service.MemoryInput
	if !decodeJSON(w, r, &in) {
		return
	}

	m, err := h.socialService.CreateMemory(ctxkeys.UserID(r.Context()), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, m)
}

func (h *SocialHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	m, err := h.socialService.GetMemory(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, m)
}

func (h *SocialHandler) ListMyMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := h.socialService.ListMyMemories(ctxkeys.UserID(r.Context()), queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"memories": memories})
}

func (h *SocialHandler) ListPublicMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := h.socialService.ListPublicMemories(queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"memories": memories})
}

func (h *SocialHandler) CardMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := h.socialService.CardMemories(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"memories": memories})
}

func (h *SocialHandler) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	var in service.MemoryInput
	if !decodeJSON(w, r, &in) {
		return
	}

	m, err := h.socialService.UpdateMemory(ctxkeys.UserID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, m)
}

func (h *SocialHandler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	err := h.socialService.DeleteMemory(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.NoContent(w)
}

// Comments

func (h *SocialHandler) Comments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.socialService.Comments(ctxkeys.UserID(r.Context()), r.PathValue("targetType"), r.PathValue("targetID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"comments": comments})
}

func (h *SocialHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Body     string  `json:"body"`
		ParentID *string `json:"parent_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.socialService.AddComment(ctxkeys.UserID(r.Context()), r.PathValue("targetType"), r.PathValue("targetID"), req.ParentID, req.Body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, c)
}

func (h *SocialHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	err := h.socialService.DeleteComment(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.NoContent(w)
}

// Reactions

func (h *SocialHandler) Reactions(w http.ResponseWriter, r *http.Request) {
	summary, err := h.socialService.Reactions(ctxkeys.UserID(r.Context()), r.PathValue("targetType"), r.PathValue("targetID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, summary)
}

func (h *SocialHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	summary, err := h.socialService.ToggleReaction(ctxkeys.UserID(r.Context()), r.PathValue("targetType"), r.PathValue("targetID"), req.Type)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, summary)
}
