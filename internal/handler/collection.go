package handler

import (
	"net/http"

	"github.com/cardshow/cardshow/internal/ctxkeys"
	"github.com/cardshow/cardshow/internal/render"
	"github.com/cardshow/cardshow/internal/service"
)

type CollectionHandler struct {
	collectionService *service.CollectionService
}

func NewCollectionHandler(collectionService *service.CollectionService) *CollectionHandler {
	return &CollectionHandler{collectionService: collectionService}
}

func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CollectionInput
	if !decodeJSON(w, r, &in) {
		return
	}

	c, err := h.collectionService.Create(ctxkeys.UserID(r.Context()), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, c)
}

func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.collectionService.Get(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, c)
}

func (h *CollectionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	collections, err := h.collectionService.ListMine(ctxkeys.UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"collections": collections})
}

func (h *CollectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.CollectionInput
	if !decodeJSON(w, r, &in) {
		return
	}

	c, err := h.collectionService.Update(ctxkeys.UserID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, c)
}

func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.collectionService.Delete(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.NoContent(w)
}

func (h *CollectionHandler) Cards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.collectionService.Cards(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"cards": cards})
}

// AddCard answers 201 when the card was added and 200 when it was already there.
func (h *CollectionHandler) AddCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardID string `json:"card_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	added, err := h.collectionService.AddCard(ctxkeys.UserID(r.Context()), r.PathValue("id"), req.CardID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	render.JSON(w, status, map[string]bool{"added": added})
}

func (h *CollectionHandler) RemoveCard(w http.ResponseWriter, r *http.Request) {
	err := h.collectionService.RemoveCard(ctxkeys.UserID(r.Context()), r.PathValue("id"), r.PathValue("cardID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.NoContent(w)
}
