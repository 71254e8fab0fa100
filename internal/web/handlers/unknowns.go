package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facewatch/internal/database"
)

// UnknownsHandler serves unclassified faces
type UnknownsHandler struct {
	store database.UnknownReader
}

func NewUnknownsHandler(store database.UnknownReader) *UnknownsHandler {
	return &UnknownsHandler{store: store}
}

// UnknownResponse omits the embedding
type UnknownResponse struct {
	ID        string    `json:"unknown_id"`
	ImagePath string    `json:"image_path"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

func toUnknownResponse(rec database.UnknownRecord) UnknownResponse {
	return UnknownResponse{ID: rec.ID, ImagePath: rec.ImagePath, FirstSeen: rec.FirstSeen, LastSeen: rec.LastSeen}
}

// List returns unknowns newest first.
func (h *UnknownsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := h.store.ListUnknowns(r.Context(), limit)
	if err != nil {
		respondStoreError(w, r, "unknowns", err)
		return
	}
	out := make([]UnknownResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toUnknownResponse(rec))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get returns one unknown, 404 if it was removed.
func (h *UnknownsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetUnknown(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, "unknown", err)
		return
	}
	respondJSON(w, http.StatusOK, toUnknownResponse(*rec))
}
