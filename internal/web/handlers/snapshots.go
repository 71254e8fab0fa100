package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facewatch/internal/logger"
	"github.com/kozaktomas/facewatch/internal/snapshot"
)

// SnapshotHandler serves stored first-sighting frames
type SnapshotHandler struct {
	store snapshot.Store
}

func NewSnapshotHandler(store snapshot.Store) *SnapshotHandler {
	return &SnapshotHandler{store: store}
}

// Get streams /static/snapshots/{name}.
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	rc, err := h.store.Open(r.Context(), chi.URLParam(r, "name"))
	if errors.Is(err, snapshot.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logger.Error("failed to open snapshot", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to open snapshot")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	if _, err := io.Copy(w, rc); err != nil {
		logger.Debug("snapshot copy interrupted", "error", err)
	}
}
