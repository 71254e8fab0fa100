package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/engine"
	"github.com/kozaktomas/facewatch/internal/facematch"
	"github.com/kozaktomas/facewatch/internal/logger"
)

// CatalogReloader rebuilds the engine's identity caches
type CatalogReloader interface {
	ReloadCatalogs(ctx context.Context) (engine.ReloadResult, error)
}

// CatalogHandler lists catalog identities and triggers reloads
type CatalogHandler struct {
	store    database.CatalogReader
	reloader CatalogReloader
}

func NewCatalogHandler(store database.CatalogReader, reloader CatalogReloader) *CatalogHandler {
	return &CatalogHandler{store: store, reloader: reloader}
}

// IdentityResponse omits the embedding itself
type IdentityResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Note         string    `json:"note,omitempty"`
	HasEmbedding bool      `json:"has_embedding"`
	Dim          int       `json:"dim,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identities lists ?catalog=known|flagged (default known), optionally filtered by ?name=.
func (h *CatalogHandler) Identities(w http.ResponseWriter, r *http.Request) {
	catalog := database.Catalog(r.URL.Query().Get("catalog"))
	if catalog == "" {
		catalog = database.CatalogKnown
	}
	if !catalog.Valid() {
		respondError(w, http.StatusBadRequest, "catalog must be known or flagged")
		return
	}

	idents, err := h.store.ListIdentities(r.Context(), catalog)
	if err != nil {
		respondStoreError(w, r, "identities", err)
		return
	}
	idents = facematch.FilterIdentities(idents, r.URL.Query().Get("name"))

	out := make([]IdentityResponse, 0, len(idents))
	for _, ident := range idents {
		out = append(out, IdentityResponse{
			ID:           ident.ID,
			Name:         ident.Name,
			Note:         ident.Note,
			HasEmbedding: len(ident.Embedding) > 0,
			Dim:          len(ident.Embedding),
			CreatedAt:    ident.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// Reload rebuilds both catalogs.
func (h *CatalogHandler) Reload(w http.ResponseWriter, r *http.Request) {
	res, err := h.reloader.ReloadCatalogs(r.Context())
	if err != nil {
		logger.Error("catalog reload failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to reload catalogs")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
