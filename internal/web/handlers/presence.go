package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/engine"
	"github.com/kozaktomas/facewatch/internal/presence"
)

// LiveView is the engine's published state
type LiveView interface {
	Active() []engine.ActivePresence
	LastFrame() *engine.Frame
}

// PresenceHandler serves live and historical presence
type PresenceHandler struct {
	live  LiveView
	store database.PresenceReader
}

func NewPresenceHandler(live LiveView, store database.PresenceReader) *PresenceHandler {
	return &PresenceHandler{live: live, store: store}
}

// PresenceEventResponse is one persisted window
type PresenceEventResponse struct {
	ID              int64      `json:"id"`
	IdentityID      string     `json:"identity_id"`
	Kind            string     `json:"kind"`
	EntryTime       time.Time  `json:"entry_time"`
	ExitTime        *time.Time `json:"exit_time"`
	DurationSeconds *float64   `json:"duration_seconds"`
	SnapshotRef     string     `json:"snapshot,omitempty"`
}

// Active returns who is currently in view.
func (h *PresenceHandler) Active(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.live.Active())
}

// Events lists persisted windows, filtered by kind, identity_id, since (RFC 3339) and open=true.
func (h *PresenceHandler) Events(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := database.PresenceFilter{
		IdentityID: q.Get("identity_id"),
		OpenOnly:   q.Get("open") == "true",
		Limit:      limit,
	}
	if kind := q.Get("kind"); kind != "" {
		k, err := presence.ParseKind(kind)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Kind = k.String()
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			respondError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = t
	}

	events, err := h.store.ListPresenceEvents(r.Context(), filter)
	if err != nil {
		respondStoreError(w, r, "presence events", err)
		return
	}

	out := make([]PresenceEventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, PresenceEventResponse{
			ID:              ev.ID,
			IdentityID:      ev.IdentityID,
			Kind:            ev.Kind,
			EntryTime:       ev.EntryTime,
			ExitTime:        ev.ExitTime,
			DurationSeconds: ev.DurationSeconds,
			SnapshotRef:     ev.SnapshotRef,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// AlertResponse is one audited flagged sighting
type AlertResponse struct {
	ID          int64     `json:"id"`
	IdentityID  string    `json:"bad_id"`
	Name        string    `json:"name"`
	Reason      string    `json:"reason"`
	SnapshotRef string    `json:"snapshot,omitempty"`
	DetectedAt  time.Time `json:"detected_at"`
}

// Alerts lists flagged sightings newest first.
func (h *PresenceHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	alerts, err := h.store.ListAlerts(r.Context(), limit)
	if err != nil {
		respondStoreError(w, r, "alerts", err)
		return
	}
	out := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, AlertResponse(a))
	}
	respondJSON(w, http.StatusOK, out)
}

// Frame serves the last annotated frame as JPEG.
func (h *PresenceHandler) Frame(w http.ResponseWriter, r *http.Request) {
	f := h.live.LastFrame()
	if f == nil {
		respondError(w, http.StatusNotFound, "no frame processed yet")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Last-Modified", f.CapturedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write(f.JPEG)
}
