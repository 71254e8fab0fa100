package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facewatch/internal/attendance"
	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/logger"
)

// AttendanceGenerator runs the aggregation for one day
type AttendanceGenerator interface {
	Generate(ctx context.Context, date time.Time) (*attendance.Result, error)
	Location() *time.Location
}

// AttendanceHandler reads and regenerates daily attendance
type AttendanceHandler struct {
	store database.AttendanceStore
	agg   AttendanceGenerator
}

func NewAttendanceHandler(store database.AttendanceStore, agg AttendanceGenerator) *AttendanceHandler {
	return &AttendanceHandler{store: store, agg: agg}
}

// AttendanceResponse is one daily total
type AttendanceResponse struct {
	Date                 string    `json:"date"`
	UserID               string    `json:"user_id"`
	TotalDurationSeconds float64   `json:"total_duration_seconds"`
	FirstSeen            time.Time `json:"first_seen"`
	LastSeen             time.Time `json:"last_seen"`
}

func toAttendanceResponses(recs []database.AttendanceRecord) []AttendanceResponse {
	out := make([]AttendanceResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, AttendanceResponse{
			Date:                 rec.Date.Format(time.DateOnly),
			UserID:               rec.IdentityID,
			TotalDurationSeconds: rec.TotalDurationSeconds,
			FirstSeen:            rec.FirstSeen,
			LastSeen:             rec.LastSeen,
		})
	}
	return out
}

func (h *AttendanceHandler) date(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	d, err := attendance.ParseDate(chi.URLParam(r, "date"), h.agg.Location())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return time.Time{}, false
	}
	return d, true
}

// Get returns stored records for {date}.
func (h *AttendanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := h.date(w, r)
	if !ok {
		return
	}
	recs, err := h.store.ListAttendance(r.Context(), d)
	if err != nil {
		respondStoreError(w, r, "attendance", err)
		return
	}
	respondJSON(w, http.StatusOK, toAttendanceResponses(recs))
}

// Generate aggregates {date} now and returns the written records.
func (h *AttendanceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	d, ok := h.date(w, r)
	if !ok {
		return
	}
	res, err := h.agg.Generate(r.Context(), d)
	if err != nil {
		logger.Error("attendance generation failed", "date", d.Format(time.DateOnly), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to generate attendance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":    d.Format(time.DateOnly),
		"events":  res.Events,
		"skipped": res.Skipped,
		"records": toAttendanceResponses(res.Records),
	})
}
