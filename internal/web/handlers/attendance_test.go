package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/facewatch/internal/attendance"
	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/database/memory"
)

const aliceID = "6f1c2d3e-0000-4000-8000-000000000001"

func closedEvent(id string, entry time.Time, seconds float64) database.PresenceEvent {
	exit := entry.Add(time.Duration(seconds * float64(time.Second)))
	return database.PresenceEvent{
		IdentityID: id, Kind: database.KindKnown, EntryTime: entry,
		ExitTime: &exit, DurationSeconds: &seconds,
	}
}

func attendanceFixture() (*memory.Store, *AttendanceHandler) {
	store := memory.New()
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	store.AddPresenceEvent(closedEvent(aliceID, day.Add(9*time.Hour), 120))
	store.AddPresenceEvent(closedEvent(aliceID, day.Add(13*time.Hour), 30))
	store.AddPresenceEvent(closedEvent(aliceID, day.Add(17*time.Hour), 50))
	agg := attendance.NewAggregator(store, time.UTC, nil)
	return store, NewAttendanceHandler(store, agg)
}

func TestAttendanceHandler_GenerateThenGet(t *testing.T) {
	_, h := attendanceFixture()

	req := requestWithChiParams(httptest.NewRequest("POST", "/api/v1/attendance/2024-05-01", nil), map[string]string{"date": "2024-05-01"})
	rec := httptest.NewRecorder()
	h.Generate(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var gen struct {
		Date    string               `json:"date"`
		Events  int                  `json:"events"`
		Records []AttendanceResponse `json:"records"`
	}
	decodeBody(t, rec, &gen)
	if gen.Date != "2024-05-01" || gen.Events != 3 || len(gen.Records) != 1 {
		t.Fatalf("unexpected generate result: %+v", gen)
	}

	req = requestWithChiParams(httptest.NewRequest("GET", "/api/v1/attendance/2024-05-01", nil), map[string]string{"date": "2024-05-01"})
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	var got []AttendanceResponse
	decodeBody(t, rec, &got)
	if len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
	r := got[0]
	if r.UserID != aliceID || r.TotalDurationSeconds != 200 || r.Date != "2024-05-01" {
		t.Errorf("unexpected record: %+v", r)
	}
	if r.FirstSeen.Hour() != 9 || r.LastSeen.Hour() != 17 || r.LastSeen.Minute() != 0 || r.LastSeen.Second() != 50 {
		t.Errorf("unexpected first/last seen: %s / %s", r.FirstSeen, r.LastSeen)
	}
}

func TestAttendanceHandler_GetEmptyDay(t *testing.T) {
	_, h := attendanceFixture()
	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/attendance/2024-06-01", nil), map[string]string{"date": "2024-06-01"})
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("expected empty array, got %q", body)
	}
}

func TestAttendanceHandler_InvalidDate(t *testing.T) {
	_, h := attendanceFixture()
	for _, date := range []string{"yesterday", "2024-13-01", ""} {
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/attendance/x", nil), map[string]string{"date": date})
		rec := httptest.NewRecorder()
		h.Get(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("date %q: expected 400, got %d", date, rec.Code)
		}
	}
}

func TestAttendanceHandler_GenerateStoreError(t *testing.T) {
	store, h := attendanceFixture()
	store.ClosedEventsError = errors.New("db down")

	req := requestWithChiParams(httptest.NewRequest("POST", "/api/v1/attendance/2024-05-01", nil), map[string]string{"date": "2024-05-01"})
	rec := httptest.NewRecorder()
	h.Generate(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
