package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/facewatch/internal/attendance"
	"github.com/kozaktomas/facewatch/internal/broadcast"
	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/database/memory"
	"github.com/kozaktomas/facewatch/internal/engine"
	"github.com/kozaktomas/facewatch/internal/metrics"
	"github.com/kozaktomas/facewatch/internal/snapshot"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	store := memory.New()
	store.AddIdentity(database.CatalogKnown, database.Identity{ID: "u1", Name: "Alice", Embedding: []float32{1, 0}})

	m, err := metrics.New()
	if err != nil {
		t.Fatalf("metrics.New: %v", err)
	}
	snaps, err := snapshot.NewLocalStore(t.TempDir(), "/static/snapshots")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	hub := broadcast.NewHub(m)
	t.Cleanup(hub.Close)

	eng := engine.New(engine.Options{Threshold: 1, AbsenceTimeout: time.Second, EmbeddingDim: 2, InferenceWorkers: 1}, engine.Deps{
		Store:   store,
		Hub:     hub,
		Metrics: m,
	})

	return NewServer(config.WebConfig{Host: "127.0.0.1", Port: 0}, "/static/snapshots", Deps{
		Store:      store,
		Engine:     eng,
		Aggregator: attendance.NewAggregator(store, time.UTC, m),
		Hub:        hub,
		Snapshots:  snaps,
		Metrics:    m,
	})
}

func TestServerRoutes(t *testing.T) {
	s := testServer(t)

	tests := []struct {
		method   string
		path     string
		wantCode int
	}{
		{"GET", "/api/v1/health", http.StatusOK},
		{"GET", "/api/v1/presence", http.StatusOK},
		{"GET", "/api/v1/presence-events", http.StatusOK},
		{"GET", "/api/v1/alerts", http.StatusOK},
		{"GET", "/api/v1/frame", http.StatusNotFound},
		{"GET", "/api/v1/identities", http.StatusOK},
		{"POST", "/api/v1/catalog/reload", http.StatusOK},
		{"GET", "/api/v1/unknowns", http.StatusOK},
		{"GET", "/api/v1/unknowns/missing", http.StatusNotFound},
		{"GET", "/api/v1/attendance/2024-05-01", http.StatusOK},
		{"POST", "/api/v1/attendance/2024-05-01", http.StatusOK},
		{"GET", "/api/v1/attendance/not-a-date", http.StatusBadRequest},
		{"GET", "/static/snapshots/0123456789abcdef0123456789abcdef.jpg", http.StatusNotFound},
		{"DELETE", "/api/v1/presence", http.StatusMethodNotAllowed},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			if rec.Code != tc.wantCode {
				t.Errorf("expected %d, got %d: %s", tc.wantCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestServerMetrics(t *testing.T) {
	s := testServer(t)

	// A reload records catalog sizes.
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/catalog/reload", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("reload: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "facewatch_") {
		t.Errorf("expected facewatch metrics, got:\n%s", rec.Body.String())
	}
}

func TestServerSecurityHeaders(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("expected localhost origin to be allowed, got %q", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
}
