package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.FrameProcessed()
	m.FrameError("capture")
	m.FaceClassified("known")
	m.SetActivePresence(map[string]int{"known": 1})
	m.ObserveInference(time.Second)
	m.SetSubscribers(3)
	m.SubscriberDropped()
	m.Notification("sent")
	m.CatalogLoaded("known", 1, 0)
	m.AttendanceRecords(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}

func TestCounters(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	m.FrameProcessed()
	m.FrameProcessed()
	m.FaceClassified("bad")
	m.SetActivePresence(map[string]int{"unknown": 2})

	if got := testutil.ToFloat64(m.FramesProcessed); got != 2 {
		t.Errorf("expected 2 frames, got %v", got)
	}
	if got := testutil.ToFloat64(m.FacesClassified.WithLabelValues("bad")); got != 1 {
		t.Errorf("expected 1 bad face, got %v", got)
	}
	if got := testutil.ToFloat64(m.ActivePresence.WithLabelValues("known")); got != 0 {
		t.Errorf("expected known gauge reset to 0, got %v", got)
	}
	if got := testutil.ToFloat64(m.ActivePresence.WithLabelValues("unknown")); got != 2 {
		t.Errorf("expected 2 unknown, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatal(err)
	}
	m.FrameProcessed()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "facewatch_frames_processed_total 1") {
		t.Errorf("expected frames counter in output, got:\n%s", body)
	}
}
