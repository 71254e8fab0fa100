package notify

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"go.uber.org/goleak"
)

type fakeSender struct {
	mu     sync.Mutex
	titles []string
	bodies []string
	errs   []error
}

func (f *fakeSender) Send(message string, params *stypes.Params) []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	title, _ := params.Title()
	f.titles = append(f.titles, title)
	f.bodies = append(f.bodies, message)
	return f.errs
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies)
}

var alert = Alert{
	IdentityID:  "b1",
	Name:        "Mallory",
	Reason:      "shoplifting",
	SnapshotRef: "/static/snapshots/x.jpg",
	DetectedAt:  time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
}

func TestNotify_SendsAsync(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &fakeSender{}
	n := newNotifier(s, time.Minute, nil)

	if !n.Notify(alert) {
		t.Fatal("expected notification queued")
	}
	n.Wait()

	if s.count() != 1 {
		t.Fatalf("expected 1 send, got %d", s.count())
	}
	if s.titles[0] != "Flagged person detected: Mallory" {
		t.Errorf("unexpected title %q", s.titles[0])
	}
	for _, want := range []string{"Mallory", "2024-05-01 09:30:00", "shoplifting", "/static/snapshots/x.jpg"} {
		if !strings.Contains(s.bodies[0], want) {
			t.Errorf("body missing %q: %s", want, s.bodies[0])
		}
	}
}

func TestNotify_Cooldown(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &fakeSender{}
	n := newNotifier(s, time.Hour, nil)

	n.Notify(alert)
	if n.Notify(alert) {
		t.Error("second alert within cooldown should be suppressed")
	}
	other := alert
	other.IdentityID = "b2"
	if !n.Notify(other) {
		t.Error("different identity should not be suppressed")
	}
	n.Wait()

	if s.count() != 2 {
		t.Errorf("expected 2 sends, got %d", s.count())
	}
}

func TestNotify_FailureIsNotFatal(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &fakeSender{errs: []error{nil, errors.New("smtp: connection refused")}}
	n := newNotifier(s, 0, nil)

	if !n.Notify(alert) || !n.Notify(alert) {
		t.Error("zero cooldown should never suppress")
	}
	n.Wait()
	if s.count() != 2 {
		t.Errorf("expected 2 attempts, got %d", s.count())
	}
}

func TestNew_NoURLs(t *testing.T) {
	n, err := New(nil, time.Minute, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n.Enabled() {
		t.Error("notifier without URLs should be disabled")
	}
	if n.Notify(alert) {
		t.Error("disabled notifier should not report a send")
	}
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New([]string{"notaservice://x"}, time.Minute, nil); err == nil {
		t.Error("expected error for unknown service scheme")
	}
}

func TestAlert_Body(t *testing.T) {
	tests := []struct {
		name    string
		alert   Alert
		want    []string
		notWant []string
	}{
		{"with snapshot", alert, []string{"Reason: shoplifting", "Snapshot: /static/snapshots/x.jpg"}, nil},
		{"snapshot not saved", Alert{Name: "Mallory", Reason: "shoplifting", DetectedAt: alert.DetectedAt}, []string{"Reason: shoplifting"}, []string{"Snapshot:"}},
		{"no reason", Alert{Name: "Mallory", SnapshotRef: "/s/y.jpg", DetectedAt: alert.DetectedAt}, []string{"Snapshot: /s/y.jpg"}, []string{"Reason:"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.alert.Body()
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Errorf("body missing %q: %s", w, body)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(body, w) {
					t.Errorf("body should not contain %q: %s", w, body)
				}
			}
		})
	}
}
