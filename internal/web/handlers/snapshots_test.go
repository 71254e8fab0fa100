package handlers

import (
	"net/http"
	"net/http/httptest"
	"path"
	"testing"

	"github.com/kozaktomas/facewatch/internal/snapshot"
)

func TestSnapshotHandler_Get(t *testing.T) {
	store, err := snapshot.NewLocalStore(t.TempDir(), "/static/snapshots")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ref, err := store.Save(t.Context(), []byte{0xFF, 0xD8, 0xFF, 0xD9})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	h := NewSnapshotHandler(store)

	tests := []struct {
		name     string
		file     string
		wantCode int
	}{
		{"saved snapshot", path.Base(ref), http.StatusOK},
		{"missing", "0123456789abcdef0123456789abcdef.jpg", http.StatusNotFound},
		{"traversal", "../../etc/passwd", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest("GET", "/static/snapshots/x", nil), map[string]string{"name": tc.file})
			rec := httptest.NewRecorder()
			h.Get(rec, req)

			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
			if tc.wantCode == http.StatusOK {
				if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
					t.Errorf("expected image/jpeg, got %q", ct)
				}
				if rec.Body.Len() != 4 {
					t.Errorf("expected 4 bytes, got %d", rec.Body.Len())
				}
			}
		})
	}
}
