package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facewatch/internal/engine"
)

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// fakeLive is a static LiveView
type fakeLive struct {
	active []engine.ActivePresence
	frame  *engine.Frame
}

func (f *fakeLive) Active() []engine.ActivePresence {
	if f.active == nil {
		return []engine.ActivePresence{}
	}
	return f.active
}

func (f *fakeLive) LastFrame() *engine.Frame {
	return f.frame
}

// decodeBody decodes a JSON response into v, failing the test on error.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
