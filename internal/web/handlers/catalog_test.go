package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/database/memory"
	"github.com/kozaktomas/facewatch/internal/engine"
)

type fakeReloader struct {
	calls  int
	result engine.ReloadResult
	err    error
}

func (f *fakeReloader) ReloadCatalogs(ctx context.Context) (engine.ReloadResult, error) {
	f.calls++
	return f.result, f.err
}

func catalogStore() *memory.Store {
	store := memory.New()
	store.AddIdentity(database.CatalogKnown, database.Identity{ID: "u1", Name: "Alice Nováková", Embedding: []float32{1, 2, 3}})
	store.AddIdentity(database.CatalogKnown, database.Identity{ID: "u2", Name: "Bob Smith"})
	store.AddIdentity(database.CatalogFlagged, database.Identity{ID: "b1", Name: "Mallory", Note: "shoplifting", Embedding: []float32{0, 0, 1}})
	return store
}

func TestCatalogHandler_Identities(t *testing.T) {
	h := NewCatalogHandler(catalogStore(), &fakeReloader{})

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantIDs  []string
	}{
		{"default known", "", http.StatusOK, []string{"u1", "u2"}},
		{"flagged", "?catalog=flagged", http.StatusOK, []string{"b1"}},
		{"name filter ignores diacritics", "?name=novakova", http.StatusOK, []string{"u1"}},
		{"name filter no match", "?name=carol", http.StatusOK, []string{}},
		{"invalid catalog", "?catalog=vip", http.StatusBadRequest, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Identities(rec, httptest.NewRequest("GET", "/api/v1/identities"+tc.query, nil))

			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			var got []IdentityResponse
			decodeBody(t, rec, &got)
			if len(got) != len(tc.wantIDs) {
				t.Fatalf("expected %d identities, got %d", len(tc.wantIDs), len(got))
			}
			for i, id := range tc.wantIDs {
				if got[i].ID != id {
					t.Errorf("identity %d: expected %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}
}

func TestCatalogHandler_IdentitiesEmbeddingSummary(t *testing.T) {
	h := NewCatalogHandler(catalogStore(), &fakeReloader{})
	rec := httptest.NewRecorder()
	h.Identities(rec, httptest.NewRequest("GET", "/api/v1/identities", nil))

	var got []map[string]any
	decodeBody(t, rec, &got)
	if _, ok := got[0]["embedding"]; ok {
		t.Error("embedding must not be exposed")
	}
	if got[0]["has_embedding"] != true || got[0]["dim"] != float64(3) {
		t.Errorf("unexpected embedding summary: %v", got[0])
	}
	if got[1]["has_embedding"] != false {
		t.Errorf("expected has_embedding false for identity without embedding, got %v", got[1])
	}
}

func TestCatalogHandler_IdentitiesStoreError(t *testing.T) {
	store := catalogStore()
	store.ListIdentitiesError = errors.New("connection refused")
	h := NewCatalogHandler(store, &fakeReloader{})

	rec := httptest.NewRecorder()
	h.Identities(rec, httptest.NewRequest("GET", "/api/v1/identities", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestCatalogHandler_Reload(t *testing.T) {
	reloader := &fakeReloader{result: engine.ReloadResult{Known: 2, Flagged: 1, KnownSkipped: 1}}
	h := NewCatalogHandler(catalogStore(), reloader)

	rec := httptest.NewRecorder()
	h.Reload(rec, httptest.NewRequest("POST", "/api/v1/catalog/reload", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got engine.ReloadResult
	decodeBody(t, rec, &got)
	if got != reloader.result {
		t.Errorf("expected %+v, got %+v", reloader.result, got)
	}
	if reloader.calls != 1 {
		t.Errorf("expected one reload, got %d", reloader.calls)
	}
}

func TestCatalogHandler_ReloadError(t *testing.T) {
	h := NewCatalogHandler(catalogStore(), &fakeReloader{err: errors.New("db down")})

	rec := httptest.NewRecorder()
	h.Reload(rec, httptest.NewRequest("POST", "/api/v1/catalog/reload", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
