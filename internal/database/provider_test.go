package database

import "testing"

type stubStore struct{ Store }

func TestGetStore_PrefersPostgres(t *testing.T) {
	ResetBackends()
	defer ResetBackends()

	if _, err := GetStore(); err == nil {
		t.Fatal("expected error with no backend registered")
	}

	mem := &stubStore{}
	pg := &stubStore{}

	RegisterMemoryBackend(func() Store { return mem })
	got, err := GetStore()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != mem {
		t.Error("expected memory store before postgres is registered")
	}
	if IsInitialized() {
		t.Error("postgres should not be initialized")
	}

	RegisterPostgresBackend(func() Store { return pg })
	got, err = GetStore()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != pg {
		t.Error("expected postgres store once registered")
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultListLimit},
		{-5, DefaultListLimit},
		{10, 10},
		{MaxListLimit + 1, MaxListLimit},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCatalogValid(t *testing.T) {
	if !CatalogKnown.Valid() || !CatalogFlagged.Valid() {
		t.Error("built-in catalogs should be valid")
	}
	if Catalog("unknowns").Valid() {
		t.Error("unknowns is not a matchable catalog")
	}
}
