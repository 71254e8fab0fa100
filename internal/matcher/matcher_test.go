package matcher

import (
	"fmt"
	"math"
	"testing"

	"github.com/kozaktomas/facewatch/internal/database"
)

func ident(id string, emb ...float32) database.Identity {
	return database.Identity{ID: id, Name: "name-" + id, Embedding: emb}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"3-4-5", []float64{0, 0}, []float64{3, 4}, 5},
		{"length mismatch", []float64{1}, []float64{1, 2}, math.Inf(1)},
		{"empty", nil, nil, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBest_PicksCloser(t *testing.T) {
	cat, _ := NewCatalog([]database.Identity{
		ident("far", 2, 0),
		ident("near", 0.5, 0),
	}, 2)

	m := cat.Best([]float64{0, 0})
	if m.Entry == nil || m.Entry.ID != "near" {
		t.Fatalf("expected near, got %+v", m.Entry)
	}
	if m.Distance != 0.5 {
		t.Errorf("expected distance 0.5, got %v", m.Distance)
	}
}

func TestBest_TieKeepsEarlierEntry(t *testing.T) {
	cat, _ := NewCatalog([]database.Identity{
		ident("first", 1, 0),
		ident("second", -1, 0),
	}, 2)

	m := cat.Best([]float64{0, 0})
	if m.Entry.ID != "first" {
		t.Errorf("expected tie to resolve to first, got %s", m.Entry.ID)
	}
}

func TestBest_EmptyCatalog(t *testing.T) {
	m := Empty.Best([]float64{0, 0})
	if m.Entry != nil {
		t.Error("expected no entry for empty catalog")
	}
	if m.Accepted(1.2) {
		t.Error("empty match must not be accepted")
	}
}

func TestAccepted_Threshold(t *testing.T) {
	e := &Entry{ID: "a"}
	tests := []struct {
		distance float64
		want     bool
	}{
		{0.4, true},
		{1.2, true},
		{1.2000001, false},
		{2.0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.distance), func(t *testing.T) {
			if got := (Match{Entry: e, Distance: tt.distance}).Accepted(1.2); got != tt.want {
				t.Errorf("Accepted(%v) = %v, want %v", tt.distance, got, tt.want)
			}
		})
	}
}

func TestNewCatalog_SkipsInvalid(t *testing.T) {
	nan := float32(math.NaN())
	cat, stats := NewCatalog([]database.Identity{
		ident("ok", 1, 2, 3),
		ident("none"),
		ident("short", 1, 2),
		ident("nan", 1, nan, 3),
		ident("ok", 9, 9, 9), // duplicate id keeps the first
	}, 3)

	if cat.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", cat.Len())
	}
	if stats.NoEmbedding != 1 || stats.WrongDimension != 1 || stats.NonFinite != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Skipped() != 3 {
		t.Errorf("expected 3 skipped, got %d", stats.Skipped())
	}
	e, ok := cat.Get("ok")
	if !ok || e.Embedding[0] != 1 {
		t.Errorf("expected first 'ok' entry, got %+v", e)
	}
}

func TestNewCatalog_AdoptsFirstDimension(t *testing.T) {
	cat, stats := NewCatalog([]database.Identity{
		ident("a", 1, 2),
		ident("b", 1, 2, 3),
	}, 0)

	if cat.Dim() != 2 || cat.Len() != 1 || stats.WrongDimension != 1 {
		t.Errorf("expected dim 2 with one entry, got dim=%d len=%d stats=%+v", cat.Dim(), cat.Len(), stats)
	}
}

func TestWithIndex_SmallCatalogStaysLinear(t *testing.T) {
	cat, _ := NewCatalog([]database.Identity{ident("a", 1, 0)}, 2)
	if cat.WithIndex().Indexed() {
		t.Error("small catalogs should not build an index")
	}
}

func TestWithIndex_FindsExactMatch(t *testing.T) {
	var idents []database.Identity
	for i := range 100 {
		idents = append(idents, ident(fmt.Sprintf("id-%03d", i), float32(i), float32(i%7), float32(i%3)))
	}
	cat, _ := NewCatalog(idents, 3)
	indexed := cat.WithIndex()
	if !indexed.Indexed() {
		t.Fatal("expected index for 100 entries")
	}

	m := indexed.Best([]float64{42, 0, 0})
	if m.Entry == nil || m.Entry.ID != "id-042" {
		t.Fatalf("expected id-042, got %+v", m.Entry)
	}
	if m.Distance != 0 {
		t.Errorf("expected exact distance 0, got %v", m.Distance)
	}
}

func TestBest_WrongDimension(t *testing.T) {
	var idents []database.Identity
	for i := range 70 {
		idents = append(idents, ident(fmt.Sprintf("id-%03d", i), float32(i), 1, 2, 3))
	}
	cat, _ := NewCatalog(idents, 4)

	tests := []struct {
		name string
		cat  *Catalog
	}{
		{"linear", cat},
		{"indexed", cat.WithIndex()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := tc.cat.Best([]float64{1, 2, 3})
			if m.Entry != nil {
				t.Errorf("expected no match, got %s", m.Entry.ID)
			}
			if !math.IsInf(m.Distance, 1) {
				t.Errorf("expected +Inf distance, got %v", m.Distance)
			}
			if m.Accepted(1e9) {
				t.Error("wrong-dimension query must not be accepted")
			}
		})
	}
}
