// Package matcher finds the nearest catalog identity to a face embedding.
//
// A Catalog is immutable once built. The engine swaps whole catalogs on
// reload, so a search never observes a mix of old and new entries.
package matcher

import (
	"math"

	"github.com/kozaktomas/facewatch/internal/database"
	"gonum.org/v1/gonum/floats"
)

// Entry is one matchable identity
type Entry struct {
	ID        string
	Name      string
	Note      string
	Embedding []float64
	raw       []float32
}

// Match is the best candidate for a query. Entry is nil when the catalog is empty.
type Match struct {
	Entry    *Entry
	Distance float64
}

// Accepted reports whether the match is within threshold.
func (m Match) Accepted(threshold float64) bool {
	return m.Entry != nil && m.Distance <= threshold
}

// LoadStats summarizes catalog construction.
type LoadStats struct {
	Loaded         int
	NoEmbedding    int
	WrongDimension int
	NonFinite      int
}

// Skipped returns the number of identities left out of the catalog.
func (s LoadStats) Skipped() int {
	return s.NoEmbedding + s.WrongDimension + s.NonFinite
}

// Catalog is an ordered, read-only set of entries
type Catalog struct {
	entries []Entry
	byID    map[string]int
	dim     int
	index   *hnswIndex
}

// Empty is a catalog with no entries.
var Empty = &Catalog{byID: map[string]int{}}

// NewCatalog builds a catalog from identities in the given order.
// Identities without an embedding, with a dimension other than dim, or with
// NaN/Inf components are skipped. A dim <= 0 adopts the first valid dimension.
func NewCatalog(idents []database.Identity, dim int) (*Catalog, LoadStats) {
	var stats LoadStats
	c := &Catalog{
		entries: make([]Entry, 0, len(idents)),
		byID:    make(map[string]int, len(idents)),
		dim:     dim,
	}

	for _, ident := range idents {
		if len(ident.Embedding) == 0 {
			stats.NoEmbedding++
			continue
		}
		if c.dim <= 0 {
			c.dim = len(ident.Embedding)
		}
		if len(ident.Embedding) != c.dim {
			stats.WrongDimension++
			continue
		}
		vec := ToFloat64(ident.Embedding)
		if !Finite(vec) {
			stats.NonFinite++
			continue
		}
		if _, dup := c.byID[ident.ID]; dup {
			continue
		}
		c.byID[ident.ID] = len(c.entries)
		c.entries = append(c.entries, Entry{
			ID:        ident.ID,
			Name:      ident.Name,
			Note:      ident.Note,
			Embedding: vec,
			raw:       ident.Embedding,
		})
	}

	stats.Loaded = len(c.entries)
	return c, stats
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Dim returns the embedding dimension, or 0 for an empty catalog built without one.
func (c *Catalog) Dim() int {
	return c.dim
}

// Get returns the entry with the given id.
func (c *Catalog) Get(id string) (*Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.entries[i], true
}

// Entries returns the entries in catalog order. Callers must not modify them.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Best returns the nearest entry to query. A candidate replaces the current
// best only if strictly closer, so ties resolve to the earlier entry.
// A query of the wrong dimension matches nothing.
func (c *Catalog) Best(query []float64) Match {
	if len(query) != c.dim {
		return Match{Distance: math.Inf(1)}
	}
	if c.index != nil {
		return c.index.best(c, query)
	}
	return c.scan(query, nil)
}

// scan runs the linear search over all entries, or over the given positions
// which must be in ascending order.
func (c *Catalog) scan(query []float64, positions []int) Match {
	best := Match{Distance: math.Inf(1)}
	consider := func(i int) {
		if d := Distance(query, c.entries[i].Embedding); d < best.Distance {
			best.Distance = d
			best.Entry = &c.entries[i]
		}
	}
	if positions == nil {
		for i := range c.entries {
			consider(i)
		}
	} else {
		for _, i := range positions {
			consider(i)
		}
	}
	return best
}

// Distance is the Euclidean distance between a and b.
// Vectors of different length are infinitely far apart.
func Distance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	return floats.Distance(a, b, 2)
}

// ToFloat64 widens an embedding for distance computation.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Finite reports whether every component is a real number.
func Finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
