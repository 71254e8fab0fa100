package matcher

import (
	"sort"

	"github.com/coder/hnsw"
)

// HNSW graph parameters for small face catalogs
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWCandidates is how many approximate neighbors are re-ranked exactly.
	HNSWCandidates = 8

	// hnswMinEntries is the catalog size below which a linear scan is used anyway.
	hnswMinEntries = 64
)

// hnswIndex narrows the linear scan to approximate nearest neighbors.
// Node keys are positions in the catalog's entry slice.
type hnswIndex struct {
	graph *hnsw.Graph[int]
}

// WithIndex returns a copy of the catalog that answers Best through an HNSW
// graph. Small catalogs keep the linear scan.
func (c *Catalog) WithIndex() *Catalog {
	if len(c.entries) < hnswMinEntries {
		return c
	}

	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.EuclideanDistance

	for i := range c.entries {
		g.Add(hnsw.MakeNode(i, c.entries[i].raw))
	}

	cp := *c
	cp.index = &hnswIndex{graph: g}
	return &cp
}

// Indexed reports whether the catalog searches through an HNSW graph.
func (c *Catalog) Indexed() bool {
	return c.index != nil
}

func (h *hnswIndex) best(c *Catalog, query []float64) Match {
	q := make([]float32, len(query))
	for i, x := range query {
		q[i] = float32(x)
	}

	k := min(HNSWCandidates, len(c.entries))
	neighbors := h.graph.Search(q, k)
	if len(neighbors) == 0 {
		return c.scan(query, nil)
	}

	positions := make([]int, len(neighbors))
	for i, n := range neighbors {
		positions[i] = n.Key
	}
	// Exact re-rank in catalog order keeps the earlier-entry tie-break.
	sort.Ints(positions)
	return c.scan(query, positions)
}
