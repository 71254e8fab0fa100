package presence

import (
	"math"
	"slices"
	"time"

	"github.com/kozaktomas/facewatch/internal/matcher"
)

// NearestUnknown scans tracked unknown entries for the one closest to
// embedding. It returns nil and +Inf when none are tracked.
func (t *Tracker) NearestUnknown(embedding []float64) (*Entry, float64) {
	var best *Entry
	bestDist := math.Inf(1)
	for _, key := range t.order {
		if key.Kind != Unknown {
			continue
		}
		e := t.entries[key]
		if e.Embedding == nil {
			continue
		}
		if d := matcher.Distance(embedding, e.Embedding); d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, bestDist
}

// ContinueUnknown folds a sighting into the nearest tracked unknown when it
// is within threshold. It returns the continued entry, or nil if the face
// should be treated as new.
func (t *Tracker) ContinueUnknown(embedding []float64, threshold float64, now time.Time) *Entry {
	e, d := t.NearestUnknown(embedding)
	if e == nil || d > threshold {
		return nil
	}
	t.touch(e, now)
	e.Embedding = slices.Clone(embedding)
	return e
}

// OpenUnknown tracks a new unknown under id.
func (t *Tracker) OpenUnknown(id string, embedding []float64, now time.Time) *Entry {
	e, _ := t.Open(Key{Kind: Unknown, ID: id}, now)
	e.Embedding = slices.Clone(embedding)
	return e
}
