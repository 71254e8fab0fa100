package presence

import "github.com/kozaktomas/facewatch/internal/matcher"

// Classification is the outcome of matching one face against both catalogs.
type Classification struct {
	Kind  Kind
	Match matcher.Match // zero for Unknown
}

// Classify applies the fixed priority: flagged beats known beats unknown.
func Classify(embedding []float64, flagged, known *matcher.Catalog, threshold float64) Classification {
	if m := flagged.Best(embedding); m.Accepted(threshold) {
		return Classification{Kind: Flagged, Match: m}
	}
	if m := known.Best(embedding); m.Accepted(threshold) {
		return Classification{Kind: Known, Match: m}
	}
	return Classification{Kind: Unknown}
}
