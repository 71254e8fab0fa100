// Package facematch matches identity names for catalog search.
package facematch

import (
	"strings"
	"unicode"

	"github.com/kozaktomas/facewatch/internal/database"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName normalizes a name for comparison (lowercase, no diacritics, spaces for dashes).
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// NameMatches reports whether every word of query appears in name, ignoring
// case and diacritics. An empty query matches everything.
func NameMatches(name, query string) bool {
	words := strings.Fields(NormalizePersonName(query))
	if len(words) == 0 {
		return true
	}
	normalized := NormalizePersonName(name)
	for _, w := range words {
		if !strings.Contains(normalized, w) {
			return false
		}
	}
	return true
}

// FilterIdentities returns the identities whose name matches query, in input order.
func FilterIdentities(idents []database.Identity, query string) []database.Identity {
	if strings.TrimSpace(query) == "" {
		return idents
	}
	out := make([]database.Identity, 0, len(idents))
	for _, ident := range idents {
		if NameMatches(ident.Name, query) {
			out = append(out, ident)
		}
	}
	return out
}
