package database

// Listing limits shared by the read side of every backend.
const (
	// DefaultListLimit is used when a caller passes a non-positive limit
	DefaultListLimit = 100

	// MaxListLimit caps any single list query
	MaxListLimit = 1000
)

// CatalogChangedChannel is the PostgreSQL NOTIFY channel fired when users or
// bad_people rows change.
const CatalogChangedChannel = "catalog_changed"

// ClampLimit normalizes a caller-provided list limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
