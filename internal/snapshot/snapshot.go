// Package snapshot stores JPEG frames captured on first sightings and
// returns the web path under which they are served.
package snapshot

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Open for missing or invalid names.
var ErrNotFound = errors.New("snapshot not found")

// Store saves and serves snapshots
type Store interface {
	// Save stores a JPEG and returns its reference, e.g. /static/snapshots/<hex>.jpg
	Save(ctx context.Context, jpeg []byte) (string, error)
	// Open returns the snapshot with the given file name
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// newName returns a random file name.
func newName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ".jpg"
}

// validName accepts only names produced by newName.
func validName(name string) bool {
	if !strings.HasSuffix(name, ".jpg") || len(name) != 36 {
		return false
	}
	for _, r := range strings.TrimSuffix(name, ".jpg") {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func reference(prefix, name string) string {
	return path.Join("/", prefix, name)
}
