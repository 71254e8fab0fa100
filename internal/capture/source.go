// Package capture acquires frames from a camera and prepares them for inference.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"sync"
)

// ErrNoFrame is returned by Read when the device produced no frame this time.
var ErrNoFrame = errors.New("no frame available")

// Source is an opened camera. Open returns no Source on failure, so callers
// retry Open. Read errors are transient and the caller keeps reading.
type Source interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// DeviceOpener opens a local capture device by index.
type DeviceOpener func(index int) (Source, error)

var (
	deviceMu     sync.RWMutex
	deviceOpener DeviceOpener
)

// RegisterDevice installs the local device backend. Called from init by
// builds that include one.
func RegisterDevice(open DeviceOpener) {
	deviceMu.Lock()
	defer deviceMu.Unlock()
	deviceOpener = open
}

// Open resolves a camera source spec: an http(s) URL serving JPEG/PNG
// snapshots, or device:N for a local device.
func Open(spec string) (Source, error) {
	switch {
	case strings.HasPrefix(spec, "http://"), strings.HasPrefix(spec, "https://"):
		return NewHTTPSource(spec, 0), nil
	case strings.HasPrefix(spec, "device:"):
		index, err := strconv.Atoi(strings.TrimPrefix(spec, "device:"))
		if err != nil || index < 0 {
			return nil, fmt.Errorf("invalid device index in %q", spec)
		}
		deviceMu.RLock()
		open := deviceOpener
		deviceMu.RUnlock()
		if open == nil {
			return nil, fmt.Errorf("camera source %q requires a build with the gocv tag", spec)
		}
		return open(index)
	case spec == "":
		return nil, errors.New("CAMERA_SOURCE is not set")
	default:
		return nil, fmt.Errorf("unsupported camera source %q", spec)
	}
}
