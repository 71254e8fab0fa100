package snapshot

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"testing"
)

func TestLocalStore_SaveAndOpen(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/static/snapshots")
	if err != nil {
		t.Fatal(err)
	}

	ref, err := s.Save(context.Background(), []byte("jpegdata"))
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if !strings.HasPrefix(ref, "/static/snapshots/") || !strings.HasSuffix(ref, ".jpg") {
		t.Errorf("unexpected reference %q", ref)
	}

	rc, err := s.Open(context.Background(), path.Base(ref))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "jpegdata" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestLocalStore_UniqueNames(t *testing.T) {
	s, _ := NewLocalStore(t.TempDir(), "/s")
	a, _ := s.Save(context.Background(), []byte("a"))
	b, _ := s.Save(context.Background(), []byte("b"))
	if a == b {
		t.Error("expected distinct references")
	}
}

func TestLocalStore_OpenRejectsBadNames(t *testing.T) {
	s, _ := NewLocalStore(t.TempDir(), "/s")
	names := []string{
		"../../etc/passwd",
		"abc.jpg",
		"0123456789abcdef0123456789abcdef.png",
		"0123456789ABCDEF0123456789ABCDEF.jpg",
	}
	for _, name := range names {
		if _, err := s.Open(context.Background(), name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Open(%q) = %v, want ErrNotFound", name, err)
		}
	}

	missing := "0123456789abcdef0123456789abcdef.jpg"
	if _, err := s.Open(context.Background(), missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing file, got %v", err)
	}
}

func TestNewName(t *testing.T) {
	if n := newName(); !validName(n) {
		t.Errorf("generated name %q should be valid", n)
	}
}

func TestReference(t *testing.T) {
	if got := reference("static/snapshots", "x.jpg"); got != "/static/snapshots/x.jpg" {
		t.Errorf("unexpected reference %q", got)
	}
}
