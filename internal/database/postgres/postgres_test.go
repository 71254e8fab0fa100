//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(ctx, cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}
	return pool, cleanup
}

func TestMigrationsIdempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	applied, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 3 {
		t.Errorf("expected 3 migrations, got %v", applied)
	}
}

func TestStore(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var aliceID string
	t.Run("ListIdentities", func(t *testing.T) {
		_, err := pool.exec(ctx, `
			INSERT INTO users (name, note, embedding, created_at) VALUES
				('Alice', 'staff', '[0.1,0.2,0.3]', '2024-01-01T00:00:00Z'),
				('Nobody', '', NULL, '2024-01-02T00:00:00Z')`)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := pool.exec(ctx, `INSERT INTO bad_people (name, reason, embedding) VALUES ('Mallory', 'theft', '[1,1,1]')`); err != nil {
			t.Fatal(err)
		}

		known, err := store.ListIdentities(ctx, database.CatalogKnown)
		if err != nil {
			t.Fatal(err)
		}
		if len(known) != 2 || known[0].Name != "Alice" || len(known[0].Embedding) != 3 || known[1].Embedding != nil {
			t.Fatalf("unexpected known catalog: %+v", known)
		}
		aliceID = known[0].ID

		flagged, err := store.ListIdentities(ctx, database.CatalogFlagged)
		if err != nil {
			t.Fatal(err)
		}
		if len(flagged) != 1 || flagged[0].Note != "theft" {
			t.Errorf("unexpected flagged catalog: %+v", flagged)
		}
	})

	t.Run("PresenceLifecycle", func(t *testing.T) {
		entry := day.Add(9 * time.Hour)
		id, err := store.OpenPresenceEvent(ctx, database.PresenceEvent{IdentityID: aliceID, Kind: database.KindKnown, EntryTime: entry})
		if err != nil {
			t.Fatal(err)
		}

		open, err := store.ListPresenceEvents(ctx, database.PresenceFilter{OpenOnly: true})
		if err != nil || len(open) != 1 {
			t.Fatalf("expected one open event, got %v %v", open, err)
		}

		if err := store.ClosePresenceEvent(ctx, id, entry.Add(120*time.Second), 120); err != nil {
			t.Fatal(err)
		}
		if err := store.ClosePresenceEvent(ctx, 999999, entry, 0); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		events, err := store.ListPresenceEvents(ctx, database.PresenceFilter{Kind: database.KindKnown, IdentityID: aliceID})
		if err != nil || len(events) != 1 || !events[0].Closed() {
			t.Fatalf("expected closed event, got %+v %v", events, err)
		}
	})

	t.Run("Alerts", func(t *testing.T) {
		if _, err := store.RecordAlert(ctx, database.AlertEvent{IdentityID: "b1", Name: "Mallory", Reason: "theft", DetectedAt: day}); err != nil {
			t.Fatal(err)
		}
		alerts, err := store.ListAlerts(ctx, 10)
		if err != nil || len(alerts) != 1 || alerts[0].Reason != "theft" {
			t.Errorf("unexpected alerts %+v %v", alerts, err)
		}
	})

	t.Run("Unknowns", func(t *testing.T) {
		id, err := store.CreateUnknown(ctx, database.UnknownRecord{
			ImagePath: "/static/snapshots/a.jpg",
			Embedding: []float32{1, 2, 3},
			FirstSeen: day,
			LastSeen:  day,
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := store.TouchUnknown(ctx, id, day.Add(time.Minute)); err != nil {
			t.Fatal(err)
		}
		got, err := store.GetUnknown(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if !got.LastSeen.Equal(day.Add(time.Minute)) || len(got.Embedding) != 3 {
			t.Errorf("unexpected unknown %+v", got)
		}
		if _, err := store.GetUnknown(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetUnknown(ctx, "not-a-uuid"); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("expected ErrNotFound for malformed id, got %v", err)
		}
	})

	t.Run("AttendanceUpsert", func(t *testing.T) {
		closed, err := store.ClosedPresenceEvents(ctx, day, day.AddDate(0, 0, 1))
		if err != nil || len(closed) != 1 {
			t.Fatalf("expected one closed event, got %v %v", closed, err)
		}

		rec := database.AttendanceRecord{Date: day, IdentityID: aliceID, TotalDurationSeconds: 120, FirstSeen: day, LastSeen: day}
		for i := 0; i < 2; i++ {
			if err := store.UpsertAttendance(ctx, rec); err != nil {
				t.Fatal(err)
			}
		}
		rec.TotalDurationSeconds = 200
		if err := store.UpsertAttendance(ctx, rec); err != nil {
			t.Fatal(err)
		}

		recs, err := store.ListAttendance(ctx, day)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 1 || recs[0].TotalDurationSeconds != 200 {
			t.Errorf("expected one overwritten record, got %+v", recs)
		}
	})
}

func TestCatalogListener(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := NewCatalogListener(pool.URL()).WatchCatalogs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pool.exec(ctx, `INSERT INTO bad_people (name) VALUES ('Eve')`); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changes:
	case <-time.After(10 * time.Second):
		t.Fatal("no change notification received")
	}

	cancel()
	for range changes {
	}
}
