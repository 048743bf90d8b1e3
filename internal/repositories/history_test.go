package repositories

import (
	"context"
	"testing"

	"github.com/nightq/nightq/internal/models"
	"github.com/nightq/nightq/internal/shared"
)

func testRepo(t *testing.T) *SongRepository {
	t.Helper()
	db, err := shared.NewDatabase(t.TempDir() + "/history.db")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return NewSongRepository(db)
}

func TestRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("Inserts New Song", func(t *testing.T) {
		repo := testRepo(t)

		err := repo.Record(ctx, models.Song{
			Title:       "Song A",
			Artist:      "Art",
			RequestedBy: "bob",
			Duration:    125,
		})
		if err != nil {
			t.Fatalf("record failed: %v", err)
		}

		entry, err := repo.Lookup(ctx, "Song A", "Art")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if entry == nil {
			t.Fatal("expected entry")
		}
		if entry.TimesSeen != 1 {
			t.Errorf("expected times_seen 1, got %d", entry.TimesSeen)
		}
		if entry.RequestedBy != "bob" {
			t.Errorf("expected requester bob, got %q", entry.RequestedBy)
		}
		if entry.Duration != 125 {
			t.Errorf("expected duration 125, got %d", entry.Duration)
		}
	})

	t.Run("Repeat Sighting Bumps Counter", func(t *testing.T) {
		repo := testRepo(t)
		song := models.Song{Title: "Song A", Artist: "Art", RequestedBy: "bob"}

		for i := 0; i < 3; i++ {
			if err := repo.Record(ctx, song); err != nil {
				t.Fatalf("record %d failed: %v", i, err)
			}
		}

		entry, err := repo.Lookup(ctx, "Song A", "Art")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if entry.TimesSeen != 3 {
			t.Errorf("expected times_seen 3, got %d", entry.TimesSeen)
		}

		entries, err := repo.Recent(ctx, 10)
		if err != nil {
			t.Fatalf("recent failed: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("expected 1 row, got %d", len(entries))
		}
	})

	t.Run("Repeat Sighting Updates Requester", func(t *testing.T) {
		repo := testRepo(t)

		repo.Record(ctx, models.Song{Title: "Song A", Artist: "Art", RequestedBy: "bob"})
		repo.Record(ctx, models.Song{Title: "Song A", Artist: "Art", RequestedBy: "alice"})

		entry, err := repo.Lookup(ctx, "Song A", "Art")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if entry.RequestedBy != "alice" {
			t.Errorf("expected latest requester, got %q", entry.RequestedBy)
		}
	})

	t.Run("Untitled Songs Are Ignored", func(t *testing.T) {
		repo := testRepo(t)

		if err := repo.Record(ctx, models.Song{Artist: "Art"}); err != nil {
			t.Fatalf("record failed: %v", err)
		}

		entries, err := repo.Recent(ctx, 10)
		if err != nil {
			t.Fatalf("recent failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected empty history, got %d rows", len(entries))
		}
	})
}

func TestRecent(t *testing.T) {
	ctx := context.Background()

	t.Run("Newest First", func(t *testing.T) {
		repo := testRepo(t)

		repo.Record(ctx, models.Song{Title: "Old", Artist: "A"})
		repo.Record(ctx, models.Song{Title: "New", Artist: "B"})

		entries, err := repo.Recent(ctx, 10)
		if err != nil {
			t.Fatalf("recent failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(entries))
		}
		if entries[0].LastSeenAt.Before(entries[1].LastSeenAt) {
			t.Error("expected newest first")
		}
	})

	t.Run("Limit Applies", func(t *testing.T) {
		repo := testRepo(t)

		for _, title := range []string{"A", "B", "C"} {
			repo.Record(ctx, models.Song{Title: title})
		}

		entries, err := repo.Recent(ctx, 2)
		if err != nil {
			t.Fatalf("recent failed: %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("expected 2 rows, got %d", len(entries))
		}
	})

	t.Run("Unknown Song Lookup Returns Nil", func(t *testing.T) {
		repo := testRepo(t)

		entry, err := repo.Lookup(ctx, "Nope", "Nobody")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if entry != nil {
			t.Errorf("expected nil, got %+v", entry)
		}
	})
}
