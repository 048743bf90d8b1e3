package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nightq/nightq/internal/models"
	"github.com/nightq/nightq/internal/shared"
)

// SongRepository records songs seen in the request queue.
type SongRepository struct {
	db *sql.DB
}

// NewSongRepository creates a new SongRepository with the given database connection
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

// Record stores a queue sighting of the song. Songs without a title are
// ignored. A song already known by title and artist has its counter and
// last-seen timestamp updated instead of gaining a second row.
func (r *SongRepository) Record(ctx context.Context, song models.Song) error {
	if song.Title == "" {
		return nil
	}

	now := time.Now()

	result, err := r.db.ExecContext(ctx, `
		UPDATE songs
		SET times_seen = times_seen + 1, requested_by = ?, last_seen_at = ?
		WHERE title = ? AND artist = ?
	`, song.RequestedBy, now, song.Title, song.Artist)
	if err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO songs (id, title, artist, requested_by, duration, times_seen, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
	`, shared.GenerateID(), song.Title, song.Artist, song.RequestedBy, song.Duration, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	return nil
}

// Recent returns the most recently seen songs, newest first. limit
// values below 1 fall back to 20.
func (r *SongRepository) Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, artist, requested_by, duration, times_seen, first_seen_at, last_seen_at
		FROM songs
		ORDER BY last_seen_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.Artist, &e.RequestedBy, &e.Duration, &e.TimesSeen, &e.FirstSeenAt, &e.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	return entries, nil
}

// Lookup returns the history entry for a title/artist pair, or nil when
// the song has never been seen.
func (r *SongRepository) Lookup(ctx context.Context, title, artist string) (*models.HistoryEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, artist, requested_by, duration, times_seen, first_seen_at, last_seen_at
		FROM songs
		WHERE title = ? AND artist = ?
	`, title, artist)

	var e models.HistoryEntry
	err := row.Scan(&e.ID, &e.Title, &e.Artist, &e.RequestedBy, &e.Duration, &e.TimesSeen, &e.FirstSeenAt, &e.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up song: %w", err)
	}

	return &e, nil
}
