package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// playBatchSize is how many play-history inserts go into one transaction
// during a bulk replace.
const playBatchSize = 5000

// PlayHistoryRepository bulk-loads the Roon play-history export.
type PlayHistoryRepository struct {
	db *sql.DB
}

// NewPlayHistoryRepository creates a new PlayHistoryRepository with the given database connection
func NewPlayHistoryRepository(db *sql.DB) *PlayHistoryRepository {
	return &PlayHistoryRepository{db: db}
}

// Replace clears the play-history table and reloads it from the export,
// committing every playBatchSize rows.
func (r *PlayHistoryRepository) Replace(entries []models.PlayHistoryEntry) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM roon_play_history"); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to clear play history: %w", err)
	}

	query := `
		INSERT INTO roon_play_history (
			album_artist, album, disc_number, track_number, track_title,
			track_artists, composers, external_id, source, played_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var count int64
	for _, entry := range entries {
		_, err := tx.Exec(query,
			shared.Truncate(entry.AlbumArtist, widthArtist),
			shared.Truncate(entry.Album, widthTitle),
			entry.DiscNumber,
			entry.TrackNumber,
			shared.Truncate(entry.TrackTitle, widthTitle),
			shared.Truncate(entry.TrackArtists, widthPeople),
			shared.Truncate(entry.Composers, widthPeople),
			shared.Truncate(entry.ExternalID, widthExternalID),
			shared.Truncate(entry.Source, widthSource),
			entry.PlayedAt,
		)
		if err != nil {
			tx.Rollback()
			return count, fmt.Errorf("failed to insert play entry %q: %w", entry.TrackTitle, err)
		}

		count++
		if count%playBatchSize == 0 {
			if err := tx.Commit(); err != nil {
				return count, fmt.Errorf("failed to commit play batch: %w", err)
			}
			tx, err = r.db.Begin()
			if err != nil {
				return count, fmt.Errorf("failed to begin transaction: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return count, fmt.Errorf("failed to commit play history: %w", err)
	}

	return count, nil
}

// Count returns the number of play-history rows.
func (r *PlayHistoryRepository) Count() (int64, error) {
	return TableCount(r.db, "roon_play_history")
}

// ListeningRepository persists the append-only listening log kept by the
// user, separate from the bulk-imported play history.
type ListeningRepository struct {
	db *sql.DB
}

// NewListeningRepository creates a new ListeningRepository with the given database connection
func NewListeningRepository(db *sql.DB) *ListeningRepository {
	return &ListeningRepository{db: db}
}

// Log appends one listening event and returns its id. When the source
// includes discogs, the collection rows sharing the event's match key get
// their last_listened stamped as well.
func (r *ListeningRepository) Log(entry *models.ListeningEntry) (int64, error) {
	if entry.Source == "" {
		entry.Source = "both"
	}

	artist := shared.Truncate(entry.Artist, widthArtist)
	title := shared.Truncate(entry.AlbumTitle, widthTitle)

	query := `
		INSERT INTO listening_history (artist, album_title, source, listened_at, notes)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query, artist, title, entry.Source, entry.ListenedAt, entry.Notes)
	if err != nil {
		return 0, fmt.Errorf("failed to log listening event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted id: %w", err)
	}

	if entry.Source == "discogs" || entry.Source == "both" {
		touch := `
			UPDATE discogs_collection
			SET last_listened = ?, updated_at = CURRENT_TIMESTAMP
			WHERE match_key = ?
		`
		if _, err := r.db.Exec(touch, entry.ListenedAt, shared.MatchKey(artist, title)); err != nil {
			return id, fmt.Errorf("event logged but failed to stamp collection: %w", err)
		}
	}

	return id, nil
}

// Recent retrieves the latest listening events, newest first.
func (r *ListeningRepository) Recent(limit int) ([]models.ListeningEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, artist, album_title, source, listened_at, notes, created_at
		FROM listening_history
		ORDER BY listened_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query listening history: %w", err)
	}
	defer rows.Close()

	var entries []models.ListeningEntry
	for rows.Next() {
		var (
			entry models.ListeningEntry
			notes sql.NullString
		)

		err := rows.Scan(&entry.ID, &entry.Artist, &entry.AlbumTitle, &entry.Source,
			&entry.ListenedAt, &notes, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listening entry: %w", err)
		}

		entry.Notes = notes.String
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// Count returns the number of listening-history rows.
func (r *ListeningRepository) Count() (int64, error) {
	return TableCount(r.db, "listening_history")
}
