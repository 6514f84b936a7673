package repositories

import (
	"database/sql"
	"fmt"
)

// TrackIndexRepository owns the derived cross-source track index.
//
// The index is disposable: nothing writes to it except Rebuild, and every
// rebuild starts from an empty table.
type TrackIndexRepository struct {
	db *sql.DB
}

// NewTrackIndexRepository creates a new TrackIndexRepository with the given database connection
func NewTrackIndexRepository(db *sql.DB) *TrackIndexRepository {
	return &TrackIndexRepository{db: db}
}

// Rebuild drops the index and repopulates it from the Roon track table and
// the Discogs track table (joined through the owning release for artist and
// album text). Rows with empty titles are filtered out. Returns the total
// row count and the distinct-title count.
func (r *TrackIndexRepository) Rebuild() (int64, int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM track_index"); err != nil {
		return 0, 0, fmt.Errorf("failed to clear track index: %w", err)
	}

	fromRoon := `
		INSERT INTO track_index (track_title, album_title, artist, source)
		SELECT track_title, album, album_artist, 'roon'
		FROM roon_tracks
		WHERE track_title IS NOT NULL AND TRIM(track_title) != ''
	`
	if _, err := tx.Exec(fromRoon); err != nil {
		return 0, 0, fmt.Errorf("failed to index roon tracks: %w", err)
	}

	fromDiscogs := `
		INSERT INTO track_index (track_title, album_title, artist, source)
		SELECT t.title, c.album_title, c.artist, 'discogs'
		FROM discogs_tracks t
		INNER JOIN discogs_collection c ON c.id = t.collection_id
		WHERE t.title IS NOT NULL AND TRIM(t.title) != ''
	`
	if _, err := tx.Exec(fromDiscogs); err != nil {
		return 0, 0, fmt.Errorf("failed to index discogs tracks: %w", err)
	}

	var total, distinct int64
	err = tx.QueryRow("SELECT COUNT(*), COUNT(DISTINCT track_title) FROM track_index").Scan(&total, &distinct)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count track index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit track index: %w", err)
	}

	return total, distinct, nil
}

// Count returns the number of index rows.
func (r *TrackIndexRepository) Count() (int64, error) {
	return TableCount(r.db, "track_index")
}
