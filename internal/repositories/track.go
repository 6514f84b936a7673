package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// trackBatchSize is how many track inserts go into one transaction during
// a bulk replace. The Roon export regularly carries tens of thousands of
// rows, so an interrupted import keeps every committed batch.
const trackBatchSize = 10000

// TrackRepository bulk-loads the Roon track export.
//
// Track rows have no stable upstream identity, so each import replaces the
// table wholesale.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Replace clears the track table and reloads it from the export,
// committing every trackBatchSize rows.
func (r *TrackRepository) Replace(tracks []models.RoonTrack) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM roon_tracks"); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to clear tracks: %w", err)
	}

	query := `
		INSERT INTO roon_tracks (
			album_artist, album, disc_number, track_number, track_title,
			track_artists, composers, external_id, source, is_duplicate,
			is_hidden, tags
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var count int64
	for _, track := range tracks {
		_, err := tx.Exec(query,
			shared.Truncate(track.AlbumArtist, widthArtist),
			shared.Truncate(track.Album, widthTitle),
			track.DiscNumber,
			track.TrackNumber,
			shared.Truncate(track.TrackTitle, widthTitle),
			shared.Truncate(track.TrackArtists, widthPeople),
			shared.Truncate(track.Composers, widthPeople),
			shared.Truncate(track.ExternalID, widthExternalID),
			shared.Truncate(track.Source, widthSource),
			track.IsDuplicate,
			track.IsHidden,
			track.Tags,
		)
		if err != nil {
			tx.Rollback()
			return count, fmt.Errorf("failed to insert track %q: %w", track.TrackTitle, err)
		}

		count++
		if count%trackBatchSize == 0 {
			if err := tx.Commit(); err != nil {
				return count, fmt.Errorf("failed to commit track batch: %w", err)
			}
			tx, err = r.db.Begin()
			if err != nil {
				return count, fmt.Errorf("failed to begin transaction: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return count, fmt.Errorf("failed to commit tracks: %w", err)
	}

	return count, nil
}

// Count returns the number of track rows.
func (r *TrackRepository) Count() (int64, error) {
	return TableCount(r.db, "roon_tracks")
}
