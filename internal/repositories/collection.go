package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// CollectionRepository persists the Discogs collection and the per-release
// track lists hanging off it.
//
// Collection rows are never deleted: releases that disappear upstream keep
// their row with in_collection cleared, preserving listening history and
// notes for things that were sold or re-gifted.
type CollectionRepository struct {
	db *sql.DB
}

// NewCollectionRepository creates a new CollectionRepository with the given database connection
func NewCollectionRepository(db *sql.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Upsert inserts a release keyed by its external release id. When the row
// already exists only the mutable fields move (rating, marketplace stats,
// conditions); identity columns and the user-owned fields (last_listened,
// notes) stay untouched. The returned flag reports whether an existing row
// was updated rather than inserted.
func (r *CollectionRepository) Upsert(item *models.CollectionItem) (int64, bool, error) {
	item.Artist = shared.Truncate(item.Artist, widthArtist)
	item.AlbumTitle = shared.Truncate(item.AlbumTitle, widthTitle)
	item.Label = shared.Truncate(item.Label, widthLabel)
	item.Format = shared.Truncate(item.Format, widthFormat)
	item.MediaCondition = shared.Truncate(item.MediaCondition, widthCondition)
	item.SleeveCondition = shared.Truncate(item.SleeveCondition, widthCondition)
	item.ArtistNorm = shared.Normalize(item.Artist)
	item.AlbumNorm = shared.Normalize(item.AlbumTitle)
	item.MatchKey = shared.MatchKey(item.Artist, item.AlbumTitle)

	var existingID int64
	err := r.db.QueryRow("SELECT id FROM discogs_collection WHERE release_id = ?", item.ReleaseID).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return 0, false, fmt.Errorf("failed to check for existing release: %w", err)
	}
	updated := err == nil

	query := `
		INSERT INTO discogs_collection (
			release_id, instance_id, artist, album_title, year, label, format,
			media_condition, sleeve_condition, date_added, rating, num_for_sale,
			lowest_price, artist_norm, album_norm, match_key, in_collection
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (release_id) DO UPDATE SET
			instance_id = excluded.instance_id,
			rating = excluded.rating,
			num_for_sale = excluded.num_for_sale,
			lowest_price = excluded.lowest_price,
			media_condition = excluded.media_condition,
			sleeve_condition = excluded.sleeve_condition,
			in_collection = 1,
			updated_at = CURRENT_TIMESTAMP
	`

	result, err := r.db.Exec(query,
		item.ReleaseID,
		item.InstanceID,
		item.Artist,
		item.AlbumTitle,
		item.Year,
		item.Label,
		item.Format,
		item.MediaCondition,
		item.SleeveCondition,
		item.DateAdded,
		item.Rating,
		item.NumForSale,
		item.LowestPrice,
		item.ArtistNorm,
		item.AlbumNorm,
		item.MatchKey,
	)
	if err != nil {
		return 0, false, fmt.Errorf("failed to upsert release %d: %w", item.ReleaseID, err)
	}

	if updated {
		return existingID, true, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get inserted id: %w", err)
	}

	return id, false, nil
}

// ReplaceTracks swaps out the track list of one release.
func (r *CollectionRepository) ReplaceTracks(collectionID int64, tracks []models.CollectionTrack) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM discogs_tracks WHERE collection_id = ?", collectionID); err != nil {
		return 0, fmt.Errorf("failed to clear tracks for release: %w", err)
	}

	query := `
		INSERT INTO discogs_tracks (collection_id, position, title, duration, artists, extra_artists)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var count int64
	for _, track := range tracks {
		_, err := tx.Exec(query,
			collectionID,
			shared.Truncate(track.Position, widthPosition),
			shared.Truncate(track.Title, widthTitle),
			shared.Truncate(track.Duration, widthDuration),
			shared.Truncate(track.Artists, widthPeople),
			shared.Truncate(track.ExtraArtists, widthPeople),
		)
		if err != nil {
			return count, fmt.Errorf("failed to insert track %q: %w", track.Title, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return count, fmt.Errorf("failed to commit tracks: %w", err)
	}

	return count, nil
}

// MarkAllNotInCollection clears the in_collection flag on every row. The
// collection sync calls this before upserting so releases missing from the
// upstream snapshot end up flagged as no longer owned.
func (r *CollectionRepository) MarkAllNotInCollection() (int64, error) {
	result, err := r.db.Exec("UPDATE discogs_collection SET in_collection = 0 WHERE in_collection = 1")
	if err != nil {
		return 0, fmt.Errorf("failed to clear in_collection flags: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

// Get retrieves a collection row by id.
func (r *CollectionRepository) Get(id int64) (*models.CollectionItem, error) {
	query := selectCollection + " WHERE id = ?"

	item, err := r.scan(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("release not found: %d", id)
	}
	if err != nil {
		return nil, err
	}

	return item, nil
}

// FindByMatchKey retrieves the first collection row with the given match
// key, or nil when the album is not in the collection.
func (r *CollectionRepository) FindByMatchKey(matchKey string) (*models.CollectionItem, error) {
	query := selectCollection + " WHERE match_key = ? ORDER BY id ASC LIMIT 1"

	item, err := r.scan(r.db.QueryRow(query, matchKey))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return item, nil
}

// List retrieves every collection row, including releases no longer owned,
// ordered for stable export output.
func (r *CollectionRepository) List() ([]models.CollectionItem, error) {
	query := selectCollection + " ORDER BY artist, album_title"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	defer rows.Close()

	var items []models.CollectionItem
	for rows.Next() {
		item, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// SetLastListened stamps when a release was last played.
func (r *CollectionRepository) SetLastListened(id int64, at time.Time) error {
	return r.pointUpdate(id, "last_listened = ?", at)
}

// SetInCollection flips whether a release is currently owned.
func (r *CollectionRepository) SetInCollection(id int64, owned bool) error {
	return r.pointUpdate(id, "in_collection = ?", owned)
}

// SetNotes replaces the free-text notes on a release.
func (r *CollectionRepository) SetNotes(id int64, notes string) error {
	return r.pointUpdate(id, "notes = ?", notes)
}

// Count returns the number of collection rows, including releases no
// longer owned.
func (r *CollectionRepository) Count() (int64, error) {
	return TableCount(r.db, "discogs_collection")
}

func (r *CollectionRepository) pointUpdate(id int64, assignment string, value any) error {
	query := fmt.Sprintf("UPDATE discogs_collection SET %s, updated_at = ? WHERE id = ?", assignment)

	result, err := r.db.Exec(query, value, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update release: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("release not found: %d", id)
	}

	return nil
}

const selectCollection = `
	SELECT id, release_id, instance_id, artist, album_title, year, label, format,
		media_condition, sleeve_condition, date_added, rating, num_for_sale,
		lowest_price, artist_norm, album_norm, match_key, last_listened, notes,
		in_collection, created_at, updated_at
	FROM discogs_collection`

func (r *CollectionRepository) scan(row rowScanner) (*models.CollectionItem, error) {
	var (
		item            models.CollectionItem
		instanceID      sql.NullInt64
		year            sql.NullInt64
		label           sql.NullString
		format          sql.NullString
		mediaCondition  sql.NullString
		sleeveCondition sql.NullString
		dateAdded       sql.NullTime
		rating          sql.NullInt64
		numForSale      sql.NullInt64
		lowestPrice     sql.NullFloat64
		artistNorm      sql.NullString
		albumNorm       sql.NullString
		matchKey        sql.NullString
		lastListened    sql.NullTime
		notes           sql.NullString
	)

	err := row.Scan(
		&item.ID, &item.ReleaseID, &instanceID, &item.Artist, &item.AlbumTitle,
		&year, &label, &format, &mediaCondition, &sleeveCondition, &dateAdded,
		&rating, &numForSale, &lowestPrice, &artistNorm, &albumNorm, &matchKey,
		&lastListened, &notes, &item.InCollection, &item.CreatedAt, &item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan release: %w", err)
	}

	item.InstanceID = instanceID.Int64
	item.Year = year.Int64
	item.Label = label.String
	item.Format = format.String
	item.MediaCondition = mediaCondition.String
	item.SleeveCondition = sleeveCondition.String
	item.Rating = rating.Int64
	item.ArtistNorm = artistNorm.String
	item.AlbumNorm = albumNorm.String
	item.MatchKey = matchKey.String
	item.Notes = notes.String
	if dateAdded.Valid {
		item.DateAdded = &dateAdded.Time
	}
	if numForSale.Valid {
		item.NumForSale = &numForSale.Int64
	}
	if lowestPrice.Valid {
		item.LowestPrice = &lowestPrice.Float64
	}
	if lastListened.Valid {
		item.LastListened = &lastListened.Time
	}

	return &item, nil
}
