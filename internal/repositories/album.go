package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// albumBatchSize is how many album inserts go into one transaction during
// a bulk replace.
const albumBatchSize = 100

// AlbumRepository persists the Roon album listing.
//
// The listing is a wholesale snapshot: Replace clears the table and reloads
// it, and the physical-duplicate flags are re-derived afterwards by the tag
// sync. Albums that share an (artist, title) pair collapse into one row.
type AlbumRepository struct {
	db *sql.DB
}

// NewAlbumRepository creates a new AlbumRepository with the given database connection
func NewAlbumRepository(db *sql.DB) *AlbumRepository {
	return &AlbumRepository{db: db}
}

// Replace clears the album table and reloads it from the given snapshot,
// committing every albumBatchSize rows so an interrupted load keeps its
// prefix. Returns the number of albums processed.
func (r *AlbumRepository) Replace(albums []models.RoonAlbum) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM roon_albums"); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to clear albums: %w", err)
	}

	query := `
		INSERT INTO roon_albums (album_title, artist, image_key, item_key, artist_norm, album_norm, match_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (artist, album_title) DO UPDATE SET
			image_key = excluded.image_key,
			item_key = excluded.item_key,
			updated_at = CURRENT_TIMESTAMP
	`

	var count int64
	for _, album := range albums {
		artist := shared.Truncate(album.Artist, widthArtist)
		title := shared.Truncate(album.AlbumTitle, widthTitle)

		_, err := tx.Exec(query,
			title,
			artist,
			shared.Truncate(album.ImageKey, widthImageKey),
			shared.Truncate(album.ItemKey, widthItemKey),
			shared.Normalize(artist),
			shared.Normalize(title),
			shared.MatchKey(artist, title),
		)
		if err != nil {
			tx.Rollback()
			return count, fmt.Errorf("failed to insert album %q: %w", album.AlbumTitle, err)
		}

		count++
		if count%albumBatchSize == 0 {
			if err := tx.Commit(); err != nil {
				return count, fmt.Errorf("failed to commit album batch: %w", err)
			}
			tx, err = r.db.Begin()
			if err != nil {
				return count, fmt.Errorf("failed to begin transaction: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return count, fmt.Errorf("failed to commit albums: %w", err)
	}

	return count, nil
}

// EnsureDupeColumns adds the physical-duplicate columns when a database
// created before they existed is in use. No-op otherwise.
func (r *AlbumRepository) EnsureDupeColumns() error {
	rows, err := r.db.Query("PRAGMA table_info(roon_albums)")
	if err != nil {
		return fmt.Errorf("failed to inspect roon_albums: %w", err)
	}
	defer rows.Close()

	existing := map[string]bool{}
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			primary int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &primary); err != nil {
			return fmt.Errorf("failed to scan column info: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}

	if !existing["is_physical_dupe"] {
		if _, err := r.db.Exec("ALTER TABLE roon_albums ADD COLUMN is_physical_dupe INTEGER NOT NULL DEFAULT 0"); err != nil {
			return fmt.Errorf("failed to add is_physical_dupe column: %w", err)
		}
	}
	if !existing["physical_tag"] {
		if _, err := r.db.Exec("ALTER TABLE roon_albums ADD COLUMN physical_tag TEXT"); err != nil {
			return fmt.Errorf("failed to add physical_tag column: %w", err)
		}
	}

	return nil
}

// ResetDupeFlags clears every physical-duplicate flag so the tag sync can
// re-derive them from the current tag membership.
func (r *AlbumRepository) ResetDupeFlags() (int64, error) {
	query := `
		UPDATE roon_albums
		SET is_physical_dupe = 0, physical_tag = NULL
		WHERE is_physical_dupe = 1 OR physical_tag IS NOT NULL
	`

	result, err := r.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("failed to reset dupe flags: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

// MarkPhysicalDupe flags every album whose title matches, ignoring case.
// Title-only matching is looser than the match key used elsewhere and can
// flag same-titled albums by different artists; the flags are advisory.
// Returns how many rows matched, zero when the tagged album is not in the
// library listing.
func (r *AlbumRepository) MarkPhysicalDupe(title, tag string) (int64, error) {
	query := `
		UPDATE roon_albums
		SET is_physical_dupe = 1, physical_tag = ?, updated_at = ?
		WHERE LOWER(album_title) = LOWER(?)
	`

	result, err := r.db.Exec(query, shared.Truncate(tag, widthFormat), time.Now(), title)
	if err != nil {
		return 0, fmt.Errorf("failed to mark physical dupe: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

// List retrieves every album row, ordered for stable export output.
func (r *AlbumRepository) List() ([]models.RoonAlbum, error) {
	query := `
		SELECT id, album_title, artist, image_key, item_key, artist_norm,
			album_norm, match_key, is_physical_dupe, physical_tag,
			created_at, updated_at
		FROM roon_albums
		ORDER BY artist, album_title
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []models.RoonAlbum
	for rows.Next() {
		var (
			album       models.RoonAlbum
			imageKey    sql.NullString
			itemKey     sql.NullString
			artistNorm  sql.NullString
			albumNorm   sql.NullString
			matchKey    sql.NullString
			physicalTag sql.NullString
		)

		err := rows.Scan(&album.ID, &album.AlbumTitle, &album.Artist, &imageKey,
			&itemKey, &artistNorm, &albumNorm, &matchKey, &album.IsPhysicalDupe,
			&physicalTag, &album.CreatedAt, &album.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}

		album.ImageKey = imageKey.String
		album.ItemKey = itemKey.String
		album.ArtistNorm = artistNorm.String
		album.AlbumNorm = albumNorm.String
		album.MatchKey = matchKey.String
		album.PhysicalTag = physicalTag.String
		albums = append(albums, album)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return albums, nil
}

// Count returns the number of album rows.
func (r *AlbumRepository) Count() (int64, error) {
	return TableCount(r.db, "roon_albums")
}
