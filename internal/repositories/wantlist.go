package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// WantlistRepository persists the Discogs wantlist.
//
// The wantlist is replaced wholesale on every sync; there is no meaningful
// update-in-place for a snapshot whose upstream ordering is not stable.
type WantlistRepository struct {
	db *sql.DB
}

// NewWantlistRepository creates a new WantlistRepository with the given database connection
func NewWantlistRepository(db *sql.DB) *WantlistRepository {
	return &WantlistRepository{db: db}
}

// Replace clears the wantlist and reloads it from the given snapshot.
func (r *WantlistRepository) Replace(items []models.WantlistItem) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM discogs_wantlist"); err != nil {
		return 0, fmt.Errorf("failed to clear wantlist: %w", err)
	}

	query := `
		INSERT INTO discogs_wantlist (
			release_id, artist, album_title, year, label, format, notes, rating,
			num_for_sale, lowest_price, available, marketplace_url,
			artist_norm, album_norm, match_key
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (release_id) DO UPDATE SET
			num_for_sale = excluded.num_for_sale,
			lowest_price = excluded.lowest_price,
			available = excluded.available,
			updated_at = CURRENT_TIMESTAMP
	`

	var count int64
	for _, item := range items {
		artist := shared.Truncate(item.Artist, widthArtist)
		title := shared.Truncate(item.AlbumTitle, widthTitle)

		_, err := tx.Exec(query,
			item.ReleaseID,
			artist,
			title,
			item.Year,
			shared.Truncate(item.Label, widthLabel),
			shared.Truncate(item.Format, widthFormat),
			item.Notes,
			item.Rating,
			item.NumForSale,
			item.LowestPrice,
			item.Available,
			item.MarketplaceURL,
			shared.Normalize(artist),
			shared.Normalize(title),
			shared.MatchKey(artist, title),
		)
		if err != nil {
			return count, fmt.Errorf("failed to insert want %d: %w", item.ReleaseID, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return count, fmt.Errorf("failed to commit wantlist: %w", err)
	}

	return count, nil
}

// Available retrieves the wants currently purchasable, cheapest first.
func (r *WantlistRepository) Available() ([]models.WantlistItem, error) {
	query := `
		SELECT id, release_id, artist, album_title, year, num_for_sale, lowest_price, marketplace_url
		FROM discogs_wantlist
		WHERE available = 1
		ORDER BY lowest_price ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query wantlist: %w", err)
	}
	defer rows.Close()

	var items []models.WantlistItem
	for rows.Next() {
		var (
			item        models.WantlistItem
			year        sql.NullInt64
			numForSale  sql.NullInt64
			lowestPrice sql.NullFloat64
			url         sql.NullString
		)

		err := rows.Scan(&item.ID, &item.ReleaseID, &item.Artist, &item.AlbumTitle,
			&year, &numForSale, &lowestPrice, &url)
		if err != nil {
			return nil, fmt.Errorf("failed to scan want: %w", err)
		}

		item.Year = year.Int64
		item.MarketplaceURL = url.String
		item.Available = true
		if numForSale.Valid {
			item.NumForSale = &numForSale.Int64
		}
		if lowestPrice.Valid {
			item.LowestPrice = &lowestPrice.Float64
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// List retrieves every wantlist row, ordered for stable export output.
func (r *WantlistRepository) List() ([]models.WantlistItem, error) {
	query := `
		SELECT id, release_id, artist, album_title, year, label, format, notes,
			rating, num_for_sale, lowest_price, available, marketplace_url,
			artist_norm, album_norm, match_key, created_at, updated_at
		FROM discogs_wantlist
		ORDER BY artist, album_title
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query wantlist: %w", err)
	}
	defer rows.Close()

	var items []models.WantlistItem
	for rows.Next() {
		var (
			item        models.WantlistItem
			year        sql.NullInt64
			label       sql.NullString
			format      sql.NullString
			notes       sql.NullString
			rating      sql.NullInt64
			numForSale  sql.NullInt64
			lowestPrice sql.NullFloat64
			url         sql.NullString
			artistNorm  sql.NullString
			albumNorm   sql.NullString
			matchKey    sql.NullString
		)

		err := rows.Scan(&item.ID, &item.ReleaseID, &item.Artist, &item.AlbumTitle,
			&year, &label, &format, &notes, &rating, &numForSale, &lowestPrice,
			&item.Available, &url, &artistNorm, &albumNorm, &matchKey,
			&item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan want: %w", err)
		}

		item.Year = year.Int64
		item.Label = label.String
		item.Format = format.String
		item.Notes = notes.String
		item.Rating = rating.Int64
		item.MarketplaceURL = url.String
		item.ArtistNorm = artistNorm.String
		item.AlbumNorm = albumNorm.String
		item.MatchKey = matchKey.String
		if numForSale.Valid {
			item.NumForSale = &numForSale.Int64
		}
		if lowestPrice.Valid {
			item.LowestPrice = &lowestPrice.Float64
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// Count returns the number of wantlist rows.
func (r *WantlistRepository) Count() (int64, error) {
	return TableCount(r.db, "discogs_wantlist")
}
