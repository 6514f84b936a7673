package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// StatsRepository serves the aggregate queries behind the stats and search
// commands. Read-only; everything it reports is derived from columns the
// sync engine keeps consistent (row counts, match keys, dupe flags).
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new StatsRepository with the given database connection
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Overview collects the library-wide numbers: per-table counts, the
// match-key overlap between the Roon library and the Discogs collection,
// and wantlist availability.
func (r *StatsRepository) Overview() (*models.LibraryStats, error) {
	stats := &models.LibraryStats{}

	counts := []struct {
		table string
		dest  *int64
	}{
		{"roon_albums", &stats.RoonAlbums},
		{"roon_tracks", &stats.RoonTracks},
		{"roon_play_history", &stats.RoonPlayHistory},
		{"discogs_collection", &stats.DiscogsCollection},
		{"discogs_tracks", &stats.DiscogsTracks},
		{"discogs_wantlist", &stats.DiscogsWantlist},
		{"track_index", &stats.TrackIndex},
		{"listening_history", &stats.ListeningHistory},
	}
	for _, c := range counts {
		count, err := TableCount(r.db, c.table)
		if err != nil {
			return nil, err
		}
		*c.dest = count
	}

	// an album with empty artist and title normalizes to the bare " - "
	// separator, which must not join across sources
	overlap := `
		SELECT COUNT(DISTINCT r.match_key)
		FROM roon_albums r
		INNER JOIN discogs_collection d ON d.match_key = r.match_key
		WHERE r.match_key IS NOT NULL AND r.match_key != ' - '
	`
	if err := r.db.QueryRow(overlap).Scan(&stats.AlbumsInBoth); err != nil {
		return nil, fmt.Errorf("failed to count overlapping albums: %w", err)
	}

	dupes := "SELECT COUNT(*) FROM roon_albums WHERE is_physical_dupe = 1"
	if err := r.db.QueryRow(dupes).Scan(&stats.PhysicalDupes); err != nil {
		return nil, fmt.Errorf("failed to count physical dupes: %w", err)
	}

	owned := "SELECT COUNT(*) FROM discogs_collection WHERE in_collection = 1"
	if err := r.db.QueryRow(owned).Scan(&stats.InCollection); err != nil {
		return nil, fmt.Errorf("failed to count owned releases: %w", err)
	}

	wants := `
		SELECT COUNT(*), COALESCE(SUM(lowest_price), 0)
		FROM discogs_wantlist
		WHERE available = 1
	`
	if err := r.db.QueryRow(wants).Scan(&stats.WantlistAvailable, &stats.WantlistValue); err != nil {
		return nil, fmt.Errorf("failed to count available wants: %w", err)
	}

	return stats, nil
}

// Search matches albums across the Roon library, the Discogs collection,
// and the wantlist. The term is normalized the same way match keys are, so
// punctuation and case differences in either the query or the stored rows
// do not matter.
func (r *StatsRepository) Search(term string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = 25
	}

	pattern := "%" + shared.Normalize(term) + "%"
	query := `
		SELECT 'roon' AS source, artist, album_title, NULL AS year
		FROM roon_albums
		WHERE artist_norm LIKE ? OR album_norm LIKE ?
		UNION ALL
		SELECT 'discogs', artist, album_title, year
		FROM discogs_collection
		WHERE artist_norm LIKE ? OR album_norm LIKE ?
		UNION ALL
		SELECT 'wantlist', artist, album_title, year
		FROM discogs_wantlist
		WHERE artist_norm LIKE ? OR album_norm LIKE ?
		ORDER BY artist, album_title
		LIMIT ?
	`

	rows, err := r.db.Query(query, pattern, pattern, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search albums: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var (
			result models.SearchResult
			year   sql.NullInt64
		)

		if err := rows.Scan(&result.Source, &result.Artist, &result.AlbumTitle, &year); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}

		result.Year = year.Int64
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return results, nil
}
