package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// RunRepository records sync-run snapshots, one immutable row per full run.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Snapshot captures the current row counts across every synced table and
// persists them as a new run record.
func (r *RunRepository) Snapshot(forced bool, duration time.Duration) (*models.RunSnapshot, error) {
	run := &models.RunSnapshot{
		ID:       shared.GenerateID(),
		Forced:   forced,
		Duration: duration,
	}

	counts := []struct {
		table string
		dest  *int64
	}{
		{"roon_albums", &run.RoonAlbums},
		{"roon_tracks", &run.RoonTracks},
		{"roon_play_history", &run.RoonPlayHistory},
		{"discogs_collection", &run.DiscogsCollection},
		{"discogs_tracks", &run.DiscogsTracks},
		{"discogs_wantlist", &run.DiscogsWantlist},
		{"track_index", &run.TrackIndex},
	}
	for _, c := range counts {
		count, err := TableCount(r.db, c.table)
		if err != nil {
			return nil, err
		}
		*c.dest = count
	}

	query := `
		INSERT INTO sync_runs (
			id, forced, duration_ms, roon_albums, roon_tracks, roon_play_history,
			discogs_collection, discogs_tracks, discogs_wantlist, track_index
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.Forced,
		run.Duration.Milliseconds(),
		run.RoonAlbums,
		run.RoonTracks,
		run.RoonPlayHistory,
		run.DiscogsCollection,
		run.DiscogsTracks,
		run.DiscogsWantlist,
		run.TrackIndex,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run snapshot: %w", err)
	}

	return run, nil
}

// Latest retrieves the most recent run snapshot.
func (r *RunRepository) Latest() (*models.RunSnapshot, error) {
	query := `
		SELECT id, forced, duration_ms, roon_albums, roon_tracks, roon_play_history,
			discogs_collection, discogs_tracks, discogs_wantlist, track_index, created_at
		FROM sync_runs
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	run, err := r.scan(r.db.QueryRow(query))
	if err == sql.ErrNoRows {
		return nil, shared.ErrNoRuns
	}
	if err != nil {
		return nil, err
	}

	return run, nil
}

// History retrieves recent run snapshots, newest first.
func (r *RunRepository) History(limit int) ([]*models.RunSnapshot, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, forced, duration_ms, roon_albums, roon_tracks, roon_play_history,
			discogs_collection, discogs_tracks, discogs_wantlist, track_index, created_at
		FROM sync_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var runs []*models.RunSnapshot
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) scan(row rowScanner) (*models.RunSnapshot, error) {
	var (
		run        models.RunSnapshot
		durationMS int64
	)

	err := row.Scan(
		&run.ID, &run.Forced, &durationMS, &run.RoonAlbums, &run.RoonTracks,
		&run.RoonPlayHistory, &run.DiscogsCollection, &run.DiscogsTracks,
		&run.DiscogsWantlist, &run.TrackIndex, &run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run snapshot: %w", err)
	}

	run.Duration = time.Duration(durationMS) * time.Millisecond
	return &run, nil
}
