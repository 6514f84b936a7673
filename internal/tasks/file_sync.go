package tasks

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/shelfsync/internal/importer"
	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// syncRoonTracks imports the track CSV export when it has been rewritten
// since the last sync.
func (e *CatalogEngine) syncRoonTracks(ctx context.Context, progress chan<- ProgressUpdate, force bool) SourceResult {
	source := models.SourceRoonTracks

	path, skipped, err := e.fileGate(source, force, e.store.Tracks.Count)
	if err != nil {
		return SourceResult{Err: err}
	}
	if skipped != nil {
		return *skipped
	}

	e.sendProgress(progress, fetchUpdate(source, "reading "+path))
	tracks, badRows, err := importer.ReadTracksCSV(path)
	if err != nil {
		return SourceResult{Err: err}
	}

	e.sendProgress(progress, storeUpdate(source, len(tracks)))
	count, err := e.store.Tracks.Replace(tracks)
	if err != nil {
		return SourceResult{SkippedRows: badRows, Err: err}
	}

	return SourceResult{Records: count, SkippedRows: badRows}
}

// syncRoonPlayHistory imports the play-history JSON export when it has been
// rewritten since the last sync.
func (e *CatalogEngine) syncRoonPlayHistory(ctx context.Context, progress chan<- ProgressUpdate, force bool) SourceResult {
	source := models.SourceRoonPlayHistory

	path, skipped, err := e.fileGate(source, force, e.store.Plays.Count)
	if err != nil {
		return SourceResult{Err: err}
	}
	if skipped != nil {
		return *skipped
	}

	e.sendProgress(progress, fetchUpdate(source, "reading "+path))
	entries, badRows, err := importer.ReadPlayHistoryJSON(path)
	if err != nil {
		return SourceResult{Err: err}
	}

	e.sendProgress(progress, storeUpdate(source, len(entries)))
	count, err := e.store.Plays.Replace(entries)
	if err != nil {
		return SourceResult{SkippedRows: badRows, Err: err}
	}

	return SourceResult{Records: count, SkippedRows: badRows}
}

// rebuildTrackIndex regenerates the cross-source track index from whatever
// the preceding stages stored. It always runs; the rebuild is pure SQL and
// derives from local tables only.
func (e *CatalogEngine) rebuildTrackIndex(ctx context.Context, progress chan<- ProgressUpdate) SourceResult {
	source := models.SourceTrackIndex

	if err := ctx.Err(); err != nil {
		return SourceResult{Err: err}
	}

	e.sendProgress(progress, fetchUpdate(source, "rebuilding the track index"))
	total, distinct, err := e.store.Index.Rebuild()
	if err != nil {
		return SourceResult{Err: err}
	}

	return SourceResult{Records: total, DistinctTitles: distinct}
}

// fileGate resolves the skip decision for a file-backed source. A missing
// path or file skips the import without touching the ledger, so a restored
// file with an old mtime still imports on its next appearance.
func (e *CatalogEngine) fileGate(source models.Source, force bool, stored func() (int64, error)) (string, *SourceResult, error) {
	entry, err := e.store.Ledger.Get(source)
	if err != nil {
		return "", nil, err
	}

	if entry.FilePath == "" {
		return "", &SourceResult{Skipped: true, Reason: shared.ErrNoFileConfigured.Error()}, nil
	}

	info, err := os.Stat(entry.FilePath)
	if err != nil {
		return "", &SourceResult{
			Skipped: true,
			Reason:  fmt.Sprintf("%v: %s", shared.ErrFileNotFound, entry.FilePath),
		}, nil
	}

	if skip, reason := entry.ShouldSkipFile(info.ModTime(), force); skip {
		count, err := stored()
		if err != nil {
			return "", nil, err
		}
		return "", &SourceResult{Skipped: true, Reason: reason, Records: count}, nil
	}

	return entry.FilePath, nil, nil
}
