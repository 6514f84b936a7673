// package tasks implements the incremental sync runs that pull the remote
// library, the marketplace catalog, and the local export files into one
// database.
//
// The core abstraction is SyncEngine, which schedules sources, isolates their
// failures, and records every attempt in the sync ledger. Operations emit
// progress updates via channels for non-blocking status reporting to the CLI.
package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/repositories"
	"github.com/desertthunder/shelfsync/internal/services"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// SourceResult records the outcome of one source's sync attempt.
type SourceResult struct {
	Source         models.Source
	Skipped        bool          // Source was not due
	Reason         string        // Why the source was skipped
	Records        int64         // Records stored (or already stored, when skipped)
	Tracks         int64         // Track rows stored alongside collection items
	DistinctTitles int64         // Distinct titles, from the index rebuild only
	Duplicates     []string      // Releases seen more than once in one feed
	MissingTags    []string      // Configured tags absent from the library
	SkippedRows    int           // Malformed export rows dropped during import
	StatsMisses    int           // Marketplace stat fetches that failed
	TrackMisses    int           // Track list fetches that failed
	Aborted        string        // Why a paginated fetch stopped early, if it did
	Err            error         // Terminal failure, already recorded in the ledger
	Elapsed        time.Duration // Wall time for this source
}

// Failed reports whether the attempt ended in a terminal error.
func (r *SourceResult) Failed() bool {
	return r.Err != nil
}

// RunResult aggregates one sync run across all requested sources.
type RunResult struct {
	Results  []SourceResult
	Snapshot *models.RunSnapshot // Captured only on full runs
	Forced   bool
	Elapsed  time.Duration
}

// Failures returns the results that ended in a terminal error.
func (r *RunResult) Failures() []SourceResult {
	var failed []SourceResult
	for _, result := range r.Results {
		if result.Failed() {
			failed = append(failed, result)
		}
	}
	return failed
}

// Synced returns how many sources ran to completion.
func (r *RunResult) Synced() int {
	count := 0
	for _, result := range r.Results {
		if !result.Skipped && !result.Failed() {
			count++
		}
	}
	return count
}

// Store bundles the repositories a sync run writes through.
type Store struct {
	Ledger     *repositories.LedgerRepository
	Albums     *repositories.AlbumRepository
	Collection *repositories.CollectionRepository
	Wantlist   *repositories.WantlistRepository
	Tracks     *repositories.TrackRepository
	Plays      *repositories.PlayHistoryRepository
	Index      *repositories.TrackIndexRepository
	Runs       *repositories.RunRepository
}

// NewStore builds a Store over one database connection.
func NewStore(db *sql.DB) Store {
	return Store{
		Ledger:     repositories.NewLedgerRepository(db),
		Albums:     repositories.NewAlbumRepository(db),
		Collection: repositories.NewCollectionRepository(db),
		Wantlist:   repositories.NewWantlistRepository(db),
		Tracks:     repositories.NewTrackRepository(db),
		Plays:      repositories.NewPlayHistoryRepository(db),
		Index:      repositories.NewTrackIndexRepository(db),
		Runs:       repositories.NewRunRepository(db),
	}
}

// SyncEngine defines the operations behind the sync command.
type SyncEngine interface {
	// RunAll syncs every source in dependency order: the album snapshot before
	// the tag pass that re-derives its dupe flags, remote sources before file
	// imports, and the track index rebuild last. A table-count snapshot is
	// recorded at the end.
	RunAll(ctx context.Context, progress chan<- ProgressUpdate, force bool) (*RunResult, error)

	// RunSource syncs a single source. An explicit album sync is followed by
	// the tag pass, since the wholesale album replace clears the flags the tag
	// pass derives.
	RunSource(ctx context.Context, progress chan<- ProgressUpdate, source models.Source, force bool) ([]SourceResult, error)
}

// CatalogEngine implements SyncEngine against the two live services and the
// repository layer. The library session it opens lives for one run and is
// torn down before Run returns.
type CatalogEngine struct {
	library       services.LibraryService
	catalog       services.CatalogService
	store         Store
	skipThreshold time.Duration
	physicalTags  []string
}

// NewCatalogEngine creates a new CatalogEngine with the provided services and
// repositories.
func NewCatalogEngine(library services.LibraryService, catalog services.CatalogService, store Store, cfg *shared.Config) *CatalogEngine {
	return &CatalogEngine{
		library:       library,
		catalog:       catalog,
		store:         store,
		skipThreshold: cfg.SkipThreshold(),
		physicalTags:  cfg.Roon.PhysicalTags,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks a run.
func (e *CatalogEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// RunAll performs a full sync across every source. Per-source failures are
// folded into the results; the returned error covers run-level problems only
// (cancellation, snapshot failure).
func (e *CatalogEngine) RunAll(ctx context.Context, progress chan<- ProgressUpdate, force bool) (*RunResult, error) {
	started := time.Now()
	sources := models.AllSources()
	run := &RunResult{Forced: force, Results: make([]SourceResult, 0, len(sources))}

	defer func() { _ = e.library.Close(ctx) }()

	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			run.Elapsed = time.Since(started)
			return run, err
		}

		e.sendProgress(progress, sourceStartUpdate(i+1, len(sources), source))
		result := e.runSource(ctx, progress, source, force)
		run.Results = append(run.Results, result)
		e.sendProgress(progress, sourceFinishedUpdate(i+1, len(sources), result))
	}

	run.Elapsed = time.Since(started)

	snapshot, err := e.store.Runs.Snapshot(force, run.Elapsed)
	if err != nil {
		return run, fmt.Errorf("sync finished but recording the run failed: %w", err)
	}
	run.Snapshot = snapshot
	e.sendProgress(progress, snapshotUpdate(snapshot))

	return run, nil
}

// RunSource syncs one source by id. No run snapshot is recorded for scoped
// runs.
func (e *CatalogEngine) RunSource(ctx context.Context, progress chan<- ProgressUpdate, source models.Source, force bool) ([]SourceResult, error) {
	if _, err := models.ParseSource(string(source)); err != nil {
		return nil, fmt.Errorf("%w: %q", shared.ErrSourceUnknown, source)
	}

	defer func() { _ = e.library.Close(ctx) }()

	total := 1
	if source == models.SourceRoonAlbums {
		total = 2
	}

	e.sendProgress(progress, sourceStartUpdate(1, total, source))
	results := []SourceResult{e.runSource(ctx, progress, source, force)}
	e.sendProgress(progress, sourceFinishedUpdate(1, total, results[0]))

	// The album replace wiped the dupe flags, so the tag pass rides along.
	if source == models.SourceRoonAlbums {
		e.sendProgress(progress, sourceStartUpdate(2, total, models.SourceRoonTags))
		tags := e.runSource(ctx, progress, models.SourceRoonTags, force)
		results = append(results, tags)
		e.sendProgress(progress, sourceFinishedUpdate(2, total, tags))
	}

	return results, nil
}

// runSource dispatches to the source's sync routine and records the outcome
// in the ledger. Failures are folded into the result, never propagated.
func (e *CatalogEngine) runSource(ctx context.Context, progress chan<- ProgressUpdate, source models.Source, force bool) SourceResult {
	started := time.Now()

	var result SourceResult
	switch source {
	case models.SourceRoonAlbums:
		result = e.syncRoonAlbums(ctx, progress, force)
	case models.SourceRoonTags:
		result = e.syncRoonTags(ctx, progress)
	case models.SourceDiscogsCollection:
		result = e.syncDiscogsCollection(ctx, progress, force)
	case models.SourceDiscogsWantlist:
		result = e.syncDiscogsWantlist(ctx, progress, force)
	case models.SourceRoonTracks:
		result = e.syncRoonTracks(ctx, progress, force)
	case models.SourceRoonPlayHistory:
		result = e.syncRoonPlayHistory(ctx, progress, force)
	case models.SourceTrackIndex:
		result = e.rebuildTrackIndex(ctx, progress)
	default:
		result = SourceResult{Err: fmt.Errorf("%w: %q", shared.ErrSourceUnknown, source)}
	}

	result.Source = source
	result.Elapsed = time.Since(started)

	if err := e.recordOutcome(source, &result); err != nil && result.Err == nil {
		result.Err = err
	}

	return result
}

// recordOutcome writes the attempt to the ledger. Skips leave the ledger
// untouched so the next run sees the same schedule.
func (e *CatalogEngine) recordOutcome(source models.Source, result *SourceResult) error {
	switch {
	case result.Skipped:
		return nil
	case result.Err != nil:
		return e.store.Ledger.MarkFailure(source, result.Err)
	case result.Aborted != "":
		return e.store.Ledger.MarkPartial(source, result.Records, result.Aborted)
	default:
		return e.store.Ledger.MarkSuccess(source, result.Records)
	}
}

// shouldSkip applies the elapsed-time gate for remote sources. The stored
// count rides along so a skipped source still reports what it holds.
func (e *CatalogEngine) shouldSkip(source models.Source, force bool, stored func() (int64, error)) (*SourceResult, error) {
	entry, err := e.store.Ledger.Get(source)
	if err != nil {
		return nil, err
	}

	skip, reason := entry.ShouldSkip(time.Now(), e.skipThreshold, force)
	if !skip {
		return nil, nil
	}

	count, err := stored()
	if err != nil {
		return nil, err
	}
	return &SourceResult{Skipped: true, Reason: reason, Records: count}, nil
}
