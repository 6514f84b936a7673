// package models defines the domain entities for the collection sync engine
package models

import (
	"fmt"
	"time"
)

// Source identifies one logical sync source. The set is fixed; rows for
// every source are provisioned by the ledger seed migration.
type Source string

const (
	SourceRoonAlbums        Source = "roon_albums"
	SourceRoonTags          Source = "roon_tags"
	SourceRoonTracks        Source = "roon_tracks"
	SourceRoonPlayHistory   Source = "roon_play_history"
	SourceDiscogsCollection Source = "discogs_collection"
	SourceDiscogsWantlist   Source = "discogs_wantlist"
	SourceTrackIndex        Source = "track_index"
)

// AllSources returns every source in the fixed execution order: album sync
// before tag sync (the wholesale album replace wipes the dupe flags), API
// sources before file imports, and the derived track index last.
func AllSources() []Source {
	return []Source{
		SourceRoonAlbums,
		SourceRoonTags,
		SourceDiscogsCollection,
		SourceDiscogsWantlist,
		SourceRoonTracks,
		SourceRoonPlayHistory,
		SourceTrackIndex,
	}
}

// ParseSource validates a source identifier from user input.
func ParseSource(s string) (Source, error) {
	for _, src := range AllSources() {
		if string(src) == s {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown sync source %q", s)
}

// IsFileBacked reports whether the source imports from a local export file
// (mtime-gated) rather than a remote API (time-gated).
func (s Source) IsFileBacked() bool {
	return s == SourceRoonTracks || s == SourceRoonPlayHistory
}

func (s Source) String() string {
	return string(s)
}

// LedgerEntry is one row of sync-scheduling metadata. Mutated after every
// sync attempt, success or failure; never deleted.
type LedgerEntry struct {
	ID           int64
	Source       Source
	LastSync     *time.Time
	FilePath     string
	RecordsCount int64
	SyncStatus   string
	UpdatedAt    time.Time
}

// ShouldSkip decides whether a time-gated source is due. Force always runs;
// a source with no prior sync always runs; otherwise the source is skipped
// while less than threshold has elapsed since the last attempt.
func (e *LedgerEntry) ShouldSkip(now time.Time, threshold time.Duration, force bool) (bool, string) {
	if force {
		return false, "forced"
	}
	if e.LastSync == nil {
		return false, "never synced"
	}
	elapsed := now.Sub(*e.LastSync)
	if elapsed < threshold {
		return true, fmt.Sprintf("synced %.1f days ago (threshold %.0f days)",
			elapsed.Hours()/24, threshold.Hours()/24)
	}
	return false, fmt.Sprintf("last sync %.1f days ago", elapsed.Hours()/24)
}

// ShouldSkipFile decides whether a file-backed source is due: skip only when
// the file has not been modified since the last sync, regardless of elapsed
// time.
func (e *LedgerEntry) ShouldSkipFile(mtime time.Time, force bool) (bool, string) {
	if force {
		return false, "forced"
	}
	if e.LastSync == nil {
		return false, "never synced"
	}
	if !mtime.After(*e.LastSync) {
		return true, "file not modified since last sync"
	}
	return false, "file modified since last sync"
}
