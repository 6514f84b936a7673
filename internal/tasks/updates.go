package tasks

import (
	"fmt"

	"github.com/desertthunder/shelfsync/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced consumers
}

// Sync phase enumeration
type Phase int

const (
	StartSource Phase = iota
	FetchListing
	FetchStats
	StoreRecords
	SourceSynced
	SourceSkipped
	SourceFailed
	RecordRun
	ExportDataset
)

func (p Phase) String() string {
	switch p {
	case StartSource:
		return "start_source"
	case FetchListing:
		return "fetch_listing"
	case FetchStats:
		return "fetch_stats"
	case StoreRecords:
		return "store_records"
	case SourceSynced:
		return "source_synced"
	case SourceSkipped:
		return "source_skipped"
	case SourceFailed:
		return "source_failed"
	case RecordRun:
		return "record_run"
	case ExportDataset:
		return "export_dataset"
	default:
		return ""
	}
}

func sourceStartUpdate(step, total int, source models.Source) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StartSource,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Syncing %s...", step, total, source),
	}
}

func sourceFinishedUpdate(step, total int, result SourceResult) ProgressUpdate {
	switch {
	case result.Failed():
		return ProgressUpdate{
			Phase:   SourceFailed,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, result.Source, result.Err),
			Data:    result,
		}
	case result.Skipped:
		return ProgressUpdate{
			Phase:   SourceSkipped,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ⏭ %s: %s", step, total, result.Source, result.Reason),
			Data:    result,
		}
	case result.Aborted != "":
		return ProgressUpdate{
			Phase:   SourceSynced,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✓ %s: %d records (partial)", step, total, result.Source, result.Records),
			Data:    result,
		}
	default:
		return ProgressUpdate{
			Phase:   SourceSynced,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✓ %s: %d records", step, total, result.Source, result.Records),
			Data:    result,
		}
	}
}

func fetchUpdate(source models.Source, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchListing,
		Message: fmt.Sprintf("%s: %s...", source, message),
	}
}

func pageUpdate(source models.Source, page, pages, items int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchListing,
		Step:    page,
		Total:   pages,
		Message: fmt.Sprintf("%s: page %d/%d (%d items)", source, page, pages, items),
	}
}

func statsUpdate(source models.Source, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchStats,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: fetching marketplace stats...", step, total, source),
	}
}

func storeUpdate(source models.Source, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StoreRecords,
		Message: fmt.Sprintf("%s: storing %d records...", source, count),
	}
}

func snapshotUpdate(snapshot *models.RunSnapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecordRun,
		Message: fmt.Sprintf("Run %s recorded", snapshot.ID),
		Data:    snapshot,
	}
}

func exportUpdate(result DatasetResult) ProgressUpdate {
	message := fmt.Sprintf("✓ %s: %d rows", result.Dataset, result.Rows)
	if result.Error != "" {
		message = fmt.Sprintf("✗ %s: %s", result.Dataset, result.Error)
	}

	return ProgressUpdate{
		Phase:   ExportDataset,
		Message: message,
		Data:    result,
	}
}
