// Package tasks orchestrates incremental sync runs across every catalog
// source with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines two operations:
//
//  1. [SyncEngine.RunAll] : Full sync in dependency order
//     - Roon albums before the tag pass that re-derives dupe flags
//     - Remote sources before the file imports
//     - The track index rebuild last, over whatever was stored
//     - Records a [models.RunSnapshot] of table counts at the end
//
//  2. [SyncEngine.RunSource] : Sync a single source by id
//     - An album sync is chained with the tag pass
//     - No run snapshot is recorded
//
// # Failure Isolation
//
// Each source's outcome lands in a [SourceResult]; a failing source never
// stops the run. Every attempt is recorded in the sync ledger: success and
// partial attempts store the record count, failures store a truncated
// reason with the count zeroed. Skipped sources leave the ledger untouched.
//
// # Scheduling
//
// Remote sources are gated by elapsed time since their last attempt, file
// imports by the export file's mtime, both overridden by force. Derived
// stages (tag pass, track index) run unconditionally.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and
// optional data for advanced consumers. Updates use select with default to
// prevent blocking.
//
// # Implementation
//
// [CatalogEngine] implements [SyncEngine] with dependencies on:
//   - [services.LibraryService] : the Roon bridge session
//   - [services.CatalogService] : the Discogs REST client
//   - [Store] : the repository bundle everything is written through
package tasks
