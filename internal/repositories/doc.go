// Package repositories implements SQLite persistence for all domain entities.
//
// Repositories take two write shapes. Snapshot tables (library albums, library
// tracks, play history, wantlist, track index) are replaced wholesale each sync;
// the Discogs collection is upserted per release so user-owned columns survive
// from run to run. Both shapes compute normalized artist/title columns and
// match keys at write time.
//
// Key Implementations:
//   - [LedgerRepository] : Per-source sync scheduling metadata and status notes
//   - [AlbumRepository] : Roon album snapshots plus physical-dupe flagging
//   - [CollectionRepository] : Discogs collection upserts keyed by release id
//   - [WantlistRepository] : Wantlist snapshots with price/availability columns
//   - [TrackRepository] : Roon track rows imported from the library CSV export
//   - [PlayHistoryRepository] : Play events imported from the history JSON export
//   - [ListeningRepository] : User-logged listening events, append only
//   - [TrackIndexRepository] : Derived cross-source track index, rebuilt wholesale
//   - [RunRepository] : Immutable table-count snapshots taken after full runs
//   - [StatsRepository] : Read-only aggregates behind the stats and search commands
//
// Bulk writes commit in batches so a multi-thousand row import does not hold one
// transaction open for its whole duration. Batch sizes are per-table constants
// next to the Replace method that uses them.
package repositories
