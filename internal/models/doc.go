// Package models defines domain entities for the shelfsync collection sync engine.
//
// The package contains three categories of types:
//
// 1. Sync scheduling: [Source] enumerates the fixed set of logical sources
// in execution order, and [LedgerEntry] carries per-source scheduling
// metadata together with the skip policy ([LedgerEntry.ShouldSkip] for
// time-gated API sources, [LedgerEntry.ShouldSkipFile] for mtime-gated file
// imports).
//
// 2. Catalog rows: [RoonAlbum], [RoonTrack], [PlayHistoryEntry],
// [CollectionItem], [CollectionTrack], [WantlistItem], [ListeningEntry] and
// [TrackIndexEntry] mirror the storage schema. Optional upstream data
// (marketplace stats, play timestamps) is represented with pointer fields so
// partial records stay distinguishable from zero values.
//
// 3. Reporting: [RunSnapshot] is the append-only audit row written after
// full runs, and [LibraryStats]/[SearchResult] carry the aggregates served
// to the query surface.
//
// Types here are plain data; normalization and persistence live in
// internal/shared and internal/repositories.
package models
