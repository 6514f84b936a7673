package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// LedgerRepository reads and writes the sync ledger, one row per source.
//
// Rows are seeded by migration and only ever updated afterwards. Both
// outcomes of a sync attempt overwrite last_sync, so a persistently failing
// source still waits out its skip window instead of hammering the upstream
// service on every run.
type LedgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository creates a new LedgerRepository with the given database connection
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Get retrieves the ledger entry for a source.
func (r *LedgerRepository) Get(source models.Source) (*models.LedgerEntry, error) {
	query := `
		SELECT id, source, last_sync, file_path, records_count, sync_status, updated_at
		FROM sync_ledger
		WHERE source = ?
	`

	entry, err := r.scan(r.db.QueryRow(query, string(source)))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no ledger entry for %q", shared.ErrSourceUnknown, source)
	}
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// All retrieves every ledger entry in provisioning order.
func (r *LedgerRepository) All() ([]*models.LedgerEntry, error) {
	query := `
		SELECT id, source, last_sync, file_path, records_count, sync_status, updated_at
		FROM sync_ledger
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		entry, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// MarkSuccess stamps a completed sync with its record count.
func (r *LedgerRepository) MarkSuccess(source models.Source, count int64) error {
	return r.record(source, count, "success")
}

// MarkPartial stamps a sync that stored data but stopped fetching early,
// keeping the abort reason visible to operators.
func (r *LedgerRepository) MarkPartial(source models.Source, count int64, reason string) error {
	return r.record(source, count, "partial: "+shared.Truncate(reason, widthStatusNote))
}

// MarkFailure stamps a failed sync with a clipped reason. The record count
// is zeroed since nothing from this attempt should be trusted.
func (r *LedgerRepository) MarkFailure(source models.Source, syncErr error) error {
	reason := "failed"
	if syncErr != nil {
		reason = "failed: " + shared.Truncate(syncErr.Error(), widthStatusNote)
	}

	return r.record(source, 0, reason)
}

// SetFilePath records where a file-backed source was last imported from.
func (r *LedgerRepository) SetFilePath(source models.Source, path string) error {
	query := `
		UPDATE sync_ledger
		SET file_path = ?, updated_at = ?
		WHERE source = ?
	`

	result, err := r.db.Exec(query, path, time.Now(), string(source))
	if err != nil {
		return fmt.Errorf("failed to set file path: %w", err)
	}

	return r.requireRow(result, source)
}

func (r *LedgerRepository) record(source models.Source, count int64, status string) error {
	query := `
		UPDATE sync_ledger
		SET last_sync = ?, records_count = ?, sync_status = ?, updated_at = ?
		WHERE source = ?
	`

	now := time.Now()
	result, err := r.db.Exec(query, now, count, status, now, string(source))
	if err != nil {
		return fmt.Errorf("failed to update ledger: %w", err)
	}

	return r.requireRow(result, source)
}

func (r *LedgerRepository) requireRow(result sql.Result, source models.Source) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: no ledger entry for %q", shared.ErrSourceUnknown, source)
	}

	return nil
}

func (r *LedgerRepository) scan(row rowScanner) (*models.LedgerEntry, error) {
	var (
		id           int64
		source       string
		lastSync     sql.NullTime
		filePath     sql.NullString
		recordsCount int64
		syncStatus   sql.NullString
		updatedAt    sql.NullTime
	)

	err := row.Scan(&id, &source, &lastSync, &filePath, &recordsCount, &syncStatus, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	entry := &models.LedgerEntry{
		ID:           id,
		Source:       models.Source(source),
		FilePath:     filePath.String,
		RecordsCount: recordsCount,
		SyncStatus:   syncStatus.String,
	}
	if lastSync.Valid {
		entry.LastSync = &lastSync.Time
	}
	if updatedAt.Valid {
		entry.UpdatedAt = updatedAt.Time
	}

	return entry, nil
}
