// package repositories provides persistence layer implementations over the catalog schema.
//
// Each repository owns one table (or a tight cluster of tables), handling
// the bulk replace/upsert writes issued by the sync engine and the point
// reads and updates behind the query commands. Normalized artist/title
// columns and match keys are computed here at write time so every writer
// produces identical keys.
package repositories

import (
	"database/sql"
	"fmt"
)

// Column widths applied before writes. Overlong upstream values are clipped
// rather than rejected so a pathological payload can never fail an insert.
const (
	widthArtist     = 300
	widthTitle      = 500
	widthImageKey   = 100
	widthItemKey    = 50
	widthLabel      = 300
	widthFormat     = 100
	widthCondition  = 100
	widthPosition   = 20
	widthDuration   = 20
	widthPeople     = 500
	widthExternalID = 100
	widthSource     = 50
	widthStatusNote = 50
)

// rowScanner abstracts sql.Row and sql.Rows so each repository needs a
// single scan helper.
type rowScanner interface {
	Scan(dest ...any) error
}

// TableCount returns the number of rows in the given table.
func TableCount(db *sql.DB, table string) (int64, error) {
	var count int64
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}

	return count, nil
}
