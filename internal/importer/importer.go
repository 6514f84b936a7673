// package importer reads the two Roon export files into model rows for the
// replace repositories: the library tracks CSV and the play history JSON.
//
// Both readers are tolerant of ragged data. Rows that cannot be parsed are
// skipped and counted instead of failing the import; the caller decides
// whether the skip count is worth logging.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// Column headers of the Roon library CSV export. The export writes a UTF-8
// BOM and title-case headers with punctuation; lookups go through a header
// index so column order does not matter.
const (
	colAlbumArtist  = "Album Artist"
	colAlbum        = "Album"
	colDiscNumber   = "Disc#"
	colTrackNumber  = "Track#"
	colTitle        = "Title"
	colTrackArtists = "Track Artist(s)"
	colComposers    = "Composer(s)"
	colExternalID   = "External Id"
	colSource       = "Source"
	colIsDuplicate  = "Is Dup?"
	colIsHidden     = "Is Hidden?"
	colTags         = "Tags"
)

// ReadTracksCSV parses a Roon library CSV export. It returns the parsed
// rows and the number of records skipped because they did not parse as CSV.
func ReadTracksCSV(path string) ([]models.RoonTrack, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open tracks export: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(skipBOM(f))

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: tracks export has no CSV header: %v", shared.ErrInvalidInput, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colAlbumArtist, colAlbum, colTitle} {
		if _, ok := columns[required]; !ok {
			return nil, 0, fmt.Errorf("%w: tracks export is missing the %q column", shared.ErrInvalidInput, required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var (
		tracks  []models.RoonTrack
		skipped int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("failed to read CSV record: %w", err)
		}

		tracks = append(tracks, models.RoonTrack{
			AlbumArtist:  field(record, colAlbumArtist),
			Album:        field(record, colAlbum),
			DiscNumber:   parseIntField(field(record, colDiscNumber)),
			TrackNumber:  parseIntField(field(record, colTrackNumber)),
			TrackTitle:   field(record, colTitle),
			TrackArtists: field(record, colTrackArtists),
			Composers:    field(record, colComposers),
			ExternalID:   field(record, colExternalID),
			Source:       field(record, colSource),
			IsDuplicate:  strings.EqualFold(field(record, colIsDuplicate), "yes"),
			IsHidden:     strings.EqualFold(field(record, colIsHidden), "yes"),
			Tags:         field(record, colTags),
		})
	}

	return tracks, skipped, nil
}

// ReadPlayHistoryJSON parses a play history export: a JSON array of objects
// keyed by the same titles the CSV export uses, plus an optional "Played At"
// timestamp. Elements that are not objects are skipped and counted.
func ReadPlayHistoryJSON(path string) ([]models.PlayHistoryEntry, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open play history export: %w", err)
	}
	defer f.Close()

	var raw []json.RawMessage
	if err := json.NewDecoder(skipBOM(f)).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("%w: play history is not a JSON array: %v", shared.ErrInvalidInput, err)
	}

	entries := make([]models.PlayHistoryEntry, 0, len(raw))
	skipped := 0
	for _, msg := range raw {
		var record map[string]any
		if err := json.Unmarshal(msg, &record); err != nil {
			skipped++
			continue
		}

		entries = append(entries, models.PlayHistoryEntry{
			AlbumArtist:  stringValue(record[colAlbumArtist]),
			Album:        stringValue(record[colAlbum]),
			DiscNumber:   intValue(record[colDiscNumber]),
			TrackNumber:  intValue(record[colTrackNumber]),
			TrackTitle:   stringValue(record[colTitle]),
			TrackArtists: stringValue(record[colTrackArtists]),
			Composers:    stringValue(record[colComposers]),
			ExternalID:   stringValue(record[colExternalID]),
			Source:       stringValue(record[colSource]),
			PlayedAt:     timeValue(record["Played At"]),
		})
	}

	return entries, skipped, nil
}

// skipBOM discards a UTF-8 byte order mark if the stream starts with one.
// Roon's exports are written with a BOM that would otherwise end up glued to
// the first header cell.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(3); err == nil && bytes.Equal(head, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	return br
}

// parseIntField parses an optional integer cell, nil when empty or not a
// number.
func parseIntField(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func stringValue(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}

func intValue(v any) *int64 {
	switch value := v.(type) {
	case float64:
		n := int64(value)
		return &n
	case string:
		return parseIntField(strings.TrimSpace(value))
	default:
		return nil
	}
}

// timeValue parses a play timestamp: RFC 3339, the bare "2006-01-02
// 15:04:05" layout some exports use, or epoch seconds. Anything else is nil.
func timeValue(v any) *time.Time {
	switch value := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
				return &t
			}
		}
		return nil
	case float64:
		t := time.Unix(int64(value), 0).UTC()
		return &t
	default:
		return nil
	}
}
