// package formatter renders catalog datasets to interchange formats (CSV, Markdown, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// Dataset is a named tabular view over one catalog table, ready to render.
// The JSON export bypasses it and serializes the model rows directly.
type Dataset struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// AlbumsDataset builds the tabular view of the Roon album listing.
func AlbumsDataset(albums []models.RoonAlbum) Dataset {
	ds := Dataset{
		Name:    "roon_albums",
		Headers: []string{"Artist", "Album", "Physical Dupe", "Tag"},
		Rows:    make([][]string, 0, len(albums)),
	}

	for _, album := range albums {
		ds.Rows = append(ds.Rows, []string{
			album.Artist,
			album.AlbumTitle,
			strconv.FormatBool(album.IsPhysicalDupe),
			album.PhysicalTag,
		})
	}

	return ds
}

// CollectionDataset builds the tabular view of the Discogs collection,
// including releases no longer owned.
func CollectionDataset(items []models.CollectionItem) Dataset {
	ds := Dataset{
		Name: "discogs_collection",
		Headers: []string{
			"Release ID", "Artist", "Album", "Year", "Label", "Format",
			"Media Condition", "Sleeve Condition", "Rating", "For Sale",
			"Lowest Price", "Date Added", "Last Listened", "Owned", "Notes",
		},
		Rows: make([][]string, 0, len(items)),
	}

	for _, item := range items {
		ds.Rows = append(ds.Rows, []string{
			strconv.FormatInt(item.ReleaseID, 10),
			item.Artist,
			item.AlbumTitle,
			formatYear(item.Year),
			item.Label,
			item.Format,
			item.MediaCondition,
			item.SleeveCondition,
			strconv.FormatInt(item.Rating, 10),
			formatCount(item.NumForSale),
			formatPrice(item.LowestPrice),
			formatDate(item.DateAdded),
			formatDate(item.LastListened),
			strconv.FormatBool(item.InCollection),
			item.Notes,
		})
	}

	return ds
}

// WantlistDataset builds the tabular view of the Discogs wantlist.
func WantlistDataset(items []models.WantlistItem) Dataset {
	ds := Dataset{
		Name: "discogs_wantlist",
		Headers: []string{
			"Release ID", "Artist", "Album", "Year", "Label", "Format",
			"Rating", "For Sale", "Lowest Price", "Available", "Marketplace URL", "Notes",
		},
		Rows: make([][]string, 0, len(items)),
	}

	for _, item := range items {
		ds.Rows = append(ds.Rows, []string{
			strconv.FormatInt(item.ReleaseID, 10),
			item.Artist,
			item.AlbumTitle,
			formatYear(item.Year),
			item.Label,
			item.Format,
			strconv.FormatInt(item.Rating, 10),
			formatCount(item.NumForSale),
			formatPrice(item.LowestPrice),
			strconv.FormatBool(item.Available),
			item.MarketplaceURL,
			item.Notes,
		})
	}

	return ds
}

// ToCSV renders the dataset as CSV with a header row.
func ToCSV(ds Dataset) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(ds.Headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range ds.Rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown renders the dataset as a Markdown document with a pipe table.
func ToMarkdown(ds Dataset) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", ds.Name))
	buf.WriteString(fmt.Sprintf("**Rows**: %d\n\n", len(ds.Rows)))

	buf.WriteString("|")
	for _, header := range ds.Headers {
		buf.WriteString(" " + header + " |")
	}
	buf.WriteString("\n|")
	for range ds.Headers {
		buf.WriteString(" --- |")
	}
	buf.WriteString("\n")

	for _, row := range ds.Rows {
		buf.WriteString("|")
		for _, cell := range row {
			buf.WriteString(" " + cell + " |")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// WriteCSVExport writes the dataset to {dir}/{name}.csv and returns the path.
func WriteCSVExport(ds Dataset, dir string) (string, error) {
	data, err := ToCSV(ds)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	path := filepath.Join(dir, ds.Name+".csv")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return path, nil
}

// WriteMarkdownExport writes the dataset to {dir}/{name}.md and returns the path.
func WriteMarkdownExport(ds Dataset, dir string) (string, error) {
	path := filepath.Join(dir, ds.Name+".md")
	if err := os.WriteFile(path, ToMarkdown(ds), 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return path, nil
}

// WriteJSONExport serializes rows to {dir}/{name}.json and returns the path.
func WriteJSONExport(name string, rows any, dir string) (string, error) {
	data, err := shared.MarshalJSON(rows, true)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	path := filepath.Join(dir, name+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return path, nil
}

// WriteManifest writes the export summary as indented JSON at path.
func WriteManifest(manifest any, path string) error {
	data, err := shared.MarshalJSON(manifest, true)
	if err != nil {
		return fmt.Errorf("failed to generate manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

func formatYear(year int64) string {
	if year == 0 {
		return ""
	}
	return strconv.FormatInt(year, 10)
}

func formatCount(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

func formatPrice(price *float64) string {
	if price == nil {
		return ""
	}
	return strconv.FormatFloat(*price, 'f', 2, 64)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
