package formatter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
)

func testCollection() []models.CollectionItem {
	added := time.Date(2019, 3, 30, 0, 0, 0, 0, time.UTC)
	forSale := int64(14)
	price := 24.99

	return []models.CollectionItem{
		{
			ReleaseID:       1477432,
			Artist:          "The Beatles",
			AlbumTitle:      "Abbey Road",
			Year:            1969,
			Label:           "Apple Records",
			Format:          "Vinyl",
			MediaCondition:  "Near Mint (NM or M-)",
			SleeveCondition: "Very Good Plus (VG+)",
			Rating:          4,
			NumForSale:      &forSale,
			LowestPrice:     &price,
			DateAdded:       &added,
			InCollection:    true,
		},
		{
			ReleaseID:  555,
			Artist:     "Can",
			AlbumTitle: "Tago Mago",
			Year:       1971,
		},
	}
}

func TestDatasets(t *testing.T) {
	t.Run("CollectionCSV", func(t *testing.T) {
		data, err := ToCSV(CollectionDataset(testCollection()))
		if err != nil {
			t.Fatalf("ToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Release ID,Artist,Album,Year,Label,Format") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1477432,The Beatles,Abbey Road,1969,Apple Records,Vinyl") {
			t.Errorf("CSV missing collection row, got: %s", output)
		}
		if !strings.Contains(output, "14,24.99,2019-03-30") {
			t.Errorf("CSV missing stats columns, got: %s", output)
		}

		// the release with no stats renders empty cells, never "0"
		if !strings.Contains(output, "555,Can,Tago Mago,1971,,,,,0,,,,,false,") {
			t.Errorf("CSV should leave missing stats empty, got: %s", output)
		}
	})

	t.Run("AlbumsCSV", func(t *testing.T) {
		albums := []models.RoonAlbum{
			{Artist: "Pink Floyd", AlbumTitle: "The Wall", IsPhysicalDupe: true, PhysicalTag: "MyLPs"},
			{Artist: "Miles Davis", AlbumTitle: "Kind of Blue"},
		}

		data, err := ToCSV(AlbumsDataset(albums))
		if err != nil {
			t.Fatalf("ToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Pink Floyd,The Wall,true,MyLPs") {
			t.Errorf("CSV missing flagged album, got: %s", output)
		}
		if !strings.Contains(output, "Miles Davis,Kind of Blue,false,") {
			t.Errorf("CSV missing unflagged album, got: %s", output)
		}
	})

	t.Run("WantlistMarkdown", func(t *testing.T) {
		forSale := int64(4)
		price := 25.5
		wants := []models.WantlistItem{
			{ReleaseID: 3214567, Artist: "Radiohead", AlbumTitle: "In Rainbows", Year: 2007,
				NumForSale: &forSale, LowestPrice: &price, Available: true,
				MarketplaceURL: "https://www.discogs.com/sell/release/3214567"},
		}

		output := string(ToMarkdown(WantlistDataset(wants)))

		if !strings.Contains(output, "# discogs_wantlist") {
			t.Errorf("Markdown missing title, got: %s", output)
		}
		if !strings.Contains(output, "**Rows**: 1") {
			t.Errorf("Markdown missing row count, got: %s", output)
		}
		if !strings.Contains(output, "| Release ID | Artist | Album |") {
			t.Errorf("Markdown missing header row, got: %s", output)
		}
		if !strings.Contains(output, "| --- |") {
			t.Errorf("Markdown missing separator row, got: %s", output)
		}
		if !strings.Contains(output, "| Radiohead | In Rainbows | 2007 |") {
			t.Errorf("Markdown missing want row, got: %s", output)
		}
		if !strings.Contains(output, "25.50") {
			t.Errorf("Markdown missing price, got: %s", output)
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		dir := t.TempDir()

		path, err := WriteCSVExport(CollectionDataset(testCollection()), dir)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		if path != filepath.Join(dir, "discogs_collection.csv") {
			t.Errorf("unexpected path %s", path)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if !strings.Contains(string(content), "Abbey Road") {
			t.Errorf("export missing data, got: %s", content)
		}
	})

	t.Run("WriteJSONExport", func(t *testing.T) {
		dir := t.TempDir()

		path, err := WriteJSONExport("discogs_collection", testCollection(), dir)
		if err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}

		var decoded []models.CollectionItem
		if err := json.Unmarshal(content, &decoded); err != nil {
			t.Fatalf("export is not valid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[0].AlbumTitle != "Abbey Road" {
			t.Errorf("unexpected decoded export: %+v", decoded)
		}
	})

	t.Run("WriteManifest", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "manifest.json")

		manifest := map[string]any{"format": "csv", "exported": 3}
		if err := WriteManifest(manifest, path); err != nil {
			t.Fatalf("WriteManifest failed: %v", err)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read manifest: %v", err)
		}
		if !strings.Contains(string(content), `"format": "csv"`) {
			t.Errorf("manifest missing fields, got: %s", content)
		}
	})

	t.Run("WriteCSVExportToMissingDir", func(t *testing.T) {
		_, err := WriteCSVExport(AlbumsDataset(nil), "/nonexistent/subdir")
		if err == nil {
			t.Fatal("expected error writing to a missing directory")
		}
		if !strings.Contains(err.Error(), "failed to write CSV file") {
			t.Errorf("expected write error, got: %v", err)
		}
	})
}
