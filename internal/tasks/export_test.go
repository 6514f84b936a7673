package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
	tu "github.com/desertthunder/shelfsync/internal/testing"
)

// seededEngine runs a full sync so exports have rows to dump.
func seededEngine(t *testing.T) *CatalogEngine {
	t.Helper()
	library, catalog := defaultMocks()
	engine, _ := newTestEngine(t, library, catalog)
	if _, err := engine.RunAll(context.Background(), nil, false); err != nil {
		t.Fatalf("seed run failed: %v", err)
	}
	return engine
}

func TestExport(t *testing.T) {
	t.Run("WritesJSONByDefault", func(t *testing.T) {
		engine := seededEngine(t)
		dir := t.TempDir()

		result, err := engine.Export(context.Background(), nil, ExportOpts{OutputDir: dir})
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}

		if result.Format != "json" {
			t.Errorf("expected the json default, got %q", result.Format)
		}
		if result.Exported != 3 || result.Failed != 0 {
			t.Fatalf("expected 3 exported and 0 failed, got %d/%d", result.Exported, result.Failed)
		}
		if len(result.Datasets) != 3 {
			t.Fatalf("expected 3 datasets, got %d", len(result.Datasets))
		}

		// dataset order in the manifest is by name, not completion
		names := []string{"discogs_collection", "discogs_wantlist", "roon_albums"}
		rows := map[string]int{"discogs_collection": 2, "discogs_wantlist": 1, "roon_albums": 2}
		for i, ds := range result.Datasets {
			if ds.Dataset != names[i] {
				t.Errorf("dataset %d: expected %s, got %s", i, names[i], ds.Dataset)
			}
			if ds.Rows != rows[ds.Dataset] {
				t.Errorf("%s: expected %d rows, got %d", ds.Dataset, rows[ds.Dataset], ds.Rows)
			}
			if len(ds.Files) != 1 || !strings.HasSuffix(ds.Files[0], ds.Dataset+".json") {
				t.Errorf("%s: unexpected files %v", ds.Dataset, ds.Files)
			}
			tu.AssertFileExists(t, ds.Files[0])
		}

		var albums []models.RoonAlbum
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, filepath.Join(dir, "roon_albums.json"))), &albums); err != nil {
			t.Fatalf("failed to parse albums export: %v", err)
		}
		if len(albums) != 2 || albums[0].Artist != "Pink Floyd" {
			t.Fatalf("unexpected albums export: %+v", albums)
		}

		var manifest ExportResult
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
			t.Fatalf("failed to parse manifest: %v", err)
		}
		if manifest.Exported != 3 || len(manifest.Datasets) != 3 {
			t.Errorf("unexpected manifest: %+v", manifest)
		}
	})

	t.Run("WritesCSV", func(t *testing.T) {
		engine := seededEngine(t)
		dir := t.TempDir()

		result, err := engine.Export(context.Background(), nil, ExportOpts{Format: "csv", OutputDir: dir})
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if result.Exported != 3 {
			t.Fatalf("expected 3 exported datasets, got %d", result.Exported)
		}

		content := tu.MustReadFile(t, filepath.Join(dir, "discogs_collection.csv"))
		if !strings.HasPrefix(content, "Release ID,Artist,Album") {
			t.Errorf("unexpected CSV header: %q", strings.SplitN(content, "\n", 2)[0])
		}
		if !strings.Contains(content, "Pink Floyd") || !strings.Contains(content, "9.99") {
			t.Error("expected collection rows in the CSV")
		}
	})

	t.Run("WritesMarkdown", func(t *testing.T) {
		engine := seededEngine(t)
		dir := t.TempDir()

		if _, err := engine.Export(context.Background(), nil, ExportOpts{Format: "markdown", OutputDir: dir}); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		content := tu.MustReadFile(t, filepath.Join(dir, "discogs_wantlist.md"))
		for _, want := range []string{"# discogs_wantlist", "**Rows**: 1", "| Radiohead | In Rainbows | 2007 |"} {
			if !strings.Contains(content, want) {
				t.Errorf("markdown export missing %q", want)
			}
		}
	})

	t.Run("DefaultsOutputDirToEpochName", func(t *testing.T) {
		engine := seededEngine(t)

		wd := tu.MustGetwd(t)
		tu.MustChdir(t, t.TempDir())
		defer tu.MustChdir(t, wd)

		result, err := engine.Export(context.Background(), nil, ExportOpts{})
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if !strings.HasPrefix(result.OutputDirectory, "shelfsync_export_") {
			t.Errorf("unexpected default output dir %q", result.OutputDirectory)
		}
		tu.AssertDirExists(t, result.OutputDirectory)
		tu.AssertFileExists(t, result.ManifestPath)
	})

	t.Run("RejectsUnknownFormat", func(t *testing.T) {
		library, catalog := defaultMocks()
		engine, _ := newTestEngine(t, library, catalog)

		_, err := engine.Export(context.Background(), nil, ExportOpts{Format: "xml", OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("EmitsProgress", func(t *testing.T) {
		engine := seededEngine(t)

		progress := make(chan ProgressUpdate, 16)
		if _, err := engine.Export(context.Background(), progress, ExportOpts{OutputDir: t.TempDir()}); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		close(progress)

		count := 0
		for update := range progress {
			if update.Phase != ExportDataset {
				t.Errorf("unexpected phase %s", update.Phase)
			}
			if !strings.HasPrefix(update.Message, "✓") {
				t.Errorf("unexpected message %q", update.Message)
			}
			count++
		}
		if count != 3 {
			t.Errorf("expected one update per dataset, got %d", count)
		}
	})

	t.Run("RecordsDatasetFailures", func(t *testing.T) {
		library, catalog := defaultMocks()
		engine, db := newTestEngine(t, library, catalog)
		db.Close()

		result, err := engine.Export(context.Background(), nil, ExportOpts{OutputDir: t.TempDir()})
		if err != nil {
			t.Fatalf("dataset failures must not fail the export: %v", err)
		}

		if result.Failed != 3 || result.Exported != 0 {
			t.Fatalf("expected 3 failures, got %d failed / %d exported", result.Failed, result.Exported)
		}
		for _, ds := range result.Datasets {
			if ds.Error == "" {
				t.Errorf("%s: expected a recorded error", ds.Dataset)
			}
			if len(ds.Files) != 0 {
				t.Errorf("%s: no files should be written, got %v", ds.Dataset, ds.Files)
			}
		}
		tu.AssertFileExists(t, result.ManifestPath)
	})

	t.Run("FailsWhenOutputDirUnavailable", func(t *testing.T) {
		library, catalog := defaultMocks()
		engine, _ := newTestEngine(t, library, catalog)

		blocker := filepath.Join(t.TempDir(), "blocker")
		if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
			t.Fatalf("failed to write blocker file: %v", err)
		}

		_, err := engine.Export(context.Background(), nil, ExportOpts{OutputDir: filepath.Join(blocker, "out")})
		if err == nil || !strings.Contains(err.Error(), "failed to create output directory") {
			t.Fatalf("expected a directory creation error, got %v", err)
		}
	})

	t.Run("StopsOnCancelledContext", func(t *testing.T) {
		engine := seededEngine(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := engine.Export(ctx, nil, ExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(result.Datasets) != 0 {
			t.Errorf("expected no datasets exported, got %d", len(result.Datasets))
		}
	})
}
