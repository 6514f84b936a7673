package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/repositories"
	"github.com/desertthunder/shelfsync/internal/services"
	"github.com/desertthunder/shelfsync/internal/shared"
	tu "github.com/desertthunder/shelfsync/internal/testing"
	"github.com/urfave/cli/v3"
)

// fakeLibrary serves a fixed album listing without a bridge session.
type fakeLibrary struct {
	albums []services.LibraryItem
	tagged []services.TaggedAlbum
}

func (f *fakeLibrary) Connect(ctx context.Context) error { return nil }
func (f *fakeLibrary) Close(ctx context.Context) error   { return nil }

func (f *fakeLibrary) FetchAlbums(ctx context.Context) ([]services.LibraryItem, error) {
	return f.albums, nil
}

func (f *fakeLibrary) FetchTaggedAlbums(ctx context.Context, tagNames []string) ([]services.TaggedAlbum, []string, error) {
	return f.tagged, nil, nil
}

func (f *fakeLibrary) Name() string { return "Roon" }

// fakeCatalog serves one-page collection and wantlist listings.
type fakeCatalog struct {
	releases []services.CollectionRelease
	wants    []services.Want
}

func (f *fakeCatalog) CollectionReleases(ctx context.Context, page int) (*services.CollectionPage, error) {
	return &services.CollectionPage{
		Pagination: services.DiscogsPagination{Page: page, Pages: 1, PerPage: 100, Items: len(f.releases)},
		Releases:   f.releases,
	}, nil
}

func (f *fakeCatalog) Wants(ctx context.Context, page int) (*services.WantlistPage, error) {
	return &services.WantlistPage{
		Pagination: services.DiscogsPagination{Page: page, Pages: 1, PerPage: 100, Items: len(f.wants)},
		Wants:      f.wants,
	}, nil
}

func (f *fakeCatalog) MarketplaceStats(ctx context.Context, releaseID int64) (*services.MarketplaceStats, error) {
	return &services.MarketplaceStats{
		NumForSale:  2,
		LowestPrice: &services.Price{Currency: "USD", Value: 12.5},
	}, nil
}

func (f *fakeCatalog) Release(ctx context.Context, releaseID int64) (*services.DiscogsRelease, error) {
	return &services.DiscogsRelease{
		ID:    releaseID,
		Title: "Remain in Light",
		Tracklist: []services.ReleaseTrack{
			{Position: "A1", Title: "Born Under Punches", Duration: "5:46"},
		},
	}, nil
}

func (f *fakeCatalog) Name() string { return "Discogs" }

// testDB opens a migrated in-memory database.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	// one connection: a pooled :memory: database is per-connection
	shared.ConfigureDatabase(db, 1, 1)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// testRunner builds a Runner over fakes and a fresh database, capturing
// command output in the returned buffer.
func testRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()

	output := &bytes.Buffer{}
	library := &fakeLibrary{
		albums: []services.LibraryItem{
			{Title: "Abbey Road", Subtitle: "The Beatles", ItemKey: "1:0", ImageKey: "img-1"},
			{Title: "Remain in Light", Subtitle: "Talking Heads", ItemKey: "1:1", ImageKey: "img-2"},
		},
	}
	catalog := &fakeCatalog{
		releases: []services.CollectionRelease{
			{
				ID:         101,
				InstanceID: 1,
				Rating:     5,
				BasicInfo: services.BasicInfo{
					ID:      101,
					Title:   "Remain in Light",
					Year:    1980,
					Artists: []services.DiscogsArtist{{Name: "Talking Heads"}},
					Formats: []services.DiscogsFormat{{Name: "Vinyl", Qty: "1"}},
					Labels:  []services.DiscogsLabel{{Name: "Sire", CatNo: "SRK 6095"}},
				},
			},
		},
		wants: []services.Want{
			{
				ID: 202,
				BasicInfo: services.BasicInfo{
					ID:      202,
					Title:   "Fear of Music",
					Year:    1979,
					Artists: []services.DiscogsArtist{{Name: "Talking Heads"}},
				},
				Notes: "original pressing",
			},
		},
	}

	runner := NewRunner(RunnerOpts{
		Library: library,
		Catalog: catalog,
		DB:      testDB(t),
		Output:  output,
	})

	return runner, output
}

// runCLI dispatches args through a fresh command tree bound to the runner.
func runCLI(t *testing.T, r *Runner, args ...string) error {
	t.Helper()

	app := &cli.Command{Name: "shelfsync", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"shelfsync"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			library := &fakeLibrary{}
			catalog := &fakeCatalog{}
			db := testDB(t)

			runner := NewRunner(RunnerOpts{
				Config:  config,
				Library: library,
				Catalog: catalog,
				DB:      db,
				Logger:  logger,
				Output:  output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.library != library {
				t.Error("expected library to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.db != db {
				t.Error("expected db to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("leaves services nil until an action needs them", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.library != nil {
				t.Error("expected library to stay nil")
			}
			if runner.catalog != nil {
				t.Error("expected catalog to stay nil")
			}
			if runner.db != nil {
				t.Error("expected db to stay nil")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlainln", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		err := runner.writePlainln("logged %d", 1)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "\nlogged 1\n" {
			t.Errorf("expected output wrapped in newlines, got %q", output.String())
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) != 7 {
			t.Fatalf("expected 7 commands, got %d", len(commands))
		}

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "sync", "status", "stats", "search", "listen", "export"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})

	t.Run("database", func(t *testing.T) {
		t.Run("returns the injected connection", func(t *testing.T) {
			injected := testDB(t)
			runner := NewRunner(RunnerOpts{DB: injected})

			db, cleanup, err := runner.database()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if db != injected {
				t.Error("expected the injected connection back")
			}

			cleanup()
			if err := db.Ping(); err != nil {
				t.Errorf("cleanup should not close an injected connection: %v", err)
			}
		})

		t.Run("errors when the database file is missing", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Database.Path = filepath.Join(t.TempDir(), "absent.db")
			runner := NewRunner(RunnerOpts{Config: config})

			_, _, err := runner.database()
			if err == nil {
				t.Fatal("expected error for missing database file")
			}
			if !strings.Contains(err.Error(), "no database at") {
				t.Errorf("expected missing database error, got %v", err)
			}
		})

		t.Run("opens an existing database file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog.db")
			seed, err := shared.NewDatabase(path)
			if err != nil {
				t.Fatalf("failed to create database file: %v", err)
			}
			seed.Close()

			config := shared.DefaultConfig()
			config.Database.Path = path
			runner := NewRunner(RunnerOpts{Config: config})

			db, cleanup, err := runner.database()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if err := db.Ping(); err != nil {
				t.Fatalf("expected a live connection, got %v", err)
			}

			cleanup()
			if err := db.Ping(); err == nil {
				t.Error("cleanup should close a connection this call opened")
			}
		})
	})

	t.Run("reloadConfig", func(t *testing.T) {
		t.Run("honors the config flag", func(t *testing.T) {
			runner, _ := testRunner(t)
			path := filepath.Join(t.TempDir(), "config.toml")
			contents := "[discogs]\nusername = \"worn-grooves\"\n"
			if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			if err := runCLI(t, runner, "status", "--config", path); err != nil {
				t.Fatalf("status failed: %v", err)
			}

			if runner.config.Discogs.Username != "worn-grooves" {
				t.Errorf("expected config reload from flag path, got username %q", runner.config.Discogs.Username)
			}
		})

		t.Run("keeps current config when the file is absent", func(t *testing.T) {
			runner, _ := testRunner(t)
			before := runner.config

			path := filepath.Join(t.TempDir(), "nope.toml")
			if err := runCLI(t, runner, "status", "--config", path); err != nil {
				t.Fatalf("status failed: %v", err)
			}

			if runner.config != before {
				t.Error("expected config to stay untouched for a missing file")
			}
		})
	})
}

func TestCommands(t *testing.T) {
	t.Run("status lists the seeded ledger", func(t *testing.T) {
		runner, out := testRunner(t)

		if err := runCLI(t, runner, "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}

		text := out.String()
		if !strings.Contains(text, "Sync Ledger") {
			t.Errorf("expected ledger header, got %q", text)
		}
		if !strings.Contains(text, "roon_albums") || !strings.Contains(text, "track_index") {
			t.Errorf("expected seeded sources in output, got %q", text)
		}
		if !strings.Contains(text, "never synced") {
			t.Errorf("expected fresh sources to show never synced, got %q", text)
		}
		if !strings.Contains(text, "No full sync runs recorded yet") {
			t.Errorf("expected missing snapshot hint, got %q", text)
		}
	})

	t.Run("status json reports ledger entries", func(t *testing.T) {
		runner, out := testRunner(t)

		if err := runCLI(t, runner, "status", "--json"); err != nil {
			t.Fatalf("status failed: %v", err)
		}

		var report statusReport
		if err := json.Unmarshal(out.Bytes(), &report); err != nil {
			t.Fatalf("failed to parse status JSON: %v", err)
		}
		if len(report.Ledger) != 7 {
			t.Errorf("expected 7 ledger entries, got %d", len(report.Ledger))
		}
		if len(report.Runs) != 0 {
			t.Errorf("expected no recorded runs, got %d", len(report.Runs))
		}
	})

	t.Run("sync all syncs every source", func(t *testing.T) {
		runner, out := testRunner(t)

		if err := runCLI(t, runner, "sync"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		text := out.String()
		if !strings.Contains(text, "[1/7] Syncing roon_albums...") {
			t.Errorf("expected progress lines, got %q", text)
		}
		if !strings.Contains(text, "Sync Run") {
			t.Errorf("expected run report, got %q", text)
		}
		if !strings.Contains(text, "5 synced, 2 skipped, 0 failed") {
			t.Errorf("expected totals line, got %q", text)
		}
		if !strings.Contains(text, "recorded") {
			t.Errorf("expected snapshot confirmation, got %q", text)
		}
		if !strings.Contains(text, "Sync Ledger") {
			t.Errorf("expected ledger after report, got %q", text)
		}

		out.Reset()
		if err := runCLI(t, runner, "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(out.String(), "Last Full Run") {
			t.Errorf("expected snapshot in status, got %q", out.String())
		}
	})

	t.Run("sync scoped to roon albums rides the tag pass", func(t *testing.T) {
		runner, out := testRunner(t)

		if err := runCLI(t, runner, "sync", "--source", "roon_albums"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		text := out.String()
		if !strings.Contains(text, "roon_tags") {
			t.Errorf("expected tag pass in scoped run, got %q", text)
		}
		if !strings.Contains(text, "2 synced, 0 skipped, 0 failed") {
			t.Errorf("expected scoped totals, got %q", text)
		}
		if strings.Contains(text, "recorded") {
			t.Errorf("scoped run must not record a snapshot, got %q", text)
		}
	})

	t.Run("sync rejects source combined with all", func(t *testing.T) {
		runner, _ := testRunner(t)

		err := runCLI(t, runner, "sync", "--source", "roon_albums", "--all")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument error, got %v", err)
		}
	})

	t.Run("sync rejects an unknown source", func(t *testing.T) {
		runner, _ := testRunner(t)

		err := runCLI(t, runner, "sync", "--source", "vinyl_shelf")
		if !errors.Is(err, shared.ErrSourceUnknown) {
			t.Errorf("expected unknown source error, got %v", err)
		}
	})

	t.Run("listen log records an event", func(t *testing.T) {
		runner, out := testRunner(t)

		err := runCLI(t, runner, "listen", "log",
			"--artist", "Brian Eno", "--album", "Another Green World", "--notes", "rainy evening")
		if err != nil {
			t.Fatalf("listen log failed: %v", err)
		}
		if !strings.Contains(out.String(), "✓ Logged Brian Eno / Another Green World (both)") {
			t.Errorf("expected confirmation line, got %q", out.String())
		}

		out.Reset()
		if err := runCLI(t, runner, "listen", "recent"); err != nil {
			t.Fatalf("listen recent failed: %v", err)
		}

		text := out.String()
		if !strings.Contains(text, "Recent Listens") {
			t.Errorf("expected listens header, got %q", text)
		}
		if !strings.Contains(text, "Brian Eno - Another Green World") {
			t.Errorf("expected logged event, got %q", text)
		}
		if !strings.Contains(text, "rainy evening") {
			t.Errorf("expected notes in output, got %q", text)
		}
	})

	t.Run("listen log rejects an unknown source", func(t *testing.T) {
		runner, _ := testRunner(t)

		err := runCLI(t, runner, "listen", "log", "--artist", "X", "--album", "Y", "--source", "vinyl")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument error, got %v", err)
		}
	})

	t.Run("listen recent json round-trips entries", func(t *testing.T) {
		runner, out := testRunner(t)

		if err := runCLI(t, runner, "listen", "log", "--artist", "Can", "--album", "Future Days", "--source", "roon"); err != nil {
			t.Fatalf("listen log failed: %v", err)
		}

		out.Reset()
		if err := runCLI(t, runner, "listen", "recent", "--json"); err != nil {
			t.Fatalf("listen recent failed: %v", err)
		}

		var entries []models.ListeningEntry
		if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
			t.Fatalf("failed to parse listens JSON: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if entries[0].Artist != "Can" || entries[0].Source != "roon" {
			t.Errorf("unexpected entry %+v", entries[0])
		}
	})

	t.Run("search finds synced albums", func(t *testing.T) {
		runner, out := testRunner(t)

		if err := runCLI(t, runner, "sync"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		out.Reset()
		if err := runCLI(t, runner, "search", "talking"); err != nil {
			t.Fatalf("search failed: %v", err)
		}

		text := out.String()
		if !strings.Contains(text, "Search: talking") {
			t.Errorf("expected search header, got %q", text)
		}
		if !strings.Contains(text, "Remain in Light") {
			t.Errorf("expected a match, got %q", text)
		}
	})

	t.Run("search without a query errors", func(t *testing.T) {
		runner, _ := testRunner(t)

		err := runCLI(t, runner, "search")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument error, got %v", err)
		}
	})

	t.Run("stats reports the library overview", func(t *testing.T) {
		runner, out := testRunner(t)

		if err := runCLI(t, runner, "sync"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		out.Reset()
		if err := runCLI(t, runner, "stats"); err != nil {
			t.Fatalf("stats failed: %v", err)
		}

		text := out.String()
		if !strings.Contains(text, "Library Overview") {
			t.Errorf("expected overview header, got %q", text)
		}
		if !strings.Contains(text, "Across Sources") {
			t.Errorf("expected derived section, got %q", text)
		}
		if !strings.Contains(text, "Wantlist value") {
			t.Errorf("expected wantlist value line, got %q", text)
		}
	})

	t.Run("stats json carries table counts", func(t *testing.T) {
		runner, out := testRunner(t)

		if err := runCLI(t, runner, "sync"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		out.Reset()
		if err := runCLI(t, runner, "stats", "--json"); err != nil {
			t.Fatalf("stats failed: %v", err)
		}

		var stats models.LibraryStats
		if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
			t.Fatalf("failed to parse stats JSON: %v", err)
		}
		if stats.RoonAlbums != 2 {
			t.Errorf("expected 2 roon albums, got %d", stats.RoonAlbums)
		}
		if stats.DiscogsCollection != 1 {
			t.Errorf("expected 1 collection release, got %d", stats.DiscogsCollection)
		}
		if stats.DiscogsWantlist != 1 {
			t.Errorf("expected 1 wantlist entry, got %d", stats.DiscogsWantlist)
		}
	})

	t.Run("export writes datasets and a manifest", func(t *testing.T) {
		runner, out := testRunner(t)

		if err := runCLI(t, runner, "sync"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		dir := filepath.Join(t.TempDir(), "dump")
		out.Reset()
		if err := runCLI(t, runner, "export", "--output-dir", dir); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		text := out.String()
		if !strings.Contains(text, "Export Complete!") {
			t.Errorf("expected export summary, got %q", text)
		}
		if !strings.Contains(text, "Datasets: 3 exported, 0 failed") {
			t.Errorf("expected dataset totals, got %q", text)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "manifest.json"))
		tu.AssertFileExists(t, filepath.Join(dir, "roon_albums.json"))
		tu.AssertFileExists(t, filepath.Join(dir, "discogs_collection.json"))
		tu.AssertFileExists(t, filepath.Join(dir, "discogs_wantlist.json"))
	})

	t.Run("export rejects an unknown format", func(t *testing.T) {
		runner, _ := testRunner(t)

		err := runCLI(t, runner, "export", "--format", "xml", "--output-dir", filepath.Join(t.TempDir(), "dump"))
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument error, got %v", err)
		}
	})

	t.Run("setup config writes the template", func(t *testing.T) {
		runner, out := testRunner(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := runCLI(t, runner, "setup", "config", "--output", path); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}

		tu.AssertFileExists(t, path)
		if !strings.Contains(out.String(), "✓ Config written to") {
			t.Errorf("expected confirmation, got %q", out.String())
		}
	})

	t.Run("setup config refuses to overwrite", func(t *testing.T) {
		runner, _ := testRunner(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := runCLI(t, runner, "setup", "config", "--output", path); err != nil {
			t.Fatalf("first setup config failed: %v", err)
		}

		err := runCLI(t, runner, "setup", "config", "--output", path)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument error, got %v", err)
		}
	})

	t.Run("setup database provisions and seeds file paths", func(t *testing.T) {
		tmp := t.TempDir()
		dbPath := filepath.Join(tmp, "catalog.db")
		tracksPath := filepath.Join(tmp, "tracks.csv")
		cfgPath := filepath.Join(tmp, "config.toml")

		contents := "[database]\npath = \"" + dbPath + "\"\nmax_open_conns = 1\nmax_idle_conns = 1\n" +
			"[files]\nroon_tracks = \"" + tracksPath + "\"\n"
		if err := os.WriteFile(cfgPath, []byte(contents), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		if err := runCLI(t, runner, "setup", "database", "--config", cfgPath); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}

		tu.AssertFileExists(t, dbPath)

		db, err := shared.NewDatabase(dbPath)
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		entry, err := repositories.NewLedgerRepository(db).Get(models.SourceRoonTracks)
		if err != nil {
			t.Fatalf("failed to read ledger: %v", err)
		}
		if entry.FilePath != tracksPath {
			t.Errorf("expected seeded file path %q, got %q", tracksPath, entry.FilePath)
		}
	})
}
