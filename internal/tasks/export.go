package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/shelfsync/internal/formatter"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// exportWorkers caps how many datasets are exported concurrently.
const exportWorkers = 3

// ExportOpts contains configuration for a catalog export.
type ExportOpts struct {
	Format    string // Export format: json, csv, markdown
	OutputDir string // Destination directory (default: shelfsync_export_{epoch})
}

// DatasetResult describes one exported dataset in the manifest.
type DatasetResult struct {
	Dataset string   `json:"dataset"`
	Rows    int      `json:"rows"`
	Files   []string `json:"files,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ExportResult summarizes a catalog export across all datasets.
type ExportResult struct {
	OutputDirectory string          `json:"output_directory"`
	Format          string          `json:"format"`
	Exported        int             `json:"exported"`
	Failed          int             `json:"failed"`
	Datasets        []DatasetResult `json:"datasets"`
	ManifestPath    string          `json:"manifest_path,omitempty"`
}

// exportJob pairs a dataset name with the loader that materializes both its
// tabular view and the raw rows the JSON format serializes.
type exportJob struct {
	name string
	load func() (formatter.Dataset, any, error)
}

// Export dumps the synced catalog tables to one file per dataset plus a
// manifest summarizing the run. Datasets are exported concurrently; a
// failing dataset is reported in the manifest without stopping the others.
func (e *CatalogEngine) Export(ctx context.Context, progress chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	switch opts.Format {
	case "":
		opts.Format = "json"
	case "json", "csv", "markdown":
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("shelfsync_export_%d", time.Now().Unix())
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs := []exportJob{
		{name: "roon_albums", load: func() (formatter.Dataset, any, error) {
			albums, err := e.store.Albums.List()
			return formatter.AlbumsDataset(albums), albums, err
		}},
		{name: "discogs_collection", load: func() (formatter.Dataset, any, error) {
			items, err := e.store.Collection.List()
			return formatter.CollectionDataset(items), items, err
		}},
		{name: "discogs_wantlist", load: func() (formatter.Dataset, any, error) {
			items, err := e.store.Wantlist.List()
			return formatter.WantlistDataset(items), items, err
		}},
	}

	result := &ExportResult{
		OutputDirectory: opts.OutputDir,
		Format:          opts.Format,
		Datasets:        make([]DatasetResult, 0, len(jobs)),
	}

	work := make(chan exportJob, len(jobs))
	results := make(chan DatasetResult, len(jobs))

	var wg sync.WaitGroup
	workers := min(exportWorkers, len(jobs))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, work, results, opts)
	}

	for _, job := range jobs {
		work <- job
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		result.Datasets = append(result.Datasets, res)
		if res.Error != "" {
			result.Failed++
		} else {
			result.Exported++
		}
		e.sendProgress(progress, exportUpdate(res))
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	// worker completion order is nondeterministic
	sort.Slice(result.Datasets, func(i, j int) bool {
		return result.Datasets[i].Dataset < result.Datasets[j].Dataset
	})

	manifestPath := filepath.Join(opts.OutputDir, "manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	return result, nil
}

// exportWorker drains the job channel, writing one dataset per job.
func (e *CatalogEngine) exportWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan exportJob, results chan<- DatasetResult, opts ExportOpts) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		results <- e.exportDataset(job, opts)
	}
}

// exportDataset loads one dataset and writes it in the requested format.
func (e *CatalogEngine) exportDataset(job exportJob, opts ExportOpts) DatasetResult {
	result := DatasetResult{Dataset: job.name}

	ds, raw, err := job.load()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Rows = len(ds.Rows)

	var path string
	switch opts.Format {
	case "csv":
		path, err = formatter.WriteCSVExport(ds, opts.OutputDir)
	case "markdown":
		path, err = formatter.WriteMarkdownExport(ds, opts.OutputDir)
	default:
		path, err = formatter.WriteJSONExport(job.name, raw, opts.OutputDir)
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Files = []string{path}
	return result
}
