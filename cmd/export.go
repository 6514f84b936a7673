package main

import (
	"context"

	"github.com/desertthunder/shelfsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export dumps the synced catalog tables to files on disk.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, closeDB, err := r.database()
	if err != nil {
		return err
	}
	defer closeDB()

	engine := r.newEngine(db)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := engine.Export(ctx, progressCh, tasks.ExportOpts{
		Format:    cmd.String("format"),
		OutputDir: cmd.String("output-dir"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Format: %s\n", result.Format)
	r.writePlain("Datasets: %d exported, %d failed\n", result.Exported, result.Failed)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if result.Failed > 0 {
		r.writePlain("\nFailed datasets:\n")
		for _, ds := range result.Datasets {
			if ds.Error != "" {
				r.writePlain("  - %s: %s\n", ds.Dataset, ds.Error)
			}
		}
	}

	return nil
}
