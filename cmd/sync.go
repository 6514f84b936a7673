package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/repositories"
	"github.com/desertthunder/shelfsync/internal/shared"
	"github.com/desertthunder/shelfsync/internal/tasks"
	"github.com/desertthunder/shelfsync/internal/ui"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// Sync runs the engine for one source or every source. Per-source failures
// are part of the rendered report, not the exit code; only run-level
// problems (bad flags, no database, cancellation) fail the command.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	source := cmd.String("source")
	force := cmd.Bool("force")
	if source != "" && cmd.Bool("all") {
		return fmt.Errorf("%w: --source and --all are mutually exclusive", shared.ErrInvalidArgument)
	}

	db, closeDB, err := r.database()
	if err != nil {
		return err
	}
	defer closeDB()
	engine := r.newEngine(db)

	scope := source
	if scope == "" {
		scope = "all"
	}
	r.logger.Info("starting sync", "source", scope, "force", force)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.renderProgress(progressCh, done)

	started := time.Now()
	var run *tasks.RunResult
	if source == "" {
		run, err = engine.RunAll(ctx, progressCh, force)
	} else {
		var results []tasks.SourceResult
		results, err = engine.RunSource(ctx, progressCh, models.Source(source), force)
		run = &tasks.RunResult{Results: results, Forced: force, Elapsed: time.Since(started)}
	}
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n%s", ui.RenderRunReport(run))

	entries, err := repositories.NewLedgerRepository(db).All()
	if err != nil {
		return err
	}
	return r.writePlain("\n%s", ui.RenderLedger(entries))
}

// renderProgress consumes engine updates until the channel closes, then
// signals done. On a terminal the per-source chatter collapses into a
// progress bar; elsewhere every update becomes a plain line.
func (r *Runner) renderProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)

	if term.IsTerminal(int(os.Stdout.Fd())) {
		r.renderProgressBar(progress)
		return
	}

	for update := range progress {
		switch update.Phase {
		case tasks.StartSource:
			r.writePlain("%s\n", update.Message)
		case tasks.FetchListing, tasks.FetchStats, tasks.StoreRecords:
			r.writePlain("    %s\n", update.Message)
		case tasks.SourceSynced, tasks.SourceSkipped, tasks.SourceFailed, tasks.RecordRun:
			r.writePlain("%s\n", update.Message)
		}
	}
}

// renderProgressBar advances one bar across the run, one tick per finished
// source, with the current source's message as the description.
func (r *Runner) renderProgressBar(progress <-chan tasks.ProgressUpdate) {
	var bar *progressbar.ProgressBar

	for update := range progress {
		switch update.Phase {
		case tasks.StartSource:
			if bar == nil {
				bar = progressbar.NewOptions(update.Total,
					progressbar.OptionSetDescription(update.Message),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionThrottle(100*time.Millisecond),
					progressbar.OptionClearOnFinish(),
					progressbar.OptionSetRenderBlankState(true),
				)
			}
			bar.Describe(update.Message)
		case tasks.FetchListing, tasks.FetchStats, tasks.StoreRecords:
			if bar != nil {
				bar.Describe(update.Message)
			}
		case tasks.SourceSynced, tasks.SourceSkipped, tasks.SourceFailed:
			if bar != nil {
				bar.Add(1)
			}
		}
	}

	if bar != nil {
		bar.Finish()
	}
}
