package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/shelfsync/internal/repositories"
	"github.com/desertthunder/shelfsync/internal/shared"
	"github.com/desertthunder/shelfsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// Stats prints library-wide aggregates from the synced tables.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, closeDB, err := r.database()
	if err != nil {
		return err
	}
	defer closeDB()

	stats, err := repositories.NewStatsRepository(db).Overview()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}

	return r.writePlain("\n%s", ui.RenderStats(stats))
}

// Search looks up artists and album titles across every synced source.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	term := strings.TrimSpace(cmd.StringArg("query"))
	if term == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	db, closeDB, err := r.database()
	if err != nil {
		return err
	}
	defer closeDB()

	results, err := repositories.NewStatsRepository(db).Search(term, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(results, cmd.Bool("pretty"))
	}

	return r.writePlain("\n%s", ui.RenderSearchResults(term, results))
}
