package main

import (
	"context"
	"errors"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/repositories"
	"github.com/desertthunder/shelfsync/internal/shared"
	"github.com/desertthunder/shelfsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// statusReport is the JSON shape of the status command output.
type statusReport struct {
	Ledger []*models.LedgerEntry `json:"ledger"`
	Runs   []*models.RunSnapshot `json:"recent_runs,omitempty"`
}

// Status prints the per-source sync ledger and the most recent run snapshot.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, closeDB, err := r.database()
	if err != nil {
		return err
	}
	defer closeDB()

	entries, err := repositories.NewLedgerRepository(db).All()
	if err != nil {
		return err
	}

	runs := repositories.NewRunRepository(db)
	if cmd.Bool("json") {
		history, err := runs.History(5)
		if err != nil {
			return err
		}
		return r.writeJSON(statusReport{Ledger: entries, Runs: history}, cmd.Bool("pretty"))
	}

	if err := r.writePlain("\n%s", ui.RenderLedger(entries)); err != nil {
		return err
	}

	latest, err := runs.Latest()
	if errors.Is(err, shared.ErrNoRuns) {
		return r.writePlain("\nNo full sync runs recorded yet. Run 'shelfsync sync --all' to capture one.\n")
	}
	if err != nil {
		return err
	}

	return r.writePlain("\n%s", ui.RenderSnapshot(latest))
}
