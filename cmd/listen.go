package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/repositories"
	"github.com/desertthunder/shelfsync/internal/shared"
	"github.com/desertthunder/shelfsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// ListenLog records one listening event. Events sourced from discogs (or
// both) also stamp last_listened on the matching collection row.
func (r *Runner) ListenLog(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	source := cmd.String("source")
	switch source {
	case "roon", "discogs", "both":
	default:
		return fmt.Errorf("%w: source must be roon, discogs or both, got %q", shared.ErrInvalidArgument, source)
	}

	db, closeDB, err := r.database()
	if err != nil {
		return err
	}
	defer closeDB()

	entry := &models.ListeningEntry{
		Artist:     cmd.String("artist"),
		AlbumTitle: cmd.String("album"),
		Source:     source,
		ListenedAt: time.Now(),
		Notes:      cmd.String("notes"),
	}

	id, err := repositories.NewListeningRepository(db).Log(entry)
	if err != nil {
		return err
	}

	r.logger.Info("listening event recorded", "id", id, "artist", entry.Artist, "album", entry.AlbumTitle)
	return r.writePlainln("✓ Logged %s / %s (%s)", entry.Artist, entry.AlbumTitle, source)
}

// ListenRecent shows the newest listening events.
func (r *Runner) ListenRecent(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, closeDB, err := r.database()
	if err != nil {
		return err
	}
	defer closeDB()

	entries, err := repositories.NewListeningRepository(db).Recent(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	return r.writePlain("\n%s", ui.RenderListens(entries))
}
