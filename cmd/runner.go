package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shelfsync/internal/services"
	"github.com/desertthunder/shelfsync/internal/shared"
	"github.com/desertthunder/shelfsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	library services.LibraryService
	catalog services.CatalogService
	db      *sql.DB
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner. Library,
// Catalog and DB are optional; actions build live ones from the config when
// they are nil.
type RunnerOpts struct {
	Config  *shared.Config
	Library services.LibraryService
	Catalog services.CatalogService
	DB      *sql.DB
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		library: opts.Library,
		catalog: opts.Catalog,
		db:      opts.DB,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, statusCommand, statsCommand, searchCommand, listenCommand, exportCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig re-reads the file named by the command's --config flag so the
// flag is honored on every invocation. A missing file keeps the current
// config; a broken one logs a warning and keeps the current config.
func (r *Runner) reloadConfig(cmd *cli.Command) {
	path := cmd.String("config")
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current settings", "path", path, "error", err)
		return
	}
	r.config = config
}

// database returns the connection injected at construction when present,
// otherwise opens the configured database file. The cleanup func closes
// only what this call opened.
func (r *Runner) database() (*sql.DB, func(), error) {
	if r.db != nil {
		return r.db, func() {}, nil
	}

	path := r.config.Database.Path
	if path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			return nil, nil, fmt.Errorf("no database at %s, run 'shelfsync setup database' first", path)
		}
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	return db, func() { db.Close() }, nil
}

// newEngine wires the sync engine over one database connection, building
// live service clients unless test doubles were injected.
func (r *Runner) newEngine(db *sql.DB) *tasks.CatalogEngine {
	library := r.library
	if library == nil {
		library = services.NewRoonService(r.config.Roon)
	}
	catalog := r.catalog
	if catalog == nil {
		catalog = services.NewDiscogsService(r.config.Discogs)
	}

	return tasks.NewCatalogEngine(library, catalog, tasks.NewStore(db), r.config)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
