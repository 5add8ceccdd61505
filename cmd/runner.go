package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/editor"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIService
	analyzer   services.Analyzer
	logger     *log.Logger
	output     io.Writer

	dbOnce sync.Once
	db     *sql.DB
	dbErr  error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        *services.APIService
	Analyzer   services.Analyzer // Defaults to an [services.AnalyzerService] over API
	HTTPClient *http.Client      // Used to build API when it is nil
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB // Opened from Config.Database on first use when nil
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.API == nil {
		opts.API = services.NewAPIService(opts.Config.API.BaseURL, opts.HTTPClient)
	}
	if opts.Analyzer == nil {
		opts.Analyzer = services.NewAnalyzerService(opts.API, services.AnalyzerOpts{
			OutputDir:      opts.Config.Export.OutputDir,
			RequestTimeout: opts.Config.API.Timeout(),
		})
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		analyzer:   opts.Analyzer,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	if opts.DB != nil {
		r.dbOnce.Do(func() { r.db = opts.DB })
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, uploadCommand, watchCommand, tracksCommand, exportCommand,
		historyCommand, cacheCommand, apiCommand, statusCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the database connection if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// database opens and migrates the configured database once.
func (r *Runner) database() (*sql.DB, error) {
	r.dbOnce.Do(func() {
		r.db, r.dbErr = shared.OpenDatabase(r.config.Database)
	})
	return r.db, r.dbErr
}

// repos returns the track and upload repositories over the local database.
func (r *Runner) repos() (*repositories.TrackRepository, *repositories.UploadRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, nil, fmt.Errorf("local cache unavailable: %w", err)
	}
	return repositories.NewTrackRepository(db), repositories.NewUploadRepository(db), nil
}

// store returns the local cache, or nil when the database cannot be opened. Commands that only
// use the cache opportunistically keep working without it.
func (r *Runner) store() *repositories.TrackCacheAdapter {
	tracks, uploads, err := r.repos()
	if err != nil {
		r.logger.Warn("running without local cache", "error", err)
		return nil
	}
	return repositories.NewTrackCacheAdapter(tracks, uploads)
}

// orchestrator builds an upload orchestrator from the [upload] config section.
func (r *Runner) orchestrator(updates chan<- tasks.ProgressUpdate) *tasks.Orchestrator {
	opts := tasks.OrchestratorOpts{
		Extension:       r.config.Upload.Extension,
		PollInterval:    r.config.Upload.Interval(),
		MaxPollFailures: r.config.Upload.MaxPollFailures,
		UploadTimeout:   r.config.Upload.UploadDeadline(),
		PollTimeout:     r.config.Upload.PollDeadline(),
		Logger:          r.logger,
		Updates:         updates,
	}
	if store := r.store(); store != nil {
		opts.Cacher = store
		opts.Recorder = store
	}
	return tasks.NewOrchestrator(r.analyzer, opts)
}

// session builds an edit session that writes loaded and saved tracks through to the cache.
func (r *Runner) session() *editor.Session {
	opts := editor.SessionOpts{Logger: r.logger}
	if store := r.store(); store != nil {
		opts.Cacher = store
	}
	return editor.NewSession(r.analyzer, opts)
}

// requestContext bounds a plain API call by api.request_timeout.
func (r *Runner) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := r.config.API.Timeout(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// timeoutError reports an expired request context as [shared.ErrTimeout].
func (r *Runner) timeoutError(ctx, rctx context.Context, err error) error {
	if ctx.Err() == nil && errors.Is(rctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: no response after %s: %w", shared.ErrTimeout, r.config.API.Timeout(), err)
	}
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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
