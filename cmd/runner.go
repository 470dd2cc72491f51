package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/photomirror/internal/shared"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	db          *sql.DB
	fs          afero.Fs
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	progressOut io.Writer
	clock       clockwork.Clock
	openBrowser func(url string) error
	endpoint    *oauth2.Endpoint
	userInfoURL string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config         *shared.Config
	DB             *sql.DB  // opened from Config.Database on first use when nil
	FS             afero.Fs // local catalogs and exports
	HTTPClient     *http.Client
	Logger         *log.Logger
	Output         io.Writer
	ProgressOutput io.Writer // progress bars, defaults to stderr
	Clock          clockwork.Clock
	OpenBrowser    func(url string) error
	OAuthEndpoint  *oauth2.Endpoint // overrides the Google endpoints
	UserInfoURL    string
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
	if opts.ProgressOutput == nil {
		opts.ProgressOutput = os.Stderr
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		db:          opts.DB,
		fs:          opts.FS,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		progressOut: opts.ProgressOutput,
		clock:       opts.Clock,
		openBrowser: opts.OpenBrowser,
		endpoint:    opts.OAuthEndpoint,
		userInfoURL: opts.UserInfoURL,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, accountsCommand, compareCommand, syncCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by commands and the services they create.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// loadConfig reads path when it exists and applies the configured log level.
// A missing file keeps the current config.
func (r *Runner) loadConfig(path string) error {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return err
			}
			if err := config.Validate(); err != nil {
				return err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", path)
		}
	}

	level, err := shared.ParseLogLevel(r.config.Logging.Level)
	if err != nil {
		return err
	}
	shared.SetLogLevel(r.logger, level)
	return nil
}

// database returns the injected database or opens the configured one.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: %v (run setup first)", shared.ErrMissingConfig, err)
	}
	r.db = db
	return db, nil
}

// Close releases the database opened by [Runner.database].
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
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

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
