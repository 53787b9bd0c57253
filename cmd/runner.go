package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/spotiq/internal/services"
	"github.com/desertthunder/spotiq/internal/shared"
)

// Catalog resolves Spotify resources. Implemented by [services.SpotifyService].
type Catalog interface {
	services.MetadataFetcher
	services.CollectionExpander
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    *services.SpotifyService
	catalog    Catalog
	player     services.PlaybackController
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    Catalog
	Player     services.PlaybackController
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
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

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		player:     opts.Player,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Before loads the configuration named by --config and builds the Spotify and player clients from it.
//
// Dependencies injected through [RunnerOpts] are kept.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				r.logger.Warn("failed to load config, using defaults", "path", path, "error", err)
			} else {
				r.config = config
			}
		}
	}

	if r.catalog == nil {
		if err := r.initSpotify(ctx); err != nil {
			r.logger.Debug("spotify service not configured", "error", err)
		}
	}

	if r.player == nil {
		timeout := time.Duration(r.config.Player.Timeout) * time.Second
		r.player = services.NewPlayerClient(r.config.Player.BaseURL, nil, timeout)
	}

	return ctx, nil
}

func (r *Runner) initSpotify(ctx context.Context) error {
	creds := r.config.Credentials.Spotify
	svc, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		return err
	}
	svc.SetRateLimit(creds.RateLimit)
	svc.SetTimeout(creds.RequestTimeout())
	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := r.saveTokens(token); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		}
	})
	if token := creds.Token(); token != nil {
		svc.UseToken(ctx, token)
		r.catalog = svc
	}
	r.spotify = svc
	return nil
}

func (r *Runner) requireCatalog() error {
	if r.catalog == nil {
		return fmt.Errorf("%w: run 'spotiq spotify auth' first", shared.ErrNotAuthenticated)
	}
	return nil
}

// saveTokens stores token in the config and writes it back to the config file, when there is one.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return errors.New("config is nil")
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, spotifyCommand, resolveCommand, expandCommand, queueCommand, serveCommand, sendCommand,
		tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
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
