package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytrelay/internal/extractor"
	"github.com/desertthunder/ytrelay/internal/formatter"
	"github.com/desertthunder/ytrelay/internal/profiles"
	"github.com/desertthunder/ytrelay/internal/services"
	"github.com/desertthunder/ytrelay/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	getenv     func(string) string

	extractor extractor.Extractor
	catalog   *services.Catalog
	relay     *services.Relay
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Config is loaded from the --config file when the app starts. A nil Extractor is
// built from the configured backend.
type RunnerOpts struct {
	Config     *shared.Config
	Extractor  extractor.Extractor
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Getenv     func(string) string
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Runner{
		config:     opts.Config,
		extractor:  opts.Extractor,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		getenv:     opts.Getenv,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, searchCommand, playlistCommand, exportCommand, streamCommand, proxyCommand, configCommand, statusCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Setup loads configuration, applies flag and environment overrides, then wires the services.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		config, err := r.loadConfig(cmd.String("config"))
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	if backend := cmd.String("backend"); backend != "" {
		r.config.Extractor.Backend = backend
	}
	if level := cmd.String("log-level"); level != "" {
		r.config.Log.Level = level
	}

	if err := r.config.ApplyEnv(r.getenv); err != nil {
		return ctx, err
	}
	if err := shared.ConfigureLogger(r.logger, r.config.Log); err != nil {
		return ctx, err
	}

	return ctx, r.wire()
}

// loadConfig reads path, falling back to the embedded defaults when the file does not exist.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return shared.DefaultConfig(), nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidConfig, path, err)
	}
	return config, nil
}

func (r *Runner) wire() error {
	table, err := profiles.NewTable(r.config.Profile, r.config.Extractor.Proxy)
	if err != nil {
		return err
	}

	upstream, err := services.NewHTTPClient(r.config.Relay, table.Select(profiles.IntentProxy))
	if err != nil {
		return err
	}

	if r.extractor == nil {
		ext, err := extractor.New(r.config.Extractor, upstream, shared.WithLogger(r.logger, "component", "extractor"))
		if err != nil {
			return err
		}
		r.extractor = ext
	}

	r.catalog = services.NewCatalog(r.extractor, table, shared.WithLogger(r.logger, "component", "catalog"))
	r.relay = services.NewRelay(r.extractor, table, r.config.Relay, upstream, shared.WithLogger(r.logger, "component", "relay"))
	r.logger.Debug("services ready", "backend", r.extractor.Name())
	return nil
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

// emit renders v in format f and writes it to path, or to the runner output when path is empty.
func (r *Runner) emit(f formatter.Format, v any, path string) error {
	data, err := formatter.Render(f, v)
	if err != nil {
		return err
	}

	if path == "" || path == "-" {
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.logger.Info("wrote listing", "path", path, "format", f)
	return nil
}
