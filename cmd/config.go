package main

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/ytrelay/internal/services"
	"github.com/desertthunder/ytrelay/internal/shared"
	"github.com/desertthunder/ytrelay/internal/ui"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the embedded default configuration to --path, or to --config.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		path = cmd.String("config")
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	return ui.Fprintln(r.output, ui.OK("✓ Config created"), ui.Field("path", path))
}

// ConfigShow prints the effective configuration, after file, flag and environment overrides, as TOML.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	if err := toml.NewEncoder(r.output).Encode(r.config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Status calls /health on a running relay.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	baseURL := cmd.String("url")
	health, err := services.NewRelayClient(baseURL, r.httpClient).Health(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(health, false)
	}
	return ui.Fprintln(r.output,
		ui.Title("ytrelay status"),
		ui.OK("✓ Relay is up"),
		ui.Field("url", baseURL),
		ui.Field("status", health.Status),
		ui.Field("backend", health.Backend),
	)
}
