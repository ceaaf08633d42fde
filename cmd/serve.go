package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/ytrelay/internal/server"
	"github.com/desertthunder/ytrelay/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP relay until SIGINT or SIGTERM, then drains in-flight requests.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	c := r.config.Server
	if host := cmd.String("host"); host != "" {
		c.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%w: port %d out of range", shared.ErrInvalidArgument, port)
		}
		c.Port = port
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := r.Handler()
	for _, pattern := range router.Patterns() {
		r.logger.Debug("route", "pattern", pattern)
	}

	srv := server.NewHTTPServer(c, router)
	r.logger.Info("starting relay", "addr", c.Addr(), "backend", r.extractor.Name(), "chunk_size", r.config.Relay.ChunkSize)
	return server.Serve(ctx, srv, c.ShutdownTimeout.Duration, shared.WithLogger(r.logger, "component", "server"))
}

// Handler assembles the API router over the wired services.
func (r *Runner) Handler() *server.BasicRouter {
	logger := shared.WithLogger(r.logger, "component", "http")
	api := server.NewAPI(r.catalog, r.relay, logger)
	return server.NewRouter(api, server.NewStatusHandler(r.extractor.Name()), logger)
}
