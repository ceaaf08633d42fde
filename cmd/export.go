package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/ytrelay/internal/formatter"
	"github.com/desertthunder/ytrelay/internal/shared"
	"github.com/desertthunder/ytrelay/internal/tasks"
	"github.com/desertthunder/ytrelay/internal/ui"
	"github.com/urfave/cli/v3"
)

// Export writes every playlist URL argument to --dir, printing progress as playlists finish.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	urls := cmd.Args().Slice()
	if len(urls) == 0 {
		return fmt.Errorf("%w: at least one playlist url", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := make(chan tasks.ProgressUpdate, len(urls)*2+1)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progress {
			if update.Phase == tasks.FetchPlaylist {
				r.logger.Debug(update.Message)
				continue
			}
			fmt.Fprintln(r.output, ui.Help(update.Message))
		}
	}()

	exporter := tasks.NewExporter(r.catalog, shared.WithLogger(r.logger, "component", "export"))
	result, err := exporter.BulkExport(ctx, progress, urls, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("dir"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		HTTPClient: r.httpClient,
	})
	close(progress)
	<-printed
	if err != nil {
		return err
	}

	summary := ui.OK(fmt.Sprintf("✓ Exported %d of %d playlists", result.SuccessfulExports, result.TotalPlaylists))
	if result.FailedExports > 0 {
		summary = ui.Warn(fmt.Sprintf("Exported %d of %d playlists, %d failed", result.SuccessfulExports, result.TotalPlaylists, result.FailedExports))
	}
	return ui.Fprintln(r.output, summary, ui.Field("directory", result.OutputDirectory), ui.Field("manifest", result.ManifestPath))
}
