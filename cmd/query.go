package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/desertthunder/ytrelay/internal/formatter"
	"github.com/desertthunder/ytrelay/internal/shared"
	"github.com/desertthunder/ytrelay/internal/ui"
	"github.com/urfave/cli/v3"
)

// Search lists tracks matching the query argument.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	result, err := r.catalog.Search(ctx, query, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if format == formatter.FormatJSON {
		return r.emit(format, result, cmd.String("output"))
	}
	return r.emit(format, formatter.FromSearch(result), cmd.String("output"))
}

// Playlist lists the tracks of the playlist at the url argument, or exports them as
// Markdown with cover art when --dir is set.
func (r *Runner) Playlist(ctx context.Context, cmd *cli.Command) error {
	rawURL := cmd.StringArg("url")
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	playlist, err := r.catalog.Playlist(ctx, rawURL)
	if err != nil {
		return err
	}

	if dir := cmd.String("dir"); dir != "" {
		result, err := formatter.WriteMarkdownExport(ctx, r.httpClient, formatter.FromPlaylist(playlist), dir)
		if err != nil {
			return err
		}
		lines := []string{ui.OK(fmt.Sprintf("✓ Exported %s", playlist.Name))}
		for _, f := range result.Files {
			lines = append(lines, ui.Field("file", f))
		}
		return ui.Fprintln(r.output, lines...)
	}

	if format == formatter.FormatJSON {
		return r.emit(format, playlist, cmd.String("output"))
	}
	return r.emit(format, formatter.FromPlaylist(playlist), cmd.String("output"))
}

// Stream prints the metadata and direct URL for the video_id argument.
func (r *Runner) Stream(ctx context.Context, cmd *cli.Command) error {
	videoID := cmd.StringArg("video_id")
	if videoID == "" {
		return fmt.Errorf("%w: video_id", shared.ErrMissingArgument)
	}

	meta, err := r.catalog.StreamMetadata(ctx, videoID)
	if err != nil {
		return err
	}
	if meta.DirectURL == nil {
		r.logger.Warn("no direct URL resolved", "video_id", videoID)
	}
	return r.writeJSON(meta, cmd.Bool("pretty"))
}

// Proxy relays the audio of the video_id argument to --output, or to <video_id>.<ext> by
// default. Interrupting the command releases the upstream connection.
func (r *Runner) Proxy(ctx context.Context, cmd *cli.Command) error {
	videoID := cmd.StringArg("video_id")
	if videoID == "" {
		return fmt.Errorf("%w: video_id", shared.ErrMissingArgument)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream, err := r.relay.Open(ctx, videoID)
	if err != nil {
		return err
	}
	defer stream.Close()

	path := cmd.String("output")
	if path == "" {
		path = videoID + extensionFor(stream.ContentType())
	}

	var w io.Writer = r.output
	var file *os.File
	if path != "-" {
		if file, err = os.Create(path); err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		w = file
	}

	stats, err := stream.Forward(w)
	if file != nil {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}
	if err != nil {
		return fmt.Errorf("relay %s: %w", videoID, err)
	}

	r.logger.Info("relay finished", "video_id", videoID, "chunks", stats.Chunks, "bytes", stats.Bytes, "elapsed", stats.Elapsed)
	if path == "-" {
		return nil
	}
	return ui.Fprintln(r.output,
		ui.OK(fmt.Sprintf("✓ Saved %s", videoID)),
		ui.Field("file", path),
		ui.Field("content type", stream.ContentType()),
		ui.Field("bytes", stats.Bytes),
		ui.Field("chunks", stats.Chunks),
	)
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/webm":
		return ".webm"
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".bin"
	}
}
