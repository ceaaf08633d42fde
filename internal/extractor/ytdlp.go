package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytrelay/internal/models"
	"github.com/desertthunder/ytrelay/internal/profiles"
	"github.com/lrstanley/go-ytdlp"
)

type runFunc func(ctx context.Context, cmd *ytdlp.Command, target string) (*ytdlp.Result, error)

func runCommand(ctx context.Context, cmd *ytdlp.Command, target string) (*ytdlp.Result, error) {
	return cmd.Run(ctx, target)
}

// YTDLP extracts metadata by running yt-dlp with --dump-single-json.
type YTDLP struct {
	binary  string
	timeout time.Duration
	logger  *log.Logger
	run     runFunc
}

// NewYTDLP creates a backend running binary, or yt-dlp from PATH when binary is empty.
func NewYTDLP(binary string, timeout time.Duration, logger *log.Logger) *YTDLP {
	return &YTDLP{binary: binary, timeout: timeout, logger: logger, run: runCommand}
}

func (y *YTDLP) Name() string { return "ytdlp" }

// Command translates a profile into a yt-dlp invocation.
func (y *YTDLP) Command(p profiles.OptionProfile) *ytdlp.Command {
	cmd := ytdlp.New().DumpSingleJSON().SkipDownload()

	if y.binary != "" {
		cmd.SetExecutable(y.binary)
	}
	if p.Quiet {
		cmd.Quiet().NoWarnings()
	}
	if p.ForceIPv4 {
		cmd.ForceIPv4()
	}
	if p.FlatPlaylist {
		cmd.FlatPlaylist()
	}
	if p.NoPlaylist {
		cmd.NoPlaylist()
	}
	if p.Format != "" {
		cmd.Format(p.Format)
	}
	if p.Client != profiles.ClientDefault {
		cmd.ExtractorArgs("youtube:player_client=" + string(p.Client))
	}
	if p.Proxy != "" {
		cmd.Proxy(p.Proxy)
	}
	for key, value := range p.Headers() {
		cmd.AddHeaders(key + ":" + value)
	}

	return cmd
}

// Extract runs yt-dlp against target and decodes its JSON document.
func (y *YTDLP) Extract(ctx context.Context, target string, p profiles.OptionProfile) (*models.Info, error) {
	ctx, cancel := withTimeout(ctx, y.timeout)
	defer cancel()

	start := time.Now()
	result, err := y.run(ctx, y.Command(p), target)
	if err != nil {
		return nil, Classify(target, failureMessage(result, err))
	}

	var info models.Info
	if err := json.Unmarshal([]byte(result.Stdout), &info); err != nil {
		return nil, &Error{
			Kind:    KindFailed,
			Target:  target,
			Message: fmt.Sprintf("could not decode extractor output: %v", err),
			Err:     err,
		}
	}

	if y.logger != nil {
		y.logger.Debug("extracted", "backend", y.Name(), "target", target, "elapsed", time.Since(start))
	}
	return &info, nil
}

// failureMessage prefers yt-dlp's own stderr over the exit status.
func failureMessage(result *ytdlp.Result, err error) error {
	if result == nil {
		return err
	}

	stderr := strings.TrimSpace(result.Stderr)
	if stderr == "" {
		return err
	}

	lines := strings.Split(stderr, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); strings.HasPrefix(line, "ERROR:") {
			return errors.Join(errors.New(strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))), err)
		}
	}
	return errors.Join(errors.New(stderr), err)
}
