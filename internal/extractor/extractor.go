// Package extractor resolves video, search and playlist references into [models.Info].
//
// Two backends implement [Extractor]:
//   - [YTDLP] drives the yt-dlp binary and understands every option in a profile
//   - [Native] uses a pure Go YouTube client and a search scraper, for hosts without yt-dlp
//
// Failures come back as [*Error], tagged with a [Kind] so callers map them once.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytrelay/internal/models"
	"github.com/desertthunder/ytrelay/internal/profiles"
	"github.com/desertthunder/ytrelay/internal/shared"
)

// WatchURL is the canonical watch page for a video ID.
const WatchURL = "https://www.youtube.com/watch?v=%s"

// SearchPrefix builds yt-dlp style search targets: ytsearch<limit>:<query>.
const SearchPrefix = "ytsearch"

// Extractor resolves a target string into structured metadata.
type Extractor interface {
	// Extract returns the metadata for target, or an [*Error].
	Extract(ctx context.Context, target string, profile profiles.OptionProfile) (*models.Info, error)

	// Name identifies the backend in logs and health output.
	Name() string
}

// Kind tags an extraction failure.
type Kind int

const (
	KindFailed Kind = iota
	KindBotDetected
)

func (k Kind) String() string {
	switch k {
	case KindBotDetected:
		return "bot-detected"
	default:
		return "failed"
	}
}

// Error is the typed failure every backend returns.
type Error struct {
	Kind    Kind
	Target  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Substrings of upstream error text meaning the request was rejected as automated traffic.
var botMarkers = []string{
	"confirm you're not a bot",
	"confirm you’re not a bot",
}

// IsBotDetection reports whether msg carries a bot-detection marker.
func IsBotDetection(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range botMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Classify wraps a backend error into an [*Error]. Errors that already are one pass through.
func Classify(target string, err error) error {
	if err == nil {
		return nil
	}

	var extractErr *Error
	if errors.As(err, &extractErr) {
		return err
	}

	msg := strings.TrimSpace(err.Error())
	kind := KindFailed
	if IsBotDetection(msg) {
		kind = KindBotDetected
	}

	return &Error{Kind: kind, Target: target, Message: msg, Err: err}
}

// SearchTarget builds the target string for a search of limit results.
func SearchTarget(query string, limit int) string {
	return fmt.Sprintf("%s%d:%s", SearchPrefix, limit, query)
}

// ParseSearchTarget splits a search target into query and limit.
func ParseSearchTarget(target string) (query string, limit int, ok bool) {
	rest, found := strings.CutPrefix(target, SearchPrefix)
	if !found {
		return "", 0, false
	}

	count, query, found := strings.Cut(rest, ":")
	if !found {
		return "", 0, false
	}

	limit = 1
	if count != "" {
		if _, err := fmt.Sscanf(count, "%d", &limit); err != nil || limit < 1 {
			return "", 0, false
		}
	}
	return query, limit, true
}

// New builds the configured backend, throttled when a rate limit is set.
func New(c shared.ExtractorConfig, httpClient *http.Client, logger *log.Logger) (Extractor, error) {
	var ext Extractor

	switch c.Backend {
	case "ytdlp", "":
		ext = NewYTDLP(c.Binary, c.Timeout.Duration, logger)
	case "native":
		ext = NewNative(httpClient, c.Timeout.Duration, logger)
	default:
		return nil, fmt.Errorf("%w: unknown extractor backend %q", shared.ErrInvalidConfig, c.Backend)
	}

	if c.RateLimit > 0 {
		ext = NewLimited(ext, c.RateLimit)
	}

	return ext, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
