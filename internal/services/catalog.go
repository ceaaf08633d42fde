package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytrelay/internal/extractor"
	"github.com/desertthunder/ytrelay/internal/models"
	"github.com/desertthunder/ytrelay/internal/profiles"
	"github.com/desertthunder/ytrelay/internal/shared"
)

const musicHost = "music.youtube.com"

// Catalog serves search, playlist and stream metadata lookups.
type Catalog struct {
	extractor extractor.Extractor
	profiles  *profiles.Table
	logger    *log.Logger
}

// NewCatalog creates a Catalog. A nil logger discards output.
func NewCatalog(ext extractor.Extractor, table *profiles.Table, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Catalog{extractor: ext, profiles: table, logger: logger}
}

// Search lists up to limit tracks matching query.
//
// A result without an entries list yields an empty result set. Null entries are skipped.
func (c *Catalog) Search(ctx context.Context, query string, limit int) (*models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", shared.ErrInvalidInput)
	}
	if limit < MinSearchLimit || limit > MaxSearchLimit {
		return nil, fmt.Errorf("%w: limit must be between %d and %d", shared.ErrInvalidInput, MinSearchLimit, MaxSearchLimit)
	}

	info, err := c.extractor.Extract(ctx, extractor.SearchTarget(query, limit), c.profiles.Select(profiles.IntentSearch))
	if err != nil {
		return nil, ExtractionError(err)
	}

	result := &models.SearchResult{Query: query, Results: tracks(info.Entries)}
	c.logger.Debug("search", "query", query, "limit", limit, "results", len(result.Results))
	return result, nil
}

// Playlist lists the tracks of the playlist at rawURL.
//
// Fails with [shared.ErrInvalidPlaylist] when the extractor reports no usable entries.
func (c *Catalog) Playlist(ctx context.Context, rawURL string) (*models.Playlist, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: url must not be empty", shared.ErrInvalidInput)
	}

	target := MusicURL(rawURL)
	info, err := c.extractor.Extract(ctx, target, c.profiles.Select(profiles.IntentPlaylist))
	if err != nil {
		return nil, ExtractionError(err)
	}

	if !info.HasEntries() {
		return nil, fmt.Errorf("%w: %s lists no entries", shared.ErrInvalidPlaylist, target)
	}

	items := tracks(info.Entries)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", shared.ErrInvalidPlaylist, target)
	}

	c.logger.Debug("playlist", "id", info.ID, "tracks", len(items))
	return &models.Playlist{
		ID:         info.ID,
		Name:       info.Title,
		TrackCount: len(items),
		Tracks:     items,
	}, nil
}

// StreamMetadata describes videoID. DirectURL is nil when no media URL resolves.
func (c *Catalog) StreamMetadata(ctx context.Context, videoID string) (*models.StreamMetadata, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, fmt.Errorf("%w: video id must not be empty", shared.ErrInvalidInput)
	}

	info, err := c.extractor.Extract(ctx, fmt.Sprintf(extractor.WatchURL, videoID), c.profiles.Select(profiles.IntentStreamMetadata))
	if err != nil {
		return nil, ExtractionError(err)
	}

	meta := &models.StreamMetadata{
		ID:        info.ID,
		Title:     info.Title,
		Artist:    info.Uploader,
		Duration:  info.Duration,
		Thumbnail: info.Thumbnail,
	}

	if directURL, err := Resolve(info); err == nil {
		meta.DirectURL = &directURL
	} else {
		c.logger.Warn("no direct url", "id", videoID, "error", err)
	}

	return meta, nil
}

// MusicURL rewrites youtube.com links to music.youtube.com. Other links are returned as is.
func MusicURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		if strings.Contains(rawURL, "youtube.com") && !strings.Contains(rawURL, musicHost) {
			return strings.Replace(rawURL, "youtube.com", musicHost, 1)
		}
		return rawURL
	}

	switch strings.ToLower(u.Hostname()) {
	case "youtube.com", "www.youtube.com", "m.youtube.com":
		u.Host = musicHost
		return u.String()
	default:
		return rawURL
	}
}

func tracks(entries []*models.Info) []models.Track {
	items := make([]models.Track, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		items = append(items, models.NewTrack(entry))
	}
	return items
}
