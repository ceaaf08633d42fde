package extractor

import (
	"cmp"
	"context"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytrelay/internal/models"
	"github.com/desertthunder/ytrelay/internal/profiles"
	"github.com/kkdai/youtube/v2"
	"github.com/raitonoberu/ytsearch"
)

// searchHit is one row of a native search.
type searchHit struct {
	ID        string
	Title     string
	Channel   string
	Duration  int
	Thumbnail string
}

type searchFunc func(ctx context.Context, query string) ([]searchHit, error)

func scrapeSearch(ctx context.Context, query string) ([]searchHit, error) {
	type outcome struct {
		hits []searchHit
		err  error
	}

	done := make(chan outcome, 1)
	go func() {
		results, err := ytsearch.VideoSearch(query).Next()
		if err != nil {
			done <- outcome{err: err}
			return
		}

		hits := make([]searchHit, 0, len(results.Videos))
		for _, video := range results.Videos {
			hit := searchHit{
				ID:       video.ID,
				Title:    video.Title,
				Channel:  video.Channel.Title,
				Duration: video.Duration,
			}
			if n := len(video.Thumbnails); n > 0 {
				hit.Thumbnail = video.Thumbnails[n-1].URL
			}
			hits = append(hits, hit)
		}
		done <- outcome{hits: hits}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.hits, o.err
	}
}

// Native extracts metadata without yt-dlp.
//
// Player client spoofing and format selectors are not supported; streams resolve to the
// highest bitrate audio format.
type Native struct {
	client  *youtube.Client
	timeout time.Duration
	logger  *log.Logger
	search  searchFunc
}

// NewNative creates a backend using httpClient for YouTube requests.
func NewNative(httpClient *http.Client, timeout time.Duration, logger *log.Logger) *Native {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Native{
		client:  &youtube.Client{HTTPClient: httpClient},
		timeout: timeout,
		logger:  logger,
		search:  scrapeSearch,
	}
}

func (n *Native) Name() string { return "native" }

// Extract dispatches on the shape of target: search, playlist or single video.
func (n *Native) Extract(ctx context.Context, target string, p profiles.OptionProfile) (*models.Info, error) {
	ctx, cancel := withTimeout(ctx, n.timeout)
	defer cancel()

	var (
		info *models.Info
		err  error
	)

	if query, limit, ok := ParseSearchTarget(target); ok {
		info, err = n.extractSearch(ctx, query, limit)
	} else if !p.NoPlaylist && strings.Contains(target, "list=") {
		info, err = n.extractPlaylist(ctx, target)
	} else {
		info, err = n.extractVideo(ctx, target)
	}

	if err != nil {
		return nil, Classify(target, err)
	}
	return info, nil
}

func (n *Native) extractSearch(ctx context.Context, query string, limit int) (*models.Info, error) {
	hits, err := n.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return searchInfo(query, hits), nil
}

func (n *Native) extractPlaylist(ctx context.Context, target string) (*models.Info, error) {
	playlist, err := n.client.GetPlaylistContext(ctx, target)
	if err != nil {
		return nil, err
	}
	return playlistInfo(playlist), nil
}

func (n *Native) extractVideo(ctx context.Context, target string) (*models.Info, error) {
	video, err := n.client.GetVideoContext(ctx, target)
	if err != nil {
		return nil, err
	}

	info := videoInfo(video)

	audio := audioFormats(video.Formats)
	if len(audio) == 0 {
		return info, nil
	}

	best := &audio[len(audio)-1]
	streamURL, err := n.client.GetStreamURLContext(ctx, video, best)
	if err != nil {
		if n.logger != nil {
			n.logger.Warn("could not resolve stream url", "id", video.ID, "itag", best.ItagNo, "error", err)
		}
		return info, nil
	}

	info.FormatID = strconv.Itoa(best.ItagNo)
	info.URL = streamURL
	return info, nil
}

// audioFormats returns the audio-only formats ordered by ascending bitrate.
func audioFormats(formats youtube.FormatList) youtube.FormatList {
	audio := slices.Clone(formats.Type("audio"))
	audio = slices.DeleteFunc(audio, func(f youtube.Format) bool {
		return strings.HasPrefix(f.MimeType, "video/")
	})
	slices.SortStableFunc(audio, func(a, b youtube.Format) int {
		return cmp.Compare(a.Bitrate, b.Bitrate)
	})
	return audio
}

func videoInfo(video *youtube.Video) *models.Info {
	info := &models.Info{
		ID:         video.ID,
		Title:      video.Title,
		Thumbnails: thumbnails(video.Thumbnails),
	}
	if video.Author != "" {
		author := video.Author
		info.Uploader = &author
	}
	if video.Duration > 0 {
		seconds := video.Duration.Seconds()
		info.Duration = &seconds
	}

	for _, f := range audioFormats(video.Formats) {
		info.Formats = append(info.Formats, models.Format{
			FormatID: strconv.Itoa(f.ItagNo),
			URL:      f.URL,
			Ext:      extension(f.MimeType),
			ACodec:   codec(f.MimeType),
		})
	}
	return info
}

func playlistInfo(playlist *youtube.Playlist) *models.Info {
	info := &models.Info{
		ID:      playlist.ID,
		Title:   playlist.Title,
		Entries: make([]*models.Info, 0, len(playlist.Videos)),
	}
	if playlist.Author != "" {
		author := playlist.Author
		info.Uploader = &author
	}

	for _, entry := range playlist.Videos {
		if entry == nil {
			info.Entries = append(info.Entries, nil)
			continue
		}

		item := &models.Info{
			ID:         entry.ID,
			Title:      entry.Title,
			Thumbnails: thumbnails(entry.Thumbnails),
		}
		if entry.Author != "" {
			author := entry.Author
			item.Uploader = &author
		}
		if entry.Duration > 0 {
			seconds := entry.Duration.Seconds()
			item.Duration = &seconds
		}
		info.Entries = append(info.Entries, item)
	}
	return info
}

func searchInfo(query string, hits []searchHit) *models.Info {
	info := &models.Info{
		ID:      query,
		Title:   query,
		Entries: make([]*models.Info, 0, len(hits)),
	}

	for _, hit := range hits {
		item := &models.Info{ID: hit.ID, Title: hit.Title}
		if hit.Channel != "" {
			channel := hit.Channel
			item.Channel = &channel
		}
		if hit.Duration > 0 {
			seconds := float64(hit.Duration)
			item.Duration = &seconds
		}
		if hit.Thumbnail != "" {
			item.Thumbnails = []models.Thumbnail{{URL: hit.Thumbnail}}
		}
		info.Entries = append(info.Entries, item)
	}
	return info
}

func thumbnails(in youtube.Thumbnails) []models.Thumbnail {
	if len(in) == 0 {
		return nil
	}

	out := make([]models.Thumbnail, 0, len(in))
	for _, th := range in {
		out = append(out, models.Thumbnail{URL: th.URL, Width: int(th.Width), Height: int(th.Height)})
	}
	slices.SortStableFunc(out, func(a, b models.Thumbnail) int {
		return cmp.Compare(a.Width*a.Height, b.Width*b.Height)
	})
	return out
}

// extension maps a MIME type such as audio/mp4 to the container extension yt-dlp reports.
func extension(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "audio/mp4":
		return "m4a"
	case "audio/webm":
		return "webm"
	default:
		_, sub, _ := strings.Cut(mediaType, "/")
		return sub
	}
}

func codec(mimeType string) string {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ""
	}
	return strings.Trim(params["codecs"], `"`)
}
