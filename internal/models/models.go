// package models defines extractor output and response shapes
package models

import "maps"

// UnknownArtist is reported when an entry names neither a channel nor an uploader.
const UnknownArtist = "Unknown Artist"

// Thumbnail is one artwork variant. Extractors list them smallest first.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Format is one concrete downloadable variant of a media item.
type Format struct {
	FormatID    string            `json:"format_id"`
	URL         string            `json:"url"`
	Ext         string            `json:"ext,omitempty"`
	ACodec      string            `json:"acodec,omitempty"`
	HTTPHeaders map[string]string `json:"http_headers,omitempty"`
}

// Info is the structured description an extractor returns for a target.
//
// A container (search result, playlist) carries its items in Entries; nil entries
// are kept as reported and skipped by consumers.
type Info struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Uploader    *string           `json:"uploader"`
	Channel     *string           `json:"channel"`
	Duration    *float64          `json:"duration"`
	Thumbnail   *string           `json:"thumbnail"`
	Thumbnails  []Thumbnail       `json:"thumbnails"`
	Formats     []Format          `json:"formats"`
	FormatID    string            `json:"format_id"`
	URL         string            `json:"url"`
	HTTPHeaders map[string]string `json:"http_headers,omitempty"`
	Entries     []*Info           `json:"entries"`
}

// HasEntries reports whether the extractor returned an entries list at all.
func (i *Info) HasEntries() bool {
	return i.Entries != nil
}

// Artist picks channel, then uploader, then [UnknownArtist].
func (i *Info) Artist() string {
	if i.Channel != nil && *i.Channel != "" {
		return *i.Channel
	}
	if i.Uploader != nil && *i.Uploader != "" {
		return *i.Uploader
	}
	return UnknownArtist
}

// LargestThumbnail returns the URL of the last thumbnail, or nil when there are none.
func (i *Info) LargestThumbnail() *string {
	if len(i.Thumbnails) == 0 {
		return nil
	}
	u := i.Thumbnails[len(i.Thumbnails)-1].URL
	return &u
}

// Track is a search or playlist row.
type Track struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Artist    string   `json:"artist"`
	Duration  *float64 `json:"duration"`
	Thumbnail *string  `json:"thumbnail"`
}

// NewTrack projects an extractor entry into a [Track].
func NewTrack(entry *Info) Track {
	return Track{
		ID:        entry.ID,
		Title:     entry.Title,
		Artist:    entry.Artist(),
		Duration:  entry.Duration,
		Thumbnail: entry.LargestThumbnail(),
	}
}

// Playlist is a playlist listing with its tracks.
type Playlist struct {
	ID         string  `json:"playlist_id"`
	Name       string  `json:"playlist_name"`
	TrackCount int     `json:"track_count"`
	Tracks     []Track `json:"tracks"`
}

// SearchResult is the response for a search query.
type SearchResult struct {
	Query   string  `json:"query"`
	Results []Track `json:"results"`
}

// StreamMetadata describes a single video and its direct media URL.
type StreamMetadata struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Artist    *string  `json:"artist"`
	Duration  *float64 `json:"duration"`
	DirectURL *string  `json:"direct_url"`
	Thumbnail *string  `json:"thumbnail"`
}

// StreamTarget is the resolved upstream location for one proxy request.
type StreamTarget struct {
	URL         string
	ContentType string
	Headers     map[string]string
}

// WithHeaders returns a copy of t whose headers are base overlaid with extra.
func (t StreamTarget) WithHeaders(base, extra map[string]string) StreamTarget {
	headers := make(map[string]string, len(base)+len(extra))
	maps.Copy(headers, base)
	maps.Copy(headers, extra)
	t.Headers = headers
	return t
}
