package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/ytrelay/internal/extractor"
	"github.com/desertthunder/ytrelay/internal/models"
	"github.com/desertthunder/ytrelay/internal/profiles"
	"github.com/desertthunder/ytrelay/internal/shared"
	tu "github.com/desertthunder/ytrelay/internal/testing"
)

const watchAbc = "https://www.youtube.com/watch?v=abc"

func newCatalog(mock *tu.MockExtractor) *Catalog {
	return NewCatalog(mock, profiles.DefaultTable(), nil)
}

func TestCatalog_Search(t *testing.T) {
	t.Run("projects entries", func(t *testing.T) {
		mock := &tu.MockExtractor{Results: map[string]*models.Info{
			"ytsearch2:daft punk": {Entries: []*models.Info{
				{
					ID:         "a",
					Title:      "One More Time",
					Channel:    tu.StrPtr("Daft Punk"),
					Duration:   tu.FloatPtr(320),
					Thumbnails: []models.Thumbnail{{URL: "small"}, {URL: "large"}},
				},
				nil,
				{ID: "b", Title: "Around the World", Uploader: tu.StrPtr("uploader")},
				{ID: "c", Title: "Aerodynamic"},
			}},
		}}

		result, err := newCatalog(mock).Search(context.Background(), " daft punk ", 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Query != "daft punk" {
			t.Errorf("expected trimmed query, got %q", result.Query)
		}
		if len(result.Results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(result.Results))
		}

		first := result.Results[0]
		if first.ID != "a" || first.Artist != "Daft Punk" || *first.Thumbnail != "large" || *first.Duration != 320 {
			t.Errorf("unexpected first track %+v", first)
		}
		if result.Results[1].Artist != "uploader" {
			t.Errorf("expected uploader fallback, got %q", result.Results[1].Artist)
		}
		if last := result.Results[2]; last.Artist != models.UnknownArtist || last.Thumbnail != nil || last.Duration != nil {
			t.Errorf("expected sentinel values, got %+v", last)
		}

		if p := mock.LastProfile(); !p.FlatPlaylist || p.Client != profiles.ClientDefault {
			t.Errorf("expected search profile, got %+v", p)
		}
	})

	t.Run("missing entries yields empty results", func(t *testing.T) {
		mock := &tu.MockExtractor{Results: map[string]*models.Info{"ytsearch10:x": {ID: "x"}}}

		result, err := newCatalog(mock).Search(context.Background(), "x", DefaultSearchLimit)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Results == nil || len(result.Results) != 0 {
			t.Errorf("expected empty non-nil results, got %v", result.Results)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		tc := []struct {
			name  string
			query string
			limit int
		}{
			{name: "empty query", query: "  ", limit: 10},
			{name: "limit too low", query: "x", limit: 0},
			{name: "limit too high", query: "x", limit: 21},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				mock := &tu.MockExtractor{}
				_, err := newCatalog(mock).Search(context.Background(), tt.query, tt.limit)
				if !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				if len(mock.Targets()) != 0 {
					t.Error("extractor should not be called")
				}
			})
		}
	})

	t.Run("extraction failure", func(t *testing.T) {
		mock := &tu.MockExtractor{Err: extractor.Classify("t", errors.New("HTTP Error 429"))}

		_, err := newCatalog(mock).Search(context.Background(), "x", 1)
		if !errors.Is(err, shared.ErrExtractionFailed) {
			t.Fatalf("expected ErrExtractionFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "HTTP Error 429") {
			t.Errorf("expected extractor message in %q", err.Error())
		}
	})
}

func TestCatalog_Playlist(t *testing.T) {
	t.Run("lists tracks from the music host", func(t *testing.T) {
		target := "https://music.youtube.com/playlist?list=PL1"
		mock := &tu.MockExtractor{Results: map[string]*models.Info{
			target: {ID: "PL1", Title: "Mix", Entries: []*models.Info{
				{ID: "a", Title: "A", Channel: tu.StrPtr("Band")},
				{ID: "b", Title: "B"},
			}},
		}}

		playlist, err := newCatalog(mock).Playlist(context.Background(), "https://www.youtube.com/playlist?list=PL1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if targets := mock.Targets(); len(targets) != 1 || targets[0] != target {
			t.Errorf("expected rewritten target, got %v", targets)
		}
		if playlist.ID != "PL1" || playlist.Name != "Mix" || playlist.TrackCount != 2 {
			t.Errorf("unexpected playlist %+v", playlist)
		}
		if playlist.Tracks[1].Artist != models.UnknownArtist {
			t.Errorf("expected sentinel artist, got %q", playlist.Tracks[1].Artist)
		}
	})

	t.Run("invalid playlists", func(t *testing.T) {
		tc := []struct {
			name string
			info *models.Info
		}{
			{name: "no entries list", info: &models.Info{ID: "PL"}},
			{name: "zero entries", info: &models.Info{ID: "PL", Entries: []*models.Info{}}},
			{name: "only null entries", info: &models.Info{ID: "PL", Entries: []*models.Info{nil, nil}}},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				url := "https://music.youtube.com/playlist?list=PL"
				mock := &tu.MockExtractor{Results: map[string]*models.Info{url: tt.info}}

				_, err := newCatalog(mock).Playlist(context.Background(), url)
				if !errors.Is(err, shared.ErrInvalidPlaylist) {
					t.Errorf("expected ErrInvalidPlaylist, got %v", err)
				}
			})
		}
	})

	t.Run("empty url", func(t *testing.T) {
		_, err := newCatalog(&tu.MockExtractor{}).Playlist(context.Background(), "")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("bot detection is an extraction failure", func(t *testing.T) {
		mock := &tu.MockExtractor{Err: extractor.Classify("t", errors.New("Sign in to confirm you're not a bot"))}

		_, err := newCatalog(mock).Playlist(context.Background(), "https://music.youtube.com/playlist?list=PL")
		if !errors.Is(err, shared.ErrExtractionFailed) || errors.Is(err, shared.ErrBotDetected) {
			t.Errorf("expected ErrExtractionFailed only, got %v", err)
		}
		if !strings.Contains(err.Error(), "confirm you're not a bot") {
			t.Errorf("expected extractor message kept, got %q", err.Error())
		}
	})
}

func TestCatalog_StreamMetadata(t *testing.T) {
	t.Run("resolves direct url", func(t *testing.T) {
		mock := &tu.MockExtractor{Results: map[string]*models.Info{
			watchAbc: {
				ID:        "abc",
				Title:     "Song",
				Uploader:  tu.StrPtr("Band"),
				Duration:  tu.FloatPtr(201),
				Thumbnail: tu.StrPtr("thumb"),
				FormatID:  "251",
				Formats:   []models.Format{{FormatID: "140", URL: "u140"}, {FormatID: "251", URL: "u251"}},
			},
		}}

		meta, err := newCatalog(mock).StreamMetadata(context.Background(), "abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if meta.DirectURL == nil || *meta.DirectURL != "u251" {
			t.Errorf("expected u251, got %v", meta.DirectURL)
		}
		if *meta.Artist != "Band" || *meta.Thumbnail != "thumb" || *meta.Duration != 201 {
			t.Errorf("unexpected metadata %+v", meta)
		}

		if p := mock.LastProfile(); p.Client != profiles.ClientAndroid || !p.NoPlaylist {
			t.Errorf("expected stream profile, got %+v", p)
		}
	})

	t.Run("null direct url and artist", func(t *testing.T) {
		mock := &tu.MockExtractor{Results: map[string]*models.Info{watchAbc: {ID: "abc", Title: "Song"}}}

		meta, err := newCatalog(mock).StreamMetadata(context.Background(), "abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if meta.DirectURL != nil || meta.Artist != nil || meta.Thumbnail != nil {
			t.Errorf("expected null fields, got %+v", meta)
		}
	})
}

func TestMusicURL(t *testing.T) {
	tc := []struct {
		in   string
		want string
	}{
		{in: "https://www.youtube.com/playlist?list=PL1", want: "https://music.youtube.com/playlist?list=PL1"},
		{in: "https://youtube.com/playlist?list=PL1", want: "https://music.youtube.com/playlist?list=PL1"},
		{in: "https://m.youtube.com/playlist?list=PL1", want: "https://music.youtube.com/playlist?list=PL1"},
		{in: "https://music.youtube.com/playlist?list=PL1", want: "https://music.youtube.com/playlist?list=PL1"},
		{in: "youtube.com/playlist?list=PL1", want: "music.youtube.com/playlist?list=PL1"},
		{in: "https://soundcloud.com/sets/x", want: "https://soundcloud.com/sets/x"},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			if got := MusicURL(tt.in); got != tt.want {
				t.Errorf("MusicURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractionError(t *testing.T) {
	t.Run("bot marker stays an extraction failure", func(t *testing.T) {
		err := ExtractionError(extractor.Classify("t", errors.New("please confirm you're not a bot")))
		if !errors.Is(err, shared.ErrExtractionFailed) || errors.Is(err, shared.ErrBotDetected) {
			t.Errorf("expected ErrExtractionFailed only, got %v", err)
		}
		if !strings.Contains(err.Error(), "confirm you're not a bot") {
			t.Errorf("expected marker in message, got %q", err.Error())
		}
	})

	t.Run("timeout", func(t *testing.T) {
		err := ExtractionError(extractor.Classify("t", context.DeadlineExceeded))
		if !errors.Is(err, shared.ErrExtractionFailed) || !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected extraction timeout, got %v", err)
		}
	})

	t.Run("nil", func(t *testing.T) {
		if ExtractionError(nil) != nil || StreamError(nil) != nil {
			t.Error("expected nil")
		}
	})
}

func TestStreamError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"classified bot marker", extractor.Classify("t", errors.New("Sign in to confirm you're not a bot")), shared.ErrBotDetected},
		{"untyped bot marker", errors.New("please confirm you're not a bot"), shared.ErrBotDetected},
		{"other failure", extractor.Classify("t", errors.New("Video unavailable")), shared.ErrExtractionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := StreamError(tt.err); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
